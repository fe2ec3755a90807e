package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/txflag/internal/artifacts"
	"github.com/vanshika/txflag/internal/config"
	"github.com/vanshika/txflag/internal/logging"
	"github.com/vanshika/txflag/internal/training"
)

func main() {
	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var (
		datasetPath = flag.String("dataset", cfg.Training.Dataset, "path to the labeled transactions CSV")
		storePath   = flag.String("store", cfg.Artifacts.Path, "path to the model store")
		trees       = flag.Int("trees", cfg.Training.Trees, "number of trees in the forest")
		maxDepth    = flag.Int("max-depth", cfg.Training.MaxDepth, "maximum tree depth")
	)
	flag.Parse()

	logger := logging.New(cfg.Logging).With("component", "train")

	trainCfg := training.DefaultConfig()
	trainCfg.TestFraction = cfg.Training.TestFraction
	trainCfg.SplitSeed = cfg.Training.SplitSeed
	trainCfg.Forest.NumTrees = *trees
	trainCfg.Forest.MaxDepth = *maxDepth
	trainCfg.Forest.Seed = cfg.Training.ForestSeed
	trainCfg.Forest.Workers = cfg.Training.Workers

	store, err := artifacts.Open(*storePath, false)
	if err != nil {
		logger.Error("failed to open model store", "error", err, "path", *storePath)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing model store failed", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := training.NewTrainer(trainCfg, logger, store).TrainFile(ctx, *datasetPath)
	if err != nil {
		logger.Error("training failed", "error", err, "dataset", *datasetPath)
		cancel()
		_ = store.Close()
		os.Exit(1)
	}

	b := result.Bundle
	fmt.Fprintf(os.Stdout, "Model %s trained on %d rows, evaluated on %d rows in %s\n\n",
		result.BundleID, b.TrainRows, b.TestRows, result.Duration.Round(time.Millisecond))
	fmt.Fprintln(os.Stdout, "Model Performance:")
	fmt.Fprintln(os.Stdout, b.Report.String())
	fmt.Fprintln(os.Stdout, "Feature Importance:")
	for _, imp := range b.Importances {
		fmt.Fprintf(os.Stdout, "  %-28s %.4f\n", imp.Feature, imp.Importance)
	}
}
