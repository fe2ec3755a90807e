package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/txflag/internal/config"
	"github.com/vanshika/txflag/internal/dataset"
	"github.com/vanshika/txflag/internal/generator"
)

func main() {
	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}
	appCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var (
		users        = flag.Int("users", appCfg.Generator.Users, "number of users to draw senders and receivers from")
		transactions = flag.Int("transactions", appCfg.Generator.Transactions, "number of transactions to generate")
		ratio        = flag.Float64("suspicious-ratio", appCfg.Generator.SuspiciousRatio, "target share of suspicious transactions")
		seed         = flag.Int64("seed", appCfg.Generator.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", appCfg.Generator.OutputDir, "directory to write "+generator.DatasetFileName)
		writeStdout  = flag.Bool("stdout", false, "write the CSV to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.DefaultConfig()
	genCfg.NumUsers = *users
	genCfg.NumTransactions = *transactions
	genCfg.TargetSuspiciousRatio = clampProbability(*ratio)
	genCfg.Seed = *seed

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ds, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := dataset.Write(os.Stdout, ds.Transactions); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path, err := generator.WriteDataset(ds, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d transactions (%d suspicious, %.1f%%) into %s\n",
		len(ds.Transactions), ds.SuspiciousCount(), 100*ds.SuspiciousRatio(), path)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
