package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanshika/txflag/internal/alerts"
	"github.com/vanshika/txflag/internal/artifacts"
	"github.com/vanshika/txflag/internal/config"
	"github.com/vanshika/txflag/internal/graph"
	"github.com/vanshika/txflag/internal/logging"
	"github.com/vanshika/txflag/internal/repository"
	"github.com/vanshika/txflag/internal/server"
	"github.com/vanshika/txflag/internal/training"
)

func main() {
	ctx := context.Background()

	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	apiDeps := server.APIDependencies{}
	health := server.HealthChecks{}

	predictor, err := loadPredictor(ctx, cfg.Artifacts.Path)
	if err != nil {
		logger.Warn("serving without a trained model", "error", err, "store", cfg.Artifacts.Path)
		health = append(health, server.ModelHealthService{})
	} else {
		b := predictor.Bundle()
		logger.Info("loaded model", "id", b.ID, "trees", len(b.Forest.Trees), "accuracy", b.Report.Accuracy)
		apiDeps.Predictor = predictor
		health = append(health, server.ModelHealthService{Predictor: predictor})
	}

	if cfg.Graph.URI != "" {
		graphClient, err := buildGraphClient(ctx, cfg)
		if err != nil {
			logger.Error("failed to create graph client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		apiDeps.Suspicious = repository.New(graphClient)
		health = append(health, server.GraphHealthService{Client: graphClient})
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := alerts.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("closing alert publisher failed", "error", err)
			}
		}()
		apiDeps.Alerts = pub
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           health,
		API:              server.NewAPIHandlers(logger, apiDeps),
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// loadPredictor reads the latest bundle and releases the store so training can
// write new bundles while the server runs.
func loadPredictor(ctx context.Context, path string) (*training.Predictor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	store, err := artifacts.Open(path, true)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	bundle, err := store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return training.NewPredictor(bundle)
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	return graph.NewNeo4jClient(ctx, opts)
}
