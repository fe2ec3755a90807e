package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/txflag/internal/alerts"
	"github.com/vanshika/txflag/internal/config"
	"github.com/vanshika/txflag/internal/dataset"
	"github.com/vanshika/txflag/internal/graph"
	"github.com/vanshika/txflag/internal/logging"
	"github.com/vanshika/txflag/internal/repository"
	"github.com/vanshika/txflag/internal/service"
	"github.com/vanshika/txflag/internal/storage/postgres"
)

var errNoSinks = errors.New("no sinks configured: set GRAPH_URI, POSTGRES_DSN or KAFKA_BROKERS")

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
		workers     = flag.Int("workers", cfg.Ingest.Workers, "number of concurrent workers for ingestion")
	)
	flag.Parse()

	logger := logging.New(cfg.Logging).With("component", "ingest")

	if err := run(logger, cfg, *datasetPath, *workers); err != nil {
		logger.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg config.Config, datasetPath string, workers int) error {
	txs, err := dataset.ReadFile(datasetPath)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	if len(txs) == 0 {
		return fmt.Errorf("transactions dataset %s is empty", datasetPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sinks, closers, err := buildSinks(ctx, logger, cfg)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("closing sink failed", "error", err)
			}
		}
	}()
	if err != nil {
		return err
	}

	start := time.Now()
	logger.Info("ingesting transactions", "count", len(txs), "sinks", len(sinks), "workers", workers)
	stats, err := service.NewBulkIngestor(sinks, workers, logger).Ingest(ctx, txs)
	if err != nil {
		return fmt.Errorf("ingest (%d stored, %d failed): %w", stats.Stored, stats.Failed, err)
	}

	logger.Info("ingestion complete", "duration", time.Since(start).String(), "transactions", len(txs))
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func buildSinks(ctx context.Context, logger *slog.Logger, cfg config.Config) ([]service.NamedSink, []io.Closer, error) {
	var (
		sinks   []service.NamedSink
		closers []io.Closer
	)

	if cfg.Graph.URI != "" {
		client, err := buildGraphClient(ctx, logger, cfg)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, closerFunc(func() error { return client.Close(context.Background()) }))
		sinks = append(sinks, service.NamedSink{Name: "graph", Sink: repository.New(client)})
	}

	if cfg.Postgres.DSN != "" {
		store, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, store)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, closers, err
		}
		logger.Info("connected to postgres")
		sinks = append(sinks, service.NamedSink{Name: "postgres", Sink: store})
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := alerts.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, pub)
		logger.Info("publishing alerts", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		sinks = append(sinks, service.NamedSink{Name: "alerts", Sink: alerts.NewSink(pub)})
	}

	if len(sinks) == 0 {
		return nil, closers, errNoSinks
	}
	return sinks, closers, nil
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
