package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vanshika/txflag/internal/domain"
)

// TransactionSink receives labeled transactions during ingestion.
type TransactionSink interface {
	StoreTransaction(ctx context.Context, tx domain.Transaction) error
}

// NamedSink pairs a sink with the name used in logs and errors.
type NamedSink struct {
	Name string
	Sink TransactionSink
}

// TaskError accumulates multiple errors produced during bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Stats summarises an ingestion run.
type Stats struct {
	Records int
	Stored  int64
	Failed  int64
}

// BulkIngestor fans a dataset out to every configured sink using a worker pool.
type BulkIngestor struct {
	sinks   []NamedSink
	workers int
	logger  *slog.Logger
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(sinks []NamedSink, workers int, logger *slog.Logger) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkIngestor{
		sinks:   sinks,
		workers: workers,
		logger:  logger,
	}
}

// Ingest writes every transaction to every sink. Failures on one sink do not
// stop the others; they are collected into a *TaskError.
func (bi *BulkIngestor) Ingest(ctx context.Context, txs []domain.Transaction) (Stats, error) {
	stats := Stats{Records: len(txs)}
	if len(bi.sinks) == 0 {
		return stats, errors.New("no sinks configured")
	}

	var stored, failed atomic.Int64
	err := bi.run(ctx, len(txs), func(idx int) error {
		tx := txs[idx]
		var taskErr TaskError
		for _, s := range bi.sinks {
			if err := s.Sink.StoreTransaction(ctx, tx); err != nil {
				failed.Add(1)
				taskErr.append(fmt.Errorf("%s: %w", s.Name, err))
				continue
			}
			stored.Add(1)
		}
		return taskErr.asError()
	})
	stats.Stored = stored.Load()
	stats.Failed = failed.Load()

	bi.logger.Info("ingestion finished",
		slog.Int("records", stats.Records),
		slog.Int("sinks", len(bi.sinks)),
		slog.Int64("stored", stats.Stored),
		slog.Int64("failed", stats.Failed),
	)
	return stats, err
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		var nested *TaskError
		if errors.As(err, &nested) {
			for _, e := range nested.Errors {
				taskErr.append(e)
			}
			continue
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
