package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vanshika/txflag/internal/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	ids    map[string]int
	failOn string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ids: make(map[string]int)}
}

func (s *recordingSink) StoreTransaction(_ context.Context, tx domain.Transaction) error {
	if tx.ID == s.failOn {
		return errors.New("rejected " + tx.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[tx.ID]++
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func makeTxs(n int) []domain.Transaction {
	txs := make([]domain.Transaction, n)
	for i := range txs {
		txs[i] = domain.Transaction{ID: fmt.Sprintf("tx-%d", i), SenderID: "user1", ReceiverID: "user2"}
	}
	return txs
}

func TestBulkIngestorFansOutToAllSinks(t *testing.T) {
	a, b := newRecordingSink(), newRecordingSink()
	ingestor := NewBulkIngestor([]NamedSink{{Name: "a", Sink: a}, {Name: "b", Sink: b}}, 3, nil)

	stats, err := ingestor.Ingest(context.Background(), makeTxs(25))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.count() != 25 || b.count() != 25 {
		t.Fatalf("expected 25 records per sink, got %d and %d", a.count(), b.count())
	}
	if stats.Stored != 50 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestBulkIngestorCollectsSinkErrors(t *testing.T) {
	good := newRecordingSink()
	bad := newRecordingSink()
	bad.failOn = "tx-3"
	ingestor := NewBulkIngestor([]NamedSink{{Name: "good", Sink: good}, {Name: "bad", Sink: bad}}, 2, nil)

	stats, err := ingestor.Ingest(context.Background(), makeTxs(10))
	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected *TaskError, got %v", err)
	}
	if len(taskErr.Errors) != 1 {
		t.Fatalf("expected a single error, got %v", taskErr.Errors)
	}
	if good.count() != 10 {
		t.Fatalf("failing sink must not block others, got %d", good.count())
	}
	if stats.Failed != 1 || stats.Stored != 19 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestBulkIngestorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ingestor := NewBulkIngestor([]NamedSink{{Name: "a", Sink: newRecordingSink()}}, 2, nil)
	_, err := ingestor.Ingest(ctx, makeTxs(100))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBulkIngestorRequiresSinks(t *testing.T) {
	if _, err := NewBulkIngestor(nil, 1, nil).Ingest(context.Background(), makeTxs(1)); err == nil {
		t.Fatal("expected error without sinks")
	}
}

func TestTaskErrorMessage(t *testing.T) {
	var te TaskError
	if te.asError() != nil {
		t.Fatal("empty TaskError must be nil")
	}
	te.append(errors.New("one"))
	te.append(errors.New("two"))
	if got := te.Error(); got != "2 errors: one; two;" {
		t.Fatalf("unexpected message %q", got)
	}
}
