package alerts

import (
	"context"

	"github.com/vanshika/txflag/internal/domain"
)

// Sink publishes an alert for each suspicious transaction it receives and
// ignores the rest.
type Sink struct {
	publisher Publisher
}

// NewSink wraps publisher as a transaction sink.
func NewSink(publisher Publisher) *Sink {
	return &Sink{publisher: publisher}
}

// StoreTransaction publishes tx when it is labeled suspicious.
func (s *Sink) StoreTransaction(ctx context.Context, tx domain.Transaction) error {
	if !tx.Suspicious {
		return nil
	}
	return s.publisher.Publish(ctx, FromTransaction(tx, SourceRules))
}
