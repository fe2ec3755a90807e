// Package alerts publishes suspicious-transaction events.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vanshika/txflag/internal/domain"
)

// Source values for Alert.Source.
const (
	SourceRules      = "rules"
	SourceClassifier = "classifier"
)

// Alert is the event emitted for a suspicious transaction.
type Alert struct {
	TransactionID string    `json:"transaction_id"`
	SenderID      string    `json:"sender_id"`
	ReceiverID    string    `json:"receiver_id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Reasons       []string  `json:"reasons"`
	Probability   *float64  `json:"probability,omitempty"`
	Source        string    `json:"source"`
	OccurredAt    time.Time `json:"occurred_at"`
	RaisedAt      time.Time `json:"raised_at"`
}

// FromTransaction builds an alert for tx.
func FromTransaction(tx domain.Transaction, source string) Alert {
	return Alert{
		TransactionID: tx.ID,
		SenderID:      tx.SenderID,
		ReceiverID:    tx.ReceiverID,
		Type:          string(tx.Type),
		Amount:        tx.Amount.String(),
		Reasons:       append([]string(nil), tx.Reasons...),
		Source:        source,
		OccurredAt:    tx.Timestamp,
		RaisedAt:      time.Now().UTC(),
	}
}

// Publisher emits alerts.
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
	Close() error
}

// KafkaPublisher writes alerts as JSON messages keyed by transaction id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(alert.TransactionID),
		Value: payload,
		Time:  alert.RaisedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.TransactionID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every alert.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Alert) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// MemoryPublisher keeps alerts in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	alerts []Alert
}

// Publish implements Publisher.
func (m *MemoryPublisher) Publish(_ context.Context, alert Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

// Close implements Publisher.
func (m *MemoryPublisher) Close() error { return nil }

// Alerts returns a snapshot of published alerts.
func (m *MemoryPublisher) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...)
}
