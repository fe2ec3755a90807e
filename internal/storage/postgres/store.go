package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vanshika/txflag/internal/domain"
)

// Store writes labeled transactions to a postgres table.
type Store struct {
	db *sql.DB
}

// Open connects to dsn with the lib/pq driver and pings the server.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the transactions table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// StoreTransaction inserts tx, replacing the labels of an existing row with the same id.
func (s *Store) StoreTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := s.db.ExecContext(ctx, insertTransaction, insertArgs(tx)...)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func insertArgs(tx domain.Transaction) []any {
	reasons := tx.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return []any{
		tx.ID,
		tx.SenderID,
		tx.ReceiverID,
		string(tx.Type),
		tx.Amount.String(),
		tx.PaymentMethod,
		tx.ContactNumber,
		tx.Timestamp,
		tx.Suspicious,
		pq.Array(reasons),
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id              TEXT PRIMARY KEY,
	sender_id       TEXT NOT NULL,
	receiver_id     TEXT NOT NULL,
	type            TEXT NOT NULL,
	amount          NUMERIC(18, 2) NOT NULL,
	payment_method  TEXT NOT NULL DEFAULT '',
	contact_number  TEXT NOT NULL DEFAULT '',
	occurred_at     TIMESTAMPTZ NOT NULL,
	is_suspicious   BOOLEAN NOT NULL,
	reasons         TEXT[] NOT NULL DEFAULT '{}',
	CHECK (sender_id <> receiver_id)
);
CREATE INDEX IF NOT EXISTS transactions_pair_idx ON transactions (sender_id, receiver_id, occurred_at);
`

const insertTransaction = `
INSERT INTO transactions (id, sender_id, receiver_id, type, amount, payment_method, contact_number, occurred_at, is_suspicious, reasons)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET is_suspicious = EXCLUDED.is_suspicious, reasons = EXCLUDED.reasons`
