package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/txflag/internal/domain"
	"github.com/vanshika/txflag/internal/graph"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Repository persists labeled transactions as a graph of accounts.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// StoreTransaction upserts the sender and receiver accounts and the transaction
// node linking them.
func (r *Repository) StoreTransaction(ctx context.Context, tx domain.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction id is required")
	}
	if tx.SenderID == "" || tx.ReceiverID == "" {
		return errors.New("both sender and receiver ids are required")
	}

	params := map[string]any{
		"transactionId": tx.ID,
		"senderId":      tx.SenderID,
		"receiverId":    tx.ReceiverID,
		"props":         transactionProperties(tx),
	}
	if _, err := r.client.Write(ctx, storeTransactionCypher, params); err != nil {
		return fmt.Errorf("store transaction %s: %w", tx.ID, err)
	}
	return nil
}

// ListSuspicious returns the most recent flagged transactions.
func (r *Repository) ListSuspicious(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	res, err := r.client.Read(ctx, listSuspiciousCypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list suspicious transactions: %w", err)
	}

	out := make([]domain.Transaction, 0, len(res.Records))
	for _, rec := range res.Records {
		amount, err := decimal.NewFromString(toString(rec["amount"]))
		if err != nil {
			amount = decimal.NewFromFloat(toFloat64(rec["amount"]))
		}
		out = append(out, domain.Transaction{
			ID:            toString(rec["transactionId"]),
			SenderID:      toString(rec["senderId"]),
			ReceiverID:    toString(rec["receiverId"]),
			Type:          domain.TransactionType(toString(rec["type"])),
			Amount:        amount,
			PaymentMethod: toString(rec["paymentMethod"]),
			ContactNumber: toString(rec["contactNumber"]),
			Timestamp:     toTime(rec["timestamp"]),
			Suspicious:    true,
			Reasons:       toStrings(rec["reasons"]),
		})
	}
	return out, nil
}

func transactionProperties(tx domain.Transaction) map[string]any {
	reasons := tx.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return map[string]any{
		"type":          string(tx.Type),
		"amount":        tx.Amount.String(),
		"amountValue":   tx.Amount.InexactFloat64(),
		"paymentMethod": tx.PaymentMethod,
		"contactNumber": tx.ContactNumber,
		"timestamp":     formatTime(tx.Timestamp),
		"suspicious":    tx.Suspicious,
		"reasons":       reasons,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toTime(val any) time.Time {
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func toStrings(val any) []string {
	items, ok := val.([]any)
	if !ok {
		if s, ok := val.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := toString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

const storeTransactionCypher = `
MERGE (sender:Account {accountId: $senderId})
MERGE (receiver:Account {accountId: $receiverId})
MERGE (t:Transaction {transactionId: $transactionId})
SET t += $props
MERGE (sender)-[:SENT]->(t)
MERGE (t)-[:RECEIVED_BY]->(receiver)
`

const listSuspiciousCypher = `
MATCH (sender:Account)-[:SENT]->(t:Transaction {suspicious: true})-[:RECEIVED_BY]->(receiver:Account)
RETURN t.transactionId AS transactionId,
	sender.accountId AS senderId,
	receiver.accountId AS receiverId,
	t.type AS type,
	t.amount AS amount,
	t.paymentMethod AS paymentMethod,
	t.contactNumber AS contactNumber,
	t.timestamp AS timestamp,
	t.reasons AS reasons
ORDER BY t.timestamp DESC
LIMIT $limit
`
