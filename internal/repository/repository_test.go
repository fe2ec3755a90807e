package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/txflag/internal/domain"
	"github.com/vanshika/txflag/internal/graph"
)

func TestRepository_StoreTransaction(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	ts := time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC)
	tx := domain.Transaction{
		ID:            "tx-1",
		SenderID:      "user1",
		ReceiverID:    "user2",
		Type:          domain.TypeCard,
		Amount:        decimal.NewFromInt(12000),
		PaymentMethod: "Card Payment",
		ContactNumber: "+14155552671",
		Timestamp:     ts,
		Suspicious:    true,
		Reasons:       []string{domain.ReasonHighAmount},
	}

	if err := repo.StoreTransaction(context.Background(), tx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := mem.Writes()
	if len(calls) != 1 {
		t.Fatalf("expected 1 write query, got %d", len(calls))
	}
	call := calls[0]
	if call.Cypher != storeTransactionCypher {
		t.Fatalf("unexpected query\nexpected:\n%s\ngot:\n%s", storeTransactionCypher, call.Cypher)
	}
	if call.Params["senderId"] != "user1" || call.Params["receiverId"] != "user2" {
		t.Errorf("unexpected account params: %v", call.Params)
	}

	props, ok := call.Params["props"].(map[string]any)
	if !ok {
		t.Fatalf("expected props map, got %T", call.Params["props"])
	}
	if props["amount"] != "12000" {
		t.Errorf("amount mismatch: got %v", props["amount"])
	}
	if props["suspicious"] != true {
		t.Errorf("expected suspicious flag, got %v", props["suspicious"])
	}
	if props["timestamp"] != "2024-02-01T03:00:00Z" {
		t.Errorf("timestamp mismatch: got %v", props["timestamp"])
	}
	reasons, _ := props["reasons"].([]string)
	if len(reasons) != 1 || reasons[0] != domain.ReasonHighAmount {
		t.Errorf("reasons mismatch: got %v", props["reasons"])
	}
}

func TestRepository_StoreTransactionValidation(t *testing.T) {
	repo := New(graph.NewMemoryClient())

	if err := repo.StoreTransaction(context.Background(), domain.Transaction{SenderID: "a", ReceiverID: "b"}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if err := repo.StoreTransaction(context.Background(), domain.Transaction{ID: "tx", SenderID: "a"}); err == nil {
		t.Fatal("expected error for missing receiver")
	}
}

func TestRepository_StoreTransactionPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	repo := New(graph.NewMemoryClient().FailWith(boom))

	err := repo.StoreTransaction(context.Background(), domain.Transaction{ID: "tx", SenderID: "a", ReceiverID: "b"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestRepository_ListSuspicious(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.QueueRead(graph.Result{Records: []graph.Record{
		{
			"transactionId": "tx-9",
			"senderId":      "user1",
			"receiverId":    "user2",
			"type":          "neft",
			"amount":        "250",
			"contactNumber": "9152251477",
			"timestamp":     "2024-02-01T03:00:00Z",
			"reasons":       []any{domain.ReasonFrequentSmall},
		},
	}})
	repo := New(mem)

	txs, err := repo.ListSuspicious(context.Background(), 1000)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	got := txs[0]
	if got.ID != "tx-9" || got.Type != domain.TypeNEFT || !got.Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("unexpected transaction: %+v", got)
	}
	if !got.Suspicious || len(got.Reasons) != 1 || got.Reasons[0] != domain.ReasonFrequentSmall {
		t.Errorf("unexpected labels: %v %v", got.Suspicious, got.Reasons)
	}
	if got.Timestamp.Hour() != 3 {
		t.Errorf("unexpected timestamp: %v", got.Timestamp)
	}

	reads := mem.Reads()
	if len(reads) != 1 || reads[0].Params["limit"] != maxListLimit {
		t.Errorf("expected limit to be clamped to %d, got %v", maxListLimit, reads)
	}
}
