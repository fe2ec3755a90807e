package alerts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/txflag/internal/domain"
)

func sampleTx(suspicious bool) domain.Transaction {
	tx := domain.Transaction{
		ID:         "tx-7",
		SenderID:   "user3",
		ReceiverID: "user9",
		Type:       domain.TypeNEFT,
		Amount:     decimal.NewFromInt(15000),
		Timestamp:  time.Date(2024, 3, 4, 2, 30, 0, 0, time.UTC),
	}
	if suspicious {
		tx.Flag(domain.ReasonHighAmount)
	}
	return tx
}

func TestSinkPublishesOnlySuspicious(t *testing.T) {
	pub := &MemoryPublisher{}
	sink := NewSink(pub)

	require.NoError(t, sink.StoreTransaction(context.Background(), sampleTx(false)))
	require.NoError(t, sink.StoreTransaction(context.Background(), sampleTx(true)))

	got := pub.Alerts()
	require.Len(t, got, 1)
	assert.Equal(t, "tx-7", got[0].TransactionID)
	assert.Equal(t, "15000", got[0].Amount)
	assert.Equal(t, SourceRules, got[0].Source)
	assert.Equal(t, []string{domain.ReasonHighAmount}, got[0].Reasons)
}

func TestAlertJSONShape(t *testing.T) {
	a := FromTransaction(sampleTx(true), SourceClassifier)
	p := 0.93
	a.Probability = &p

	raw, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "tx-7", decoded["transaction_id"])
	assert.Equal(t, "neft", decoded["type"])
	assert.Equal(t, "classifier", decoded["source"])
	assert.InDelta(t, 0.93, decoded["probability"], 1e-9)
	assert.Equal(t, "2024-03-04T02:30:00Z", decoded["occurred_at"])
}

func TestFromTransactionCopiesReasons(t *testing.T) {
	tx := sampleTx(true)
	a := FromTransaction(tx, SourceRules)
	tx.Reasons[0] = "mutated"
	assert.Equal(t, domain.ReasonHighAmount, a.Reasons[0])
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Alert{}))
	assert.NoError(t, p.Close())
}
