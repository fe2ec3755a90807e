package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/txflag/internal/domain"
)

var noon = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

func tx(sender, receiver string, amount int64, ts time.Time) domain.Transaction {
	return domain.Transaction{
		ID:            sender + "->" + receiver,
		SenderID:      sender,
		ReceiverID:    receiver,
		Type:          domain.TypeNEFT,
		Amount:        decimal.NewFromInt(amount),
		ContactNumber: "9152251477",
		Timestamp:     ts,
	}
}

func TestEvaluate_HighAmount(t *testing.T) {
	set := NewSet(DefaultThresholds())

	assert.Empty(t, set.Evaluate(tx("user1", "user2", 10000, noon), nil))
	assert.Equal(t, []string{domain.ReasonHighAmount}, set.Evaluate(tx("user1", "user2", 10001, noon), nil))
}

func TestEvaluate_OddHoursRequiresHighAmount(t *testing.T) {
	set := NewSet(DefaultThresholds())
	night := time.Date(2024, 3, 14, 3, 30, 0, 0, time.UTC)

	assert.Empty(t, set.Evaluate(tx("a", "b", 5000, night), nil))
	assert.Equal(t,
		[]string{domain.ReasonHighAmount, domain.ReasonOddHours},
		set.Evaluate(tx("a", "b", 25000, night), nil),
	)

	five := time.Date(2024, 3, 14, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{domain.ReasonHighAmount}, set.Evaluate(tx("a", "b", 25000, five), nil))
}

func TestEvaluate_NonDomesticContact(t *testing.T) {
	set := NewSet(DefaultThresholds())
	cases := map[string]bool{
		"+14155552671":  true,
		"+441632960961": true,
		"+919876543210": false,
		"9152251477":    false,
		"-":             false,
		"":              false,
	}
	for number, want := range cases {
		record := tx("a", "b", 2000, noon)
		record.ContactNumber = number
		got := set.Evaluate(record, nil)
		if want {
			assert.Equal(t, []string{domain.ReasonNonDomesticContact}, got, number)
		} else {
			assert.Empty(t, got, number)
		}
	}
}

func TestEvaluate_FrequentSmallNeedsThreePrior(t *testing.T) {
	set := NewSet(DefaultThresholds())
	window := NewPairWindow(10 * time.Minute)

	var labels [][]string
	for i := 0; i < 4; i++ {
		record := tx("user1", "user2", 120, noon.Add(time.Duration(i)*time.Minute))
		labels = append(labels, set.Evaluate(record, window))
		window.Record(record)
	}

	assert.Empty(t, labels[0])
	assert.Empty(t, labels[1])
	assert.Empty(t, labels[2])
	assert.Equal(t, []string{domain.ReasonFrequentSmall}, labels[3])
}

func TestEvaluate_FrequentSmallIgnoresOtherPairsAndOldEntries(t *testing.T) {
	set := NewSet(DefaultThresholds())
	window := NewPairWindow(10 * time.Minute)

	window.Record(tx("user1", "user2", 100, noon.Add(-30*time.Minute)))
	window.Record(tx("user1", "user2", 100, noon.Add(-20*time.Minute)))
	window.Record(tx("user2", "user1", 100, noon.Add(-time.Minute)))
	window.Record(tx("user1", "user3", 100, noon.Add(-time.Minute)))
	window.Record(tx("user1", "user2", 800, noon.Add(-time.Minute)))

	assert.Empty(t, set.Evaluate(tx("user1", "user2", 100, noon), window))
}

func TestApply_KeepsExistingReasons(t *testing.T) {
	set := NewSet(DefaultThresholds())
	record := tx("a", "b", 20000, noon)
	record.Flag(domain.ReasonHighAmount)

	set.Apply(&record, nil)

	require.True(t, record.Suspicious)
	assert.Equal(t, []string{domain.ReasonHighAmount}, record.Reasons)
}

func TestPairWindow_AdvancePrunesBehindWatermark(t *testing.T) {
	window := NewPairWindow(10 * time.Minute)
	window.Record(tx("a", "b", 100, noon))
	window.Record(tx("a", "b", 100, noon.Add(5*time.Minute)))
	window.Record(tx("a", "b", 100, noon.Add(time.Hour)))
	require.Equal(t, 3, window.Len())

	window.Advance(noon.Add(time.Hour))
	assert.Equal(t, 1, window.Len())

	// the watermark never moves backwards
	window.Advance(noon)
	window.Record(tx("a", "b", 100, noon))
	assert.Equal(t, 1, window.Len())
}

func TestEvaluate_FrequentSmallIndependentOfRecordOrder(t *testing.T) {
	set := NewSet(DefaultThresholds())
	window := NewPairWindow(10 * time.Minute)

	window.Record(tx("a", "b", 5000, noon.Add(24*time.Hour)))
	window.Record(tx("a", "b", 120, noon.Add(2*time.Minute)))
	window.Record(tx("a", "b", 120, noon))
	window.Record(tx("a", "b", 120, noon.Add(time.Minute)))

	at := noon.Add(4 * time.Minute)
	limit := DefaultThresholds().SmallAmount
	assert.Equal(t, 3, window.CountSmallWithin("a", "b", at, 10*time.Minute, limit))
	assert.Equal(t, []string{domain.ReasonFrequentSmall}, set.Evaluate(tx("a", "b", 120, at), window))
}
