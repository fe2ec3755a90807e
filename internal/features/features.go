// Package features turns raw transactions into the fixed-order numeric vectors
// consumed by the classifier. Training and prediction both go through Derive so
// the two paths cannot drift apart.
package features

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/txflag/internal/domain"
)

// Column positions within a feature vector.
const (
	Amount = iota
	IsCard
	IsNEFT
	IsContact
	IsInternational
	Hour
	DayOfWeek
	IsOddHours
	IsSmallAmountCardNEFT
	FrequentSmallTx
	Width
)

// Names returns the column names in vector order.
func Names() []string {
	return []string{
		"amount",
		"is_card",
		"is_neft",
		"is_contact",
		"is_international",
		"hour",
		"day_of_week",
		"is_odd_hours",
		"is_small_amount_card_neft",
		"frequent_small_tx",
	}
}

// Config holds the derivation thresholds.
type Config struct {
	SmallAmount       decimal.Decimal
	FrequentThreshold int
	NightStartHour    int
	NightEndHour      int
	DomesticPrefix    string
}

// DefaultConfig matches the thresholds the model has been trained with.
func DefaultConfig() Config {
	return Config{
		SmallAmount:       decimal.NewFromInt(1000),
		FrequentThreshold: 3,
		NightStartHour:    2,
		NightEndHour:      5,
		DomesticPrefix:    domain.DefaultDomesticPrefix,
	}
}

// Deriver converts transactions into feature vectors.
type Deriver struct {
	cfg Config
}

// NewDeriver returns a Deriver for cfg.
func NewDeriver(cfg Config) *Deriver {
	return &Deriver{cfg: cfg}
}

// Config returns the derivation thresholds.
func (d *Deriver) Config() Config {
	return d.cfg
}

type pair struct {
	sender   string
	receiver string
}

// Derive returns one vector per transaction. The small-transaction count for a
// sender->receiver pair accumulates in batch order, so a row only sees rows
// before it (and itself).
func (d *Deriver) Derive(batch []domain.Transaction) [][]float64 {
	out := make([][]float64, len(batch))
	smallCounts := make(map[pair]int)
	for i, tx := range batch {
		count := 0
		if tx.Amount.LessThan(d.cfg.SmallAmount) {
			key := pair{sender: tx.SenderID, receiver: tx.ReceiverID}
			smallCounts[key]++
			count = smallCounts[key]
		}
		out[i] = d.vector(tx, count)
	}
	return out
}

// DeriveOne derives the vector of a transaction seen on its own.
func (d *Deriver) DeriveOne(tx domain.Transaction) []float64 {
	return d.Derive([]domain.Transaction{tx})[0]
}

func (d *Deriver) vector(tx domain.Transaction, smallCount int) []float64 {
	v := make([]float64, Width)
	v[Amount] = tx.Amount.InexactFloat64()
	v[IsCard] = indicator(tx.Type == domain.TypeCard)
	v[IsNEFT] = indicator(tx.Type == domain.TypeNEFT)
	v[IsContact] = indicator(tx.Type == domain.TypeContact)
	v[IsInternational] = indicator(domain.ClassifyContact(tx.ContactNumber, d.cfg.DomesticPrefix) == domain.ContactInternational)

	hour := tx.Timestamp.Hour()
	v[Hour] = float64(hour)
	v[DayOfWeek] = float64(mondayFirst(tx.Timestamp.Weekday()))
	v[IsOddHours] = indicator(hour >= d.cfg.NightStartHour && hour < d.cfg.NightEndHour)
	v[IsSmallAmountCardNEFT] = indicator(tx.Amount.LessThan(d.cfg.SmallAmount) &&
		(tx.Type == domain.TypeCard || tx.Type == domain.TypeNEFT))
	v[FrequentSmallTx] = indicator(smallCount > d.cfg.FrequentThreshold)
	return v
}

// Labels returns 1 for suspicious and 0 for regular transactions.
func Labels(batch []domain.Transaction) []int {
	out := make([]int, len(batch))
	for i, tx := range batch {
		if tx.Suspicious {
			out[i] = 1
		}
	}
	return out
}

func mondayFirst(day time.Weekday) int {
	return (int(day) + 6) % 7
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
