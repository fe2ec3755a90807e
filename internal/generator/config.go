package generator

import (
	"time"

	"github.com/vanshika/txflag/internal/rules"
)

// Config drives the synthetic transaction generator.
type Config struct {
	NumTransactions       int
	NumUsers              int
	TargetSuspiciousRatio float64
	Seed                  int64
	// Now anchors every generated timestamp. Zero means time.Now().
	Now               time.Time
	SpanDays          int
	SmallBursts       int
	BurstSize         int
	NightTransactions int
	BurstSender       string
	BurstReceiver     string
	Thresholds        rules.Thresholds
}

// DefaultConfig returns the baseline dataset shape.
func DefaultConfig() Config {
	return Config{
		NumTransactions:       1000,
		NumUsers:              100,
		TargetSuspiciousRatio: 0.10,
		Seed:                  42,
		SpanDays:              30,
		SmallBursts:           10,
		BurstSize:             5,
		NightTransactions:     10,
		BurstSender:           "user1",
		BurstReceiver:         "user2",
		Thresholds:            rules.DefaultThresholds(),
	}
}
