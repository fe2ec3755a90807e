// Package rules holds the heuristics that label synthetic transactions as
// suspicious. Each rule is an independent predicate paired with the reason it
// records; rules never mutate the transaction they inspect.
package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/txflag/internal/domain"
)

// Thresholds parameterise the rule set.
type Thresholds struct {
	HighAmount     decimal.Decimal
	SmallAmount    decimal.Decimal
	Window         time.Duration
	MinSmallPrior  int
	NightStartHour int
	NightEndHour   int
	DomesticPrefix string
}

// DefaultThresholds returns the values the generator has always used.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighAmount:     decimal.NewFromInt(10000),
		SmallAmount:    decimal.NewFromInt(500),
		Window:         10 * time.Minute,
		MinSmallPrior:  3,
		NightStartHour: 2,
		NightEndHour:   5,
		DomesticPrefix: domain.DefaultDomesticPrefix,
	}
}

// InNightWindow reports whether hour is within [NightStartHour, NightEndHour).
func (t Thresholds) InNightWindow(hour int) bool {
	return hour >= t.NightStartHour && hour < t.NightEndHour
}

// Rule pairs a predicate with the reason recorded when it fires.
type Rule struct {
	Name   string
	Reason string
	Match  func(tx domain.Transaction, h History) bool
}

// Set is an ordered list of rules evaluated independently.
type Set struct {
	thresholds Thresholds
	rules      []Rule
}

// NewSet builds the standard rule set for the given thresholds.
func NewSet(t Thresholds) *Set {
	return &Set{
		thresholds: t,
		rules: []Rule{
			{
				Name:   "high_amount",
				Reason: domain.ReasonHighAmount,
				Match: func(tx domain.Transaction, _ History) bool {
					return tx.Amount.GreaterThan(t.HighAmount)
				},
			},
			{
				Name:   "frequent_small",
				Reason: domain.ReasonFrequentSmall,
				Match: func(tx domain.Transaction, h History) bool {
					prior := h.CountSmallWithin(tx.SenderID, tx.ReceiverID, tx.Timestamp, t.Window, t.SmallAmount)
					return prior >= t.MinSmallPrior
				},
			},
			{
				Name:   "odd_hours",
				Reason: domain.ReasonOddHours,
				Match: func(tx domain.Transaction, _ History) bool {
					return t.InNightWindow(tx.Timestamp.Hour()) && tx.Amount.GreaterThan(t.HighAmount)
				},
			},
			{
				Name:   "non_domestic_contact",
				Reason: domain.ReasonNonDomesticContact,
				Match: func(tx domain.Transaction, _ History) bool {
					return domain.ClassifyContact(tx.ContactNumber, t.DomesticPrefix) == domain.ContactInternational
				},
			},
		},
	}
}

// Thresholds returns the thresholds the set was built with.
func (s *Set) Thresholds() Thresholds {
	return s.thresholds
}

// Rules returns the rules in evaluation order.
func (s *Set) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Evaluate returns the reasons of every rule matching tx, in rule order.
func (s *Set) Evaluate(tx domain.Transaction, h History) []string {
	if h == nil {
		h = NoHistory
	}
	var reasons []string
	for _, r := range s.rules {
		if r.Match(tx, h) {
			reasons = append(reasons, r.Reason)
		}
	}
	return reasons
}

// Apply flags tx with every matching reason. Existing reasons are kept.
func (s *Set) Apply(tx *domain.Transaction, h History) {
	for _, reason := range s.Evaluate(*tx, h) {
		tx.Flag(reason)
	}
}
