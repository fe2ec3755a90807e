package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vanshika/txflag/internal/domain"
	"github.com/vanshika/txflag/internal/rules"
)

const (
	minRegularAmount    = 1000
	maxSuspiciousAmount = 50000
)

// Dataset contains the generated transactions.
type Dataset struct {
	Transactions []domain.Transaction
}

// SuspiciousCount returns the number of flagged transactions.
func (d Dataset) SuspiciousCount() int {
	n := 0
	for _, tx := range d.Transactions {
		if tx.Suspicious {
			n++
		}
	}
	return n
}

// SuspiciousRatio returns the share of flagged transactions.
func (d Dataset) SuspiciousRatio() float64 {
	if len(d.Transactions) == 0 {
		return 0
	}
	return float64(d.SuspiciousCount()) / float64(len(d.Transactions))
}

// Generator produces labeled synthetic transactions.
type Generator struct {
	cfg   Config
	rand  *rand.Rand
	rules *rules.Set
	users []string
	now   time.Time
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumTransactions <= 0 {
		cfg.NumTransactions = def.NumTransactions
	}
	if cfg.NumUsers < 2 {
		cfg.NumUsers = def.NumUsers
	}
	if cfg.TargetSuspiciousRatio < 0 || cfg.TargetSuspiciousRatio > 1 {
		cfg.TargetSuspiciousRatio = def.TargetSuspiciousRatio
	}
	if cfg.SpanDays <= 0 {
		cfg.SpanDays = def.SpanDays
	}
	if cfg.SmallBursts < 0 {
		cfg.SmallBursts = 0
	}
	if cfg.BurstSize < 0 {
		cfg.BurstSize = 0
	}
	if cfg.NightTransactions < 0 {
		cfg.NightTransactions = 0
	}
	if cfg.BurstSender == "" {
		cfg.BurstSender = def.BurstSender
	}
	if cfg.BurstReceiver == "" || cfg.BurstReceiver == cfg.BurstSender {
		cfg.BurstReceiver = def.BurstReceiver
		if cfg.BurstReceiver == cfg.BurstSender {
			cfg.BurstReceiver = def.BurstSender
		}
	}
	if cfg.Thresholds.HighAmount.IsZero() {
		cfg.Thresholds = def.Thresholds
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	users := make([]string, cfg.NumUsers)
	for i := range users {
		users[i] = fmt.Sprintf("user%d", i+1)
	}

	return &Generator{
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(cfg.Seed)),
		rules: rules.NewSet(cfg.Thresholds),
		users: users,
		now:   now.Truncate(time.Second),
	}
}

// Generate synthesises the labeled dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	total := g.cfg.NumTransactions
	out := make([]domain.Transaction, 0, total)
	window := rules.NewPairWindow(g.cfg.Thresholds.Window)
	suspicious := 0

	emit := func(tx domain.Transaction) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.rules.Apply(&tx, window)
		window.Record(tx)
		if tx.Suspicious {
			suspicious++
		}
		out = append(out, tx)
		return nil
	}

	for _, tx := range g.smallBursts(total) {
		if err := emit(tx); err != nil {
			return Dataset{}, err
		}
	}

	nightCount := min(g.cfg.NightTransactions, total-len(out))
	for i := 0; i < nightCount; i++ {
		if err := emit(g.nightTransaction()); err != nil {
			return Dataset{}, err
		}
	}

	remaining := total - len(out)
	target := int(math.Round(g.cfg.TargetSuspiciousRatio * float64(total)))
	inject := max(0, min(target-suspicious, remaining))
	for i := 0; i < remaining; i++ {
		var tx domain.Transaction
		if injectAt(i, inject, remaining) {
			tx = g.suspiciousTransaction()
		} else {
			tx = g.regularTransaction()
		}
		if err := emit(tx); err != nil {
			return Dataset{}, err
		}
	}

	return Dataset{Transactions: out}, nil
}

// injectAt spreads n injections evenly over total slots.
func injectAt(i, n, total int) bool {
	if n <= 0 || total <= 0 {
		return false
	}
	return (i+1)*n/total > i*n/total
}

// smallBursts builds the repeated small transfers between the burst pair.
// Bursts are laid out chronologically so the pair window sees them in order.
func (g *Generator) smallBursts(limit int) []domain.Transaction {
	count := min(g.cfg.SmallBursts*g.cfg.BurstSize, limit)
	if count <= 0 {
		return nil
	}
	span := g.span()
	slot := span / time.Duration(g.cfg.SmallBursts)
	burstLen := time.Duration(g.cfg.BurstSize) * time.Minute

	small := g.cfg.Thresholds.SmallAmount.IntPart()
	if small < 2 {
		small = 2
	}

	out := make([]domain.Transaction, 0, count)
	for b := 0; b < g.cfg.SmallBursts && len(out) < count; b++ {
		base := g.now.Add(-span).Add(time.Duration(b) * slot)
		if jitter := int64((slot - burstLen) / time.Second); jitter > 0 {
			base = base.Add(time.Duration(g.rand.Int63n(jitter)) * time.Second)
		}
		for i := 0; i < g.cfg.BurstSize && len(out) < count; i++ {
			ts := base.Add(time.Duration(i) * time.Minute).Add(time.Duration(g.rand.Intn(60)) * time.Second)
			tx := g.baseTransaction(g.cfg.BurstSender, g.cfg.BurstReceiver, ts)
			tx.Amount = decimal.NewFromInt(1 + g.rand.Int63n(small-1))
			tx.ContactNumber = g.pick(domesticContacts)
			tx.Flag(domain.ReasonFrequentSmall)
			out = append(out, tx)
		}
	}
	return out
}

func (g *Generator) nightTransaction() domain.Transaction {
	th := g.cfg.Thresholds
	hours := max(1, th.NightEndHour-th.NightStartHour)
	day := time.Date(g.now.Year(), g.now.Month(), g.now.Day(), 0, 0, 0, 0, g.now.Location())
	ts := day.Add(time.Duration(th.NightStartHour+g.rand.Intn(hours))*time.Hour +
		time.Duration(g.rand.Intn(60))*time.Minute)
	if ts.After(g.now) {
		ts = ts.AddDate(0, 0, -1)
	}
	sender, receiver := g.pair()
	tx := g.baseTransaction(sender, receiver, ts)
	tx.Amount = g.highAmount()
	tx.ContactNumber = g.pick(allContacts)
	return tx
}

func (g *Generator) suspiciousTransaction() domain.Transaction {
	sender, receiver := g.pair()
	tx := g.baseTransaction(sender, receiver, g.randomTimestamp())
	tx.Amount = g.highAmount()
	tx.ContactNumber = g.pick(allContacts)
	return tx
}

func (g *Generator) regularTransaction() domain.Transaction {
	sender, receiver := g.pair()
	tx := g.baseTransaction(sender, receiver, g.randomTimestamp())
	high := g.cfg.Thresholds.HighAmount.IntPart()
	lo := int64(minRegularAmount)
	if lo > high {
		lo = 1
	}
	tx.Amount = decimal.NewFromInt(lo + g.rand.Int63n(high-lo+1))
	tx.ContactNumber = g.pick(domesticContacts)
	return tx
}

func (g *Generator) baseTransaction(sender, receiver string, ts time.Time) domain.Transaction {
	txType := domain.TransactionTypes[g.rand.Intn(len(domain.TransactionTypes))]
	tx := domain.Transaction{
		ID:            g.newID(),
		SenderID:      sender,
		ReceiverID:    receiver,
		Type:          txType,
		PaymentMethod: paymentMethods[txType],
		CardNumber:    domain.Placeholder,
		ExpiryDate:    domain.Placeholder,
		CVV:           domain.Placeholder,
		AccountNumber: domain.Placeholder,
		IFSCCode:      domain.Placeholder,
		Timestamp:     ts,
	}
	switch txType {
	case domain.TypeCard:
		tx.CardNumber = "1234567890123456"
		tx.ExpiryDate = "02/29"
		tx.CVV = "111"
	case domain.TypeNEFT:
		tx.AccountNumber = "9876543210"
		tx.IFSCCode = "SBIN1234567"
	}
	return tx
}

func (g *Generator) highAmount() decimal.Decimal {
	high := g.cfg.Thresholds.HighAmount.IntPart()
	top := max(int64(maxSuspiciousAmount), high+1)
	return decimal.NewFromInt(high + 1 + g.rand.Int63n(top-high))
}

func (g *Generator) pair() (string, string) {
	senderIdx := g.rand.Intn(len(g.users))
	receiverIdx := g.rand.Intn(len(g.users))
	if senderIdx == receiverIdx {
		receiverIdx = (receiverIdx + 1) % len(g.users)
	}
	return g.users[senderIdx], g.users[receiverIdx]
}

func (g *Generator) span() time.Duration {
	return time.Duration(g.cfg.SpanDays) * 24 * time.Hour
}

func (g *Generator) randomTimestamp() time.Time {
	return g.now.Add(-time.Duration(g.rand.Int63n(int64(g.span()/time.Second))) * time.Second)
}

func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *Generator) pick(options []string) string {
	return options[g.rand.Intn(len(options))]
}

var (
	paymentMethods = map[domain.TransactionType]string{
		domain.TypeNEFT:    "NEFT Transfer",
		domain.TypeCard:    "Card Payment",
		domain.TypeContact: "Contact Payment",
	}
	domesticContacts = []string{"9152251477", "1234567890", "+919820012345"}
	allContacts      = []string{"+14155552671", "+441632960961", "9152251477", "1234567890"}
)
