package rules

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/txflag/internal/domain"
)

// History answers questions about transactions seen before the one being labeled.
type History interface {
	// CountSmallWithin counts prior sender->receiver transactions below limit whose
	// timestamp lies in [at-window, at].
	CountSmallWithin(sender, receiver string, at time.Time, window time.Duration, limit decimal.Decimal) int
}

type pairKey struct {
	sender   string
	receiver string
}

type windowEntry struct {
	amount decimal.Decimal
	ts     time.Time
}

// PairWindow indexes transactions per sender/receiver pair, ordered by timestamp.
// Recording never drops history, so the answer to CountSmallWithin does not
// depend on the order records arrive in. Advance releases entries older than the
// retention behind a low-watermark that only moves forward.
type PairWindow struct {
	retention time.Duration
	watermark time.Time
	pairs     map[pairKey][]windowEntry
}

// NewPairWindow returns an empty index keeping entries for retention behind the
// watermark passed to Advance.
func NewPairWindow(retention time.Duration) *PairWindow {
	return &PairWindow{
		retention: retention,
		pairs:     make(map[pairKey][]windowEntry),
	}
}

// Record adds tx to the index, keeping the pair's entries sorted by timestamp.
// Records older than the current cutoff are ignored.
func (w *PairWindow) Record(tx domain.Transaction) {
	if tx.Timestamp.Before(w.cutoff()) {
		return
	}
	key := pairKey{sender: tx.SenderID, receiver: tx.ReceiverID}
	entries := w.pairs[key]
	pos := sort.Search(len(entries), func(i int) bool {
		return entries[i].ts.After(tx.Timestamp)
	})
	entries = append(entries, windowEntry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = windowEntry{amount: tx.Amount, ts: tx.Timestamp}
	w.pairs[key] = entries
}

// Advance moves the low-watermark to at and drops entries older than
// at-retention. A watermark earlier than the current one is a no-op.
func (w *PairWindow) Advance(at time.Time) {
	if !at.After(w.watermark) {
		return
	}
	w.watermark = at
	cutoff := w.cutoff()
	for key, entries := range w.pairs {
		drop := sort.Search(len(entries), func(i int) bool {
			return !entries[i].ts.Before(cutoff)
		})
		switch {
		case drop == len(entries):
			delete(w.pairs, key)
		case drop > 0:
			w.pairs[key] = append(entries[:0:0], entries[drop:]...)
		}
	}
}

func (w *PairWindow) cutoff() time.Time {
	if w.watermark.IsZero() {
		return time.Time{}
	}
	return w.watermark.Add(-w.retention)
}

// CountSmallWithin implements History.
func (w *PairWindow) CountSmallWithin(sender, receiver string, at time.Time, window time.Duration, limit decimal.Decimal) int {
	entries := w.pairs[pairKey{sender: sender, receiver: receiver}]
	from := at.Add(-window)
	start := sort.Search(len(entries), func(i int) bool {
		return !entries[i].ts.Before(from)
	})
	count := 0
	for _, e := range entries[start:] {
		if e.ts.After(at) {
			break
		}
		if e.amount.LessThan(limit) {
			count++
		}
	}
	return count
}

// Len returns the number of retained entries across all pairs.
func (w *PairWindow) Len() int {
	n := 0
	for _, entries := range w.pairs {
		n += len(entries)
	}
	return n
}

type emptyHistory struct{}

func (emptyHistory) CountSmallWithin(string, string, time.Time, time.Duration, decimal.Decimal) int {
	return 0
}

// NoHistory is a History with no prior transactions.
var NoHistory History = emptyHistory{}
