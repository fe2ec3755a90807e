package generator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/txflag/internal/dataset"
	"github.com/vanshika/txflag/internal/domain"
	"github.com/vanshika/txflag/internal/rules"
)

var fixedNow = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Now = fixedNow
	return cfg
}

func generate(t *testing.T, cfg Config) Dataset {
	t.Helper()
	ds, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)
	return ds
}

func TestGenerate_SenderNeverReceiver(t *testing.T) {
	cfg := testConfig()
	cfg.NumUsers = 2
	ds := generate(t, cfg)

	require.Len(t, ds.Transactions, cfg.NumTransactions)
	for _, tx := range ds.Transactions {
		assert.NotEqual(t, tx.SenderID, tx.ReceiverID)
	}
}

func TestGenerate_HighAmountAlwaysSuspicious(t *testing.T) {
	ds := generate(t, testConfig())
	high := DefaultConfig().Thresholds.HighAmount

	seen := 0
	for _, tx := range ds.Transactions {
		if tx.Amount.GreaterThan(high) {
			seen++
			assert.True(t, tx.Suspicious, tx.ID)
			assert.Contains(t, tx.Reasons, domain.ReasonHighAmount, tx.ID)
		}
	}
	assert.NotZero(t, seen)
}

func TestGenerate_ReasonsImplyFlag(t *testing.T) {
	ds := generate(t, testConfig())
	for _, tx := range ds.Transactions {
		assert.Equal(t, len(tx.Reasons) > 0, tx.Suspicious, tx.ID)
	}
}

func TestGenerate_BurstClusterTriggersFrequentSmallRule(t *testing.T) {
	cfg := testConfig()
	ds := generate(t, cfg)

	burst := ds.Transactions[:cfg.BurstSize]
	for i, tx := range burst {
		assert.Equal(t, cfg.BurstSender, tx.SenderID)
		assert.Equal(t, cfg.BurstReceiver, tx.ReceiverID)
		assert.True(t, tx.Amount.LessThan(cfg.Thresholds.SmallAmount))
		assert.True(t, tx.Suspicious)
		assert.Contains(t, tx.Reasons, domain.ReasonFrequentSmall)
		if i > 0 {
			assert.True(t, tx.Timestamp.After(burst[i-1].Timestamp))
			assert.LessOrEqual(t, tx.Timestamp.Sub(burst[0].Timestamp), cfg.Thresholds.Window)
		}
	}

	set := rules.NewSet(cfg.Thresholds)
	window := rules.NewPairWindow(cfg.Thresholds.Window)
	for i, tx := range burst {
		tx.Reasons = nil
		tx.Suspicious = false
		reasons := set.Evaluate(tx, window)
		if i >= 3 {
			assert.Contains(t, reasons, domain.ReasonFrequentSmall, "burst member %d", i)
		} else {
			assert.NotContains(t, reasons, domain.ReasonFrequentSmall, "burst member %d", i)
		}
		window.Record(tx)
	}
}

func TestGenerate_NightCluster(t *testing.T) {
	cfg := testConfig()
	ds := generate(t, cfg)

	start := cfg.SmallBursts * cfg.BurstSize
	for _, tx := range ds.Transactions[start : start+cfg.NightTransactions] {
		assert.True(t, cfg.Thresholds.InNightWindow(tx.Timestamp.Hour()), tx.Timestamp)
		assert.False(t, tx.Timestamp.After(fixedNow))
		assert.Contains(t, tx.Reasons, domain.ReasonOddHours)
	}
}

func TestGenerate_ReproducibleRatioNearTarget(t *testing.T) {
	cfg := testConfig()
	cfg.NumTransactions = 2000
	cfg.TargetSuspiciousRatio = 0.1

	first := generate(t, cfg)
	second := generate(t, cfg)

	assert.Equal(t, first.SuspiciousCount(), second.SuspiciousCount())
	assert.Equal(t, first.Transactions, second.Transactions)
	assert.InDelta(t, 0.1, first.SuspiciousRatio(), 0.02)
}

func TestGenerate_DifferentSeedsDiffer(t *testing.T) {
	cfg := testConfig()
	a := generate(t, cfg)
	cfg.Seed = 7
	b := generate(t, cfg)

	assert.NotEqual(t, a.Transactions[0].ID, b.Transactions[0].ID)
}

func TestGenerate_SmallDatasetKeepsSize(t *testing.T) {
	cfg := testConfig()
	cfg.NumTransactions = 20
	ds := generate(t, cfg)

	assert.Len(t, ds.Transactions, 20)
}

func TestGenerate_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig()).Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteDataset_RoundTrip(t *testing.T) {
	ds := generate(t, testConfig())
	path, err := WriteDataset(ds, filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	loaded, err := dataset.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, len(ds.Transactions))
	assert.Equal(t, ds.SuspiciousCount(), Dataset{Transactions: loaded}.SuspiciousCount())
}
