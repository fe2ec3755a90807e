package training

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/txflag/internal/artifacts"
	"github.com/vanshika/txflag/internal/dataset"
	"github.com/vanshika/txflag/internal/domain"
	"github.com/vanshika/txflag/internal/features"
	"github.com/vanshika/txflag/internal/generator"
)

var now = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func generated(t *testing.T) []domain.Transaction {
	t.Helper()
	cfg := generator.DefaultConfig()
	cfg.Now = now
	ds, err := generator.New(cfg).Generate(context.Background())
	require.NoError(t, err)
	return ds.Transactions
}

func newStore(t *testing.T) *artifacts.Store {
	t.Helper()
	store, err := artifacts.Open(filepath.Join(t.TempDir(), "artifacts.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Forest.NumTrees = 20
	return cfg
}

func TestTrainFile_PersistsModelAndScaler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions_dataset.csv")
	require.NoError(t, dataset.WriteFile(path, generated(t)))
	store := newStore(t)

	result, err := NewTrainer(fastConfig(), discardLogger(), store).TrainFile(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.BundleID)
	assert.Positive(t, result.Positive)
	assert.Positive(t, result.Negative)

	latest, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.BundleID, latest.ID)
	assert.Len(t, latest.Forest.Trees, 20)
	assert.Len(t, latest.Scaler.Mean, features.Width)
	assert.Equal(t, features.Names(), latest.FeatureNames)
	assert.Len(t, latest.Importances, features.Width)
	assert.Equal(t, 200, latest.TestRows)
	assert.Greater(t, latest.Report.Accuracy, 0.9)
}

func TestTrainFile_LoadErrorReturnsNoModel(t *testing.T) {
	store := newStore(t)
	result, err := NewTrainer(fastConfig(), discardLogger(), store).
		TrainFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))

	require.Error(t, err)
	assert.Nil(t, result)
	_, err = store.Latest(context.Background())
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestTrain_SingleClass(t *testing.T) {
	txs := generated(t)
	for i := range txs {
		txs[i].Suspicious = false
	}

	result, err := NewTrainer(fastConfig(), discardLogger(), newStore(t)).Train(context.Background(), txs)
	assert.ErrorIs(t, err, ErrSingleClass)
	assert.Nil(t, result)
}

func TestPredictor_MatchesTrainingDerivation(t *testing.T) {
	store := newStore(t)
	result, err := NewTrainer(fastConfig(), discardLogger(), store).Train(context.Background(), generated(t))
	require.NoError(t, err)

	loaded, err := store.Latest(context.Background())
	require.NoError(t, err)
	predictor, err := NewPredictor(loaded)
	require.NoError(t, err)

	large := domain.Transaction{
		SenderID:      "user10",
		ReceiverID:    "user11",
		Type:          domain.TypeNEFT,
		Amount:        decimal.NewFromInt(42000),
		ContactNumber: "+14155552671",
		Timestamp:     time.Date(2024, 6, 14, 3, 10, 0, 0, time.UTC),
	}
	verdict, err := predictor.Predict(large)
	require.NoError(t, err)
	assert.True(t, verdict.Suspicious)
	assert.Greater(t, verdict.Probability, 0.5)

	regular := large
	regular.Amount = decimal.NewFromInt(4200)
	regular.ContactNumber = "9152251477"
	regular.Timestamp = time.Date(2024, 6, 14, 13, 10, 0, 0, time.UTC)
	verdict, err = predictor.Predict(regular)
	require.NoError(t, err)
	assert.False(t, verdict.Suspicious)

	fresh, err := NewPredictor(result.Bundle)
	require.NoError(t, err)
	again, err := fresh.Predict(regular)
	require.NoError(t, err)
	assert.Equal(t, verdict, again)
}

func TestNewPredictor_RejectsUnfitted(t *testing.T) {
	_, err := NewPredictor(&artifacts.Bundle{})
	assert.Error(t, err)
	_, err = NewPredictor(nil)
	assert.Error(t, err)
}
