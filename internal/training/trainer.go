// Package training fits the suspicious-transaction classifier and scores new
// transactions with a persisted bundle.
package training

import (
	"context"
	errs "errors"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/vanshika/txflag/internal/artifacts"
	"github.com/vanshika/txflag/internal/dataset"
	"github.com/vanshika/txflag/internal/domain"
	"github.com/vanshika/txflag/internal/features"
	"github.com/vanshika/txflag/internal/model"
)

// ErrSingleClass is returned when the dataset holds only one label.
var ErrSingleClass = errs.New("training: dataset must contain both suspicious and regular transactions")

// BundleStore persists trained bundles.
type BundleStore interface {
	Save(ctx context.Context, b artifacts.Bundle) (string, error)
}

// Config controls a training run.
type Config struct {
	TestFraction float64
	SplitSeed    int64
	Forest       model.ForestConfig
	Features     features.Config
}

// DefaultConfig returns the standard 80/20 split and forest settings.
func DefaultConfig() Config {
	return Config{
		TestFraction: 0.2,
		SplitSeed:    42,
		Forest:       model.DefaultForestConfig(),
		Features:     features.DefaultConfig(),
	}
}

// Result describes a finished training run.
type Result struct {
	BundleID string
	Bundle   *artifacts.Bundle
	Positive int
	Negative int
	Duration time.Duration
}

// Trainer runs the derive, split, scale, fit, evaluate and persist pipeline.
type Trainer struct {
	cfg     Config
	logger  *slog.Logger
	store   BundleStore
	deriver *features.Deriver
}

// NewTrainer returns a Trainer persisting into store.
func NewTrainer(cfg Config, logger *slog.Logger, store BundleStore) *Trainer {
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = DefaultConfig().TestFraction
	}
	if cfg.Features.SmallAmount.IsZero() {
		cfg.Features = features.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		deriver: features.NewDeriver(cfg.Features),
	}
}

// TrainFile loads the dataset at path and trains on it. Load failures abort the
// run and return no model.
func (t *Trainer) TrainFile(ctx context.Context, path string) (*Result, error) {
	txs, err := dataset.ReadFile(path)
	if err != nil {
		t.logger.Error("failed to load dataset", "path", path, "error", err)
		return nil, errors.Wrap(err, "load dataset")
	}
	t.logger.Info("dataset loaded", "path", path, "rows", len(txs))
	return t.Train(ctx, txs)
}

// Train fits a model on txs and persists the resulting bundle.
func (t *Trainer) Train(ctx context.Context, txs []domain.Transaction) (*Result, error) {
	if t.store == nil {
		return nil, errors.New("training: no artifact store configured")
	}
	start := time.Now()
	labels := features.Labels(txs)
	positive := 0
	for _, y := range labels {
		positive += y
	}
	negative := len(labels) - positive
	t.logger.Info("class distribution",
		"suspicious", positive,
		"regular", negative,
		"suspicious_ratio", ratio(positive, len(labels)),
	)
	if positive == 0 || negative == 0 {
		return nil, ErrSingleClass
	}

	x := t.deriver.Derive(txs)
	split := model.StratifiedSplit(labels, t.cfg.TestFraction, t.cfg.SplitSeed)
	xTrain, yTrain := model.Take(x, split.Train), model.Take(labels, split.Train)
	xTest, yTest := model.Take(x, split.Test), model.Take(labels, split.Test)

	var scaler model.StandardScaler
	xTrainScaled, err := scaler.FitTransform(xTrain)
	if err != nil {
		return nil, errors.Wrap(err, "fit scaler")
	}
	xTestScaled, err := scaler.Transform(xTest)
	if err != nil {
		return nil, errors.Wrap(err, "scale test partition")
	}

	t.logger.Info("training random forest",
		"trees", t.cfg.Forest.NumTrees,
		"max_depth", t.cfg.Forest.MaxDepth,
		"train_rows", len(xTrain),
		"test_rows", len(xTest),
	)
	forest := model.NewRandomForest(t.cfg.Forest)
	if err := forest.Fit(ctx, xTrainScaled, yTrain); err != nil {
		return nil, errors.Wrap(err, "fit forest")
	}

	yPred, err := forest.Predict(xTestScaled)
	if err != nil {
		return nil, errors.Wrap(err, "predict test partition")
	}
	report, err := model.Evaluate(yTest, yPred)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}
	names := features.Names()
	bundle := artifacts.Bundle{
		CreatedAt:    time.Now().UTC(),
		FeatureNames: names,
		Features:     t.cfg.Features,
		Scaler:       scaler,
		Forest:       *forest,
		Report:       report,
		Importances:  model.RankImportances(names, forest.Importances),
		TrainRows:    len(xTrain),
		TestRows:     len(xTest),
	}

	id, err := t.store.Save(ctx, bundle)
	if err != nil {
		return nil, errors.Wrap(err, "persist bundle")
	}
	bundle.ID = id

	t.logger.Info("model trained",
		"bundle_id", id,
		"accuracy", report.Accuracy,
		"precision", report.Classes[1].Precision,
		"recall", report.Classes[1].Recall,
	)
	return &Result{
		BundleID: id,
		Bundle:   &bundle,
		Positive: positive,
		Negative: negative,
		Duration: time.Since(start),
	}, nil
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
