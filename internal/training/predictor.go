package training

import (
	"github.com/pkg/errors"

	"github.com/vanshika/txflag/internal/artifacts"
	"github.com/vanshika/txflag/internal/domain"
	"github.com/vanshika/txflag/internal/features"
	"github.com/vanshika/txflag/internal/model"
)

// Prediction is the classifier verdict for one transaction.
type Prediction struct {
	Suspicious  bool
	Probability float64
}

// Predictor scores raw transactions with a loaded bundle. It is safe for
// concurrent use; the bundle is never mutated.
type Predictor struct {
	bundle  *artifacts.Bundle
	deriver *features.Deriver
}

// NewPredictor wraps bundle.
func NewPredictor(bundle *artifacts.Bundle) (*Predictor, error) {
	if bundle == nil {
		return nil, errors.New("predictor: nil bundle")
	}
	if len(bundle.Forest.Trees) == 0 {
		return nil, model.ErrNotFitted
	}
	cfg := bundle.Features
	if cfg.SmallAmount.IsZero() {
		cfg = features.DefaultConfig()
	}
	return &Predictor{
		bundle:  bundle,
		deriver: features.NewDeriver(cfg),
	}, nil
}

// Bundle returns the bundle backing the predictor.
func (p *Predictor) Bundle() *artifacts.Bundle {
	return p.bundle
}

// Predict derives features exactly as training did, applies the persisted
// scaler and classifies.
func (p *Predictor) Predict(tx domain.Transaction) (Prediction, error) {
	scaled, err := p.bundle.Scaler.TransformRow(p.deriver.DeriveOne(tx))
	if err != nil {
		return Prediction{}, errors.Wrap(err, "scale features")
	}
	prob, err := p.bundle.Forest.PredictProbaRow(scaled)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "classify")
	}
	return Prediction{
		Suspicious:  model.Decide(prob) == 1,
		Probability: prob,
	}, nil
}
