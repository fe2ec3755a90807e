package server

import (
	"context"
	"errors"

	"github.com/vanshika/txflag/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// HealthChecks runs every probe and joins their failures.
type HealthChecks []HealthService

// Probe implements the HealthService interface.
func (hc HealthChecks) Probe(ctx context.Context) error {
	var errs []error
	for _, check := range hc {
		if check == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ModelHealthService reports whether a trained model is loaded.
type ModelHealthService struct {
	Predictor Predictor
}

// Probe implements the HealthService interface.
func (s ModelHealthService) Probe(context.Context) error {
	if s.Predictor == nil {
		return errors.New("no trained model loaded")
	}
	return nil
}

// GraphHealthService verifies graph connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}
