package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrNotFitted is returned when a model component is used before Fit.
var ErrNotFitted = errors.New("model: not fitted")

// StandardScaler centers each column on its mean and scales it to unit variance.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// Fit learns per-column mean and population standard deviation from x.
func (s *StandardScaler) Fit(x [][]float64) error {
	if len(x) == 0 {
		return errors.New("scaler: empty input")
	}
	width := len(x[0])
	s.Mean = make([]float64, width)
	s.Scale = make([]float64, width)

	column := make([]float64, len(x))
	n := float64(len(x))
	for j := 0; j < width; j++ {
		for i, row := range x {
			if len(row) != width {
				return fmt.Errorf("scaler: row %d has %d columns, want %d", i, len(row), width)
			}
			column[i] = row[j]
		}
		mean, variance := stat.MeanVariance(column, nil)
		if len(x) > 1 {
			// population variance
			variance = variance * (n - 1) / n
		} else {
			variance = 0
		}
		std := math.Sqrt(variance)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

// Transform returns a scaled copy of x.
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

// TransformRow returns a scaled copy of a single row.
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if len(s.Mean) == 0 {
		return nil, ErrNotFitted
	}
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: got %d columns, want %d", len(row), len(s.Mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// FitTransform fits the scaler on x and returns x scaled.
func (s *StandardScaler) FitTransform(x [][]float64) ([][]float64, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}
