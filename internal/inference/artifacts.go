package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/bizmatters/diabetes-screener/internal/screening"
)

// Artifact kinds stored in files and in the registry.
const (
	KindScaler     = "scaler"
	KindClassifier = "classifier"
)

// StandardScaler is a fitted per-feature standardization: (x - mean) / scale.
type StandardScaler struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// LogisticRegression is a fitted binary logistic model.
type LogisticRegression struct {
	FeatureNames []string  `json:"feature_names"`
	Coef         []float64 `json:"coef"`
	Intercept    float64   `json:"intercept"`
	Threshold    float64   `json:"threshold,omitempty"`
}

// ParseScaler decodes and checks a StandardScaler artifact.
func ParseScaler(data []byte) (*StandardScaler, error) {
	var s StandardScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode scaler: %w", err)
	}
	if err := checkColumns(s.FeatureNames); err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}
	if len(s.Mean) != screening.FieldCount || len(s.Scale) != screening.FieldCount {
		return nil, fmt.Errorf("scaler: expected %d means and scales, got %d and %d",
			screening.FieldCount, len(s.Mean), len(s.Scale))
	}
	return &s, nil
}

// ParseLogisticRegression decodes and checks a LogisticRegression artifact.
func ParseLogisticRegression(data []byte) (*LogisticRegression, error) {
	var m LogisticRegression
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode classifier: %w", err)
	}
	if err := checkColumns(m.FeatureNames); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if len(m.Coef) != screening.FieldCount {
		return nil, fmt.Errorf("classifier: expected %d coefficients, got %d", screening.FieldCount, len(m.Coef))
	}
	if m.Threshold == 0 {
		m.Threshold = 0.5
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return nil, fmt.Errorf("classifier: threshold %v outside (0,1)", m.Threshold)
	}
	return &m, nil
}

// LoadScaler reads a StandardScaler artifact from disk.
func LoadScaler(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scaler: %w", err)
	}
	return ParseScaler(data)
}

// LoadLogisticRegression reads a LogisticRegression artifact from disk.
func LoadLogisticRegression(path string) (*LogisticRegression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier: %w", err)
	}
	return ParseLogisticRegression(data)
}

// Transform standardizes x. A zero scale leaves the centered value as is,
// matching how scikit-learn treats constant features.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

// PredictProbability returns sigmoid(coef·x + intercept).
func (m *LogisticRegression) PredictProbability(_ context.Context, x []float64) (float64, error) {
	if len(x) != len(m.Coef) {
		return 0, fmt.Errorf("classifier expects %d features, got %d", len(m.Coef), len(x))
	}
	z := m.Intercept
	for i, v := range x {
		z += m.Coef[i] * v
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// Predict returns 1 when the probability exceeds the threshold.
func (m *LogisticRegression) Predict(ctx context.Context, x []float64) (int, error) {
	p, err := m.PredictProbability(ctx, x)
	if err != nil {
		return 0, err
	}
	if p > m.Threshold {
		return 1, nil
	}
	return 0, nil
}

// checkColumns enforces the training column order. An artifact without
// feature names is accepted as-is.
func checkColumns(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if want := screening.Columns(); !slices.Equal(names, want) {
		return fmt.Errorf("feature order %v does not match %v", names, want)
	}
	return nil
}
