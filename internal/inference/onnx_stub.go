//go:build !cgo

package inference

import (
	"context"
	"errors"
)

// ErrONNXUnavailable is returned by the onnx backend in binaries built with CGO_ENABLED=0.
var ErrONNXUnavailable = errors.New("onnx: backend not available in this build (requires cgo and the onnxruntime shared library)")

// ONNXClassifier is unavailable without cgo.
type ONNXClassifier struct{}

// NewONNXClassifier always fails without cgo.
func NewONNXClassifier(modelPath, libPath string) (*ONNXClassifier, error) {
	return nil, ErrONNXUnavailable
}

func (c *ONNXClassifier) Predict(_ context.Context, _ []float64) (int, error) {
	return 0, ErrONNXUnavailable
}

func (c *ONNXClassifier) PredictProbability(_ context.Context, _ []float64) (float64, error) {
	return 0, ErrONNXUnavailable
}

func (c *ONNXClassifier) Close() error { return nil }
