package screening

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FeatureVector holds one subject's measurements in canonical field order.
type FeatureVector [FieldCount]float64

// Scaler applies the normalization the classifier was trained with.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
}

// Classifier maps a scaled vector to a binary label and the probability of label 1.
type Classifier interface {
	Predict(ctx context.Context, x []float64) (int, error)
	PredictProbability(ctx context.Context, x []float64) (float64, error)
}

// Label is the reported outcome of a prediction
type Label string

const (
	LabelPositive Label = "Positive"
	LabelNegative Label = "Negative"
)

// Result is the outcome of a successful prediction. Probability keeps full
// precision; Rounded gives the reported two-decimal value.
type Result struct {
	Label       Label   `json:"label"`
	Probability float64 `json:"probability"`
}

// Rounded returns the probability rounded to two decimal places, ties to even.
func (r Result) Rounded() float64 {
	return math.RoundToEven(r.Probability*100) / 100
}

// Pipeline turns a complete session into a prediction.
// The scaler and classifier are loaded once and shared read-only.
type Pipeline struct {
	scaler     Scaler
	classifier Classifier
	tracer     trace.Tracer
}

// NewPipeline creates a prediction pipeline over the given artifacts
func NewPipeline(scaler Scaler, classifier Classifier) *Pipeline {
	return &Pipeline{
		scaler:     scaler,
		classifier: classifier,
		tracer:     otel.Tracer("screening-pipeline"),
	}
}

// BuildVector reads the session in canonical order. It never fills defaults:
// an incomplete session yields IncompleteInputError.
func BuildVector(s *Session) (FeatureVector, error) {
	var v FeatureVector
	if missing := s.Missing(); len(missing) > 0 {
		return v, &IncompleteInputError{Missing: missing}
	}
	for i, f := range fields {
		v[i] = s.values[f.ID]
	}
	return v, nil
}

// Predict scores a complete session and clears it on success. On any
// failure the session is left untouched so the caller can retry or keep answering.
func (p *Pipeline) Predict(ctx context.Context, s *Session) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "screening.predict")
	defer span.End()

	vec, err := BuildVector(s)
	if err != nil {
		span.SetAttributes(attribute.Int("screening.missing", FieldCount-s.Len()))
		return Result{}, err
	}

	res, err := p.infer(ctx, vec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference failed")
		return Result{}, err
	}

	span.SetAttributes(
		attribute.String("screening.label", string(res.Label)),
		attribute.Float64("screening.probability", res.Rounded()),
	)

	s.Reset()
	return res, nil
}

func (p *Pipeline) infer(ctx context.Context, vec FeatureVector) (res Result, err error) {
	stage := "scale"
	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Stage: stage, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	scaled, err := p.scaler.Transform(vec[:])
	if err != nil {
		return Result{}, &InferenceError{Stage: stage, Cause: err}
	}
	if len(scaled) != FieldCount {
		return Result{}, &InferenceError{Stage: stage, Cause: fmt.Errorf("scaler returned %d values, want %d", len(scaled), FieldCount)}
	}

	stage = "predict"
	label, err := p.classifier.Predict(ctx, scaled)
	if err != nil {
		return Result{}, &InferenceError{Stage: stage, Cause: err}
	}

	stage = "predict_probability"
	prob, err := p.classifier.PredictProbability(ctx, scaled)
	if err != nil {
		return Result{}, &InferenceError{Stage: stage, Cause: err}
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return Result{}, &InferenceError{Stage: stage, Cause: fmt.Errorf("probability %v outside [0,1]", prob)}
	}

	switch label {
	case 1:
		return Result{Label: LabelPositive, Probability: prob}, nil
	case 0:
		return Result{Label: LabelNegative, Probability: prob}, nil
	default:
		return Result{}, &InferenceError{Stage: "predict", Cause: fmt.Errorf("unexpected label %d", label)}
	}
}
