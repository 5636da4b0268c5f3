package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// RemoteClassifier calls a model-serving endpoint that mirrors the
// scikit-learn predict / predict_proba API.
type RemoteClassifier struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// InstancesRequest is the request body for both inference endpoints
type InstancesRequest struct {
	Instances [][]float64 `json:"instances"`
}

// PredictResponse is returned by /v1/predict
type PredictResponse struct {
	Predictions []int `json:"predictions"`
}

// PredictProbaResponse is returned by /v1/predict_proba, one [P(0), P(1)] row per instance
type PredictProbaResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// NewRemoteClassifier creates a client for the model server at baseURL
func NewRemoteClassifier(baseURL string) *RemoteClassifier {
	settings := gobreaker.Settings{
		Name:        "inference-server",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf(`{"level":"warn","message":"Circuit breaker state changed","breaker":"%s","from":"%s","to":"%s"}`, name, from, to)
		},
	}

	return &RemoteClassifier{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tracer:  otel.Tracer("inference-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Predict returns the remote model's label for x.
func (c *RemoteClassifier) Predict(ctx context.Context, x []float64) (int, error) {
	ctx, span := c.tracer.Start(ctx, "inference.predict")
	defer span.End()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var resp PredictResponse
		if err := c.post(ctx, "/v1/predict", x, &resp); err != nil {
			return nil, err
		}
		if len(resp.Predictions) != 1 {
			return nil, fmt.Errorf("expected 1 prediction, got %d", len(resp.Predictions))
		}
		return resp.Predictions[0], nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to call inference server: %w", err)
	}

	label := result.(int)
	span.SetAttributes(attribute.Int("inference.label", label))
	return label, nil
}

// PredictProbability returns the remote model's probability of label 1 for x.
func (c *RemoteClassifier) PredictProbability(ctx context.Context, x []float64) (float64, error) {
	ctx, span := c.tracer.Start(ctx, "inference.predict_proba")
	defer span.End()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var resp PredictProbaResponse
		if err := c.post(ctx, "/v1/predict_proba", x, &resp); err != nil {
			return nil, err
		}
		if len(resp.Probabilities) != 1 || len(resp.Probabilities[0]) != 2 {
			return nil, fmt.Errorf("expected one [P(0), P(1)] row, got %v", resp.Probabilities)
		}
		return resp.Probabilities[0][1], nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to call inference server: %w", err)
	}

	return result.(float64), nil
}

// post performs the actual HTTP request
func (c *RemoteClassifier) post(ctx context.Context, path string, x []float64, out interface{}) error {
	jsonData, err := json.Marshal(InstancesRequest{Instances: [][]float64{x}})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Inject trace context
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("inference server returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsHealthy checks if the inference server is reachable
func (c *RemoteClassifier) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "inference.health_check")
	defer span.End()

	// Use circuit breaker state as a quick health indicator
	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		span.RecordError(err)
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	span.SetAttributes(attribute.Bool("healthy", healthy))
	return healthy
}
