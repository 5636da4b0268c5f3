package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/diabetes-screener/internal/metrics"
	"github.com/bizmatters/diabetes-screener/internal/screening"
)

type identityScaler struct{}

func (identityScaler) Transform(x []float64) ([]float64, error) { return x, nil }

// MockClassifier returns canned predictions
type MockClassifier struct {
	label int
	prob  float64
	err   error
}

func (m *MockClassifier) Predict(ctx context.Context, x []float64) (int, error) {
	return m.label, m.err
}

func (m *MockClassifier) PredictProbability(ctx context.Context, x []float64) (float64, error) {
	return m.prob, m.err
}

var sampleRaw = []struct{ field, raw string }{
	{"pregnancies", "2"},
	{"glucose", "120"},
	{"blood_pressure", "70"},
	{"skin_thickness", "20"},
	{"insulin", "79"},
	{"bmi", "25.5"},
	{"diabetes_pedigree_function", "0.5"},
	{"age", "30"},
}

func newTestService(t *testing.T, clf *MockClassifier) *Service {
	t.Helper()
	m, err := metrics.NewScreeningMetrics()
	require.NoError(t, err)
	return NewService(screening.NewStore(), screening.NewPipeline(identityScaler{}, clf), m)
}

func TestService_FullSession(t *testing.T) {
	svc := newTestService(t, &MockClassifier{label: 1, prob: 0.8765})
	ctx := context.Background()

	id, first := svc.CreateSession(ctx)
	assert.Equal(t, "pregnancies", first.Prompt.Field.ID)

	for i, a := range sampleRaw {
		ans, err := svc.SubmitAnswer(ctx, id, a.field, a.raw)
		require.NoError(t, err)
		assert.Equal(t, a.field, ans.Field)
		assert.Equal(t, i+1, ans.Next.Answered)
	}

	state, err := svc.NextPrompt(ctx, id)
	require.NoError(t, err)
	assert.True(t, state.Prompt.Ready)

	res, err := svc.RequestPrediction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, screening.LabelPositive, res.Label)
	assert.Equal(t, 0.88, res.Rounded())

	state, err = svc.NextPrompt(ctx, id)
	require.NoError(t, err)
	assert.False(t, state.Prompt.Ready)
	assert.Equal(t, 0, state.Answered)
}

func TestService_SubmitAnswer_Rejections(t *testing.T) {
	svc := newTestService(t, &MockClassifier{})
	ctx := context.Background()
	id, _ := svc.CreateSession(ctx)

	_, err := svc.SubmitAnswer(ctx, id, "glucose", "300")
	assert.ErrorIs(t, err, screening.ErrOutOfRange)

	_, err = svc.SubmitAnswer(ctx, id, "glucose", "high")
	assert.ErrorIs(t, err, screening.ErrNotANumber)

	_, err = svc.SubmitAnswer(ctx, id, "cholesterol", "5")
	assert.ErrorIs(t, err, screening.ErrUnknownField)

	state, err := svc.NextPrompt(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Answered)
}

func TestService_PredictionFailuresKeepAnswers(t *testing.T) {
	clf := &MockClassifier{err: errors.New("onnx session crashed")}
	svc := newTestService(t, clf)
	ctx := context.Background()
	id, _ := svc.CreateSession(ctx)

	_, err := svc.SubmitAnswer(ctx, id, "glucose", "120")
	require.NoError(t, err)

	_, err = svc.RequestPrediction(ctx, id)
	var incomplete *screening.IncompleteInputError
	require.True(t, errors.As(err, &incomplete))
	assert.Len(t, incomplete.Missing, 7)

	for _, a := range sampleRaw {
		_, err := svc.SubmitAnswer(ctx, id, a.field, a.raw)
		require.NoError(t, err)
	}

	_, err = svc.RequestPrediction(ctx, id)
	assert.ErrorIs(t, err, screening.ErrInference)

	state, err := svc.NextPrompt(ctx, id)
	require.NoError(t, err)
	assert.True(t, state.Prompt.Ready)

	// retry succeeds without re-entering answers
	clf.err = nil
	clf.prob = 0.2
	res, err := svc.RequestPrediction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, screening.LabelNegative, res.Label)
}

func TestService_Restart(t *testing.T) {
	svc := newTestService(t, &MockClassifier{})
	ctx := context.Background()
	id, _ := svc.CreateSession(ctx)

	_, err := svc.SubmitAnswer(ctx, id, "pregnancies", "1")
	require.NoError(t, err)

	require.NoError(t, svc.Restart(ctx, id))
	require.NoError(t, svc.Restart(ctx, id))

	state, err := svc.NextPrompt(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Answered)
	assert.Equal(t, "pregnancies", state.Prompt.Field.ID)
}

func TestService_UnknownSession(t *testing.T) {
	svc := newTestService(t, &MockClassifier{})
	ctx := context.Background()
	id := uuid.New()

	_, err := svc.NextPrompt(ctx, id)
	assert.ErrorIs(t, err, screening.ErrSessionNotFound)

	_, err = svc.SubmitAnswer(ctx, id, "glucose", "120")
	assert.ErrorIs(t, err, screening.ErrSessionNotFound)

	_, err = svc.RequestPrediction(ctx, id)
	assert.ErrorIs(t, err, screening.ErrSessionNotFound)

	assert.ErrorIs(t, svc.Restart(ctx, id), screening.ErrSessionNotFound)
}

func TestService_SweepIdle(t *testing.T) {
	svc := NewService(screening.NewStore(), screening.NewPipeline(identityScaler{}, &MockClassifier{}), nil)
	ctx := context.Background()

	id, _ := svc.CreateSession(ctx)
	assert.Equal(t, 0, svc.SweepIdle(ctx, time.Hour))

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, svc.SweepIdle(ctx, time.Millisecond))

	_, err := svc.NextPrompt(ctx, id)
	assert.ErrorIs(t, err, screening.ErrSessionNotFound)
}

func TestService_EndSession(t *testing.T) {
	svc := newTestService(t, &MockClassifier{})
	ctx := context.Background()
	id, _ := svc.CreateSession(ctx)

	require.NoError(t, svc.EndSession(ctx, id))
	assert.ErrorIs(t, svc.EndSession(ctx, id), screening.ErrSessionNotFound)

	_, err := svc.NextPrompt(ctx, id)
	assert.ErrorIs(t, err, screening.ErrSessionNotFound)
}

func TestService_LogLinesAreJSON(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})

	svc := newTestService(t, &MockClassifier{err: errors.New("upstream said \"bad input\"\n\tat line 3")})
	ctx := context.Background()
	id, _ := svc.CreateSession(ctx)

	_, err := svc.SubmitAnswer(ctx, id, `glu"cose`, "120")
	require.Error(t, err)
	for _, a := range sampleRaw {
		_, err := svc.SubmitAnswer(ctx, id, a.field, a.raw)
		require.NoError(t, err)
	}
	_, err = svc.RequestPrediction(ctx, id)
	require.ErrorIs(t, err, screening.ErrInference)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]any
		assert.NoError(t, json.Unmarshal([]byte(line), &entry), line)
	}
	assert.Contains(t, buf.String(), `bad input`)
}
