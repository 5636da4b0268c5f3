package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/diabetes-screener/internal/auth"
	"github.com/bizmatters/diabetes-screener/internal/inference"
	"github.com/bizmatters/diabetes-screener/internal/models"
	"github.com/bizmatters/diabetes-screener/internal/orchestration"
	"github.com/bizmatters/diabetes-screener/internal/screening"
)

const testSecret = "test-secret-key-for-testing-purposes-only"

// FailingClassifier always fails inference
type FailingClassifier struct{}

func (FailingClassifier) Predict(ctx context.Context, x []float64) (int, error) {
	return 0, errors.New("model offline")
}

func (FailingClassifier) PredictProbability(ctx context.Context, x []float64) (float64, error) {
	return 0, errors.New("model offline")
}

type testServer struct {
	router *gin.Engine
	store  *screening.Store
}

func newTestServer(t *testing.T, clf screening.Classifier) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scaler, err := inference.LoadScaler("../../models/scaler.json")
	require.NoError(t, err)
	if clf == nil {
		clf, err = inference.LoadLogisticRegression("../../models/classifier.json")
		require.NoError(t, err)
	}

	jm, err := auth.NewJWTManager(testSecret)
	require.NoError(t, err)

	store := screening.NewStore()
	service := orchestration.NewService(store, screening.NewPipeline(scaler, clf), nil)
	handler := NewHandler(service, jm, 30*time.Minute)
	stream := NewScreeningStream(service)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/sessions", handler.CreateSession)
	api.GET("/fields", handler.ListFields)

	protected := api.Group("")
	protected.Use(auth.RequireSession(jm))
	protected.POST("/sessions/refresh", handler.RefreshSession)
	protected.DELETE("/sessions", handler.EndSession)
	protected.POST("/ask", handler.Ask)
	protected.POST("/input", handler.Input)
	protected.POST("/predict", handler.Predict)
	protected.POST("/restart", handler.Restart)
	protected.GET("/ws/screening", stream.Stream)

	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) openSession(t *testing.T) models.SessionResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

var scenario = []map[string]any{
	{"feature": "pregnancies", "value": 2},
	{"feature": "glucose", "value": "120"},
	{"feature": "blood_pressure", "value": 70},
	{"feature": "skin_thickness", "value": 20},
	{"feature": "insulin", "value": 79},
	{"feature": "bmi", "value": 25.5},
	{"feature": "diabetes_pedigree_function", "value": "0.5"},
	{"feature": "age", "value": 30},
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.openSession(t)

	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(1800), resp.ExpiresIn)
	assert.Equal(t, "Pregnancies (0-17): ", resp.Message)
	assert.Equal(t, "pregnancies", resp.Field)
	assert.Equal(t, 1, s.store.Len())
}

func TestListFields(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/fields", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	fields := decode[[]screening.FieldDefinition](t, w)
	require.Len(t, fields, screening.FieldCount)
	assert.Equal(t, "pregnancies", fields[0].ID)
	assert.Equal(t, "age", fields[7].ID)
	assert.Equal(t, 199.0, fields[1].Max)
}

func TestScreeningFlow(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.openSession(t).Token

	w := s.do(t, http.MethodPost, "/api/input", token, scenario[1])
	require.Equal(t, http.StatusOK, w.Code)
	ans := decode[models.AnswerResponse](t, w)
	assert.Equal(t, "Received glucose = 120. Thank you!", ans.Message)
	assert.Equal(t, 120.0, ans.Value)
	require.NotNil(t, ans.Next)
	assert.Equal(t, "pregnancies", ans.Next.Field)

	w = s.do(t, http.MethodPost, "/api/ask", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	prompt := decode[models.PromptResponse](t, w)
	assert.Equal(t, "Pregnancies (0-17): ", prompt.Message)
	assert.Equal(t, 1, prompt.Answered)
	assert.Equal(t, screening.FieldCount, prompt.Total)

	for _, body := range scenario {
		w := s.do(t, http.MethodPost, "/api/input", token, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/ask", token, nil)
	prompt = decode[models.PromptResponse](t, w)
	assert.True(t, prompt.Ready)
	assert.Equal(t, screening.ReadyMessage, prompt.Message)

	w = s.do(t, http.MethodPost, "/api/predict", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pred := decode[models.PredictionResponse](t, w)
	assert.Equal(t, "Prediction: Negative", pred.Message)
	assert.Equal(t, "Negative", pred.Label)
	assert.Equal(t, 0.15, pred.Probability)

	// session is cleared after a successful prediction
	w = s.do(t, http.MethodPost, "/api/ask", token, nil)
	prompt = decode[models.PromptResponse](t, w)
	assert.False(t, prompt.Ready)
	assert.Equal(t, 0, prompt.Answered)
}

func TestInput_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.openSession(t).Token

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedCode   string
		expectedError  string
	}{
		{
			name:           "out_of_range",
			body:           map[string]any{"feature": "glucose", "value": 300},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   models.ErrCodeValidationFailed,
			expectedError:  "Glucose must be between 0 and 199.",
		},
		{
			name:           "not_a_number",
			body:           map[string]any{"feature": "bmi", "value": "abc"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   models.ErrCodeValidationFailed,
			expectedError:  "BMI must be a number between 0 and 67.",
		},
		{
			name:           "unknown_field",
			body:           map[string]any{"feature": "cholesterol", "value": 5},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   models.ErrCodeUnknownField,
		},
		{
			name:           "missing_feature",
			body:           map[string]any{"value": 5},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeInvalidRequest,
		},
		{
			name:           "object_value",
			body:           map[string]any{"feature": "age", "value": map[string]int{"years": 30}},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/input", token, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			resp := decode[models.ErrorResponse](t, w)
			assert.Equal(t, tt.expectedCode, resp.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, resp.Error)
			}
		})
	}

	// nothing was recorded
	w := s.do(t, http.MethodPost, "/api/ask", token, nil)
	assert.Equal(t, 0, decode[models.PromptResponse](t, w).Answered)
}

func TestPredict_Incomplete(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.openSession(t).Token

	s.do(t, http.MethodPost, "/api/input", token, scenario[0])

	w := s.do(t, http.MethodPost, "/api/predict", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, models.ErrCodeIncompleteInput, resp.Code)
	assert.Equal(t, "7", resp.Details["missing"])

	w = s.do(t, http.MethodPost, "/api/ask", token, nil)
	assert.Equal(t, 1, decode[models.PromptResponse](t, w).Answered)
}

func TestPredict_InferenceFailure(t *testing.T) {
	s := newTestServer(t, FailingClassifier{})
	token := s.openSession(t).Token

	for _, body := range scenario {
		s.do(t, http.MethodPost, "/api/input", token, body)
	}

	w := s.do(t, http.MethodPost, "/api/predict", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, models.ErrCodeInferenceFailed, resp.Code)
	assert.Equal(t, "An unexpected error occurred. Please try again.", resp.Error)
	assert.NotContains(t, w.Body.String(), "model offline")

	w = s.do(t, http.MethodPost, "/api/ask", token, nil)
	assert.True(t, decode[models.PromptResponse](t, w).Ready)
}

func TestRestart(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.openSession(t).Token

	s.do(t, http.MethodPost, "/api/input", token, scenario[0])
	s.do(t, http.MethodPost, "/api/input", token, scenario[1])

	w := s.do(t, http.MethodPost, "/api/restart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RestartMessage, decode[models.MessageResponse](t, w).Message)

	w = s.do(t, http.MethodPost, "/api/ask", token, nil)
	prompt := decode[models.PromptResponse](t, w)
	assert.Equal(t, 0, prompt.Answered)
	assert.Equal(t, "pregnancies", prompt.Field)
}

func TestSessionIsolationAndExpiry(t *testing.T) {
	s := newTestServer(t, nil)
	first := s.openSession(t)
	second := s.openSession(t)

	s.do(t, http.MethodPost, "/api/input", first.Token, scenario[0])

	w := s.do(t, http.MethodPost, "/api/ask", second.Token, nil)
	assert.Equal(t, 0, decode[models.PromptResponse](t, w).Answered)

	s.store.Sweep(-time.Second)

	w = s.do(t, http.MethodPost, "/api/ask", first.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeSessionNotFound, decode[models.ErrorResponse](t, w).Code)
}

func TestRefreshSession(t *testing.T) {
	s := newTestServer(t, nil)
	opened := s.openSession(t)

	s.do(t, http.MethodPost, "/api/input", opened.Token, scenario[0])

	w := s.do(t, http.MethodPost, "/api/sessions/refresh", opened.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refreshed := decode[models.SessionResponse](t, w)
	assert.Equal(t, opened.SessionID, refreshed.SessionID)
	assert.NotEmpty(t, refreshed.Token)
	assert.NotEqual(t, opened.Token, refreshed.Token)
	assert.Equal(t, int64(1800), refreshed.ExpiresIn)
	assert.Equal(t, "glucose", refreshed.Field)

	// the new token reaches the same answers
	w = s.do(t, http.MethodPost, "/api/ask", refreshed.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.PromptResponse](t, w).Answered)

	t.Run("expired_session", func(t *testing.T) {
		s.store.Sweep(-time.Second)
		w := s.do(t, http.MethodPost, "/api/sessions/refresh", refreshed.Token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, models.ErrCodeSessionNotFound, decode[models.ErrorResponse](t, w).Code)
	})

	t.Run("missing_token", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/sessions/refresh", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestEndSession(t *testing.T) {
	s := newTestServer(t, nil)
	first := s.openSession(t)
	second := s.openSession(t)
	require.Equal(t, 2, s.store.Len())

	w := s.do(t, http.MethodDelete, "/api/sessions", first.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, EndMessage, decode[models.MessageResponse](t, w).Message)
	assert.Equal(t, 1, s.store.Len())

	w = s.do(t, http.MethodPost, "/api/ask", first.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/sessions", first.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/ask", second.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/api/ask", "/api/input", "/api/predict", "/api/restart"} {
		t.Run(path, func(t *testing.T) {
			w := s.do(t, http.MethodPost, path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestReceivedMessage(t *testing.T) {
	assert.Equal(t, "Received glucose = 120. Thank you!", ReceivedMessage("glucose", 120))
	assert.Equal(t, "Received bmi = 25.5. Thank you!", ReceivedMessage("bmi", 25.5))
	assert.Equal(t, "Received diabetes_pedigree_function = 0.078. Thank you!", ReceivedMessage("diabetes_pedigree_function", 0.078))
}
