package gateway

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/diabetes-screener/internal/auth"
	"github.com/bizmatters/diabetes-screener/internal/models"
	"github.com/bizmatters/diabetes-screener/internal/orchestration"
	"github.com/bizmatters/diabetes-screener/internal/screening"
)

// RestartMessage confirms a cleared session
const RestartMessage = "Session restarted. You can start entering data."

// EndMessage confirms a discarded session
const EndMessage = "Session ended."

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	service    *orchestration.Service
	jwtManager *auth.JWTManager
	sessionTTL time.Duration
}

// NewHandler creates a new gateway handler
func NewHandler(service *orchestration.Service, jwtManager *auth.JWTManager, sessionTTL time.Duration) *Handler {
	return &Handler{
		service:    service,
		jwtManager: jwtManager,
		sessionTTL: sessionTTL,
	}
}

// CreateSession godoc
// @Summary Open a screening session
// @Description Create an empty session and return its token and first prompt
// @Tags sessions
// @Produce json
// @Success 201 {object} models.SessionResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()
	id, state := h.service.CreateSession(ctx)

	token, err := h.jwtManager.GenerateToken(ctx, id, h.sessionTTL)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to issue session token","session_id":"%s","error":%q}`, id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create session", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusCreated, models.SessionResponse{
		SessionID: id.String(),
		Token:     token,
		ExpiresIn: int64(h.sessionTTL.Seconds()),
		Message:   state.Prompt.Text(),
		Field:     state.Prompt.Field.ID,
	})
}

// RefreshSession godoc
// @Summary Extend a session token
// @Description Issue a fresh token for a live session. Call before the current token expires.
// @Tags sessions
// @Produce json
// @Success 200 {object} models.SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/refresh [post]
func (h *Handler) RefreshSession(c *gin.Context) {
	id, ok := auth.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Session not authenticated", Code: models.ErrCodeUnauthorized})
		return
	}

	ctx := c.Request.Context()

	// a token for a swept session is not renewed
	state, err := h.service.NextPrompt(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.jwtManager.RefreshToken(ctx, auth.ExtractToken(c), h.sessionTTL)
	if err != nil {
		log.Printf(`{"level":"warn","message":"Failed to refresh session token","session_id":"%s","error":%q}`, id, err)
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired session token", Code: models.ErrCodeUnauthorized})
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{
		SessionID: id.String(),
		Token:     token,
		ExpiresIn: int64(h.sessionTTL.Seconds()),
		Message:   state.Prompt.Text(),
		Field:     state.Prompt.Field.ID,
	})
}

// EndSession godoc
// @Summary End a session
// @Description Discard the session and every recorded measurement. The token stops working.
// @Tags sessions
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions [delete]
func (h *Handler) EndSession(c *gin.Context) {
	id, ok := auth.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Session not authenticated", Code: models.ErrCodeUnauthorized})
		return
	}

	if err := h.service.EndSession(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: EndMessage})
}

// ListFields godoc
// @Summary List measurements
// @Description Return the eight measurements in question order with their valid ranges
// @Tags sessions
// @Produce json
// @Success 200 {array} screening.FieldDefinition
// @Router /fields [get]
func (h *Handler) ListFields(c *gin.Context) {
	c.JSON(http.StatusOK, screening.Fields())
}

// Ask godoc
// @Summary Next prompt
// @Description Return the first unanswered measurement, or the ready message
// @Tags screening
// @Produce json
// @Success 200 {object} models.PromptResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ask [post]
func (h *Handler) Ask(c *gin.Context) {
	id, ok := auth.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Session not authenticated", Code: models.ErrCodeUnauthorized})
		return
	}

	state, err := h.service.NextPrompt(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, promptResponse(state))
}

// Input godoc
// @Summary Submit a measurement
// @Description Validate and record one measurement. Rejected values leave the session unchanged.
// @Tags screening
// @Accept json
// @Produce json
// @Param request body models.AnswerRequest true "Measurement"
// @Success 200 {object} models.AnswerResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /input [post]
func (h *Handler) Input(c *gin.Context) {
	id, ok := auth.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Session not authenticated", Code: models.ErrCodeUnauthorized})
		return
	}

	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	ans, err := h.service.SubmitAnswer(c.Request.Context(), id, req.Feature, string(req.Value))
	if err != nil {
		writeError(c, err)
		return
	}

	next := promptResponse(ans.Next)
	c.JSON(http.StatusOK, models.AnswerResponse{
		Message: ReceivedMessage(ans.Field, ans.Value),
		Feature: ans.Field,
		Value:   ans.Value,
		Next:    &next,
	})
}

// Predict godoc
// @Summary Request a prediction
// @Description Score a complete session. The session is cleared only when scoring succeeds.
// @Tags screening
// @Produce json
// @Success 200 {object} models.PredictionResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /predict [post]
func (h *Handler) Predict(c *gin.Context) {
	id, ok := auth.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Session not authenticated", Code: models.ErrCodeUnauthorized})
		return
	}

	res, err := h.service.RequestPrediction(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, predictionResponse(res))
}

// Restart godoc
// @Summary Restart the session
// @Description Discard every recorded measurement
// @Tags screening
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /restart [post]
func (h *Handler) Restart(c *gin.Context) {
	id, ok := auth.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Session not authenticated", Code: models.ErrCodeUnauthorized})
		return
	}

	if err := h.service.Restart(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: RestartMessage})
}

// ReceivedMessage acknowledges an accepted measurement
func ReceivedMessage(field string, value float64) string {
	return fmt.Sprintf("Received %s = %s. Thank you!", field, strconv.FormatFloat(value, 'g', -1, 64))
}

func promptResponse(state orchestration.PromptState) models.PromptResponse {
	return models.PromptResponse{
		Message:  state.Prompt.Text(),
		Field:    state.Prompt.Field.ID,
		Ready:    state.Prompt.Ready,
		Answered: state.Answered,
		Total:    screening.FieldCount,
	}
}

func predictionResponse(res screening.Result) models.PredictionResponse {
	return models.PredictionResponse{
		Message:     "Prediction: " + string(res.Label),
		Label:       string(res.Label),
		Probability: res.Rounded(),
	}
}

// errorResponse maps a service error to its HTTP status and body
func errorResponse(err error) (int, models.ErrorResponse) {
	var verr *screening.ValidationError
	var incomplete *screening.IncompleteInputError

	switch {
	case errors.Is(err, screening.ErrSessionNotFound):
		return http.StatusNotFound, models.ErrorResponse{Error: "Session not found or expired", Code: models.ErrCodeSessionNotFound}

	case errors.As(err, &verr):
		code := models.ErrCodeValidationFailed
		if verr.Kind == screening.KindUnknownField {
			code = models.ErrCodeUnknownField
		}
		return http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   verr.Error(),
			Code:    code,
			Details: map[string]string{"field": verr.Field, "reason": string(verr.Kind)},
		}

	case errors.As(err, &incomplete):
		return http.StatusConflict, models.ErrorResponse{
			Error:   incomplete.Error(),
			Code:    models.ErrCodeIncompleteInput,
			Details: map[string]string{"missing": strconv.Itoa(len(incomplete.Missing))},
		}

	case errors.Is(err, screening.ErrInference):
		return http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeInferenceFailed}

	default:
		return http.StatusInternalServerError, models.ErrorResponse{Error: "An unexpected error occurred. Please try again.", Code: models.ErrCodeInternalError}
	}
}

func writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		log.Printf(`{"level":"error","message":"Request failed","path":%q,"error":%q}`, c.Request.URL.Path, err)
	}
	_ = c.Error(err)
	c.JSON(status, body)
}
