package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/diabetes-screener/internal/auth"
	"github.com/bizmatters/diabetes-screener/internal/models"
	"github.com/bizmatters/diabetes-screener/internal/orchestration"
	"github.com/bizmatters/diabetes-screener/internal/screening"
)

var wsTracer = otel.Tracer("screening-websocket")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS_ORIGINS governs the HTTP routes; the token is the access check here
		return true
	},
}

// Client frame types
const (
	FrameAsk     = "ask"
	FrameAnswer  = "answer"
	FramePredict = "predict"
	FrameRestart = "restart"
)

// Server frame types
const (
	FramePrompt     = "prompt"
	FrameReady      = "ready"
	FrameAccepted   = "accepted"
	FrameError      = "error"
	FramePrediction = "prediction"
	FrameRestarted  = "restarted"
)

// ClientFrame is a message sent by the questionnaire client
type ClientFrame struct {
	Type    string          `json:"type"`
	Feature string          `json:"feature,omitempty"`
	Value   models.RawValue `json:"value,omitempty"`
}

// ServerFrame is a message pushed to the questionnaire client
type ServerFrame struct {
	Type        string   `json:"type"`
	Message     string   `json:"message"`
	Field       string   `json:"field,omitempty"`
	Answered    int      `json:"answered,omitempty"`
	Total       int      `json:"total,omitempty"`
	Feature     string   `json:"feature,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	Label       string   `json:"label,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
	Code        string   `json:"code,omitempty"`
}

// ScreeningStream runs the questionnaire over a WebSocket connection
type ScreeningStream struct {
	service *orchestration.Service
	tracer  trace.Tracer
}

// NewScreeningStream creates a new questionnaire stream handler
func NewScreeningStream(service *orchestration.Service) *ScreeningStream {
	return &ScreeningStream{
		service: service,
		tracer:  wsTracer,
	}
}

// Stream handles WebSocket /api/ws/screening
// @Summary Interactive questionnaire
// @Description WebSocket endpoint that asks for each measurement in turn. Browser clients pass the session token as ?token=.
// @Tags screening
// @Param token query string false "Session token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/screening [get]
func (s *ScreeningStream) Stream(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "websocket.screening_stream")
	defer span.End()

	id, ok := auth.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Session not authenticated", Code: models.ErrCodeUnauthorized})
		return
	}
	span.SetAttributes(attribute.String("session.id", id.String()))

	// Fail before upgrading so plain HTTP clients see a 404
	first, err := s.service.NextPrompt(ctx, id)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"warn","message":"Failed to upgrade connection","session_id":"%s","error":%q}`, id, err)
		return
	}
	defer conn.Close()

	log.Printf(`{"level":"info","message":"Questionnaire stream opened","session_id":"%s"}`, id)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, done)

	if err := writeFrame(conn, promptFrame(first)); err != nil {
		span.RecordError(err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf(`{"level":"warn","message":"Questionnaire stream read error","session_id":"%s","error":%q}`, id, err)
			}
			break
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if err := writeFrame(conn, ServerFrame{Type: FrameError, Message: "Invalid message", Code: models.ErrCodeInvalidRequest}); err != nil {
				return
			}
			continue
		}

		frames, closeAfter := s.handleFrame(ctx, id, frame)
		for _, f := range frames {
			if err := writeFrame(conn, f); err != nil {
				span.RecordError(err)
				return
			}
		}
		if closeAfter {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired"),
				time.Now().Add(writeWait))
			break
		}
	}

	log.Printf(`{"level":"info","message":"Questionnaire stream closed","session_id":"%s"}`, id)
}

// handleFrame runs one client request and returns the frames to send back.
// closeAfter is set when the session no longer exists.
func (s *ScreeningStream) handleFrame(ctx context.Context, id uuid.UUID, frame ClientFrame) (frames []ServerFrame, closeAfter bool) {
	switch frame.Type {
	case FrameAsk:
		state, err := s.service.NextPrompt(ctx, id)
		if err != nil {
			return errorFrames(err)
		}
		return []ServerFrame{promptFrame(state)}, false

	case FrameAnswer:
		ans, err := s.service.SubmitAnswer(ctx, id, frame.Feature, string(frame.Value))
		if err != nil {
			return errorFrames(err)
		}
		value := ans.Value
		return []ServerFrame{
			{
				Type:     FrameAccepted,
				Message:  ReceivedMessage(ans.Field, ans.Value),
				Feature:  ans.Field,
				Value:    &value,
				Answered: ans.Next.Answered,
				Total:    screening.FieldCount,
			},
			promptFrame(ans.Next),
		}, false

	case FramePredict:
		res, err := s.service.RequestPrediction(ctx, id)
		if err != nil {
			return errorFrames(err)
		}
		p := predictionResponse(res)
		return []ServerFrame{{Type: FramePrediction, Message: p.Message, Label: p.Label, Probability: &p.Probability}}, false

	case FrameRestart:
		if err := s.service.Restart(ctx, id); err != nil {
			return errorFrames(err)
		}
		state, err := s.service.NextPrompt(ctx, id)
		if err != nil {
			return errorFrames(err)
		}
		return []ServerFrame{{Type: FrameRestarted, Message: RestartMessage}, promptFrame(state)}, false

	default:
		return []ServerFrame{{Type: FrameError, Message: "Unknown message type", Code: models.ErrCodeInvalidRequest}}, false
	}
}

func promptFrame(state orchestration.PromptState) ServerFrame {
	if state.Prompt.Ready {
		return ServerFrame{Type: FrameReady, Message: state.Prompt.Text(), Answered: state.Answered, Total: screening.FieldCount}
	}
	return ServerFrame{
		Type:     FramePrompt,
		Message:  state.Prompt.Text(),
		Field:    state.Prompt.Field.ID,
		Answered: state.Answered,
		Total:    screening.FieldCount,
	}
}

func errorFrames(err error) ([]ServerFrame, bool) {
	_, body := errorResponse(err)
	return []ServerFrame{{Type: FrameError, Message: body.Error, Code: body.Code}}, errors.Is(err, screening.ErrSessionNotFound)
}

func writeFrame(conn *websocket.Conn, frame ServerFrame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

// keepAlive pings the client until done is closed. WriteControl is safe to
// call alongside the handler's writes.
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
