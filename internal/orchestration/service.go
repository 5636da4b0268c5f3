package orchestration

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bizmatters/diabetes-screener/internal/metrics"
	"github.com/bizmatters/diabetes-screener/internal/screening"
)

// Service runs screening sessions: prompting, answer intake, prediction and restart
type Service struct {
	store    *screening.Store
	pipeline *screening.Pipeline
	metrics  *metrics.ScreeningMetrics
}

// NewService creates a new screening service. m may be nil.
func NewService(store *screening.Store, pipeline *screening.Pipeline, m *metrics.ScreeningMetrics) *Service {
	return &Service{
		store:    store,
		pipeline: pipeline,
		metrics:  m,
	}
}

// PromptState is the next prompt plus progress through the field list
type PromptState struct {
	Prompt   screening.Prompt
	Answered int
}

// Answer is the outcome of an accepted submission
type Answer struct {
	Field string
	Value float64
	Next  PromptState
}

// CreateSession opens a new empty session and returns its id and first prompt
func (s *Service) CreateSession(ctx context.Context) (uuid.UUID, PromptState) {
	id := s.store.Create()
	if s.metrics != nil {
		s.metrics.AddActiveSessions(ctx, 1)
	}
	log.Printf(`{"level":"info","message":"Session created","session_id":"%s"}`, id)

	return id, PromptState{Prompt: screening.NextPrompt(screening.NewSession())}
}

// NextPrompt returns the first unanswered field for the session
func (s *Service) NextPrompt(ctx context.Context, id uuid.UUID) (PromptState, error) {
	var state PromptState
	err := s.store.With(id, func(sess *screening.Session) error {
		state = PromptState{Prompt: screening.NextPrompt(sess), Answered: sess.Len()}
		return nil
	})
	return state, err
}

// SubmitAnswer validates raw for field and records it. A rejected answer
// leaves the session unchanged.
func (s *Service) SubmitAnswer(ctx context.Context, id uuid.UUID, field, raw string) (Answer, error) {
	var ans Answer
	err := s.store.With(id, func(sess *screening.Session) error {
		value, err := screening.Validate(field, raw)
		if err != nil {
			return err
		}
		if err := sess.RecordAnswer(field, value); err != nil {
			return err
		}
		ans = Answer{
			Field: field,
			Value: value,
			Next:  PromptState{Prompt: screening.NextPrompt(sess), Answered: sess.Len()},
		}
		return nil
	})

	var verr *screening.ValidationError
	switch {
	case errors.As(err, &verr):
		if s.metrics != nil {
			s.metrics.RecordAnswerRejected(ctx, field, string(verr.Kind))
		}
		log.Printf(`{"level":"warn","message":"Answer rejected","session_id":"%s","field":%q,"reason":%q}`, id, field, verr.Kind)
		return Answer{}, err
	case err != nil:
		return Answer{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordAnswerAccepted(ctx, field)
	}
	log.Printf(`{"level":"info","message":"Received input","session_id":"%s","field":%q,"value":%g}`, id, field, ans.Value)
	return ans, nil
}

// RequestPrediction scores a complete session and clears it. Incomplete
// sessions and inference failures leave the answers in place.
func (s *Service) RequestPrediction(ctx context.Context, id uuid.UUID) (screening.Result, error) {
	start := time.Now()

	var res screening.Result
	err := s.store.With(id, func(sess *screening.Session) error {
		var err error
		res, err = s.pipeline.Predict(ctx, sess)
		return err
	})

	var ierr *screening.InferenceError
	switch {
	case errors.As(err, &ierr):
		if s.metrics != nil {
			s.metrics.RecordInferenceFailure(ctx, ierr.Stage, time.Since(start))
		}
		log.Printf(`{"level":"error","message":"Inference failed","session_id":"%s","stage":"%s","error":%q}`, id, ierr.Stage, ierr.Cause)
		return screening.Result{}, err
	case err != nil:
		return screening.Result{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordPrediction(ctx, string(res.Label), time.Since(start))
	}
	log.Printf(`{"level":"info","message":"Prediction complete","session_id":"%s","label":"%s","probability":%.2f}`, id, res.Label, res.Rounded())
	return res, nil
}

// Restart clears every answer in the session
func (s *Service) Restart(ctx context.Context, id uuid.UUID) error {
	err := s.store.With(id, func(sess *screening.Session) error {
		sess.Reset()
		return nil
	})
	if err == nil {
		log.Printf(`{"level":"info","message":"Session restarted","session_id":"%s"}`, id)
	}
	return err
}

// EndSession discards the session and its answers
func (s *Service) EndSession(ctx context.Context, id uuid.UUID) error {
	if !s.store.Delete(id) {
		return screening.ErrSessionNotFound
	}
	if s.metrics != nil {
		s.metrics.AddActiveSessions(ctx, -1)
	}
	log.Printf(`{"level":"info","message":"Session ended","session_id":"%s"}`, id)
	return nil
}

// SweepIdle drops sessions idle longer than ttl
func (s *Service) SweepIdle(ctx context.Context, ttl time.Duration) int {
	removed := s.store.Sweep(ttl)
	if removed > 0 {
		if s.metrics != nil {
			s.metrics.AddActiveSessions(ctx, -removed)
		}
		log.Printf(`{"level":"info","message":"Expired idle sessions","count":%d}`, removed)
	}
	return removed
}

// RunSweeper calls SweepIdle every interval until ctx is done
func (s *Service) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepIdle(ctx, ttl)
		}
	}
}
