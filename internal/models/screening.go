package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SessionResponse is returned when a screening session is opened
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
}

// PromptResponse carries the next question, or Ready once every field is answered
type PromptResponse struct {
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
	Ready    bool   `json:"ready"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
}

// AnswerRequest submits one measurement
type AnswerRequest struct {
	Feature string   `json:"feature" binding:"required"`
	Value   RawValue `json:"value"`
}

// AnswerResponse acknowledges an accepted measurement
type AnswerResponse struct {
	Message string          `json:"message"`
	Feature string          `json:"feature"`
	Value   float64         `json:"value"`
	Next    *PromptResponse `json:"next,omitempty"`
}

// PredictionResponse reports the model outcome
type PredictionResponse struct {
	Message     string  `json:"message"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// RawValue accepts a measurement sent either as a JSON number or a JSON string,
// keeping the original text for validation.
type RawValue string

// UnmarshalJSON implements json.Unmarshaler
func (v *RawValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = RawValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("value must be a number or string")
	}
	*v = RawValue(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler, emitting numbers unquoted
func (v RawValue) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(v), 64); err == nil && json.Valid([]byte(v)) {
		return []byte(v), nil
	}
	return json.Marshal(string(v))
}
