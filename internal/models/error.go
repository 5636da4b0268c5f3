package models

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrCodeUnknownField     = "UNKNOWN_FIELD"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeIncompleteInput  = "INCOMPLETE_INPUT"
	ErrCodeInferenceFailed  = "INFERENCE_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)
