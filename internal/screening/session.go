package screening

// Session accumulates validated answers for one question/answer cycle.
// A Session is not safe for concurrent use; Store serializes access to it.
type Session struct {
	values map[string]float64
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{values: make(map[string]float64, FieldCount)}
}

// RecordAnswer stores value for id, overwriting any earlier answer.
// Range checks belong to Validate; only the identifier is checked here.
func (s *Session) RecordAnswer(id string, value float64) error {
	if _, ok := FieldByID(id); !ok {
		return &ValidationError{Kind: KindUnknownField, Field: id}
	}
	s.values[id] = value
	return nil
}

// Answered reports whether id has a recorded value.
func (s *Session) Answered(id string) bool {
	_, ok := s.values[id]
	return ok
}

// Len returns the number of answered fields.
func (s *Session) Len() int {
	return len(s.values)
}

// IsComplete reports whether every field has been answered.
func (s *Session) IsComplete() bool {
	for _, f := range fields {
		if !s.Answered(f.ID) {
			return false
		}
	}
	return true
}

// Missing returns the identifiers still unanswered, in canonical order.
func (s *Session) Missing() []string {
	var missing []string
	for _, f := range fields {
		if !s.Answered(f.ID) {
			missing = append(missing, f.ID)
		}
	}
	return missing
}

// Snapshot returns a copy of the recorded answers.
func (s *Session) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Reset clears every answer.
func (s *Session) Reset() {
	clear(s.values)
}
