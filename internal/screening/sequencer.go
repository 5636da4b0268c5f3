package screening

// ReadyMessage is reported once every field has been answered.
const ReadyMessage = "All inputs collected. Ready for prediction!"

// Prompt is the outcome of NextPrompt: either the next field to ask for,
// or Ready when the session is complete.
type Prompt struct {
	Field FieldDefinition
	Ready bool
}

// Text returns the prompt shown to the user.
func (p Prompt) Text() string {
	if p.Ready {
		return ReadyMessage
	}
	return p.Field.Prompt
}

// NextPrompt returns the first unanswered field in canonical order.
func NextPrompt(s *Session) Prompt {
	for _, f := range fields {
		if !s.Answered(f.ID) {
			return Prompt{Field: f}
		}
	}
	return Prompt{Ready: true}
}
