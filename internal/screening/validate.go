package screening

import (
	"math"
	"strconv"
	"strings"
)

// Validate parses raw as a number and checks it against the field's
// inclusive range. It has no side effects; recording the value is up to the caller.
func Validate(id, raw string) (float64, error) {
	f, ok := FieldByID(id)
	if !ok {
		return 0, &ValidationError{Kind: KindUnknownField, Field: id, Raw: raw}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Kind: KindNotANumber, Field: id, Raw: raw, Min: f.Min, Max: f.Max}
	}

	if !f.Contains(v) {
		return 0, &ValidationError{Kind: KindOutOfRange, Field: id, Raw: raw, Min: f.Min, Max: f.Max}
	}
	return v, nil
}
