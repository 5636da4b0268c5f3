package helpers

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ScreeningAnswers is a complete, in-range questionnaire keyed by field id
var ScreeningAnswers = []struct {
	Feature string
	Value   string
}{
	{"pregnancies", "2"},
	{"glucose", "120"},
	{"blood_pressure", "70"},
	{"skin_thickness", "20"},
	{"insulin", "79"},
	{"bmi", "25.5"},
	{"diabetes_pedigree_function", "0.5"},
	{"age", "30"},
}

// ModelFile reads one of the bundled artifacts under models/
func ModelFile(t *testing.T, name string) []byte {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to locate helpers package")
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "models", name))
	if err != nil {
		t.Fatalf("Failed to read model file %s: %v", name, err)
	}
	return data
}
