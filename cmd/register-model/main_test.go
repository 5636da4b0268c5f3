package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadArtifact(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		kind    string
		path    string
		wantErr string
	}{
		{name: "scaler", model: "diabetes", kind: "scaler", path: "../../models/scaler.json"},
		{name: "classifier", model: "diabetes", kind: "classifier", path: "../../models/classifier.json"},
		{name: "wrong_kind_for_file", model: "diabetes", kind: "classifier", path: "../../models/scaler.json", wantErr: "classifier"},
		{name: "unknown_kind", model: "diabetes", kind: "tokenizer", path: "../../models/scaler.json", wantErr: "kind must be"},
		{name: "missing_name", model: " ", kind: "scaler", path: "../../models/scaler.json", wantErr: "name is required"},
		{name: "missing_file", model: "diabetes", kind: "scaler", wantErr: "file is required"},
		{name: "unreadable_file", model: "diabetes", kind: "scaler", path: "does-not-exist.json", wantErr: "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := readArtifact(tt.model, tt.kind, tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, payload)
		})
	}
}

func TestReadArtifact_RejectsColumnMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.json")
	body := `{"feature_names":["Glucose","Pregnancies","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],
		"mean":[0,0,0,0,0,0,0,0],"scale":[1,1,1,1,1,1,1,1]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := readArtifact("diabetes", "scaler", path)
	assert.Error(t, err)
}
