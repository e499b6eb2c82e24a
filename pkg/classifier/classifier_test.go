package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var labels = []string{"Feliz", "Triste", "Sorprendido"}

func testArtifact() Artifact {
	return Artifact{
		Schema:      SchemaVersion,
		Version:     "test-1",
		Labels:      labels,
		FeatureSize: 3,
		Coefficients: [][]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
		Intercepts: []float64{0, 0, 0},
	}
}

func TestPredictPicksHighestScore(t *testing.T) {
	c, err := New(testArtifact(), labels)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		features []float64
		want     string
	}{
		{[]float64{0.9, 0.1, 0.0}, "Feliz"},
		{[]float64{0.1, 0.7, 0.2}, "Triste"},
		{[]float64{0.0, 0.2, 0.8}, "Sorprendido"},
	}

	for _, tt := range tests {
		idx, err := c.Predict(tt.features)
		if err != nil {
			t.Fatalf("Predict(%v) failed: %v", tt.features, err)
		}
		if idx < 0 || idx >= len(labels) {
			t.Fatalf("Predict(%v) returned out of range index %d", tt.features, idx)
		}
		got, err := c.Label(idx)
		if err != nil {
			t.Fatalf("Label(%d) failed: %v", idx, err)
		}
		if got != tt.want {
			t.Errorf("Predict(%v) = %s, want %s", tt.features, got, tt.want)
		}
	}
}

func TestPredictRejectsWrongFeatureSize(t *testing.T) {
	c, err := New(testArtifact(), labels)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := c.Predict([]float64{1, 2}); !errors.Is(err, ErrFeatureSize) {
		t.Errorf("Expected ErrFeatureSize, got %v", err)
	}
}

func TestBinaryModel(t *testing.T) {
	a := Artifact{
		Schema:       SchemaVersion,
		Labels:       []string{"Neutral", "Feliz"},
		FeatureSize:  2,
		Coefficients: [][]float64{{1, -1}},
		Intercepts:   []float64{0},
	}
	c, err := New(a, []string{"Neutral", "Feliz"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if idx, _ := c.Predict([]float64{2, 1}); idx != 1 {
		t.Errorf("Expected class 1, got %d", idx)
	}
	if idx, _ := c.Predict([]float64{1, 2}); idx != 0 {
		t.Errorf("Expected class 0, got %d", idx)
	}
}

func TestNewValidatesArtifact(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"schema", func(a *Artifact) { a.Schema = 99 }},
		{"label order", func(a *Artifact) { a.Labels = []string{"Triste", "Feliz", "Sorprendido"} }},
		{"missing row", func(a *Artifact) { a.Coefficients = a.Coefficients[:2] }},
		{"short row", func(a *Artifact) { a.Coefficients[1] = []float64{1} }},
		{"intercepts", func(a *Artifact) { a.Intercepts = []float64{0} }},
		{"feature size", func(a *Artifact) { a.FeatureSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArtifact()
			tt.mutate(&a)
			if _, err := New(a, labels); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLabelMismatchIsTyped(t *testing.T) {
	a := testArtifact()
	a.Labels = []string{"Happy", "Sad", "Surprised"}

	if _, err := New(a, labels); !errors.Is(err, ErrLabelMismatch) {
		t.Errorf("Expected ErrLabelMismatch, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	body := `{
		"schema": 1,
		"version": "lr-2024-05",
		"labels": ["Feliz", "Triste", "Sorprendido"],
		"feature_size": 2,
		"coefficients": [[1, 0], [0, 1], [-1, -1]],
		"intercepts": [0, 0, 0.5]
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	c, err := LoadFile(path, labels)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if c.Version() != "lr-2024-05" {
		t.Errorf("Expected version lr-2024-05, got %s", c.Version())
	}
	if c.FeatureSize() != 2 {
		t.Errorf("Expected feature size 2, got %d", c.FeatureSize())
	}
	if idx, _ := c.Predict([]float64{0, 0}); idx != 2 {
		t.Errorf("Expected intercept to pick Sorprendido, got %d", idx)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"), labels); err == nil {
		t.Error("Expected error for missing artifact")
	}
	if _, err := Parse([]byte("not json"), labels); err == nil {
		t.Error("Expected error for corrupt artifact")
	}
}

func TestLabelOutOfRange(t *testing.T) {
	c, _ := New(testArtifact(), labels)

	if _, err := c.Label(3); err == nil {
		t.Error("Expected error for index 3")
	}
	if _, err := c.Label(-1); err == nil {
		t.Error("Expected error for index -1")
	}
}
