package classifier

import (
	"errors"
	"fmt"
	"os"
	"slices"

	jsoniter "github.com/json-iterator/go"
)

const SchemaVersion = 1

var (
	ErrFeatureSize   = errors.New("feature vector size does not match model")
	ErrLabelMismatch = errors.New("model labels do not match label set")
)

// Artifact is the on-disk form of a trained linear classifier. Row i of
// Coefficients and Intercepts[i] score Labels[i]. A binary model may carry a
// single row, scoring Labels[1] against Labels[0].
type Artifact struct {
	Schema       int         `json:"schema"`
	Version      string      `json:"version"`
	Labels       []string    `json:"labels"`
	FeatureSize  int         `json:"feature_size"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// Classifier is immutable once loaded and safe for concurrent use.
type Classifier struct {
	version      string
	labels       []string
	featureSize  int
	coefficients [][]float64
	intercepts   []float64
}

func LoadFile(path string, labels []string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact %s: %w", path, err)
	}
	return Parse(data, labels)
}

// Parse decodes and validates an artifact against the expected label set.
// The order of labels must match the encoding the model was trained with.
func Parse(data []byte, labels []string) (*Classifier, error) {
	var a Artifact
	if err := jsoniter.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	return New(a, labels)
}

func New(a Artifact, labels []string) (*Classifier, error) {
	if a.Schema != SchemaVersion {
		return nil, fmt.Errorf("unsupported model schema %d, want %d", a.Schema, SchemaVersion)
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("label set needs at least two labels, got %d", len(labels))
	}
	if !slices.Equal(a.Labels, labels) {
		return nil, fmt.Errorf("%w: model has %v, service expects %v", ErrLabelMismatch, a.Labels, labels)
	}
	if a.FeatureSize <= 0 {
		return nil, fmt.Errorf("invalid feature size %d", a.FeatureSize)
	}

	rows := len(labels)
	if rows == 2 && len(a.Coefficients) == 1 {
		rows = 1
	}
	if len(a.Coefficients) != rows || len(a.Intercepts) != rows {
		return nil, fmt.Errorf("model has %d coefficient rows and %d intercepts, want %d",
			len(a.Coefficients), len(a.Intercepts), rows)
	}
	for i, row := range a.Coefficients {
		if len(row) != a.FeatureSize {
			return nil, fmt.Errorf("coefficient row %d has %d values, want %d", i, len(row), a.FeatureSize)
		}
	}

	coefficients := make([][]float64, len(a.Coefficients))
	for i, row := range a.Coefficients {
		coefficients[i] = slices.Clone(row)
	}

	return &Classifier{
		version:      a.Version,
		labels:       slices.Clone(labels),
		featureSize:  a.FeatureSize,
		coefficients: coefficients,
		intercepts:   slices.Clone(a.Intercepts),
	}, nil
}

func (c *Classifier) Version() string { return c.version }

func (c *Classifier) FeatureSize() int { return c.featureSize }

func (c *Classifier) Labels() []string { return slices.Clone(c.labels) }

// Predict returns the index into the label set of the highest scoring class.
// The result is always a valid index.
func (c *Classifier) Predict(features []float64) (int, error) {
	if len(features) != c.featureSize {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureSize, len(features), c.featureSize)
	}

	if len(c.coefficients) == 1 {
		if c.score(0, features) > 0 {
			return 1, nil
		}
		return 0, nil
	}

	best := 0
	bestScore := c.score(0, features)
	for i := 1; i < len(c.coefficients); i++ {
		if s := c.score(i, features); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, nil
}

// Label maps a class index to its name.
func (c *Classifier) Label(index int) (string, error) {
	if index < 0 || index >= len(c.labels) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", index, len(c.labels))
	}
	return c.labels[index], nil
}

func (c *Classifier) score(row int, features []float64) float64 {
	s := c.intercepts[row]
	for j, w := range c.coefficients[row] {
		s += w * features[j]
	}
	return s
}
