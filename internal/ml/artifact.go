package ml

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// FeatureDefaults are per-feature fallback values applied when a lote does
// not carry the feature. Split by kind, mirroring the training pipeline.
type FeatureDefaults struct {
	Numeric     map[string]float64 `json:"numeric"`
	Categorical map[string]string  `json:"categorical"`
}

// Metadata describes a trained artifact: the ordered feature names the model
// expects (order-significant, must match training time) and the defaults.
type Metadata struct {
	ModelName       string          `json:"model_name"`
	ModelVersion    string          `json:"model_version"`
	Features        []string        `json:"features"`
	FeatureDefaults FeatureDefaults `json:"feature_defaults"`
}

// Artifact is a deserialized trained model: metadata, the fitted
// preprocessor and the regressor. Immutable after load.
type Artifact struct {
	Metadata     Metadata      `json:"metadata"`
	Preprocessor *Preprocessor `json:"preprocessor"`
	Model        ModelSpec     `json:"model"`
}

// ModelSpec is the serialized regressor. Type selects the decoder.
type ModelSpec struct {
	Type         string    `json:"type"`
	Intercept    float64   `json:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`
	Trees        []Tree    `json:"trees,omitempty"`
}

// Regressor builds the runnable regressor for the declared type
func (s ModelSpec) Regressor() (Regressor, error) {
	switch s.Type {
	case "linear":
		return &LinearRegressor{Intercept: s.Intercept, Coefficients: s.Coefficients}, nil
	case "random_forest":
		if len(s.Trees) == 0 {
			return nil, fmt.Errorf("random_forest artifact has no trees")
		}
		return &ForestRegressor{Trees: s.Trees}, nil
	default:
		return nil, fmt.Errorf("unsupported model type: %q", s.Type)
	}
}

// DecodeArtifact deserializes an artifact blob as written by the training
// process. Returns an error on malformed blobs; emptiness of the feature
// order is validated by the loader, not here.
func DecodeArtifact(blob []byte) (*Artifact, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty model artifact blob")
	}

	var artifact Artifact
	if err := json.Unmarshal(blob, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}

	if artifact.Preprocessor == nil {
		artifact.Preprocessor = &Preprocessor{}
	}

	return &artifact, nil
}

// EncodeArtifact serializes an artifact (used by the seed tooling and tests)
func EncodeArtifact(artifact *Artifact) ([]byte, error) {
	blob, err := json.Marshal(artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model artifact: %w", err)
	}
	return blob, nil
}
