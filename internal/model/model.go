// Package model implements the fraud classifiers, their training loop and the
// persisted model registry.
package model

import (
	"encoding/json"
	"fmt"
)

// Model families.
const (
	FamilyLogisticRegression = "logistic_regression"
	FamilyGradientStumps     = "gradient_stumps"
)

// Model is the interface every fraud classifier implements. X is a row-major
// feature matrix whose column order matches the feature names the model was
// trained with.
type Model interface {
	// Fit trains the model on labeled data.
	Fit(X [][]float64, y []int) error
	// Predict returns hard 0/1 labels at the 0.5 threshold.
	Predict(X [][]float64) []int
	// PredictProba returns the positive-class probability per row.
	PredictProba(X [][]float64) []float64
	// Family returns the model family identifier.
	Family() string
}

// persistedModel is the serialization envelope stored in the registry.
type persistedModel struct {
	Family   string              `json:"family"`
	Logistic *LogisticRegression `json:"logistic,omitempty"`
	Stumps   *GradientStumps     `json:"stumps,omitempty"`
}

// Marshal serializes a trained model for registry storage.
func Marshal(m Model) ([]byte, error) {
	env := persistedModel{Family: m.Family()}
	switch v := m.(type) {
	case *LogisticRegression:
		env.Logistic = v
	case *GradientStumps:
		env.Stumps = v
	default:
		return nil, fmt.Errorf("unknown model family %q", m.Family())
	}
	return json.Marshal(env)
}

// Unmarshal restores a model serialized by Marshal.
func Unmarshal(data []byte) (Model, error) {
	var env persistedModel
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	switch env.Family {
	case FamilyLogisticRegression:
		if env.Logistic == nil {
			return nil, fmt.Errorf("model envelope missing logistic payload")
		}
		return env.Logistic, nil
	case FamilyGradientStumps:
		if env.Stumps == nil {
			return nil, fmt.Errorf("model envelope missing stumps payload")
		}
		return env.Stumps, nil
	default:
		return nil, fmt.Errorf("unknown model family %q", env.Family)
	}
}
