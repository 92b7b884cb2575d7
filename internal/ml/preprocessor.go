package ml

import (
	"fmt"

	"siembra-platform/internal/models"
)

// NumericScaler standardises one numeric feature with training-time
// mean/std. Std of zero disables scaling for that feature.
type NumericScaler struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// CategoryEncoder one-hot encodes a categorical feature over the category
// values observed at training time. Unknown categories encode to all zeros.
type CategoryEncoder struct {
	Values []string `json:"values"`
}

// Preprocessor turns a feature row into the numeric vector the regressor
// consumes, in feature order: categorical features expand to one-hot blocks,
// numeric features pass through their scaler.
type Preprocessor struct {
	Numeric     map[string]NumericScaler   `json:"numeric,omitempty"`
	Categorical map[string]CategoryEncoder `json:"categorical,omitempty"`
}

// Width returns the encoded vector length for the given feature order
func (p *Preprocessor) Width(order []string) int {
	width := 0
	for _, name := range order {
		if enc, ok := p.Categorical[name]; ok {
			width += len(enc.Values)
			continue
		}
		width++
	}
	return width
}

// Transform encodes a complete feature row. Every name in order must be
// present in the row; the feature builder guarantees that invariant.
func (p *Preprocessor) Transform(order []string, row models.FeatureRow) ([]float64, error) {
	vec := make([]float64, 0, p.Width(order))

	for _, name := range order {
		value, ok := row[name]
		if !ok {
			return nil, fmt.Errorf("feature row is missing %q", name)
		}

		if enc, hasEnc := p.Categorical[name]; hasEnc {
			if value.Numeric {
				return nil, fmt.Errorf("feature %q is categorical but carries a number", name)
			}
			for _, category := range enc.Values {
				if value.Text == category {
					vec = append(vec, 1.0)
				} else {
					vec = append(vec, 0.0)
				}
			}
			continue
		}

		if !value.Numeric {
			return nil, fmt.Errorf("feature %q is numeric but carries text %q", name, value.Text)
		}

		x := value.Number
		if scaler, hasScaler := p.Numeric[name]; hasScaler && scaler.Std > 0 {
			x = (x - scaler.Mean) / scaler.Std
		}
		vec = append(vec, x)
	}

	return vec, nil
}
