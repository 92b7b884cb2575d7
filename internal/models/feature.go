package models

import "strings"

// FeatureValue is one scalar in a feature row: either a float or a
// normalized lowercase string, matching how the model was trained.
type FeatureValue struct {
	Number  float64
	Text    string
	Numeric bool
}

// NumberValue builds a numeric feature value
func NumberValue(v float64) FeatureValue {
	return FeatureValue{Number: v, Numeric: true}
}

// TextValue builds a categorical feature value, lower-cased and trimmed
func TextValue(s string) FeatureValue {
	return FeatureValue{Text: strings.ToLower(strings.TrimSpace(s))}
}

// FeatureRow maps feature name to value. Invariant: one entry per name in
// the model's feature order, never missing when handed to the predictor.
type FeatureRow map[string]FeatureValue

// Clone returns a shallow copy safe for per-scenario perturbation
func (r FeatureRow) Clone() FeatureRow {
	out := make(FeatureRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Float returns the numeric value of a feature, false when the feature is
// absent or categorical.
func (r FeatureRow) Float(name string) (float64, bool) {
	v, ok := r[name]
	if !ok || !v.Numeric {
		return 0, false
	}
	return v.Number, true
}
