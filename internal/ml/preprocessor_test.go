package ml

import (
	"math"
	"testing"

	"siembra-platform/internal/models"
)

func TestPreprocessorTransform(t *testing.T) {
	p := &Preprocessor{
		Numeric: map[string]NumericScaler{
			"ph_suelo": {Mean: 6.5, Std: 0.5},
			"latitud":  {Mean: 0, Std: 0}, // degenerate std passes through
		},
		Categorical: map[string]CategoryEncoder{
			"tipo_suelo": {Values: []string{"franco arcilloso", "franco arenoso", "franco limoso"}},
		},
	}
	order := []string{"tipo_suelo", "latitud", "ph_suelo"}

	if got := p.Width(order); got != 5 {
		t.Fatalf("Width = %d, want 5", got)
	}

	vec, err := p.Transform(order, models.FeatureRow{
		"tipo_suelo": models.TextValue("Franco Arenoso"),
		"latitud":    models.NumberValue(-33.89),
		"ph_suelo":   models.NumberValue(7.0),
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	want := []float64{0, 1, 0, -33.89, 1.0}
	for i := range want {
		if math.Abs(vec[i]-want[i]) > 1e-9 {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}

func TestPreprocessorUnknownCategory(t *testing.T) {
	p := &Preprocessor{
		Categorical: map[string]CategoryEncoder{
			"tipo_suelo": {Values: []string{"franco arcilloso", "franco arenoso"}},
		},
	}

	vec, err := p.Transform([]string{"tipo_suelo"}, models.FeatureRow{
		"tipo_suelo": models.TextValue("vertisol"),
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %v, want all-zeros for unknown category", i, v)
		}
	}
}

func TestPreprocessorErrors(t *testing.T) {
	p := &Preprocessor{
		Numeric: map[string]NumericScaler{"ph_suelo": {Mean: 0, Std: 1}},
	}

	tests := []struct {
		name string
		row  models.FeatureRow
	}{
		{name: "missing feature", row: models.FeatureRow{}},
		{name: "wrong kind", row: models.FeatureRow{"ph_suelo": models.TextValue("acido")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Transform([]string{"ph_suelo"}, tt.row); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
