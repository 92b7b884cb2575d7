package ml

import (
	"context"
	"io"
	"testing"

	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
)

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func linearArtifact(intercept float64, coefficients []float64) *Artifact {
	return &Artifact{
		Metadata: Metadata{
			ModelName:    "modelo_siembra",
			ModelVersion: "test-1",
			Features:     []string{"latitud", "precipitacion_oct"},
		},
		Preprocessor: &Preprocessor{
			Numeric: map[string]NumericScaler{
				"latitud":           {Mean: 0, Std: 1},
				"precipitacion_oct": {Mean: 0, Std: 1},
			},
		},
		Model: ModelSpec{
			Type:         "linear",
			Intercept:    intercept,
			Coefficients: coefficients,
		},
	}
}

func TestPredictDayOfYear(t *testing.T) {
	tests := []struct {
		name      string
		intercept float64
		row       models.FeatureRow
		want      int
	}{
		{
			name:      "mid range prediction",
			intercept: 280,
			row: models.FeatureRow{
				"latitud":           models.NumberValue(2),
				"precipitacion_oct": models.NumberValue(3),
			},
			want: 285, // 280 + 2 + 3
		},
		{
			name:      "rounds to nearest day",
			intercept: 280.6,
			row: models.FeatureRow{
				"latitud":           models.NumberValue(0),
				"precipitacion_oct": models.NumberValue(0),
			},
			want: 281,
		},
		{
			name:      "clamps below range",
			intercept: -40,
			row: models.FeatureRow{
				"latitud":           models.NumberValue(0),
				"precipitacion_oct": models.NumberValue(0),
			},
			want: MinDayOfYear,
		},
		{
			name:      "clamps above range",
			intercept: 900,
			row: models.FeatureRow{
				"latitud":           models.NumberValue(0),
				"precipitacion_oct": models.NumberValue(0),
			},
			want: MaxDayOfYear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictor, err := NewPredictor(linearArtifact(tt.intercept, []float64{1, 1}), testLogger(), nil)
			if err != nil {
				t.Fatalf("NewPredictor failed: %v", err)
			}

			got, err := predictor.PredictDayOfYear(context.Background(), tt.row)
			if err != nil {
				t.Fatalf("PredictDayOfYear failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("PredictDayOfYear = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPredictDayOfYearMissingFeature(t *testing.T) {
	predictor, err := NewPredictor(linearArtifact(280, []float64{1, 1}), testLogger(), nil)
	if err != nil {
		t.Fatalf("NewPredictor failed: %v", err)
	}

	_, err = predictor.PredictDayOfYear(context.Background(), models.FeatureRow{
		"latitud": models.NumberValue(1),
	})
	if err == nil {
		t.Fatal("expected error for missing feature, got nil")
	}
}

func TestForestPrediction(t *testing.T) {
	leaf := func(v float64) TreeNode { return TreeNode{Left: -1, Right: -1, Value: v} }
	artifact := &Artifact{
		Metadata: Metadata{
			Features: []string{"latitud"},
		},
		Preprocessor: &Preprocessor{
			Numeric: map[string]NumericScaler{"latitud": {Mean: 0, Std: 1}},
		},
		Model: ModelSpec{
			Type: "random_forest",
			Trees: []Tree{
				{Nodes: []TreeNode{
					{Feature: 0, Threshold: 0.0, Left: 1, Right: 2},
					leaf(280),
					leaf(300),
				}},
				{Nodes: []TreeNode{leaf(290)}},
			},
		},
	}

	predictor, err := NewPredictor(artifact, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewPredictor failed: %v", err)
	}

	// latitud -1 routes left: (280+290)/2 = 285
	got, err := predictor.PredictDayOfYear(context.Background(), models.FeatureRow{
		"latitud": models.NumberValue(-1),
	})
	if err != nil {
		t.Fatalf("PredictDayOfYear failed: %v", err)
	}
	if got != 285 {
		t.Errorf("forest prediction = %d, want 285", got)
	}

	// latitud 1 routes right: (300+290)/2 = 295
	got, err = predictor.PredictDayOfYear(context.Background(), models.FeatureRow{
		"latitud": models.NumberValue(1),
	})
	if err != nil {
		t.Fatalf("PredictDayOfYear failed: %v", err)
	}
	if got != 295 {
		t.Errorf("forest prediction = %d, want 295", got)
	}
}
