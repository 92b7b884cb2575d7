package ml

import (
	"context"
	"fmt"
	"math"

	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
	"siembra-platform/pkg/metrics"
)

// Day-of-year bounds of a planting prediction
const (
	MinDayOfYear = 1
	MaxDayOfYear = 365
)

// Predictor runs preprocessor and regressor over a feature row and clamps
// the result into the valid day-of-year range. Clamping is a deliberate
// saturation policy: logged as a warning, never an error.
type Predictor struct {
	order        []string
	preprocessor *Preprocessor
	model        Regressor
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewPredictor creates a predictor over a loaded artifact
func NewPredictor(artifact *Artifact, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*Predictor, error) {
	model, err := artifact.Model.Regressor()
	if err != nil {
		return nil, fmt.Errorf("failed to build regressor: %w", err)
	}

	return &Predictor{
		order:        artifact.Metadata.Features,
		preprocessor: artifact.Preprocessor,
		model:        model,
		logger:       logger,
		metrics:      metricsCollector,
	}, nil
}

// PredictDayOfYear predicts the optimal planting day-of-year in [1,365]
func (p *Predictor) PredictDayOfYear(ctx context.Context, row models.FeatureRow) (int, error) {
	vec, err := p.preprocessor.Transform(p.order, row)
	if err != nil {
		return 0, fmt.Errorf("failed to encode feature row: %w", err)
	}

	raw := p.model.Predict(vec)
	day := int(math.Round(raw))

	if day < MinDayOfYear {
		p.clampWarning(ctx, raw, day, MinDayOfYear)
		return MinDayOfYear, nil
	}
	if day > MaxDayOfYear {
		p.clampWarning(ctx, raw, day, MaxDayOfYear)
		return MaxDayOfYear, nil
	}

	return day, nil
}

func (p *Predictor) clampWarning(ctx context.Context, raw float64, day, clampedTo int) {
	if p.metrics != nil {
		p.metrics.PredictionClampsTotal.Inc()
	}
	if p.logger != nil {
		p.logger.Warn(ctx, "[PREDICT_CLAMP] Prediction outside valid day-of-year range", logging.Fields{
			"raw_value":   raw,
			"rounded_day": day,
			"clamped_to":  clampedTo,
		})
	}
}
