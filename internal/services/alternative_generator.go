package services

import (
	"context"
	"math"

	"siembra-platform/internal/ml"
	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
)

// AlternativeGenerator produces planting alternatives under perturbed
// climate hypotheses.
type AlternativeGenerator struct {
	predictor  *ml.Predictor
	confidence *ConfidenceEstimator
	dates      *DateConverter
	scenarios  *ScenarioGenerator
	logger     *logging.StructuredLogger
}

// NewAlternativeGenerator creates a generator over the loaded model.
func NewAlternativeGenerator(predictor *ml.Predictor, confidence *ConfidenceEstimator, dates *DateConverter, scenarios *ScenarioGenerator, logger *logging.StructuredLogger) *AlternativeGenerator {
	return &AlternativeGenerator{
		predictor:  predictor,
		confidence: confidence,
		dates:      dates,
		scenarios:  scenarios,
		logger:     logger,
	}
}

// Generate produces one alternative under a randomly picked catalog
// scenario. Confidence is recomputed on the perturbed row, so a scenario
// that pushes features out of the training distribution scores lower than
// the principal recommendation. A failed draw yields no alternative with
// a warning instead of failing the recommendation.
func (g *AlternativeGenerator) Generate(ctx context.Context, row models.FeatureRow, cultivo string, targetYear int) []models.Alternative {
	scenario := g.scenarios.Pick()
	precipFactor, tempDelta := g.scenarios.Draw(scenario)
	perturbed := g.scenarios.Apply(row, precipFactor, tempDelta)

	day, err := g.predictor.PredictDayOfYear(ctx, perturbed)
	if err != nil {
		g.logger.Warn(ctx, "[ALTERNATIVES] Scenario prediction failed", logging.Fields{
			"escenario": scenario.Nombre,
			"error":     err.Error(),
		})
		return nil
	}

	score, err := g.confidence.Score(ctx, perturbed, cultivo)
	if err != nil {
		g.logger.Warn(ctx, "[ALTERNATIVES] Scenario confidence failed", logging.Fields{
			"escenario": scenario.Nombre,
			"error":     err.Error(),
		})
		return nil
	}

	optimal := g.dates.FromDayOfYear(day, targetYear)
	return []models.Alternative{{
		Fecha:     optimal.Format(DateFormat),
		Ventana:   g.dates.Window(optimal),
		Confianza: round2(score),
		Pros:      scenario.Pros,
		Contras:   scenario.Contras,
		Escenario: models.ScenarioInfo{
			Nombre:              scenario.Nombre,
			Descripcion:         scenario.Descripcion,
			FactorPrecipitacion: round2(precipFactor),
			AjusteTemperaturaC:  round1(tempDelta),
		},
	}}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
