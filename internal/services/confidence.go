package services

import (
	"context"
	"fmt"
	"math"

	"siembra-platform/internal/ml"
	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
)

// ConfidenceWeights controls how the three confidence signals fuse.
type ConfidenceWeights struct {
	General      float64
	Clustering   float64
	FeatureStats float64
}

// Normalised scales the weights to sum to one.
func (w ConfidenceWeights) Normalised() ConfidenceWeights {
	total := w.General + w.Clustering + w.FeatureStats
	if total <= 0 {
		return ConfidenceWeights{General: 1}
	}
	return ConfidenceWeights{
		General:      w.General / total,
		Clustering:   w.Clustering / total,
		FeatureStats: w.FeatureStats / total,
	}
}

// ConfidenceEstimator scores a prediction by fusing three signals: the
// model's global regression metrics, the metrics of the spatial cluster the
// plot falls into, and how far the input features sit from the training
// distribution.
type ConfidenceEstimator struct {
	weights     ConfidenceWeights
	maeRefDays  float64
	rmseRefDays float64
	performance *ml.PerformanceMetrics
	logger      *logging.StructuredLogger
}

// NewConfidenceEstimator creates an estimator over the model's stored
// performance metrics.
func NewConfidenceEstimator(weights ConfidenceWeights, maeRefDays, rmseRefDays float64, performance *ml.PerformanceMetrics, logger *logging.StructuredLogger) *ConfidenceEstimator {
	if maeRefDays <= 0 {
		maeRefDays = 10.0
	}
	if rmseRefDays <= 0 {
		rmseRefDays = 15.0
	}
	return &ConfidenceEstimator{
		weights:     weights.Normalised(),
		maeRefDays:  maeRefDays,
		rmseRefDays: rmseRefDays,
		performance: performance,
		logger:      logger,
	}
}

// Score returns a confidence in [0,1] for a prediction made on row.
// The general signal is mandatory; clustering degrades to the general
// score when no cluster applies, and the feature signal reads 1.0 when the
// model ships no feature statistics.
func (e *ConfidenceEstimator) Score(ctx context.Context, row models.FeatureRow, cultivo string) (float64, error) {
	general, err := e.regressionScore(&e.performance.General)
	if err != nil {
		return 0, err
	}

	clustering := general
	if score, ok := e.clusterScore(row, cultivo); ok {
		clustering = score
	} else {
		e.logger.Debug(ctx, "[CONFIDENCE] Clustering signal unavailable, using general score", logging.Fields{
			"cultivo": cultivo,
		})
	}

	features := e.featureScore(row)

	fused := e.weights.General*general +
		e.weights.Clustering*clustering +
		e.weights.FeatureStats*features
	return clamp01(fused), nil
}

// regressionScore derives a score from R2, RMSE and MAE. Each present
// component contributes with a fixed share; shares renormalize over the
// present subset. All three absent is a model packaging error.
func (e *ConfidenceEstimator) regressionScore(m *ml.RegressionMetrics) (float64, error) {
	if m == nil || m.Empty() {
		return 0, &models.ConfigError{
			Message: "el modelo activo no tiene métricas de performance generales",
		}
	}

	var score, weight float64
	if m.R2 != nil {
		score += 0.60 * clamp01(*m.R2)
		weight += 0.60
	}
	if m.RMSE != nil {
		score += 0.25 * (1 - math.Min(*m.RMSE/e.rmseRefDays, 1))
		weight += 0.25
	}
	if m.MAE != nil {
		score += 0.15 * (1 - math.Min(*m.MAE/e.maeRefDays, 1))
		weight += 0.15
	}
	return clamp01(score / weight), nil
}

// clusterScore locates the nearest centroid to the plot coordinates and
// scores that cluster's metrics, preferring the per-crop breakdown.
func (e *ConfidenceEstimator) clusterScore(row models.FeatureRow, cultivo string) (float64, bool) {
	cm := e.performance.Clustering
	if cm == nil || len(cm.Centroids) == 0 || len(cm.Clusters) == 0 {
		return 0, false
	}
	lat, okLat := row.Float("latitud")
	lon, okLon := row.Float("longitud")
	if !okLat || !okLon {
		return 0, false
	}

	best := -1
	bestDist := math.Inf(1)
	for i, c := range cm.Centroids {
		d := (lat-c[0])*(lat-c[0]) + (lon-c[1])*(lon-c[1])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}

	cluster, ok := cm.Clusters[fmt.Sprintf("%d", best)]
	if !ok {
		return 0, false
	}

	if byCrop, ok := cluster.ByCrop[cultivo]; ok && byCrop != nil && !byCrop.Empty() {
		if score, err := e.regressionScore(byCrop); err == nil {
			return score, true
		}
	}
	if cluster.Overall != nil && !cluster.Overall.Empty() {
		if score, err := e.regressionScore(cluster.Overall); err == nil {
			return score, true
		}
	}
	return 0, false
}

// featureScore measures how in-distribution the input row is. Numeric
// features score 1 inside the training range and decay linearly with the
// excess relative to the range width; categorical features score binary
// membership. The result is the mean over scored features.
func (e *ConfidenceEstimator) featureScore(row models.FeatureRow) float64 {
	fs := e.performance.FeatureStats
	if fs == nil || (len(fs.NumericRanges) == 0 && len(fs.Categorical) == 0) {
		return 1.0
	}

	var total float64
	var count int
	for name, r := range fs.NumericRanges {
		v, ok := row.Float(name)
		if !ok {
			continue
		}
		total += rangeScore(v, r)
		count++
	}
	for name, stats := range fs.Categorical {
		fv, ok := row[name]
		if !ok || fv.Numeric {
			continue
		}
		score := 0.0
		for _, known := range stats.Values {
			if known == fv.Text {
				score = 1.0
				break
			}
		}
		total += score
		count++
	}

	if count == 0 {
		return 1.0
	}
	return total / float64(count)
}

// rangeScore is 1 inside [min,max] and decays linearly outside, reaching 0
// once the excess equals the range width. Degenerate ranges score exact
// matches only.
func rangeScore(v float64, r ml.ValueRange) float64 {
	width := r.Max - r.Min
	if width <= 0 {
		if v == r.Min {
			return 1.0
		}
		return 0.0
	}
	var excess float64
	switch {
	case v < r.Min:
		excess = r.Min - v
	case v > r.Max:
		excess = v - r.Max
	default:
		return 1.0
	}
	return math.Max(0, 1-excess/width)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
