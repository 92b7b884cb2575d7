package ml

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// RegressionMetrics are fit-quality numbers for one slice of the training
// data. Pointers distinguish "absent" from zero.
type RegressionMetrics struct {
	R2   *float64 `json:"r2,omitempty"`
	RMSE *float64 `json:"rmse,omitempty"`
	MAE  *float64 `json:"mae,omitempty"`
}

// Empty reports whether no usable metric is present
func (m *RegressionMetrics) Empty() bool {
	return m == nil || (m.R2 == nil && m.RMSE == nil && m.MAE == nil)
}

// ValueRange is a training-time observed numeric range
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CategoricalStats lists the category values observed at training time
type CategoricalStats struct {
	Values []string `json:"values"`
}

// FeatureStats captures the training-time feature domain, used for
// out-of-distribution detection in the confidence estimator.
type FeatureStats struct {
	NumericRanges map[string]ValueRange       `json:"numeric_ranges,omitempty"`
	Categorical   map[string]CategoricalStats `json:"categorical,omitempty"`
	TargetRange   *ValueRange                 `json:"target_range,omitempty"`
}

// ClusterMetrics are fit-quality numbers within one geographic cluster,
// overall and broken down by prior crop.
type ClusterMetrics struct {
	Overall *RegressionMetrics            `json:"overall,omitempty"`
	ByCrop  map[string]*RegressionMetrics `json:"by_crop,omitempty"`
	Size    int                           `json:"size,omitempty"`
}

// ClusteringMetrics hold the geographic k-means artifacts of the training
// run: centroids as (lat, lon) pairs and per-cluster metrics keyed by the
// centroid index as a string.
type ClusteringMetrics struct {
	Centroids [][2]float64              `json:"centroids,omitempty"`
	Clusters  map[string]ClusterMetrics `json:"clusters,omitempty"`
}

// PerformanceMetrics is the metricas_performance JSONB document of the
// active model. Clustering and FeatureStats are optional enhancements.
type PerformanceMetrics struct {
	General      RegressionMetrics  `json:"general"`
	Clustering   *ClusteringMetrics `json:"clustering,omitempty"`
	FeatureStats *FeatureStats      `json:"feature_stats,omitempty"`
}

// DecodePerformanceMetrics parses the raw JSONB metrics document. A nil or
// empty document yields empty metrics, not an error; whether that is fatal
// is the confidence estimator's call.
func DecodePerformanceMetrics(raw []byte) (*PerformanceMetrics, error) {
	metrics := &PerformanceMetrics{}
	if len(raw) == 0 {
		return metrics, nil
	}
	if err := json.Unmarshal(raw, metrics); err != nil {
		return nil, fmt.Errorf("failed to decode performance metrics: %w", err)
	}
	return metrics, nil
}
