package ml

import (
	"context"
	"fmt"
	"sync"
	"time"

	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
	"siembra-platform/pkg/metrics"
)

// ModelStore fetches the active trained model for a (name, type) pair.
// Implemented by the Postgres model repository; fakes in tests.
type ModelStore interface {
	GetActive(ctx context.Context, nombre, tipoModelo string) (*models.StoredModel, error)
}

// Loader deserializes the active model artifact and caches it in-process.
// Load is idempotent: once loaded, repeated calls are no-ops until
// Invalidate. The cached artifact is shared, read-only state; concurrent
// predictions may use it freely.
type Loader struct {
	store     ModelStore
	modelName string
	modelType string
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector

	mu          sync.RWMutex
	loaded      bool
	artifact    *Artifact
	performance *PerformanceMetrics
	modelID     string
	version     string
}

// NewLoader creates a model loader bound to one logical model
func NewLoader(store ModelStore, modelName, modelType string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Loader {
	return &Loader{
		store:     store,
		modelName: modelName,
		modelType: modelType,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Load fetches and deserializes the active model. Safe to call repeatedly.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.RLock()
	if l.loaded {
		l.mu.RUnlock()
		return nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}

	start := time.Now()

	stored, err := l.store.GetActive(ctx, l.modelName, l.modelType)
	if err != nil {
		return &models.ConfigError{Message: fmt.Sprintf(
			"no active model for nombre=%s tipo=%s: %v", l.modelName, l.modelType, err)}
	}

	artifact, err := DecodeArtifact(stored.ArchivoModelo)
	if err != nil {
		return &models.ConfigError{Message: fmt.Sprintf(
			"active model %s has an unreadable artifact: %v", stored.ID, err)}
	}

	if len(artifact.Metadata.Features) == 0 {
		return &models.ConfigError{Message: fmt.Sprintf(
			"active model %s declares an empty feature order", stored.ID)}
	}

	performance, err := DecodePerformanceMetrics(stored.MetricasPerformance)
	if err != nil {
		return &models.ConfigError{Message: fmt.Sprintf(
			"active model %s has unreadable performance metrics: %v", stored.ID, err)}
	}

	if artifact.Metadata.ModelVersion == "" {
		artifact.Metadata.ModelVersion = stored.Version
	}
	if artifact.Metadata.ModelName == "" {
		artifact.Metadata.ModelName = stored.Nombre
	}

	l.artifact = artifact
	l.performance = performance
	l.modelID = stored.ID
	l.version = stored.Version
	l.loaded = true

	if l.metrics != nil {
		l.metrics.ModelLoadsTotal.Inc()
		l.metrics.ModelLoadDuration.Observe(time.Since(start).Seconds())
	}
	if l.logger != nil {
		l.logger.Info(ctx, "[MODEL_LOAD] Model artifact loaded", logging.Fields{
			"model_id":      l.modelID,
			"model_name":    stored.Nombre,
			"model_version": stored.Version,
			"features":      len(artifact.Metadata.Features),
			"duration_ms":   time.Since(start).Milliseconds(),
		})
	}

	return nil
}

// Invalidate drops the cached artifact; the next Load re-fetches
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = false
	l.artifact = nil
	l.performance = nil
	l.modelID = ""
	l.version = ""
}

// Artifact returns the loaded artifact
func (l *Loader) Artifact() (*Artifact, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.loaded {
		return nil, &models.ConfigError{Message: "model not loaded: call Load first"}
	}
	return l.artifact, nil
}

// Performance returns the loaded performance metrics document
func (l *Loader) Performance() (*PerformanceMetrics, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.loaded {
		return nil, &models.ConfigError{Message: "model not loaded: call Load first"}
	}
	return l.performance, nil
}

// Version returns the version of the loaded model, empty when not loaded
func (l *Loader) Version() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}
