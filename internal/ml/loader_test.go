package ml

import (
	"context"
	"errors"
	"testing"

	"siembra-platform/internal/models"
)

type fakeModelStore struct {
	model *models.StoredModel
	err   error
	calls int
}

func (s *fakeModelStore) GetActive(_ context.Context, _, _ string) (*models.StoredModel, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

func storedModel(t *testing.T, artifact *Artifact, metrics []byte) *models.StoredModel {
	t.Helper()
	blob, err := EncodeArtifact(artifact)
	if err != nil {
		t.Fatalf("EncodeArtifact failed: %v", err)
	}
	return &models.StoredModel{
		ID:                  "model-1",
		Nombre:              "modelo_siembra",
		TipoModelo:          "random_forest_regressor",
		Version:             "v3",
		ArchivoModelo:       blob,
		MetricasPerformance: metrics,
		Activo:              true,
	}
}

func TestLoaderLoad(t *testing.T) {
	store := &fakeModelStore{
		model: storedModel(t, linearArtifact(280, []float64{1, 1}), []byte(`{"general":{"r2":0.9}}`)),
	}
	loader := NewLoader(store, "modelo_siembra", "random_forest_regressor", testLogger(), nil)

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	artifact, err := loader.Artifact()
	if err != nil {
		t.Fatalf("Artifact failed: %v", err)
	}
	if len(artifact.Metadata.Features) != 2 {
		t.Errorf("feature count = %d, want 2", len(artifact.Metadata.Features))
	}
	if loader.Version() != "v3" {
		t.Errorf("Version = %q, want v3", loader.Version())
	}

	performance, err := loader.Performance()
	if err != nil {
		t.Fatalf("Performance failed: %v", err)
	}
	if performance.General.R2 == nil || *performance.General.R2 != 0.9 {
		t.Errorf("unexpected general R2: %+v", performance.General)
	}

	// second Load hits the cache
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1", store.calls)
	}

	loader.Invalidate()
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load after Invalidate failed: %v", err)
	}
	if store.calls != 2 {
		t.Errorf("store calls after invalidate = %d, want 2", store.calls)
	}
}

func TestLoaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeModelStore
	}{
		{
			name:  "no active model",
			store: &fakeModelStore{err: errors.New("sql: no rows")},
		},
		{
			name: "unreadable artifact",
			store: &fakeModelStore{model: &models.StoredModel{
				ID:            "model-bad",
				ArchivoModelo: []byte("{not json"),
			}},
		},
		{
			name: "empty feature order",
			store: &fakeModelStore{
				model: storedModel(t, &Artifact{Model: ModelSpec{Type: "linear"}}, nil),
			},
		},
		{
			name: "unreadable metrics",
			store: &fakeModelStore{
				model: storedModel(t, linearArtifact(280, nil), []byte("{broken")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(tt.store, "modelo_siembra", "random_forest_regressor", testLogger(), nil)
			err := loader.Load(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var configErr *models.ConfigError
			if !errors.As(err, &configErr) {
				t.Errorf("error type = %T, want *models.ConfigError", err)
			}
		})
	}
}

func TestLoaderAccessorsBeforeLoad(t *testing.T) {
	loader := NewLoader(&fakeModelStore{}, "modelo_siembra", "random_forest_regressor", testLogger(), nil)
	if _, err := loader.Artifact(); err == nil {
		t.Error("Artifact before Load should fail")
	}
	if _, err := loader.Performance(); err == nil {
		t.Error("Performance before Load should fail")
	}
}
