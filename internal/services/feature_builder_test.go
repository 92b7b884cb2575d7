package services

import (
	"context"
	"errors"
	"testing"

	"siembra-platform/internal/ml"
	"siembra-platform/internal/models"
)

func testArtifact(features []string) *ml.Artifact {
	return &ml.Artifact{
		Metadata: ml.Metadata{
			Features: features,
			FeatureDefaults: ml.FeatureDefaults{
				Numeric: map[string]float64{
					"ph_suelo":          6.5,
					"precipitacion_oct": 85.0,
				},
				Categorical: map[string]string{
					"tipo_suelo":       "franco limoso",
					"cultivo_anterior": "soja",
				},
			},
		},
		Preprocessor: &ml.Preprocessor{},
	}
}

func testPlot() *models.PlotData {
	lat, lon, ph, mo := -33.89, -60.57, 6.2, 3.1
	return &models.PlotData{
		LoteID:    "lote-001",
		Ubicacion: &models.PlotLocation{Latitud: &lat, Longitud: &lon},
		Suelo: &models.PlotSoil{
			TipoSuelo:          "franco limoso",
			PHSuelo:            &ph,
			MateriaOrganicaPct: &mo,
		},
		Clima: map[string]float64{"precipitacion_oct": 110.0},
	}
}

func TestBuildFromPlotData(t *testing.T) {
	b := NewFeatureBuilder(testLogger())
	artifact := testArtifact([]string{
		"cultivo", "cultivo_anterior", "latitud", "longitud",
		"tipo_suelo", "ph_suelo", "precipitacion_oct",
	})

	row, err := b.Build(context.Background(), artifact, testPlot(), "trigo", "maiz")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if row["cultivo"].Text != "trigo" {
		t.Errorf("cultivo = %q, want trigo", row["cultivo"].Text)
	}
	if row["cultivo_anterior"].Text != "maiz" {
		t.Errorf("cultivo_anterior = %q, want request override maiz", row["cultivo_anterior"].Text)
	}
	if lat, _ := row.Float("latitud"); lat != -33.89 {
		t.Errorf("latitud = %v, want -33.89", lat)
	}
	if rain, _ := row.Float("precipitacion_oct"); rain != 110.0 {
		t.Errorf("precipitacion_oct = %v, want plot value 110.0", rain)
	}
}

func TestBuildAppliesDefaults(t *testing.T) {
	b := NewFeatureBuilder(testLogger())
	artifact := testArtifact([]string{"cultivo", "cultivo_anterior", "ph_suelo", "precipitacion_oct", "tipo_suelo"})

	// empty plot: everything except cultivo comes from defaults
	row, err := b.Build(context.Background(), artifact, &models.PlotData{LoteID: "lote-x"}, "soja", "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if row["cultivo_anterior"].Text != "soja" {
		t.Errorf("cultivo_anterior = %q, want default soja", row["cultivo_anterior"].Text)
	}
	if ph, _ := row.Float("ph_suelo"); ph != 6.5 {
		t.Errorf("ph_suelo = %v, want default 6.5", ph)
	}
	if row["tipo_suelo"].Text != "franco limoso" {
		t.Errorf("tipo_suelo = %q, want default franco limoso", row["tipo_suelo"].Text)
	}
}

func TestBuildLegacyOrganicMatterFallback(t *testing.T) {
	b := NewFeatureBuilder(testLogger())
	artifact := testArtifact([]string{"materia_organica_pct"})
	artifact.Metadata.FeatureDefaults.Numeric["materia_organica_pct"] = 2.5

	legacy := 1.9
	plot := &models.PlotData{
		LoteID: "lote-legacy",
		Suelo:  &models.PlotSoil{MateriaOrganica: &legacy},
	}

	row, err := b.Build(context.Background(), artifact, plot, "trigo", "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if mo, _ := row.Float("materia_organica_pct"); mo != 1.9 {
		t.Errorf("materia_organica_pct = %v, want legacy value 1.9", mo)
	}
}

func TestBuildMissingDefaultFails(t *testing.T) {
	b := NewFeatureBuilder(testLogger())
	artifact := testArtifact([]string{"cultivo", "radiacion_media"})

	_, err := b.Build(context.Background(), artifact, &models.PlotData{LoteID: "lote-x"}, "trigo", "")
	if err == nil {
		t.Fatal("expected error for feature without value or default")
	}
	var configErr *models.ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("error type = %T, want *models.ConfigError", err)
	}
}
