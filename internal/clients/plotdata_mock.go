package clients

import (
	"context"

	"siembra-platform/internal/models"
)

func f64(v float64) *float64 { return &v }

// mockPlots are representative lots across the main production regions,
// used when plot_data.mode is "mock" and in tests.
var mockPlots = map[string]*models.PlotData{
	"lote-001": {
		LoteID:            "lote-001",
		Nombre:            "Lote Pergamino Norte",
		EstablecimientoID: "est-pergamino",
		SuperficieHa:      f64(120.5),
		Ubicacion:         &models.PlotLocation{Latitud: f64(-33.89), Longitud: f64(-60.57)},
		Suelo: &models.PlotSoil{
			TipoSuelo:          "franco limoso",
			PHSuelo:            f64(6.2),
			MateriaOrganicaPct: f64(3.1),
		},
		Clima: map[string]float64{
			"precipitacion_sep": 65.0,
			"precipitacion_oct": 110.0,
			"precipitacion_nov": 105.0,
			"temp_media_sep":    14.5,
			"temp_media_oct":    17.8,
			"temp_media_nov":    21.2,
		},
	},
	"lote-002": {
		LoteID:            "lote-002",
		Nombre:            "Lote Sur Córdoba",
		EstablecimientoID: "est-cordoba",
		SuperficieHa:      f64(84.0),
		Ubicacion:         &models.PlotLocation{Latitud: f64(-33.6), Longitud: f64(-63.8)},
		Suelo: &models.PlotSoil{
			TipoSuelo:          "franco arenoso",
			PHSuelo:            f64(6.8),
			MateriaOrganicaPct: f64(2.4),
		},
		Clima: map[string]float64{
			"precipitacion_sep": 40.0,
			"precipitacion_oct": 80.0,
			"precipitacion_nov": 95.0,
			"temp_media_sep":    15.0,
			"temp_media_oct":    18.5,
			"temp_media_nov":    22.0,
		},
	},
	"lote-003": {
		LoteID:            "lote-003",
		Nombre:            "Lote Cordillera Neuquén",
		EstablecimientoID: "est-neuquen",
		SuperficieHa:      f64(45.3),
		Ubicacion:         &models.PlotLocation{Latitud: f64(-39.5), Longitud: f64(-70.6)},
		Suelo: &models.PlotSoil{
			TipoSuelo:          "franco arcilloso",
			PHSuelo:            f64(7.1),
			MateriaOrganicaPct: f64(1.8),
		},
		Clima: map[string]float64{
			"precipitacion_sep": 22.0,
			"precipitacion_oct": 30.0,
			"precipitacion_nov": 28.0,
			"temp_media_sep":    9.5,
			"temp_media_oct":    12.0,
			"temp_media_nov":    15.5,
		},
	},
}

// mockPlotDataClient serves an in-memory fixture set. It backs local
// development and the default deployment mode until the farm API is wired.
type mockPlotDataClient struct{}

// NewMockPlotDataClient creates a PlotDataProvider serving built-in fixtures.
func NewMockPlotDataClient() PlotDataProvider {
	return &mockPlotDataClient{}
}

func (c *mockPlotDataClient) GetLoteData(_ context.Context, loteID string) (*models.PlotData, error) {
	plot, ok := mockPlots[loteID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "lote", ID: loteID}
	}
	copied := *plot
	return &copied, nil
}
