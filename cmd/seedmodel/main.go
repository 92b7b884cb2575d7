// Command seedmodel writes a demo trained model into the ml_models table and
// activates it, so a fresh environment can serve recommendations without a
// training pipeline run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"siembra-platform/internal/config"
	"siembra-platform/internal/ml"
	"siembra-platform/internal/models"
	"siembra-platform/internal/repository"
	"siembra-platform/pkg/database"
	"siembra-platform/pkg/logging"
	"siembra-platform/pkg/metrics"
)

func main() {
	version := flag.String("version", "demo-1", "Version label for the seeded model")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("siembra-seedmodel", *version, logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("siembra_seedmodel")
	ctx := context.Background()

	db, err := database.NewPostgresDB(&database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[SEED] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	blob, err := ml.EncodeArtifact(demoArtifact(cfg.Model.Name, *version))
	if err != nil {
		logger.Fatal(ctx, "[SEED] Failed to encode demo artifact", logging.Fields{}, err)
	}
	performance, err := json.Marshal(demoPerformance())
	if err != nil {
		logger.Fatal(ctx, "[SEED] Failed to encode performance metrics", logging.Fields{}, err)
	}

	repo := repository.NewModelRepository(db, logger)
	model := &models.StoredModel{
		ID:                  uuid.NewString(),
		Nombre:              cfg.Model.Name,
		TipoModelo:          cfg.Model.Type,
		Version:             *version,
		ArchivoModelo:       blob,
		MetricasPerformance: performance,
		Activo:              false,
		CreadoEn:            time.Now().UTC(),
	}

	if err := repo.Insert(ctx, model); err != nil {
		logger.Fatal(ctx, "[SEED] Failed to insert model", logging.Fields{}, err)
	}
	if err := repo.Activate(ctx, model.ID); err != nil {
		logger.Fatal(ctx, "[SEED] Failed to activate model", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SEED] Demo model seeded and activated", logging.Fields{
		"id":      model.ID,
		"nombre":  model.Nombre,
		"version": model.Version,
	})
}

// demoArtifact builds a small hand-tuned forest over the production feature
// set. Leaf values are days of year around the historical mid-October
// planting peak. Feature indices refer to the transformed vector: one-hot
// categoricals first expand, then scaled numerics, in metadata order.
func demoArtifact(name, version string) *ml.Artifact {
	leaf := func(value float64) ml.TreeNode {
		return ml.TreeNode{Left: -1, Right: -1, Value: value}
	}

	return &ml.Artifact{
		Metadata: ml.Metadata{
			ModelName:    name,
			ModelVersion: version,
			Features: []string{
				"cultivo", "cultivo_anterior", "latitud", "longitud",
				"tipo_suelo", "ph_suelo", "materia_organica_pct",
				"precipitacion_sep", "precipitacion_oct", "precipitacion_nov",
				"temp_media_sep", "temp_media_oct", "temp_media_nov",
			},
			FeatureDefaults: ml.FeatureDefaults{
				Numeric: map[string]float64{
					"ph_suelo":             6.5,
					"materia_organica_pct": 2.5,
					"precipitacion_sep":    45.0,
					"precipitacion_oct":    85.0,
					"precipitacion_nov":    90.0,
					"temp_media_sep":       13.5,
					"temp_media_oct":       16.5,
					"temp_media_nov":       20.0,
				},
				Categorical: map[string]string{
					"tipo_suelo":       "franco limoso",
					"cultivo_anterior": "soja",
				},
			},
		},
		Preprocessor: &ml.Preprocessor{
			Numeric: map[string]ml.NumericScaler{
				"latitud":              {Mean: -35.0, Std: 2.5},
				"longitud":             {Mean: -63.0, Std: 4.0},
				"ph_suelo":             {Mean: 6.5, Std: 0.5},
				"materia_organica_pct": {Mean: 2.5, Std: 0.8},
				"precipitacion_sep":    {Mean: 45.0, Std: 20.0},
				"precipitacion_oct":    {Mean: 85.0, Std: 30.0},
				"precipitacion_nov":    {Mean: 90.0, Std: 30.0},
				"temp_media_sep":       {Mean: 13.5, Std: 2.5},
				"temp_media_oct":       {Mean: 16.5, Std: 2.5},
				"temp_media_nov":       {Mean: 20.0, Std: 2.5},
			},
			Categorical: map[string]ml.CategoryEncoder{
				"cultivo":          {Values: []string{"cebada", "maiz", "soja", "trigo"}},
				"cultivo_anterior": {Values: []string{"girasol", "maiz", "soja", "trigo"}},
				"tipo_suelo":       {Values: []string{"franco arcilloso", "franco arenoso", "franco limoso"}},
			},
		},
		Model: ml.ModelSpec{
			Type: "random_forest",
			Trees: []ml.Tree{
				// cool October → plant later
				{Nodes: []ml.TreeNode{
					{Feature: 19, Threshold: 0.0, Left: 1, Right: 2},
					leaf(288),
					leaf(275),
				}},
				// dry October → wait for moisture
				{Nodes: []ml.TreeNode{
					{Feature: 16, Threshold: 0.0, Left: 1, Right: 2},
					leaf(293),
					leaf(279),
				}},
				// southern lots plant late; elsewhere soil pH nudges the date
				{Nodes: []ml.TreeNode{
					{Feature: 8, Threshold: -1.0, Left: 1, Right: 2},
					leaf(300),
					{Feature: 13, Threshold: 0.0, Left: 3, Right: 4},
					leaf(282),
					leaf(286),
				}},
			},
		},
	}
}

func demoPerformance() *ml.PerformanceMetrics {
	fp := func(v float64) *float64 { return &v }
	regression := func(r2, rmse, mae float64) *ml.RegressionMetrics {
		return &ml.RegressionMetrics{R2: fp(r2), RMSE: fp(rmse), MAE: fp(mae)}
	}

	return &ml.PerformanceMetrics{
		General: *regression(0.87, 6.8, 5.1),
		Clustering: &ml.ClusteringMetrics{
			Centroids: [][2]float64{
				{-33.89, -60.57},
				{-33.60, -63.80},
				{-39.50, -70.60},
			},
			Clusters: map[string]ml.ClusterMetrics{
				"0": {
					Overall: regression(0.90, 5.9, 4.4),
					ByCrop: map[string]*ml.RegressionMetrics{
						"trigo": regression(0.92, 5.2, 3.9),
						"soja":  regression(0.88, 6.3, 4.8),
					},
					Size: 412,
				},
				"1": {
					Overall: regression(0.85, 7.1, 5.4),
					ByCrop: map[string]*ml.RegressionMetrics{
						"maiz": regression(0.86, 6.9, 5.2),
					},
					Size: 287,
				},
				"2": {
					Overall: regression(0.78, 8.9, 6.7),
					Size:    96,
				},
			},
		},
		FeatureStats: &ml.FeatureStats{
			NumericRanges: map[string]ml.ValueRange{
				"latitud":              {Min: -40.5, Max: -30.0},
				"longitud":             {Min: -71.5, Max: -57.5},
				"ph_suelo":             {Min: 5.5, Max: 7.6},
				"materia_organica_pct": {Min: 0.9, Max: 4.2},
				"precipitacion_sep":    {Min: 12.0, Max: 95.0},
				"precipitacion_oct":    {Min: 18.0, Max: 150.0},
				"precipitacion_nov":    {Min: 20.0, Max: 140.0},
				"temp_media_sep":       {Min: 8.0, Max: 18.5},
				"temp_media_oct":       {Min: 10.5, Max: 21.5},
				"temp_media_nov":       {Min: 13.5, Max: 24.5},
			},
			Categorical: map[string]ml.CategoricalStats{
				"cultivo":          {Values: []string{"cebada", "maiz", "soja", "trigo"}},
				"cultivo_anterior": {Values: []string{"girasol", "maiz", "soja", "trigo"}},
				"tipo_suelo":       {Values: []string{"franco arcilloso", "franco arenoso", "franco limoso"}},
			},
			TargetRange: &ml.ValueRange{Min: 248, Max: 336},
		},
	}
}
