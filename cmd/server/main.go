package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"siembra-platform/internal/clients"
	"siembra-platform/internal/config"
	"siembra-platform/internal/handlers"
	"siembra-platform/internal/ml"
	"siembra-platform/internal/repository"
	"siembra-platform/internal/services"
	"siembra-platform/pkg/database"
	"siembra-platform/pkg/logging"
	"siembra-platform/pkg/metrics"
)

const serverVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("siembra-api", serverVersion, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting siembra platform API server", logging.Fields{
		"version":     serverVersion,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
		"model_name":  cfg.Model.Name,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("siembra_platform")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repositories
	modelRepo := repository.NewModelRepository(db, logger)
	predictionRepo := repository.NewPredictionRepository(db, logger)

	// Initialize external clients
	var plotProvider clients.PlotDataProvider
	switch cfg.PlotData.Mode {
	case "http":
		plotProvider = clients.NewHTTPPlotDataClient(cfg.PlotData.BaseURL, cfg.PlotData.Timeout, logger)
	default:
		plotProvider = clients.NewMockPlotDataClient()
		logger.Warn(ctx, "[STARTUP] Serving plot data from built-in fixtures", logging.Fields{})
	}
	climateProvider := clients.NewPowerClient(cfg.Climate.BaseURL, cfg.Climate.Timeout, logger, metricsCollector)

	// Initialize model loader and recommendation service
	loader := ml.NewLoader(modelRepo, cfg.Model.Name, cfg.Model.Type, logger, metricsCollector)

	opts := services.Options{
		Weights: services.ConfidenceWeights{
			General:      cfg.Confidence.GeneralWeight,
			Clustering:   cfg.Confidence.ClusteringWeight,
			FeatureStats: cfg.Confidence.FeatureStatsWeight,
		},
		MAERefDays:     cfg.Confidence.MAERefDays,
		RMSERefDays:    cfg.Confidence.RMSERefDays,
		HalfWindowDays: cfg.Risk.HalfWindowDays,
		Thresholds: services.RiskThresholds{
			FrostTminC:        cfg.Risk.FrostTminC,
			DrynessBaseRainMM: cfg.Risk.DrynessBaseRainMM,
			DrynessRainPerDay: cfg.Risk.DrynessRainPerDay,
			DrynessTmaxC:      cfg.Risk.DrynessTmaxC,
			DrynessRHPct:      cfg.Risk.DrynessRHPct,
			ExcessRainBaseMM:  cfg.Risk.ExcessRainBaseMM,
			ExcessRainPerDay:  cfg.Risk.ExcessRainPerDay,
			HumidityRHPct:     cfg.Risk.HumidityRHPct,
			ColdTmaxC:         cfg.Risk.ColdTmaxC,
			ColdTminC:         cfg.Risk.ColdTminC,
		},
		LookbackYears: cfg.Climate.LookbackYears,
		MinYear:       cfg.Climate.MinYear,
		ScenarioSeed:  cfg.Scenario.Seed,
	}
	recommendationService := services.NewRecommendationService(
		loader, plotProvider, climateProvider, predictionRepo, opts, logger, metricsCollector)

	// Initialize handlers
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService, db, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()

	// Register routes
	recommendationHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
