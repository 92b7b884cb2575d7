package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/siembra-platform/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Database        string        `koanf:"database"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// ModelConfig selects the active trained model
type ModelConfig struct {
	Name string `koanf:"name"`
	Type string `koanf:"type"`
}

// PlotDataConfig selects the plot-data provider implementation.
// Mode "mock" serves the built-in fixtures; "http" talks to the system of
// record at BaseURL.
type PlotDataConfig struct {
	Mode    string        `koanf:"mode"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// ClimateConfig controls the historical climate provider
type ClimateConfig struct {
	BaseURL       string        `koanf:"base_url"`
	Timeout       time.Duration `koanf:"timeout"`
	LookbackYears int           `koanf:"lookback_years"`
	MinYear       int           `koanf:"min_year"`
}

// ConfidenceConfig carries the confidence fusion policy values.
// Weights are normalized before use; reference days bound the RMSE/MAE
// derived scores.
type ConfidenceConfig struct {
	GeneralWeight      float64 `koanf:"general_weight"`
	ClusteringWeight   float64 `koanf:"clustering_weight"`
	FeatureStatsWeight float64 `koanf:"feature_stats_weight"`
	MAERefDays         float64 `koanf:"mae_ref_days"`
	RMSERefDays        float64 `koanf:"rmse_ref_days"`
}

// RiskConfig carries the climate risk rule thresholds. All values are
// policy, not physics: changing them changes what "alta" means.
type RiskConfig struct {
	HalfWindowDays    int     `koanf:"half_window_days"`
	FrostTminC        float64 `koanf:"frost_tmin_c"`
	DrynessBaseRainMM float64 `koanf:"dryness_base_rain_mm"`
	DrynessRainPerDay float64 `koanf:"dryness_rain_per_day"`
	DrynessTmaxC      float64 `koanf:"dryness_tmax_c"`
	DrynessRHPct      float64 `koanf:"dryness_rh_pct"`
	ExcessRainBaseMM  float64 `koanf:"excess_rain_base_mm"`
	ExcessRainPerDay  float64 `koanf:"excess_rain_per_day"`
	HumidityRHPct     float64 `koanf:"humidity_rh_pct"`
	ColdTmaxC         float64 `koanf:"cold_tmax_c"`
	ColdTminC         float64 `koanf:"cold_tmin_c"`
}

// ScenarioConfig controls alternative generation. Seed 0 draws a
// time-based seed; any other value makes alternatives reproducible.
type ScenarioConfig struct {
	Seed int64 `koanf:"seed"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Config is the root configuration
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Model      ModelConfig      `koanf:"model"`
	PlotData   PlotDataConfig   `koanf:"plot_data"`
	Climate    ClimateConfig    `koanf:"climate"`
	Confidence ConfidenceConfig `koanf:"confidence"`
	Risk       RiskConfig       `koanf:"risk"`
	Scenario   ScenarioConfig   `koanf:"scenario"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// defaultConfig returns the built-in defaults. The confidence and risk
// values are the calibrated production policy; override deliberately.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "siembra",
			Password:        "",
			Database:        "siembra",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Model: ModelConfig{
			Name: "modelo_siembra",
			Type: "random_forest_regressor",
		},
		PlotData: PlotDataConfig{
			Mode:    "mock",
			BaseURL: "",
			Timeout: 10 * time.Second,
		},
		Climate: ClimateConfig{
			BaseURL:       "https://power.larc.nasa.gov",
			Timeout:       30 * time.Second,
			LookbackYears: 10,
			MinYear:       2010,
		},
		Confidence: ConfidenceConfig{
			GeneralWeight:      0.25,
			ClusteringWeight:   0.40,
			FeatureStatsWeight: 0.35,
			MAERefDays:         10.0,
			RMSERefDays:        15.0,
		},
		Risk: RiskConfig{
			HalfWindowDays:    2,
			FrostTminC:        -2.0,
			DrynessBaseRainMM: 6.0,
			DrynessRainPerDay: 1.5,
			DrynessTmaxC:      30.0,
			DrynessRHPct:      55.0,
			ExcessRainBaseMM:  70.0,
			ExcessRainPerDay:  12.0,
			HumidityRHPct:     95.0,
			ColdTmaxC:         15.0,
			ColdTminC:         5.0,
		},
		Scenario: ScenarioConfig{
			Seed: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration with layered sources:
//  1. built-in defaults
//  2. optional YAML config file
//  3. environment variables (highest priority)
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or ""
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so arbitrary env vars cannot pollute the
// configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"http_host":          "server.host",
		"http_port":          "server.port",
		"http_read_timeout":  "server.read_timeout",
		"http_write_timeout": "server.write_timeout",
		"http_idle_timeout":  "server.idle_timeout",

		"db_host":              "database.host",
		"db_port":              "database.port",
		"db_user":              "database.user",
		"db_password":          "database.password",
		"db_name":              "database.database",
		"db_ssl_mode":          "database.ssl_mode",
		"db_max_open_conns":    "database.max_open_conns",
		"db_max_idle_conns":    "database.max_idle_conns",
		"db_conn_max_lifetime": "database.conn_max_lifetime",

		"model_name": "model.name",
		"model_type": "model.type",

		"plot_data_mode":     "plot_data.mode",
		"plot_data_base_url": "plot_data.base_url",
		"plot_data_timeout":  "plot_data.timeout",

		"climate_base_url":       "climate.base_url",
		"climate_timeout":        "climate.timeout",
		"climate_lookback_years": "climate.lookback_years",
		"climate_min_year":       "climate.min_year",

		"confidence_general_weight":       "confidence.general_weight",
		"confidence_clustering_weight":    "confidence.clustering_weight",
		"confidence_feature_stats_weight": "confidence.feature_stats_weight",
		"confidence_mae_ref_days":         "confidence.mae_ref_days",
		"confidence_rmse_ref_days":        "confidence.rmse_ref_days",

		"risk_half_window_days":     "risk.half_window_days",
		"risk_frost_tmin_c":         "risk.frost_tmin_c",
		"risk_dryness_base_rain_mm": "risk.dryness_base_rain_mm",
		"risk_dryness_rain_per_day": "risk.dryness_rain_per_day",
		"risk_dryness_tmax_c":       "risk.dryness_tmax_c",
		"risk_dryness_rh_pct":       "risk.dryness_rh_pct",
		"risk_excess_rain_base_mm":  "risk.excess_rain_base_mm",
		"risk_excess_rain_per_day":  "risk.excess_rain_per_day",
		"risk_humidity_rh_pct":      "risk.humidity_rh_pct",

		"scenario_seed": "scenario.seed",

		"log_level": "logging.level",
	}

	if mapped, ok := mappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Model.Name == "" || c.Model.Type == "" {
		return fmt.Errorf("model name and type are required")
	}
	switch c.PlotData.Mode {
	case "mock":
	case "http":
		if c.PlotData.BaseURL == "" {
			return fmt.Errorf("plot_data.base_url is required in http mode")
		}
	default:
		return fmt.Errorf("invalid plot_data.mode: %q (want mock or http)", c.PlotData.Mode)
	}
	if c.Climate.LookbackYears < 1 {
		return fmt.Errorf("climate.lookback_years must be at least 1")
	}
	if c.Confidence.GeneralWeight < 0 || c.Confidence.ClusteringWeight < 0 || c.Confidence.FeatureStatsWeight < 0 {
		return fmt.Errorf("confidence weights must be non-negative")
	}
	if c.Confidence.GeneralWeight+c.Confidence.ClusteringWeight+c.Confidence.FeatureStatsWeight <= 0 {
		return fmt.Errorf("at least one confidence weight must be positive")
	}
	return nil
}
