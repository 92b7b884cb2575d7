package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"siembra-platform/internal/clients"
	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
	"siembra-platform/pkg/metrics"
)

// Risk severities reported to callers.
const (
	SeverityHigh = "alta"
	SeverityOK   = "apto"
)

// degradedAdvisory is returned when historical climate cannot be evaluated.
const degradedAdvisory = "No se pudo evaluar el riesgo climático histórico para la ventana; verificar pronósticos locales antes de sembrar."

// noCoordinatesAdvisory distinguishes a plot-data gap from a climate
// data outage.
const noCoordinatesAdvisory = "El lote no tiene coordenadas geográficas registradas; no es posible evaluar el riesgo climático."

// RiskThresholds are the rule-engine trigger levels. Dryness and excess
// rain scale with the window length; the rest are absolute.
type RiskThresholds struct {
	FrostTminC        float64
	DrynessBaseRainMM float64
	DrynessRainPerDay float64
	DrynessTmaxC      float64
	DrynessRHPct      float64
	ExcessRainBaseMM  float64
	ExcessRainPerDay  float64
	HumidityRHPct     float64
	ColdTmaxC         float64
	ColdTminC         float64
}

// DefaultRiskThresholds returns the production rule levels.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
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
	}
}

// windowStats are the per-year aggregates over the planting window.
type windowStats struct {
	year    int
	tminAvg float64
	tmaxAvg float64
	rainSum float64
	windAvg float64
	radAvg  float64
	rhAvg   float64
}

// RiskAnalyzer projects historical climate onto the planting window and
// runs the risk rules over the projection.
type RiskAnalyzer struct {
	climate       clients.HistoricalClimateProvider
	thresholds    RiskThresholds
	lookbackYears int
	minYear       int
	logger        *logging.StructuredLogger
	metrics       *metrics.Collector
	now           func() time.Time
}

// NewRiskAnalyzer creates a risk analyzer over the climate provider.
func NewRiskAnalyzer(climate clients.HistoricalClimateProvider, thresholds RiskThresholds, lookbackYears, minYear int, logger *logging.StructuredLogger, collector *metrics.Collector) *RiskAnalyzer {
	if lookbackYears < 1 {
		lookbackYears = 10
	}
	return &RiskAnalyzer{
		climate:       climate,
		thresholds:    thresholds,
		lookbackYears: lookbackYears,
		minYear:       minYear,
		logger:        logger,
		metrics:       collector,
		now:           time.Now,
	}
}

// Evaluate runs the rule engine for a planting window centered on optimal.
// It never fails: when history cannot be fetched or no usable year
// remains, it degrades to a fixed advisory so the recommendation still
// goes out. The first entry is always the overall verdict.
func (a *RiskAnalyzer) Evaluate(ctx context.Context, lat, lon float64, optimal time.Time, halfWindowDays, targetYear int) []models.RiskEntry {
	stats, err := a.collectHistory(ctx, lat, lon, optimal, halfWindowDays)
	if err != nil {
		a.degrade(ctx, err)
		return []models.RiskEntry{{Severidad: SeverityOK, Descripcion: degradedAdvisory}}
	}

	windowDays := 2*halfWindowDays + 1
	proj := a.project(stats, targetYear)
	return a.applyRules(proj, windowDays)
}

// collectHistory fetches daily history and aggregates the planting window
// per year. Years missing any of the six parameters on any window day are
// dropped: a partial window would bias sums against rain-driven rules.
func (a *RiskAnalyzer) collectHistory(ctx context.Context, lat, lon float64, optimal time.Time, halfWindowDays int) ([]windowStats, error) {
	currentYear := a.now().Year()
	endYear := currentYear
	startYear := currentYear - a.lookbackYears
	if startYear < a.minYear {
		startYear = a.minYear
	}
	if startYear > endYear {
		startYear = endYear
	}

	daily, err := a.climate.FetchDaily(ctx, lat, lon, startYear, endYear)
	if err != nil {
		return nil, err
	}
	for _, param := range clients.ClimateParams {
		if _, ok := daily[param]; !ok {
			return nil, fmt.Errorf("climate history missing parameter %s", param)
		}
	}

	var stats []windowStats
	for year := startYear; year <= endYear; year++ {
		ws, ok := a.aggregateYear(daily, optimal, halfWindowDays, year)
		if !ok {
			continue
		}
		stats = append(stats, ws)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no historical year has complete coverage of the planting window")
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].year < stats[j].year })
	return stats, nil
}

// aggregateYear maps the window onto a historical year, keeping the offset
// from the optimal date so windows spanning the year boundary shift into
// the following year.
func (a *RiskAnalyzer) aggregateYear(daily clients.DailyClimate, optimal time.Time, halfWindowDays, year int) (windowStats, bool) {
	ws := windowStats{year: year}
	var days int

	for offset := -halfWindowDays; offset <= halfWindowDays; offset++ {
		d := optimal.AddDate(0, 0, offset)
		shifted := time.Date(year+(d.Year()-optimal.Year()), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		key := shifted.Format("20060102")

		tmin, ok1 := daily[clients.ParamTempMin][key]
		tmax, ok2 := daily[clients.ParamTempMax][key]
		rain, ok3 := daily[clients.ParamPrecip][key]
		wind, ok4 := daily[clients.ParamWindMax][key]
		rad, ok5 := daily[clients.ParamRadiation][key]
		rh, ok6 := daily[clients.ParamHumidity][key]
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
			return windowStats{}, false
		}

		ws.tminAvg += tmin
		ws.tmaxAvg += tmax
		ws.rainSum += rain
		ws.windAvg += wind
		ws.radAvg += rad
		ws.rhAvg += rh
		days++
	}

	n := float64(days)
	ws.tminAvg /= n
	ws.tmaxAvg /= n
	ws.windAvg /= n
	ws.radAvg /= n
	ws.rhAvg /= n
	return ws, true
}

// project fits a least-squares line per aggregate and extrapolates to the
// target year. A single usable year projects unchanged.
func (a *RiskAnalyzer) project(stats []windowStats, targetYear int) windowStats {
	years := make([]float64, len(stats))
	for i, s := range stats {
		years[i] = float64(s.year)
	}
	pick := func(f func(windowStats) float64) float64 {
		values := make([]float64, len(stats))
		for i, s := range stats {
			values[i] = f(s)
		}
		return linearProject(years, values, float64(targetYear))
	}
	return windowStats{
		year:    targetYear,
		tminAvg: pick(func(s windowStats) float64 { return s.tminAvg }),
		tmaxAvg: pick(func(s windowStats) float64 { return s.tmaxAvg }),
		rainSum: pick(func(s windowStats) float64 { return s.rainSum }),
		windAvg: pick(func(s windowStats) float64 { return s.windAvg }),
		radAvg:  pick(func(s windowStats) float64 { return s.radAvg }),
		rhAvg:   pick(func(s windowStats) float64 { return s.rhAvg }),
	}
}

// applyRules evaluates the trigger rules against the projected window.
func (a *RiskAnalyzer) applyRules(p windowStats, windowDays int) []models.RiskEntry {
	t := a.thresholds
	var triggers []models.RiskEntry

	if p.tminAvg <= t.FrostTminC {
		triggers = append(triggers, models.RiskEntry{
			Severidad:   SeverityHigh,
			Descripcion: fmt.Sprintf("Riesgo de helada: temperatura mínima proyectada %.1f°C en la ventana de siembra", p.tminAvg),
		})
	}

	drynessRain := maxFloat(t.DrynessBaseRainMM, t.DrynessRainPerDay*float64(windowDays))
	if p.rainSum < drynessRain && (p.tmaxAvg >= t.DrynessTmaxC || p.rhAvg <= t.DrynessRHPct) {
		triggers = append(triggers, models.RiskEntry{
			Severidad:   SeverityHigh,
			Descripcion: fmt.Sprintf("Riesgo de sequía: lluvia proyectada %.1f mm con alta demanda evaporativa", p.rainSum),
		})
	}

	excessRain := maxFloat(t.ExcessRainBaseMM, t.ExcessRainPerDay*float64(windowDays))
	if p.rainSum > excessRain {
		triggers = append(triggers, models.RiskEntry{
			Severidad:   SeverityHigh,
			Descripcion: fmt.Sprintf("Riesgo de excesos hídricos: lluvia proyectada %.1f mm en la ventana de siembra", p.rainSum),
		})
	}

	if p.rhAvg >= t.HumidityRHPct {
		triggers = append(triggers, models.RiskEntry{
			Severidad:   SeverityHigh,
			Descripcion: fmt.Sprintf("Riesgo de enfermedades por humedad: humedad relativa proyectada %.1f%%", p.rhAvg),
		})
	}

	verdict := SeverityOK
	if len(triggers) > 0 {
		verdict = SeverityHigh
	}

	entries := make([]models.RiskEntry, 0, len(triggers)+2)
	if verdict == SeverityHigh {
		entries = append(entries, models.RiskEntry{
			Severidad:   SeverityHigh,
			Descripcion: "Riesgo climático alto para la ventana de siembra proyectada",
		})
	} else {
		entries = append(entries, models.RiskEntry{
			Severidad:   SeverityOK,
			Descripcion: "Ventana de siembra apta según el histórico climático",
		})
	}
	entries = append(entries, triggers...)

	// The low-temperature note only accompanies a high-risk verdict.
	if verdict == SeverityHigh && (p.tmaxAvg < t.ColdTmaxC || p.tminAvg < t.ColdTminC) {
		entries = append(entries, models.RiskEntry{
			Severidad:   verdict,
			Descripcion: fmt.Sprintf("Nota: temperaturas frescas para la implantación (máxima %.1f°C, mínima %.1f°C)", p.tmaxAvg, p.tminAvg),
		})
	}
	return entries
}

func (a *RiskAnalyzer) degrade(ctx context.Context, err error) {
	if a.metrics != nil {
		a.metrics.ClimateDegradedTotal.Inc()
	}
	a.logger.Warn(ctx, "[RISK] Climate risk evaluation degraded", logging.Fields{
		"error": err.Error(),
	})
}

// linearProject fits y = a + b*x by least squares and evaluates at x0.
func linearProject(xs, ys []float64, x0 float64) float64 {
	n := float64(len(xs))
	if len(xs) == 1 {
		return ys[0]
	}
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return sumY / n
	}
	b := (n*sumXY - sumX*sumY) / den
	a := (sumY - b*sumX) / n
	return a + b*x0
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
