package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"siembra-platform/internal/clients"
)

type stubClimate struct {
	data clients.DailyClimate
	err  error
}

func (s *stubClimate) FetchDaily(_ context.Context, _, _ float64, _, _ int) (clients.DailyClimate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

// syntheticHistory fills the October planting window of every year in
// [startYear, endYear] with constant values per parameter.
func syntheticHistory(startYear, endYear int, values map[string]float64) clients.DailyClimate {
	data := clients.DailyClimate{}
	for _, param := range clients.ClimateParams {
		data[param] = map[string]float64{}
	}
	for year := startYear; year <= endYear; year++ {
		for day := 10; day <= 20; day++ {
			key := time.Date(year, time.October, day, 0, 0, 0, 0, time.UTC).Format("20060102")
			for param, value := range values {
				data[param][key] = value
			}
		}
	}
	return data
}

func newTestAnalyzer(climate clients.HistoricalClimateProvider) *RiskAnalyzer {
	a := NewRiskAnalyzer(climate, DefaultRiskThresholds(), 10, 2010, testLogger(), nil)
	a.now = func() time.Time { return time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC) }
	return a
}

func octoberOptimal() time.Time {
	return time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)
}

func TestEvaluateFrostRisk(t *testing.T) {
	climate := &stubClimate{data: syntheticHistory(2016, 2026, map[string]float64{
		clients.ParamTempMin:   -3.0,
		clients.ParamTempMax:   10.0,
		clients.ParamPrecip:    2.0,
		clients.ParamWindMax:   5.0,
		clients.ParamRadiation: 15.0,
		clients.ParamHumidity:  60.0,
	})}
	a := newTestAnalyzer(climate)

	entries := a.Evaluate(context.Background(), -33.89, -60.57, octoberOptimal(), 2, 2026)
	if len(entries) < 2 {
		t.Fatalf("expected verdict plus triggers, got %v", entries)
	}
	if entries[0].Severidad != SeverityHigh {
		t.Errorf("verdict severity = %q, want %q", entries[0].Severidad, SeverityHigh)
	}

	var mentionsFrost bool
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Descripcion), "helada") {
			mentionsFrost = true
		}
	}
	if !mentionsFrost {
		t.Errorf("frost conditions must produce a message mentioning helada: %v", entries)
	}
}

func TestEvaluateAptWindow(t *testing.T) {
	climate := &stubClimate{data: syntheticHistory(2016, 2026, map[string]float64{
		clients.ParamTempMin:   8.0,
		clients.ParamTempMax:   22.0,
		clients.ParamPrecip:    8.0, // 40 mm over the 5-day window
		clients.ParamWindMax:   6.0,
		clients.ParamRadiation: 18.0,
		clients.ParamHumidity:  65.0,
	})}
	a := newTestAnalyzer(climate)

	entries := a.Evaluate(context.Background(), -33.89, -60.57, octoberOptimal(), 2, 2026)
	if len(entries) != 1 {
		t.Fatalf("apt window should produce only the verdict, got %v", entries)
	}
	if entries[0].Severidad != SeverityOK {
		t.Errorf("verdict severity = %q, want %q", entries[0].Severidad, SeverityOK)
	}
}

func TestEvaluateDrynessAndExcess(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]float64
		fragment string
	}{
		{
			name: "dryness",
			values: map[string]float64{
				clients.ParamTempMin:   12.0,
				clients.ParamTempMax:   32.0,
				clients.ParamPrecip:    0.5, // 2.5 mm over the window
				clients.ParamWindMax:   8.0,
				clients.ParamRadiation: 22.0,
				clients.ParamHumidity:  40.0,
			},
			fragment: "sequía",
		},
		{
			name: "excess rain",
			values: map[string]float64{
				clients.ParamTempMin:   10.0,
				clients.ParamTempMax:   20.0,
				clients.ParamPrecip:    20.0, // 100 mm over the window
				clients.ParamWindMax:   6.0,
				clients.ParamRadiation: 12.0,
				clients.ParamHumidity:  80.0,
			},
			fragment: "excesos",
		},
		{
			name: "disease humidity",
			values: map[string]float64{
				clients.ParamTempMin:   12.0,
				clients.ParamTempMax:   22.0,
				clients.ParamPrecip:    10.0,
				clients.ParamWindMax:   4.0,
				clients.ParamRadiation: 10.0,
				clients.ParamHumidity:  97.0,
			},
			fragment: "humedad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(&stubClimate{data: syntheticHistory(2016, 2026, tt.values)})
			entries := a.Evaluate(context.Background(), -33.89, -60.57, octoberOptimal(), 2, 2026)

			if entries[0].Severidad != SeverityHigh {
				t.Fatalf("verdict = %q, want %q (entries: %v)", entries[0].Severidad, SeverityHigh, entries)
			}
			var found bool
			for _, e := range entries {
				if strings.Contains(strings.ToLower(e.Descripcion), tt.fragment) {
					found = true
				}
			}
			if !found {
				t.Errorf("no entry mentions %q: %v", tt.fragment, entries)
			}
		})
	}
}

func TestEvaluateDegradesOnFetchFailure(t *testing.T) {
	a := newTestAnalyzer(&stubClimate{err: errors.New("upstream unavailable")})

	entries := a.Evaluate(context.Background(), -33.89, -60.57, octoberOptimal(), 2, 2026)
	if len(entries) != 1 {
		t.Fatalf("degraded evaluation should return one advisory, got %v", entries)
	}
	if entries[0].Descripcion != degradedAdvisory {
		t.Errorf("advisory = %q, want fixed degradation message", entries[0].Descripcion)
	}
}

func TestEvaluateDegradesOnIncompleteCoverage(t *testing.T) {
	data := syntheticHistory(2016, 2026, map[string]float64{
		clients.ParamTempMin:   8.0,
		clients.ParamTempMax:   22.0,
		clients.ParamPrecip:    8.0,
		clients.ParamWindMax:   6.0,
		clients.ParamRadiation: 18.0,
		clients.ParamHumidity:  65.0,
	})
	// knock out one humidity reading per year: no year stays complete
	for year := 2016; year <= 2026; year++ {
		key := time.Date(year, time.October, 15, 0, 0, 0, 0, time.UTC).Format("20060102")
		delete(data[clients.ParamHumidity], key)
	}
	a := newTestAnalyzer(&stubClimate{data: data})

	entries := a.Evaluate(context.Background(), -33.89, -60.57, octoberOptimal(), 2, 2026)
	if len(entries) != 1 || entries[0].Descripcion != degradedAdvisory {
		t.Errorf("incomplete coverage should degrade to the advisory, got %v", entries)
	}
}

func TestLinearProject(t *testing.T) {
	xs := []float64{2016, 2017, 2018, 2019, 2020}
	ys := []float64{10, 9, 8, 7, 6}

	if got := linearProject(xs, ys, 2026); math.Abs(got-0.0) > 1e-9 {
		t.Errorf("declining trend projection = %v, want 0", got)
	}
	if got := linearProject([]float64{2020}, []float64{4.2}, 2026); got != 4.2 {
		t.Errorf("single-year projection = %v, want unchanged 4.2", got)
	}
}

func TestWindowSpansYearBoundary(t *testing.T) {
	// Dec 31 optimal: window reaches into January of the following year
	data := clients.DailyClimate{}
	for _, param := range clients.ClimateParams {
		data[param] = map[string]float64{}
	}
	for year := 2016; year <= 2026; year++ {
		for offset := -2; offset <= 2; offset++ {
			d := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
			key := d.Format("20060102")
			data[clients.ParamTempMin][key] = 14.0
			data[clients.ParamTempMax][key] = 28.0
			data[clients.ParamPrecip][key] = 5.0
			data[clients.ParamWindMax][key] = 7.0
			data[clients.ParamRadiation][key] = 24.0
			data[clients.ParamHumidity][key] = 60.0
		}
	}
	a := newTestAnalyzer(&stubClimate{data: data})

	optimal := time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)
	entries := a.Evaluate(context.Background(), -33.89, -60.57, optimal, 2, 2026)
	if entries[0].Descripcion == degradedAdvisory {
		t.Fatalf("year-boundary window should aggregate, got degradation: %v", entries)
	}
	if entries[0].Severidad != SeverityOK {
		t.Errorf("verdict = %q, want %q", entries[0].Severidad, SeverityOK)
	}
}

func TestColdNoteOnlyAccompaniesHighRisk(t *testing.T) {
	// Cool but otherwise benign: verdict stays apto, no cold note.
	apt := newTestAnalyzer(&stubClimate{data: syntheticHistory(2016, 2026, map[string]float64{
		clients.ParamTempMin:   3.0, // above frost, below the cold note level
		clients.ParamTempMax:   18.0,
		clients.ParamPrecip:    8.0,
		clients.ParamWindMax:   6.0,
		clients.ParamRadiation: 18.0,
		clients.ParamHumidity:  65.0,
	})})
	entries := apt.Evaluate(context.Background(), -33.89, -60.57, octoberOptimal(), 2, 2026)
	if entries[0].Severidad != SeverityOK {
		t.Fatalf("verdict = %q, want %q (entries: %v)", entries[0].Severidad, SeverityOK, entries)
	}
	if len(entries) != 1 {
		t.Fatalf("apt verdict must not carry the cold note, got %v", entries)
	}

	// Frost conditions: high risk plus the cold note.
	frosty := newTestAnalyzer(&stubClimate{data: syntheticHistory(2016, 2026, map[string]float64{
		clients.ParamTempMin:   -3.0,
		clients.ParamTempMax:   10.0,
		clients.ParamPrecip:    8.0,
		clients.ParamWindMax:   6.0,
		clients.ParamRadiation: 18.0,
		clients.ParamHumidity:  65.0,
	})})
	entries = frosty.Evaluate(context.Background(), -33.89, -60.57, octoberOptimal(), 2, 2026)
	if entries[0].Severidad != SeverityHigh {
		t.Fatalf("verdict = %q, want %q", entries[0].Severidad, SeverityHigh)
	}
	var hasNote bool
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Descripcion), "frescas") {
			hasNote = true
		}
	}
	if !hasNote {
		t.Errorf("high-risk cold window should carry the cold note: %v", entries)
	}
}
