package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"siembra-platform/pkg/logging"
	"siembra-platform/pkg/metrics"
)

// Daily parameters requested from the NASA POWER API.
const (
	ParamTempMin   = "T2M_MIN"
	ParamTempMax   = "T2M_MAX"
	ParamPrecip    = "PRECTOTCORR"
	ParamWindMax   = "WS10M_MAX"
	ParamRadiation = "ALLSKY_SFC_SW_DWN"
	ParamHumidity  = "RH2M"
)

// ClimateParams is the full set of daily parameters the risk analyzer needs.
var ClimateParams = []string{
	ParamTempMin, ParamTempMax, ParamPrecip,
	ParamWindMax, ParamRadiation, ParamHumidity,
}

// fillValueCutoff filters POWER fill values (-999) that mark missing days.
const fillValueCutoff = -900.0

// DailyClimate holds daily observations keyed by parameter name, then by
// date in YYYYMMDD form.
type DailyClimate map[string]map[string]float64

// HistoricalClimateProvider fetches daily climate observations for a point
// over an inclusive year range.
type HistoricalClimateProvider interface {
	FetchDaily(ctx context.Context, lat, lon float64, startYear, endYear int) (DailyClimate, error)
}

// powerResponse mirrors the POWER daily point payload.
type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// PowerClient fetches daily data from the NASA POWER temporal API. A
// circuit breaker keeps a flapping upstream from stalling every
// recommendation on the full request timeout.
type PowerClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[DailyClimate]
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPowerClient creates a NASA POWER climate provider.
func NewPowerClient(baseURL string, timeout time.Duration, logger *logging.StructuredLogger, collector *metrics.Collector) *PowerClient {
	c := &PowerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: collector,
	}

	settings := gobreaker.Settings{
		Name:        "nasa-power",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "[CLIMATE_BREAKER] Circuit breaker state change", logging.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			if collector != nil {
				collector.ClimateBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[DailyClimate](settings)
	return c
}

// FetchDaily retrieves the six daily parameters for the point over the
// inclusive year range.
func (c *PowerClient) FetchDaily(ctx context.Context, lat, lon float64, startYear, endYear int) (DailyClimate, error) {
	if startYear > endYear {
		return nil, fmt.Errorf("invalid year range %d-%d", startYear, endYear)
	}

	start := time.Now()
	data, err := c.breaker.Execute(func() (DailyClimate, error) {
		return c.fetch(ctx, lat, lon, startYear, endYear)
	})
	if c.metrics != nil {
		c.metrics.ClimateFetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.ClimateFetchErrorsTotal.Inc()
		}
		return nil, err
	}
	return data, nil
}

func (c *PowerClient) fetch(ctx context.Context, lat, lon float64, startYear, endYear int) (DailyClimate, error) {
	q := url.Values{}
	q.Set("parameters", strings.Join(ClimateParams, ","))
	q.Set("community", "AG")
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("start", fmt.Sprintf("%d0101", startYear))
	q.Set("end", fmt.Sprintf("%d1231", endYear))
	q.Set("format", "JSON")

	endpoint := fmt.Sprintf("%s/api/temporal/daily/point?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build climate request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("climate API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn(ctx, "[CLIMATE_FETCH] Climate API returned non-200", logging.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return nil, fmt.Errorf("climate API returned status %d", resp.StatusCode)
	}

	var payload powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode climate payload: %w", err)
	}
	if len(payload.Properties.Parameter) == 0 {
		return nil, fmt.Errorf("climate payload contains no parameters")
	}

	data := make(DailyClimate, len(payload.Properties.Parameter))
	for param, series := range payload.Properties.Parameter {
		clean := make(map[string]float64, len(series))
		for date, value := range series {
			if value <= fillValueCutoff {
				continue
			}
			clean[date] = value
		}
		data[param] = clean
	}
	return data, nil
}
