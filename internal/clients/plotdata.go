package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
)

// PlotDataProvider fetches the descriptive data of a farm plot from the
// system of record.
type PlotDataProvider interface {
	GetLoteData(ctx context.Context, loteID string) (*models.PlotData, error)
}

// httpPlotDataClient talks to the farm-management API over HTTP.
type httpPlotDataClient struct {
	baseURL string
	client  *http.Client
	logger  *logging.StructuredLogger
}

// NewHTTPPlotDataClient creates a PlotDataProvider backed by the farm
// management API at baseURL.
func NewHTTPPlotDataClient(baseURL string, timeout time.Duration, logger *logging.StructuredLogger) PlotDataProvider {
	return &httpPlotDataClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *httpPlotDataClient) GetLoteData(ctx context.Context, loteID string) (*models.PlotData, error) {
	endpoint := fmt.Sprintf("%s/api/lotes/%s", c.baseURL, url.PathEscape(loteID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build plot data request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plot data for lote %s: %w", loteID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &models.NotFoundError{Resource: "lote", ID: loteID}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn(ctx, "[PLOT_DATA] Unexpected status from plot API", logging.Fields{
			"lote_id": loteID,
			"status":  resp.StatusCode,
			"body":    string(body),
		})
		return nil, fmt.Errorf("plot API returned status %d for lote %s", resp.StatusCode, loteID)
	}

	var plot models.PlotData
	if err := json.NewDecoder(resp.Body).Decode(&plot); err != nil {
		return nil, fmt.Errorf("failed to decode plot data for lote %s: %w", loteID, err)
	}
	if plot.LoteID == "" {
		plot.LoteID = loteID
	}
	return &plot, nil
}
