package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"siembra-platform/internal/models"
	"siembra-platform/internal/services"
	"siembra-platform/pkg/database"
	"siembra-platform/pkg/logging"
	"siembra-platform/pkg/metrics"
)

// RecommendationHandler handles the planting recommendation API endpoints
type RecommendationHandler struct {
	service *services.RecommendationService
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(
	service *services.RecommendationService,
	db *database.PostgresDB,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// BulkRequest is the payload of POST /api/recommendations/siembra/bulk
type BulkRequest struct {
	ClienteID string   `json:"cliente_id"`
	Cultivo   string   `json:"cultivo"`
	Campana   string   `json:"campana"`
	LoteIDs   []string `json:"lote_ids"`
}

// BulkResponse wraps the per-lot outcomes of a bulk request
type BulkResponse struct {
	Items []models.BulkItem `json:"items"`
	Total int               `json:"total"`
}

// Recommend handles POST /api/recommendations/siembra
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/recommendations/siembra").Observe(duration.Seconds())
	}()

	var req models.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Generate(ctx, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, "200")
	h.sendJSON(w, result, http.StatusOK)
}

// RecommendBulk handles POST /api/recommendations/siembra/bulk
func (h *RecommendationHandler) RecommendBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/recommendations/siembra/bulk").Observe(duration.Seconds())
	}()

	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.LoteIDs) == 0 {
		h.sendError(w, r, "lote_ids must not be empty", http.StatusBadRequest)
		return
	}
	if len(req.LoteIDs) > 100 {
		h.sendError(w, r, "lote_ids is limited to 100 lots per request", http.StatusBadRequest)
		return
	}

	items := h.service.GenerateBulk(ctx, req.ClienteID, req.Cultivo, req.Campana, req.LoteIDs)

	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, "200")
	h.sendJSON(w, BulkResponse{Items: items, Total: len(items)}, http.StatusOK)
}

// History handles GET /api/recommendations/siembra/history
func (h *RecommendationHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/recommendations/siembra/history").Observe(duration.Seconds())
	}()

	query := r.URL.Query()
	filter := models.PredictionFilter{
		LoteID:    query.Get("lote_id"),
		ClienteID: query.Get("cliente_id"),
		Cultivo:   query.Get("cultivo"),
		Campana:   query.Get("campana"),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			filter.Limit = l
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o > 0 {
			filter.Offset = o
		}
	}

	predictions, err := h.service.History(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API] Failed to list prediction history", logging.Fields{}, err)
		h.sendError(w, r, "failed to retrieve prediction history", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, "200")
	h.sendJSON(w, map[string]interface{}{
		"data":  predictions,
		"total": len(predictions),
	}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *RecommendationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "siembra-platform",
	}

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			h.sendJSON(w, status, http.StatusServiceUnavailable)
			return
		}
		status["database"] = "ok"
	}

	h.sendJSON(w, status, http.StatusOK)
}

// handleServiceError maps engine errors onto HTTP statuses.
func (h *RecommendationHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *models.ValidationError
	var notFoundErr *models.NotFoundError
	var configErr *models.ConfigError

	switch {
	case errors.As(err, &validationErr):
		h.sendError(w, r, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		h.sendError(w, r, notFoundErr.Error(), http.StatusNotFound)
	case errors.As(err, &configErr):
		h.logger.Error(r.Context(), "[API] Engine configuration error", logging.Fields{}, err)
		h.sendError(w, r, "recommendation engine is not correctly configured", http.StatusInternalServerError)
	default:
		h.logger.Error(r.Context(), "[API] Recommendation failed", logging.Fields{}, err)
		h.sendError(w, r, "failed to generate recommendation", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *RecommendationHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *RecommendationHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all recommendation API routes
func (h *RecommendationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/recommendations/siembra", h.Recommend).Methods("POST")
	router.HandleFunc("/api/recommendations/siembra/bulk", h.RecommendBulk).Methods("POST")
	router.HandleFunc("/api/recommendations/siembra/history", h.History).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
