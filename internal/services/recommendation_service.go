package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"siembra-platform/internal/clients"
	"siembra-platform/internal/ml"
	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
	"siembra-platform/pkg/metrics"
)

// AllowedCultivos are the crops the model was trained on.
var AllowedCultivos = map[string]bool{
	"trigo":  true,
	"soja":   true,
	"maiz":   true,
	"cebada": true,
}

// tipoPrediccionSiembra tags stored predictions from this engine.
const tipoPrediccionSiembra = "fecha_siembra"

// PredictionStore persists generated recommendations for audit and history.
type PredictionStore interface {
	Save(ctx context.Context, p *models.Prediction) error
	ListByFilters(ctx context.Context, filter models.PredictionFilter) ([]models.Prediction, error)
}

// Options bundles the policy knobs of the recommendation service.
type Options struct {
	Weights        ConfidenceWeights
	MAERefDays     float64
	RMSERefDays    float64
	HalfWindowDays int
	Thresholds     RiskThresholds
	LookbackYears  int
	MinYear        int
	ScenarioSeed   int64
}

// RecommendationService orchestrates the full pipeline: plot data, feature
// assembly, prediction, confidence, risk rules and scenario alternatives.
type RecommendationService struct {
	loader  *ml.Loader
	plots   clients.PlotDataProvider
	climate clients.HistoricalClimateProvider
	store   PredictionStore
	opts    Options
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	mu           sync.Mutex
	predictor    *ml.Predictor
	confidence   *ConfidenceEstimator
	alternatives *AlternativeGenerator
	risks        *RiskAnalyzer
	dates        *DateConverter
	campaigns    *CampaignParser
	features     *FeatureBuilder
}

// NewRecommendationService wires the pipeline. Model-dependent components
// are built lazily on first use so the server can start before the model
// table is seeded.
func NewRecommendationService(loader *ml.Loader, plots clients.PlotDataProvider, climate clients.HistoricalClimateProvider, store PredictionStore, opts Options, logger *logging.StructuredLogger, collector *metrics.Collector) *RecommendationService {
	return &RecommendationService{
		loader:    loader,
		plots:     plots,
		climate:   climate,
		store:     store,
		opts:      opts,
		logger:    logger,
		metrics:   collector,
		dates:     NewDateConverter(opts.HalfWindowDays),
		campaigns: NewCampaignParser(logger),
		features:  NewFeatureBuilder(logger),
	}
}

// ensureReady loads the model and builds the model-bound components once.
func (s *RecommendationService) ensureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.predictor != nil {
		return nil
	}

	if err := s.loader.Load(ctx); err != nil {
		return err
	}
	artifact, err := s.loader.Artifact()
	if err != nil {
		return err
	}
	performance, err := s.loader.Performance()
	if err != nil {
		return err
	}

	predictor, err := ml.NewPredictor(artifact, s.logger, s.metrics)
	if err != nil {
		return err
	}

	s.predictor = predictor
	s.confidence = NewConfidenceEstimator(s.opts.Weights, s.opts.MAERefDays, s.opts.RMSERefDays, performance, s.logger)
	generator := NewScenarioGenerator(s.opts.ScenarioSeed)
	s.alternatives = NewAlternativeGenerator(predictor, s.confidence, s.dates, generator, s.logger)
	s.risks = NewRiskAnalyzer(s.climate, s.opts.Thresholds, s.opts.LookbackYears, s.opts.MinYear, s.logger, s.metrics)
	return nil
}

// Generate produces the full recommendation for one request.
func (s *RecommendationService) Generate(ctx context.Context, req models.RecommendationRequest) (*models.RecommendationResult, error) {
	start := time.Now()
	result, err := s.generate(ctx, req)
	if s.metrics != nil {
		s.metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordRecommendation(req.Cultivo, status)
	}
	return result, err
}

func (s *RecommendationService) generate(ctx context.Context, req models.RecommendationRequest) (*models.RecommendationResult, error) {
	if req.LoteID == "" {
		return nil, &models.ValidationError{Field: "lote_id", Message: "lote_id es obligatorio"}
	}
	req.Cultivo = strings.ToLower(strings.TrimSpace(req.Cultivo))
	if !AllowedCultivos[req.Cultivo] {
		return nil, &models.ValidationError{
			Field:   "cultivo",
			Value:   req.Cultivo,
			Message: "cultivo no soportado por el modelo",
		}
	}

	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	targetYear, err := s.campaigns.TargetYear(ctx, req.Campana)
	if err != nil {
		return nil, err
	}

	plot, err := s.plots.GetLoteData(ctx, req.LoteID)
	if err != nil {
		return nil, err
	}

	artifact, err := s.loader.Artifact()
	if err != nil {
		return nil, err
	}
	// Rotation history is unreliable upstream: cultivo_anterior comes from
	// the request when stated, otherwise it is forced to the requested crop.
	previous := strings.ToLower(strings.TrimSpace(req.CultivoAnterior))
	if previous == "" {
		previous = req.Cultivo
	}
	row, err := s.features.Build(ctx, artifact, plot, req.Cultivo, previous)
	if err != nil {
		return nil, err
	}

	day, err := s.predictor.PredictDayOfYear(ctx, row)
	if err != nil {
		return nil, err
	}
	optimal := s.dates.FromDayOfYear(day, targetYear)

	score, err := s.confidence.Score(ctx, row, req.Cultivo)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ConfidenceScore.Observe(score)
	}

	riesgos := s.evaluateRisks(ctx, plot, optimal, targetYear)

	alternativas := s.alternatives.Generate(ctx, row, req.Cultivo, targetYear)

	result := &models.RecommendationResult{
		LoteID:  req.LoteID,
		Cultivo: req.Cultivo,
		Campana: req.Campana,
		Principal: models.Recommendation{
			FechaOptima: optimal.Format(DateFormat),
			Ventana:     s.dates.Window(optimal),
			Confianza:   round2(score),
			Riesgos:     riskDescriptions(riesgos),
		},
		Alternativas:    alternativas,
		NivelConfianza:  round2(score),
		ModeloVersion:   s.loader.Version(),
		FechaGeneracion: time.Now().UTC(),
	}

	s.persist(ctx, req, result, optimal)
	return result, nil
}

// evaluateRisks runs the rule engine when coordinates exist, degrading to
// the advisory otherwise.
func (s *RecommendationService) evaluateRisks(ctx context.Context, plot *models.PlotData, optimal time.Time, targetYear int) []models.RiskEntry {
	lat, lon, ok := plot.Coordinates()
	if !ok {
		s.logger.Warn(ctx, "[RISK] Plot has no coordinates, skipping climate risk", logging.Fields{
			"lote_id": plot.LoteID,
		})
		return []models.RiskEntry{{Severidad: SeverityOK, Descripcion: noCoordinatesAdvisory}}
	}
	return s.risks.Evaluate(ctx, lat, lon, optimal, s.opts.HalfWindowDays, targetYear)
}

// persist writes the prediction for audit. A storage failure is logged and
// swallowed: the caller already has the recommendation in hand.
func (s *RecommendationService) persist(ctx context.Context, req models.RecommendationRequest, result *models.RecommendationResult, optimal time.Time) {
	if s.store == nil {
		return
	}

	recomendacion, err := json.Marshal(result.Principal)
	if err != nil {
		s.logger.Error(ctx, "[PERSIST] Failed to encode recommendation", logging.Fields{"lote_id": req.LoteID}, err)
		return
	}
	alternativas, err := json.Marshal(result.Alternativas)
	if err != nil {
		s.logger.Error(ctx, "[PERSIST] Failed to encode alternatives", logging.Fields{"lote_id": req.LoteID}, err)
		return
	}

	desde := optimal.AddDate(0, 0, -s.opts.HalfWindowDays)
	hasta := optimal.AddDate(0, 0, s.opts.HalfWindowDays)
	p := &models.Prediction{
		ID:                uuid.New().String(),
		LoteID:            req.LoteID,
		ClienteID:         req.ClienteID,
		TipoPrediccion:    tipoPrediccionSiembra,
		Cultivo:           req.Cultivo,
		Campana:           req.Campana,
		Recomendacion:     recomendacion,
		Alternativas:      alternativas,
		NivelConfianza:    result.NivelConfianza,
		ModeloVersion:     result.ModeloVersion,
		FechaValidezDesde: &desde,
		FechaValidezHasta: &hasta,
		CreadoEn:          time.Now().UTC(),
	}
	if err := s.store.Save(ctx, p); err != nil {
		s.logger.Error(ctx, "[PERSIST] Failed to store prediction", logging.Fields{
			"lote_id":    req.LoteID,
			"cliente_id": req.ClienteID,
		}, err)
	}
}

// GenerateBulk evaluates many lots concurrently, preserving input order.
// One failed lot never fails the batch.
func (s *RecommendationService) GenerateBulk(ctx context.Context, clienteID, cultivo, campana string, loteIDs []string) []models.BulkItem {
	items := make([]models.BulkItem, len(loteIDs))
	var wg sync.WaitGroup
	for i, loteID := range loteIDs {
		wg.Add(1)
		go func(i int, loteID string) {
			defer wg.Done()
			result, err := s.Generate(ctx, models.RecommendationRequest{
				LoteID:    loteID,
				ClienteID: clienteID,
				Cultivo:   cultivo,
				Campana:   campana,
			})
			item := models.BulkItem{LoteID: loteID}
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Result = result
			}
			items[i] = item
		}(i, loteID)
	}
	wg.Wait()
	return items
}

// History lists past predictions matching the filter, newest first.
func (s *RecommendationService) History(ctx context.Context, filter models.PredictionFilter) ([]models.Prediction, error) {
	if s.store == nil {
		return nil, fmt.Errorf("prediction history is not available without storage")
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListByFilters(ctx, filter)
}

func riskDescriptions(entries []models.RiskEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Descripcion
	}
	return out
}
