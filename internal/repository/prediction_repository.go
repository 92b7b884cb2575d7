package repository

import (
	"context"
	"fmt"
	"strings"

	"siembra-platform/internal/models"
	"siembra-platform/pkg/database"
	"siembra-platform/pkg/logging"
)

// PredictionRepository persists and queries the predicciones audit table.
// It satisfies the recommendation service's PredictionStore contract.
type PredictionRepository interface {
	Save(ctx context.Context, p *models.Prediction) error
	ListByFilters(ctx context.Context, filter models.PredictionFilter) ([]models.Prediction, error)
}

type predictionRepository struct {
	db     *database.PostgresDB
	logger *logging.StructuredLogger
}

// NewPredictionRepository creates a PostgreSQL-backed prediction repository.
func NewPredictionRepository(db *database.PostgresDB, logger *logging.StructuredLogger) PredictionRepository {
	return &predictionRepository{db: db, logger: logger}
}

// Save appends one prediction row.
func (r *predictionRepository) Save(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predicciones (id, lote_id, cliente_id, tipo_prediccion, cultivo,
		                          campana, recomendacion, alternativas, nivel_confianza,
		                          modelo_version, fecha_validez_desde, fecha_validez_hasta, creado_en)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, "save_prediction", query,
		p.ID, p.LoteID, p.ClienteID, p.TipoPrediccion, p.Cultivo,
		p.Campana, p.Recomendacion, p.Alternativas, p.NivelConfianza,
		p.ModeloVersion, p.FechaValidezDesde, p.FechaValidezHasta, p.CreadoEn)
	if err != nil {
		return fmt.Errorf("failed to save prediction for lote %s: %w", p.LoteID, err)
	}
	return nil
}

// ListByFilters returns recent predictions, newest first. Empty filters are
// skipped; the query is built from whichever filters are present.
func (r *predictionRepository) ListByFilters(ctx context.Context, filter models.PredictionFilter) ([]models.Prediction, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	addFilter("lote_id", filter.LoteID)
	addFilter("cliente_id", filter.ClienteID)
	addFilter("cultivo", filter.Cultivo)
	addFilter("campana", filter.Campana)

	query := `
		SELECT id, lote_id, cliente_id, tipo_prediccion, cultivo, campana,
		       recomendacion, alternativas, nivel_confianza, modelo_version,
		       fecha_validez_desde, fecha_validez_hasta, creado_en
		FROM predicciones`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY creado_en DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset)

	predictions := []models.Prediction{}
	if err := r.db.SelectContext(ctx, "list_predictions", &predictions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return predictions, nil
}
