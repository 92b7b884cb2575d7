package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"siembra-platform/internal/models"
	"siembra-platform/pkg/database"
	"siembra-platform/pkg/logging"
)

// ModelRepository reads and writes trained model rows. GetActive satisfies
// the loader's ModelStore contract.
type ModelRepository interface {
	GetActive(ctx context.Context, nombre, tipoModelo string) (*models.StoredModel, error)
	Insert(ctx context.Context, m *models.StoredModel) error
	Activate(ctx context.Context, id string) error
}

type modelRepository struct {
	db     *database.PostgresDB
	logger *logging.StructuredLogger
}

// NewModelRepository creates a PostgreSQL-backed model repository.
func NewModelRepository(db *database.PostgresDB, logger *logging.StructuredLogger) ModelRepository {
	return &modelRepository{db: db, logger: logger}
}

// GetActive returns the single active model for the name/type pair.
func (r *modelRepository) GetActive(ctx context.Context, nombre, tipoModelo string) (*models.StoredModel, error) {
	query := `
		SELECT id, nombre, tipo_modelo, version, archivo_modelo,
		       metricas_performance, activo, creado_en
		FROM ml_models
		WHERE nombre = $1 AND tipo_modelo = $2 AND activo = TRUE
		ORDER BY creado_en DESC
		LIMIT 1`

	var m models.StoredModel
	err := r.db.GetContext(ctx, "get_active_model", &m, query, nombre, tipoModelo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "modelo activo", ID: nombre + "/" + tipoModelo}
		}
		return nil, fmt.Errorf("failed to fetch active model: %w", err)
	}
	return &m, nil
}

// Insert stores a new model version, inactive by default.
func (r *modelRepository) Insert(ctx context.Context, m *models.StoredModel) error {
	if m.CreadoEn.IsZero() {
		m.CreadoEn = time.Now().UTC()
	}
	query := `
		INSERT INTO ml_models (id, nombre, tipo_modelo, version, archivo_modelo,
		                       metricas_performance, activo, creado_en)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, "insert_model", query,
		m.ID, m.Nombre, m.TipoModelo, m.Version, m.ArchivoModelo,
		m.MetricasPerformance, m.Activo, m.CreadoEn)
	if err != nil {
		return fmt.Errorf("failed to insert model %s: %w", m.Nombre, err)
	}
	return nil
}

// Activate marks the model active and deactivates its siblings of the same
// name and type, keeping the active-model invariant.
func (r *modelRepository) Activate(ctx context.Context, id string) error {
	deactivate := `
		UPDATE ml_models SET activo = FALSE
		WHERE activo = TRUE
		  AND (nombre, tipo_modelo) = (SELECT nombre, tipo_modelo FROM ml_models WHERE id = $1)`
	if _, err := r.db.ExecContext(ctx, "deactivate_models", deactivate, id); err != nil {
		return fmt.Errorf("failed to deactivate previous models: %w", err)
	}

	activate := `UPDATE ml_models SET activo = TRUE WHERE id = $1`
	result, err := r.db.ExecContext(ctx, "activate_model", activate, id)
	if err != nil {
		return fmt.Errorf("failed to activate model %s: %w", id, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return &models.NotFoundError{Resource: "modelo", ID: id}
	}
	return nil
}
