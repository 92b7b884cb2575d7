package models

import "time"

// StoredModel is one row of the ml_models table. ArchivoModelo is the
// serialized artifact blob; MetricasPerformance is the raw JSONB metrics
// document written by the training process.
type StoredModel struct {
	ID                  string    `json:"id" db:"id"`
	Nombre              string    `json:"nombre" db:"nombre"`
	TipoModelo          string    `json:"tipo_modelo" db:"tipo_modelo"`
	Version             string    `json:"version" db:"version"`
	ArchivoModelo       []byte    `json:"-" db:"archivo_modelo"`
	MetricasPerformance []byte    `json:"metricas_performance" db:"metricas_performance"`
	Activo              bool      `json:"activo" db:"activo"`
	CreadoEn            time.Time `json:"creado_en" db:"creado_en"`
}

// Prediction is one row of the append-only predicciones audit table.
// Recomendacion and Alternativas hold the JSON payloads as generated.
type Prediction struct {
	ID                string     `json:"id" db:"id"`
	LoteID            string     `json:"lote_id" db:"lote_id"`
	ClienteID         string     `json:"cliente_id" db:"cliente_id"`
	TipoPrediccion    string     `json:"tipo_prediccion" db:"tipo_prediccion"`
	Cultivo           string     `json:"cultivo" db:"cultivo"`
	Campana           string     `json:"campana" db:"campana"`
	Recomendacion     []byte     `json:"recomendacion" db:"recomendacion"`
	Alternativas      []byte     `json:"alternativas" db:"alternativas"`
	NivelConfianza    float64    `json:"nivel_confianza" db:"nivel_confianza"`
	ModeloVersion     string     `json:"modelo_version" db:"modelo_version"`
	FechaValidezDesde *time.Time `json:"fecha_validez_desde,omitempty" db:"fecha_validez_desde"`
	FechaValidezHasta *time.Time `json:"fecha_validez_hasta,omitempty" db:"fecha_validez_hasta"`
	CreadoEn          time.Time  `json:"creado_en" db:"creado_en"`
}

// PredictionFilter narrows a history query. Empty string fields are not
// applied; Limit and Offset are normalized by the service.
type PredictionFilter struct {
	LoteID    string
	ClienteID string
	Cultivo   string
	Campana   string
	Limit     int
	Offset    int
}
