package models

import "time"

// RecommendationRequest is one unit of work for the recommendation engine
type RecommendationRequest struct {
	LoteID          string `json:"lote_id"`
	ClienteID       string `json:"cliente_id"`
	Cultivo         string `json:"cultivo"`
	Campana         string `json:"campana"`
	CultivoAnterior string `json:"cultivo_anterior,omitempty"`
}

// RiskEntry is one rule-triggered agronomic warning. Severidad is "apto" or
// "alta"; the first entry of a risk list is always the principal verdict.
type RiskEntry struct {
	Severidad   string `json:"severidad"`
	Descripcion string `json:"descripcion"`
}

// Recommendation is the principal planting recommendation
type Recommendation struct {
	FechaOptima string    `json:"fecha_optima"`
	Ventana     [2]string `json:"ventana"`
	Confianza   float64   `json:"confianza"`
	Riesgos     []string  `json:"riesgos"`
}

// ScenarioInfo describes the extreme-weather archetype behind an alternative
type ScenarioInfo struct {
	Nombre              string  `json:"nombre"`
	Descripcion         string  `json:"descripcion"`
	FactorPrecipitacion float64 `json:"factor_precipitacion"`
	AjusteTemperaturaC  float64 `json:"ajuste_temperatura_c"`
}

// Alternative is one scenario-perturbed recommendation
type Alternative struct {
	Fecha     string       `json:"fecha"`
	Ventana   [2]string    `json:"ventana"`
	Confianza float64      `json:"confianza"`
	Pros      []string     `json:"pros"`
	Contras   []string     `json:"contras"`
	Escenario ScenarioInfo `json:"escenario_climatico"`
}

// RecommendationResult is the full engine output for one lote
type RecommendationResult struct {
	LoteID          string         `json:"lote_id"`
	Cultivo         string         `json:"cultivo"`
	Campana         string         `json:"campana"`
	Principal       Recommendation `json:"recomendacion_principal"`
	Alternativas    []Alternative  `json:"alternativas"`
	NivelConfianza  float64        `json:"nivel_confianza"`
	ModeloVersion   string         `json:"modelo_version,omitempty"`
	FechaGeneracion time.Time      `json:"fecha_generacion"`
}

// BulkItem pairs one bulk input with its result or error, preserving input
// order. Error is empty on success.
type BulkItem struct {
	LoteID string                `json:"lote_id"`
	Result *RecommendationResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}
