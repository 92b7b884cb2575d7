package models

// PlotLocation holds geographic coordinates of a lote.
// NULL values represented as pointers (missing coordinates are meaningful)
type PlotLocation struct {
	Latitud  *float64 `json:"latitud,omitempty"`
	Longitud *float64 `json:"longitud,omitempty"`
}

// PlotSoil holds the soil attributes the model consumes.
// MateriaOrganica is the legacy field name still emitted by older
// installations of the system of record; MateriaOrganicaPct wins when both
// are present.
type PlotSoil struct {
	TipoSuelo          string   `json:"tipo_suelo,omitempty"`
	PHSuelo            *float64 `json:"ph_suelo,omitempty"`
	MateriaOrganicaPct *float64 `json:"materia_organica_pct,omitempty"`
	MateriaOrganica    *float64 `json:"materia_organica,omitempty"`
}

// PlotData is the raw lote payload returned by the plot-data provider.
// Clima carries the numeric climate features by name (precipitacion_*,
// temp_media_*).
type PlotData struct {
	LoteID            string             `json:"lote_id"`
	Nombre            string             `json:"nombre,omitempty"`
	EstablecimientoID string             `json:"establecimiento_id,omitempty"`
	SuperficieHa      *float64           `json:"superficie_ha,omitempty"`
	Ubicacion         *PlotLocation      `json:"ubicacion,omitempty"`
	Suelo             *PlotSoil          `json:"suelo,omitempty"`
	Clima             map[string]float64 `json:"clima,omitempty"`
	CultivoAnterior   string             `json:"cultivo_anterior,omitempty"`
}

// Coordinates returns the plot coordinates, second result false when either
// latitude or longitude is missing.
func (p *PlotData) Coordinates() (lat, lon float64, ok bool) {
	if p == nil || p.Ubicacion == nil || p.Ubicacion.Latitud == nil || p.Ubicacion.Longitud == nil {
		return 0, 0, false
	}
	return *p.Ubicacion.Latitud, *p.Ubicacion.Longitud, true
}
