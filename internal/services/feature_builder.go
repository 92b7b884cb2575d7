package services

import (
	"context"
	"fmt"
	"strings"

	"siembra-platform/internal/ml"
	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
)

// FeatureBuilder assembles a model input row from plot data and the
// request, following the model's declared feature order.
type FeatureBuilder struct {
	logger *logging.StructuredLogger
}

// NewFeatureBuilder creates a feature builder.
func NewFeatureBuilder(logger *logging.StructuredLogger) *FeatureBuilder {
	return &FeatureBuilder{logger: logger}
}

// Build produces one feature row for the plot. cultivo fills the "cultivo"
// feature; cultivoAnterior, when non-empty, overrides the previous-crop
// default. Previous crop is never read from plot data: the system of
// record does not track rotation history reliably, so it is caller-supplied
// or defaulted.
func (b *FeatureBuilder) Build(ctx context.Context, artifact *ml.Artifact, plot *models.PlotData, cultivo, cultivoAnterior string) (models.FeatureRow, error) {
	row := make(models.FeatureRow, len(artifact.Metadata.Features))
	defaults := artifact.Metadata.FeatureDefaults

	var missing []string
	for _, name := range artifact.Metadata.Features {
		if value, ok := b.extract(plot, name, cultivo, cultivoAnterior); ok {
			row[name] = value
			continue
		}
		if v, ok := defaults.Numeric[name]; ok {
			row[name] = models.NumberValue(v)
			missing = append(missing, name)
			continue
		}
		if s, ok := defaults.Categorical[name]; ok {
			row[name] = models.TextValue(s)
			missing = append(missing, name)
			continue
		}
		return nil, &models.ConfigError{
			Message: fmt.Sprintf("la característica %q no tiene valor ni default en el modelo", name),
		}
	}

	if len(missing) > 0 {
		b.logger.Debug(ctx, "[FEATURES] Features filled from model defaults", logging.Fields{
			"lote_id":  plot.LoteID,
			"features": strings.Join(missing, ","),
		})
	}
	return row, nil
}

// extract resolves a feature from plot data. Returns false when the plot
// does not carry the value, so defaults apply.
func (b *FeatureBuilder) extract(plot *models.PlotData, name, cultivo, cultivoAnterior string) (models.FeatureValue, bool) {
	switch name {
	case "cultivo":
		return models.TextValue(cultivo), true
	case "cultivo_anterior":
		if cultivoAnterior != "" {
			return models.TextValue(cultivoAnterior), true
		}
		return models.FeatureValue{}, false
	case "latitud":
		if plot.Ubicacion != nil && plot.Ubicacion.Latitud != nil {
			return models.NumberValue(*plot.Ubicacion.Latitud), true
		}
		return models.FeatureValue{}, false
	case "longitud":
		if plot.Ubicacion != nil && plot.Ubicacion.Longitud != nil {
			return models.NumberValue(*plot.Ubicacion.Longitud), true
		}
		return models.FeatureValue{}, false
	case "tipo_suelo":
		if plot.Suelo != nil && plot.Suelo.TipoSuelo != "" {
			return models.TextValue(plot.Suelo.TipoSuelo), true
		}
		return models.FeatureValue{}, false
	case "ph_suelo":
		if plot.Suelo != nil && plot.Suelo.PHSuelo != nil {
			return models.NumberValue(*plot.Suelo.PHSuelo), true
		}
		return models.FeatureValue{}, false
	case "materia_organica_pct":
		if plot.Suelo == nil {
			return models.FeatureValue{}, false
		}
		if plot.Suelo.MateriaOrganicaPct != nil {
			return models.NumberValue(*plot.Suelo.MateriaOrganicaPct), true
		}
		// legacy field name still present in older plot records
		if plot.Suelo.MateriaOrganica != nil {
			return models.NumberValue(*plot.Suelo.MateriaOrganica), true
		}
		return models.FeatureValue{}, false
	case "superficie_ha":
		if plot.SuperficieHa != nil {
			return models.NumberValue(*plot.SuperficieHa), true
		}
		return models.FeatureValue{}, false
	}

	if v, ok := plot.Clima[name]; ok {
		return models.NumberValue(v), true
	}
	return models.FeatureValue{}, false
}
