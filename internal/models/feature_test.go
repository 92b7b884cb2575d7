package models

import (
	"errors"
	"testing"
)

func TestTextValueNormalizes(t *testing.T) {
	v := TextValue("  Franco Limoso ")
	if v.Text != "franco limoso" {
		t.Errorf("Text = %q, want lowercased and trimmed", v.Text)
	}
	if v.Numeric {
		t.Error("text value must not be numeric")
	}
}

func TestFeatureRowFloat(t *testing.T) {
	row := FeatureRow{
		"latitud":    NumberValue(-33.89),
		"tipo_suelo": TextValue("franco limoso"),
	}

	if v, ok := row.Float("latitud"); !ok || v != -33.89 {
		t.Errorf("Float(latitud) = %v, %v; want -33.89, true", v, ok)
	}
	if _, ok := row.Float("tipo_suelo"); ok {
		t.Error("Float on a text feature must report false")
	}
	if _, ok := row.Float("inexistente"); ok {
		t.Error("Float on a missing feature must report false")
	}
}

func TestFeatureRowCloneIsIndependent(t *testing.T) {
	row := FeatureRow{"precipitacion_oct": NumberValue(100)}
	cloned := row.Clone()
	cloned["precipitacion_oct"] = NumberValue(50)

	if v, _ := row.Float("precipitacion_oct"); v != 100 {
		t.Errorf("clone mutation leaked into the original: %v", v)
	}
}

func TestPlotCoordinates(t *testing.T) {
	lat, lon := -33.89, -60.57
	plot := PlotData{Ubicacion: &PlotLocation{Latitud: &lat, Longitud: &lon}}

	gotLat, gotLon, ok := plot.Coordinates()
	if !ok || gotLat != lat || gotLon != lon {
		t.Errorf("Coordinates = %v, %v, %v; want %v, %v, true", gotLat, gotLon, ok, lat, lon)
	}

	partial := PlotData{Ubicacion: &PlotLocation{Latitud: &lat}}
	if _, _, ok := partial.Coordinates(); ok {
		t.Error("Coordinates must report false without longitude")
	}
}

func TestDomainErrors(t *testing.T) {
	var err error = &ValidationError{Field: "cultivo", Value: "girasol", Message: "cultivo no soportado"}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Error("ValidationError must unwrap with errors.As")
	}
	if validationErr.IsTransient() {
		t.Error("validation errors are never transient")
	}

	nf := &NotFoundError{Resource: "lote", ID: "lote-999"}
	if nf.Error() == "" || nf.IsTransient() {
		t.Errorf("unexpected NotFoundError behavior: %q", nf.Error())
	}

	cfg := &ConfigError{Message: "modelo sin métricas"}
	if cfg.Error() != "modelo sin métricas" {
		t.Errorf("ConfigError message = %q", cfg.Error())
	}
}
