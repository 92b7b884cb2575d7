package services

import (
	"strings"
	"testing"

	"siembra-platform/internal/models"
)

func TestScenarioCatalog(t *testing.T) {
	catalog := ScenarioCatalog()
	if len(catalog) != 6 {
		t.Fatalf("catalog size = %d, want 6", len(catalog))
	}

	wantNames := []string{
		"Sequía severa",
		"Año húmedo extremo",
		"Riesgo de heladas tardías",
		"Ola de calor temprana",
		"Año Niña moderado",
		"Primavera inestable",
	}
	for i, want := range wantNames {
		if catalog[i].Nombre != want {
			t.Errorf("catalog[%d].Nombre = %q, want %q", i, catalog[i].Nombre, want)
		}
	}

	for _, s := range catalog {
		if s.PrecipFactorMin > s.PrecipFactorMax {
			t.Errorf("%s: inverted precipitation factor range", s.Nombre)
		}
		if s.TempDeltaMinC > s.TempDeltaMaxC {
			t.Errorf("%s: inverted temperature delta range", s.Nombre)
		}
		if len(s.Pros) == 0 || len(s.Contras) == 0 {
			t.Errorf("%s: scenarios must carry pros and contras", s.Nombre)
		}
	}
}

func TestPickReturnsCatalogScenario(t *testing.T) {
	names := map[string]bool{}
	for _, s := range ScenarioCatalog() {
		names[s.Nombre] = true
	}

	g := NewScenarioGenerator(3)
	for i := 0; i < 20; i++ {
		if s := g.Pick(); !names[s.Nombre] {
			t.Fatalf("picked unknown scenario %q", s.Nombre)
		}
	}
}

func TestDrawWithinDeclaredRanges(t *testing.T) {
	g := NewScenarioGenerator(42)
	for _, s := range ScenarioCatalog() {
		for i := 0; i < 50; i++ {
			factor, delta := g.Draw(s)
			if factor < s.PrecipFactorMin || factor > s.PrecipFactorMax {
				t.Fatalf("%s: drawn factor %v outside [%v,%v]", s.Nombre, factor, s.PrecipFactorMin, s.PrecipFactorMax)
			}
			if delta < s.TempDeltaMinC || delta > s.TempDeltaMaxC {
				t.Fatalf("%s: drawn delta %v outside [%v,%v]", s.Nombre, delta, s.TempDeltaMinC, s.TempDeltaMaxC)
			}
		}
	}
}

func TestDrawReproducibleWithSeed(t *testing.T) {
	s := ScenarioCatalog()[0]
	g1 := NewScenarioGenerator(7)
	g2 := NewScenarioGenerator(7)

	f1, d1 := g1.Draw(s)
	f2, d2 := g2.Draw(s)
	if f1 != f2 || d1 != d2 {
		t.Errorf("same seed drew different values: (%v,%v) vs (%v,%v)", f1, d1, f2, d2)
	}
}

func TestApplyPerturbsOnlyClimateFeatures(t *testing.T) {
	g := NewScenarioGenerator(1)
	row := models.FeatureRow{
		"precipitacion_oct": models.NumberValue(100.0),
		"temp_media_oct":    models.NumberValue(17.0),
		"ph_suelo":          models.NumberValue(6.5),
		"tipo_suelo":        models.TextValue("franco limoso"),
	}

	out := g.Apply(row, 0.5, 3.0)

	if v, _ := out.Float("precipitacion_oct"); v != 50.0 {
		t.Errorf("precipitacion_oct = %v, want 50.0", v)
	}
	if v, _ := out.Float("temp_media_oct"); v != 20.0 {
		t.Errorf("temp_media_oct = %v, want 20.0", v)
	}
	if v, _ := out.Float("ph_suelo"); v != 6.5 {
		t.Errorf("ph_suelo = %v, want untouched 6.5", v)
	}
	if out["tipo_suelo"].Text != "franco limoso" {
		t.Errorf("tipo_suelo modified: %q", out["tipo_suelo"].Text)
	}

	// original row must be untouched
	if v, _ := row.Float("precipitacion_oct"); v != 100.0 {
		t.Errorf("Apply mutated the input row: precipitacion_oct = %v", v)
	}
}

func TestFrostScenarioMentionsHelada(t *testing.T) {
	for _, s := range ScenarioCatalog() {
		if s.TempDeltaMaxC <= -4.0 {
			if !strings.Contains(strings.ToLower(s.Nombre+s.Descripcion), "helada") &&
				!strings.Contains(strings.ToLower(s.Nombre+s.Descripcion), "frío") {
				t.Errorf("%s: cold scenario should mention frost or cold", s.Nombre)
			}
		}
	}
}
