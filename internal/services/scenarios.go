package services

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"siembra-platform/internal/models"
)

// Scenario describes a perturbed climate hypothesis used to generate an
// alternative planting date. PrecipFactor multiplies every precipitation
// feature; TempDelta shifts every mean-temperature feature, both drawn
// uniformly from the declared range.
type Scenario struct {
	Nombre          string
	Descripcion     string
	PrecipFactorMin float64
	PrecipFactorMax float64
	TempDeltaMinC   float64
	TempDeltaMaxC   float64
	Pros            []string
	Contras         []string
}

// ScenarioCatalog returns the extreme-but-plausible climate archetypes one
// of which is drawn for each recommendation.
func ScenarioCatalog() []Scenario {
	return []Scenario{
		{
			Nombre:          "Sequía severa",
			Descripcion:     "Escenario con precipitaciones 50% por debajo del promedio y temperaturas 4°C más altas",
			PrecipFactorMin: 0.45,
			PrecipFactorMax: 0.55,
			TempDeltaMinC:   3.5,
			TempDeltaMaxC:   4.5,
			Pros:            []string{"Menor riesgo de anegamiento", "Reducción de enfermedades fúngicas"},
			Contras:         []string{"Severo estrés hídrico durante ciclo", "Germinación comprometida", "Rendimientos significativamente reducidos"},
		},
		{
			Nombre:          "Año húmedo extremo",
			Descripcion:     "Escenario con precipitaciones 60% por encima del promedio y temperaturas 2°C más bajas",
			PrecipFactorMin: 1.55,
			PrecipFactorMax: 1.65,
			TempDeltaMinC:   -2.5,
			TempDeltaMaxC:   -1.5,
			Pros:            []string{"Excelente disponibilidad hídrica", "Sin limitaciones por agua durante ciclo"},
			Contras:         []string{"Alto riesgo de enfermedades fúngicas", "Posible anegamiento en lotes bajos", "Dificultades en labores de campo"},
		},
		{
			Nombre:          "Riesgo de heladas tardías",
			Descripcion:     "Escenario con temperaturas 5°C por debajo del promedio en periodo crítico",
			PrecipFactorMin: 0.90,
			PrecipFactorMax: 1.10,
			TempDeltaMinC:   -5.5,
			TempDeltaMaxC:   -4.5,
			Pros:            []string{"Buena humedad en suelo", "Menor evapotranspiración"},
			Contras:         []string{"Alto riesgo de daño por heladas", "Desarrollo inicial muy lento", "Posible pérdida total del cultivo"},
		},
		{
			Nombre:          "Ola de calor temprana",
			Descripcion:     "Escenario con temperaturas 6°C por encima del promedio y baja humedad",
			PrecipFactorMin: 0.60,
			PrecipFactorMax: 0.75,
			TempDeltaMinC:   5.0,
			TempDeltaMaxC:   6.5,
			Pros:            []string{"Germinación muy rápida", "Desarrollo inicial acelerado"},
			Contras:         []string{"Severo estrés térmico e hídrico", "Agotamiento rápido de humedad", "Acortamiento significativo del ciclo"},
		},
		{
			Nombre:          "Año Niña moderado",
			Descripcion:     "Escenario típico de año La Niña con precipitaciones reducidas y temperaturas elevadas",
			PrecipFactorMin: 0.65,
			PrecipFactorMax: 0.80,
			TempDeltaMinC:   2.0,
			TempDeltaMaxC:   3.5,
			Pros:            []string{"Menor riesgo de anegamiento", "Germinación más rápida"},
			Contras:         []string{"Disponibilidad hídrica limitada", "Mayor estrés durante floración"},
		},
		{
			Nombre:          "Primavera inestable",
			Descripcion:     "Escenario con alta variabilidad: precipitaciones excesivas y temperaturas erráticas",
			PrecipFactorMin: 1.30,
			PrecipFactorMax: 1.50,
			TempDeltaMinC:   -1.5,
			TempDeltaMaxC:   1.5,
			Pros:            []string{"Buena recarga de humedad", "Temperaturas moderadas"},
			Contras:         []string{"Alta variabilidad climática", "Dificultad en planificación de labores", "Riesgo de enfermedades por humedad"},
		},
	}
}

// Feature prefixes the perturbation applies to.
const (
	precipPrefix = "precipitacion_"
	tempPrefix   = "temp_media_"
)

// ScenarioGenerator picks scenarios, draws concrete factor/delta values
// and applies them to feature rows. Seed 0 uses a time-based seed; a fixed
// seed makes alternatives reproducible across requests.
type ScenarioGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewScenarioGenerator creates a generator from the configured seed.
func NewScenarioGenerator(seed int64) *ScenarioGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ScenarioGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Pick selects one catalog scenario uniformly at random.
func (g *ScenarioGenerator) Pick() Scenario {
	catalog := ScenarioCatalog()
	g.mu.Lock()
	defer g.mu.Unlock()
	return catalog[g.rng.Intn(len(catalog))]
}

// Draw samples a concrete precipitation factor and temperature delta for
// the scenario.
func (g *ScenarioGenerator) Draw(s Scenario) (precipFactor, tempDelta float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	precipFactor = s.PrecipFactorMin + g.rng.Float64()*(s.PrecipFactorMax-s.PrecipFactorMin)
	tempDelta = s.TempDeltaMinC + g.rng.Float64()*(s.TempDeltaMaxC-s.TempDeltaMinC)
	return precipFactor, tempDelta
}

// Apply returns a copy of the row with every precipitation feature scaled
// and every mean-temperature feature shifted. Non-climate features pass
// through untouched.
func (g *ScenarioGenerator) Apply(row models.FeatureRow, precipFactor, tempDelta float64) models.FeatureRow {
	out := row.Clone()
	for name, fv := range out {
		if !fv.Numeric {
			continue
		}
		switch {
		case strings.HasPrefix(name, precipPrefix):
			out[name] = models.NumberValue(fv.Number * precipFactor)
		case strings.HasPrefix(name, tempPrefix):
			out[name] = models.NumberValue(fv.Number + tempDelta)
		}
	}
	return out
}
