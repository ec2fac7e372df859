// Package carbon derives emission metrics from a generation fuel mix.
package carbon

import (
	"math"

	"github.com/gridpulse/gridpulse/internal/models"
)

// DefaultEmissionFactors holds per-fuel emission rates in kg CO2 per MWh,
// sourced from EPA eGRID and IPCC lifecycle figures. "other" is a conservative
// estimate covering petroleum, batteries, pumped storage and unknowns.
var DefaultEmissionFactors = map[string]float64{
	models.FuelNaturalGas: 410, // combined cycle gas turbine
	models.FuelCoal:       820,
	models.FuelNuclear:    12, // lifecycle
	models.FuelWind:       11, // lifecycle
	models.FuelSolar:      45, // lifecycle PV
	models.FuelHydro:      24, // lifecycle
	models.FuelOther:      500,
}

const fallbackFactor = 500

// Calculator computes carbon intensity and renewable share from a fuel mix.
// The factor table is injectable for jurisdiction-specific overrides.
type Calculator struct {
	factors map[string]float64
}

// NewCalculator returns a calculator using the given emission factors, or the
// defaults when factors is nil.
func NewCalculator(factors map[string]float64) *Calculator {
	if factors == nil {
		factors = DefaultEmissionFactors
	}
	return &Calculator{factors: factors}
}

// Intensity returns the generation-weighted average emission rate in
// kg CO2/MWh, rounded to 2 decimal places. Fuel categories without a
// configured factor use the "other" factor. Returns 0 when total generation
// is not positive.
func (c *Calculator) Intensity(generationByFuel map[string]float64, totalGenerationMW float64) float64 {
	if totalGenerationMW <= 0 {
		return 0
	}

	otherFactor, ok := c.factors[models.FuelOther]
	if !ok {
		otherFactor = fallbackFactor
	}

	var totalEmissions float64
	for fuel, generationMW := range generationByFuel {
		factor, ok := c.factors[fuel]
		if !ok {
			factor = otherFactor
		}
		totalEmissions += generationMW * factor
	}

	return round2(totalEmissions / totalGenerationMW)
}

// RenewableFraction returns the percentage of generation from wind, solar and
// hydro, rounded to 2 decimal places. Returns 0 when total generation is not
// positive.
func (c *Calculator) RenewableFraction(generationByFuel map[string]float64, totalGenerationMW float64) float64 {
	if totalGenerationMW <= 0 {
		return 0
	}

	renewableMW := generationByFuel[models.FuelWind] +
		generationByFuel[models.FuelSolar] +
		generationByFuel[models.FuelHydro]

	return round2(renewableMW / totalGenerationMW * 100)
}

// EstimateEmissions returns total kg CO2 for running loadMW at the given
// intensity for the given number of hours.
func (c *Calculator) EstimateEmissions(loadMW, carbonIntensity, hours float64) float64 {
	energyMWh := loadMW * hours
	return round2(energyMWh * carbonIntensity)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
