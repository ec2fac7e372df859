package models

import (
	"database/sql"
	"time"
)

// Region is a canonical grid-operating area (ISO/RTO interconnection or
// balancing authority). Region codes are unique and never change once seeded.
type Region struct {
	RegionID       string
	Name           string
	Timezone       string
	Latitude       float64
	Longitude      float64
	CoverageStates []string
	RegionType     string // "ISO" or "BA"
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Fuel category keys used in GridMetric.GenerationByFuel. The set is fixed;
// provider fuel codes outside it fold into FuelOther.
const (
	FuelNaturalGas = "natural_gas_mw"
	FuelCoal       = "coal_mw"
	FuelNuclear    = "nuclear_mw"
	FuelWind       = "wind_mw"
	FuelSolar      = "solar_mw"
	FuelHydro      = "hydro_mw"
	FuelOther      = "other_mw"
)

// FuelCategories lists every tracked fuel category.
var FuelCategories = []string{
	FuelNaturalGas,
	FuelCoal,
	FuelNuclear,
	FuelWind,
	FuelSolar,
	FuelHydro,
	FuelOther,
}

// NewFuelMix returns a fuel breakdown with every category zeroed.
func NewFuelMix() map[string]float64 {
	mix := make(map[string]float64, len(FuelCategories))
	for _, f := range FuelCategories {
		mix[f] = 0
	}
	return mix
}

// GridMetric is one hour of grid telemetry for a region, keyed by
// (RegionID, TimestampUTC). Total generation is tracked independently of the
// fuel breakdown and may diverge slightly from its sum when endpoints report
// asynchronously.
type GridMetric struct {
	ID                int64
	TimestampUTC      time.Time
	RegionID          string
	LoadMW            float64
	ForecastLoadMW    sql.NullFloat64
	TotalGenerationMW float64
	GenerationByFuel  map[string]float64
	NetInterchangeMW  float64 // positive = net import
	RenewablePct      float64
	CarbonIntensity   float64 // kg CO2 per MWh
	LMPPriceUSDMWh    sql.NullFloat64
	Source            string
	CreatedAt         time.Time
}

// Run statuses reported by collectors.
const (
	RunSuccess = "success"
	RunFailed  = "failed"
)

// RunResult summarizes one collector invocation. Collectors always return a
// well-formed result; failures surface here, never as errors to the driver.
type RunResult struct {
	Source           string
	StartedAt        time.Time
	CompletedAt      time.Time
	Status           string
	RecordsProcessed int
	Error            string
}
