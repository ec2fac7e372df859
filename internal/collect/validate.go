package collect

import (
	"github.com/gridpulse/gridpulse/internal/models"
)

const (
	FlagLoadNegative        = "load_negative"
	FlagGenerationNegative  = "generation_negative"
	FlagFuelNegative        = "fuel_negative"
	FlagRenewableOutOfRange = "renewable_out_of_range"
	FlagIntensityNegative   = "intensity_negative"
	FlagLoadImplausible     = "load_implausible"
)

// No single US region has ever approached this; values above it indicate a
// unit or parse problem upstream.
const maxPlausibleLoadMW = 200_000

// ValidateMetric returns quality flags for a transformed record. Flags are
// advisory: flagged records are still loaded, the flags are logged so bad
// provider data is visible without losing the rest of the batch.
func ValidateMetric(m *models.GridMetric) []string {
	var flags []string

	if m.LoadMW < 0 {
		flags = append(flags, FlagLoadNegative)
	}
	if m.LoadMW > maxPlausibleLoadMW {
		flags = append(flags, FlagLoadImplausible)
	}
	if m.TotalGenerationMW < 0 {
		flags = append(flags, FlagGenerationNegative)
	}
	for _, mw := range m.GenerationByFuel {
		if mw < 0 {
			flags = append(flags, FlagFuelNegative)
			break
		}
	}
	if m.RenewablePct < 0 || m.RenewablePct > 100 {
		flags = append(flags, FlagRenewableOutOfRange)
	}
	if m.CarbonIntensity < 0 {
		flags = append(flags, FlagIntensityNegative)
	}

	return flags
}
