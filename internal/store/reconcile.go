package store

import "github.com/gridpulse/gridpulse/internal/models"

// Reconcile merges an incoming metric into an existing one for the same
// (region, timestamp) key, keeping every field that the incoming record has no
// real information about. A pass with incomplete endpoint coverage can add to
// a stored record but never degrade it, which keeps overlapping writes from
// concurrent sources commutative and idempotent.
//
// Policy:
//   - load: overwritten only when incoming load > 0
//   - forecast load: overwritten only when incoming value is set and > 0
//   - generation bundle (fuel mix, total generation, renewable fraction,
//     carbon intensity): overwritten together, only when incoming total
//     generation > 0; the derived fields always travel with the breakdown
//   - net interchange: always overwritten (reported as a single instantaneous
//     value, last value wins)
//   - source: follows whichever side last contributed real data
func Reconcile(existing, incoming models.GridMetric) models.GridMetric {
	merged := existing

	if incoming.LoadMW > 0 {
		merged.LoadMW = incoming.LoadMW
		merged.Source = incoming.Source
	}

	if incoming.ForecastLoadMW.Valid && incoming.ForecastLoadMW.Float64 > 0 {
		merged.ForecastLoadMW = incoming.ForecastLoadMW
	}

	if incoming.TotalGenerationMW > 0 {
		merged.TotalGenerationMW = incoming.TotalGenerationMW
		merged.GenerationByFuel = incoming.GenerationByFuel
		merged.RenewablePct = incoming.RenewablePct
		merged.CarbonIntensity = incoming.CarbonIntensity
		merged.Source = incoming.Source
	}

	merged.NetInterchangeMW = incoming.NetInterchangeMW

	return merged
}
