package carbon

import (
	"testing"

	"github.com/gridpulse/gridpulse/internal/models"
)

func TestIntensity(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		name     string
		mix      map[string]float64
		totalGen float64
		want     float64
	}{
		{
			name:     "zero generation returns zero",
			mix:      map[string]float64{models.FuelCoal: 0},
			totalGen: 0,
			want:     0,
		},
		{
			name:     "negative generation returns zero",
			mix:      map[string]float64{models.FuelCoal: 100},
			totalGen: -5,
			want:     0,
		},
		{
			name:     "all wind",
			mix:      map[string]float64{models.FuelWind: 1000},
			totalGen: 1000,
			want:     11,
		},
		{
			name: "wind and gas mix",
			mix: map[string]float64{
				models.FuelWind:       400,
				models.FuelNaturalGas: 600,
			},
			totalGen: 1000,
			want:     250.4, // (400*11 + 600*410) / 1000
		},
		{
			name:     "unknown fuel uses other factor",
			mix:      map[string]float64{"geothermal_mw": 100},
			totalGen: 100,
			want:     500,
		},
		{
			name: "rounds to two decimals",
			mix: map[string]float64{
				models.FuelNuclear: 1,
				models.FuelCoal:    2,
			},
			totalGen: 3,
			want:     550.67, // (12 + 1640) / 3 = 550.666...
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Intensity(tt.mix, tt.totalGen)
			if got != tt.want {
				t.Errorf("Intensity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntensityScaleInvariant(t *testing.T) {
	calc := NewCalculator(nil)

	mix := map[string]float64{
		models.FuelNaturalGas: 600,
		models.FuelCoal:       200,
		models.FuelWind:       150,
		models.FuelSolar:      50,
	}
	base := calc.Intensity(mix, 1000)

	for _, scale := range []float64{2, 10, 0.5} {
		scaled := make(map[string]float64, len(mix))
		for f, mw := range mix {
			scaled[f] = mw * scale
		}
		got := calc.Intensity(scaled, 1000*scale)
		if got != base {
			t.Errorf("Intensity at scale %v = %v, want %v", scale, got, base)
		}
	}
}

func TestRenewableFraction(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		name     string
		mix      map[string]float64
		totalGen float64
		want     float64
	}{
		{
			name:     "zero generation returns zero",
			mix:      map[string]float64{models.FuelWind: 100},
			totalGen: 0,
			want:     0,
		},
		{
			name: "wind solar hydro counted",
			mix: map[string]float64{
				models.FuelWind:       100,
				models.FuelSolar:      100,
				models.FuelHydro:      100,
				models.FuelNaturalGas: 700,
			},
			totalGen: 1000,
			want:     30,
		},
		{
			name:     "nuclear not renewable",
			mix:      map[string]float64{models.FuelNuclear: 1000},
			totalGen: 1000,
			want:     0,
		},
		{
			name:     "all renewable",
			mix:      map[string]float64{models.FuelHydro: 500},
			totalGen: 500,
			want:     100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.RenewableFraction(tt.mix, tt.totalGen)
			if got != tt.want {
				t.Errorf("RenewableFraction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateEmissions(t *testing.T) {
	calc := NewCalculator(nil)

	if got := calc.EstimateEmissions(1000, 250.4, 1); got != 250400 {
		t.Errorf("EstimateEmissions(1000, 250.4, 1) = %v, want 250400", got)
	}
	if got := calc.EstimateEmissions(500, 100, 2.5); got != 125000 {
		t.Errorf("EstimateEmissions(500, 100, 2.5) = %v, want 125000", got)
	}
	if got := calc.EstimateEmissions(0, 250.4, 1); got != 0 {
		t.Errorf("EstimateEmissions(0, 250.4, 1) = %v, want 0", got)
	}
}

func TestCustomEmissionFactors(t *testing.T) {
	calc := NewCalculator(map[string]float64{
		models.FuelNaturalGas: 300,
		models.FuelOther:      100,
	})

	mix := map[string]float64{models.FuelNaturalGas: 1000}
	if got := calc.Intensity(mix, 1000); got != 300 {
		t.Errorf("Intensity with custom factor = %v, want 300", got)
	}

	// Fuels missing from the table fall back to the configured other factor.
	mix = map[string]float64{models.FuelCoal: 1000}
	if got := calc.Intensity(mix, 1000); got != 100 {
		t.Errorf("Intensity fallback = %v, want 100", got)
	}
}
