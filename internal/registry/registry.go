// Package registry maps provider balancing-authority codes to canonical grid
// regions.
package registry

import (
	"github.com/gridpulse/gridpulse/internal/models"
)

// entry describes one balancing-authority code. Primary entries carry full
// region metadata and seed a region row; alias entries (Name empty) only fold
// a utility-level code up into its parent region and never create a row.
type entry struct {
	RegionID string
	Name     string
	Timezone string
	Lat      float64
	Lon      float64
	States   []string
	Type     string
}

// baRegions is the static balancing-authority table. Covers the seven major
// US ISO/RTO codes plus the utility sub-codes that report under them in EIA
// hourly data.
var baRegions = map[string]entry{
	// ISO/RTO codes as they appear in demand data.
	"ERCO": {RegionID: "ERCOT", Name: "Electric Reliability Council of Texas", Timezone: "US/Central", Lat: 31.0, Lon: -99.0, States: []string{"TX"}, Type: "ISO"},
	"CISO": {RegionID: "CAISO", Name: "California ISO", Timezone: "US/Pacific", Lat: 37.0, Lon: -120.0, States: []string{"CA"}, Type: "ISO"},
	"PJM":  {RegionID: "PJM", Name: "PJM Interconnection", Timezone: "US/Eastern", Lat: 40.0, Lon: -77.0, States: []string{"PA", "NJ", "MD", "DE", "VA", "WV", "OH", "DC"}, Type: "ISO"},
	"NYIS": {RegionID: "NYISO", Name: "New York ISO", Timezone: "US/Eastern", Lat: 42.0, Lon: -75.0, States: []string{"NY"}, Type: "ISO"},
	"ISNE": {RegionID: "ISONE", Name: "ISO New England", Timezone: "US/Eastern", Lat: 42.0, Lon: -71.0, States: []string{"MA", "CT", "RI", "NH", "VT", "ME"}, Type: "ISO"},
	"MISO": {RegionID: "MISO", Name: "Midcontinent ISO", Timezone: "US/Central", Lat: 41.0, Lon: -89.0, States: []string{"IL", "IN", "MI", "MN", "WI", "IA", "MO", "AR", "LA", "MS"}, Type: "ISO"},
	"SWPP": {RegionID: "SPP", Name: "Southwest Power Pool", Timezone: "US/Central", Lat: 35.0, Lon: -98.0, States: []string{"OK", "KS", "NE", "SD", "ND"}, Type: "ISO"},

	// ERCOT aliases.
	"ERCOT": {RegionID: "ERCOT"},

	// CAISO aliases.
	"BANC": {RegionID: "CAISO"}, "LDWP": {RegionID: "CAISO"}, "TIDC": {RegionID: "CAISO"},
	"IID": {RegionID: "CAISO"}, "WALC": {RegionID: "CAISO"}, "AZPS": {RegionID: "CAISO"},

	// PJM aliases.
	"AEP": {RegionID: "PJM"}, "AP": {RegionID: "PJM"}, "ATSI": {RegionID: "PJM"},
	"BC": {RegionID: "PJM"}, "CE": {RegionID: "PJM"}, "DAY": {RegionID: "PJM"},
	"DEOK": {RegionID: "PJM"}, "DOM": {RegionID: "PJM"}, "DPL": {RegionID: "PJM"},
	"DUK": {RegionID: "PJM"}, "EKPC": {RegionID: "PJM"}, "JC": {RegionID: "PJM"},
	"ME": {RegionID: "PJM"}, "PE": {RegionID: "PJM"}, "PEP": {RegionID: "PJM"},
	"PL": {RegionID: "PJM"}, "PN": {RegionID: "PJM"}, "PS": {RegionID: "PJM"},
	"RECO": {RegionID: "PJM"}, "UGI": {RegionID: "PJM"},

	// NYISO / ISONE aliases.
	"NYISO": {RegionID: "NYISO"},
	"ISONE": {RegionID: "ISONE"},

	// MISO aliases.
	"AMIL": {RegionID: "MISO"}, "AMMO": {RegionID: "MISO"}, "BREC": {RegionID: "MISO"},
	"CIN": {RegionID: "MISO"}, "CLEC": {RegionID: "MISO"}, "CWEP": {RegionID: "MISO"},
	"CWLP": {RegionID: "MISO"}, "DECO": {RegionID: "MISO"}, "EAI": {RegionID: "MISO"},
	"EES": {RegionID: "MISO"}, "EMBA": {RegionID: "MISO"}, "GRE": {RegionID: "MISO"},
	"HE": {RegionID: "MISO"}, "LAFA": {RegionID: "MISO"}, "LAGN": {RegionID: "MISO"},
	"LEPA": {RegionID: "MISO"}, "LGEE": {RegionID: "MISO"}, "MEC": {RegionID: "MISO"},
	"MGE": {RegionID: "MISO"}, "MIUP": {RegionID: "MISO"}, "MP": {RegionID: "MISO"},
	"MPW": {RegionID: "MISO"}, "NIPS": {RegionID: "MISO"}, "NSP": {RegionID: "MISO"},
	"OVEC": {RegionID: "MISO"}, "SIGE": {RegionID: "MISO"}, "SIPC": {RegionID: "MISO"},
	"SMMP": {RegionID: "MISO"}, "SMP": {RegionID: "MISO"}, "UPPC": {RegionID: "MISO"},
	"WEC": {RegionID: "MISO"}, "WPS": {RegionID: "MISO"}, "ALTE": {RegionID: "MISO"},

	// SPP aliases.
	"CSWS": {RegionID: "SPP"}, "EDE": {RegionID: "SPP"}, "GRDA": {RegionID: "SPP"},
	"INDN": {RegionID: "SPP"}, "KACY": {RegionID: "SPP"}, "KCPL": {RegionID: "SPP"},
	"LES": {RegionID: "SPP"}, "MPS": {RegionID: "SPP"}, "NPPD": {RegionID: "SPP"},
	"OKGE": {RegionID: "SPP"}, "OPPD": {RegionID: "SPP"}, "SECI": {RegionID: "SPP"},
	"SPRM": {RegionID: "SPP"}, "SPS": {RegionID: "SPP"}, "WAUE": {RegionID: "SPP"},
	"WFEC": {RegionID: "SPP"}, "WR": {RegionID: "SPP"},
}

// Resolve maps a provider balancing-authority code to its canonical region id.
// Returns false for codes outside the tracked set; callers drop those records.
func Resolve(baCode string) (string, bool) {
	e, ok := baRegions[baCode]
	if !ok {
		return "", false
	}
	return e.RegionID, true
}

// Regions returns the canonical region descriptors, one per primary entry.
// Alias entries contribute nothing here.
func Regions() []models.Region {
	var regions []models.Region
	for _, e := range baRegions {
		if e.Name == "" {
			continue
		}
		regions = append(regions, models.Region{
			RegionID:       e.RegionID,
			Name:           e.Name,
			Timezone:       e.Timezone,
			Latitude:       e.Lat,
			Longitude:      e.Lon,
			CoverageStates: e.States,
			RegionType:     e.Type,
		})
	}
	return regions
}
