package registry

import (
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		code   string
		wantID string
		wantOK bool
	}{
		{"ERCO", "ERCOT", true},
		{"CISO", "CAISO", true},
		{"SWPP", "SPP", true},
		{"BANC", "CAISO", true},  // utility alias folds into parent
		{"NIPS", "MISO", true},   // utility alias folds into parent
		{"ERCOT", "ERCOT", true}, // self-alias
		{"XXXX", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := Resolve(tt.code)
			if ok != tt.wantOK || got != tt.wantID {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.code, got, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestRegionsOnlyPrimaries(t *testing.T) {
	regions := Regions()

	if len(regions) != 7 {
		t.Fatalf("len(Regions()) = %d, want 7", len(regions))
	}

	seen := make(map[string]bool)
	for _, r := range regions {
		if r.Name == "" {
			t.Errorf("region %s has empty name", r.RegionID)
		}
		if r.Timezone == "" {
			t.Errorf("region %s has empty timezone", r.RegionID)
		}
		if r.RegionType != "ISO" {
			t.Errorf("region %s type = %q, want ISO", r.RegionID, r.RegionType)
		}
		if len(r.CoverageStates) == 0 {
			t.Errorf("region %s has no coverage states", r.RegionID)
		}
		if seen[r.RegionID] {
			t.Errorf("duplicate region %s", r.RegionID)
		}
		seen[r.RegionID] = true
	}

	for _, want := range []string{"ERCOT", "CAISO", "PJM", "NYISO", "ISONE", "MISO", "SPP"} {
		if !seen[want] {
			t.Errorf("missing region %s", want)
		}
	}
}

func TestAliasesResolveToPrimaryRegions(t *testing.T) {
	primary := make(map[string]bool)
	for _, r := range Regions() {
		primary[r.RegionID] = true
	}

	for code, e := range baRegions {
		if !primary[e.RegionID] {
			t.Errorf("code %s maps to %s, which has no primary entry", code, e.RegionID)
		}
	}
}
