package collect

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gridpulse/gridpulse/internal/models"
	"github.com/gridpulse/gridpulse/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func TestEIATransformEndToEnd(t *testing.T) {
	eia := NewEIA(nil, "test")

	raw := []RawRecord{
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 1000},
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "2025-01-01T10", FuelCode: "WND", Value: 400},
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "2025-01-01T10", FuelCode: "NG", Value: 600},
	}

	records := eia.Transform(raw)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	m := records[0]
	if m.RegionID != "ERCOT" {
		t.Errorf("RegionID = %q, want ERCOT", m.RegionID)
	}
	want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if !m.TimestampUTC.Equal(want) {
		t.Errorf("TimestampUTC = %v, want %v", m.TimestampUTC, want)
	}
	if m.LoadMW != 1000 {
		t.Errorf("LoadMW = %v, want 1000", m.LoadMW)
	}
	if m.GenerationByFuel[models.FuelWind] != 400 {
		t.Errorf("wind = %v, want 400", m.GenerationByFuel[models.FuelWind])
	}
	if m.GenerationByFuel[models.FuelNaturalGas] != 600 {
		t.Errorf("natural gas = %v, want 600", m.GenerationByFuel[models.FuelNaturalGas])
	}
	if m.TotalGenerationMW != 1000 {
		t.Errorf("TotalGenerationMW = %v, want 1000", m.TotalGenerationMW)
	}
	if m.RenewablePct != 40.0 {
		t.Errorf("RenewablePct = %v, want 40.0", m.RenewablePct)
	}
	// (400*11 + 600*410) / 1000
	if m.CarbonIntensity != 250.4 {
		t.Errorf("CarbonIntensity = %v, want 250.4", m.CarbonIntensity)
	}
}

func TestEIATransformAliasAttribution(t *testing.T) {
	eia := NewEIA(nil, "test")

	// BANC is a utility alias of CAISO; both must land on the same key.
	raw := []RawRecord{
		{Kind: KindDemand, SourceCode: "CISO", Period: "2025-01-01T10", Value: 500},
		{Kind: KindGeneration, SourceCode: "BANC", Period: "2025-01-01T10", FuelCode: "SUN", Value: 120},
	}

	records := eia.Transform(raw)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1 (alias must fold into parent)", len(records))
	}
	if records[0].RegionID != "CAISO" {
		t.Errorf("RegionID = %q, want CAISO", records[0].RegionID)
	}
	if records[0].GenerationByFuel[models.FuelSolar] != 120 {
		t.Errorf("solar = %v, want 120", records[0].GenerationByFuel[models.FuelSolar])
	}
}

func TestEIATransformDropsUnmappedAndUnparsable(t *testing.T) {
	eia := NewEIA(nil, "test")

	raw := []RawRecord{
		{Kind: KindDemand, SourceCode: "ZZZZ", Period: "2025-01-01T10", Value: 900},      // unmapped code
		{Kind: KindDemand, SourceCode: "ERCO", Period: "not-a-time", Value: 800},         // bad period
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 1000},     // good
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "", FuelCode: "NG", Value: 5}, // empty period
	}

	records := eia.Transform(raw)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].LoadMW != 1000 {
		t.Errorf("LoadMW = %v, want 1000", records[0].LoadMW)
	}
}

func TestEIATransformZeroDemandDoesNotErase(t *testing.T) {
	eia := NewEIA(nil, "test")

	raw := []RawRecord{
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 1000},
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 0},
	}

	records := eia.Transform(raw)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].LoadMW != 1000 {
		t.Errorf("LoadMW = %v, want 1000 (zero must not overwrite)", records[0].LoadMW)
	}
}

func TestEIATransformMergeRules(t *testing.T) {
	eia := NewEIA(nil, "test")

	raw := []RawRecord{
		// Generation accumulates across records of the same fuel.
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "2025-01-01T10", FuelCode: "NG", Value: 300},
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "2025-01-01T10", FuelCode: "GAS", Value: 200},
		// Unknown fuel codes fall into other.
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "2025-01-01T10", FuelCode: "GEO", Value: 50},
		// Interchange is last-value-wins.
		{Kind: KindInterchange, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 100},
		{Kind: KindInterchange, SourceCode: "ERCO", Period: "2025-01-01T10", Value: -250},
		// Forecast demand lands in its own field.
		{Kind: KindDemandForecast, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 1100},
	}

	records := eia.Transform(raw)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	m := records[0]
	if m.GenerationByFuel[models.FuelNaturalGas] != 500 {
		t.Errorf("natural gas = %v, want 500 (accumulated)", m.GenerationByFuel[models.FuelNaturalGas])
	}
	if m.GenerationByFuel[models.FuelOther] != 50 {
		t.Errorf("other = %v, want 50", m.GenerationByFuel[models.FuelOther])
	}
	if m.TotalGenerationMW != 550 {
		t.Errorf("TotalGenerationMW = %v, want 550", m.TotalGenerationMW)
	}
	if m.NetInterchangeMW != -250 {
		t.Errorf("NetInterchangeMW = %v, want -250 (last wins)", m.NetInterchangeMW)
	}
	if !m.ForecastLoadMW.Valid || m.ForecastLoadMW.Float64 != 1100 {
		t.Errorf("ForecastLoadMW = %+v, want 1100", m.ForecastLoadMW)
	}
}

func TestEIATransformGroupsByRegionAndHour(t *testing.T) {
	eia := NewEIA(nil, "test")

	raw := []RawRecord{
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 1000},
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T11", Value: 1050},
		{Kind: KindDemand, SourceCode: "CISO", Period: "2025-01-01T10", Value: 2000},
	}

	records := eia.Transform(raw)
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	// Output is sorted by region then time.
	if records[0].RegionID != "CAISO" || records[1].RegionID != "ERCOT" || records[2].RegionID != "ERCOT" {
		t.Errorf("unexpected order: %s, %s, %s", records[0].RegionID, records[1].RegionID, records[2].RegionID)
	}
	if !records[1].TimestampUTC.Before(records[2].TimestampUTC) {
		t.Error("ERCOT records not time-ordered")
	}
}

func TestEIALoadNonDestructiveAcrossBatches(t *testing.T) {
	st := setupTestStore(t)
	eia := NewEIA(st, "test")
	ctx := context.Background()

	first := eia.Transform([]RawRecord{
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 1000},
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "2025-01-01T10", FuelCode: "WND", Value: 400},
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "2025-01-01T10", FuelCode: "NG", Value: 600},
	})
	if _, err := eia.Load(ctx, first); err != nil {
		t.Fatalf("Load first: %v", err)
	}

	// Second batch for the same key: only interchange plus a zero demand.
	second := eia.Transform([]RawRecord{
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 0},
		{Kind: KindInterchange, SourceCode: "ERCO", Period: "2025-01-01T10", Value: -200},
	})
	if _, err := eia.Load(ctx, second); err != nil {
		t.Fatalf("Load second: %v", err)
	}

	got, err := st.GetMetric("ERCOT", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetMetric: %v", err)
	}
	if got == nil {
		t.Fatal("metric not found")
	}
	if got.LoadMW != 1000 {
		t.Errorf("LoadMW = %v, want 1000 unchanged", got.LoadMW)
	}
	if got.GenerationByFuel[models.FuelWind] != 400 {
		t.Errorf("wind = %v, want 400 unchanged", got.GenerationByFuel[models.FuelWind])
	}
	if got.TotalGenerationMW != 1000 {
		t.Errorf("TotalGenerationMW = %v, want 1000 unchanged", got.TotalGenerationMW)
	}
	if got.NetInterchangeMW != -200 {
		t.Errorf("NetInterchangeMW = %v, want -200", got.NetInterchangeMW)
	}
}

func TestEIALoadIdempotent(t *testing.T) {
	st := setupTestStore(t)
	eia := NewEIA(st, "test")
	ctx := context.Background()

	batch := eia.Transform([]RawRecord{
		{Kind: KindDemand, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 1000},
		{Kind: KindGeneration, SourceCode: "ERCO", Period: "2025-01-01T10", FuelCode: "WND", Value: 400},
		{Kind: KindInterchange, SourceCode: "ERCO", Period: "2025-01-01T10", Value: 75},
	})

	count, err := eia.Load(ctx, batch)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	first, err := st.GetMetric("ERCOT", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetMetric: %v", err)
	}

	if _, err := eia.Load(ctx, batch); err != nil {
		t.Fatalf("Load again: %v", err)
	}
	second, err := st.GetMetric("ERCOT", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetMetric: %v", err)
	}

	if first.LoadMW != second.LoadMW ||
		first.TotalGenerationMW != second.TotalGenerationMW ||
		first.NetInterchangeMW != second.NetInterchangeMW ||
		first.RenewablePct != second.RenewablePct ||
		first.CarbonIntensity != second.CarbonIntensity {
		t.Errorf("load not idempotent: first=%+v second=%+v", first, second)
	}
}

func eiaJSONResponse(rows string) string {
	return fmt.Sprintf(`{"response": {"data": [%s]}}`, rows)
}

func TestEIACollect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "region-data") && strings.Contains(r.URL.RawQuery, "DF"):
			fmt.Fprint(w, eiaJSONResponse(`{"period": "2025-01-01T10", "respondent": "ERCO", "value": "1100"}`))
		case strings.Contains(r.URL.Path, "region-data"):
			fmt.Fprint(w, eiaJSONResponse(`{"period": "2025-01-01T10", "respondent": "ERCO", "value": 1000}`))
		case strings.Contains(r.URL.Path, "fuel-type-data"):
			fmt.Fprint(w, eiaJSONResponse(`{"period": "2025-01-01T10", "respondent": "ERCO", "fueltype": "WND", "value": 400},
				{"period": "2025-01-01T10", "respondent": "ERCO", "fueltype": "NG", "value": null}`))
		case strings.Contains(r.URL.Path, "interchange-data"):
			// This endpoint is down; its failure must not fail the collect.
			http.Error(w, "not found", http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	eia := NewEIA(nil, "test")
	eia.SetBaseURL(server.URL)

	raw, err := eia.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	counts := make(map[RecordKind]int)
	for _, r := range raw {
		counts[r.Kind]++
	}
	if counts[KindDemand] != 1 {
		t.Errorf("demand records = %d, want 1", counts[KindDemand])
	}
	if counts[KindDemandForecast] != 1 {
		t.Errorf("forecast records = %d, want 1", counts[KindDemandForecast])
	}
	if counts[KindGeneration] != 2 {
		t.Errorf("generation records = %d, want 2", counts[KindGeneration])
	}
	if counts[KindInterchange] != 0 {
		t.Errorf("interchange records = %d, want 0 (endpoint failed)", counts[KindInterchange])
	}

	for _, r := range raw {
		if r.Kind == KindDemandForecast && r.Value != 1100 {
			t.Errorf("quoted numeric value = %v, want 1100", r.Value)
		}
		if r.Kind == KindGeneration && r.FuelCode == "NG" && r.Value != 0 {
			t.Errorf("null value = %v, want 0", r.Value)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		period  string
		want    time.Time
		wantErr bool
	}{
		{"2025-01-01T10", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), false},
		{"2025-01-01T10:30:00Z", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), false},
		{"2025-06-15T22:00:00-05:00", time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC), false},
		{"2025-11-28T22:00:00", time.Date(2025, 11, 28, 22, 0, 0, 0, time.UTC), false},
		{"2025-11-28T22:45:10", time.Date(2025, 11, 28, 22, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"garbage", time.Time{}, true},
		{"2025-13-01T10", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := parsePeriod(tt.period)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePeriod(%q) error = %v, wantErr %v", tt.period, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parsePeriod(%q) = %v, want %v", tt.period, got, tt.want)
			}
		})
	}
}
