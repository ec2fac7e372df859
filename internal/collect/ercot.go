package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gridpulse/gridpulse/internal/carbon"
	"github.com/gridpulse/gridpulse/internal/httputil"
	"github.com/gridpulse/gridpulse/internal/metrics"
	"github.com/gridpulse/gridpulse/internal/models"
	"github.com/gridpulse/gridpulse/internal/store"
)

const (
	ercotSource         = "ERCOT"
	ercotRegionID       = "ERCOT"
	DefaultERCOTBaseURL = "https://www.ercot.com/api/1/services/read"
)

// ERCOT collects a real-time snapshot directly from the ERCOT public API.
// Unlike the EIA batch collector it covers a single region and a single
// instant: both endpoints describe the grid right now, so transform collapses
// to one record at the current UTC hour and load is a plain upsert.
type ERCOT struct {
	store   *store.Store
	client  *http.Client
	calc    *carbon.Calculator
	baseURL string
	now     func() time.Time
}

func NewERCOT(st *store.Store) *ERCOT {
	return &ERCOT{
		store:   st,
		client:  httputil.NewClient(),
		calc:    carbon.NewCalculator(nil),
		baseURL: DefaultERCOTBaseURL,
		now:     time.Now,
	}
}

// SetBaseURL overrides the ERCOT API base URL.
func (e *ERCOT) SetBaseURL(url string) {
	e.baseURL = strings.TrimRight(url, "/")
}

func (e *ERCOT) Source() string { return ercotSource }

type ercotDemandResponse struct {
	SystemWideDemand struct {
		Demand eiaNumeric `json:"Demand"`
	} `json:"SystemWideDemand"`
}

type ercotFuelMixResponse struct {
	FuelMix []struct {
		FuelType string     `json:"FuelType"`
		GenMW    eiaNumeric `json:"GenMW"`
	} `json:"FuelMix"`
}

// Collect fetches the system-wide demand and fuel mix snapshots. Either
// endpoint failing degrades to no records from it.
func (e *ERCOT) Collect(ctx context.Context) ([]RawRecord, error) {
	var all []RawRecord

	body, err := e.fetch(ctx, "SystemWideDemand")
	if err != nil {
		log.Printf("ercot: demand fetch failed: %v", err)
	} else {
		var resp ercotDemandResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			log.Printf("ercot: unmarshal demand: %v", err)
		} else {
			all = append(all, RawRecord{
				Kind:       KindDemand,
				SourceCode: ercotRegionID,
				Value:      float64(resp.SystemWideDemand.Demand),
			})
		}
	}

	body, err = e.fetch(ctx, "FuelMix")
	if err != nil {
		log.Printf("ercot: fuel mix fetch failed: %v", err)
	} else {
		var resp ercotFuelMixResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			log.Printf("ercot: unmarshal fuel mix: %v", err)
		} else {
			for _, f := range resp.FuelMix {
				all = append(all, RawRecord{
					Kind:       KindGeneration,
					SourceCode: ercotRegionID,
					FuelCode:   f.FuelType,
					Value:      float64(f.GenMW),
				})
			}
		}
	}

	return all, nil
}

func (e *ERCOT) fetch(ctx context.Context, service string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s.json", e.baseURL, service)

	timer := time.Now()
	body, status, err := httputil.GetWithRetry(ctx, e.client, url)
	metrics.UpstreamLatency.WithLabelValues(ercotSource, service).Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(ercotSource, service, fmt.Sprintf("%d", status)).Inc()
		return nil, err
	}
	metrics.UpstreamCallsTotal.WithLabelValues(ercotSource, service, "200").Inc()
	return body, nil
}

// Transform collapses the snapshot into a single record at the current UTC
// hour. Returns nothing when both endpoints came back empty.
func (e *ERCOT) Transform(raw []RawRecord) []models.GridMetric {
	if len(raw) == 0 {
		return nil
	}

	m := models.GridMetric{
		TimestampUTC:     e.now().UTC().Truncate(time.Hour),
		RegionID:         ercotRegionID,
		GenerationByFuel: models.NewFuelMix(),
		Source:           ercotSource,
	}

	for _, rec := range raw {
		switch rec.Kind {
		case KindDemand:
			m.LoadMW = rec.Value
		case KindGeneration:
			m.GenerationByFuel[ercotFuelCategory(rec.FuelCode)] += rec.Value
			m.TotalGenerationMW += rec.Value
		}
	}

	if m.LoadMW <= 0 && m.TotalGenerationMW <= 0 {
		return nil
	}

	m.RenewablePct = e.calc.RenewableFraction(m.GenerationByFuel, m.TotalGenerationMW)
	m.CarbonIntensity = e.calc.Intensity(m.GenerationByFuel, m.TotalGenerationMW)
	return []models.GridMetric{m}
}

// ercotFuelCategory maps ERCOT's free-form fuel type names by substring.
func ercotFuelCategory(fuelType string) string {
	ft := strings.ToUpper(fuelType)
	switch {
	case strings.Contains(ft, "GAS"):
		return models.FuelNaturalGas
	case strings.Contains(ft, "COAL"):
		return models.FuelCoal
	case strings.Contains(ft, "NUCLEAR"):
		return models.FuelNuclear
	case strings.Contains(ft, "WIND"):
		return models.FuelWind
	case strings.Contains(ft, "SOLAR"):
		return models.FuelSolar
	case strings.Contains(ft, "HYDRO"):
		return models.FuelHydro
	default:
		return models.FuelOther
	}
}

// Load upserts the snapshot. The record is complete by construction, so the
// field-level reconciliation of the batch path is unnecessary here.
func (e *ERCOT) Load(ctx context.Context, records []models.GridMetric) (int, error) {
	count := 0
	for _, m := range records {
		if flags := ValidateMetric(&m); len(flags) > 0 {
			log.Printf("ercot: %s@%s quality flags: %s", m.RegionID, m.TimestampUTC.Format(time.RFC3339), strings.Join(flags, ","))
		}
		if err := e.store.UpsertMetric(m); err != nil {
			return count, fmt.Errorf("upsert %s@%s: %w", m.RegionID, m.TimestampUTC.Format(time.RFC3339), err)
		}
		count++
	}
	metrics.RecordsIngested.WithLabelValues(ercotSource).Add(float64(count))
	return count, nil
}
