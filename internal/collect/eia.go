package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gridpulse/gridpulse/internal/carbon"
	"github.com/gridpulse/gridpulse/internal/httputil"
	"github.com/gridpulse/gridpulse/internal/metrics"
	"github.com/gridpulse/gridpulse/internal/models"
	"github.com/gridpulse/gridpulse/internal/registry"
	"github.com/gridpulse/gridpulse/internal/store"
)

const (
	eiaSource          = "EIA"
	DefaultEIABaseURL  = "https://api.eia.gov/v2"
	defaultEIALookback = 24 * time.Hour
	eiaPageLength      = 5000
)

// eiaFuelTypes maps EIA fuel codes to the canonical fuel categories.
// Battery (BAT) and pumped storage (PS) fold into other alongside petroleum
// and unknowns.
var eiaFuelTypes = map[string]string{
	"NG":  models.FuelNaturalGas,
	"GAS": models.FuelNaturalGas,
	"COL": models.FuelCoal,
	"NUC": models.FuelNuclear,
	"WND": models.FuelWind,
	"SUN": models.FuelSolar,
	"SOL": models.FuelSolar,
	"WAT": models.FuelHydro,
	"HYD": models.FuelHydro,
	"OTH": models.FuelOther,
	"OIL": models.FuelOther,
	"PET": models.FuelOther,
	"UNK": models.FuelOther,
	"BAT": models.FuelOther,
	"PS":  models.FuelOther,
}

// EIA collects hourly balancing-authority data from the EIA Open Data API.
// Demand, day-ahead demand forecast, generation-by-fuel and interchange come
// from independent endpoints with partially overlapping coverage; transform
// reconciles them into one record per (region, hour).
type EIA struct {
	store    *store.Store
	client   *http.Client
	calc     *carbon.Calculator
	apiKey   string
	baseURL  string
	lookback time.Duration
	now      func() time.Time
}

func NewEIA(st *store.Store, apiKey string) *EIA {
	return &EIA{
		store:    st,
		client:   httputil.NewClient(),
		calc:     carbon.NewCalculator(nil),
		apiKey:   apiKey,
		baseURL:  DefaultEIABaseURL,
		lookback: defaultEIALookback,
		now:      time.Now,
	}
}

// SetBaseURL overrides the EIA API base URL.
func (e *EIA) SetBaseURL(url string) {
	e.baseURL = strings.TrimRight(url, "/")
}

func (e *EIA) Source() string { return eiaSource }

type eiaEndpoint struct {
	name  string
	path  string
	facet string // extra facet query fragment, may be empty
	kind  RecordKind
}

var eiaEndpoints = []eiaEndpoint{
	{name: "demand", path: "/electricity/rto/region-data/data/", facet: "&facets[type][]=D", kind: KindDemand},
	{name: "demand-forecast", path: "/electricity/rto/region-data/data/", facet: "&facets[type][]=DF", kind: KindDemandForecast},
	{name: "generation", path: "/electricity/rto/fuel-type-data/data/", kind: KindGeneration},
	{name: "interchange", path: "/electricity/rto/interchange-data/data/", kind: KindInterchange},
}

// Collect fetches all endpoints concurrently over the lookback window. An
// endpoint that fails contributes no records; only the surviving endpoints'
// data moves on to transform.
func (e *EIA) Collect(ctx context.Context) ([]RawRecord, error) {
	results := make([][]RawRecord, len(eiaEndpoints))

	var wg sync.WaitGroup
	for i, ep := range eiaEndpoints {
		wg.Add(1)
		go func(i int, ep eiaEndpoint) {
			defer wg.Done()
			records, err := e.fetchEndpoint(ctx, ep)
			if err != nil {
				log.Printf("eia: %s fetch failed: %v", ep.name, err)
				return
			}
			results[i] = records
		}(i, ep)
	}
	wg.Wait()

	var all []RawRecord
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

func (e *EIA) fetchEndpoint(ctx context.Context, ep eiaEndpoint) ([]RawRecord, error) {
	end := e.now().UTC()
	start := end.Add(-e.lookback)

	// Query string built by hand: EIA's bracketed parameter names do not
	// survive url.Values encoding in the form the API expects.
	url := fmt.Sprintf(
		"%s%s?api_key=%s&frequency=hourly&data[0]=value%s&start=%s&end=%s&sort[0][column]=period&sort[0][direction]=desc&length=%d",
		e.baseURL, ep.path, e.apiKey, ep.facet,
		start.Format("2006-01-02T15"), end.Format("2006-01-02T15"),
		eiaPageLength,
	)

	timer := time.Now()
	body, status, err := httputil.GetWithRetry(ctx, e.client, url)
	metrics.UpstreamLatency.WithLabelValues(eiaSource, ep.name).Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(eiaSource, ep.name, fmt.Sprintf("%d", status)).Inc()
		return nil, err
	}
	metrics.UpstreamCallsTotal.WithLabelValues(eiaSource, ep.name, "200").Inc()

	var resp eiaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", ep.name, err)
	}

	records := make([]RawRecord, 0, len(resp.Response.Data))
	for _, row := range resp.Response.Data {
		records = append(records, RawRecord{
			Kind:       ep.kind,
			SourceCode: row.sourceCode(),
			FuelCode:   row.FuelType,
			Period:     row.Period,
			Value:      float64(row.Value),
		})
	}
	log.Printf("eia: collected %d %s records", len(records), ep.name)
	return records, nil
}

type eiaResponse struct {
	Response struct {
		Data []eiaRow `json:"data"`
	} `json:"response"`
}

type eiaRow struct {
	Period         string     `json:"period"`
	Respondent     string     `json:"respondent"`
	RespondentName string     `json:"respondent-name"`
	FuelType       string     `json:"fueltype"`
	Value          eiaNumeric `json:"value"`
}

func (r eiaRow) sourceCode() string {
	if r.Respondent != "" {
		return r.Respondent
	}
	code, _, _ := strings.Cut(r.RespondentName, "-")
	return code
}

// eiaNumeric tolerates the API reporting values as numbers, quoted numbers or
// null.
type eiaNumeric float64

func (n *eiaNumeric) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return err
	}
	*n = eiaNumeric(f)
	return nil
}

type metricKey struct {
	regionID  string
	timestamp time.Time
}

// Transform groups raw records by (region, UTC hour) and merges them into
// draft metrics. Records with unmapped balancing-authority codes are dropped
// silently; unparsable periods are dropped with a warning. Within a key,
// demand only overwrites with a positive value, generation accumulates, and
// interchange is last-value-wins.
func (e *EIA) Transform(raw []RawRecord) []models.GridMetric {
	grouped := make(map[metricKey]*models.GridMetric)

	for _, rec := range raw {
		regionID, ok := registry.Resolve(rec.SourceCode)
		if !ok {
			continue
		}

		ts, err := parsePeriod(rec.Period)
		if err != nil {
			log.Printf("eia: skipping record with unparsable period %q: %v", rec.Period, err)
			continue
		}

		key := metricKey{regionID: regionID, timestamp: ts}
		m, ok := grouped[key]
		if !ok {
			m = &models.GridMetric{
				TimestampUTC:     ts,
				RegionID:         regionID,
				GenerationByFuel: models.NewFuelMix(),
				Source:           eiaSource,
			}
			grouped[key] = m
		}

		switch rec.Kind {
		case KindDemand:
			// A zero or absent demand value must not erase a load already
			// contributed by another record for this key.
			if rec.Value > 0 {
				m.LoadMW = rec.Value
			}
		case KindDemandForecast:
			if rec.Value > 0 {
				m.ForecastLoadMW.Float64 = rec.Value
				m.ForecastLoadMW.Valid = true
			}
		case KindGeneration:
			fuel, ok := eiaFuelTypes[rec.FuelCode]
			if !ok {
				fuel = models.FuelOther
			}
			m.GenerationByFuel[fuel] += rec.Value
			m.TotalGenerationMW += rec.Value
		case KindInterchange:
			m.NetInterchangeMW = rec.Value
		}
	}

	result := make([]models.GridMetric, 0, len(grouped))
	for _, m := range grouped {
		m.RenewablePct = e.calc.RenewableFraction(m.GenerationByFuel, m.TotalGenerationMW)
		m.CarbonIntensity = e.calc.Intensity(m.GenerationByFuel, m.TotalGenerationMW)
		result = append(result, *m)
	}

	// Deterministic output order for stable loads and tests.
	sort.Slice(result, func(i, j int) bool {
		if result[i].RegionID != result[j].RegionID {
			return result[i].RegionID < result[j].RegionID
		}
		return result[i].TimestampUTC.Before(result[j].TimestampUTC)
	})
	return result
}

// Load applies each record through the store's reconciling upsert. A storage
// failure aborts the run; earlier writes in the batch remain, which is safe
// because the next pass re-applies the same merge.
func (e *EIA) Load(ctx context.Context, records []models.GridMetric) (int, error) {
	count := 0
	for _, m := range records {
		if flags := ValidateMetric(&m); len(flags) > 0 {
			log.Printf("eia: %s@%s quality flags: %s", m.RegionID, m.TimestampUTC.Format(time.RFC3339), strings.Join(flags, ","))
		}
		if _, err := e.store.ApplyMetric(m); err != nil {
			return count, err
		}
		count++
	}
	metrics.RecordsIngested.WithLabelValues(eiaSource).Add(float64(count))
	return count, nil
}

// parsePeriod parses EIA period strings. Hourly data arrives as
// "2025-01-01T10" (no minutes); some series report full timestamps, with or
// without a zone offset. Offset-less timestamps are taken as UTC. The result
// is truncated to the hour in UTC.
func parsePeriod(period string) (time.Time, error) {
	if period == "" {
		return time.Time{}, fmt.Errorf("empty period")
	}

	var ts time.Time
	var err error
	if len(period) == 13 {
		ts, err = time.Parse("2006-01-02T15", period)
	} else {
		ts, err = time.Parse(time.RFC3339, period)
		if err != nil {
			ts, err = time.Parse("2006-01-02T15:04:05", period)
		}
	}
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC().Truncate(time.Hour), nil
}
