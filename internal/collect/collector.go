// Package collect implements the provider collectors and their scheduler.
// Every collector follows the same three-stage pipeline: collect fetches raw
// records from the provider, transform reduces them to one metric per
// (region, hour), load writes them through the store's merge-aware upsert.
package collect

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gridpulse/gridpulse/internal/models"
)

// RecordKind labels what a raw provider record measures.
type RecordKind string

const (
	KindDemand         RecordKind = "demand"
	KindDemandForecast RecordKind = "demand_forecast"
	KindGeneration     RecordKind = "generation"
	KindInterchange    RecordKind = "interchange"
)

// RawRecord is one fetched data point before normalization. It lives only
// between the collect and transform stages of a single run.
type RawRecord struct {
	Kind       RecordKind
	SourceCode string // provider balancing-authority or region code
	FuelCode   string // set for generation records
	Period     string // provider timestamp string
	Value      float64
}

// Collector is the contract every provider pipeline implements. Collect
// performs network I/O and isolates per-endpoint failures (an endpoint that
// fails contributes no records instead of failing the call). Transform is
// pure. Load returns the number of records written.
type Collector interface {
	Source() string
	Collect(ctx context.Context) ([]RawRecord, error)
	Transform(raw []RawRecord) []models.GridMetric
	Load(ctx context.Context, records []models.GridMetric) (int, error)
}

// Run executes a collector's full pipeline and reports the outcome. It never
// returns an error: any stage failure, including a panic, is captured in the
// result so the caller always receives a well-formed summary.
func Run(ctx context.Context, c Collector) (result models.RunResult) {
	result = models.RunResult{
		Source:    c.Source(),
		StartedAt: time.Now().UTC(),
		Status:    models.RunFailed,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Status = models.RunFailed
			result.Error = fmt.Sprintf("panic: %v", r)
		}
		result.CompletedAt = time.Now().UTC()
	}()

	log.Printf("collect: starting %s run", c.Source())

	raw, err := c.Collect(ctx)
	if err != nil {
		log.Printf("collect: %s collect failed: %v", c.Source(), err)
		result.Error = err.Error()
		return result
	}
	log.Printf("collect: %s collected %d raw records", c.Source(), len(raw))

	records := c.Transform(raw)
	log.Printf("collect: %s transformed %d records", c.Source(), len(records))

	count, err := c.Load(ctx, records)
	if err != nil {
		log.Printf("collect: %s load failed: %v", c.Source(), err)
		result.Error = err.Error()
		result.RecordsProcessed = count
		return result
	}

	result.Status = models.RunSuccess
	result.RecordsProcessed = count
	return result
}
