package collect

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gridpulse/gridpulse/internal/metrics"
	"github.com/gridpulse/gridpulse/internal/models"
	"github.com/gridpulse/gridpulse/internal/registry"
	"github.com/gridpulse/gridpulse/internal/store"
)

// Scheduler drives the collectors: batch collectors on a long interval,
// realtime collectors on a short one, plus a daily batch pass at a configured
// hour. Collectors share no in-memory state, so concurrent runs from
// different sources are safe; the store's merge semantics handle overlapping
// writes.
type Scheduler struct {
	store         *store.Store
	batch         []Collector
	realtime      []Collector
	batchInterval time.Duration
	rtInterval    time.Duration
	batchHour     int
	cron          *cron.Cron

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

func NewScheduler(st *store.Store, batch, realtime []Collector) *Scheduler {
	return &Scheduler{
		store:         st,
		batch:         batch,
		realtime:      realtime,
		batchInterval: time.Hour,
		rtInterval:    5 * time.Minute,
		batchHour:     2,
	}
}

// SetIntervals overrides the batch and realtime polling intervals. Takes
// effect on the next Start.
func (s *Scheduler) SetIntervals(batch, realtime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchInterval = batch
	s.rtInterval = realtime
}

// SetBatchHour sets the UTC hour of the daily batch pass. Takes effect on the
// next Start.
func (s *Scheduler) SetBatchHour(hour int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchHour = hour
}

// Start begins the polling loops. Idempotent: calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		log.Println("scheduler: already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("0 %d * * *", s.batchHour), func() {
		log.Println("scheduler: daily batch pass")
		s.runGroup(ctx, s.batch)
	}); err != nil {
		log.Printf("scheduler: register daily batch job: %v", err)
	}
	s.cron.Start()

	go s.loop(ctx, s.batchInterval, s.rtInterval)
	log.Println("scheduler: started")
}

// Stop halts the polling loops. In-flight runs finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.cron.Stop()
	s.running = false
	log.Println("scheduler: stopped")
}

// Running reports whether the polling loops are active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, batchInterval, rtInterval time.Duration) {
	s.runGroup(ctx, s.batch)
	s.runGroup(ctx, s.realtime)

	batchTicker := time.NewTicker(batchInterval)
	rtTicker := time.NewTicker(rtInterval)
	defer batchTicker.Stop()
	defer rtTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-batchTicker.C:
			s.runGroup(ctx, s.batch)
		case <-rtTicker.C:
			s.runGroup(ctx, s.realtime)
		}
	}
}

func (s *Scheduler) runGroup(ctx context.Context, group []Collector) {
	for _, c := range group {
		s.runCollector(ctx, c)
	}
}

func (s *Scheduler) runCollector(ctx context.Context, c Collector) models.RunResult {
	s.ensureRegions()

	result := Run(ctx, c)

	metrics.CollectorRuns.WithLabelValues(result.Source, result.Status).Inc()
	if err := s.store.RecordRun(result); err != nil {
		log.Printf("scheduler: record %s run: %v", result.Source, err)
	}

	if result.Status == models.RunSuccess {
		log.Printf("scheduler: %s run ok: %d records in %s",
			result.Source, result.RecordsProcessed, result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond))
	} else {
		log.Printf("scheduler: %s run failed: %s", result.Source, result.Error)
	}
	return result
}

// ensureRegions seeds any canonical region missing from storage. Safe on
// every cycle: existing rows are never touched.
func (s *Scheduler) ensureRegions() {
	for _, r := range registry.Regions() {
		if err := s.store.InsertRegion(r); err != nil {
			log.Printf("scheduler: seed region %s: %v", r.RegionID, err)
		}
	}
}

// RunAll runs every collector once, batch sources first, and returns the
// summaries. Used by the manual trigger.
func (s *Scheduler) RunAll(ctx context.Context) []models.RunResult {
	var results []models.RunResult
	for _, c := range s.batch {
		results = append(results, s.runCollector(ctx, c))
	}
	for _, c := range s.realtime {
		results = append(results, s.runCollector(ctx, c))
	}
	return results
}

// RunOnce runs the named source once. Returns an error only when no such
// source is registered; run failures are reported inside the result.
func (s *Scheduler) RunOnce(ctx context.Context, source string) (models.RunResult, error) {
	for _, c := range append(append([]Collector{}, s.batch...), s.realtime...) {
		if c.Source() == source {
			return s.runCollector(ctx, c), nil
		}
	}
	return models.RunResult{}, fmt.Errorf("unknown source %q", source)
}
