package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/gridpulse/gridpulse/internal/collect"
	"github.com/gridpulse/gridpulse/internal/models"
	"github.com/gridpulse/gridpulse/internal/store"
)

var cli struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,help='Path to .env file'"`

	DB     string `name:"db" default:"data/gridpulse.db" env:"GRIDPULSE_DB" help:"Path to SQLite database"`
	Listen string `name:"listen" default:":9090" env:"GRIDPULSE_LISTEN" help:"Metrics/health listen address"`

	EIAAPIKey  string `name:"eia-api-key" env:"EIA_API_KEY" required:"" help:"EIA Open Data API key"`
	EIABaseURL string `name:"eia-base-url" default:"https://api.eia.gov/v2" env:"EIA_BASE_URL" help:"EIA API base URL"`

	BatchInterval    time.Duration `name:"batch-interval" default:"1h" env:"GRIDPULSE_BATCH_INTERVAL" help:"Batch source polling interval"`
	RealtimeInterval time.Duration `name:"realtime-interval" default:"5m" env:"GRIDPULSE_REALTIME_INTERVAL" help:"Realtime source polling interval"`
	BatchHour        int           `name:"batch-hour" default:"2" env:"GRIDPULSE_BATCH_HOUR" help:"UTC hour of the daily batch pass"`

	Once   bool   `name:"once" help:"Run all collectors once and exit"`
	Source string `name:"source" help:"With --once, run only this source (EIA, ERCOT)"`
	NoPoll bool   `name:"no-poll" help:"Disable polling (metrics server only)"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("gridpulse"),
		kong.Description("Electric grid telemetry ingestion service"),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	kctx.FatalIfErrorf(run())
}

func run() error {
	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return err
	}
	log.Println("database migrated")

	eia := collect.NewEIA(st, cli.EIAAPIKey)
	eia.SetBaseURL(cli.EIABaseURL)
	ercot := collect.NewERCOT(st)

	scheduler := collect.NewScheduler(st,
		[]collect.Collector{eia},
		[]collect.Collector{ercot},
	)
	scheduler.SetIntervals(cli.BatchInterval, cli.RealtimeInterval)
	scheduler.SetBatchHour(cli.BatchHour)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cli.Once {
		log.Println("running single collection pass")
		var results []models.RunResult
		if cli.Source != "" {
			result, err := scheduler.RunOnce(ctx, cli.Source)
			if err != nil {
				return err
			}
			results = append(results, result)
		} else {
			results = scheduler.RunAll(ctx)
		}
		for _, r := range results {
			log.Printf("%s: status=%s records=%d error=%q", r.Source, r.Status, r.RecordsProcessed, r.Error)
		}
		return nil
	}

	if !cli.NoPoll {
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cli.Listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("serving metrics on %s", cli.Listen)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
