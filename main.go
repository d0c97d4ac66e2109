package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"energy-surplus/internal/auth"
	"energy-surplus/internal/config"
	"energy-surplus/internal/eventing"
	"energy-surplus/internal/ingestion/csvsource"
	"energy-surplus/internal/observability/metrics"
	"energy-surplus/internal/observability/tracing"
	surplusapp "energy-surplus/internal/surplus/application"
	surplus "energy-surplus/internal/surplus/domain"
	"energy-surplus/internal/surplus/infrastructure/memory"
	surpluspg "energy-surplus/internal/surplus/infrastructure/postgres"
	"energy-surplus/internal/surplus/interfaces/export"
	surplushttp "energy-surplus/internal/surplus/interfaces/http"
	"energy-surplus/internal/surplus/notify"
)

func main() {
	envFile := flag.String("env", "", ".env file (optional)")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if err := cfg.RequireServer(); err != nil {
		logger.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(tracing.Config{Exporter: cfg.TraceExporter, SampleRatio: cfg.TraceSampleRatio}, logger)
	if err != nil {
		logger.Fatalf("tracing error: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	db, repo := openRepository(ctx, cfg, logger)
	if db != nil {
		defer db.Close()
	}
	metrics.Init()
	if err := metrics.RegisterRunStore(repo, logger); err != nil {
		logger.Fatalf("metrics error: %v", err)
	}

	source, err := csvsource.NewSource(cfg.CorpusDir, logger)
	if err != nil {
		logger.Fatalf("corpus source error: %v", err)
	}
	pipeline, err := surplusapp.NewPipeline(source, surplusapp.WithWorkers(cfg.Workers), surplusapp.WithLogger(logger))
	if err != nil {
		logger.Fatalf("pipeline error: %v", err)
	}

	bus := eventing.NewBus()
	bus.SubscribeAll(eventing.JournalHandler(logger))
	surplusapp.SubscribeObservers(bus)

	var notifier notify.Notifier
	if cfg.WebhookURL != "" {
		hook, err := notify.NewWebhook(cfg.WebhookURL)
		if err != nil {
			logger.Fatalf("webhook error: %v", err)
		}
		notifier = hook
	}

	runner, err := surplusapp.NewRunner(repo, pipeline, export.NewReporter(), bus, notifier, surplusapp.RunnerConfig{
		Policy:          cfg.Policy,
		StorageRoot:     cfg.StorageRoot,
		PublicBaseURL:   cfg.PublicBaseURL,
		NotifyThreshold: cfg.NotifyThreshold,
	}, logger)
	if err != nil {
		logger.Fatalf("runner error: %v", err)
	}

	if cfg.DailyAt != "" {
		scheduler, err := surplusapp.NewScheduler(runner, cfg.DailyAt, logger)
		if err != nil {
			logger.Fatalf("scheduler error: %v", err)
		}
		go scheduler.Start(ctx)
	}
	if cfg.RunOnStartup {
		go func() {
			if _, err := runner.Run(ctx, surplusapp.TriggerStartup); err != nil {
				logger.Printf("event=surplus_startup_run_failed error=%v", err)
			}
		}()
	}

	handler, err := surplushttp.NewHandler(repo, runner, logger)
	if err != nil {
		logger.Fatalf("surplus handler error: %v", err)
	}

	policy := auth.NewPolicy([]string{"/healthz", "/metrics"}, auth.SurplusRules())
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", surplushttp.Healthz)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Printf("http listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}
}

// openRepository uses postgres when a database URL is configured and the
// in-memory store otherwise.
func openRepository(ctx context.Context, cfg config.Config, logger *log.Logger) (*sql.DB, surplus.Repository) {
	if cfg.DatabaseURL == "" {
		logger.Printf("event=repository_memory reason=no_database_url")
		return nil, memory.NewRepository()
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	repo, err := surpluspg.NewRepository(db, surpluspg.WithTablePrefix(cfg.TablePrefix))
	if err != nil {
		logger.Fatalf("repository error: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema error: %v", err)
	}
	return db, repo
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
