package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"energy-surplus/internal/config"
	"energy-surplus/internal/ingestion/csvsource"
	surplusapp "energy-surplus/internal/surplus/application"
	surplus "energy-surplus/internal/surplus/domain"
	"energy-surplus/internal/surplus/infrastructure/memory"
	"energy-surplus/internal/surplus/interfaces/export"
)

type options struct {
	envFile   string
	corpusDir string
	outDir    string
	workers   int
	xlsx      bool
}

func main() {
	opts := parseFlags()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.corpusDir == "" {
		opts.corpusDir = cfg.CorpusDir
	}
	if opts.outDir == "" {
		opts.outDir = cfg.StorageRoot
	}
	if opts.workers <= 0 {
		opts.workers = cfg.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := runBatch(ctx, cfg.Policy, opts, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "batch:", err)
		os.Exit(1)
	}
	fmt.Printf("run=%s countries=%d rows=%d diagnostics=%d report=%s\n", run.ID, run.Countries, run.Rows, run.Diagnostics, run.ReportLocation)
}

// runBatch computes one corpus from a CSV directory and writes its report.
func runBatch(ctx context.Context, policy surplus.Policy, opts options, logger *log.Logger) (*surplus.Run, error) {
	source, err := csvsource.NewSource(opts.corpusDir, logger)
	if err != nil {
		return nil, err
	}
	pipeline, err := surplusapp.NewPipeline(source, surplusapp.WithWorkers(opts.workers), surplusapp.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	repo := memory.NewRepository()
	runner, err := surplusapp.NewRunner(repo, pipeline, export.NewReporter(), nil, nil, surplusapp.RunnerConfig{
		Policy:      policy,
		StorageRoot: opts.outDir,
	}, logger)
	if err != nil {
		return nil, err
	}
	run, err := runner.Run(ctx, surplusapp.TriggerManual)
	if err != nil {
		return nil, err
	}
	if opts.xlsx {
		if err := writeWorkbook(ctx, repo, run); err != nil {
			return nil, err
		}
	}
	return run, nil
}

func writeWorkbook(ctx context.Context, repo surplus.Repository, run *surplus.Run) error {
	rows, err := repo.QueryRows(ctx, surplus.RowQuery{RunID: run.ID})
	if err != nil {
		return err
	}
	diagnostics, err := repo.Diagnostics(ctx, run.ID)
	if err != nil {
		return err
	}
	corpus := surplus.GroupRows(rows)
	summary := export.BuildSummary(run, corpus, diagnostics, *run.FinishedAt)
	data, err := export.BuildSurplusXLSX(summary, rows, diagnostics)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(filepath.Dir(run.ReportLocation), "surplus.xlsx"), data, 0o644)
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.envFile, "env", "", ".env file (optional)")
	flag.StringVar(&opts.corpusDir, "corpus", "", "corpus directory (default: SURPLUS_CORPUS_DIR)")
	flag.StringVar(&opts.outDir, "out", "", "report root (default: SURPLUS_STORAGE_ROOT)")
	flag.IntVar(&opts.workers, "workers", 0, "countries processed in parallel (default: SURPLUS_WORKERS)")
	flag.BoolVar(&opts.xlsx, "xlsx", true, "also write surplus.xlsx next to the report")
	flag.Parse()
	return opts
}
