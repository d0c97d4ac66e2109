package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"energy-surplus/internal/config"
	"energy-surplus/internal/ingestion/csvsource"
	"energy-surplus/internal/ingestion/entsoe"
	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

const dateLayout = "2006-01-02"

type options struct {
	envFile   string
	start     string
	end       string
	outDir    string
	countries string
	workers   int
}

func main() {
	opts := parseFlags()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.RequireEntsoe(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	start, end, err := resolveWindow(opts.start, opts.end, cfg.FetchWindow, time.Now().UTC())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	regions, err := entsoe.SelectRegions(cfg.Regions, splitCountries(opts.countries))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.CorpusDir
	}
	writer, err := csvsource.NewWriter(outDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	client, err := entsoe.NewClient(cfg.EntsoeURL, cfg.EntsoeToken,
		entsoe.WithRateLimit(cfg.RateLimit, 1),
		entsoe.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Printf("event=fetch_start regions=%d start=%s end=%s out=%s", len(regions), start.Format(dateLayout), end.Format(dateLayout), outDir)
	if err := fetchAll(ctx, client, writer, regions, start, end, opts.workers, logger); err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		os.Exit(1)
	}
	logger.Printf("event=fetch_done regions=%d", len(regions))
}

// fetchAll downloads every region; one region failing does not stop the others.
func fetchAll(ctx context.Context, client *entsoe.Client, writer *csvsource.Writer, regions []entsoe.Region, start, end time.Time, workers int, logger *log.Logger) error {
	var (
		mu     sync.Mutex
		result *multierror.Error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, region := range regions {
		region := region
		g.Go(func() error {
			if err := fetchRegion(ctx, client, writer, region, start, end, logger); err != nil {
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("%s: %w", region.Country, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return result.ErrorOrNil()
}

func fetchRegion(ctx context.Context, client *entsoe.Client, writer *csvsource.Writer, region entsoe.Region, start, end time.Time, logger *log.Logger) error {
	load, err := client.FetchLoad(ctx, region.Area, start, end)
	switch {
	case errors.Is(err, entsoe.ErrNoData):
		logger.Printf("event=fetch_empty country=%s document=%s", region.Country, entsoe.DocumentLoad)
	case err != nil:
		return fmt.Errorf("load: %w", err)
	default:
		if err := writer.WriteLoad(region.Country, toRecords(load)); err != nil {
			return fmt.Errorf("write load: %w", err)
		}
	}

	generation, err := client.FetchGeneration(ctx, region.Area, start, end)
	if errors.Is(err, entsoe.ErrNoData) {
		logger.Printf("event=fetch_empty country=%s document=%s", region.Country, entsoe.DocumentGeneration)
		return nil
	}
	if err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	types := make([]timeseries.EnergyType, 0, len(generation))
	for psrType := range generation {
		types = append(types, psrType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, psrType := range types {
		key := surplus.SeriesKey{Country: region.Country, EnergyType: psrType}
		if err := writer.WriteGeneration(key, toRecords(generation[psrType])); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	logger.Printf("event=fetch_region_done country=%s load_points=%d generation_types=%d", region.Country, len(load), len(types))
	return nil
}

func toRecords(points []entsoe.Point) []csvsource.Record {
	out := make([]csvsource.Record, 0, len(points))
	for _, p := range points {
		out = append(out, csvsource.Record{EndTime: p.EndTime, AreaID: p.AreaID, PsrType: p.PsrType, Quantity: p.Quantity, Valid: true})
	}
	return out
}

func resolveWindow(startValue, endValue string, window time.Duration, now time.Time) (time.Time, time.Time, error) {
	end := now.Truncate(24 * time.Hour)
	if endValue != "" {
		parsed, err := time.Parse(dateLayout, endValue)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
		end = parsed
	}
	start := end.Add(-window)
	if startValue != "" {
		parsed, err := time.Parse(dateLayout, startValue)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
		start = parsed
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("--end must be after --start")
	}
	return start, end, nil
}

func splitCountries(value string) []timeseries.CountryCode {
	var out []timeseries.CountryCode
	for _, part := range strings.Split(value, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, timeseries.CountryCode(part))
		}
	}
	return out
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.envFile, "env", "", ".env file (optional)")
	flag.StringVar(&opts.start, "start", "", "start date YYYY-MM-DD (default: end minus SURPLUS_FETCH_WINDOW)")
	flag.StringVar(&opts.end, "end", "", "end date YYYY-MM-DD (default: today UTC)")
	flag.StringVar(&opts.outDir, "out", "", "corpus directory (default: SURPLUS_CORPUS_DIR)")
	flag.StringVar(&opts.countries, "countries", "", "comma separated country codes (default: all regions)")
	flag.IntVar(&opts.workers, "workers", 3, "regions fetched in parallel")
	flag.Parse()
	return opts
}
