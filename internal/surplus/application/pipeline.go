package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"energy-surplus/internal/observability/metrics"
	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

const (
	tracerName     = "energy-surplus/surplus"
	defaultWorkers = 4
)

// Result is the outcome of one corpus computation.
type Result struct {
	Corpus      surplus.Corpus       `json:"corpus"`
	Diagnostics []surplus.Diagnostic `json:"diagnostics"`
}

// OmittedCountries returns the countries removed by a country-level diagnostic.
func (r Result) OmittedCountries() []timeseries.CountryCode {
	var out []timeseries.CountryCode
	seen := make(map[timeseries.CountryCode]bool)
	for _, d := range r.Diagnostics {
		if d.OmitsCountry() && !seen[d.Country] {
			seen[d.Country] = true
			out = append(out, d.Country)
		}
	}
	return out
}

// Pipeline turns the raw series of a source into a surplus corpus.
type Pipeline struct {
	source  SeriesSource
	workers int
	logger  *log.Logger
	tracer  trace.Tracer
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithWorkers bounds the number of countries processed concurrently.
func WithWorkers(workers int) PipelineOption {
	return func(p *Pipeline) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *log.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline constructs a pipeline over a series source.
func NewPipeline(source SeriesSource, opts ...PipelineOption) (*Pipeline, error) {
	if source == nil {
		return nil, errors.New("surplus pipeline: nil source")
	}
	p := &Pipeline{
		source:  source,
		workers: defaultWorkers,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type countryOutcome struct {
	rows        []surplus.SurplusRow
	diagnostics []surplus.Diagnostic
}

// ComputeSurplusCorpus normalizes, composes and joins every country of the
// source under the given policy. Per-series and per-country failures become
// diagnostics; only listing failures and an empty batch are returned as errors.
func (p *Pipeline) ComputeSurplusCorpus(ctx context.Context, policy surplus.Policy) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "surplus.compute")
	defer span.End()

	keys, err := p.source.GenerationKeys(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("surplus pipeline: list generation: %w", err)
	}
	loadCountries, err := p.source.LoadCountries(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("surplus pipeline: list load: %w", err)
	}
	if len(keys) == 0 && len(loadCountries) == 0 {
		span.SetStatus(codes.Error, surplus.ErrNoCountries.Error())
		return Result{}, surplus.ErrNoCountries
	}

	order, byCountry, keyDiagnostics := groupKeys(keys, loadCountries)
	hasLoad := make(map[timeseries.CountryCode]bool, len(loadCountries))
	for _, country := range loadCountries {
		hasLoad[country] = true
	}

	outcomes := make([]countryOutcome, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, country := range order {
		i, country := i, country
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.processCountry(gctx, country, byCountry[country], hasLoad[country], policy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	rows := make(map[timeseries.CountryCode][]surplus.SurplusRow, len(order))
	diagnostics := keyDiagnostics
	for i, country := range order {
		rows[country] = outcomes[i].rows
		diagnostics = append(diagnostics, outcomes[i].diagnostics...)
	}
	corpus := surplus.AssembleCorpus(order, rows)

	span.SetAttributes(
		attribute.Int("surplus.countries", len(corpus.Groups)),
		attribute.Int("surplus.rows", corpus.Len()),
		attribute.Int("surplus.diagnostics", len(diagnostics)),
	)
	p.logf("surplus_corpus_computed", "countries=%d rows=%d diagnostics=%d", len(corpus.Groups), corpus.Len(), len(diagnostics))
	return Result{Corpus: corpus, Diagnostics: diagnostics}, nil
}

// groupKeys orders countries by first appearance among the generation keys,
// followed by countries that only have load.
func groupKeys(keys []surplus.SeriesKey, loadCountries []timeseries.CountryCode) ([]timeseries.CountryCode, map[timeseries.CountryCode][]surplus.SeriesKey, []surplus.Diagnostic) {
	var order []timeseries.CountryCode
	var diagnostics []surplus.Diagnostic
	byCountry := make(map[timeseries.CountryCode][]surplus.SeriesKey)
	seen := make(map[timeseries.CountryCode]bool)
	seenKey := make(map[surplus.SeriesKey]bool)
	for _, key := range keys {
		if err := key.Validate(); err != nil {
			diagnostics = append(diagnostics, surplus.NewDiagnostic(key.Country, key.EnergyType, surplus.StageSource, err))
			continue
		}
		if !seen[key.Country] {
			seen[key.Country] = true
			order = append(order, key.Country)
		}
		if seenKey[key] {
			continue
		}
		seenKey[key] = true
		byCountry[key.Country] = append(byCountry[key.Country], key)
	}
	for _, country := range loadCountries {
		if country == "" || seen[country] {
			continue
		}
		seen[country] = true
		order = append(order, country)
	}
	return order, byCountry, diagnostics
}

func (p *Pipeline) processCountry(ctx context.Context, country timeseries.CountryCode, keys []surplus.SeriesKey, hasLoad bool, policy surplus.Policy) countryOutcome {
	ctx, span := p.tracer.Start(ctx, "surplus.country", trace.WithAttributes(attribute.String("surplus.country", string(country))))
	defer span.End()

	var out countryOutcome
	omit := func(stage surplus.Stage, err error) countryOutcome {
		out.diagnostics = append(out.diagnostics, surplus.NewDiagnostic(country, "", stage, err))
		metrics.IncCountryOmitted(string(stage))
		span.SetStatus(codes.Error, err.Error())
		p.logf("surplus_country_omitted", "country=%s stage=%s error=%s", country, stage, err)
		return out
	}

	admitted := make([]surplus.SeriesKey, 0, len(keys))
	for _, key := range keys {
		switch {
		case policy.Excluded(key):
			out.diagnostics = append(out.diagnostics, surplus.NewDiagnostic(country, key.EnergyType, surplus.StagePolicy, surplus.ErrSeriesExcluded))
			metrics.IncSeries(string(surplus.StagePolicy), metrics.ResultSkipped)
		case policy.Admits(key):
			admitted = append(admitted, key)
		default:
			metrics.IncSeries(string(surplus.StagePolicy), metrics.ResultSkipped)
		}
	}
	sort.SliceStable(admitted, func(i, j int) bool {
		return policy.Rank(admitted[i].EnergyType) < policy.Rank(admitted[j].EnergyType)
	})
	if len(admitted) == 0 {
		return omit(surplus.StageCompose, surplus.ErrNoAdmittedGeneration)
	}

	parts := make([]timeseries.HourlySeries, 0, len(admitted))
	var failed []string
	for _, key := range admitted {
		hourly, stage, err := p.normalizeGeneration(ctx, key)
		if err != nil {
			out.diagnostics = append(out.diagnostics, surplus.NewDiagnostic(country, key.EnergyType, stage, err))
			metrics.IncSeries(string(stage), metrics.ResultError)
			p.logf("surplus_series_skipped", "country=%s energy_type=%s stage=%s error=%s", country, key.EnergyType, stage, err)
			failed = append(failed, string(key.EnergyType))
			continue
		}
		metrics.IncSeries(string(surplus.StageResample), metrics.ResultSuccess)
		parts = append(parts, hourly)
	}
	if len(failed) > 0 {
		return omit(surplus.StageCompose, fmt.Errorf("%w: %v", surplus.ErrIncompleteGeneration, failed))
	}

	generation, err := surplus.ComposeGeneration(country, parts)
	if err != nil {
		return omit(surplus.StageCompose, err)
	}

	if !hasLoad {
		return omit(surplus.StageLoad, surplus.ErrNoLoad)
	}
	raw, err := p.source.RawLoad(ctx, country)
	if err != nil {
		metrics.IncSeries(string(surplus.StageLoad), metrics.ResultError)
		return omit(surplus.StageLoad, err)
	}
	load, err := surplus.NormalizeLoad(country, raw)
	if err != nil {
		metrics.IncSeries(string(surplus.NormalizeStage(err)), metrics.ResultError)
		return omit(surplus.NormalizeStage(err), err)
	}
	metrics.IncSeries(string(surplus.StageLoad), metrics.ResultSuccess)

	rows, err := surplus.JoinSurplus(generation, load)
	if err != nil {
		return omit(surplus.StageJoin, err)
	}
	span.SetAttributes(attribute.Int("surplus.rows", len(rows)))
	out.rows = rows
	return out
}

func (p *Pipeline) normalizeGeneration(ctx context.Context, key surplus.SeriesKey) (timeseries.HourlySeries, surplus.Stage, error) {
	raw, err := p.source.RawGeneration(ctx, key.Country, key.EnergyType)
	if err != nil {
		return nil, surplus.StageSource, err
	}
	hourly, err := timeseries.Normalize(raw.WithAttributes(key.Country, key.EnergyType))
	if err != nil {
		return nil, surplus.NormalizeStage(err), err
	}
	return hourly, "", nil
}

func (p *Pipeline) logf(event, format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf("event=%s "+format, append([]any{event}, args...)...)
}
