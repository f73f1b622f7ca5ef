package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"c19pulse/internal/cache"
	"c19pulse/internal/config"
	dp "c19pulse/internal/dataprocessing"
	"c19pulse/internal/datasets"
	apperrors "c19pulse/internal/errors"
	"c19pulse/internal/infrastructure"
	"c19pulse/pkg/contracts/domain"
)

// HospitalizationRatesKey names the joined hospital/vaccine snapshot
const HospitalizationRatesKey = "hospitalization_rates"

// Options narrows the trend series. Zero times mean the edge of the data.
type Options struct {
	From time.Time
	To   time.Time

	// Refresh drops every memoized dataset before loading
	Refresh bool
}

// Dependencies are the collaborators a Builder uses. Memo, Metrics and
// Tracer are optional.
type Dependencies struct {
	Loader  *dp.Loader
	Engine  *dp.Engine
	Memo    *cache.Memo
	Metrics *infrastructure.Metrics
	Tracer  trace.Tracer
	Logger  *slog.Logger
}

// Builder loads every registered dataset and assembles the dashboard report
type Builder struct {
	cfg      *config.Config
	registry *datasets.Registry
	deps     Dependencies
	logger   *slog.Logger
	now      func() time.Time
}

// NewBuilder creates a Builder
func NewBuilder(cfg *config.Config, registry *datasets.Registry, deps Dependencies) *Builder {
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Builder{
		cfg:      cfg,
		registry: registry,
		deps:     deps,
		logger:   infrastructure.WithComponent(deps.Logger, "report"),
		now:      time.Now,
	}
}

// Derived is the output of the load and derive stage, keyed by dataset name
type Derived map[string]*domain.Series

// Build runs the whole pipeline and returns a fresh report. A context
// without a trace ID gets a new run ID.
func (b *Builder) Build(ctx context.Context, opts Options) (*domain.Report, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := b.deps.Tracer.Start(ctx, "report.Build")
	defer span.End()

	if !opts.From.IsZero() && !opts.To.IsZero() && opts.From.After(opts.To) {
		return nil, apperrors.NewInvalidRangeError(opts.From.Format(domain.DateLayout), opts.To.Format(domain.DateLayout))
	}

	if opts.Refresh && b.deps.Memo != nil {
		b.deps.Memo.Purge()
		b.logger.DebugContext(ctx, "dataset cache purged")
	}

	derived, err := b.Derive(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	started := time.Now()
	report, err := b.Assemble(ctx, derived, opts)
	b.deps.Metrics.ObserveStage("assemble", started)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(Attributes(report)...)
	return report, nil
}

// Derive validates the registry, then loads and derives every dataset with
// at most Pipeline.Concurrency fetches in flight. Any failure fails the run.
func (b *Builder) Derive(ctx context.Context) (Derived, error) {
	if err := b.registry.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	defs := b.registry.List()

	var mu sync.Mutex
	out := make(Derived, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Pipeline.Concurrency)
	for _, def := range defs {
		g.Go(func() error {
			s, err := b.deriveOne(gctx, def)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", def.Name, err)
			}
			mu.Lock()
			out[def.Name] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.WithError(b.logger, err).ErrorContext(ctx, "pipeline failed",
			slog.String("error_type", string(apperrors.TypeOf(err))))
		return nil, err
	}

	b.deps.Metrics.ObserveStage("derive", started)
	b.logger.InfoContext(ctx, "datasets derived",
		slog.Int("datasets", len(out)),
		slog.Duration("elapsed", time.Since(started)))
	return out, nil
}

func (b *Builder) deriveOne(ctx context.Context, def datasets.Definition) (*domain.Series, error) {
	raw, err := b.load(ctx, def)
	if err != nil {
		return nil, err
	}
	b.deps.Metrics.SetRows(def.Name, raw.Len())

	s, err := b.deps.Engine.Derive(ctx, raw, def.Spec)
	if err != nil {
		return nil, err
	}
	if def.LatestOnly {
		return dp.LatestRows(s)
	}
	return s, nil
}

// load goes through the memo when caching is enabled
func (b *Builder) load(ctx context.Context, def datasets.Definition) (*domain.Series, error) {
	load := func(ctx context.Context) (*domain.Series, error) {
		if def.CurrentPeriodOnly {
			return b.deps.Loader.LoadCurrentPeriodOnly(ctx, def.Source, def.DateColumn, def.Columns, def.LoadOptions()...)
		}
		return b.deps.Loader.Load(ctx, def.Source, def.DateColumn, def.Columns, def.LoadOptions()...)
	}
	if b.deps.Memo == nil {
		return load(ctx)
	}

	s, hit, err := b.deps.Memo.Get(ctx, memoKey(def), load)
	if err != nil {
		return nil, err
	}
	b.deps.Metrics.ObserveCache(hit)
	if hit {
		b.logger.DebugContext(ctx, "dataset served from cache", slog.String("dataset", def.Name))
	}
	return s, nil
}

// memoKey identifies a load by everything that changes its result
func memoKey(def datasets.Definition) string {
	variants := []string{"date:" + def.DateColumn}
	for _, c := range def.TextColumns {
		variants = append(variants, "text:"+c)
	}
	if def.CurrentPeriodOnly {
		variants = append(variants, "current-period")
	}
	return cache.Key(def.Source, def.Columns, variants...)
}

// Assemble selects snapshots, trend windows and breakdowns from derived
// series. It does no I/O.
func (b *Builder) Assemble(ctx context.Context, derived Derived, opts Options) (*domain.Report, error) {
	report := domain.NewReport(infrastructure.GetTraceID(ctx), b.now().UTC())

	window, err := b.resolveWindow(derived, opts)
	if err != nil {
		return nil, err
	}
	report.Window = window

	for _, def := range b.registry.List() {
		s, ok := derived[def.Name]
		if !ok {
			return nil, apperrors.NewNotFoundError("derived dataset " + def.Name)
		}

		if len(def.Breakdowns) == 0 {
			rec, err := dp.Latest(s)
			if err != nil {
				return nil, fmt.Errorf("dataset %s: %w", def.Name, err)
			}
			report.Snapshots[def.Name] = domain.NewSnapshot(rec)
		}

		if len(def.Trend) > 0 {
			trend, err := Trend(s, def.Trend, opts)
			if err != nil {
				return nil, fmt.Errorf("dataset %s: %w", def.Name, err)
			}
			report.Series[def.Name] = trend
		}

		for _, spec := range def.Breakdowns {
			bd, err := BuildBreakdown(s, spec)
			if err != nil {
				return nil, fmt.Errorf("dataset %s: %w", def.Name, err)
			}
			report.Breakdowns[spec.Name] = bd
		}
	}

	if err := b.hospitalizationRates(ctx, derived, report); err != nil {
		return nil, err
	}

	if snap, ok := report.Snapshots[datasets.Cases]; ok {
		report.Overview = BuildOverview(snap, b.cfg.Pipeline.UnderReportingFactor)
	}
	if rates, ok := report.Snapshots[HospitalizationRatesKey]; ok {
		report.Overview.Likelihood = BuildLikelihood(rates)
	}

	b.logger.InfoContext(ctx, "report assembled",
		slog.String("from", window.From.Format(domain.DateLayout)),
		slog.String("to", window.To.Format(domain.DateLayout)),
		slog.Int("snapshots", len(report.Snapshots)),
		slog.Int("series", len(report.Series)),
		slog.Int("breakdowns", len(report.Breakdowns)))
	return report, nil
}

// resolveWindow reports the overall trend range. Open ends take the
// earliest start and the latest end across the windowed datasets, so each
// series can still reach its own edges.
func (b *Builder) resolveWindow(derived Derived, opts Options) (domain.DateRange, error) {
	var window domain.DateRange
	for _, def := range b.registry.List() {
		s, ok := derived[def.Name]
		if !ok || len(def.Trend) == 0 || s.Len() == 0 {
			continue
		}
		r, err := dp.Span(s)
		if err != nil {
			return domain.DateRange{}, err
		}
		if window.From.IsZero() || r.From.Before(window.From) {
			window.From = r.From
		}
		if r.To.After(window.To) {
			window.To = r.To
		}
	}

	if !opts.From.IsZero() {
		window.From = domain.CalendarDate(opts.From)
	}
	if !opts.To.IsZero() {
		window.To = domain.CalendarDate(opts.To)
	}
	if window.From.After(window.To) {
		return domain.DateRange{}, apperrors.NewInvalidRangeError(window.From.Format(domain.DateLayout), window.To.Format(domain.DateLayout))
	}
	return window, nil
}

// SeriesWindow resolves opts against one series: an open end falls back to
// that series' own first or last date.
func SeriesWindow(s *domain.Series, opts Options) (domain.DateRange, error) {
	r := domain.DateRange{From: opts.From, To: opts.To}
	if r.From.IsZero() || r.To.IsZero() {
		span, err := dp.Span(s)
		if err != nil {
			return domain.DateRange{}, err
		}
		if r.From.IsZero() {
			r.From = span.From
		}
		if r.To.IsZero() {
			r.To = span.To
		}
	}
	return domain.DateRange{From: domain.CalendarDate(r.From), To: domain.CalendarDate(r.To)}, nil
}

// Trend windows s to opts and keeps only the named columns. An empty
// series, or a requested bound past the series' own edge, yields no rows.
func Trend(s *domain.Series, columns []string, opts Options) (*domain.Series, error) {
	w := s.Filter(func(int) bool { return false })
	if s.Len() > 0 {
		r, err := SeriesWindow(s, opts)
		if err != nil {
			return nil, err
		}
		if !r.From.After(r.To) {
			if w, err = dp.Window(s, r.From, r.To); err != nil {
				return nil, err
			}
		}
	}
	out, missing := w.Select(columns...)
	if missing != "" {
		return nil, apperrors.NewSchemaError("trend", missing)
	}
	return out, nil
}

// BuildBreakdown applies a breakdown spec's label rules and counts groups
func BuildBreakdown(s *domain.Series, spec datasets.BreakdownSpec) (domain.Breakdown, error) {
	var err error
	if len(spec.Mapping) > 0 {
		if s, err = dp.Normalize(s, spec.Column, spec.Mapping); err != nil {
			return domain.Breakdown{}, err
		}
	}
	for _, label := range spec.Exclude {
		if s, err = dp.ExcludeLabel(s, spec.Column, label); err != nil {
			return domain.Breakdown{}, err
		}
	}
	if spec.TitleCase {
		if s, err = dp.TitleCase(s, spec.Column); err != nil {
			return domain.Breakdown{}, err
		}
	}
	return dp.Breakdown(s, spec.Column)
}

// hospitalizationRates joins the latest hospital row with the vaccine
// totals of the same day. No shared date leaves the snapshot out.
func (b *Builder) hospitalizationRates(ctx context.Context, derived Derived, report *domain.Report) error {
	hosp, okHosp := derived[datasets.Hospitalizations]
	vacc, okVacc := derived[datasets.Vaccines]
	if !okHosp || !okVacc {
		return nil
	}

	joined, err := dp.InnerJoin(hosp, vacc)
	if err != nil {
		return err
	}
	if joined.Len() == 0 {
		b.logger.WarnContext(ctx, "no vaccine totals on the latest hospitalization date")
		return nil
	}

	rates, err := b.deps.Engine.Derive(ctx, joined, datasets.HospitalizationRates())
	if err != nil {
		return err
	}
	rec, err := dp.Latest(rates)
	if err != nil {
		return err
	}
	report.Snapshots[HospitalizationRatesKey] = domain.NewSnapshot(rec)
	return nil
}

// Attributes describes a report for span and log fields
func Attributes(r *domain.Report) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("run_id", r.RunID),
		attribute.Int("snapshots", len(r.Snapshots)),
		attribute.Int("series", len(r.Series)),
		attribute.Int("breakdowns", len(r.Breakdowns)),
	}
}
