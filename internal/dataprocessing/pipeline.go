package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "c19pulse/internal/errors"
	"c19pulse/internal/infrastructure"
	"c19pulse/pkg/contracts/domain"
)

// DeriveSpec is an ordered list of transform steps. Each step may read
// columns written by the steps before it.
type DeriveSpec struct {
	Name  string
	Steps []Step
}

// NewDeriveSpec creates a spec
func NewDeriveSpec(name string, steps ...Step) DeriveSpec {
	return DeriveSpec{Name: name, Steps: steps}
}

// Validate walks the steps against the starting columns without touching
// any data. A step reading a column that is not yet defined yields a
// DependencyError. NullFill may only appear once, as the last step.
func (d DeriveSpec) Validate(columns []string) error {
	_, err := d.OutputColumns(columns)
	return err
}

// OutputColumns returns the columns a series will carry after the spec runs
func (d DeriveSpec) OutputColumns(columns []string) ([]string, error) {
	cols := make([]string, len(columns))
	copy(cols, columns)
	present := toSet(cols)

	for i, step := range d.Steps {
		if step == nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%s: step %d is nil", d.Name, i), nil)
		}
		if c, ok := step.(checker); ok {
			if err := c.check(); err != nil {
				return nil, err
			}
		}
		if _, ok := step.(NullFill); ok && i != len(d.Steps)-1 {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("%s: NullFill must be the final step, found at %d of %d", d.Name, i+1, len(d.Steps)), nil)
		}
		for _, in := range step.Inputs() {
			if !present[in] {
				return nil, apperrors.NewDependencyError(step.Name(), in).WithContext("spec", d.Name)
			}
		}
		if cc, ok := step.(columnChecker); ok {
			if err := cc.checkColumns(cols); err != nil {
				return nil, err
			}
		}
		if rw, ok := step.(columnRewriter); ok {
			cols = rw.rewrite(cols)
			present = toSet(cols)
			continue
		}
		for _, out := range step.Outputs() {
			if out == "" {
				return nil, apperrors.NewValidationError(fmt.Sprintf("%s: step %s has no output column", d.Name, step.Name()), nil)
			}
			if !present[out] {
				cols = append(cols, out)
				present[out] = true
			}
		}
	}
	return cols, nil
}

func toSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}

// DeriveMetrics applies every step of spec in order. The input series is
// not modified. The spec is validated against the series first, so a
// dependency problem fails before any work is done.
func DeriveMetrics(s *domain.Series, spec DeriveSpec) (*domain.Series, error) {
	return deriveMetrics(s, spec, nil)
}

// deriveMetrics runs the steps one after another, calling applied after
// each successful step when it is set.
func deriveMetrics(s *domain.Series, spec DeriveSpec, applied func(Step)) (*domain.Series, error) {
	if err := spec.Validate(s.Columns()); err != nil {
		return nil, err
	}
	out := s
	for _, step := range spec.Steps {
		next, err := step.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
		if applied != nil {
			applied(step)
		}
		out = next
	}
	return out, nil
}

// Engine runs derive specs with logging, tracing and step counters
type Engine struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	instruments *infrastructure.PipelineInstruments
}

// NewEngine creates an Engine. Nil tracer and instruments are allowed.
func NewEngine(logger *slog.Logger, tracer trace.Tracer, instruments *infrastructure.PipelineInstruments) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Engine{
		logger:      infrastructure.WithComponent(logger, "engine"),
		tracer:      tracer,
		instruments: instruments,
	}
}

// Derive applies spec to s
func (e *Engine) Derive(ctx context.Context, s *domain.Series, spec DeriveSpec) (*domain.Series, error) {
	ctx, span := e.tracer.Start(ctx, "dataprocessing.Derive", trace.WithAttributes(
		attribute.String("spec", spec.Name),
		attribute.Int("steps", len(spec.Steps)),
		attribute.Int("rows", s.Len()),
	))
	defer span.End()

	started := time.Now()
	out, err := deriveMetrics(s, spec, func(step Step) {
		e.instruments.RecordStep(ctx, spec.Name, step.Kind())
		e.logger.DebugContext(ctx, "step applied",
			slog.String("spec", spec.Name),
			slog.String("step", step.Name()))
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(e.logger, err).ErrorContext(ctx, "derive failed",
			slog.String("spec", spec.Name),
			slog.String("error_type", string(apperrors.TypeOf(err))))
		return nil, err
	}

	e.instruments.RecordRows(ctx, spec.Name, out.Len())
	e.logger.InfoContext(ctx, "metrics derived",
		slog.String("spec", spec.Name),
		slog.Int("steps", len(spec.Steps)),
		slog.Int("rows", out.Len()),
		slog.Int("columns", len(out.Columns())),
		slog.Duration("elapsed", time.Since(started)))
	return out, nil
}
