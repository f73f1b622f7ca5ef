package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "c19pulse/internal/errors"
	"c19pulse/internal/infrastructure"
	"c19pulse/pkg/contracts/domain"
)

// utf8BOM is stripped from the first header cell
const utf8BOM = "\ufeff"

// Opener opens a dataset location for reading
type Opener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// dateLayouts are tried in order for every date cell
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// nullTokens are the cell values read as missing
var nullTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// LoadOption adjusts how a dataset is parsed
type LoadOption func(*loadOptions)

type loadOptions struct {
	text map[string]bool
}

// WithTextColumns marks columns that hold labels rather than numbers
func WithTextColumns(columns ...string) LoadOption {
	return func(o *loadOptions) {
		for _, c := range columns {
			o.text[c] = true
		}
	}
}

// Loader fetches delimited files and turns them into date-ordered series
type Loader struct {
	opener Opener
	logger *slog.Logger
	tracer trace.Tracer
}

// NewLoader creates a Loader. A nil tracer disables spans.
func NewLoader(opener Opener, logger *slog.Logger, tracer trace.Tracer) *Loader {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Loader{
		opener: opener,
		logger: infrastructure.WithComponent(logger, "loader"),
		tracer: tracer,
	}
}

// Load retrieves source, projects it to columns, parses dateColumn and
// sorts ascending by date. Rows sharing a date keep their source order.
func (l *Loader) Load(ctx context.Context, source, dateColumn string, columns []string, opts ...LoadOption) (*domain.Series, error) {
	ctx, span := l.tracer.Start(ctx, "dataprocessing.Load", trace.WithAttributes(
		attribute.String("source", source),
		attribute.Int("columns", len(columns)),
	))
	defer span.End()

	started := time.Now()
	rc, err := l.opener.Open(ctx, source)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	defer rc.Close()

	s, err := ParseCSV(rc, source, dateColumn, columns, opts...)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(l.logger, err).ErrorContext(ctx, "dataset parse failed",
			slog.String("source", source))
		return nil, err
	}

	span.SetAttributes(attribute.Int("rows", s.Len()))
	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", source),
		slog.Int("rows", s.Len()),
		slog.Int("columns", len(s.Columns())),
		slog.Duration("elapsed", time.Since(started)))
	return s, nil
}

// LoadCurrentPeriodOnly loads like Load and keeps only the rows in the
// latest calendar month present in the data.
func (l *Loader) LoadCurrentPeriodOnly(ctx context.Context, source, dateColumn string, columns []string, opts ...LoadOption) (*domain.Series, error) {
	s, err := l.Load(ctx, source, dateColumn, columns, opts...)
	if err != nil {
		return nil, err
	}
	current := CurrentPeriodOnly(s)
	l.logger.DebugContext(ctx, "restricted to current period",
		slog.String("source", source),
		slog.Int("rows_before", s.Len()),
		slog.Int("rows_after", current.Len()))
	return current, nil
}

// CurrentPeriodOnly keeps the rows whose calendar month equals the latest
// month in s. The month comes from the data, not the wall clock.
func CurrentPeriodOnly(s *domain.Series) *domain.Series {
	if s.Len() == 0 {
		return s
	}
	var maxKey int
	for i := 0; i < s.Len(); i++ {
		if k := periodKey(s.Date(i)); k > maxKey {
			maxKey = k
		}
	}
	return s.Filter(func(i int) bool { return periodKey(s.Date(i)) == maxKey })
}

func periodKey(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// ParseCSV reads comma-delimited data with a header row. The date column
// becomes the series dates; the other requested columns are numeric unless
// marked with WithTextColumns. Listing dateColumn in columns is optional.
func ParseCSV(r io.Reader, source, dateColumn string, columns []string, opts ...LoadOption) (*domain.Series, error) {
	o := loadOptions{text: map[string]bool{}}
	for _, opt := range opts {
		opt(&o)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewSchemaError(source, dateColumn)
		}
		return nil, apperrors.NewParsingError("failed to read header", err).WithContext("source", source)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	dateIdx, ok := index[dateColumn]
	if !ok {
		return nil, apperrors.NewSchemaError(source, dateColumn)
	}

	var valueCols []string
	for _, c := range columns {
		if c == dateColumn {
			continue
		}
		if _, ok := index[c]; !ok {
			return nil, apperrors.NewSchemaError(source, c)
		}
		valueCols = append(valueCols, c)
	}

	var dates []time.Time
	numeric := make(map[string][]float64)
	text := make(map[string][]string)

	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("malformed csv", err).
				WithContext("source", source).
				WithContext("row", row)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		raw := cell(record, dateIdx)
		d, err := parseDate(raw)
		if err != nil {
			return nil, apperrors.NewParseError(dateColumn, row, raw, err).WithContext("source", source)
		}
		dates = append(dates, d)

		for _, c := range valueCols {
			v := cell(record, index[c])
			if o.text[c] {
				if nullTokens[strings.TrimSpace(v)] {
					v = ""
				}
				text[c] = append(text[c], v)
				continue
			}
			f, err := parseNumber(v)
			if err != nil {
				return nil, apperrors.NewParseError(c, row, v, err).WithContext("source", source)
			}
			numeric[c] = append(numeric[c], f)
		}
	}

	order := make([]int, len(dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dates[order[a]].Before(dates[order[b]])
	})

	sorted := make([]time.Time, len(dates))
	for j, i := range order {
		sorted[j] = dates[i]
	}
	s := domain.NewSeries(dateColumn, sorted)
	for _, c := range valueCols {
		if o.text[c] {
			s = s.WithText(c, permuteStrings(text[c], order))
		} else {
			s = s.WithNumeric(c, permuteFloats(numeric[c], order))
		}
	}
	return s, nil
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return domain.CalendarDate(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseNumber(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if nullTokens[v] {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(v, 64)
}

func permuteFloats(v []float64, order []int) []float64 {
	out := make([]float64, len(order))
	for j, i := range order {
		out[j] = v[i]
	}
	return out
}

func permuteStrings(v []string, order []int) []string {
	out := make([]string, len(order))
	for j, i := range order {
		out[j] = v[i]
	}
	return out
}
