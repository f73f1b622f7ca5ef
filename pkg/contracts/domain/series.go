package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar-date layout used for every serialized date.
const DateLayout = "2006-01-02"

// ColumnKind identifies how a column's cells are stored
type ColumnKind int

const (
	// Numeric columns hold float64 values where NaN marks a null cell.
	Numeric ColumnKind = iota
	// Text columns hold strings where "" marks a null cell.
	Text
)

// String returns the kind name
func (k ColumnKind) String() string {
	if k == Text {
		return "text"
	}
	return "numeric"
}

// Series is an immutable, date-ordered table. Every With* method returns a
// new Series; column slices are shared between versions and never written
// after construction.
type Series struct {
	dateColumn string
	dates      []time.Time
	columns    []string
	kinds      map[string]ColumnKind
	numeric    map[string][]float64
	text       map[string][]string
}

// NewSeries creates a series over the given dates with no value columns.
// Dates are truncated to UTC calendar days.
func NewSeries(dateColumn string, dates []time.Time) *Series {
	d := make([]time.Time, len(dates))
	for i, t := range dates {
		d[i] = CalendarDate(t)
	}
	return &Series{
		dateColumn: dateColumn,
		dates:      d,
		kinds:      map[string]ColumnKind{},
		numeric:    map[string][]float64{},
		text:       map[string][]string{},
	}
}

// CalendarDate drops the time-of-day component and pins the value to UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Null is the numeric null marker
func Null() float64 { return math.NaN() }

// IsNull reports whether a numeric cell is null
func IsNull(v float64) bool { return math.IsNaN(v) }

// DateColumn returns the name of the date column
func (s *Series) DateColumn() string { return s.dateColumn }

// Len returns the number of rows
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dates)
}

// Date returns the date of row i
func (s *Series) Date(i int) time.Time { return s.dates[i] }

// Dates returns a copy of the date column
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Columns returns the value column names in order
func (s *Series) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Has reports whether the series contains the named value column
func (s *Series) Has(name string) bool {
	_, ok := s.kinds[name]
	return ok
}

// Kind returns the kind of a column
func (s *Series) Kind(name string) (ColumnKind, bool) {
	k, ok := s.kinds[name]
	return k, ok
}

// Numeric returns a copy of a numeric column
func (s *Series) Numeric(name string) ([]float64, bool) {
	v, ok := s.numeric[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, true
}

// Text returns a copy of a text column
func (s *Series) Text(name string) ([]string, bool) {
	v, ok := s.text[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(v))
	copy(out, v)
	return out, true
}

// Value returns the numeric cell at row i
func (s *Series) Value(name string, i int) (float64, bool) {
	v, ok := s.numeric[name]
	if !ok {
		return math.NaN(), false
	}
	return v[i], true
}

// Label returns the text cell at row i
func (s *Series) Label(name string, i int) (string, bool) {
	v, ok := s.text[name]
	if !ok {
		return "", false
	}
	return v[i], true
}

func (s *Series) clone() *Series {
	out := &Series{
		dateColumn: s.dateColumn,
		dates:      s.dates,
		columns:    make([]string, len(s.columns)),
		kinds:      make(map[string]ColumnKind, len(s.kinds)),
		numeric:    make(map[string][]float64, len(s.numeric)),
		text:       make(map[string][]string, len(s.text)),
	}
	copy(out.columns, s.columns)
	for k, v := range s.kinds {
		out.kinds[k] = v
	}
	for k, v := range s.numeric {
		out.numeric[k] = v
	}
	for k, v := range s.text {
		out.text[k] = v
	}
	return out
}

func (s *Series) checkLength(name string, n int) {
	if n != len(s.dates) {
		panic(fmt.Sprintf("domain: column %q has %d rows, series has %d", name, n, len(s.dates)))
	}
}

// WithNumeric returns a new series with the numeric column set. An existing
// column of the same name is replaced in place; otherwise it is appended.
// The values slice is owned by the series afterwards.
func (s *Series) WithNumeric(name string, values []float64) *Series {
	s.checkLength(name, len(values))
	out := s.clone()
	out.put(name, Numeric)
	delete(out.text, name)
	out.numeric[name] = values
	return out
}

// WithText returns a new series with the text column set
func (s *Series) WithText(name string, values []string) *Series {
	s.checkLength(name, len(values))
	out := s.clone()
	out.put(name, Text)
	delete(out.numeric, name)
	out.text[name] = values
	return out
}

func (s *Series) put(name string, kind ColumnKind) {
	if _, exists := s.kinds[name]; !exists {
		s.columns = append(s.columns, name)
	}
	s.kinds[name] = kind
}

// Rename returns a new series with columns renamed per mapping. The date
// column may be renamed as well. Column order is preserved and every
// target is resolved from the original names, so swaps are safe. When two
// columns would end up with the same name the second result names it and
// the series is nil.
func (s *Series) Rename(mapping map[string]string) (*Series, string) {
	target := func(name string) string {
		if to, ok := mapping[name]; ok && to != "" {
			return to
		}
		return name
	}

	out := &Series{
		dateColumn: target(s.dateColumn),
		dates:      s.dates,
		columns:    make([]string, 0, len(s.columns)),
		kinds:      make(map[string]ColumnKind, len(s.kinds)),
		numeric:    make(map[string][]float64, len(s.numeric)),
		text:       make(map[string][]string, len(s.text)),
	}
	for _, from := range s.columns {
		to := target(from)
		if _, dup := out.kinds[to]; dup || to == out.dateColumn {
			return nil, to
		}
		out.columns = append(out.columns, to)
		out.kinds[to] = s.kinds[from]
		if s.kinds[from] == Numeric {
			out.numeric[to] = s.numeric[from]
		} else {
			out.text[to] = s.text[from]
		}
	}
	return out, ""
}

// Select returns a new series holding only the named columns, in the given
// order. The second result names the first missing column, if any.
func (s *Series) Select(names ...string) (*Series, string) {
	out := &Series{
		dateColumn: s.dateColumn,
		dates:      s.dates,
		kinds:      make(map[string]ColumnKind, len(names)),
		numeric:    map[string][]float64{},
		text:       map[string][]string{},
	}
	for _, name := range names {
		kind, ok := s.kinds[name]
		if !ok {
			return nil, name
		}
		if _, dup := out.kinds[name]; dup {
			continue
		}
		out.put(name, kind)
		if kind == Numeric {
			out.numeric[name] = s.numeric[name]
		} else {
			out.text[name] = s.text[name]
		}
	}
	return out, ""
}

// Filter returns a new series holding the rows for which keep returns true
func (s *Series) Filter(keep func(i int) bool) *Series {
	var idx []int
	for i := range s.dates {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return s.Rows(idx)
}

// Rows returns a new series built from the given row indexes, in order
func (s *Series) Rows(idx []int) *Series {
	dates := make([]time.Time, len(idx))
	for j, i := range idx {
		dates[j] = s.dates[i]
	}
	out := &Series{
		dateColumn: s.dateColumn,
		dates:      dates,
		columns:    make([]string, len(s.columns)),
		kinds:      make(map[string]ColumnKind, len(s.kinds)),
		numeric:    make(map[string][]float64, len(s.numeric)),
		text:       make(map[string][]string, len(s.text)),
	}
	copy(out.columns, s.columns)
	for k, v := range s.kinds {
		out.kinds[k] = v
	}
	for name, col := range s.numeric {
		v := make([]float64, len(idx))
		for j, i := range idx {
			v[j] = col[i]
		}
		out.numeric[name] = v
	}
	for name, col := range s.text {
		v := make([]string, len(idx))
		for j, i := range idx {
			v[j] = col[i]
		}
		out.text[name] = v
	}
	return out
}

// Record returns row i as a record
func (s *Series) Record(i int) Record {
	rec := Record{
		Date:   s.dates[i],
		Values: make(map[string]float64, len(s.numeric)),
	}
	for name, col := range s.numeric {
		rec.Values[name] = col[i]
	}
	if len(s.text) > 0 {
		rec.Labels = make(map[string]string, len(s.text))
		for name, col := range s.text {
			rec.Labels[name] = col[i]
		}
	}
	return rec
}

// Records returns every row as a record
func (s *Series) Records() []Record {
	out := make([]Record, s.Len())
	for i := range out {
		out[i] = s.Record(i)
	}
	return out
}

// MarshalJSON renders the series as its column list plus row records.
func (s *Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DateColumn string   `json:"date_column"`
		Columns    []string `json:"columns"`
		Records    []Record `json:"records"`
	}{
		DateColumn: s.dateColumn,
		Columns:    s.Columns(),
		Records:    s.Records(),
	})
}

// Record is one reporting date: numeric metrics plus any text cells.
type Record struct {
	Date   time.Time
	Values map[string]float64
	Labels map[string]string
}

// Value returns a metric, reporting false when it is absent or null
func (r Record) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// MarshalJSON writes the date as YYYY-MM-DD and null cells as JSON null.
func (r Record) MarshalJSON() ([]byte, error) {
	values := make(map[string]*float64, len(r.Values))
	for k, v := range r.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[k] = nil
			continue
		}
		v := v
		values[k] = &v
	}
	return json.Marshal(struct {
		Date   string              `json:"date"`
		Values map[string]*float64 `json:"values"`
		Labels map[string]string   `json:"labels,omitempty"`
	}{
		Date:   r.Date.Format(DateLayout),
		Values: values,
		Labels: r.Labels,
	})
}
