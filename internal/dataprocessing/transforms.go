package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	apperrors "c19pulse/internal/errors"
	"c19pulse/pkg/contracts/domain"
)

// Step is one named transform of a derive spec. Apply never modifies its
// input; it returns a new series.
type Step interface {
	// Kind is the transform name, e.g. "Difference"
	Kind() string
	// Name identifies the step in errors and logs, e.g. "Difference(Deaths)"
	Name() string
	// Inputs are the columns the step reads
	Inputs() []string
	// Outputs are the columns the step writes
	Outputs() []string
	Apply(s *domain.Series) (*domain.Series, error)
}

// columnRewriter is implemented by steps that remove or rename columns
// rather than only adding them.
type columnRewriter interface {
	rewrite(columns []string) []string
}

// columnChecker is implemented by steps whose validity depends on the
// columns present when they run
type columnChecker interface {
	checkColumns(columns []string) error
}

// checker is implemented by steps with parameters that need validating
type checker interface {
	check() error
}

func numericInput(s *domain.Series, step Step, column string) ([]float64, error) {
	kind, ok := s.Kind(column)
	if !ok {
		return nil, apperrors.NewDependencyError(step.Name(), column)
	}
	if kind != domain.Numeric {
		return nil, apperrors.NewAppError(apperrors.ErrTypeSchema,
			fmt.Sprintf("step %s needs numeric column %q", step.Name(), column), nil).
			WithContext("column", column)
	}
	v, _ := s.Numeric(column)
	return v, nil
}

func nulls(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Difference writes value[i] - value[i-1]. Row 0 is null.
type Difference struct {
	Column string
	Output string
}

func (d Difference) Kind() string      { return "Difference" }
func (d Difference) Name() string      { return "Difference(" + d.Column + ")" }
func (d Difference) Inputs() []string  { return []string{d.Column} }
func (d Difference) Outputs() []string { return []string{d.Output} }

func (d Difference) Apply(s *domain.Series) (*domain.Series, error) {
	v, err := numericInput(s, d, d.Column)
	if err != nil {
		return nil, err
	}
	return s.WithNumeric(d.Output, difference(v)), nil
}

func difference(v []float64) []float64 {
	out := nulls(len(v))
	for i := 1; i < len(v); i++ {
		out[i] = v[i] - v[i-1]
	}
	return out
}

// SecondDifference writes the change in the day-over-day change:
// (value[i] - value[i-1]) - (value[i-1] - value[i-2]). Rows 0 and 1 are null.
type SecondDifference struct {
	Column string
	Output string
}

func (d SecondDifference) Kind() string      { return "SecondDifference" }
func (d SecondDifference) Name() string      { return "SecondDifference(" + d.Column + ")" }
func (d SecondDifference) Inputs() []string  { return []string{d.Column} }
func (d SecondDifference) Outputs() []string { return []string{d.Output} }

func (d SecondDifference) Apply(s *domain.Series) (*domain.Series, error) {
	v, err := numericInput(s, d, d.Column)
	if err != nil {
		return nil, err
	}
	out := nulls(len(v))
	for i := 2; i < len(v); i++ {
		out[i] = (v[i] - v[i-1]) - (v[i-1] - v[i-2])
	}
	return s.WithNumeric(d.Output, out), nil
}

// RollingMean writes the mean of the trailing Window values including the
// current row. Rows before Window-1, and windows holding a null, are null.
type RollingMean struct {
	Column string
	Output string
	Window int
}

func (r RollingMean) Kind() string      { return "RollingMean" }
func (r RollingMean) Name() string      { return fmt.Sprintf("RollingMean(%s, %d)", r.Column, r.Window) }
func (r RollingMean) Inputs() []string  { return []string{r.Column} }
func (r RollingMean) Outputs() []string { return []string{r.Output} }

func (r RollingMean) check() error {
	if r.Window < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("step %s: window must be at least 1", r.Name()), nil)
	}
	return nil
}

func (r RollingMean) Apply(s *domain.Series) (*domain.Series, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	v, err := numericInput(s, r, r.Column)
	if err != nil {
		return nil, err
	}
	return s.WithNumeric(r.Output, rollingMean(v, r.Window)), nil
}

func rollingMean(v []float64, window int) []float64 {
	out := nulls(len(v))
	for i := window - 1; i < len(v); i++ {
		var sum float64
		for _, x := range v[i-window+1 : i+1] {
			sum += x
		}
		// a null anywhere in the window propagates through the sum
		out[i] = sum / float64(window)
	}
	return out
}

// Ratio writes (numerator / denominator) * Scale, where a zero Scale means
// 1. A zero denominator gives null rather than an error.
type Ratio struct {
	Numerator   string
	Denominator string
	Output      string
	Scale       float64
}

func (r Ratio) Kind() string      { return "Ratio" }
func (r Ratio) Name() string      { return "Ratio(" + r.Numerator + ", " + r.Denominator + ")" }
func (r Ratio) Inputs() []string  { return []string{r.Numerator, r.Denominator} }
func (r Ratio) Outputs() []string { return []string{r.Output} }

func (r Ratio) Apply(s *domain.Series) (*domain.Series, error) {
	num, err := numericInput(s, r, r.Numerator)
	if err != nil {
		return nil, err
	}
	den, err := numericInput(s, r, r.Denominator)
	if err != nil {
		return nil, err
	}
	scale := r.Scale
	if scale == 0 {
		scale = 1
	}
	out := make([]float64, len(num))
	for i := range num {
		out[i] = divide(num[i], den[i]) * scale
	}
	return s.WithNumeric(r.Output, out), nil
}

func divide(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return math.NaN()
	}
	return num / den
}

// PerCapita writes value / Population * Per, e.g. a rate per 100k people
type PerCapita struct {
	Column     string
	Output     string
	Population float64
	Per        float64
}

func (p PerCapita) Kind() string      { return "PerCapita" }
func (p PerCapita) Name() string      { return "PerCapita(" + p.Column + ")" }
func (p PerCapita) Inputs() []string  { return []string{p.Column} }
func (p PerCapita) Outputs() []string { return []string{p.Output} }

func (p PerCapita) check() error {
	if p.Population <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("step %s: population must be positive", p.Name()), nil)
	}
	return nil
}

func (p PerCapita) Apply(s *domain.Series) (*domain.Series, error) {
	v, err := numericInput(s, p, p.Column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(v))
	for i := range v {
		out[i] = divide(v[i], p.Population) * p.Per
	}
	return s.WithNumeric(p.Output, out), nil
}

// Multiply writes value * Factor
type Multiply struct {
	Column string
	Output string
	Factor float64
}

func (m Multiply) Kind() string      { return "Multiply" }
func (m Multiply) Name() string      { return "Multiply(" + m.Column + ")" }
func (m Multiply) Inputs() []string  { return []string{m.Column} }
func (m Multiply) Outputs() []string { return []string{m.Output} }

func (m Multiply) Apply(s *domain.Series) (*domain.Series, error) {
	v, err := numericInput(s, m, m.Column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * m.Factor
	}
	return s.WithNumeric(m.Output, out), nil
}

// Subtract writes minuend - subtrahend
type Subtract struct {
	Minuend    string
	Subtrahend string
	Output     string
}

func (d Subtract) Kind() string      { return "Subtract" }
func (d Subtract) Name() string      { return "Subtract(" + d.Minuend + ", " + d.Subtrahend + ")" }
func (d Subtract) Inputs() []string  { return []string{d.Minuend, d.Subtrahend} }
func (d Subtract) Outputs() []string { return []string{d.Output} }

func (d Subtract) Apply(s *domain.Series) (*domain.Series, error) {
	a, err := numericInput(s, d, d.Minuend)
	if err != nil {
		return nil, err
	}
	b, err := numericInput(s, d, d.Subtrahend)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return s.WithNumeric(d.Output, out), nil
}

// SubtractFrom writes Constant - value
type SubtractFrom struct {
	Constant float64
	Column   string
	Output   string
}

func (d SubtractFrom) Kind() string      { return "SubtractFrom" }
func (d SubtractFrom) Name() string      { return "SubtractFrom(" + d.Column + ")" }
func (d SubtractFrom) Inputs() []string  { return []string{d.Column} }
func (d SubtractFrom) Outputs() []string { return []string{d.Output} }

func (d SubtractFrom) Apply(s *domain.Series) (*domain.Series, error) {
	v, err := numericInput(s, d, d.Column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(v))
	for i := range v {
		out[i] = d.Constant - v[i]
	}
	return s.WithNumeric(d.Output, out), nil
}

// Sum writes the row-wise sum of Columns
type Sum struct {
	Columns []string
	Output  string
}

func (a Sum) Kind() string      { return "Sum" }
func (a Sum) Name() string      { return "Sum(" + strings.Join(a.Columns, ", ") + ")" }
func (a Sum) Inputs() []string  { return a.Columns }
func (a Sum) Outputs() []string { return []string{a.Output} }

func (a Sum) Apply(s *domain.Series) (*domain.Series, error) {
	out := make([]float64, s.Len())
	for _, c := range a.Columns {
		v, err := numericInput(s, a, c)
		if err != nil {
			return nil, err
		}
		for i := range v {
			out[i] += v[i]
		}
	}
	return s.WithNumeric(a.Output, out), nil
}

// Round rounds half to even. Output defaults to Column, replacing it.
type Round struct {
	Column string
	Output string
	Places int
}

func (r Round) output() string {
	if r.Output == "" {
		return r.Column
	}
	return r.Output
}

func (r Round) Kind() string      { return "Round" }
func (r Round) Name() string      { return fmt.Sprintf("Round(%s, %d)", r.Column, r.Places) }
func (r Round) Inputs() []string  { return []string{r.Column} }
func (r Round) Outputs() []string { return []string{r.output()} }

func (r Round) Apply(s *domain.Series) (*domain.Series, error) {
	v, err := numericInput(s, r, r.Column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(v))
	for i := range v {
		out[i] = RoundHalfEven(v[i], r.Places)
	}
	return s.WithNumeric(r.output(), out), nil
}

// Truncate drops the fractional part of Column toward zero. Output
// defaults to Column.
type Truncate struct {
	Column string
	Output string
}

func (r Truncate) output() string {
	if r.Output == "" {
		return r.Column
	}
	return r.Output
}

func (r Truncate) Kind() string      { return "Truncate" }
func (r Truncate) Name() string      { return "Truncate(" + r.Column + ")" }
func (r Truncate) Inputs() []string  { return []string{r.Column} }
func (r Truncate) Outputs() []string { return []string{r.output()} }

func (r Truncate) Apply(s *domain.Series) (*domain.Series, error) {
	v, err := numericInput(s, r, r.Column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(v))
	for i := range v {
		out[i] = math.Trunc(v[i])
	}
	return s.WithNumeric(r.output(), out), nil
}

// NullFill replaces every null cell in the table with Value. Text nulls
// receive Value's decimal form unless Text names a fill for that column.
type NullFill struct {
	Value float64
	Text  map[string]string
}

func (n NullFill) Kind() string      { return "NullFill" }
func (n NullFill) Name() string      { return "NullFill(" + strconv.FormatFloat(n.Value, 'f', -1, 64) + ")" }
func (n NullFill) Inputs() []string {
	if len(n.Text) == 0 {
		return nil
	}
	cols := make([]string, 0, len(n.Text))
	for c := range n.Text {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
func (n NullFill) Outputs() []string { return nil }

func (n NullFill) Apply(s *domain.Series) (*domain.Series, error) {
	out := s
	fillText := strconv.FormatFloat(n.Value, 'f', -1, 64)
	for _, c := range s.Columns() {
		kind, _ := s.Kind(c)
		if kind == domain.Text {
			fill, ok := n.Text[c]
			if !ok {
				fill = fillText
			}
			v, _ := s.Text(c)
			changed := false
			for i := range v {
				if v[i] == "" {
					v[i] = fill
					changed = true
				}
			}
			if changed {
				out = out.WithText(c, v)
			}
			continue
		}
		v, _ := s.Numeric(c)
		changed := false
		for i := range v {
			if math.IsNaN(v[i]) {
				v[i] = n.Value
				changed = true
			}
		}
		if changed {
			out = out.WithNumeric(c, v)
		}
	}
	return out, nil
}

// FormatPercentString writes a display column such as "12%". Places
// controls decimals (default whole numbers); Output defaults to
// Column + " Reporting". Null inputs give an empty string.
type FormatPercentString struct {
	Column string
	Output string
	Places int
}

func (f FormatPercentString) output() string {
	if f.Output == "" {
		return f.Column + " Reporting"
	}
	return f.Output
}

func (f FormatPercentString) Kind() string      { return "FormatPercentString" }
func (f FormatPercentString) Name() string      { return "FormatPercentString(" + f.Column + ")" }
func (f FormatPercentString) Inputs() []string  { return []string{f.Column} }
func (f FormatPercentString) Outputs() []string { return []string{f.output()} }

func (f FormatPercentString) Apply(s *domain.Series) (*domain.Series, error) {
	v, err := numericInput(s, f, f.Column)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) {
			out[i] = FormatPercent(v[i], f.Places)
		}
	}
	return s.WithText(f.output(), out), nil
}

// FormatScaledString writes value / Divisor rounded to Places with Suffix
// appended, e.g. "3.45 Million". Output defaults to Column + " Reporting".
type FormatScaledString struct {
	Column  string
	Output  string
	Divisor float64
	Suffix  string
	Places  int
}

// NewFormatScaledString creates a step rounding to 2 decimals
func NewFormatScaledString(column string, divisor float64, suffix string) FormatScaledString {
	return FormatScaledString{Column: column, Divisor: divisor, Suffix: suffix, Places: 2}
}

func (f FormatScaledString) output() string {
	if f.Output == "" {
		return f.Column + " Reporting"
	}
	return f.Output
}

func (f FormatScaledString) Kind() string      { return "FormatScaledString" }
func (f FormatScaledString) Name() string      { return "FormatScaledString(" + f.Column + ")" }
func (f FormatScaledString) Inputs() []string  { return []string{f.Column} }
func (f FormatScaledString) Outputs() []string { return []string{f.output()} }

func (f FormatScaledString) check() error {
	if f.Divisor == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("step %s: divisor must not be zero", f.Name()), nil)
	}
	return nil
}

func (f FormatScaledString) Apply(s *domain.Series) (*domain.Series, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	v, err := numericInput(s, f, f.Column)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) {
			out[i] = FormatNumber(v[i]/f.Divisor, f.Places) + f.Suffix
		}
	}
	return s.WithText(f.output(), out), nil
}

// Rename renames columns, the date column included
type Rename struct {
	Mapping map[string]string
}

func (r Rename) Kind() string { return "Rename" }
func (r Rename) Name() string { return "Rename" }

// Inputs is empty: a rename of an absent column is a no-op, as with
// source columns that only some datasets carry.
func (r Rename) Inputs() []string { return nil }

func (r Rename) Outputs() []string {
	out := make([]string, 0, len(r.Mapping))
	for _, to := range r.Mapping {
		out = append(out, to)
	}
	return out
}

func (r Rename) rewrite(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if to, ok := r.Mapping[c]; ok {
			out[i] = to
		} else {
			out[i] = c
		}
	}
	return out
}

// checkColumns rejects a target that names a column which stays in place
// or that two sources share.
func (r Rename) checkColumns(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range r.rewrite(columns) {
		if seen[c] {
			return apperrors.NewValidationError(fmt.Sprintf("rename: column %q already exists", c), nil).
				WithContext("column", c)
		}
		seen[c] = true
	}
	return nil
}

func (r Rename) Apply(s *domain.Series) (*domain.Series, error) {
	out, conflict := s.Rename(r.Mapping)
	if conflict != "" {
		return nil, apperrors.NewValidationError(fmt.Sprintf("rename: column %q already exists", conflict), nil).
			WithContext("column", conflict)
	}
	return out, nil
}

// Select keeps only the named columns, in order
type Select struct {
	Columns []string
}

func (c Select) Kind() string      { return "Select" }
func (c Select) Name() string      { return "Select(" + strings.Join(c.Columns, ", ") + ")" }
func (c Select) Inputs() []string  { return c.Columns }
func (c Select) Outputs() []string { return nil }

func (c Select) rewrite([]string) []string {
	out := make([]string, len(c.Columns))
	copy(out, c.Columns)
	return out
}

func (c Select) Apply(s *domain.Series) (*domain.Series, error) {
	out, missing := s.Select(c.Columns...)
	if missing != "" {
		return nil, apperrors.NewDependencyError(c.Name(), missing)
	}
	return out, nil
}
