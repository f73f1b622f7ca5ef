package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sample() *Series {
	s := NewSeries("Reported Date", []time.Time{day("2022-01-01"), day("2022-01-02"), day("2022-01-03")})
	s = s.WithNumeric("Total Cases", []float64{100, 150, 220})
	return s.WithText("Region", []string{"East", "", "West"})
}

func TestNewSeriesTruncatesToCalendarDate(t *testing.T) {
	ts := time.Date(2022, 3, 4, 15, 30, 0, 0, time.FixedZone("EST", -5*3600))
	s := NewSeries("d", []time.Time{ts})

	assert.Equal(t, time.Date(2022, 3, 4, 0, 0, 0, 0, time.UTC), s.Date(0))
}

func TestSeriesWithNumericDoesNotMutateOriginal(t *testing.T) {
	base := sample()
	derived := base.WithNumeric("Doubled", []float64{200, 300, 440})

	assert.False(t, base.Has("Doubled"))
	assert.True(t, derived.Has("Doubled"))
	assert.Equal(t, []string{"Total Cases", "Region"}, base.Columns())
	assert.Equal(t, []string{"Total Cases", "Region", "Doubled"}, derived.Columns())

	replaced := derived.WithNumeric("Total Cases", []float64{1, 2, 3})
	orig, _ := derived.Numeric("Total Cases")
	assert.Equal(t, []float64{100, 150, 220}, orig)
	assert.Equal(t, []string{"Total Cases", "Region", "Doubled"}, replaced.Columns())
}

func TestSeriesAccessorsReturnCopies(t *testing.T) {
	s := sample()
	v, ok := s.Numeric("Total Cases")
	require.True(t, ok)
	v[0] = -1

	again, _ := s.Numeric("Total Cases")
	assert.Equal(t, float64(100), again[0])
}

func TestSeriesWithNumericPanicsOnLengthMismatch(t *testing.T) {
	assert.Panics(t, func() { sample().WithNumeric("bad", []float64{1}) })
}

func TestSeriesRename(t *testing.T) {
	s, conflict := sample().Rename(map[string]string{
		"Total Cases":   "Cases",
		"Reported Date": "Date",
	})
	require.Empty(t, conflict)

	assert.Equal(t, "Date", s.DateColumn())
	assert.Equal(t, []string{"Cases", "Region"}, s.Columns())
	kind, ok := s.Kind("Cases")
	require.True(t, ok)
	assert.Equal(t, Numeric, kind)
	assert.False(t, s.Has("Total Cases"))
}

func TestSeriesRenameSwap(t *testing.T) {
	base := sample()
	cases, _ := base.Numeric("Total Cases")
	regions, _ := base.Text("Region")

	s, conflict := base.
		WithText("Total Cases", regions).
		WithNumeric("Region", cases).
		Rename(map[string]string{"Total Cases": "Region", "Region": "Total Cases"})
	require.Empty(t, conflict)

	assert.Equal(t, []string{"Region", "Total Cases"}, s.Columns())
	got, ok := s.Numeric("Total Cases")
	require.True(t, ok)
	assert.Equal(t, cases, got)
	gotRegions, ok := s.Text("Region")
	require.True(t, ok)
	assert.Equal(t, regions, gotRegions)
}

func TestSeriesRenameCollision(t *testing.T) {
	tests := []struct {
		name    string
		mapping map[string]string
		want    string
	}{
		{name: "onto existing column", mapping: map[string]string{"Total Cases": "Region"}, want: "Region"},
		{name: "two sources one target", mapping: map[string]string{"Total Cases": "X", "Region": "X"}, want: "X"},
		{name: "onto date column", mapping: map[string]string{"Region": "Reported Date"}, want: "Reported Date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, conflict := sample().Rename(tt.mapping)
			assert.Nil(t, s)
			assert.Equal(t, tt.want, conflict)
		})
	}
}

func TestSeriesSelect(t *testing.T) {
	tests := []struct {
		name        string
		columns     []string
		wantColumns []string
		wantMissing string
	}{
		{name: "subset", columns: []string{"Region"}, wantColumns: []string{"Region"}},
		{name: "reorder", columns: []string{"Region", "Total Cases"}, wantColumns: []string{"Region", "Total Cases"}},
		{name: "missing", columns: []string{"Nope"}, wantMissing: "Nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := sample().Select(tt.columns...)
			if tt.wantMissing != "" {
				assert.Equal(t, tt.wantMissing, missing)
				assert.Nil(t, got)
				return
			}
			assert.Empty(t, missing)
			assert.Equal(t, tt.wantColumns, got.Columns())
		})
	}
}

func TestSeriesFilter(t *testing.T) {
	s := sample().Filter(func(i int) bool { return i != 1 })

	require.Equal(t, 2, s.Len())
	assert.Equal(t, day("2022-01-03"), s.Date(1))
	v, _ := s.Numeric("Total Cases")
	assert.Equal(t, []float64{100, 220}, v)
	labels, _ := s.Text("Region")
	assert.Equal(t, []string{"East", "West"}, labels)
}

func TestRecordValue(t *testing.T) {
	rec := Record{Values: map[string]float64{"a": 1, "b": math.NaN()}}

	v, ok := rec.Value("a")
	assert.True(t, ok)
	assert.Equal(t, float64(1), v)

	_, ok = rec.Value("b")
	assert.False(t, ok)
	_, ok = rec.Value("c")
	assert.False(t, ok)
}

func TestRecordMarshalJSONWritesNulls(t *testing.T) {
	s := NewSeries("d", []time.Time{day("2022-02-01")}).WithNumeric("x", []float64{math.NaN()})

	data, err := json.Marshal(s.Record(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2022-02-01","values":{"x":null}}`, string(data))
}

func TestSeriesMarshalJSON(t *testing.T) {
	data, err := json.Marshal(sample())
	require.NoError(t, err)

	var decoded struct {
		DateColumn string            `json:"date_column"`
		Columns    []string          `json:"columns"`
		Records    []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Reported Date", decoded.DateColumn)
	assert.Equal(t, []string{"Total Cases", "Region"}, decoded.Columns)
	assert.Len(t, decoded.Records, 3)
}

func TestSnapshotFromRecord(t *testing.T) {
	snap := NewSnapshot(sample().Record(2))

	v, ok := snap.Metric("Total Cases")
	assert.True(t, ok)
	assert.Equal(t, float64(220), v)
	assert.Equal(t, "West", snap.Display["Region"])

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2022-01-03","metrics":{"Total Cases":220},"display":{"Region":"West"}}`, string(data))
}

func TestBreakdownHelpers(t *testing.T) {
	b := Breakdown{Categories: []Category{
		{Label: "Travel", Count: 1, Percentage: 33.33},
		{Label: "Outbreak", Count: 2, Percentage: 66.67},
	}}

	assert.InDelta(t, 100.0, b.PercentageSum(), 0.001)
	c, ok := b.Lookup("Outbreak")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Count)
	_, ok = b.Lookup("None")
	assert.False(t, ok)
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{From: day("2022-01-01"), To: day("2022-01-31")}

	assert.True(t, r.Contains(day("2022-01-01")))
	assert.True(t, r.Contains(day("2022-01-31")))
	assert.False(t, r.Contains(day("2022-02-01")))
}
