package dataprocessing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"c19pulse/pkg/contracts/domain"
)

var nan = math.NaN()

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// consecutiveDays returns n dates starting at 2022-01-01
func consecutiveDays(n int) []time.Time {
	out := make([]time.Time, n)
	start := day("2022-01-01")
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func numericSeries(column string, values ...float64) *domain.Series {
	return domain.NewSeries("Reported Date", consecutiveDays(len(values))).WithNumeric(column, values)
}

// assertFloats compares element-wise, treating NaN as equal to NaN
func assertFloats(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			require.Truef(t, math.IsNaN(got[i]), "index %d: want null, got %v", i, got[i])
			continue
		}
		require.InDeltaf(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func column(t *testing.T, s *domain.Series, name string) []float64 {
	t.Helper()
	v, ok := s.Numeric(name)
	require.Truef(t, ok, "column %q missing", name)
	return v
}

func labels(t *testing.T, s *domain.Series, name string) []string {
	t.Helper()
	v, ok := s.Text(name)
	require.Truef(t, ok, "column %q missing", name)
	return v
}
