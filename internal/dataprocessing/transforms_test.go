package dataprocessing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "c19pulse/internal/errors"
	"c19pulse/pkg/contracts/domain"
)

func TestDifferenceAndSecondDifference(t *testing.T) {
	s := numericSeries("Total Cases", 100, 150, 220)

	spec := NewDeriveSpec("cases",
		Difference{Column: "Total Cases", Output: "Total New Cases"},
		SecondDifference{Column: "Total Cases", Output: "Increase in Cases"},
	)
	out, err := DeriveMetrics(s, spec)
	require.NoError(t, err)
	assertFloats(t, []float64{nan, 50, 70}, column(t, out, "Total New Cases"))
	assertFloats(t, []float64{nan, nan, 20}, column(t, out, "Increase in Cases"))

	filled, err := DeriveMetrics(out, NewDeriveSpec("fill", NullFill{}))
	require.NoError(t, err)
	assertFloats(t, []float64{0, 50, 70}, column(t, filled, "Total New Cases"))
	assertFloats(t, []float64{0, 0, 20}, column(t, filled, "Increase in Cases"))

	// the unfilled series is untouched
	assertFloats(t, []float64{nan, 50, 70}, column(t, out, "Total New Cases"))
	assert.False(t, s.Has("Total New Cases"))
}

func TestDifferenceTelescopes(t *testing.T) {
	totals := []float64{3, 10, 12, 40, 41, 41, 97, 120}
	out, err := Difference{Column: "Total", Output: "New"}.Apply(numericSeries("Total", totals...))
	require.NoError(t, err)
	diffs := column(t, out, "New")

	for start := 1; start < len(totals); start++ {
		for end := start; end < len(totals); end++ {
			var sum float64
			for i := start; i <= end; i++ {
				sum += diffs[i]
			}
			assert.InDelta(t, totals[end]-totals[start-1], sum, 1e-9, "range [%d, %d]", start, end)
		}
	}
}

func TestRollingMean(t *testing.T) {
	raw := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	out, err := RollingMean{Column: "New", Output: "Avg", Window: 7}.Apply(numericSeries("New", raw...))
	require.NoError(t, err)
	avg := column(t, out, "Avg")

	for i := 0; i < 6; i++ {
		assert.True(t, domain.IsNull(avg[i]), "row %d should be null", i)
	}
	for i := 6; i < len(raw); i++ {
		var sum float64
		for _, v := range raw[i-6 : i+1] {
			sum += v
		}
		assert.InDelta(t, sum/7, avg[i], 1e-9)
	}
}

func TestRollingMeanNullPropagates(t *testing.T) {
	out, err := RollingMean{Column: "New", Output: "Avg", Window: 2}.Apply(numericSeries("New", 1, nan, 3, 5))
	require.NoError(t, err)
	assertFloats(t, []float64{nan, nan, nan, 4}, column(t, out, "Avg"))
}

func TestRollingMeanRejectsWindow(t *testing.T) {
	_, err := RollingMean{Column: "New", Output: "Avg"}.Apply(numericSeries("New", 1))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestRatioFormatsPercent(t *testing.T) {
	s := numericSeries("Vaccinated", 25, 5)
	s = s.WithNumeric("Total", []float64{200, 0})

	spec := NewDeriveSpec("status",
		Ratio{Numerator: "Vaccinated", Denominator: "Total", Output: "Percent Vaccinated", Scale: 100},
		FormatPercentString{Column: "Percent Vaccinated"},
		NullFill{Value: 0},
	)
	out, err := DeriveMetrics(s, spec)
	require.NoError(t, err)

	assertFloats(t, []float64{12.5, 0}, column(t, out, "Percent Vaccinated"))
	// the zero denominator row renders empty, then receives the fill value
	assert.Equal(t, []string{"12%", "0"}, labels(t, out, "Percent Vaccinated Reporting"))
}

func TestNullFillTextOverride(t *testing.T) {
	s := numericSeries("Vaccinated", 25, 5)
	s = s.WithNumeric("Total", []float64{200, 0})

	spec := NewDeriveSpec("status",
		Ratio{Numerator: "Vaccinated", Denominator: "Total", Output: "Percent Vaccinated", Scale: 100},
		FormatPercentString{Column: "Percent Vaccinated"},
		NullFill{Text: map[string]string{"Percent Vaccinated Reporting": "0%"}},
	)
	out, err := DeriveMetrics(s, spec)
	require.NoError(t, err)

	assertFloats(t, []float64{12.5, 0}, column(t, out, "Percent Vaccinated"))
	assert.Equal(t, []string{"12%", "0%"}, labels(t, out, "Percent Vaccinated Reporting"))

	_, err = DeriveMetrics(s, NewDeriveSpec("status", NullFill{Text: map[string]string{"Missing": "0%"}}))
	assert.True(t, errors.Is(err, apperrors.ErrDependency))
}

func TestRatioScaleDefaultsToOne(t *testing.T) {
	s := numericSeries("A", 1, 3).WithNumeric("B", []float64{4, nan})
	out, err := Ratio{Numerator: "A", Denominator: "B", Output: "R"}.Apply(s)
	require.NoError(t, err)
	assertFloats(t, []float64{0.25, nan}, column(t, out, "R"))
}

func TestArithmeticSteps(t *testing.T) {
	s := numericSeries("Total Cases", 1000, 1200).
		WithNumeric("Resolved", []float64{400, 500}).
		WithNumeric("Total New Cases", []float64{10, 20})

	spec := NewDeriveSpec("arith",
		Subtract{Minuend: "Total Cases", Subtrahend: "Resolved", Output: "Total Active"},
		PerCapita{Column: "Total Active", Output: "Active Per 100k", Population: 200000, Per: 100000},
		Multiply{Column: "Total New Cases", Output: "Approximate Cases", Factor: 8},
		SubtractFrom{Constant: 5000, Column: "Total Cases", Output: "Remaining"},
		Sum{Columns: []string{"Resolved", "Total New Cases"}, Output: "Sum"},
	)
	out, err := DeriveMetrics(s, spec)
	require.NoError(t, err)

	assertFloats(t, []float64{600, 700}, column(t, out, "Total Active"))
	assertFloats(t, []float64{300, 350}, column(t, out, "Active Per 100k"))
	assertFloats(t, []float64{80, 160}, column(t, out, "Approximate Cases"))
	assertFloats(t, []float64{4000, 3800}, column(t, out, "Remaining"))
	assertFloats(t, []float64{410, 520}, column(t, out, "Sum"))
}

func TestRound(t *testing.T) {
	s := numericSeries("Increase", 0.5, 1.5, -2.5, nan)
	out, err := Round{Column: "Increase"}.Apply(s)
	require.NoError(t, err)
	assertFloats(t, []float64{0, 2, -2, nan}, column(t, out, "Increase"))

	out, err = Round{Column: "Increase", Output: "Rounded", Places: 1}.Apply(numericSeries("Increase", 1.25))
	require.NoError(t, err)
	assertFloats(t, []float64{1.2}, column(t, out, "Rounded"))
	assertFloats(t, []float64{1.25}, column(t, out, "Increase"))
}

func TestFormatScaledString(t *testing.T) {
	step := NewFormatScaledString("Double Dose", 1e6, " Million")
	out, err := step.Apply(numericSeries("Double Dose", 3449999, 12000000, nan))
	require.NoError(t, err)
	assert.Equal(t, []string{"3.45 Million", "12 Million", ""}, labels(t, out, "Double Dose Reporting"))

	_, err = FormatScaledString{Column: "Double Dose", Output: "x"}.Apply(numericSeries("Double Dose", 1))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestNullFillText(t *testing.T) {
	s := numericSeries("A", nan, 2).WithText("Label", []string{"", "x"})
	out, err := NullFill{}.Apply(s)
	require.NoError(t, err)
	assertFloats(t, []float64{0, 2}, column(t, out, "A"))
	assert.Equal(t, []string{"0", "x"}, labels(t, out, "Label"))
}

func TestRenameAndSelect(t *testing.T) {
	s := numericSeries("report_date_total", 1, 2).WithNumeric("drop", []float64{0, 0})

	spec := NewDeriveSpec("reshape",
		Rename{Mapping: map[string]string{"report_date_total": "Total", "Reported Date": "Date"}},
		Select{Columns: []string{"Total"}},
		Difference{Column: "Total", Output: "New"},
	)
	out, err := DeriveMetrics(s, spec)
	require.NoError(t, err)
	assert.Equal(t, "Date", out.DateColumn())
	assert.Equal(t, []string{"Total", "New"}, out.Columns())

	_, err = Select{Columns: []string{"absent"}}.Apply(s)
	assert.True(t, errors.Is(err, apperrors.ErrDependency))
}

func TestTextColumnInNumericStep(t *testing.T) {
	s := numericSeries("A", 1).WithText("Label", []string{"x"})
	_, err := Difference{Column: "Label", Output: "B"}.Apply(s)
	assert.True(t, errors.Is(err, apperrors.ErrSchema))
}

func TestRenameCollision(t *testing.T) {
	s := numericSeries("a", 1, 2).WithNumeric("b", []float64{10, 20})

	t.Run("onto existing column", func(t *testing.T) {
		spec := NewDeriveSpec("collide", Rename{Mapping: map[string]string{"a": "b"}})
		err := spec.Validate(s.Columns())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))

		_, err = Rename{Mapping: map[string]string{"a": "b"}}.Apply(s)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assertFloats(t, []float64{10, 20}, column(t, s, "b"))
	})

	t.Run("swap", func(t *testing.T) {
		out, err := DeriveMetrics(s, NewDeriveSpec("swap", Rename{Mapping: map[string]string{"a": "b", "b": "a"}}))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, out.Columns())
		assertFloats(t, []float64{1, 2}, column(t, out, "b"))
		assertFloats(t, []float64{10, 20}, column(t, out, "a"))
	})
}

func TestRollingMeanIgnoresEarlierFill(t *testing.T) {
	s := numericSeries("Total New Cases", 70, 10, 20, 30, 40, 50, 60, 70, 80).
		WithNumeric("Deaths", []float64{nan, 1, nan, 2, nan, 3, nan, 4, nan})
	step := RollingMean{Column: "Total New Cases", Window: 7, Output: "Seven Day Average"}

	raw, err := step.Apply(s)
	require.NoError(t, err)

	filled, err := NullFill{}.Apply(s)
	require.NoError(t, err)
	afterFill, err := step.Apply(filled)
	require.NoError(t, err)

	want := []float64{nan, nan, nan, nan, nan, nan, 40, 40, 50}
	assertFloats(t, want, column(t, raw, "Seven Day Average"))
	assertFloats(t, want, column(t, afterFill, "Seven Day Average"))
	assertFloats(t, []float64{0, 1, 0, 2, 0, 3, 0, 4, 0}, column(t, afterFill, "Deaths"))
}

func TestTruncate(t *testing.T) {
	s := numericSeries("Ratio", 20.21, 3.99, -2.7, nan)

	out, err := Truncate{Column: "Ratio", Output: "Whole"}.Apply(s)
	require.NoError(t, err)
	assertFloats(t, []float64{20, 3, -2, nan}, column(t, out, "Whole"))
	assertFloats(t, []float64{20.21, 3.99, -2.7, nan}, column(t, out, "Ratio"))
}
