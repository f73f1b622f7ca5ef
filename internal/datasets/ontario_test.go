package datasets

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dp "c19pulse/internal/dataprocessing"
	"c19pulse/pkg/contracts/domain"
)

func derive(t *testing.T, dataset, csv string) *domain.Series {
	t.Helper()
	r, err := Default(defaultConfig())
	require.NoError(t, err)
	def, err := r.Get(dataset)
	require.NoError(t, err)

	s, err := dp.ParseCSV(strings.NewReader(csv), def.Source, def.DateColumn, def.Columns, def.LoadOptions()...)
	require.NoError(t, err)
	out, err := dp.DeriveMetrics(s, def.Spec)
	require.NoError(t, err)
	return out
}

func TestVaccinationStatusPercentages(t *testing.T) {
	csv := "Date,covid19_cases_unvac,covid19_cases_partial_vac,covid19_cases_full_vac,covid19_cases_vac_unknown," +
		"cases_unvac_rate_per100K,cases_partial_vac_rate_per100K,cases_full_vac_rate_per100K," +
		"cases_unvac_rate_7ma,cases_partial_vac_rate_7ma,cases_full_vac_rate_7ma\n" +
		"2022-02-01,25,50,100,25,10.5,4.1,3.3,9.9,4,3\n"
	out := derive(t, VaccinationStatus, csv)
	rec, err := dp.Latest(out)
	require.NoError(t, err)

	total, _ := rec.Value("Total Cases")
	assert.Equal(t, 200.0, total)
	assert.Equal(t, "12%", rec.Labels["Percent Unvaccinated Reporting"])
	assert.Equal(t, "50%", rec.Labels["Percent Fully Vaccinated Reporting"])
	assert.Equal(t, "25%", rec.Labels["Percent Partial Vaccinated Reporting"])
	assert.Equal(t, ReportedDate, out.DateColumn())
}

func TestVaccinationStatusZeroTotal(t *testing.T) {
	csv := "Date,covid19_cases_unvac,covid19_cases_partial_vac,covid19_cases_full_vac,covid19_cases_vac_unknown," +
		"cases_unvac_rate_per100K,cases_partial_vac_rate_per100K,cases_full_vac_rate_per100K," +
		"cases_unvac_rate_7ma,cases_partial_vac_rate_7ma,cases_full_vac_rate_7ma\n" +
		"2022-02-01,0,0,0,0,0,0,0,0,0,0\n"
	out := derive(t, VaccinationStatus, csv)
	rec, err := dp.Latest(out)
	require.NoError(t, err)

	for _, col := range []string{
		"Percent Unvaccinated Reporting",
		"Percent Partial Vaccinated Reporting",
		"Percent Fully Vaccinated Reporting",
		"Percent Unknown Reporting",
	} {
		assert.Equal(t, "0%", rec.Labels[col], col)
	}
}

func TestVaccinesMillions(t *testing.T) {
	csv := "report_date,previous_day_total_doses_administered,previous_day_at_least_one,previous_day_fully_vaccinated," +
		"total_doses_administered,total_individuals_at_least_one,total_individuals_partially_vaccinated," +
		"total_doses_in_fully_vaccinated_individuals,total_individuals_fully_vaccinated,total_individuals_3doses\n" +
		"2022-02-01,1,1,1,30000000,12500000,400000,24000000,12100000,6449999\n"
	out := derive(t, Vaccines, csv)
	rec, err := dp.Latest(out)
	require.NoError(t, err)

	unvac, _ := rec.Value("Unvaccinated")
	assert.Equal(t, float64(14915270-1882571-12500000), unvac)
	assert.Equal(t, "12.1 Million", rec.Labels["Double Vaccinated Reporting"])
	assert.Equal(t, "6.45 Million", rec.Labels["Triple Vaccinated Reporting"])
	assert.Equal(t, "12.5 Million", rec.Labels["At Least One Dose Reporting"])
}

func TestCasesSnapshot(t *testing.T) {
	var b strings.Builder
	b.WriteString("Reported Date,Total Cases,Percent positive tests in last day,Resolved," +
		"Number of patients hospitalized with COVID-19,Number of patients in ICU due to COVID-19,Deaths," +
		"Total tests completed in the last day\n")
	rows := []string{
		"2022-01-01,1000,10.0,800,100,10,50,5000",
		"2022-01-02,1100,11.0,850,110,11,51,5000",
		"2022-01-03,1250,12.5,900,120,12,53,5000",
	}
	for _, r := range rows {
		b.WriteString(r + "\n")
	}

	out := derive(t, Cases, b.String())
	first := out.Record(0)
	v, _ := first.Value("Total New Cases")
	assert.Equal(t, 0.0, v, "leading difference is zero-filled")

	last, err := dp.Latest(out)
	require.NoError(t, err)
	check := map[string]float64{
		"Total New Cases":          150,
		"Increase in Cases":        50,
		"Total Active":             350,
		"Increase in Active Cases": 100,
		"Approximate Cases":        1200,
		"Total New Deaths":         2,
		"Increase in Deaths":       1,
		"Increase in Positivity":   2,
		"Seven Day Average":        0,
	}
	for name, want := range check {
		got, ok := last.Value(name)
		require.True(t, ok, name)
		assert.InDelta(t, want, got, 1e-9, name)
	}
	per100k, _ := last.Value("Active Per 100k")
	assert.InDelta(t, 350.0/14915270*100000, per100k, 1e-9)
	assert.Equal(t, "12.5%", last.Labels["Positivity Reporting"])
	assert.Equal(t, "2%", last.Labels["Increase in Positivity Reporting"])
}

func TestHospitalizationRates(t *testing.T) {
	hosp := domain.NewSeries(ReportedDate, []time.Time{date("2022-02-01")}).
		WithNumeric("icu_unvac", []float64{100}).
		WithNumeric("icu_partial_vac", []float64{3}).
		WithNumeric("icu_full_vac", []float64{40}).
		WithNumeric("hospitalnonicu_unvac", []float64{300}).
		WithNumeric("hospitalnonicu_partial_vac", []float64{9}).
		WithNumeric("hospitalnonicu_full_vac", []float64{600})
	vacc := domain.NewSeries(ReportedDate, []time.Time{date("2022-02-01")}).
		WithNumeric("Unvaccinated", []float64{1500000}).
		WithNumeric("Double Vaccinated", []float64{12000000}).
		WithNumeric("Partially Vaccinated", []float64{0})

	joined, err := dp.InnerJoin(hosp, vacc)
	require.NoError(t, err)
	out, err := dp.DeriveMetrics(joined, HospitalizationRates())
	require.NoError(t, err)

	rec := out.Record(0)
	v, _ := rec.Value("Not Vaccinated ICU Per 100k")
	assert.Equal(t, 6.67, v)
	v, _ = rec.Value("Fully Vaccinated Hospitalized Per 100k")
	assert.Equal(t, 5.0, v)
	_, ok := rec.Value("Partially Vaccinated ICU Per 100k")
	assert.False(t, ok, "zero denominator stays null")

	v, _ = rec.Value(HospitalLikelihoodFull)
	assert.Equal(t, 4.0, v)
	v, _ = rec.Value(ICULikelihoodFull)
	assert.Equal(t, 20.0, v, "6.67 / 0.33 truncates to 20")
	_, ok = rec.Value(HospitalLikelihoodPartial)
	assert.False(t, ok)
	_, ok = rec.Value(ICULikelihoodPartial)
	assert.False(t, ok)
}

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
