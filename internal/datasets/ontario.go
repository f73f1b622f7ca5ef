package datasets

import (
	"c19pulse/internal/config"
	dp "c19pulse/internal/dataprocessing"
)

// Acquisition type codes used in the case detail file
var AcquisitionLabels = map[string]string{
	"CC":                  "Close Contact",
	"OB":                  "Outbreak",
	"NO KNOWN EPI LINK":   "Community Spread",
	"MISSING INFORMATION": MissingInformation,
	"TRAVEL":              "Travel",
}

// MissingInformation is excluded before acquisition percentages are taken
const MissingInformation = "Missing Information"

// Default returns a registry holding the five Ontario datasets, pointed at
// the configured sources.
func Default(cfg *config.Config) (*Registry, error) {
	r := NewRegistry()
	defs := []Definition{
		casesDefinition(cfg),
		vaccinationStatusDefinition(cfg),
		vaccinesDefinition(cfg),
		hospitalizationsDefinition(cfg),
		caseDetailDefinition(cfg),
	}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func casesDefinition(cfg *config.Config) Definition {
	p := cfg.Pipeline
	return Definition{
		Name:       Cases,
		Title:      "Status of COVID-19 cases in Ontario",
		Source:     cfg.Sources.Cases,
		DateColumn: ReportedDate,
		Columns: []string{
			ReportedDate,
			"Total Cases",
			"Percent positive tests in last day",
			"Resolved",
			"Number of patients hospitalized with COVID-19",
			"Number of patients in ICU due to COVID-19",
			"Deaths",
			"Total tests completed in the last day",
		},
		Spec: dp.NewDeriveSpec(Cases,
			dp.Rename{Mapping: map[string]string{
				"Percent positive tests in last day":            "Positivity Rate",
				"Number of patients hospitalized with COVID-19": "Hospitalized",
				"Number of patients in ICU due to COVID-19":     "In ICU",
				"Total tests completed in the last day":         "Total Tests",
			}},
			dp.Difference{Column: "Total Cases", Output: "Total New Cases"},
			dp.SecondDifference{Column: "Total Cases", Output: "Increase in Cases"},
			dp.RollingMean{Column: "Total New Cases", Output: "Seven Day Average", Window: p.RollingWindow},
			dp.Difference{Column: "Seven Day Average", Output: "Increase in Seven Day Average"},
			dp.Subtract{Minuend: "Total Cases", Subtrahend: "Resolved", Output: "Total Active"},
			dp.Difference{Column: "Total Active", Output: "Increase in Active Cases"},
			dp.PerCapita{Column: "Total Active", Output: "Active Per 100k", Population: float64(p.Population), Per: 100000},
			dp.Difference{Column: "Positivity Rate", Output: "Increase in Positivity"},
			dp.Round{Column: "Increase in Positivity"},
			dp.Difference{Column: "Deaths", Output: "Total New Deaths"},
			dp.SecondDifference{Column: "Deaths", Output: "Increase in Deaths"},
			dp.RollingMean{Column: "Total New Deaths", Output: "Seven Day Average Deaths", Window: p.RollingWindow},
			dp.Multiply{Column: "Total New Cases", Output: "Approximate Cases", Factor: p.UnderReportingFactor},
			dp.RollingMean{Column: "Hospitalized", Output: "Seven Day Average Hospitalized", Window: p.RollingWindow},
			dp.RollingMean{Column: "In ICU", Output: "Seven Day Average In ICU", Window: p.RollingWindow},
			dp.FormatPercentString{Column: "Positivity Rate", Output: "Positivity Reporting", Places: 1},
			dp.FormatPercentString{Column: "Increase in Positivity"},
			dp.NullFill{},
		),
		Trend: []string{"Total New Cases", "Seven Day Average", "Hospitalized", "Total New Deaths", "In ICU"},
	}
}

// vaccination status categories, in source column order
var vaccinationStatuses = []struct {
	source, cases, percent string
}{
	{"covid19_cases_unvac", "Total Unvaccinated Cases", "Percent Unvaccinated"},
	{"covid19_cases_partial_vac", "Total Partial Vaccinated Cases", "Percent Partial Vaccinated"},
	{"covid19_cases_full_vac", "Total Full Vaccinated Cases", "Percent Fully Vaccinated"},
	{"covid19_cases_vac_unknown", "Total Unknown Vaccine Status Cases", "Percent Unknown"},
}

func vaccinationStatusDefinition(cfg *config.Config) Definition {
	rename := map[string]string{
		"Date":                           ReportedDate,
		"cases_unvac_rate_per100K":       "Unvaccinated Rate Per 100k",
		"cases_partial_vac_rate_per100K": "Partial Vaccination Rate Per 100k",
		"cases_full_vac_rate_per100K":    "Full Vaccination Rate Per 100k",
		"cases_unvac_rate_7ma":           "Unvaccinated 7 Day Avg",
		"cases_partial_vac_rate_7ma":     "Partial Vaccination 7 Day Avg",
		"cases_full_vac_rate_7ma":        "Full Vaccination 7 Day Avg",
	}
	columns := []string{"Date"}
	var counts []string
	for _, st := range vaccinationStatuses {
		columns = append(columns, st.source)
		rename[st.source] = st.cases
		counts = append(counts, st.cases)
	}
	columns = append(columns,
		"cases_unvac_rate_per100K", "cases_partial_vac_rate_per100K", "cases_full_vac_rate_per100K",
		"cases_unvac_rate_7ma", "cases_partial_vac_rate_7ma", "cases_full_vac_rate_7ma")

	steps := []dp.Step{
		dp.Rename{Mapping: rename},
		dp.Sum{Columns: counts, Output: "Total Cases"},
	}
	// a zero total leaves the percent null; its display reads 0%
	display := make(map[string]string, len(vaccinationStatuses))
	for _, st := range vaccinationStatuses {
		steps = append(steps,
			dp.Ratio{Numerator: st.cases, Denominator: "Total Cases", Output: st.percent, Scale: 100},
			dp.Round{Column: st.percent},
			dp.FormatPercentString{Column: st.percent},
		)
		display[st.percent+" Reporting"] = "0%"
	}
	steps = append(steps, dp.NullFill{Text: display})

	return Definition{
		Name:       VaccinationStatus,
		Title:      "COVID-19 cases by vaccination status",
		Source:     cfg.Sources.VaccinationStatus,
		DateColumn: "Date",
		Columns:    columns,
		Spec:       dp.NewDeriveSpec(VaccinationStatus, steps...),
		Trend:      []string{"Unvaccinated Rate Per 100k", "Full Vaccination Rate Per 100k", "Partial Vaccination Rate Per 100k"},
	}
}

func vaccinesDefinition(cfg *config.Config) Definition {
	return Definition{
		Name:       Vaccines,
		Title:      "COVID-19 vaccine doses administered",
		Source:     cfg.Sources.Vaccines,
		DateColumn: "report_date",
		Columns: []string{
			"report_date",
			"previous_day_total_doses_administered",
			"previous_day_at_least_one",
			"previous_day_fully_vaccinated",
			"total_doses_administered",
			"total_individuals_at_least_one",
			"total_individuals_partially_vaccinated",
			"total_doses_in_fully_vaccinated_individuals",
			"total_individuals_fully_vaccinated",
			"total_individuals_3doses",
		},
		Spec: dp.NewDeriveSpec(Vaccines,
			dp.Rename{Mapping: map[string]string{
				"report_date":                            ReportedDate,
				"total_individuals_at_least_one":         "At Least One Dose",
				"total_individuals_fully_vaccinated":     "Double Vaccinated",
				"total_individuals_3doses":               "Triple Vaccinated",
				"total_individuals_partially_vaccinated": "Partially Vaccinated",
			}},
			dp.SubtractFrom{Constant: float64(cfg.Pipeline.EligiblePopulation()), Column: "At Least One Dose", Output: "Unvaccinated"},
			dp.NewFormatScaledString("Double Vaccinated", 1e6, " Million"),
			dp.NewFormatScaledString("Partially Vaccinated", 1e6, " Million"),
			dp.NewFormatScaledString("Triple Vaccinated", 1e6, " Million"),
			dp.NewFormatScaledString("At Least One Dose", 1e6, " Million"),
		),
		Trend: []string{"At Least One Dose", "Double Vaccinated", "Triple Vaccinated"},
	}
}

// hospitalization counts by vaccination status
var hospitalColumns = []string{
	"icu_unvac", "icu_partial_vac", "icu_full_vac",
	"hospitalnonicu_unvac", "hospitalnonicu_partial_vac", "hospitalnonicu_full_vac",
}

func hospitalizationsDefinition(cfg *config.Config) Definition {
	return Definition{
		Name:       Hospitalizations,
		Title:      "Hospitalizations by vaccination status",
		Source:     cfg.Sources.Hospitalizations,
		DateColumn: "date",
		Columns:    append([]string{"date"}, hospitalColumns...),
		LatestOnly: true,
		Spec: dp.NewDeriveSpec(Hospitalizations,
			dp.Rename{Mapping: map[string]string{"date": ReportedDate}},
		),
	}
}

// HospitalizationRates derives per-100k hospital and ICU rates from the
// latest hospitalization row joined with the vaccine totals of that day,
// and the unvaccinated likelihood multiples computed from the rounded rates.
func HospitalizationRates() dp.DeriveSpec {
	rates := []struct{ numerator, denominator, output string }{
		{"hospitalnonicu_unvac", "Unvaccinated", "Not Vaccinated Hospitalized Per 100k"},
		{"hospitalnonicu_full_vac", "Double Vaccinated", "Fully Vaccinated Hospitalized Per 100k"},
		{"hospitalnonicu_partial_vac", "Partially Vaccinated", "Partially Vaccinated Hospitalized Per 100k"},
		{"icu_unvac", "Unvaccinated", "Not Vaccinated ICU Per 100k"},
		{"icu_full_vac", "Double Vaccinated", "Fully Vaccinated ICU Per 100k"},
		{"icu_partial_vac", "Partially Vaccinated", "Partially Vaccinated ICU Per 100k"},
	}
	var steps []dp.Step
	for _, r := range rates {
		steps = append(steps,
			dp.Ratio{Numerator: r.numerator, Denominator: r.denominator, Output: r.output, Scale: 100000},
			dp.Round{Column: r.output, Places: 2},
		)
	}
	// how many times likelier an unvaccinated person is to be admitted,
	// truncated to a whole multiple
	for _, l := range likelihoods {
		steps = append(steps,
			dp.Ratio{Numerator: l.numerator, Denominator: l.denominator, Output: l.output},
			dp.Truncate{Column: l.output},
		)
	}
	return dp.NewDeriveSpec("hospitalization_rates", steps...)
}

// Likelihood ratio columns of the hospitalization rates snapshot
const (
	HospitalLikelihoodFull    = "Hospital Likelihood vs Fully Vaccinated"
	HospitalLikelihoodPartial = "Hospital Likelihood vs Partially Vaccinated"
	ICULikelihoodFull         = "ICU Likelihood vs Fully Vaccinated"
	ICULikelihoodPartial      = "ICU Likelihood vs Partially Vaccinated"
)

var likelihoods = []struct{ numerator, denominator, output string }{
	{"Not Vaccinated Hospitalized Per 100k", "Fully Vaccinated Hospitalized Per 100k", HospitalLikelihoodFull},
	{"Not Vaccinated Hospitalized Per 100k", "Partially Vaccinated Hospitalized Per 100k", HospitalLikelihoodPartial},
	{"Not Vaccinated ICU Per 100k", "Fully Vaccinated ICU Per 100k", ICULikelihoodFull},
	{"Not Vaccinated ICU Per 100k", "Partially Vaccinated ICU Per 100k", ICULikelihoodPartial},
}

func caseDetailDefinition(cfg *config.Config) Definition {
	text := []string{"Reporting_PHU_City", "Age_Group", "Client_Gender", "Case_AcquisitionInfo", "Outcome1"}
	return Definition{
		Name:              CaseDetail,
		Title:             "Confirmed positive cases this month",
		Source:            cfg.Sources.CaseDetail,
		DateColumn:        "Case_Reported_Date",
		Columns:           append(append([]string{"Case_Reported_Date"}, text...), "Reporting_PHU_Latitude", "Reporting_PHU_Longitude", "Row_ID"),
		TextColumns:       text,
		CurrentPeriodOnly: true,
		Spec: dp.NewDeriveSpec(CaseDetail,
			dp.Rename{Mapping: map[string]string{
				"Case_Reported_Date":   ReportedDate,
				"Reporting_PHU_City":   "City",
				"Age_Group":            "Age Group",
				"Client_Gender":        "Gender",
				"Outcome1":             "Outcome",
				"Case_AcquisitionInfo": "Acquisition Type",
			}},
		),
		Breakdowns: []BreakdownSpec{
			{Name: "age_group", Column: "Age Group"},
			{Name: "acquisition", Column: "Acquisition Type", Mapping: AcquisitionLabels, Exclude: []string{MissingInformation}},
			{Name: "gender", Column: "Gender", TitleCase: true},
		},
	}
}
