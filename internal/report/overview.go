package report

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	dp "c19pulse/internal/dataprocessing"
	"c19pulse/internal/datasets"
	"c19pulse/pkg/contracts/domain"
)

// OverviewDateLayout renders the snapshot date, e.g. "Monday January 02"
const OverviewDateLayout = "Monday January 02"

// reactions maps active cases per 100k to an emoji code. The first
// threshold the rate exceeds wins.
var reactions = []struct {
	above    float64
	reaction string
}{
	{1000, ":dizzy_face:"},
	{500, ":exploding_head:"},
	{200, ":pensive:"},
	{100, ":upside_down_face:"},
	{50, ":unamused:"},
	{25, ":confused:"},
	{10, ":slightly_frowning_face:"},
}

// Reaction returns the emoji code for an active-cases-per-100k rate
func Reaction(activePer100k float64) string {
	for _, r := range reactions {
		if activePer100k > r.above {
			return r.reaction
		}
	}
	return ":slightly_smiling_face:"
}

// BuildOverview turns the latest cases snapshot into the headline block.
// Values are truncated toward zero. underReporting is the estimated ratio
// of actual to reported cases.
func BuildOverview(s domain.Snapshot, underReporting float64) domain.Overview {
	metric := func(name string) float64 {
		v, _ := s.Metric(name)
		return v
	}
	whole := func(name string) int64 {
		v := metric(name)
		if math.IsNaN(v) {
			return 0
		}
		return int64(v)
	}

	o := domain.Overview{
		Date:             s.Date,
		DateLabel:        s.Date.Format(OverviewDateLayout),
		NewCases:         whole("Total New Cases"),
		ApproximateCases: whole("Approximate Cases"),
		NewDeaths:        whole("Total New Deaths"),
		ActivePer100k:    whole("Active Per 100k"),
		Hospitalized:     whole("Hospitalized"),
		InICU:            whole("In ICU"),
		PositivityRate:   s.Display["Positivity Reporting"],
		Reaction:         Reaction(metric("Active Per 100k")),
	}
	change := whole("Increase in Cases")
	o.CaseChange = dp.SignPrefix(float64(change)) + humanize.Comma(change)

	o.Narrative = fmt.Sprintf(
		"As of %s Ontario reported %s new cases (%s from the previous day) and %s deaths. "+
			"There are roughly %s active cases per 100,000 residents %s, with %s hospitalizations and %s patients in intensive care units. "+
			"With roughly 1 in %s cases being reported, the true count may be closer to ~%s.",
		o.DateLabel, humanize.Comma(o.NewCases), o.CaseChange, humanize.Comma(o.NewDeaths),
		humanize.Comma(o.ActivePer100k), o.Reaction, humanize.Comma(o.Hospitalized), humanize.Comma(o.InICU),
		humanize.Ftoa(underReporting), humanize.Comma(o.ApproximateCases))
	return o
}

// BuildLikelihood reads the likelihood multiples from the hospitalization
// rates snapshot. It returns nil unless all four are known.
func BuildLikelihood(rates domain.Snapshot) *domain.Likelihood {
	var v [4]int64
	for i, name := range []string{
		datasets.HospitalLikelihoodFull,
		datasets.HospitalLikelihoodPartial,
		datasets.ICULikelihoodFull,
		datasets.ICULikelihoodPartial,
	} {
		m, ok := rates.Metric(name)
		if !ok {
			return nil
		}
		v[i] = int64(m)
	}
	l := &domain.Likelihood{HospitalVsFull: v[0], HospitalVsPartial: v[1], ICUVsFull: v[2], ICUVsPartial: v[3]}
	l.Narrative = fmt.Sprintf(
		"You are roughly %dx more likely to end up in the hospital with COVID-19 if you are not vaccinated compared to someone with at least 2 doses "+
			"and ~%dx more likely compared to someone with at least 1 dose. "+
			"Similarly, you are ~%dx more likely to end up in the ICU if you are not vaccinated compared to someone with at least 2 doses "+
			"and ~%dx more likely compared to someone with at least 1 dose.",
		l.HospitalVsFull, l.HospitalVsPartial, l.ICUVsFull, l.ICUVsPartial)
	return l
}
