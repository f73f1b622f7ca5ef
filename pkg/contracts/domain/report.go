package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Snapshot is the most recent record of a series annotated with its
// display strings.
type Snapshot struct {
	Date    time.Time
	Metrics map[string]float64
	Display map[string]string
}

// NewSnapshot builds a snapshot from a record. Text cells become display
// strings.
func NewSnapshot(rec Record) Snapshot {
	snap := Snapshot{
		Date:    rec.Date,
		Metrics: make(map[string]float64, len(rec.Values)),
		Display: make(map[string]string, len(rec.Labels)),
	}
	for k, v := range rec.Values {
		snap.Metrics[k] = v
	}
	for k, v := range rec.Labels {
		snap.Display[k] = v
	}
	return snap
}

// Metric returns a numeric metric, false when absent or null
func (s Snapshot) Metric(name string) (float64, bool) {
	v, ok := s.Metrics[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// MarshalJSON encodes null metrics as JSON null
func (s Snapshot) MarshalJSON() ([]byte, error) {
	metrics := make(map[string]*float64, len(s.Metrics))
	for k, v := range s.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			metrics[k] = nil
			continue
		}
		v := v
		metrics[k] = &v
	}
	return json.Marshal(struct {
		Date    string              `json:"date"`
		Metrics map[string]*float64 `json:"metrics"`
		Display map[string]string   `json:"display"`
	}{Date: s.Date.Format(DateLayout), Metrics: metrics, Display: s.Display})
}

// DateRange is an inclusive calendar-date interval
type DateRange struct {
	From time.Time `json:"-"`
	To   time.Time `json:"-"`
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// MarshalJSON writes both ends as YYYY-MM-DD
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"from": r.From.Format(DateLayout),
		"to":   r.To.Format(DateLayout),
	})
}

// Overview holds the headline numbers and narrative shown at the top of
// the dashboard.
type Overview struct {
	Date             time.Time `json:"-"`
	DateLabel        string    `json:"date"`
	NewCases         int64     `json:"new_cases"`
	CaseChange       string    `json:"case_change"`
	ApproximateCases int64     `json:"approximate_cases"`
	NewDeaths        int64     `json:"new_deaths"`
	ActivePer100k    int64     `json:"active_per_100k"`
	Reaction         string    `json:"reaction"`
	Hospitalized     int64     `json:"hospitalized"`
	InICU            int64     `json:"in_icu"`
	PositivityRate   string    `json:"positivity_rate"`
	Narrative        string    `json:"narrative"`

	Likelihood *Likelihood `json:"likelihood,omitempty"`
}

// Likelihood holds how many times likelier an unvaccinated person is to
// be hospitalized or admitted to ICU, as whole multiples.
type Likelihood struct {
	HospitalVsFull    int64  `json:"hospital_vs_full"`
	HospitalVsPartial int64  `json:"hospital_vs_partial"`
	ICUVsFull         int64  `json:"icu_vs_full"`
	ICUVsPartial      int64  `json:"icu_vs_partial"`
	Narrative         string `json:"narrative"`
}

// Report is the payload handed to presentation: snapshots, trend series and
// breakdowns keyed by logical name.
type Report struct {
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Window      DateRange            `json:"window"`
	Overview    Overview             `json:"overview"`
	Snapshots   map[string]Snapshot  `json:"snapshots"`
	Series      map[string]*Series   `json:"series"`
	Breakdowns  map[string]Breakdown `json:"breakdowns"`
}

// NewReport creates an empty report
func NewReport(runID string, generatedAt time.Time) *Report {
	return &Report{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Snapshots:   map[string]Snapshot{},
		Series:      map[string]*Series{},
		Breakdowns:  map[string]Breakdown{},
	}
}
