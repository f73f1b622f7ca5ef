package datasets

import (
	"c19pulse/internal/dataprocessing"
)

// Dataset names
const (
	Cases             = "cases"
	VaccinationStatus = "vaccination_status"
	Vaccines          = "vaccines"
	Hospitalizations  = "hospitalizations"
	CaseDetail        = "case_detail"
)

// ReportedDate is the date column name every dataset is renamed to
const ReportedDate = "Reported Date"

// Definition describes how one dataset is fetched and what is derived from
// it. Columns are the source columns to project; TextColumns is the subset
// holding labels. Trend lists the derived columns kept in the windowed
// trend series; an empty Trend means the dataset is not windowed.
type Definition struct {
	Name              string   `validate:"required"`
	Title             string   `validate:"required"`
	Source            string   `validate:"required"`
	DateColumn        string   `validate:"required"`
	Columns           []string `validate:"min=1,dive,required"`
	TextColumns       []string `validate:"dive,required"`
	CurrentPeriodOnly bool
	LatestOnly        bool
	Spec              dataprocessing.DeriveSpec
	Trend             []string        `validate:"dive,required"`
	Breakdowns        []BreakdownSpec `validate:"dive"`
}

// BreakdownSpec is a percentage-of-total summary over one text column of
// the derived series. Mapping is applied first, then Exclude, then the
// optional title casing.
type BreakdownSpec struct {
	Name      string `validate:"required"`
	Column    string `validate:"required"`
	Mapping   map[string]string
	Exclude   []string
	TitleCase bool
}

// LoadOptions returns the loader options for the definition
func (d Definition) LoadOptions() []dataprocessing.LoadOption {
	if len(d.TextColumns) == 0 {
		return nil
	}
	return []dataprocessing.LoadOption{dataprocessing.WithTextColumns(d.TextColumns...)}
}

// ValueColumns returns the projected columns without the date column
func (d Definition) ValueColumns() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c != d.DateColumn {
			out = append(out, c)
		}
	}
	return out
}

// OutputColumns returns the columns of the derived series
func (d Definition) OutputColumns() ([]string, error) {
	return d.Spec.OutputColumns(d.ValueColumns())
}
