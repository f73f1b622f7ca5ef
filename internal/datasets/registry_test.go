package datasets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c19pulse/internal/config"
	dp "c19pulse/internal/dataprocessing"
	apperrors "c19pulse/internal/errors"
)

func defaultConfig() *config.Config {
	cfg := config.Defaults()
	return &cfg
}

func TestDefaultRegistry(t *testing.T) {
	r, err := Default(defaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{Cases, VaccinationStatus, Vaccines, Hospitalizations, CaseDetail}, r.Names())
	assert.Equal(t, 5, r.Count())
	require.NoError(t, r.Validate())

	def, err := r.Get(Cases)
	require.NoError(t, err)
	assert.Equal(t, config.CasesURL, def.Source)
}

func TestDefaultUsesConfiguredSources(t *testing.T) {
	cfg := defaultConfig()
	cfg.Sources.CaseDetail = "testdata/detail.csv"
	r, err := Default(cfg)
	require.NoError(t, err)

	def, err := r.Get(CaseDetail)
	require.NoError(t, err)
	assert.Equal(t, "testdata/detail.csv", def.Source)
	assert.True(t, def.CurrentPeriodOnly)
	assert.Len(t, def.LoadOptions(), 1)
}

func TestOutputColumns(t *testing.T) {
	r, err := Default(defaultConfig())
	require.NoError(t, err)

	tests := []struct {
		dataset string
		want    []string
	}{
		{Cases, []string{"Total New Cases", "Increase in Cases", "Seven Day Average", "Active Per 100k",
			"Approximate Cases", "Positivity Reporting", "Increase in Positivity Reporting", "Hospitalized", "In ICU"}},
		{VaccinationStatus, []string{"Total Cases", "Percent Unvaccinated Reporting", "Percent Fully Vaccinated Reporting",
			"Percent Partial Vaccinated Reporting", "Percent Unknown Reporting", "Total Unknown Vaccine Status Cases"}},
		{Vaccines, []string{"Unvaccinated", "Double Vaccinated Reporting", "Triple Vaccinated Reporting", "At Least One Dose Reporting"}},
		{CaseDetail, []string{"Age Group", "Gender", "Acquisition Type", "City", "Outcome", "Row_ID"}},
	}
	for _, tt := range tests {
		t.Run(tt.dataset, func(t *testing.T) {
			def, err := r.Get(tt.dataset)
			require.NoError(t, err)
			cols, err := def.OutputColumns()
			require.NoError(t, err)
			for _, c := range tt.want {
				assert.Contains(t, cols, c)
			}
		})
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	def := Definition{Name: "a", Title: "A", Source: "a.csv", DateColumn: "d", Columns: []string{"d", "x"}}

	require.NoError(t, r.Register(def))
	assert.True(t, r.Has("a"))

	err := r.Register(def)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	err = r.Register(Definition{})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = r.Get("b")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Len(t, r.List(), 1)
}

func TestRegistryValidate(t *testing.T) {
	valid := Definition{Name: "a", Title: "A", Source: "a.csv", DateColumn: "d", Columns: []string{"d", "x"}}

	tests := []struct {
		name    string
		mutate  func(*Definition)
		wantErr error
	}{
		{"valid", func(*Definition) {}, nil},
		{"missing source", func(d *Definition) { d.Source = "" }, apperrors.ErrValidation},
		{"no columns", func(d *Definition) { d.Columns = nil }, apperrors.ErrValidation},
		{"spec reads undefined column", func(d *Definition) {
			d.Spec = dp.NewDeriveSpec("a", dp.Difference{Column: "y", Output: "dy"})
		}, apperrors.ErrDependency},
		{"trend column never derived", func(d *Definition) { d.Trend = []string{"dx"} }, apperrors.ErrDependency},
		{"text column not projected", func(d *Definition) { d.TextColumns = []string{"label"} }, apperrors.ErrDependency},
		{"breakdown column missing", func(d *Definition) {
			d.Breakdowns = []BreakdownSpec{{Name: "b", Column: "label"}}
		}, apperrors.ErrDependency},
		{"breakdown without name", func(d *Definition) {
			d.Breakdowns = []BreakdownSpec{{Column: "x"}}
		}, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid
			tt.mutate(&def)
			r := NewRegistry()
			require.NoError(t, r.Register(def))

			err := r.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestHospitalizationRatesNeedVaccines(t *testing.T) {
	err := HospitalizationRates().Validate([]string{"icu_unvac", "hospitalnonicu_unvac"})
	assert.True(t, errors.Is(err, apperrors.ErrDependency))
}
