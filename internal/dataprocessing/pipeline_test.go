package dataprocessing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "c19pulse/internal/errors"
)

func TestDeriveSpecValidate(t *testing.T) {
	base := []string{"Total Cases", "Resolved"}

	tests := []struct {
		name    string
		steps   []Step
		wantErr error
		column  string
	}{
		{
			name: "chained outputs",
			steps: []Step{
				Difference{Column: "Total Cases", Output: "New"},
				RollingMean{Column: "New", Output: "Avg", Window: 7},
				Difference{Column: "Avg", Output: "Avg Change"},
				NullFill{},
			},
		},
		{
			name:    "undefined input",
			steps:   []Step{Difference{Column: "Deaths", Output: "New Deaths"}},
			wantErr: apperrors.ErrDependency,
			column:  "Deaths",
		},
		{
			name: "input defined by a later step",
			steps: []Step{
				RollingMean{Column: "New", Output: "Avg", Window: 7},
				Difference{Column: "Total Cases", Output: "New"},
			},
			wantErr: apperrors.ErrDependency,
			column:  "New",
		},
		{
			name:    "renamed away",
			steps:   []Step{Rename{Mapping: map[string]string{"Resolved": "Recovered"}}, Difference{Column: "Resolved", Output: "x"}},
			wantErr: apperrors.ErrDependency,
			column:  "Resolved",
		},
		{
			name:    "null fill not last",
			steps:   []Step{NullFill{}, Difference{Column: "Total Cases", Output: "New"}},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "missing output",
			steps:   []Step{Difference{Column: "Total Cases"}},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "bad parameter",
			steps:   []Step{PerCapita{Column: "Total Cases", Output: "x"}},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "nil step",
			steps:   []Step{nil},
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDeriveSpec("test", tt.steps...).Validate(base)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			if tt.column != "" {
				var appErr *apperrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, tt.column, appErr.Context["column"])
			}
		})
	}
}

func TestOutputColumns(t *testing.T) {
	spec := NewDeriveSpec("cols",
		Rename{Mapping: map[string]string{"a": "A"}},
		Difference{Column: "A", Output: "dA"},
		Round{Column: "dA"},
		FormatPercentString{Column: "dA"},
	)
	cols, err := spec.OutputColumns([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "b", "dA", "dA Reporting"}, cols)
}

func TestDeriveMetricsFailsBeforeWork(t *testing.T) {
	s := numericSeries("Total Cases", 1, 2)
	_, err := DeriveMetrics(s, NewDeriveSpec("bad",
		Difference{Column: "Total Cases", Output: "New"},
		Difference{Column: "Deaths", Output: "New Deaths"},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDependency))
	assert.False(t, s.Has("New"))
}

func TestEngineDerive(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	engine := NewEngine(logger, nil, nil)

	s := numericSeries("Total Cases", 100, 150, 220)
	out, err := engine.Derive(context.Background(), s, NewDeriveSpec("cases",
		Difference{Column: "Total Cases", Output: "New"},
		NullFill{},
	))
	require.NoError(t, err)
	assertFloats(t, []float64{0, 50, 70}, column(t, out, "New"))

	assert.Contains(t, buf.String(), `"msg":"metrics derived"`)
	assert.Contains(t, buf.String(), `"component":"engine"`)
	assert.Contains(t, buf.String(), `"step":"Difference(Total Cases)"`)

	plain, err := DeriveMetrics(s, NewDeriveSpec("cases",
		Difference{Column: "Total Cases", Output: "New"},
		NullFill{},
	))
	require.NoError(t, err)
	assert.Equal(t, plain.Columns(), out.Columns())
	assertFloats(t, column(t, plain, "New"), column(t, out, "New"))

	_, err = engine.Derive(context.Background(), s, NewDeriveSpec("bad", Difference{Column: "x", Output: "y"}))
	assert.True(t, errors.Is(err, apperrors.ErrDependency))
	assert.Contains(t, buf.String(), `"msg":"derive failed"`)
	assert.Contains(t, buf.String(), `"error_type":"DEPENDENCY"`)
	assert.Contains(t, buf.String(), `"error":"[DEPENDENCY]`)
}
