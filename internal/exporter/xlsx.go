package exporter

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "c19pulse/internal/errors"
	"c19pulse/pkg/contracts/domain"
)

// maxSheetName is Excel's limit on worksheet name length
const maxSheetName = 31

// OverviewSheet is the first sheet of the workbook
const OverviewSheet = "Overview"

// WriteXLSX writes a workbook: the overview and snapshots on the first
// sheet, then one sheet per trend series and per breakdown.
func WriteXLSX(path string, r *domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), OverviewSheet); err != nil {
		return apperrors.NewStorageError("failed to name overview sheet", err)
	}
	if err := writeOverview(f, r); err != nil {
		return err
	}

	for _, name := range sortedKeys(r.Series) {
		if err := writeSheet(f, sheetName("series", name), seriesTable(r.Series[name])); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(r.Breakdowns) {
		if err := writeSheet(f, sheetName("breakdown", name), breakdownTable(r.Breakdowns[name])); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}
	return nil
}

func writeOverview(f *excelize.File, r *domain.Report) error {
	o := r.Overview
	rows := [][]interface{}{
		{"Run", r.RunID},
		{"Date", o.DateLabel},
		{"New Cases", o.NewCases},
		{"Change", o.CaseChange},
		{"Approximate Cases", o.ApproximateCases},
		{"New Deaths", o.NewDeaths},
		{"Active Per 100k", o.ActivePer100k},
		{"Hospitalized", o.Hospitalized},
		{"In ICU", o.InICU},
		{"Positivity Rate", o.PositivityRate},
		{"Summary", o.Narrative},
	}
	if l := o.Likelihood; l != nil {
		rows = append(rows,
			[]interface{}{"Hospital Likelihood vs Fully Vaccinated", l.HospitalVsFull},
			[]interface{}{"Hospital Likelihood vs Partially Vaccinated", l.HospitalVsPartial},
			[]interface{}{"ICU Likelihood vs Fully Vaccinated", l.ICUVsFull},
			[]interface{}{"ICU Likelihood vs Partially Vaccinated", l.ICUVsPartial},
			[]interface{}{"Vaccination Summary", l.Narrative},
		)
	}
	rows = append(rows, []interface{}{})
	snaps := snapshotTable(r.Snapshots)
	rows = append(rows, toRow(snaps.headers))
	rows = append(rows, snaps.rows...)
	return setRows(f, OverviewSheet, rows)
}

func writeSheet(f *excelize.File, name string, t table) error {
	if _, err := f.NewSheet(name); err != nil {
		return apperrors.NewStorageError("failed to create sheet", err).WithContext("sheet", name)
	}
	rows := make([][]interface{}, 0, len(t.rows)+1)
	rows = append(rows, toRow(t.headers))
	rows = append(rows, t.rows...)
	return setRows(f, name, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return apperrors.NewStorageError("invalid cell", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return apperrors.NewStorageError("failed to write row", err).
				WithContext("sheet", sheet).
				WithContext("row", i+1)
		}
	}
	return nil
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// sheetName builds a worksheet name within Excel's length limit
func sheetName(kind, name string) string {
	n := kind + "_" + strings.NewReplacer("/", "_", "\\", "_", "?", "", "*", "", "[", "", "]", "", ":", "").Replace(name)
	if len(n) > maxSheetName {
		n = n[:maxSheetName]
	}
	return n
}
