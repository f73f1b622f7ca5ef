package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	apperrors "c19pulse/internal/errors"
	"c19pulse/internal/infrastructure"
	"c19pulse/pkg/contracts/domain"
)

// Supported export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// File names written into the export directory
const (
	SnapshotsFile = "snapshots.csv"
	WorkbookFile  = "dashboard.xlsx"
	ReportFile    = "report.json"
)

// ReportExporter writes a report in one or more formats
type ReportExporter struct {
	dir    string
	csv    *CSVWriter
	logger *slog.Logger
}

// NewReportExporter creates an exporter writing below dir
func NewReportExporter(dir string, logger *slog.Logger) *ReportExporter {
	return &ReportExporter{
		dir:    dir,
		csv:    NewCSVWriter(dir, logger),
		logger: infrastructure.WithComponent(logger, "exporter"),
	}
}

// Export writes r in each format and returns the paths written
func (e *ReportExporter) Export(ctx context.Context, r *domain.Report, formats []string) ([]string, error) {
	var written []string
	for _, format := range formats {
		var (
			paths []string
			err   error
		)
		switch format {
		case FormatCSV:
			paths, err = e.exportCSV(r)
		case FormatXLSX:
			path := filepath.Join(e.dir, WorkbookFile)
			err = WriteXLSX(path, r)
			paths = []string{path}
		case FormatJSON:
			path := filepath.Join(e.dir, ReportFile)
			err = WriteJSON(path, r)
			paths = []string{path}
		default:
			err = apperrors.NewValidationError(fmt.Sprintf("unsupported export format %q", format), nil)
		}
		if err != nil {
			infrastructure.WithError(e.logger, err).ErrorContext(ctx, "export failed",
				slog.String("format", format))
			return written, err
		}
		written = append(written, paths...)
		e.logger.InfoContext(ctx, "report exported",
			slog.String("format", format),
			slog.Int("files", len(paths)))
	}
	return written, nil
}

// exportCSV writes one file per trend series and breakdown plus a long
// table of every snapshot.
func (e *ReportExporter) exportCSV(r *domain.Report) ([]string, error) {
	var written []string
	write := func(name string, t table) error {
		if err := e.csv.WriteSimpleCSV(name, t.headers, t.records()); err != nil {
			return err
		}
		written = append(written, filepath.Join(e.dir, name))
		return nil
	}

	for _, name := range sortedKeys(r.Series) {
		file := "series_" + name + ".csv"
		if err := e.streamSeries(file, r.Series[name]); err != nil {
			return written, err
		}
		written = append(written, filepath.Join(e.dir, file))
	}
	for _, name := range sortedKeys(r.Breakdowns) {
		if err := write("breakdown_"+name+".csv", breakdownTable(r.Breakdowns[name])); err != nil {
			return written, err
		}
	}
	if err := write(SnapshotsFile, snapshotTable(r.Snapshots)); err != nil {
		return written, err
	}
	return written, nil
}

// streamSeries writes a trend series row by row
func (e *ReportExporter) streamSeries(file string, s *domain.Series) (err error) {
	rows := newSeriesRows(s)
	stream, err := e.csv.CreateStreamWriter(file, rows.headers())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stream.Close(); err == nil {
			err = cerr
		}
	}()
	for i := 0; i < s.Len(); i++ {
		if err := stream.WriteRecord(rows.record(i)); err != nil {
			return err
		}
	}
	return nil
}
