// Package exporter writes dashboard reports to disk.
//
// CSV files carry a UTF-8 BOM so Excel opens them with the right encoding:
// one file per trend series and per breakdown, plus snapshots.csv with
// every headline value. The XLSX workbook holds the same tables on
// separate sheets behind an overview sheet, and report.json is the full
// report.
//
// Example usage:
//
//	exp := exporter.NewReportExporter("exports", logger)
//	paths, err := exp.Export(ctx, report, []string{"csv", "xlsx", "json"})
package exporter
