package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"c19pulse/internal/exporter"
	"c19pulse/internal/report"
)

type exportCmd struct {
	flags   *globalFlags
	out     string
	formats []string
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	ec := &exportCmd{flags: flags}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build the dashboard and write CSV, XLSX and JSON files",
		Args:  cobra.NoArgs,
		RunE:  ec.run,
	}
	cmd.Flags().StringVarP(&ec.out, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().StringSliceVar(&ec.formats, "formats", nil, "Comma-separated formats: csv, xlsx, json (default from config)")
	return cmd
}

func (ec *exportCmd) run(cmd *cobra.Command, _ []string) (err error) {
	ctx, a, err := newApp(cmd, ec.flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()

	out := ec.out
	if out == "" {
		out = a.cfg.Export.OutputDir
	}
	formats := ec.formats
	if len(formats) == 0 {
		formats = a.cfg.Export.Formats
	}

	r, err := a.builder.Build(ctx, report.Options{})
	if err != nil {
		return err
	}

	paths, err := exporter.NewReportExporter(out, a.logger).Export(ctx, r, formats)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "export complete",
		slog.String("dir", out),
		slog.Int("files", len(paths)))
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
