package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Build the Ontario COVID-19 dashboard from open data",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"Path to a YAML config file (default config.yaml, or $C19_CONFIG)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&flags.metricsFile, "metrics-file", "",
		"Write Prometheus metrics to this textfile when the command finishes")

	root.AddCommand(
		newReportCmd(flags),
		newExportCmd(flags),
		newValidateCmd(flags),
		newDatasetsCmd(flags),
	)
	return root
}

func versionString() string {
	if BuildTime == "" {
		return Version
	}
	return Version + " (built " + BuildTime + ")"
}
