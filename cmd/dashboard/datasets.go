package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"c19pulse/internal/datasets"
)

func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and every dataset definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			registry, err := datasets.Default(cfg)
			if err != nil {
				return err
			}
			if err := registry.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration valid: %d datasets (%s)\n",
				registry.Count(), strings.Join(registry.Names(), ", "))
			return nil
		},
	}
}

func newDatasetsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the configured datasets and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			registry, err := datasets.Default(cfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDATE COLUMN\tSOURCE\tCOLUMNS")
			for _, def := range registry.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					def.Name, def.DateColumn, def.Source, strings.Join(def.Columns, ", "))
			}
			return tw.Flush()
		},
	}
}
