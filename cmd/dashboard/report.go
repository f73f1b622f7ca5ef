package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "c19pulse/internal/errors"
	"c19pulse/internal/report"
	"c19pulse/pkg/contracts/domain"
)

const (
	outputJSON = "json"
	outputText = "text"
)

type reportCmd struct {
	flags  *globalFlags
	from   string
	to     string
	format string
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	rc := &reportCmd{flags: flags}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the dashboard and print it",
		Args:  cobra.NoArgs,
		RunE:  rc.run,
	}
	cmd.Flags().StringVar(&rc.from, "from", "", "First trend date, YYYY-MM-DD (default: earliest date)")
	cmd.Flags().StringVar(&rc.to, "to", "", "Last trend date, YYYY-MM-DD (default: latest date)")
	cmd.Flags().StringVar(&rc.format, "format", outputJSON, "Output format: json or text")
	return cmd
}

func (rc *reportCmd) run(cmd *cobra.Command, _ []string) (err error) {
	if rc.format != outputJSON && rc.format != outputText {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", rc.format), nil)
	}
	opts, err := parseWindow(rc.from, rc.to)
	if err != nil {
		return err
	}

	ctx, a, err := newApp(cmd, rc.flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()

	r, err := a.builder.Build(ctx, opts)
	if err != nil {
		return err
	}

	if rc.format == outputText {
		return writeText(cmd.OutOrStdout(), r)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// parseWindow reads the --from and --to flags. Empty means open-ended.
func parseWindow(from, to string) (report.Options, error) {
	var opts report.Options
	var err error
	if from != "" {
		if opts.From, err = time.Parse(domain.DateLayout, from); err != nil {
			return opts, apperrors.NewValidationError(fmt.Sprintf("invalid --from date %q", from), err)
		}
	}
	if to != "" {
		if opts.To, err = time.Parse(domain.DateLayout, to); err != nil {
			return opts, apperrors.NewValidationError(fmt.Sprintf("invalid --to date %q", to), err)
		}
	}
	return opts, nil
}

// writeText prints the overview followed by each snapshot's display values
func writeText(w io.Writer, r *domain.Report) error {
	o := r.Overview
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n\n", o.Narrative)
	fmt.Fprintf(tw, "Date\t%s\n", o.DateLabel)
	fmt.Fprintf(tw, "New cases\t%d (%s)\n", o.NewCases, o.CaseChange)
	fmt.Fprintf(tw, "Approximate cases\t%d\n", o.ApproximateCases)
	fmt.Fprintf(tw, "New deaths\t%d\n", o.NewDeaths)
	fmt.Fprintf(tw, "Active per 100k\t%d %s\n", o.ActivePer100k, o.Reaction)
	fmt.Fprintf(tw, "Hospitalized\t%d\n", o.Hospitalized)
	fmt.Fprintf(tw, "In ICU\t%d\n", o.InICU)
	fmt.Fprintf(tw, "Positivity\t%s\n", o.PositivityRate)
	if l := o.Likelihood; l != nil {
		fmt.Fprintf(tw, "Hospital vs fully/partially vaccinated\t%dx / %dx\n", l.HospitalVsFull, l.HospitalVsPartial)
		fmt.Fprintf(tw, "ICU vs fully/partially vaccinated\t%dx / %dx\n", l.ICUVsFull, l.ICUVsPartial)
	}
	fmt.Fprintf(tw, "Window\t%s to %s\n",
		r.Window.From.Format(domain.DateLayout), r.Window.To.Format(domain.DateLayout))

	for _, name := range sortedNames(r.Snapshots) {
		s := r.Snapshots[name]
		fmt.Fprintf(tw, "\n[%s] %s\n", name, s.Date.Format(domain.DateLayout))
		for _, field := range sortedNames(s.Display) {
			fmt.Fprintf(tw, "%s\t%s\n", field, s.Display[field])
		}
	}

	for _, name := range sortedNames(r.Breakdowns) {
		b := r.Breakdowns[name]
		fmt.Fprintf(tw, "\n[%s] %d cases\n", name, b.Total)
		for _, c := range b.Categories {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Label, c.Count, c.PercentageLabel)
		}
	}
	return tw.Flush()
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
