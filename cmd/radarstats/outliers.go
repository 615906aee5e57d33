package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/dylanvkmns/rqmProject/internal/view"
	"github.com/spf13/cobra"
)

func outliersCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "outliers",
		Short: "List IQR outliers for every radar and group in the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			svc := view.NewService(a.store, domain.DefaultMetricGroups(), 0, a.logger, a.metrics)
			findings, err := svc.Audit(ctx, a.retentionWindow())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(findings)
			}
			return writeFindings(cmd.OutOrStdout(), findings)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print findings as JSON")
	return cmd
}

func writeFindings(w io.Writer, findings []view.Finding) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RADAR\tGROUP\tMETRIC\tDATE\tVALUE\tLOWER\tUPPER")
	for _, f := range findings {
		for _, p := range f.Outliers {
			value := "null"
			if p.Value != nil {
				value = fmt.Sprintf("%g", *p.Value)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%g\t%g\n",
				f.Radar, f.Group, f.Metric, p.Date.Format(domain.ISODate), value, f.Fences.Lower, f.Fences.Upper)
		}
	}
	return tw.Flush()
}
