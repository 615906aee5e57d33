package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"text/tabwriter"

	"github.com/dylanvkmns/rqmProject/internal/adapter/intake"
	"github.com/dylanvkmns/rqmProject/internal/config"
	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/dylanvkmns/rqmProject/internal/observability"
	"github.com/spf13/cobra"
)

func validateCommand() *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse and normalize a file without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			logger := observability.NewLogger(cfg)
			if family == "" {
				family = cfg.InputFamily
			}

			path := args[0]
			dir, err := intake.NewDir(filepath.Dir(path), cfg.InputEncoding, logger)
			if err != nil {
				return err
			}
			raw, err := dir.Read(cmd.Context(), path)
			if err != nil {
				return err
			}
			schema, err := domain.ResolveSchema(cfg.Schemas(), filepath.Base(path), family)
			if err != nil {
				return err
			}
			table, err := domain.Normalize(raw, schema)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), table)
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "input family when the file name matches none (default INPUT_FAMILY)")
	return cmd
}

// writeReport prints what normalization would keep and drop.
func writeReport(w io.Writer, table domain.NormalizedTable) error {
	r := table.Report
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "source\t%s\n", table.Source)
	fmt.Fprintf(tw, "family\t%s\n", table.Schema)
	fmt.Fprintf(tw, "rows read\t%d\n", r.RowsRead)
	fmt.Fprintf(tw, "rows kept\t%d\n", len(table.Records))
	fmt.Fprintf(tw, "rows dropped\t%d\n", len(r.Dropped))
	fmt.Fprintf(tw, "duplicates\t%d\n", r.Duplicates)
	fmt.Fprintf(tw, "out of window\t%d\n", r.OutOfWindow)
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, d := range r.Dropped {
		if _, err := fmt.Fprintf(w, "line %d: %v\n", d.Line, d.Err); err != nil {
			return err
		}
	}
	return nil
}
