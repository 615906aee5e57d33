package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ingestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest every file in INPUT_DIR, or only the named files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			ing, err := a.ingester()
			if err != nil {
				return err
			}

			var rows int
			if len(args) > 0 {
				rows, err = ing.IngestFiles(ctx, args)
			} else {
				rows, err = ing.RunOnce(ctx)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows appended\n", rows)
			return err
		},
	}
}
