// Command radarstats ingests radar performance exports into a SQL store and
// serves per-radar time-series views over HTTP.
//
// Usage:
//
//	radarstats serve              # API plus scheduled ingestion
//	radarstats ingest [files...]  # one pass over INPUT_DIR or the named files
//	radarstats validate <file>    # normalization report, nothing written
//	radarstats outliers           # IQR audit over the retention window
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "radarstats",
		Short:         "Radar performance statistics ETL and view service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCommand())
	root.AddCommand(ingestCommand())
	root.AddCommand(validateCommand())
	root.AddCommand(outliersCommand())

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
