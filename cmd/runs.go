package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catalog-health/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent snapshot runs from the run log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rl, err := runlog.Open(ctx, cfg.RunLog.Driver, cfg.RunLog.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "runs: open run log")
		}
		defer rl.Close() //nolint:errcheck

		if err := rl.Migrate(ctx); err != nil {
			return eris.Wrap(err, "runs: migrate")
		}

		entries, err := rl.Recent(ctx, runsLimit)
		if err != nil {
			return eris.Wrap(err, "runs: list")
		}
		if len(entries) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GENERATED\tDATASETS\tGREEN\tYELLOW\tRED\tUNKNOWN\tBROKEN\tERRORS\tDURATION")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
				e.GeneratedAt.UTC().Format(time.RFC3339),
				e.DatasetsTotal, e.DatasetsGreen, e.DatasetsYellow,
				e.DatasetsRed, e.DatasetsUnknown,
				e.ResourcesBroken, e.ErrorsTotal,
				time.Duration(e.DurationMS)*time.Millisecond,
			)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
