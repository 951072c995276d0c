package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/catalog-health/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the latest snapshot over HTTP",
	Long:  "Read-only API over the written snapshot files: /api/latest, /api/summary, /healthz. Does not trigger snapshot runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.New(cfg.Output.Dir, cfg.Server.Port).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
