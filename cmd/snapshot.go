package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-health/internal/ckan"
	"github.com/sells-group/catalog-health/internal/probe"
	"github.com/sells-group/catalog-health/internal/runlog"
	"github.com/sells-group/catalog-health/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run one full catalog health snapshot",
	Long: `Enumerates every dataset in the catalog, probes each resource,
and writes the snapshot to <output.dir>/latest.json and
<output.dir>/history/<YYYY-MM-DD>.json.

Per-dataset failures are recorded inside the document; only a failure
of the catalog listing itself aborts the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "snapshot"))

		catalog := ckan.NewClient(ckan.Options{
			BaseURL:   cfg.CKAN.BaseURL,
			APIPath:   cfg.CKAN.APIPath,
			UserAgent: cfg.CKAN.UserAgent,
			Timeout:   cfg.Snapshot.Timeout(),
			Retries:   cfg.Snapshot.Retries,
		})

		prober := probe.NewProber(probe.Options{
			Client:         catalog.HTTPClient(),
			UserAgent:      cfg.CKAN.UserAgent,
			CSVSampleLines: cfg.Snapshot.CSVSampleLines,
		})

		proc := snapshot.NewProcessor(prober, catalog, cfg.Freshness.GreenDays, cfg.Freshness.YellowDays)
		assembler := snapshot.NewAssembler(catalog, proc, snapshot.AssemblerOptions{
			MaxDatasets: cfg.Snapshot.MaxDatasets,
			Delay:       cfg.Snapshot.Delay(),
			Workers:     cfg.Snapshot.Workers,
			GreenDays:   cfg.Freshness.GreenDays,
			YellowDays:  cfg.Freshness.YellowDays,
		})

		now := time.Now().UTC()
		start := time.Now()
		snap, err := assembler.Run(ctx, now)
		if err != nil {
			return eris.Wrap(err, "snapshot: run")
		}
		elapsed := time.Since(start)

		latest, history, err := snapshot.NewWriter(cfg.Output.Dir).Write(snap, now)
		if err != nil {
			return eris.Wrap(err, "snapshot: write")
		}
		log.Info("snapshot written",
			zap.String("latest", latest),
			zap.String("history", history),
			zap.Duration("elapsed", elapsed),
		)

		recordRun(cmd, snap, elapsed)
		return nil
	},
}

// recordRun indexes the run in the run log. Best effort: a run log
// failure never fails a snapshot that is already on disk.
func recordRun(cmd *cobra.Command, snap *snapshot.Snapshot, elapsed time.Duration) {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("command", "snapshot"))

	rl, err := runlog.Open(ctx, cfg.RunLog.Driver, cfg.RunLog.DatabaseURL)
	if err != nil {
		log.Warn("run log unavailable", zap.Error(err))
		return
	}
	defer rl.Close() //nolint:errcheck

	if err := rl.Migrate(ctx); err != nil {
		log.Warn("run log migrate failed", zap.Error(err))
		return
	}

	generatedAt, _ := time.Parse(time.RFC3339, snap.Meta.GeneratedAt)
	entry := runlog.Entry{
		ID:                   snap.Meta.RunID,
		GeneratedAt:          generatedAt,
		DatasetsTotal:        snap.Summary.DatasetsTotal,
		DatasetsGreen:        snap.Summary.DatasetsGreen,
		DatasetsYellow:       snap.Summary.DatasetsYellow,
		DatasetsRed:          snap.Summary.DatasetsRed,
		DatasetsUnknown:      snap.Summary.DatasetsUnknown,
		ResourcesTotal:       snap.Summary.ResourcesTotal,
		ResourcesBroken:      snap.Summary.ResourcesBroken,
		ResourcesParseFailed: snap.Summary.ResourcesParseFailed,
		ErrorsTotal:          snap.Summary.ErrorsTotal,
		DurationMS:           elapsed.Milliseconds(),
	}
	if err := rl.Record(ctx, entry); err != nil {
		log.Warn("run log record failed", zap.Error(err))
	}
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
