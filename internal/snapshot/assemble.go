package snapshot

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/catalog-health/internal/ckan"
	"github.com/sells-group/catalog-health/internal/freshness"
)

// maxRecordedErrors bounds the error list carried in the snapshot
// document. ErrorsTotal still counts every failure.
const maxRecordedErrors = 500

// snapshotNote is the free-text note embedded in every snapshot.
const snapshotNote = "MVP snapshot: dataset freshness + resource availability + basic CSV/JSON parsing."

// AssemblerOptions bounds one snapshot run.
type AssemblerOptions struct {
	MaxDatasets int           // 0 = unlimited
	Delay       time.Duration // minimum spacing between dataset fetches (rate bound)
	Workers     int           // bounded worker pool size; <=1 is sequential
	GreenDays   int
	YellowDays  int
}

// Assembler orchestrates a full snapshot run.
type Assembler struct {
	catalog *ckan.Client
	proc    *Processor
	opts    AssemblerOptions
}

// NewAssembler creates a snapshot assembler.
func NewAssembler(catalog *ckan.Client, proc *Processor, opts AssemblerOptions) *Assembler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Assembler{catalog: catalog, proc: proc, opts: opts}
}

// Run enumerates the catalog and produces the snapshot document. Only a
// failure of the listing itself is returned as an error; per-dataset
// failures are recorded in the document and the run continues.
func (a *Assembler) Run(ctx context.Context, now time.Time) (*Snapshot, error) {
	log := zap.L().With(zap.String("component", "snapshot.assembler"))

	ids, err := a.catalog.ListDatasets(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "assembler: list datasets")
	}
	if a.opts.MaxDatasets > 0 && len(ids) > a.opts.MaxDatasets {
		ids = ids[:a.opts.MaxDatasets]
	}
	log.Info("datasets to process", zap.Int("count", len(ids)))

	// The politeness delay bounds the request rate against the portal,
	// not strict serialization when workers > 1.
	var limiter *rate.Limiter
	if a.opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(a.opts.Delay), 1)
	}

	// Slots indexed by enumeration position keep output order stable
	// regardless of worker count.
	records := make([]*DatasetRecord, len(ids))
	failures := make([]*ProcessError, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	var processed atomic.Int64
	for i, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}

			pkg, err := a.catalog.ShowDataset(gctx, id)
			if err != nil {
				// Isolation boundary: one dataset's failure never
				// aborts the run.
				failures[i] = &ProcessError{Dataset: id, Error: err.Error()}
				return nil
			}

			rec := a.proc.Process(gctx, pkg, id, now)
			records[i] = &rec

			if n := int(processed.Add(1)); n%50 == 0 {
				log.Info("progress", zap.Int("processed", n), zap.Int("total", len(ids)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "assembler: run interrupted")
	}

	agg := NewOrgAggregator()
	datasets := make([]DatasetRecord, 0, len(ids))
	var errs []ProcessError
	for i := range ids {
		if failures[i] != nil {
			errs = append(errs, *failures[i])
			continue
		}
		if records[i] != nil {
			agg.Add(*records[i])
			datasets = append(datasets, *records[i])
		}
	}

	summary := summarize(datasets, len(errs))
	if len(errs) > maxRecordedErrors {
		errs = errs[:maxRecordedErrors]
	}
	if errs == nil {
		errs = []ProcessError{}
	}

	snap := &Snapshot{
		Meta: Meta{
			GeneratedAt: now.UTC().Truncate(time.Second).Format(time.RFC3339),
			RunID:       uuid.New().String(),
			CKANBaseURL: a.catalog.BaseURL(),
			CKANAPIPath: a.catalog.APIPath(),
			FreshnessThresholdDays: Thresholds{
				GreenLT:   a.opts.GreenDays,
				YellowLTE: a.opts.YellowDays,
			},
			Note: snapshotNote,
		},
		Summary:       summary,
		Organizations: agg.Finalize(),
		Datasets:      datasets,
		Errors:        errs,
	}

	log.Info("snapshot assembled",
		zap.Int("datasets", summary.DatasetsTotal),
		zap.Int("errors", summary.ErrorsTotal),
		zap.Int("organizations", len(snap.Organizations)),
	)
	return snap, nil
}

// summarize computes the global counters over the records included.
func summarize(datasets []DatasetRecord, errCount int) Summary {
	s := Summary{DatasetsTotal: len(datasets), ErrorsTotal: errCount}
	for _, d := range datasets {
		switch d.FreshnessBucket {
		case freshness.Green:
			s.DatasetsGreen++
		case freshness.Yellow:
			s.DatasetsYellow++
		case freshness.Red:
			s.DatasetsRed++
		default:
			s.DatasetsUnknown++
		}
		s.ResourcesTotal += d.ResourcesTotal
		s.ResourcesBroken += d.ResourcesBroken
		s.ResourcesParseFailed += d.ResourcesParseFailed
	}
	return s
}
