// Package runlog keeps a queryable index of snapshot runs: one row per
// run with its summary counters. The snapshot JSON files remain the
// source of truth; the run log only answers "what ran, when, how did it
// go" without parsing history files.
package runlog

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Entry is one recorded snapshot run.
type Entry struct {
	ID                   string    `json:"id"`
	GeneratedAt          time.Time `json:"generated_at"`
	DatasetsTotal        int       `json:"datasets_total"`
	DatasetsGreen        int       `json:"datasets_green"`
	DatasetsYellow       int       `json:"datasets_yellow"`
	DatasetsRed          int       `json:"datasets_red"`
	DatasetsUnknown      int       `json:"datasets_unknown"`
	ResourcesTotal       int       `json:"resources_total"`
	ResourcesBroken      int       `json:"resources_broken"`
	ResourcesParseFailed int       `json:"resources_parse_failed"`
	ErrorsTotal          int       `json:"errors_total"`
	DurationMS           int64     `json:"duration_ms"`
}

// Log records and lists snapshot runs.
type Log interface {
	Migrate(ctx context.Context) error
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Open creates a Log for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Log, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("runlog: unknown driver %q (valid: sqlite, postgres)", driver)
	}
}
