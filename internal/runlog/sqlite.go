package runlog

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteLog implements Log using modernc.org/sqlite.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "runlog: sqlite exec %s", pragma)
		}
	}
	return &SQLiteLog{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshot_runs (
	id                     TEXT PRIMARY KEY,
	generated_at           DATETIME NOT NULL,
	datasets_total         INTEGER NOT NULL,
	datasets_green         INTEGER NOT NULL,
	datasets_yellow        INTEGER NOT NULL,
	datasets_red           INTEGER NOT NULL,
	datasets_unknown       INTEGER NOT NULL,
	resources_total        INTEGER NOT NULL,
	resources_broken       INTEGER NOT NULL,
	resources_parse_failed INTEGER NOT NULL,
	errors_total           INTEGER NOT NULL,
	duration_ms            INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshot_runs_generated_at ON snapshot_runs(generated_at);
`

func (l *SQLiteLog) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "runlog: sqlite migrate")
}

func (l *SQLiteLog) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO snapshot_runs (
			id, generated_at, datasets_total, datasets_green, datasets_yellow,
			datasets_red, datasets_unknown, resources_total, resources_broken,
			resources_parse_failed, errors_total, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GeneratedAt.UTC(), e.DatasetsTotal, e.DatasetsGreen, e.DatasetsYellow,
		e.DatasetsRed, e.DatasetsUnknown, e.ResourcesTotal, e.ResourcesBroken,
		e.ResourcesParseFailed, e.ErrorsTotal, e.DurationMS,
	)
	return eris.Wrap(err, "runlog: sqlite record")
}

func (l *SQLiteLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, generated_at, datasets_total, datasets_green, datasets_yellow,
			datasets_red, datasets_unknown, resources_total, resources_broken,
			resources_parse_failed, errors_total, duration_ms
		FROM snapshot_runs ORDER BY generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: sqlite recent")
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.GeneratedAt, &e.DatasetsTotal, &e.DatasetsGreen, &e.DatasetsYellow,
			&e.DatasetsRed, &e.DatasetsUnknown, &e.ResourcesTotal, &e.ResourcesBroken,
			&e.ResourcesParseFailed, &e.ErrorsTotal, &e.DurationMS,
		); err != nil {
			return nil, eris.Wrap(err, "runlog: sqlite scan")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: sqlite rows")
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
