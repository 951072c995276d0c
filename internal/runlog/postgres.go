package runlog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the run log needs; pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresLog implements Log using a pgx connection pool.
type PostgresLog struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresLog with its own connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresLog, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: postgres connect")
	}
	return &PostgresLog{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresLog {
	return &PostgresLog{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshot_runs (
	id                     TEXT PRIMARY KEY,
	generated_at           TIMESTAMPTZ NOT NULL,
	datasets_total         INTEGER NOT NULL,
	datasets_green         INTEGER NOT NULL,
	datasets_yellow        INTEGER NOT NULL,
	datasets_red           INTEGER NOT NULL,
	datasets_unknown       INTEGER NOT NULL,
	resources_total        INTEGER NOT NULL,
	resources_broken       INTEGER NOT NULL,
	resources_parse_failed INTEGER NOT NULL,
	errors_total           INTEGER NOT NULL,
	duration_ms            BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshot_runs_generated_at ON snapshot_runs(generated_at);
`

func (l *PostgresLog) Migrate(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "runlog: postgres migrate")
}

func (l *PostgresLog) Record(ctx context.Context, e Entry) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO snapshot_runs (
			id, generated_at, datasets_total, datasets_green, datasets_yellow,
			datasets_red, datasets_unknown, resources_total, resources_broken,
			resources_parse_failed, errors_total, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.GeneratedAt.UTC(), e.DatasetsTotal, e.DatasetsGreen, e.DatasetsYellow,
		e.DatasetsRed, e.DatasetsUnknown, e.ResourcesTotal, e.ResourcesBroken,
		e.ResourcesParseFailed, e.ErrorsTotal, e.DurationMS,
	)
	return eris.Wrap(err, "runlog: postgres record")
}

func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id, generated_at, datasets_total, datasets_green, datasets_yellow,
			datasets_red, datasets_unknown, resources_total, resources_broken,
			resources_parse_failed, errors_total, duration_ms
		FROM snapshot_runs ORDER BY generated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: postgres recent")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.GeneratedAt, &e.DatasetsTotal, &e.DatasetsGreen, &e.DatasetsYellow,
			&e.DatasetsRed, &e.DatasetsUnknown, &e.ResourcesTotal, &e.ResourcesBroken,
			&e.ResourcesParseFailed, &e.ErrorsTotal, &e.DurationMS,
		); err != nil {
			return nil, eris.Wrap(err, "runlog: postgres scan")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: postgres rows")
}

func (l *PostgresLog) Close() error {
	l.closeFn()
	return nil
}
