package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// DefaultTable is the table the Postgres source reads.
const DefaultTable = "content_records"

// PostgresConfig configures a Postgres source.
type PostgresConfig struct {
	URL      string `koanf:"url"`
	Table    string `koanf:"table"`
	MaxConns int32  `koanf:"max_conns"`
	// Migrate creates the table when it does not exist.
	Migrate bool `koanf:"migrate"`
}

// Postgres reads content records from a PostgreSQL table.
type Postgres struct {
	base
	pool  *pgxpool.Pool
	table string
}

// NewPostgres connects to the database and verifies it is reachable.
func NewPostgres(ctx context.Context, cfg PostgresConfig, opts ...Option) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable(TypePostgres, fmt.Errorf("database unreachable: %w", err))
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	p := &Postgres{
		base:  newBase(TypePostgres, opts),
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
	}

	if cfg.Migrate {
		if err := p.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, createTableSQL(p.table))
	return err
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		kind         TEXT NOT NULL,
		id           TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		channel_id   TEXT NOT NULL DEFAULT '',
		keywords     TEXT[] NOT NULL DEFAULT '{}',
		published_at TIMESTAMPTZ,
		metrics      JSONB NOT NULL DEFAULT '{}',
		PRIMARY KEY (kind, id)
	)`
}

// selectSQL returns the query for a window. Videos older than $1 are
// excluded in the database; channel and keyword rows always match.
func selectSQL(table string, bounded bool) string {
	q := `SELECT kind, id, title, channel_id, keywords, published_at, metrics FROM ` + table
	if bounded {
		q += ` WHERE kind <> 'video' OR published_at >= $1`
	}
	return q + ` ORDER BY kind, id`
}

func (p *Postgres) Name() string { return TypePostgres }

func (p *Postgres) Snapshot(ctx context.Context, window records.TimeWindow) (*records.Snapshot, error) {
	asOf := p.now().UTC()

	var args []any
	d, bounded := window.Duration()
	if bounded {
		args = append(args, asOf.Add(-d))
	}
	rows, err := p.pool.Query(ctx, selectSQL(p.table, bounded), args...)
	if err != nil {
		return nil, unavailable(p.Name(), err)
	}
	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, unavailable(p.Name(), err)
	}
	return p.snapshot(window, &Document{AsOf: asOf, Records: recs})
}

func scanRecord(row pgx.CollectableRow) (records.ContentRecord, error) {
	var (
		r         records.ContentRecord
		kind      string
		published *time.Time
	)
	if err := row.Scan(&kind, &r.ID, &r.Title, &r.ChannelID, &r.Keywords, &published, &r.Metrics); err != nil {
		return records.ContentRecord{}, err
	}
	r.Kind = records.Kind(kind)
	if published != nil {
		r.PublishedAt = published.UTC()
	}
	return r, nil
}

// Upsert writes recs in one transaction, replacing rows with the same
// kind and id.
func (p *Postgres) Upsert(ctx context.Context, recs []records.ContentRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return unavailable(p.Name(), err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := `INSERT INTO ` + p.table + ` (kind, id, title, channel_id, keywords, published_at, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (kind, id) DO UPDATE SET
			title = EXCLUDED.title,
			channel_id = EXCLUDED.channel_id,
			keywords = EXCLUDED.keywords,
			published_at = EXCLUDED.published_at,
			metrics = EXCLUDED.metrics`

	batch := &pgx.Batch{}
	for _, r := range recs {
		var published *time.Time
		if !r.PublishedAt.IsZero() {
			t := r.PublishedAt.UTC()
			published = &t
		}
		keywords := r.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		metrics := r.Metrics
		if metrics == nil {
			metrics = map[string]float64{}
		}
		batch.Queue(q, string(r.Kind), r.ID, r.Title, r.ChannelID, keywords, published, metrics)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return unavailable(p.Name(), err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
