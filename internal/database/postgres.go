package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/csvingest/internal/config"
	"github.com/JonMunkholm/csvingest/internal/core"
)

// Postgres stores uploads in PostgreSQL. Records are loaded with COPY.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ core.Repository = (*Postgres)(nil)

// PoolConfig parses cfg.URL and applies the pool sizing settings.
func PoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	return poolConfig, nil
}

// OpenPostgres connects, pings and, when cfg.AutoMigrate is set, creates the
// upload tables.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pg := &Postgres{pool: pool}
	if cfg.AutoMigrate {
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return pg, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the upload tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// BulkInsert writes the upload row and all records in one transaction.
func (p *Postgres) BulkInsert(ctx context.Context, batch core.Batch) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO csv_uploads (id, file_name, rows_inserted, mean, std_dev) VALUES ($1, $2, $3, $4, $5)`,
		toPgUUID(batch.UploadID),
		batch.FileName,
		int64(len(batch.Records)),
		toPgFloat8(batch.Stats.Mean),
		toPgFloat8(batch.Stats.StdDev),
	)
	if err != nil {
		return 0, fmt.Errorf("insert upload: %w", err)
	}

	records := batch.Records
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{recordsTable},
		recordColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return copyRow(batch.UploadID, records[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy records: %w", err)
	}
	if n != int64(len(records)) {
		return 0, fmt.Errorf("copy records: wrote %d of %d rows", n, len(records))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// GetUpload loads one upload summary.
func (p *Postgres) GetUpload(ctx context.Context, id uuid.UUID) (*core.Upload, error) {
	var (
		pgID       pgtype.UUID
		uploadedAt pgtype.Timestamptz
		up         core.Upload
	)

	err := p.pool.QueryRow(ctx,
		`SELECT id, file_name, rows_inserted, mean, std_dev, uploaded_at FROM csv_uploads WHERE id = $1`,
		toPgUUID(id),
	).Scan(&pgID, &up.FileName, &up.RowsInserted, &up.Mean, &up.StdDev, &uploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload %s: %w", id, err)
	}

	up.ID = fromPgUUID(pgID)
	up.UploadedAt = uploadedAt.Time.UTC()
	return &up, nil
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// DatabaseName extracts the database name from a connection URL for logging.
// It returns "" when the URL cannot be parsed.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
