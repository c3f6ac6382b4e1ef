package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/csvingest/internal/core"
)

const (
	insertUploadSQL = `
INSERT INTO csv_uploads (
	id, file_name, rows_inserted, mean, std_dev, uploaded_at
) VALUES (
	?, ?, ?, ?, ?, ?
)
`

	insertRecordSQL = `
INSERT INTO csv_records (
	upload_id, recorded_at, value, category
) VALUES (
	?, ?, ?, ?
)
`

	selectUploadSQL = `
SELECT id, file_name, rows_inserted, mean, std_dev, uploaded_at
FROM csv_uploads
WHERE id = ?
`
)

// SQLite stores uploads in a single SQLite file.
type SQLite struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ core.Repository = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// BulkInsert writes the upload row and all records in one transaction using a
// prepared statement.
func (s *SQLite) BulkInsert(ctx context.Context, batch core.Batch) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertUploadSQL,
		batch.UploadID.String(),
		batch.FileName,
		int64(len(batch.Records)),
		batch.Stats.Mean,
		batch.Stats.StdDev,
		s.now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert upload: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, insertRecordSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	for _, r := range batch.Records {
		if _, err := stmt.ExecContext(ctx, batch.UploadID.String(), r.Timestamp, r.Value, r.Category); err != nil {
			return 0, fmt.Errorf("insert record %d: %w", n+1, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// GetUpload loads one upload summary.
func (s *SQLite) GetUpload(ctx context.Context, id uuid.UUID) (*core.Upload, error) {
	var up core.Upload
	err := s.db.GetContext(ctx, &up, selectUploadSQL, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload %s: %w", id, err)
	}
	up.UploadedAt = up.UploadedAt.UTC()
	return &up, nil
}

// Ping checks the database file is usable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Records returns the stored records of an upload in insertion order.
func (s *SQLite) Records(ctx context.Context, id uuid.UUID) ([]core.Record, error) {
	var rows []struct {
		RecordedAt time.Time `db:"recorded_at"`
		Value      int32     `db:"value"`
		Category   string    `db:"category"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT recorded_at, value, category FROM csv_records WHERE upload_id = ? ORDER BY id`, id.String())
	if err != nil {
		return nil, fmt.Errorf("select records %s: %w", id, err)
	}

	records := make([]core.Record, len(rows))
	for i, r := range rows {
		records[i] = core.Record{Timestamp: r.RecordedAt.UTC(), Value: r.Value, Category: r.Category}
	}
	return records, nil
}
