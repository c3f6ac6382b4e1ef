// Package database provides the core.Repository implementations: PostgreSQL
// through pgx for deployments and SQLite through sqlx for local runs and tests.
package database

const recordsTable = "csv_records"

// recordColumns is the COPY/INSERT column order for csv_records.
var recordColumns = []string{"upload_id", "recorded_at", "value", "category"}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS csv_uploads (
    id            UUID PRIMARY KEY,
    file_name     TEXT NOT NULL,
    rows_inserted BIGINT NOT NULL,
    mean          DOUBLE PRECISION NOT NULL,
    std_dev       DOUBLE PRECISION NOT NULL,
    uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS csv_records (
    id          BIGSERIAL PRIMARY KEY,
    upload_id   UUID NOT NULL REFERENCES csv_uploads(id) ON DELETE CASCADE,
    recorded_at TIMESTAMP NOT NULL,
    value       INTEGER NOT NULL,
    category    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS csv_records_upload_id ON csv_records(upload_id);
CREATE INDEX IF NOT EXISTS csv_records_recorded_at ON csv_records(recorded_at);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS csv_uploads (
    id            TEXT PRIMARY KEY,
    file_name     TEXT NOT NULL,
    rows_inserted INTEGER NOT NULL,
    mean          REAL NOT NULL,
    std_dev       REAL NOT NULL,
    uploaded_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS csv_records (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    upload_id   TEXT NOT NULL REFERENCES csv_uploads(id) ON DELETE CASCADE,
    recorded_at TIMESTAMP NOT NULL,
    value       INTEGER NOT NULL,
    category    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS csv_records_upload_id ON csv_records(upload_id);
`
