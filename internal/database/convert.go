package database

// convert.go maps domain values onto pgtype values for the COPY protocol.

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/csvingest/internal/core"
)

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

func fromPgUUID(u pgtype.UUID) uuid.UUID {
	if !u.Valid {
		return uuid.Nil
	}
	return uuid.UUID(u.Bytes)
}

// toPgTimestamp never yields NULL: 0001-01-01 00:00:00 is a parseable
// timestamp and recorded_at is NOT NULL.
func toPgTimestamp(t time.Time) pgtype.Timestamp {
	return pgtype.Timestamp{Time: t, Valid: true}
}

func toPgInt4(v int32) pgtype.Int4 {
	return pgtype.Int4{Int32: v, Valid: true}
}

// toPgText keeps empty categories as empty strings; the column is NOT NULL.
func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

func toPgFloat8(f float64) pgtype.Float8 {
	return pgtype.Float8{Float64: f, Valid: true}
}

// copyRow returns a record's values in recordColumns order.
func copyRow(uploadID uuid.UUID, r core.Record) []any {
	return []any{
		toPgUUID(uploadID),
		toPgTimestamp(r.Timestamp),
		toPgInt4(r.Value),
		toPgText(r.Category),
	}
}
