package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Column names of the only accepted upload schema, in order.
const (
	ColumnTimestamp = "timestamp"
	ColumnValue     = "value"
	ColumnCategory  = "category"
)

// ExpectedHeader is the exact header line an upload must start with.
const ExpectedHeader = ColumnTimestamp + "," + ColumnValue + "," + ColumnCategory

// TimestampLayout is the accepted timestamp format (yyyy-MM-dd HH:mm:ss).
const TimestampLayout = "2006-01-02 15:04:05"

// Column positions within a data row.
const (
	idxTimestamp = iota
	idxValue
	idxCategory
	columnCount
)

// Record is one parsed data row.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Value     int32     `json:"value"`
	Category  string    `json:"category"`
}

// Statistics summarises the value column of one upload.
type Statistics struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Lower  float64 `json:"lower_bound"`
	Upper  float64 `json:"upper_bound"`
}

// Outlier is a data row whose value falls outside the statistical bounds.
type Outlier struct {
	Line  int   `json:"line"`
	Value int32 `json:"value"`
}

// Analysis is the result of scanning the value column.
type Analysis struct {
	Stats    Statistics `json:"stats"`
	Outliers []Outlier  `json:"outliers,omitempty"`
}

// HasOutliers reports whether any value fell outside the bounds.
func (a Analysis) HasOutliers() bool {
	return len(a.Outliers) > 0
}

// Batch is the unit handed to a Repository: every record of one upload.
type Batch struct {
	UploadID uuid.UUID
	FileName string
	Stats    Statistics
	Records  []Record
}

// Upload is the persisted summary of a successful ingest.
type Upload struct {
	ID           uuid.UUID `json:"upload_id" db:"id"`
	FileName     string    `json:"file_name" db:"file_name"`
	RowsInserted int64     `json:"rows_inserted" db:"rows_inserted"`
	Mean         float64   `json:"mean" db:"mean"`
	StdDev       float64   `json:"std_dev" db:"std_dev"`
	UploadedAt   time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// IngestResult is returned by Service.Ingest.
type IngestResult struct {
	UploadID uuid.UUID     `json:"upload_id"`
	FileName string        `json:"file_name"`
	Rows     int64         `json:"rows"`
	Stats    Statistics    `json:"stats"`
	Duration time.Duration `json:"-"`
}

// Repository persists parsed uploads.
//
// BulkInsert must write the whole batch or nothing and returns the number of
// records written. GetUpload returns ErrUploadNotFound for unknown IDs.
type Repository interface {
	BulkInsert(ctx context.Context, batch Batch) (int64, error)
	GetUpload(ctx context.Context, id uuid.UUID) (*Upload, error)
	Ping(ctx context.Context) error
	Close() error
}
