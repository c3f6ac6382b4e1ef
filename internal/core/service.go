package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvingest/internal/logging"
)

// DefaultUploadTimeout bounds a single ingest when Options.Timeout is unset.
const DefaultUploadTimeout = 10 * time.Minute

// Observer receives measurements from the service. Implementations must be
// safe for concurrent use.
type Observer interface {
	// ObserveValidation is called once per validated file with the
	// outcome code ("ok", "format", "parse", "outlier", "error").
	ObserveValidation(outcome string, lines int, elapsed time.Duration)
	// ObservePersist is called after every BulkInsert attempt.
	ObservePersist(rows int64, elapsed time.Duration, err error)
	// ObserveBytes is called with the size of every body read.
	ObserveBytes(n int64)
}

type nopObserver struct{}

func (nopObserver) ObserveValidation(string, int, time.Duration) {}
func (nopObserver) ObservePersist(int64, time.Duration, error)   {}
func (nopObserver) ObserveBytes(int64)                           {}

// Options configures a Service.
type Options struct {
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
	Observer      Observer
}

// Service validates uploads and hands accepted ones to the Repository.
type Service struct {
	repo     Repository
	limiter  *UploadLimiter
	timeout  time.Duration
	observer Observer
	newID    func() uuid.UUID
}

// NewService wires a Service around repo.
func NewService(repo Repository, opts Options) (*Service, error) {
	if repo == nil {
		return nil, errors.New("core: nil repository")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Service{
		repo:     repo,
		limiter:  NewUploadLimiter(opts.MaxConcurrent, opts.MaxWait),
		timeout:  timeout,
		observer: observer,
		newID:    uuid.New,
	}, nil
}

// Ingest reads, validates and persists one uploaded file. Content problems
// are returned as FormatError, ParseError or OutlierError and nothing is
// written in that case.
func (s *Service) Ingest(ctx context.Context, fileName string, r io.Reader) (*IngestResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	lines, err := s.readLines(r)
	if err != nil {
		return nil, err
	}

	validated, err := s.process(lines)
	if err != nil {
		return nil, err
	}

	result, err := s.Persist(ctx, fileName, validated)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	logging.WithFields(ctx,
		"upload_id", result.UploadID,
		"file", fileName,
		"client_ip", ClientIPFromContext(ctx),
	).Info("upload stored",
		"rows", result.Rows,
		"mean", result.Stats.Mean,
		"std_dev", result.Stats.StdDev,
		"duration", result.Duration,
	)

	return result, nil
}

// Check reads and validates one file without persisting anything.
func (s *Service) Check(ctx context.Context, fileName string, r io.Reader) (*Analysis, error) {
	lines, err := s.readLines(r)
	if err != nil {
		return nil, err
	}

	validated, err := s.process(lines)
	if err != nil {
		return nil, err
	}

	logging.WithFields(ctx, "file", fileName).Debug("outlier check passed",
		"rows", validated.Analysis.Stats.Count)
	return &validated.Analysis, nil
}

// Persist parses every data row of a validated line set and writes them as
// one batch. A malformed row fails the call before the repository is touched.
func (s *Service) Persist(ctx context.Context, fileName string, v *Validated) (*IngestResult, error) {
	records, err := ParseRecords(v.Lines)
	if err != nil {
		return nil, err
	}

	batch := Batch{
		UploadID: s.newID(),
		FileName: fileName,
		Stats:    v.Analysis.Stats,
		Records:  records,
	}

	start := time.Now()
	n, err := s.repo.BulkInsert(ctx, batch)
	s.observer.ObservePersist(n, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("bulk insert %s: %w", batch.UploadID, err)
	}

	return &IngestResult{
		UploadID: batch.UploadID,
		FileName: fileName,
		Rows:     n,
		Stats:    batch.Stats,
	}, nil
}

// Upload returns the summary of a previously stored upload.
func (s *Service) Upload(ctx context.Context, id uuid.UUID) (*Upload, error) {
	return s.repo.GetUpload(ctx, id)
}

// Ping checks that the repository is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// UploadLimiterStatus returns the current upload limiter state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight ingests finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) readLines(r io.Reader) ([]string, error) {
	lines, n, err := readLinesCounted(r)
	s.observer.ObserveBytes(n)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return lines, nil
}

func (s *Service) process(lines []string) (*Validated, error) {
	start := time.Now()
	validated, err := Process(lines)
	s.observer.ObserveValidation(outcomeOf(err), len(lines), time.Since(start))
	return validated, err
}

// outcomeOf classifies a Process error for metrics labels.
func outcomeOf(err error) string {
	var (
		fe *FormatError
		pe *ParseError
		oe *OutlierError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &fe):
		return "format"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &oe):
		return "outlier"
	default:
		return "error"
	}
}
