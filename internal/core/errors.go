package core

import (
	"errors"
	"fmt"
)

// ErrUploadNotFound is returned by repositories for unknown upload IDs.
var ErrUploadNotFound = errors.New("upload not found")

// FormatError reports a file whose shape is wrong: no lines at all or a
// header other than ExpectedHeader.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason
}

// ParseError reports a field that could not be converted.
// Line is the 1-based position in the line set, the header being line 1.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: invalid %s %q", e.Line, e.Field, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// OutlierError reports that the value column cannot be accepted, either
// because it has no data rows or because some values lie outside the bounds.
// Analysis is nil when there were no values to analyse.
type OutlierError struct {
	Reason   string
	Analysis *Analysis
}

func (e *OutlierError) Error() string {
	return e.Reason
}

// IsClientError reports whether err is caused by the uploaded content
// rather than by the service.
func IsClientError(err error) bool {
	var (
		fe *FormatError
		pe *ParseError
		oe *OutlierError
	)
	return errors.As(err, &fe) || errors.As(err, &pe) || errors.As(err, &oe)
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}
