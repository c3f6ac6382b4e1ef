package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Typed content errors are matched first:
//
//	CSV001 - FormatError: missing file content or wrong header
//	CSV002 - ParseError: a value or timestamp could not be parsed
//	CSV003 - OutlierError: no data rows, or values outside mean ± 2σ
//
// Everything else is matched case-insensitively against errorPatterns.
// The first matching pattern wins. Unmatched errors map to ERR000 and
// should be looked up in the logs by request ID.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFormat = UserMessage{
		Message: "The file is not a valid upload",
		Action:  "Use a comma-separated file whose header is exactly " + ExpectedHeader,
		Code:    "CSV001",
	}
	msgParse = UserMessage{
		Message: "A field could not be parsed",
		Action:  "Use whole numbers for value and yyyy-MM-dd HH:mm:ss for timestamp",
		Code:    "CSV002",
	}
	msgOutlier = UserMessage{
		Message: "The value column was rejected",
		Action:  "Review the listed lines; values must lie within two standard deviations of the mean",
		Code:    "CSV003",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgNotFound = UserMessage{
		Message: "Upload not found",
		Action:  "Check the upload ID",
		Code:    "UPL003",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database connectivity
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"database is locked", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// Request handling
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},
	{"invalid upload id", UserMessage{"Upload ID is malformed", "Use the upload_id returned when the file was uploaded", "UPL006"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try uploading a smaller file or check your connection", "UPL005"}},
	{"timeout", UserMessage{"Operation timed out", "Try uploading a smaller file or try again later", "DB006"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
//	msg := MapError(&ParseError{Line: 3, Field: "value", Value: "abc"})
//	// msg.Code == "CSV002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		fe *FormatError
		pe *ParseError
		oe *OutlierError
	)
	switch {
	case errors.As(err, &fe):
		return msgFormat
	case errors.As(err, &pe):
		return msgParse
	case errors.As(err, &oe):
		return msgOutlier
	case errors.Is(err, ErrTooManyUploads):
		return msgBusy
	case errors.Is(err, ErrUploadNotFound):
		return msgNotFound
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
// Error() returns the user message; Unwrap() the original error for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err with MapError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
