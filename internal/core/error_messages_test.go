package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"format error", &FormatError{Reason: "CSV file is empty"}, "CSV001"},
		{"wrapped parse error", fmt.Errorf("ingest: %w", &ParseError{Line: 4, Field: ColumnValue, Value: "x"}), "CSV002"},
		{"outlier error", &OutlierError{Reason: "data contains outliers"}, "CSV003"},
		{"busy", ErrTooManyUploads, "UPL002"},
		{"unknown upload", fmt.Errorf("get upload: %w", ErrUploadNotFound), "UPL003"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB004"},
		{"sqlite lock", errors.New("database is locked"), "DB007"},
		{"deadline", fmt.Errorf("copy: %w", context.DeadlineExceeded), "UPL005"},
		{"cancelled", context.Canceled, "UPL004"},
		{"plain timeout", errors.New("i/o timeout"), "DB006"},
		{"case insensitive", errors.New("RATE LIMIT exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTooManyUploads)
	want := "System is busy processing other uploads (Code: UPL002). Please wait a moment and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"typed content error is user facing", &OutlierError{Reason: "x"}, true},
		{"known pattern is user facing", errors.New("connection reset by peer"), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := errors.New("dial tcp: connection refused")
	userErr := NewUserError(techErr)

	if userErr.Error() != "Unable to connect to database" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if userErr.User.Code != "DB004" {
		t.Errorf("Code = %q, want DB004", userErr.User.Code)
	}
	if !errors.Is(userErr, techErr) {
		t.Error("Unwrap() should return original error")
	}
}
