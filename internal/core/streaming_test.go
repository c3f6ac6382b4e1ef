package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadLines(t *testing.T) {
	bom := string([]byte{0xEF, 0xBB, 0xBF})

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "plain LF",
			input:    "timestamp,value,category\n2024-01-01 00:00:00,10,a\n",
			expected: []string{"timestamp,value,category", "2024-01-01 00:00:00,10,a"},
		},
		{
			name:     "CRLF endings",
			input:    "timestamp,value,category\r\n2024-01-01 00:00:00,10,a\r\n",
			expected: []string{"timestamp,value,category", "2024-01-01 00:00:00,10,a"},
		},
		{
			name:     "no trailing newline",
			input:    "timestamp,value,category\n2024-01-01 00:00:00,10,a",
			expected: []string{"timestamp,value,category", "2024-01-01 00:00:00,10,a"},
		},
		{
			name:     "BOM stripped",
			input:    bom + "timestamp,value,category\n",
			expected: []string{"timestamp,value,category"},
		},
		{
			name:     "blank lines skipped",
			input:    "timestamp,value,category\n\n  \n2024-01-01 00:00:00,10,a\n\n",
			expected: []string{"timestamp,value,category", "2024-01-01 00:00:00,10,a"},
		},
		{
			name:     "leading blank lines hold the header slot",
			input:    "\n\r\n  \ntimestamp,value,category\n2024-01-01 00:00:00,10,a\n",
			expected: []string{"", "timestamp,value,category", "2024-01-01 00:00:00,10,a"},
		},
		{
			name:     "only blank lines",
			input:    "\n  \r\n\n",
			expected: []string{},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "only BOM",
			input:    bom,
			expected: []string{},
		},
		{
			name:     "partial BOM kept",
			input:    string([]byte{0xEF, 0xBB}) + "abc",
			expected: []string{"?abc"},
		},
		{
			name:     "invalid byte replaced",
			input:    string([]byte{'h', 'e', 0x80, 'l', 'o'}),
			expected: []string{"he?lo"},
		},
		{
			name:     "multibyte kept",
			input:    "timestamp,value,category\n2024-01-01 00:00:00,10,café\n",
			expected: []string{"timestamp,value,category", "2024-01-01 00:00:00,10,café"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLines(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatal("ReadLines returned nil slice")
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d lines %q, want %d %q", len(got), got, len(tt.expected), tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestReadLines_PropagatesReadError(t *testing.T) {
	boom := errors.New("connection dropped")
	_, err := ReadLines(&failingReader{data: []byte("timestamp,value,category\n2024"), err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestLineReader_BytesRead(t *testing.T) {
	input := "timestamp,value,category\r\n\r\n2024-01-01 00:00:00,10,a\r\n"
	lr := NewLineReader(strings.NewReader(input))

	count := 0
	for {
		_, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
	}

	if count != 2 {
		t.Errorf("lines = %d, want 2", count)
	}
	if lr.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", lr.BytesRead(), len(input))
	}
}

func TestCountingReader(t *testing.T) {
	input := bytes.Repeat([]byte("x"), 1000)
	reader := NewCountingReader(bytes.NewReader(input))

	buf := make([]byte, 100)
	total := 0
	for {
		n, err := reader.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if total != len(input) {
		t.Errorf("total read = %d, want %d", total, len(input))
	}
	if reader.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(input))
	}
}
