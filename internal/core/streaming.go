package core

// streaming.go turns an uploaded body into the line set the validator works on.
//
// Files exported from spreadsheet tools commonly carry a UTF-8 BOM, CRLF line
// endings, trailing blank lines and the odd invalid byte. LineReader removes
// all of these so the header comparison and field parsing see plain text.
// Blank lines before the header are not forgiven: they leave an empty header.

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CountingReader tracks bytes read from the wrapped reader.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// LineReader yields the lines of an upload without terminators. Blank lines
// are dropped, except that blank lines ahead of the first content line
// collapse into a single empty line in the header position, so a file whose
// header is missing is still rejected as such.
type LineReader struct {
	br      *bufio.Reader
	counter *CountingReader
	started bool

	emitted      bool
	leadingBlank bool
	pending      string
	hasPending   bool
}

// NewLineReader wraps r. The underlying reader is consumed lazily.
func NewLineReader(r io.Reader) *LineReader {
	counter := NewCountingReader(r)
	return &LineReader{
		br:      bufio.NewReader(counter),
		counter: counter,
	}
}

// Next returns the next line, or io.EOF once the input is exhausted. Input
// holding nothing but blank lines yields io.EOF straight away.
// Invalid UTF-8 sequences are replaced with '?'.
func (lr *LineReader) Next() (string, error) {
	if !lr.started {
		lr.started = true
		if err := lr.skipBOM(); err != nil {
			return "", err
		}
	}

	if lr.hasPending {
		lr.hasPending = false
		return lr.pending, nil
	}

	for {
		line, err := lr.br.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		if line == "" && err == io.EOF {
			return "", io.EOF
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		if strings.TrimSpace(line) == "" {
			if err == io.EOF {
				return "", io.EOF
			}
			if !lr.emitted {
				lr.leadingBlank = true
			}
			continue
		}

		if !utf8.ValidString(line) {
			line = strings.ToValidUTF8(line, "?")
		}

		lr.emitted = true
		if lr.leadingBlank {
			lr.leadingBlank = false
			lr.pending, lr.hasPending = line, true
			return "", nil
		}
		return line, nil
	}
}

// BytesRead returns how many bytes have been pulled from the underlying reader.
func (lr *LineReader) BytesRead() int64 {
	return lr.counter.BytesRead
}

func (lr *LineReader) skipBOM() error {
	head, err := lr.br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return err
	}
	if bytes.Equal(head, utf8BOM) {
		_, err = lr.br.Discard(len(utf8BOM))
		return err
	}
	return nil
}

// ReadLines drains r into a line set. An empty or all-blank input yields an
// empty, non-nil slice.
func ReadLines(r io.Reader) ([]string, error) {
	lines, _, err := readLinesCounted(r)
	return lines, err
}

func readLinesCounted(r io.Reader) ([]string, int64, error) {
	lr := NewLineReader(r)
	lines := make([]string, 0, 64)
	for {
		line, err := lr.Next()
		if err == io.EOF {
			return lines, lr.BytesRead(), nil
		}
		if err != nil {
			return nil, lr.BytesRead(), err
		}
		lines = append(lines, line)
	}
}
