package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// outlierSigma is how many population standard deviations from the mean a
// value may lie before it is reported.
const outlierSigma = 2.0

// Validated is a line set that passed ValidateFormat and the outlier scan.
type Validated struct {
	Lines    []string
	Analysis Analysis
}

// ValidateFormat checks that lines is non-empty and starts with ExpectedHeader.
func ValidateFormat(lines []string) error {
	if len(lines) == 0 {
		return &FormatError{Reason: "CSV file is empty"}
	}
	if header := lines[0]; header != ExpectedHeader {
		return formatErrorf("invalid CSV format: header must be %q, got %q", ExpectedHeader, clip(header, 80))
	}
	return nil
}

// DetectOutliers reports whether any value of the data rows lies strictly
// outside mean ± 2σ, σ being the population standard deviation.
func DetectOutliers(lines []string) (bool, error) {
	analysis, err := Analyze(lines)
	if err != nil {
		return false, err
	}
	return analysis.HasOutliers(), nil
}

// Analyze parses the value column of every data row and returns the
// statistics together with each outlier found. The header is not checked.
func Analyze(lines []string) (Analysis, error) {
	values, err := parseValues(lines)
	if err != nil {
		return Analysis{}, err
	}
	if len(values) == 0 {
		return Analysis{}, &OutlierError{Reason: "no values to process for outlier detection"}
	}

	stats := ComputeStatistics(values)
	analysis := Analysis{Stats: stats}
	for i, v := range values {
		if f := float64(v); f < stats.Lower || f > stats.Upper {
			analysis.Outliers = append(analysis.Outliers, Outlier{Line: i + 2, Value: v})
		}
	}
	return analysis, nil
}

// Process runs ValidateFormat and Analyze. Any outlier fails the whole set
// with an OutlierError carrying the analysis.
func Process(lines []string) (*Validated, error) {
	if err := ValidateFormat(lines); err != nil {
		return nil, err
	}

	analysis, err := Analyze(lines)
	if err != nil {
		return nil, err
	}
	if analysis.HasOutliers() {
		return nil, &OutlierError{Reason: "data contains outliers", Analysis: &analysis}
	}

	return &Validated{Lines: lines, Analysis: analysis}, nil
}

// ComputeStatistics returns the population mean, standard deviation and
// outlier bounds of values. Zero values yield a zero Statistics.
func ComputeStatistics(values []int32) Statistics {
	n := len(values)
	if n == 0 {
		return Statistics{}
	}

	var sum int64
	for _, v := range values {
		sum += int64(v)
	}
	mean := float64(sum) / float64(n)

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(n))

	return Statistics{
		Count:  n,
		Mean:   mean,
		StdDev: std,
		Lower:  mean - outlierSigma*std,
		Upper:  mean + outlierSigma*std,
	}
}

// ParseRecords converts every data row into a Record. It stops at the first
// malformed row so callers never see a partial result.
func ParseRecords(lines []string) ([]Record, error) {
	if len(lines) < 2 {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(lines)-1)
	for i, line := range lines[1:] {
		rec, err := parseRecord(i+2, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(lineNo int, line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != columnCount {
		return Record{}, &ParseError{
			Line: lineNo,
			Err:  fmt.Errorf("expected %d fields, got %d", columnCount, len(fields)),
		}
	}

	ts, err := time.Parse(TimestampLayout, fields[idxTimestamp])
	if err != nil {
		return Record{}, &ParseError{Line: lineNo, Field: ColumnTimestamp, Value: fields[idxTimestamp], Err: err}
	}

	v, err := parseValue(lineNo, fields[idxValue])
	if err != nil {
		return Record{}, err
	}

	return Record{Timestamp: ts, Value: v, Category: fields[idxCategory]}, nil
}

func parseValues(lines []string) ([]int32, error) {
	if len(lines) < 2 {
		return nil, nil
	}

	values := make([]int32, 0, len(lines)-1)
	for i, line := range lines[1:] {
		lineNo := i + 2
		fields := strings.Split(line, ",")
		if len(fields) <= idxValue {
			return nil, &ParseError{Line: lineNo, Err: errors.New("missing value field")}
		}
		v, err := parseValue(lineNo, fields[idxValue])
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func parseValue(lineNo int, raw string) (int32, error) {
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, &ParseError{Line: lineNo, Field: ColumnValue, Value: raw, Err: err}
	}
	return int32(v), nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
