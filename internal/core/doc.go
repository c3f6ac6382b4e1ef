// Package core validates uploaded CSV files and coordinates their storage.
//
// It has no HTTP or database dependencies; the web layer passes readers in
// and a Repository implementation is injected through NewService.
//
// # Upload format
//
// Every upload is a comma-separated file whose first line is exactly
//
//	timestamp,value,category
//
// followed by data rows such as
//
//	2024-03-01 10:15:30,12,north
//
// The timestamp uses the layout yyyy-MM-dd HH:mm:ss, the value is a 32-bit
// signed integer and the category is free text without commas.
//
// # Pipeline
//
//  1. [ReadLines] strips a BOM, CRLF endings and blank lines
//  2. [ValidateFormat] checks the header
//  3. [Analyze] computes the population mean and standard deviation of the
//     value column and lists every value outside mean ± 2σ
//  4. [Process] rejects the file if any outlier exists
//  5. [ParseRecords] converts all rows; [Service.Persist] writes them as one batch
//
// # Errors
//
// Content problems are reported as [*FormatError], [*ParseError] or
// [*OutlierError]. [IsClientError] tells them apart from infrastructure
// failures, and [MapError] assigns a support code to any error.
package core
