package sheetimport

import (
	"errors"
)

// Common decode errors
var (
	// ErrEmptyFile is returned when the payload has no bytes
	ErrEmptyFile = errors.New("file is empty")

	// ErrInvalidEncoding is returned when a CSV payload is not UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when the first row has no column names
	ErrMissingHeader = errors.New("file missing header row")

	// ErrNoDataRows is returned when only a header (or nothing) is present
	ErrNoDataRows = errors.New("file contains no data rows")

	// ErrNoSheets is returned when a workbook has no worksheets
	ErrNoSheets = errors.New("workbook contains no sheets")
)
