package sheetimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader reads a delimited UTF-8 payload into rows. Quotes are parsed
// leniently since spreadsheet exports often carry bare quotes in text.
type CSVReader struct {
	delimiter rune
}

// CSVOption is a functional option for CSVReader configuration
type CSVOption func(*CSVReader)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) CSVOption {
	return func(r *CSVReader) {
		r.delimiter = d
	}
}

// NewCSVReader creates a CSV reader with options applied
func NewCSVReader(opts ...CSVOption) *CSVReader {
	r := &CSVReader{delimiter: ','}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadRows parses payload, using its first record as the header row.
// Blank rows are skipped.
func (r *CSVReader) ReadRows(payload []byte) ([]*Row, error) {
	payload = bytes.TrimPrefix(payload, utf8BOM)
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(payload) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(bufio.NewReader(bytes.NewReader(payload)))
	reader.Comma = r.delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	record, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	headers, err := normalizeHeaders(record)
	if err != nil {
		return nil, err
	}

	rows := make([]*Row, 0)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", line, err)
		}
		row := newRow(line, headers, record)
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}
