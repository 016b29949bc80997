package sheetimport

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads the first worksheet of a workbook into rows
type XLSXReader struct{}

// NewXLSXReader creates an XLSX reader
func NewXLSXReader() *XLSXReader {
	return &XLSXReader{}
}

// ReadRows parses the first sheet, using its first row as the header row.
// Blank rows are skipped.
func (r *XLSXReader) ReadRows(payload []byte) ([]*Row, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyFile
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, ErrMissingHeader
	}

	headers, err := normalizeHeaders(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]*Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row := newRow(i+2, headers, record)
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}
