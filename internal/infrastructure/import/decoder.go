// Package sheetimport decodes uploaded spreadsheets into header-keyed rows.
package sheetimport

import (
	"bytes"

	"github.com/catalogsync/backend/internal/domain/bulk"
)

// zipMagic starts every XLSX (OOXML) payload
var zipMagic = []byte("PK\x03\x04")

// Decoder turns a raw upload into rows. XLSX payloads are read from their
// first sheet; anything else is read as CSV.
type Decoder struct {
	xlsx *XLSXReader
	csv  *CSVReader
}

// NewDecoder creates a decoder; CSV options apply to non-XLSX payloads
func NewDecoder(opts ...CSVOption) *Decoder {
	return &Decoder{
		xlsx: NewXLSXReader(),
		csv:  NewCSVReader(opts...),
	}
}

// IsXLSX reports whether payload looks like an OOXML workbook
func IsXLSX(payload []byte) bool {
	return bytes.HasPrefix(payload, zipMagic)
}

// Decode returns every non-blank data row. Any failure, including a file
// with no data rows, is a *bulk.DecodeError.
func (d *Decoder) Decode(payload []byte) ([]*Row, error) {
	var (
		rows []*Row
		err  error
	)
	if IsXLSX(payload) {
		rows, err = d.xlsx.ReadRows(payload)
	} else {
		rows, err = d.csv.ReadRows(payload)
	}
	if err != nil {
		return nil, &bulk.DecodeError{Reason: "unreadable spreadsheet", Err: err}
	}
	if len(rows) == 0 {
		return nil, &bulk.DecodeError{Reason: "no data rows", Err: ErrNoDataRows}
	}
	return rows, nil
}
