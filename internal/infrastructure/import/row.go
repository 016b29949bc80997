package sheetimport

import (
	"strings"
)

// Row is one data row keyed by header name
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the trimmed value for a column by header name
func (r *Row) Get(header string) string {
	return strings.TrimSpace(r.Data[header])
}

// IsEmpty returns true if the row has no non-blank values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Group is the rows sharing one key value, in file order
type Group struct {
	Key  string
	Rows []*Row
}

// GroupByColumn groups rows by the trimmed value of column. Rows without a
// value are dropped. Groups keep first-seen key order.
func GroupByColumn(rows []*Row, column string) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, row := range rows {
		key := row.Get(column)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}

	return groups
}

// newRow maps a record onto headers; missing trailing cells become ""
func newRow(lineNumber int, headers []string, record []string) *Row {
	row := &Row{
		LineNumber: lineNumber,
		Data:       make(map[string]string, len(headers)),
	}
	for i, header := range headers {
		if header == "" {
			continue
		}
		if _, dup := row.Data[header]; dup {
			continue
		}
		if i < len(record) {
			row.Data[header] = strings.TrimSpace(record[i])
		} else {
			row.Data[header] = ""
		}
	}
	return row
}

func normalizeHeaders(record []string) ([]string, error) {
	headers := make([]string, len(record))
	named := 0
	for i, h := range record {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, ErrMissingHeader
	}
	return headers, nil
}
