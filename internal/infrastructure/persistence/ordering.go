package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// SortableColumns whitelists the columns a list query may order by
type SortableColumns struct {
	allowed  map[string]struct{}
	fallback string
}

// NewSortableColumns builds a whitelist. fallback is used for empty or unknown input and must be one of columns.
func NewSortableColumns(fallback string, columns ...string) SortableColumns {
	allowed := make(map[string]struct{}, len(columns)+1)
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	allowed[fallback] = struct{}{}
	return SortableColumns{allowed: allowed, fallback: fallback}
}

// Column returns requested when whitelisted, otherwise the fallback
func (s SortableColumns) Column(requested string) string {
	requested = strings.TrimSpace(requested)
	if _, ok := s.allowed[requested]; ok {
		return requested
	}
	return s.fallback
}

// OrderBy builds a quoted ORDER BY column. Anything but "asc" sorts descending.
func (s SortableColumns) OrderBy(requested, direction string) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Name: s.Column(requested)},
		Desc:   !strings.EqualFold(strings.TrimSpace(direction), "asc"),
	}
}
