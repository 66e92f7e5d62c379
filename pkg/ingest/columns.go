package ingest

import (
	"strings"
)

// Field is a canonical column of the downtime extract.
type Field string

const (
	FieldFailureType Field = "failure_type"
	FieldDownTime    Field = "down_time"
	FieldDelayTime   Field = "delay_time"
	FieldMachine     Field = "machine"
	FieldSubDefect   Field = "sub_defect"
)

var fieldDisplayNames = map[Field]string{
	FieldFailureType: "Type Of Failure",
	FieldDownTime:    "Down Time",
	FieldDelayTime:   "Delay Time",
	FieldMachine:     "Machine",
	FieldSubDefect:   "Microstop Description",
}

// DisplayName is the header the source spreadsheets use for the field.
func (f Field) DisplayName() string {
	if name, ok := fieldDisplayNames[f]; ok {
		return name
	}

	return string(f)
}

var requiredFields = []Field{FieldFailureType, FieldDownTime}

var resolveOrder = []Field{FieldFailureType, FieldDownTime, FieldDelayTime, FieldMachine, FieldSubDefect}

// ColumnAlias lists the header spellings accepted for a field. Exact names are
// tried before substrings, and a column is never bound to two fields.
type ColumnAlias struct {
	Exact     []string `json:"exact"`
	Substring []string `json:"substring,omitempty"`
}

// ColumnAliases maps canonical fields to accepted header names.
type ColumnAliases map[Field]ColumnAlias

// DefaultAliases match the maintenance extracts in use today, including the
// French headings seen on older sheets.
func DefaultAliases() ColumnAliases {
	return ColumnAliases{
		FieldFailureType: {
			Exact:     []string{"type of failure", "failure type", "type de défaut", "type de defaut"},
			Substring: []string{"failure", "défaut", "defaut"},
		},
		FieldDownTime: {
			Exact:     []string{"down time", "downtime", "temps d'arrêt", "temps d'arret"},
			Substring: []string{"down time"},
		},
		FieldDelayTime: {
			Exact:     []string{"delay time", "temps de retard"},
			Substring: []string{"delay"},
		},
		FieldMachine: {
			Exact: []string{"machine", "equipment", "équipement"},
		},
		FieldSubDefect: {
			Exact:     []string{"microstop description", "micro stop description"},
			Substring: []string{"microstop"},
		},
	}
}

// Merge overlays the given aliases on a copy of a.
func (a ColumnAliases) Merge(overrides ColumnAliases) ColumnAliases {
	out := make(ColumnAliases, len(a)+len(overrides))
	for f, alias := range a {
		out[f] = alias
	}

	for f, alias := range overrides {
		out[f] = alias
	}

	return out
}

// ColumnMap is the resolved position of each canonical field in a table; -1
// marks a field the table does not have.
type ColumnMap map[Field]int

func (m ColumnMap) has(f Field) bool {
	idx, ok := m[f]

	return ok && idx >= 0
}

func (m ColumnMap) value(row []string, f Field) string {
	idx, ok := m[f]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}

	return row[idx]
}

// Resolve binds each canonical field to a header column.
func (a ColumnAliases) Resolve(header []string) ColumnMap {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	m := make(ColumnMap, len(resolveOrder))
	used := make(map[int]bool)

	for _, f := range resolveOrder {
		m[f] = -1
		alias := a[f]

		if idx := findColumn(normalized, used, alias.Exact, func(h, name string) bool { return h == name }); idx >= 0 {
			m[f] = idx
			used[idx] = true

			continue
		}

		if idx := findColumn(normalized, used, alias.Substring, strings.Contains); idx >= 0 {
			m[f] = idx
			used[idx] = true
		}
	}

	return m
}

func findColumn(headers []string, used map[int]bool, names []string, match func(h, name string) bool) int {
	for _, name := range names {
		name = normalizeHeader(name)
		if name == "" {
			continue
		}

		for i, h := range headers {
			if !used[i] && h != "" && match(h, name) {
				return i
			}
		}
	}

	return -1
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
