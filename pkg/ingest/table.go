package ingest

import (
	"strings"
)

// RawTable is a tabular extract before normalization. Every row has exactly
// len(Header) cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// NewRawTable pads or truncates rows to the header width.
func NewRawTable(header []string, rows [][]string) *RawTable {
	t := &RawTable{Header: header, Rows: make([][]string, 0, len(rows))}

	for _, r := range rows {
		row := make([]string, len(header))
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}

	return t
}

// Compact drops columns whose cells are all blank, then rows whose cells are
// all blank. Headers do not count as values.
func (t *RawTable) Compact() *RawTable {
	keep := make([]int, 0, len(t.Header))

	for c := range t.Header {
		for _, row := range t.Rows {
			if c < len(row) && !isBlank(row[c]) {
				keep = append(keep, c)

				break
			}
		}
	}

	out := &RawTable{Header: make([]string, len(keep))}
	for i, c := range keep {
		out.Header[i] = t.Header[c]
	}

	for _, row := range t.Rows {
		r := make([]string, len(keep))
		empty := true

		for i, c := range keep {
			if c >= len(row) {
				continue
			}

			r[i] = row[c]
			if !isBlank(r[i]) {
				empty = false
			}
		}

		if !empty {
			out.Rows = append(out.Rows, r)
		}
	}

	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
