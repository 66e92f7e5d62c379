/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TableOptions locate the data block inside an extract.
type TableOptions struct {
	// HeaderRow is the zero-based index of the header row.
	HeaderRow int
	// FirstColumn and LastColumn bound the data block, as spreadsheet letters.
	FirstColumn string
	LastColumn  string
	// Sheet defaults to the first sheet of the workbook.
	Sheet string
}

// DefaultTableOptions match the plant export: headers on the tenth row, data
// in columns B to X.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		HeaderRow:   9,
		FirstColumn: "B",
		LastColumn:  "X",
	}
}

// ReadTable picks a reader from the file extension.
func ReadTable(name string, r io.Reader, opts TableOptions) (*RawTable, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, opts)
	case ".csv":
		return ReadCSV(r, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadXLSX reads the data block of an Excel workbook.
func ReadXLSX(r io.Reader, opts TableOptions) (*RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	defer func() { _ = f.Close() }()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errNoSheet
		}

		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return sliceTable(rows, opts)
}

// ReadCSV reads a comma separated export laid out like the workbook.
func ReadCSV(r io.Reader, opts TableOptions) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	return sliceTable(rows, opts)
}

func sliceTable(rows [][]string, opts TableOptions) (*RawTable, error) {
	if opts.HeaderRow < 0 || opts.HeaderRow >= len(rows) {
		return nil, fmt.Errorf("%w: row %d of %d", errHeaderRowOutOfRange, opts.HeaderRow+1, len(rows))
	}

	first, last, err := ParseColumnRange(opts.FirstColumn, opts.LastColumn)
	if err != nil {
		return nil, err
	}

	header := cut(rows[opts.HeaderRow], first, last)
	body := make([][]string, 0, len(rows)-opts.HeaderRow-1)

	for _, row := range rows[opts.HeaderRow+1:] {
		body = append(body, cut(row, first, last))
	}

	return NewRawTable(header, body), nil
}

// ParseColumnRange converts spreadsheet letters to zero-based inclusive
// bounds. An empty first column means A and an empty last column means no limit.
func ParseColumnRange(firstName, lastName string) (first, last int, err error) {
	if firstName == "" {
		firstName = "A"
	}

	first, err = excelize.ColumnNameToNumber(firstName)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", errColumnRange, err)
	}

	if lastName == "" {
		last = excelize.MaxColumns
	} else if last, err = excelize.ColumnNameToNumber(lastName); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", errColumnRange, err)
	}

	if last < first {
		return 0, 0, fmt.Errorf("%w: %s after %s", errColumnRange, firstName, lastName)
	}

	return first - 1, last - 1, nil
}

func cut(row []string, first, last int) []string {
	width := last - first + 1
	if width > len(row)-first {
		width = len(row) - first
	}

	if width <= 0 {
		return nil
	}

	out := make([]string, width)
	copy(out, row[first:first+width])

	return out
}

// IsInputError reports whether err is caused by the uploaded content rather
// than by the server.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingRequiredColumn) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrInvalidWeek) ||
		errors.Is(err, ErrInvalidOpenTime) ||
		errors.Is(err, errHeaderRowOutOfRange) ||
		errors.Is(err, errNoSheet) ||
		errors.Is(err, errColumnRange)
}
