// Package ingest pkg/ingest/errors.go
package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredColumn is fatal for the file being normalized.
	ErrMissingRequiredColumn = errors.New("missing required column")
	ErrUnsupportedFormat     = errors.New("unsupported file format")
	ErrInvalidWeek           = errors.New("week must be between 1 and 52")
	ErrInvalidOpenTime       = errors.New("open time must be positive")

	errHeaderRowOutOfRange = errors.New("header row out of range")
	errNoSheet             = errors.New("workbook has no sheet")
	errColumnRange         = errors.New("invalid column range")
)

// MissingColumnError names the canonical column that could not be resolved.
type MissingColumnError struct {
	Column Field
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredColumn, e.Column.DisplayName())
}

func (*MissingColumnError) Unwrap() error {
	return ErrMissingRequiredColumn
}

// WarningCode classifies a non-fatal normalization condition.
type WarningCode string

const (
	// WarnTimeParseFallback means some time values were not HH:MM:SS and were
	// coerced to plain numbers; values that failed coercion became missing.
	WarnTimeParseFallback WarningCode = "time_parse_fallback"
	// WarnEmptyAfterFiltering means no event survived; the result is empty but valid.
	WarnEmptyAfterFiltering WarningCode = "empty_after_filtering"
)

// Warning is a recoverable condition the caller should surface to the user.
type Warning struct {
	Code    WarningCode `json:"code"`
	Column  string      `json:"column,omitempty"`
	Count   int         `json:"count,omitempty"`
	Example string      `json:"example,omitempty"`
}

func (w Warning) String() string {
	switch w.Code {
	case WarnTimeParseFallback:
		return fmt.Sprintf("non-standard time format in %q (%d values, e.g. %q): raw numeric values used", w.Column, w.Count, w.Example)
	case WarnEmptyAfterFiltering:
		return "no downtime event left after filtering"
	default:
		return string(w.Code)
	}
}
