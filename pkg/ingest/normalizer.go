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

// Package ingest turns raw weekly downtime extracts into canonical events.
package ingest

import (
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/carverauto/downtimeradar/pkg/period"
)

const (
	minWeek = 1
	maxWeek = 52

	notApplicable = "N/A"
)

// DefaultExcludedFailureTypes are planned activities that are not failures.
var DefaultExcludedFailureTypes = []string{"DEMARRAGE PARC", "PREVENTIVE MAINTENANCE"}

// Options configures a Normalizer.
type Options struct {
	// ExcludedFailureTypes are matched case-insensitively after trimming.
	ExcludedFailureTypes []string
	// Strict also drops blank and "N/A" failure types before the trailing row
	// is discarded.
	Strict  bool
	Aliases ColumnAliases
	// Year anchors the week to month bucket. Zero means the current year.
	Year int
}

// DefaultOptions are the settings used by the plant's weekly import.
func DefaultOptions() Options {
	return Options{
		ExcludedFailureTypes: DefaultExcludedFailureTypes,
		Strict:               true,
		Aliases:              DefaultAliases(),
	}
}

// Result is the outcome of normalizing one extract.
type Result struct {
	Events          []models.DowntimeEvent `json:"events"`
	Warnings        []Warning              `json:"warnings,omitempty"`
	DroppedExcluded int                    `json:"dropped_excluded"`
	DroppedMissing  int                    `json:"dropped_missing"`
	Month           string                 `json:"month"`
}

// Normalizer applies the cleaning pipeline to a RawTable.
type Normalizer struct {
	excluded map[string]struct{}
	strict   bool
	aliases  ColumnAliases
	year     int
	now      func() time.Time
}

// NewNormalizer builds a Normalizer. DefaultExcludedFailureTypes are always
// excluded; opts.ExcludedFailureTypes adds to them.
func NewNormalizer(opts Options) *Normalizer {
	n := &Normalizer{
		excluded: make(map[string]struct{}, len(DefaultExcludedFailureTypes)+len(opts.ExcludedFailureTypes)),
		strict:   opts.Strict,
		aliases:  DefaultAliases().Merge(opts.Aliases),
		year:     opts.Year,
		now:      time.Now,
	}

	for _, ft := range DefaultExcludedFailureTypes {
		n.excluded[models.NormalizeKey(ft)] = struct{}{}
	}

	for _, ft := range opts.ExcludedFailureTypes {
		n.excluded[models.NormalizeKey(ft)] = struct{}{}
	}

	return n
}

// Normalize cleans one weekly extract. Missing required columns are fatal;
// everything else is reported as a warning or silently dropped.
func (n *Normalizer) Normalize(table *RawTable, week int, openTime float64) (*Result, error) {
	if week < minWeek || week > maxWeek {
		return nil, ErrInvalidWeek
	}

	if openTime <= 0 || math.IsNaN(openTime) || math.IsInf(openTime, 0) {
		return nil, ErrInvalidOpenTime
	}

	table = table.Compact()
	cols := n.aliases.Resolve(table.Header)

	for _, f := range requiredFields {
		if !cols.has(f) {
			return nil, &MissingColumnError{Column: f}
		}
	}

	res := &Result{Month: period.ApproxMonthBucket(n.yearFor(), week)}

	rows := make([][]string, 0, len(table.Rows))

	for _, row := range table.Rows {
		raw := cols.value(row, FieldFailureType)
		key := models.NormalizeKey(raw)

		if _, skip := n.excluded[key]; skip {
			res.DroppedExcluded++

			continue
		}

		// Empty cells stay: the totals row has no failure type and must reach the trailing drop.
		if n.strict && ((raw != "" && key == "") || key == notApplicable) {
			res.DroppedExcluded++

			continue
		}

		rows = append(rows, row)
	}

	// The extract always ends with a totals row.
	if len(rows) > 0 {
		rows = rows[:len(rows)-1]
	}

	down := &timeColumn{name: table.Header[cols[FieldDownTime]]}
	delay := &timeColumn{}

	if cols.has(FieldDelayTime) {
		delay.name = table.Header[cols[FieldDelayTime]]
	}

	res.Events = make([]models.DowntimeEvent, 0, len(rows))

	for _, row := range rows {
		ev := models.DowntimeEvent{
			FailureType: strings.TrimSpace(cols.value(row, FieldFailureType)),
			Machine:     strings.TrimSpace(cols.value(row, FieldMachine)),
			DownTime:    down.parse(cols.value(row, FieldDownTime)),
			SubDefect:   strings.TrimSpace(cols.value(row, FieldSubDefect)),
			Week:        week,
			Month:       res.Month,
		}

		if cols.has(FieldDelayTime) {
			ev.DelayTime = delay.parse(cols.value(row, FieldDelayTime))
		}

		if ev.FailureType == "" || !ev.DownTime.Valid {
			res.DroppedMissing++

			continue
		}

		res.Events = append(res.Events, ev)
	}

	for _, c := range []*timeColumn{down, delay} {
		if w, ok := c.warning(); ok {
			log.WithFields(log.Fields{"column": w.Column, "count": w.Count}).
				Warn("time values not in HH:MM:SS, numeric fallback used")

			res.Warnings = append(res.Warnings, w)
		}
	}

	if len(res.Events) == 0 {
		res.Warnings = append(res.Warnings, Warning{Code: WarnEmptyAfterFiltering})
	}

	log.WithFields(log.Fields{
		"week":             week,
		"events":           len(res.Events),
		"dropped_excluded": res.DroppedExcluded,
		"dropped_missing":  res.DroppedMissing,
	}).Debug("normalized weekly extract")

	return res, nil
}

func (n *Normalizer) yearFor() int {
	if n.year > 0 {
		return n.year
	}

	return n.now().Year()
}
