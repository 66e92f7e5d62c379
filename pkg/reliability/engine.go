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

// Package reliability pkg/reliability/engine.go computes MTBF, MTTR, availability
// and the ranked breakdowns behind Pareto charts.
package reliability

import (
	"math"

	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/montanaflynn/stats"
)

const percent = 100

// Period is a snapshot or aggregate the engine can compute indicators for.
type Period interface {
	Label() string
	OpenTimeHours() float64
	DowntimeEvents() []models.DowntimeEvent
}

// Compute derives the reliability indicators of one period. Events whose down
// time is missing are left out of both TA and NB. Every ratio degrades to 0 when
// its denominator is zero.
func Compute(p Period) models.MetricsRow {
	openTime := p.OpenTimeHours()
	downTimes := knownDownTimes(p.DowntimeEvents())

	ta := sum(downTimes)
	nb := len(downTimes)

	row := models.MetricsRow{
		Period:        p.Label(),
		OpenTime:      openTime,
		TotalDownTime: ta,
		EventCount:    nb,
	}

	if nb > 0 {
		row.MTBF = (openTime - ta) / float64(nb)
		row.MTTR = ta / float64(nb)
	}

	if openTime > 0 {
		row.AvailabilityPct = (openTime - ta) / openTime * percent
		row.DowntimeRatioPct = ta / openTime * percent
	}

	return row
}

// ComputeAll computes one row per period, keeping the input order.
func ComputeAll[P Period](periods []P) []models.MetricsRow {
	rows := make([]models.MetricsRow, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, Compute(p))
	}

	return rows
}

func knownDownTimes(events []models.DowntimeEvent) stats.Float64Data {
	values := make(stats.Float64Data, 0, len(events))

	for i := range events {
		if isKnown(events[i].DownTime) {
			values = append(values, events[i].DownTime.Value)
		}
	}

	return values
}

func isKnown(h models.Hours) bool {
	return h.Valid && !math.IsNaN(h.Value) && !math.IsInf(h.Value, 0)
}

// sum returns 0 for empty input instead of the stats package's empty-input error.
func sum(values stats.Float64Data) float64 {
	if len(values) == 0 {
		return 0
	}

	total, err := stats.Sum(values)
	if err != nil {
		return 0
	}

	return total
}

func mean(values stats.Float64Data) float64 {
	if len(values) == 0 {
		return 0
	}

	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}

	return m
}
