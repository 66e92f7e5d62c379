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

package reliability

import (
	"sort"
	"strings"

	"github.com/carverauto/downtimeradar/pkg/models"
)

// GroupKey selects the dimension events are grouped by.
type GroupKey string

const (
	ByFailureType GroupKey = "failure_type"
	ByMachine     GroupKey = "machine"
	BySubDefect   GroupKey = "sub_defect"
)

// Measure selects what is ranked.
type Measure string

const (
	MeasureDowntime Measure = "ta"
	MeasureCount    Measure = "nb"
)

// GroupOptions controls GroupAndRank.
type GroupOptions struct {
	Key     GroupKey
	Measure Measure
	// Limit keeps the first Limit groups after ranking; 0 keeps all.
	Limit int
	// MachineFilter keeps only machines whose name contains it (case-insensitive).
	MachineFilter string
	// FailureType restricts events to one failure type; required for BySubDefect.
	FailureType string
}

func (o *GroupOptions) label(e *models.DowntimeEvent) string {
	switch o.Key {
	case ByMachine:
		return strings.TrimSpace(e.Machine)
	case BySubDefect:
		return strings.TrimSpace(e.SubDefect)
	default:
		return strings.TrimSpace(e.FailureType)
	}
}

func (o *GroupOptions) matches(e *models.DowntimeEvent) bool {
	if o.MachineFilter != "" && !containsFold(e.Machine, o.MachineFilter) {
		return false
	}

	if o.FailureType != "" && e.FailureKey() != models.NormalizeKey(o.FailureType) {
		return false
	}

	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(strings.TrimSpace(substr)))
}

type bucket struct {
	label string
	hours float64
	count int
}

// GroupAndRank groups events, ranks the groups by the chosen measure and
// attaches the cumulative percentage curve of a Pareto chart.
//
// Groups are keyed case-insensitively and shown with their first-seen spelling.
// Groups whose measure is not positive are dropped before any percentage is
// taken. Ranking is a stable descending sort, so ties keep first-seen order, and
// Limit is applied only after ranking. CumulativePct is relative to the groups
// returned and therefore ends at 100; Share is relative to all ranked groups.
func GroupAndRank(events []models.DowntimeEvent, opts GroupOptions) []models.RankedGroup {
	index := make(map[string]int)

	var buckets []*bucket

	for i := range events {
		e := &events[i]
		if !isKnown(e.DownTime) || !opts.matches(e) {
			continue
		}

		label := opts.label(e)

		key := models.NormalizeKey(label)
		if key == "" {
			continue
		}

		pos, ok := index[key]
		if !ok {
			pos = len(buckets)
			index[key] = pos
			buckets = append(buckets, &bucket{label: label})
		}

		buckets[pos].hours += e.DownTime.Value
		buckets[pos].count++
	}

	groups := make([]models.RankedGroup, 0, len(buckets))

	var total float64

	for _, b := range buckets {
		value := b.hours
		if opts.Measure == MeasureCount {
			value = float64(b.count)
		}

		if value <= 0 {
			continue
		}

		total += value

		groups = append(groups, models.RankedGroup{
			Group: b.label,
			Value: value,
			Count: b.count,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Value > groups[j].Value
	})

	if opts.Limit > 0 && len(groups) > opts.Limit {
		groups = groups[:opts.Limit]
	}

	var retained float64
	for i := range groups {
		retained += groups[i].Value
	}

	var cumulative float64

	for i := range groups {
		cumulative += groups[i].Value

		if total > 0 {
			groups[i].Share = groups[i].Value / total * percent
		}

		if retained > 0 {
			groups[i].CumulativePct = cumulative / retained * percent
		}
	}

	return groups
}

// ComponentParetos ranks sub-defects within each tracked component. Components
// without any ranked sub-defect are omitted.
func ComponentParetos(events []models.DowntimeEvent, components []string, measure Measure) []models.ComponentPareto {
	var out []models.ComponentPareto

	for _, component := range components {
		groups := GroupAndRank(events, GroupOptions{
			Key:         BySubDefect,
			Measure:     measure,
			FailureType: component,
		})
		if len(groups) == 0 {
			continue
		}

		out = append(out, models.ComponentPareto{Component: component, Groups: groups})
	}

	return out
}

// TopByPeriod returns the n failure types with the most downtime in each period.
func TopByPeriod[P Period](periods []P, n int) []models.PeriodTop {
	out := make([]models.PeriodTop, 0, len(periods))

	for _, p := range periods {
		top := GroupAndRank(p.DowntimeEvents(), GroupOptions{
			Key:     ByFailureType,
			Measure: MeasureDowntime,
			Limit:   n,
		})
		if len(top) == 0 {
			continue
		}

		out = append(out, models.PeriodTop{Period: p.Label(), Top: top})
	}

	return out
}
