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

package period

import (
	"sort"

	"github.com/carverauto/downtimeradar/pkg/models"
)

// AggregateByMonth folds weekly snapshots into monthly aggregates keyed by the
// month carried on each snapshot. Open times are summed and events concatenated
// in input order. Weeks are not deduplicated: a week saved under two numbers
// contributes twice.
func AggregateByMonth(snapshots []models.WeeklySnapshot) map[string]*models.MonthlyAggregate {
	months := make(map[string]*models.MonthlyAggregate)

	for i := range snapshots {
		s := &snapshots[i]

		key := MonthKey(s)
		if key == "" {
			continue
		}

		agg, ok := months[key]
		if !ok {
			agg = &models.MonthlyAggregate{Month: key}
			months[key] = agg
		}

		agg.OpenTime += s.OpenTime
		agg.Weeks = append(agg.Weeks, s.Week)
		agg.Events = append(agg.Events, s.Events...)
	}

	return months
}

// MonthKey returns the month a snapshot belongs to. Snapshots saved before the
// month was tracked on the snapshot fall back to the first event's month.
func MonthKey(s *models.WeeklySnapshot) string {
	if s.Month != "" {
		return s.Month
	}

	if len(s.Events) > 0 {
		return s.Events[0].Month
	}

	return ""
}

// SortedMonthKeys returns the keys of an aggregation, most recent month first.
func SortedMonthKeys(months map[string]*models.MonthlyAggregate) []string {
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	return keys
}
