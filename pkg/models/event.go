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

// Package models pkg/models/event.go
package models

import (
	"encoding/json"
	"math"
	"strings"
)

// Hours is a duration in decimal hours that may be missing. A missing value is
// never treated as zero by aggregations.
type Hours struct {
	Value float64
	Valid bool
}

// KnownHours returns a present Hours value.
func KnownHours(v float64) Hours {
	return Hours{Value: v, Valid: true}
}

// MissingHours is the explicit missing marker.
var MissingHours = Hours{}

func (h Hours) MarshalJSON() ([]byte, error) {
	if !h.Valid || math.IsNaN(h.Value) || math.IsInf(h.Value, 0) {
		return []byte("null"), nil
	}

	return json.Marshal(h.Value)
}

func (h *Hours) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*h = MissingHours

		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*h = KnownHours(v)

	return nil
}

// DowntimeEvent is one row of a canonical record-set.
type DowntimeEvent struct {
	FailureType string `json:"failure_type"`
	Machine     string `json:"machine,omitempty"`
	DownTime    Hours  `json:"down_time_hours"`
	DelayTime   Hours  `json:"delay_time_hours"`
	SubDefect   string `json:"sub_defect_description,omitempty"`
	Week        int    `json:"week"`
	Month       string `json:"month"`
}

// InterventionTime is down time minus delay time, missing unless both are present.
func (e *DowntimeEvent) InterventionTime() Hours {
	if !e.DownTime.Valid || !e.DelayTime.Valid {
		return MissingHours
	}

	return KnownHours(e.DownTime.Value - e.DelayTime.Value)
}

// FailureKey is the comparison form of the failure type.
func (e *DowntimeEvent) FailureKey() string {
	return NormalizeKey(e.FailureType)
}

// NormalizeKey trims and upper-cases a label for case/whitespace-insensitive comparison.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (e DowntimeEvent) MarshalJSON() ([]byte, error) {
	type alias DowntimeEvent

	return json.Marshal(&struct {
		alias
		InterventionTime Hours `json:"intervention_time_hours"`
	}{
		alias:            alias(e),
		InterventionTime: e.InterventionTime(),
	})
}
