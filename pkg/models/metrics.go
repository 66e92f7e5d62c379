/*-
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


// Package models pkg/models/metrics.go
package models

// MetricsRow holds the reliability indicators of one period.
type MetricsRow struct {
	Period           string  `json:"period"`
	OpenTime         float64 `json:"nominal_open_time_hours"`
	TotalDownTime    float64 `json:"total_down_time"`
	EventCount       int     `json:"event_count"`
	MTBF             float64 `json:"mtbf"`
	MTTR             float64 `json:"mttr"`
	AvailabilityPct  float64 `json:"availability_pct"`
	DowntimeRatioPct float64 `json:"downtime_ratio_pct"`
}

// RankedGroup is one bar of a Pareto chart.
type RankedGroup struct {
	Group         string  `json:"group"`
	Value         float64 `json:"value"`
	Count         int     `json:"count"`
	Share         float64 `json:"share_pct"`
	CumulativePct float64 `json:"cumulative_pct"`
}

// StopBreakdown splits downtime into micro-stops, macro-stops and delay.
type StopBreakdown struct {
	MicroStopHours float64 `json:"micro_stop_hours"`
	MicroStopCount int     `json:"micro_stop_count"`
	MacroStopHours float64 `json:"macro_stop_hours"`
	MacroStopCount int     `json:"macro_stop_count"`
	DelayHours     float64 `json:"delay_hours"`
}

// MachineIndicator aggregates one machine's downtime.
type MachineIndicator struct {
	Machine          string  `json:"machine"`
	DownTime         float64 `json:"down_time_hours"`
	Count            int     `json:"count"`
	DelayTime        float64 `json:"delay_time_hours"`
	InterventionTime float64 `json:"intervention_time_hours"`
}

// PeriodTop lists the dominant failure types of one period.
type PeriodTop struct {
	Period string        `json:"period"`
	Top    []RankedGroup `json:"top"`
}

// Objectives are the operator targets the indicators are judged against.
type Objectives struct {
	MTBFHours       float64 `json:"mtbf_hours"`
	MTTRHours       float64 `json:"mttr_hours"`
	AvailabilityPct float64 `json:"availability_pct"`
	WarningBandPct  float64 `json:"warning_band_pct"`
}

type Band string

const (
	BandOK       Band = "ok"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// ObjectiveStatus is the evaluation of a MetricsRow against Objectives.
type ObjectiveStatus struct {
	MTBFMet      bool `json:"mtbf_met"`
	MTTRMet      bool `json:"mttr_met"`
	Availability Band `json:"availability"`
}

// ComponentPareto ranks the sub-defects of one tracked component.
type ComponentPareto struct {
	Component string        `json:"component"`
	Groups    []RankedGroup `json:"groups"`
}
