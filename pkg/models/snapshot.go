package models

import (
	"fmt"
	"time"
)

// WeeklySnapshot is one week's cleaned record-set plus its declared open time.
type WeeklySnapshot struct {
	Week     int             `json:"week"`
	OpenTime float64         `json:"nominal_open_time_hours"`
	Month    string          `json:"month"`
	SavedAt  time.Time       `json:"saved_at"`
	Events   []DowntimeEvent `json:"events"`
}

func (s WeeklySnapshot) Label() string {
	return fmt.Sprintf("Week %d", s.Week)
}

func (s WeeklySnapshot) OpenTimeHours() float64 {
	return s.OpenTime
}

func (s WeeklySnapshot) DowntimeEvents() []DowntimeEvent {
	return s.Events
}

// Clone returns a deep copy so stores never share event slices with callers.
func (s WeeklySnapshot) Clone() *WeeklySnapshot {
	c := s
	c.Events = append([]DowntimeEvent(nil), s.Events...)

	return &c
}

// MonthlyAggregate groups weekly snapshots under one month key. It is derived on
// demand and never stored.
type MonthlyAggregate struct {
	Month    string          `json:"month"`
	OpenTime float64         `json:"nominal_open_time_hours"`
	Weeks    []int           `json:"weeks"`
	Events   []DowntimeEvent `json:"events"`
}

func (m MonthlyAggregate) Label() string {
	return m.Month
}

func (m MonthlyAggregate) OpenTimeHours() float64 {
	return m.OpenTime
}

func (m MonthlyAggregate) DowntimeEvents() []DowntimeEvent {
	return m.Events
}

// SkippedEntry records a persisted snapshot that could not be read back.
type SkippedEntry struct {
	Name   string `json:"name"`
	Week   int    `json:"week,omitempty"`
	Reason string `json:"reason"`
}

// SnapshotSet is the result of a bounded load: snapshots ordered by week
// descending plus any entries skipped on the way.
type SnapshotSet struct {
	Snapshots []WeeklySnapshot `json:"snapshots"`
	Skipped   []SkippedEntry   `json:"skipped,omitempty"`
}

// SnapshotSummary is the listing form of a snapshot, without its events.
type SnapshotSummary struct {
	Week       int       `json:"week"`
	Month      string    `json:"month"`
	OpenTime   float64   `json:"nominal_open_time_hours"`
	EventCount int       `json:"event_count"`
	SavedAt    time.Time `json:"saved_at"`
}

func (s WeeklySnapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		Week:       s.Week,
		Month:      s.Month,
		OpenTime:   s.OpenTime,
		EventCount: len(s.Events),
		SavedAt:    s.SavedAt,
	}
}

type ChangeKind string

const (
	ChangeSnapshotSaved ChangeKind = "snapshot_saved"
	ChangeStoreReset    ChangeKind = "store_reset"
)

// ChangeEvent is published whenever the snapshot store is modified.
type ChangeEvent struct {
	Kind      ChangeKind `json:"kind"`
	Week      int        `json:"week,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
