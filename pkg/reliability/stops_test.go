package reliability

import (
	"testing"

	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStops(t *testing.T) {
	events := []models.DowntimeEvent{
		{FailureType: "A", DownTime: models.KnownHours(0.1), DelayTime: models.KnownHours(0.05)},
		{FailureType: "A", DownTime: models.KnownHours(10.0 / 60.0)},
		{FailureType: "B", DownTime: models.KnownHours(2), DelayTime: models.KnownHours(0.5)},
		{FailureType: "C", DownTime: models.MissingHours, DelayTime: models.KnownHours(1)},
	}

	got := SplitStops(events)
	assert.Equal(t, 1, got.MicroStopCount)
	assert.InDelta(t, 0.1, got.MicroStopHours, 1e-9)
	assert.Equal(t, 2, got.MacroStopCount, "ten minutes exactly is a macro-stop")
	assert.InDelta(t, 2+10.0/60.0, got.MacroStopHours, 1e-9)
	assert.InDelta(t, 1.55, got.DelayHours, 1e-9)
}

func TestMachineIndicators(t *testing.T) {
	events := []models.DowntimeEvent{
		{Machine: "KOMAX 1", DownTime: models.KnownHours(1), DelayTime: models.KnownHours(0.25)},
		{Machine: "KOMAX 2", DownTime: models.KnownHours(3)},
		{Machine: "KOMAX 1", DownTime: models.KnownHours(1.5), DelayTime: models.KnownHours(0.5)},
		{Machine: "PRESS", DownTime: models.KnownHours(10)},
	}

	got := MachineIndicators(events, "komax")
	require.Len(t, got, 2)

	assert.Equal(t, "KOMAX 2", got[0].Machine)
	assert.Equal(t, "KOMAX 1", got[1].Machine)
	assert.Equal(t, 2, got[1].Count)
	assert.InDelta(t, 2.5, got[1].DownTime, 1e-9)
	assert.InDelta(t, 0.75, got[1].DelayTime, 1e-9)
	assert.InDelta(t, 1.75, got[1].InterventionTime, 1e-9)

	assert.Len(t, MachineIndicators(events, ""), 3)
}

func TestEvaluate(t *testing.T) {
	obj := DefaultObjectives

	tests := []struct {
		name string
		row  models.MetricsRow
		want models.ObjectiveStatus
	}{
		{"all met", models.MetricsRow{MTBF: 9, MTTR: 0.05, AvailabilityPct: 99}, models.ObjectiveStatus{MTBFMet: true, MTTRMet: true, Availability: models.BandOK}},
		{"warning band", models.MetricsRow{MTBF: 8, MTTR: 0.1, AvailabilityPct: 94}, models.ObjectiveStatus{Availability: models.BandWarning}},
		{"critical", models.MetricsRow{MTBF: 8.5, MTTR: 0.08, AvailabilityPct: 92.9}, models.ObjectiveStatus{MTBFMet: true, MTTRMet: true, Availability: models.BandCritical}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(&tt.row, obj))
		})
	}
}

func TestRollingAvailability(t *testing.T) {
	rows := []models.MetricsRow{
		{AvailabilityPct: 99}, {AvailabilityPct: 97}, {AvailabilityPct: 95}, {AvailabilityPct: 93}, {AvailabilityPct: 10},
	}

	assert.InDelta(t, 96.0, RollingAvailability(rows, 4), 1e-9)
	assert.InDelta(t, 98.0, RollingAvailability(rows[:2], 4), 1e-9)
	assert.Zero(t, RollingAvailability(nil, 4))
}

func TestMachineIndicatorsMergesSpellings(t *testing.T) {
	events := []models.DowntimeEvent{
		{Machine: "KOMAX 7", DownTime: models.KnownHours(1)},
		{Machine: "komax 7 ", DownTime: models.KnownHours(0.5), DelayTime: models.KnownHours(0.25)},
		{Machine: "Komax 7", DownTime: models.KnownHours(0.25)},
	}

	got := MachineIndicators(events, "")
	require.Len(t, got, 1)

	assert.Equal(t, "KOMAX 7", got[0].Machine)
	assert.Equal(t, 3, got[0].Count)
	assert.InDelta(t, 1.75, got[0].DownTime, 1e-9)
	assert.InDelta(t, 0.25, got[0].DelayTime, 1e-9)
}
