package reliability

import (
	"math"
	"testing"

	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(failure string, hours float64) models.DowntimeEvent {
	return models.DowntimeEvent{FailureType: failure, DownTime: models.KnownHours(hours)}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		snapshot     models.WeeklySnapshot
		want         models.MetricsRow
		availability float64
	}{
		{
			name: "single kit-joint event",
			snapshot: models.WeeklySnapshot{
				Week:     12,
				OpenTime: 100,
				Events:   []models.DowntimeEvent{event("KIT-JOINT", 0.25)},
			},
			want: models.MetricsRow{
				Period:           "Week 12",
				OpenTime:         100,
				TotalDownTime:    0.25,
				EventCount:       1,
				MTBF:             99.75,
				MTTR:             0.25,
				AvailabilityPct:  99.75,
				DowntimeRatioPct: 0.25,
			},
		},
		{
			name:     "no events",
			snapshot: models.WeeklySnapshot{Week: 3, OpenTime: 100},
			want: models.MetricsRow{
				Period:          "Week 3",
				OpenTime:        100,
				AvailabilityPct: 100,
			},
		},
		{
			name: "zero open time",
			snapshot: models.WeeklySnapshot{
				Week:   4,
				Events: []models.DowntimeEvent{event("A", 2)},
			},
			want: models.MetricsRow{
				Period:        "Week 4",
				TotalDownTime: 2,
				EventCount:    1,
				MTBF:          -2,
				MTTR:          2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.snapshot)

			assert.Equal(t, tt.want.Period, got.Period)
			assert.Equal(t, tt.want.EventCount, got.EventCount)
			assert.InDelta(t, tt.want.TotalDownTime, got.TotalDownTime, 1e-9)
			assert.InDelta(t, tt.want.MTBF, got.MTBF, 1e-9)
			assert.InDelta(t, tt.want.MTTR, got.MTTR, 1e-9)
			assert.InDelta(t, tt.want.AvailabilityPct, got.AvailabilityPct, 1e-9)
			assert.InDelta(t, tt.want.DowntimeRatioPct, got.DowntimeRatioPct, 1e-9)
		})
	}
}

func TestComputeNeverReturnsNaN(t *testing.T) {
	row := Compute(models.WeeklySnapshot{})

	for _, v := range []float64{row.MTBF, row.MTTR, row.AvailabilityPct, row.DowntimeRatioPct} {
		assert.False(t, math.IsNaN(v))
		assert.Zero(t, v)
	}
}

func TestComputeExcludesMissingDownTime(t *testing.T) {
	s := models.WeeklySnapshot{
		Week:     1,
		OpenTime: 10,
		Events: []models.DowntimeEvent{
			event("A", 1),
			{FailureType: "B", DownTime: models.MissingHours},
			{FailureType: "C", DownTime: models.Hours{Value: math.NaN(), Valid: true}},
		},
	}

	row := Compute(s)
	assert.Equal(t, 1, row.EventCount)
	assert.InDelta(t, 1.0, row.TotalDownTime, 1e-9)
	assert.InDelta(t, 9.0, row.MTBF, 1e-9)
}

func TestComputeMonthlyAggregate(t *testing.T) {
	agg := models.MonthlyAggregate{
		Month:    "2025-03",
		OpenTime: 200,
		Events:   []models.DowntimeEvent{event("A", 1), event("B", 3)},
	}

	rows := ComputeAll([]models.MonthlyAggregate{agg})
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-03", rows[0].Period)
	assert.InDelta(t, 98.0, rows[0].MTBF, 1e-9)
	assert.InDelta(t, 2.0, rows[0].MTTR, 1e-9)
	assert.InDelta(t, 98.0, rows[0].AvailabilityPct, 1e-9)
}
