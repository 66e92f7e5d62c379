package period

import (
	"testing"

	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFor(week int, month string, openTime float64, failures ...string) models.WeeklySnapshot {
	s := models.WeeklySnapshot{Week: week, Month: month, OpenTime: openTime}

	for _, f := range failures {
		s.Events = append(s.Events, models.DowntimeEvent{
			FailureType: f,
			DownTime:    models.KnownHours(1),
			Week:        week,
			Month:       month,
		})
	}

	return s
}

func TestAggregateByMonth(t *testing.T) {
	snapshots := []models.WeeklySnapshot{
		snapshotFor(6, "2025-02", 100, "A"),
		snapshotFor(5, "2025-02", 120, "B", "C"),
		snapshotFor(4, "2025-01", 90, "D"),
	}

	months := AggregateByMonth(snapshots)
	require.Len(t, months, 2)

	feb := months["2025-02"]
	require.NotNil(t, feb)
	assert.InDelta(t, 220.0, feb.OpenTime, 1e-9)
	assert.Equal(t, []int{6, 5}, feb.Weeks)
	require.Len(t, feb.Events, 3)
	assert.Equal(t, "A", feb.Events[0].FailureType)
	assert.Equal(t, "C", feb.Events[2].FailureType)

	assert.Equal(t, []string{"2025-02", "2025-01"}, SortedMonthKeys(months))
}

func TestAggregateByMonthKeepsDuplicateWeeks(t *testing.T) {
	// The same extract saved as weeks 7 and 8 contributes twice.
	snapshots := []models.WeeklySnapshot{
		snapshotFor(8, "2025-02", 100, "A"),
		snapshotFor(7, "2025-02", 100, "A"),
	}

	feb := AggregateByMonth(snapshots)["2025-02"]
	require.NotNil(t, feb)
	assert.InDelta(t, 200.0, feb.OpenTime, 1e-9)
	assert.Len(t, feb.Events, 2)
}

func TestMonthKeyFallsBackToEvents(t *testing.T) {
	s := snapshotFor(3, "2025-01", 10, "A")
	s.Month = ""

	assert.Equal(t, "2025-01", MonthKey(&s))
	assert.Empty(t, MonthKey(&models.WeeklySnapshot{Week: 1}))
	assert.Empty(t, AggregateByMonth([]models.WeeklySnapshot{{Week: 1}}))
}
