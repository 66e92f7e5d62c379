// Package period groups weekly snapshots into coarser periods.
package period

import (
	"time"
)

const weeksPerApproxMonth = 4

// ApproxMonthBucket maps a week number to a "month" key using the legacy
// four-weeks-per-month approximation: the Monday of week `week` (weeks counted
// from the first Monday of `year`) shifted by floor((week-1)/4) weeks. It is not a
// calendar lookup and late weeks spill into the following year.
func ApproxMonthBucket(year, week int) string {
	return approxMonthStart(year, week).Format("2006-01")
}

func approxMonthStart(year, week int) time.Time {
	start := WeekStart(year, week)

	return start.AddDate(0, 0, 7*((week-1)/weeksPerApproxMonth))
}

// WeekStart returns the Monday of the given week, where week 1 is the week of the
// first Monday of the year and week 0 the days before it.
func WeekStart(year, week int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	// Days from Jan 1 to the first Monday.
	mondayOffset := (7 - mondayIndex(jan1.Weekday())) % 7

	if week == 0 {
		return jan1.AddDate(0, 0, mondayOffset-7)
	}

	return jan1.AddDate(0, 0, mondayOffset+7*(week-1))
}

// mondayIndex numbers weekdays from Monday = 0.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
