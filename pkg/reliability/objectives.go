package reliability

import (
	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/montanaflynn/stats"
)

// DefaultObjectives are the targets the maintenance team reports against.
var DefaultObjectives = models.Objectives{
	MTBFHours:       8.5,
	MTTRHours:       0.08,
	AvailabilityPct: 98,
	WarningBandPct:  5,
}

// Evaluate judges a row against the objectives. MTBF is met at or above its
// target, MTTR at or below. Availability is ok at or above target, warning within
// the band below it and critical further down.
func Evaluate(row *models.MetricsRow, obj models.Objectives) models.ObjectiveStatus {
	status := models.ObjectiveStatus{
		MTBFMet: row.MTBF >= obj.MTBFHours,
		MTTRMet: row.MTTR <= obj.MTTRHours,
	}

	switch {
	case row.AvailabilityPct >= obj.AvailabilityPct:
		status.Availability = models.BandOK
	case row.AvailabilityPct >= obj.AvailabilityPct-obj.WarningBandPct:
		status.Availability = models.BandWarning
	default:
		status.Availability = models.BandCritical
	}

	return status
}

// RollingAvailability averages the availability of the first window rows, which
// callers pass most recent first. A window of 0 averages every row.
func RollingAvailability(rows []models.MetricsRow, window int) float64 {
	if window > 0 && len(rows) > window {
		rows = rows[:window]
	}

	values := make(stats.Float64Data, 0, len(rows))
	for i := range rows {
		values = append(values, rows[i].AvailabilityPct)
	}

	return mean(values)
}
