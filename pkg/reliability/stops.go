package reliability

import (
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/carverauto/downtimeradar/pkg/models"
)

// MicroStopThreshold separates micro-stops from macro-stops: 10 minutes, in hours.
const MicroStopThreshold = 10.0 / 60.0

// IsMicroStop reports whether a down time is under the micro-stop threshold.
func IsMicroStop(hours float64) bool {
	return hours < MicroStopThreshold
}

// SplitStops sums down time into micro and macro stops and totals the delay
// before intervention.
func SplitStops(events []models.DowntimeEvent) models.StopBreakdown {
	var (
		b            models.StopBreakdown
		micro, macro stats.Float64Data
		delay        stats.Float64Data
	)

	for i := range events {
		e := &events[i]

		if isKnown(e.DelayTime) {
			delay = append(delay, e.DelayTime.Value)
		}

		if !isKnown(e.DownTime) {
			continue
		}

		if IsMicroStop(e.DownTime.Value) {
			micro = append(micro, e.DownTime.Value)
		} else {
			macro = append(macro, e.DownTime.Value)
		}
	}

	b.MicroStopHours, b.MicroStopCount = sum(micro), micro.Len()
	b.MacroStopHours, b.MacroStopCount = sum(macro), macro.Len()
	b.DelayHours = sum(delay)

	return b
}

// MachineIndicators aggregates downtime per machine for machines whose name
// contains family (case-insensitive; empty matches every named machine), ranked
// by down time descending. Names differing only in case or padding are one
// machine, shown with the first spelling seen.
func MachineIndicators(events []models.DowntimeEvent, family string) []models.MachineIndicator {
	index := make(map[string]int)

	var out []models.MachineIndicator

	for i := range events {
		e := &events[i]

		machine := strings.TrimSpace(e.Machine)
		if machine == "" || !isKnown(e.DownTime) {
			continue
		}

		if family != "" && !containsFold(machine, family) {
			continue
		}

		key := models.NormalizeKey(machine)

		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, models.MachineIndicator{Machine: machine})
		}

		m := &out[pos]
		m.DownTime += e.DownTime.Value
		m.Count++

		if isKnown(e.DelayTime) {
			m.DelayTime += e.DelayTime.Value
		}

		if it := e.InterventionTime(); isKnown(it) {
			m.InterventionTime += it.Value
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DownTime > out[j].DownTime
	})

	return out
}
