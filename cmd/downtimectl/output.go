package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/carverauto/downtimeradar/pkg/core"
	"github.com/carverauto/downtimeradar/pkg/models"
)

// printer renders results as aligned columns.
type printer struct {
	tw *tabwriter.Writer
}

func (a *app) render(w io.Writer, v interface{}, table func(*printer)) error {
	if a.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	}

	p := &printer{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	table(p)

	return p.tw.Flush()
}

func (p *printer) row(cells ...interface{}) {
	parts := make([]string, len(cells))

	for i, c := range cells {
		switch v := c.(type) {
		case float64:
			parts[i] = fmt.Sprintf("%.2f", v)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}

	fmt.Fprintln(p.tw, strings.Join(parts, "\t"))
}

func (p *printer) ingestReport(rep *core.IngestReport) {
	p.row("WEEK", "MONTH", "SAVED", "EVENTS", "EXCLUDED", "INCOMPLETE")
	p.row(rep.Week, rep.Month, rep.Saved, rep.EventCount, rep.DroppedExcluded, rep.DroppedMissing)

	if rep.Metrics != nil {
		p.row("")
		p.metricsHeader()
		p.metricsRow(rep.Metrics)
	}

	for _, w := range rep.Warnings {
		p.row("")
		p.row("warning:", w.String())
	}
}

func (p *printer) snapshotSet(set *models.SnapshotSet) {
	p.row("WEEK", "MONTH", "OPEN TIME (H)", "EVENTS", "SAVED AT")

	for i := range set.Snapshots {
		s := set.Snapshots[i].Summary()
		p.row(s.Week, s.Month, s.OpenTime, s.EventCount, s.SavedAt.Local().Format(time.DateTime))
	}

	p.skipped(set.Skipped)
}

func (p *printer) skipped(entries []models.SkippedEntry) {
	for _, e := range entries {
		p.row("skipped:", e.Name, e.Reason)
	}
}

func (p *printer) metricsHeader() {
	p.row("PERIOD", "OPEN TIME (H)", "TA (H)", "NB", "MTBF (H)", "MTTR (H)", "AVAILABILITY (%)", "DOWNTIME RATIO (%)")
}

func (p *printer) metricsRow(r *models.MetricsRow) {
	p.row(r.Period, r.OpenTime, r.TotalDownTime, r.EventCount, r.MTBF, r.MTTR, r.AvailabilityPct, r.DowntimeRatioPct)
}

func (p *printer) metricsReport(rep *core.MetricsReport) {
	p.row("PERIOD", "OPEN TIME (H)", "TA (H)", "NB", "MTBF (H)", "MTTR (H)", "AVAILABILITY (%)", "DOWNTIME RATIO (%)", "STATUS")

	for i := range rep.Rows {
		r := &rep.Rows[i]
		p.row(r.Period, r.OpenTime, r.TotalDownTime, r.EventCount, r.MTBF, r.MTTR, r.AvailabilityPct, r.DowntimeRatioPct,
			string(r.Status.Availability))
	}

	p.row("")
	p.row(fmt.Sprintf("rolling availability (%d)", rep.RollingWindow), rep.RollingAvailabilityPct)
	p.skipped(rep.Skipped)
}

func (p *printer) rankedGroups(groups []models.RankedGroup) {
	p.row("GROUP", "VALUE", "COUNT", "SHARE (%)", "CUMULATIVE (%)")

	for _, g := range groups {
		p.row(g.Group, g.Value, g.Count, g.Share, g.CumulativePct)
	}
}

func (p *printer) stops(b *models.StopBreakdown) {
	p.row("KIND", "HOURS", "COUNT")
	p.row("micro-stops", b.MicroStopHours, b.MicroStopCount)
	p.row("macro-stops", b.MacroStopHours, b.MacroStopCount)
	p.row("delay", b.DelayHours, "")
}

func (p *printer) machines(machines []models.MachineIndicator) {
	p.row("MACHINE", "DOWN (H)", "COUNT", "DELAY (H)", "INTERVENTION (H)")

	for _, m := range machines {
		p.row(m.Machine, m.DownTime, m.Count, m.DelayTime, m.InterventionTime)
	}
}

func (p *printer) periodTops(periods []models.PeriodTop) {
	p.row("PERIOD", "RANK", "FAILURE TYPE", "TA (H)", "COUNT")

	for _, period := range periods {
		for i, g := range period.Top {
			p.row(period.Period, i+1, g.Group, g.Value, g.Count)
		}
	}
}
