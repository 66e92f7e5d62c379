package core

import (
	"io"

	"github.com/carverauto/downtimeradar/pkg/config"
	"github.com/carverauto/downtimeradar/pkg/ingest"
	"github.com/carverauto/downtimeradar/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

// IngestRequest is one uploaded weekly extract.
type IngestRequest struct {
	Filename string
	Body     io.Reader
	Week     int
	OpenTime float64
}

// IngestReport summarizes what an upload produced.
type IngestReport struct {
	Week            int                `json:"week"`
	Month           string             `json:"month"`
	Saved           bool               `json:"saved"`
	EventCount      int                `json:"event_count"`
	DroppedExcluded int                `json:"dropped_excluded"`
	DroppedMissing  int                `json:"dropped_missing"`
	Warnings        []ingest.Warning   `json:"warnings,omitempty"`
	Metrics         *models.MetricsRow `json:"metrics,omitempty"`
}

// MetricsEntry is a metrics row judged against the objectives.
type MetricsEntry struct {
	models.MetricsRow
	Status models.ObjectiveStatus `json:"status"`
}

// MetricsReport is the indicator table of a window, most recent period first.
type MetricsReport struct {
	Rows                   []MetricsEntry        `json:"rows"`
	RollingAvailabilityPct float64               `json:"rolling_availability_pct"`
	RollingWindow          int                   `json:"rolling_window"`
	Objectives             models.Objectives     `json:"objectives"`
	Skipped                []models.SkippedEntry `json:"skipped,omitempty"`
}

// MetricsRows strips the objective status.
func (r *MetricsReport) MetricsRows() []models.MetricsRow {
	rows := make([]models.MetricsRow, len(r.Rows))
	for i := range r.Rows {
		rows[i] = r.Rows[i].MetricsRow
	}

	return rows
}

// Options configures a Service.
type Options struct {
	Table      ingest.TableOptions
	Normalizer ingest.Options
	Analysis   config.AnalysisConfig
	Objectives models.Objectives
	// Registerer receives the service collectors; nil skips registration.
	Registerer prometheus.Registerer
}

// OptionsFromConfig derives service options from a loaded configuration.
func OptionsFromConfig(cfg *config.ServerConfig, reg prometheus.Registerer) Options {
	return Options{
		Table:      cfg.Ingest.TableOptions(),
		Normalizer: cfg.Ingest.NormalizerOptions(),
		Analysis:   cfg.Analysis,
		Objectives: cfg.Objectives,
		Registerer: reg,
	}
}
