package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "downtimeradar"

// serviceMetrics are the Prometheus collectors of a Service.
type serviceMetrics struct {
	ingested      *prometheus.CounterVec
	skipped       prometheus.Counter
	timeFallbacks prometheus.Counter
	storedWeeks   prometheus.Gauge
}

func newServiceMetrics(reg prometheus.Registerer) *serviceMetrics {
	m := &serviceMetrics{
		ingested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "ingested_files_total",
				Help:      "weekly extracts processed, by outcome",
			},
			[]string{"result"},
		),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "skipped_snapshots_total",
			Help:      "stored snapshots that could not be read back",
		}),
		timeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "time_parse_fallbacks_total",
			Help:      "time values that were not HH:MM:SS",
		}),
		storedWeeks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "loaded_weeks",
			Help:      "weeks in the most recently loaded window",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.ingested, m.skipped, m.timeFallbacks, m.storedWeeks)
	}

	return m
}

func (m *serviceMetrics) recordIngest(result string) {
	m.ingested.With(prometheus.Labels{"result": result}).Inc()
}
