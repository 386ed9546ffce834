// Package metrics exposes Prometheus instrumentation for report generation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavelanni/contestreport/internal/model"
)

// Failure kinds used as the "kind" label.
const (
	KindSchema     = "schema"
	KindIntegrity  = "integrity"
	KindProcessing = "processing"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	reg *prometheus.Registry

	ReportsGenerated prometheus.Counter
	ReportFailures   *prometheus.CounterVec
	RowsDropped      *prometheus.CounterVec
	ReportRows       prometheus.Histogram
}

// New creates collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ReportsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contestreport_reports_generated_total",
			Help: "Total number of reports exported",
		}),
		ReportFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contestreport_report_failures_total",
				Help: "Report generations that failed, by error kind",
			},
			[]string{"kind"},
		),
		RowsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contestreport_rows_dropped_total",
				Help: "Rows dropped by the results/roster inner join, by source",
			},
			[]string{"source"},
		),
		ReportRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contestreport_report_rows",
			Help:    "Number of rows per generated report",
			Buckets: []float64{10, 50, 100, 250, 500, 1000},
		}),
	}
	m.reg.MustRegister(m.ReportsGenerated, m.ReportFailures, m.RowsDropped, m.ReportRows)
	return m
}

// ObserveReport records a successful report.
func (m *Metrics) ObserveReport(rep *model.Report) {
	m.ReportsGenerated.Inc()
	m.ReportRows.Observe(float64(len(rep.Rows)))
	m.RowsDropped.WithLabelValues(string(model.SourceResults)).Add(float64(rep.Stats.DroppedResults))
	m.RowsDropped.WithLabelValues(string(model.SourceRoster)).Add(float64(rep.Stats.DroppedRoster))
}

// ObserveFailure records a failed generation.
func (m *Metrics) ObserveFailure(kind string) {
	m.ReportFailures.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
