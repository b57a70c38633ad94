package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for admin requests
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeError     = "error"
)

// Metrics collects counters for everything the controller does against the mock server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AdminRequests   *prometheus.CounterVec
	AdminDuration   *prometheus.HistogramVec
	ProcessesLaunch *prometheus.CounterVec
	MappingsWritten prometheus.Counter
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}

	m.AdminRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiremockctl_admin_requests_total",
			Help: "Total number of admin requests sent to the mock server",
		},
		[]string{"endpoint", "outcome"},
	)

	m.AdminDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wiremockctl_admin_request_duration_seconds",
			Help:    "Duration of admin requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	m.ProcessesLaunch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiremockctl_process_launches_total",
			Help: "Total number of mock server launch attempts",
		},
		[]string{"outcome"},
	)

	m.MappingsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wiremockctl_mapping_files_written_total",
			Help: "Total number of stub mapping files written",
		},
	)

	reg.MustRegister(m.AdminRequests, m.AdminDuration, m.ProcessesLaunch, m.MappingsWritten)
	return m
}

// ObserveAdmin records one admin request
func (m *Metrics) ObserveAdmin(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AdminRequests.WithLabelValues(endpoint, outcome).Inc()
	m.AdminDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveLaunch records a process launch attempt
func (m *Metrics) ObserveLaunch(outcome string) {
	if m == nil {
		return
	}
	m.ProcessesLaunch.WithLabelValues(outcome).Inc()
}

// ObserveMappingWritten records a mapping file write
func (m *Metrics) ObserveMappingWritten() {
	if m == nil {
		return
	}
	m.MappingsWritten.Inc()
}

// Dump writes one line per sample in g, sorted by name.
// Histograms are reported by their sample count.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case metric.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, metric.GetCounter().GetValue()))
			case metric.GetGauge() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, metric.GetGauge().GetValue()))
			case metric.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s count=%d", name, metric.GetHistogram().GetSampleCount()))
			}
		}
	}

	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
