package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAdmin(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAdmin("/__admin/shutdown", OutcomeOK, 10*time.Millisecond)
	m.ObserveAdmin("/__admin/shutdown", OutcomeOK, 20*time.Millisecond)
	m.ObserveAdmin("/__admin/shutdown", OutcomeError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdminRequests.WithLabelValues("/__admin/shutdown", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdminRequests.WithLabelValues("/__admin/shutdown", OutcomeError)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAdmin("/__admin/mappings/reset", OutcomeOK, time.Second)
		m.ObserveLaunch(OutcomeOK)
		m.ObserveMappingWritten()
	})
}

func TestDump(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveMappingWritten()
	m.ObserveLaunch(OutcomeOK)
	m.ObserveAdmin("/__admin/mappings/save", OutcomeHTTPError, time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, reg))

	out := buf.String()
	assert.Contains(t, out, "wiremockctl_mapping_files_written_total 1")
	assert.Contains(t, out, `wiremockctl_process_launches_total{outcome="ok"} 1`)
	assert.Contains(t, out, `wiremockctl_admin_requests_total{endpoint="/__admin/mappings/save",outcome="http_error"} 1`)
	assert.Contains(t, out, `wiremockctl_admin_request_duration_seconds{endpoint="/__admin/mappings/save"} count=1`)
}
