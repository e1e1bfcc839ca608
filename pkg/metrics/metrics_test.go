package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("GET", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", 200, 10*time.Millisecond)
	m.ObserveRequest("PUT", 0, time.Millisecond)
	m.ObserveRefresh(RefreshOK)
	m.ObserveDrop("vehicles/choices")

	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("PUT", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Refreshes.WithLabelValues(RefreshOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Dropped.WithLabelValues("vehicles/choices")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", 200, time.Second)
	m.ObserveRefresh(RefreshFailed)
	m.ObserveDrop("x")
}

func TestNopDoesNotRegister(t *testing.T) {
	a := Nop()
	b := Nop()
	a.ObserveDrop("x")
	assert.InDelta(t, 0, testutil.ToFloat64(b.Dropped.WithLabelValues("x")), 0)
}
