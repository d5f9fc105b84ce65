package metrics_test

import (
	"testing"
	"time"

	"github.com/GoCodeAlone/bridge/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveInvocation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewWithRegistry(reg, "")

	c.ObserveInvocation("Clipboard", "getStringAsync", "", 3*time.Millisecond)
	c.ObserveInvocation("Clipboard", "getStringAsync", "coercion", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.InvocationsTotal.WithLabelValues("Clipboard", "getStringAsync", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.InvocationsTotal.WithLabelValues("Clipboard", "getStringAsync", "coercion")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "bridge_method_invocations_total")
	assert.Contains(t, names, "bridge_method_duration_seconds")
}

func TestCollector_EventsAndListeners(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewWithRegistry(reg, "app")

	c.ObserveEvent("Clipboard", "onClipboardChanged")
	c.ObserveEvent("Clipboard", "onClipboardChanged")
	c.SetListeners("Clipboard", "onClipboardChanged", 2)
	c.SetListeners("Clipboard", "onClipboardChanged", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.EventsTotal.WithLabelValues("Clipboard", "onClipboardChanged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Listeners.WithLabelValues("Clipboard", "onClipboardChanged")))
}

func TestNopRecorder(t *testing.T) {
	var r metrics.Recorder = metrics.NopRecorder{}
	assert.NotPanics(t, func() {
		r.ObserveInvocation("m", "f", "", time.Second)
		r.ObserveEvent("m", "e")
		r.SetListeners("m", "e", 3)
	})
}
