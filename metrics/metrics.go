// Package metrics records bridge invocation and event activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives bridge activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ObserveInvocation records a method call. outcome is empty on success
	// and an error kind otherwise.
	ObserveInvocation(module, method, outcome string, duration time.Duration)

	// ObserveEvent records an event sent by a module.
	ObserveEvent(module, event string)

	// SetListeners records the current host listener count of an event.
	SetListeners(module, event string, count int)
}

// NopRecorder discards all activity.
type NopRecorder struct{}

func (NopRecorder) ObserveInvocation(string, string, string, time.Duration) {}
func (NopRecorder) ObserveEvent(string, string)                            {}
func (NopRecorder) SetListeners(string, string, int)                       {}

// DefaultNamespace prefixes metric names when none is configured.
const DefaultNamespace = "bridge"

// Collector holds all Prometheus metrics for the bridge.
type Collector struct {
	// Invocation metrics
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec

	// Event metrics
	EventsTotal *prometheus.CounterVec
	Listeners   *prometheus.GaugeVec
}

// New creates a collector registered with the default Prometheus registry.
func New(namespace string) *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer, namespace)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer, namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)
	return &Collector{
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "method_invocations_total",
				Help:      "Total number of module method invocations",
			},
			[]string{"module", "method", "outcome"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "method_duration_seconds",
				Help:      "Module method duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"module", "method"},
		),
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_sent_total",
				Help:      "Total number of events sent by modules",
			},
			[]string{"module", "event"},
		),
		Listeners: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "event_listeners",
				Help:      "Current number of host listeners per module event",
			},
			[]string{"module", "event"},
		),
	}
}

// ObserveInvocation implements Recorder.
func (c *Collector) ObserveInvocation(module, method, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "ok"
	}
	c.InvocationsTotal.WithLabelValues(module, method, outcome).Inc()
	c.InvocationDuration.WithLabelValues(module, method).Observe(duration.Seconds())
}

// ObserveEvent implements Recorder.
func (c *Collector) ObserveEvent(module, event string) {
	c.EventsTotal.WithLabelValues(module, event).Inc()
}

// SetListeners implements Recorder.
func (c *Collector) SetListeners(module, event string, count int) {
	c.Listeners.WithLabelValues(module, event).Set(float64(count))
}
