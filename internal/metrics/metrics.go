package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification results.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// Command poll results.
const (
	PollCommand = "command"
	PollIgnored = "ignored"
	PollTimeout = "timeout"
)

// Metrics groups every collector the daemon updates.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	vibrations    prometheus.Counter
	armed         prometheus.Gauge
	sounding      prometheus.Gauge
	notifications *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	polls         *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alarm_transitions_total",
			Help: "State machine transitions by source and target phase.",
		}, []string{"from", "to"}),
		vibrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "alarm_vibration_events_total",
			Help: "Vibration events accepted by the debouncer.",
		}),
		armed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alarm_armed",
			Help: "1 while the system is armed.",
		}),
		sounding: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alarm_sounding",
			Help: "1 while the piezo is sounding.",
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alarm_notifications_total",
			Help: "Notification attempts by destination, kind and result.",
		}, []string{"destination", "kind", "result"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alarm_notifications_dropped_total",
			Help: "Notifications dropped because the destination queue was full.",
		}, []string{"destination"}),
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alarm_command_polls_total",
			Help: "Command source polls by result.",
		}, []string{"result"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Transition records a phase change and updates the gauges.
func (m *Metrics) Transition(from, to string, armed, sounding bool) {
	if m == nil {
		return
	}

	m.transitions.WithLabelValues(from, to).Inc()
	m.armed.Set(boolToFloat(armed))
	m.sounding.Set(boolToFloat(sounding))
}

// Vibration counts an accepted vibration event.
func (m *Metrics) Vibration() {
	if m == nil {
		return
	}

	m.vibrations.Inc()
}

// Notification counts a send attempt.
func (m *Metrics) Notification(destination, kind, result string) {
	if m == nil {
		return
	}

	m.notifications.WithLabelValues(destination, kind, result).Inc()

	if result == ResultDropped {
		m.dropped.WithLabelValues(destination).Inc()
	}
}

// CommandPoll counts one command poll.
func (m *Metrics) CommandPoll(result string) {
	if m == nil {
		return
	}

	m.polls.WithLabelValues(result).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
