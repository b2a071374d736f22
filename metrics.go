package eventgroup

import "github.com/prometheus/client_golang/prometheus"

// Metrics stores Client delivery metrics, labeled by Fluent tag.
type Metrics struct {
	// reg is the Registerer used to create this set of metrics.
	reg prometheus.Registerer

	groupsSent    *prometheus.CounterVec
	eventsSent    *prometheus.CounterVec
	bytesSent     *prometheus.CounterVec
	groupsDropped *prometheus.CounterVec
	writeErrors   *prometheus.CounterVec
}

// NewMetrics creates a new set of metrics. If reg is not nil, the metrics are
// registered to it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var m Metrics
	m.reg = reg

	m.groupsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgroup",
		Name:      "client_groups_sent_total",
		Help:      "Number of event groups written to the Fluent server",
	}, []string{"tag"})

	m.eventsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgroup",
		Name:      "client_events_sent_total",
		Help:      "Number of events written to the Fluent server",
	}, []string{"tag"})

	m.bytesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgroup",
		Name:      "client_bytes_sent_total",
		Help:      "Number of encoded bytes written to the Fluent server",
	}, []string{"tag"})

	m.groupsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgroup",
		Name:      "client_groups_dropped_total",
		Help:      "Number of event groups dropped because the send queue was full",
	}, []string{"tag"})

	m.writeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventgroup",
		Name:      "client_write_errors_total",
		Help:      "Number of failed writes to the Fluent server, including missing ACKs",
	}, []string{"tag"})

	if reg != nil {
		reg.MustRegister(m.groupsSent, m.eventsSent, m.bytesSent, m.groupsDropped, m.writeErrors)
	}
	return &m
}
