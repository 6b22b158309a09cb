package responder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ftl/map-responder/dialogue"
)

const namespace = "mtr"

// Reasons for dropped primitives.
const (
	DropUnexpectedType  = "type"
	DropOutgoing        = "outgoing"
	DropOutOfRange      = "out-of-range"
	DropInvalidSequence = "invalid"
)

// Metrics of a responder.
type Metrics struct {
	received     *prometheus.CounterVec
	sent         *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	sendFailures *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	aborts       prometheus.Counter
}

// NewMetrics registers the responder metrics with the given registerer. The number of active dialogues
// is read from the given table on every scrape.
func NewMetrics(registerer prometheus.Registerer, table *dialogue.Table) *Metrics {
	factory := promauto.With(registerer)
	result := &Metrics{
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "primitives_received_total",
			Help:      "Number of primitives received from the MAP module.",
		}, []string{"type"}),
		sent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "primitives_sent_total",
			Help:      "Number of primitives sent to the MAP module.",
		}, []string{"type"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "primitives_dropped_total",
			Help:      "Number of received primitives that could not be attributed to a dialogue.",
		}, []string{"reason"}),
		sendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Number of primitives that could not be sent, by error class.",
		}, []string{"class"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_transitions_total",
			Help:      "Number of dialogue events, by event.",
		}, []string{"event"}),
		aborts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_aborts_total",
			Help:      "Number of dialogues aborted by the responder.",
		}),
	}
	if table != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dialogues_active",
			Help:      "Number of dialogues that are not idle.",
		}, func() float64 {
			return float64(table.Active())
		})
	}
	return result
}

func (m *Metrics) countReceived(messageType string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(messageType).Inc()
}

func (m *Metrics) countSent(messageType string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(messageType).Inc()
}

func (m *Metrics) countDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) countSendFailure(class string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(class).Inc()
}

func (m *Metrics) countOutcome(outcome dialogue.Outcome) {
	if m == nil || outcome.Event == "" {
		return
	}
	m.transitions.WithLabelValues(string(outcome.Event)).Inc()
	if outcome.Event == dialogue.Abort {
		m.aborts.Inc()
	}
}
