package signaling

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "meshcall"

// Metrics records signaling activity. A nil *Metrics records nothing.
//
//	meshcall_connect_attempts_total{result="success|failure"}
//	meshcall_inbound_connections_total{outcome="accepted|rate_limited|overflow|decrypt_failed|rejected_unknown|rejected_blocked|closed"}
//	meshcall_calls_total{direction="incoming|outgoing",state="<final state>"}
//	meshcall_pings_total{result="online|offline"}
//	meshcall_envelope_failures_total{op="encrypt|decrypt"}
//	meshcall_handshake_duration_seconds
type Metrics struct {
	connectAttempts   *prometheus.CounterVec
	inbound           *prometheus.CounterVec
	calls             *prometheus.CounterVec
	pings             *prometheus.CounterVec
	envelopeFailures  *prometheus.CounterVec
	handshakeDuration prometheus.Histogram
}

// NewMetrics creates collectors and registers them on reg. A nil reg leaves
// them unregistered. Collectors already present on reg are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: DefaultNamespace,
			Name:      "connect_attempts_total",
			Help:      "Outbound contact connection attempts by result",
		}, []string{"result"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: DefaultNamespace,
			Name:      "inbound_connections_total",
			Help:      "Inbound connections by outcome",
		}, []string{"outcome"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: DefaultNamespace,
			Name:      "calls_total",
			Help:      "Finished calls by direction and final state",
		}, []string{"direction", "state"}),
		pings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: DefaultNamespace,
			Name:      "pings_total",
			Help:      "Ping probes by result",
		}, []string{"result"}),
		envelopeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: DefaultNamespace,
			Name:      "envelope_failures_total",
			Help:      "Envelope encryption and decryption failures",
		}, []string{"op"}),
		handshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: DefaultNamespace,
			Name:      "handshake_duration_seconds",
			Help:      "Time from sending call to the connected reply",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}

	if reg != nil {
		m.connectAttempts = register(reg, m.connectAttempts)
		m.inbound = register(reg, m.inbound)
		m.calls = register(reg, m.calls)
		m.pings = register(reg, m.pings)
		m.envelopeFailures = register(reg, m.envelopeFailures)
		m.handshakeDuration = register(reg, m.handshakeDuration)
	}
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) connectAttempt(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.connectAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) inboundOutcome(outcome string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(outcome).Inc()
}

func (m *Metrics) callFinished(direction Direction, state CallState) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(direction.String(), state.String()).Inc()
}

func (m *Metrics) ping(online bool) {
	if m == nil {
		return
	}
	result := "offline"
	if online {
		result = "online"
	}
	m.pings.WithLabelValues(result).Inc()
}

func (m *Metrics) envelopeFailure(op string) {
	if m == nil {
		return
	}
	m.envelopeFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) handshake(d time.Duration) {
	if m == nil {
		return
	}
	m.handshakeDuration.Observe(d.Seconds())
}
