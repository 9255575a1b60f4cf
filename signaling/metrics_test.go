package signaling

import (
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisteredOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1 := NewMetrics(reg)
	m2 := NewMetrics(reg)

	m1.ping(true)
	m2.ping(true)
	assert.Equal(t, 2.0, testutil.ToFloat64(m1.pings.WithLabelValues("online")))

	m1.inboundOutcome("accepted")
	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "meshcall_pings_total")
	assert.Contains(t, names, "meshcall_inbound_connections_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ping(false)
	m.connectAttempt(true)
	m.inboundOutcome("closed")
	m.callFinished(Incoming, StateEnded)
	m.envelopeFailure("decrypt")
	m.handshake(0)
}

func TestCallMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	alice := newPeer(t, "alice", Config{Registerer: reg})
	bob := newPeer(t, "bob", Config{})
	bobContact := alice.addContact(t, "bob", bob)

	go func() {
		if c := waitIncoming(t, bob); c != nil {
			c.Decline()
		}
	}()

	local, remote := net.Pipe()
	go bob.engine.HandleConn(remote)
	call, err := alice.engine.RunOutgoing(local, bobContact, "offer")
	require.NoError(t, err)
	waitDone(t, call)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		alice.engine.Metrics().calls.WithLabelValues("outgoing", "DISMISSED")))
}
