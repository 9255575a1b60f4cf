package signaling

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/meshcall/crypto"
	"github.com/opd-ai/meshcall/transport"
)

func newIdentity(t *testing.T) *crypto.Identity {
	t.Helper()
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	return id
}

func TestChannelRoundTrip(t *testing.T) {
	alice, bob := newIdentity(t), newIdentity(t)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	ca := NewChannel(a, alice, bob.PublicKey, 0, nil)
	cb := NewChannel(b, bob, nil, 0, nil)

	go func() {
		assert.NoError(t, ca.Send(&Message{Action: ActionAccept, Answer: "sdp"}))
	}()

	m, err := cb.Receive()
	require.NoError(t, err)
	assert.Equal(t, ActionConnected, m.Action, "aliases are normalized")
	assert.Equal(t, "sdp", m.Answer)
	assert.Equal(t, []byte(alice.PublicKey), cb.Peer())
}

func TestChannelSendRequiresPeer(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	ch := NewChannel(a, newIdentity(t), nil, 0, nil)
	assert.ErrorIs(t, ch.Send(&Message{Action: ActionPing}), ErrProtocol)
}

func TestChannelIdentityMismatch(t *testing.T) {
	alice, bob, carol := newIdentity(t), newIdentity(t), newIdentity(t)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	cb := NewChannel(b, bob, alice.PublicKey, 0, nil)

	go func() {
		NewChannel(a, carol, bob.PublicKey, 0, nil).Send(&Message{Action: ActionPing})
		NewChannel(a, alice, bob.PublicKey, 0, nil).Send(&Message{Action: ActionPong})
	}()

	_, err := cb.Receive()
	assert.True(t, errors.Is(err, ErrIdentityMismatch))

	m, err := cb.Receive()
	require.NoError(t, err)
	assert.Equal(t, ActionPong, m.Action)
}

func TestChannelReceiveFromPeerSkipsOtherIdentities(t *testing.T) {
	alice, bob, carol := newIdentity(t), newIdentity(t), newIdentity(t)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	cb := NewChannel(b, bob, alice.PublicKey, 0, nil)

	go func() {
		NewChannel(a, carol, bob.PublicKey, 0, nil).Send(&Message{Action: ActionPing})
		NewChannel(a, carol, bob.PublicKey, 0, nil).Send(&Message{Action: ActionPing})
		NewChannel(a, alice, bob.PublicKey, 0, nil).Send(&Message{Action: ActionPong})
		a.Close()
	}()

	m, err := cb.ReceiveFromPeer()
	require.NoError(t, err)
	assert.Equal(t, ActionPong, m.Action)

	_, err = cb.ReceiveFromPeer()
	assert.ErrorIs(t, err, io.EOF)
}

func TestChannelReceiveErrors(t *testing.T) {
	bob := newIdentity(t)
	a, b := net.Pipe()
	cb := NewChannel(b, bob, nil, 0, NewMetrics(nil))

	go func() {
		transport.WriteMessage(a, []byte("not an envelope"))
		a.Close()
	}()

	_, err := cb.Receive()
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = cb.Receive()
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, isClosedErr(err))
}
