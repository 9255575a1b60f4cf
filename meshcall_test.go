package meshcall

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/meshcall/contact"
	"github.com/opd-ai/meshcall/crypto"
	"github.com/opd-ai/meshcall/signaling"
)

func newTestInstance(t *testing.T, name string) *Meshcall {
	t.Helper()
	opts := NewOptions()
	opts.Port = 0
	opts.ListenAddress = "127.0.0.1"
	opts.LogLevel = "warn"
	opts.Settings.Username = name
	m, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(m.Kill)
	return m
}

func addressOf(t *testing.T, m *Meshcall) string {
	t.Helper()
	addr, ok := m.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(addr.Port))
}

func TestNewDefaults(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	defer m.Kill()

	assert.Len(t, m.PublicKey(), crypto.PublicKeySize)
	assert.NotEmpty(t, m.Fingerprint())
	assert.Nil(t, m.Addr())
	assert.Nil(t, m.CurrentCall())
}

func TestNewFromSecretKey(t *testing.T) {
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)

	opts := NewOptions()
	opts.SecretKey = id.SecretKey
	m, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, []byte(id.PublicKey), m.PublicKey())

	opts.SecretKey = []byte{1, 2, 3}
	_, err = New(opts)
	assert.Error(t, err)
}

func TestStartTwice(t *testing.T) {
	m := newTestInstance(t, "alice")
	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Start(), ErrAlreadyStarted)
}

func TestCallOverLoopback(t *testing.T) {
	alice := newTestInstance(t, "alice")
	bob := newTestInstance(t, "bob")
	require.NoError(t, alice.Start())
	require.NoError(t, bob.Start())

	bobContact, err := contact.New("bob", bob.PublicKey())
	require.NoError(t, err)
	bobContact.AddAddress(addressOf(t, bob))
	require.NoError(t, alice.Store().Upsert(bobContact))

	go func() {
		select {
		case call := <-bob.IncomingCalls():
			assert.Equal(t, "alice", call.Username())
			assert.NoError(t, call.Accept("answer"))
		case <-time.After(5 * time.Second):
		}
	}()

	call, err := alice.StartCall(context.Background(), bob.PublicKey(), "offer")
	require.NoError(t, err)

	var states []signaling.CallState
	timeout := time.After(5 * time.Second)
	for len(states) < 3 {
		select {
		case s := <-call.States():
			states = append(states, s)
		case <-timeout:
			t.Fatalf("states so far: %v", states)
		}
	}
	assert.Equal(t, []signaling.CallState{
		signaling.StateConnecting, signaling.StateRinging, signaling.StateConnected,
	}, states)
	assert.Same(t, call, alice.CurrentCall())

	_, err = alice.StartCall(context.Background(), bob.PublicKey(), "offer")
	assert.ErrorIs(t, err, signaling.ErrCallInProgress)

	stored := alice.Store().FindByPublicKey(bob.PublicKey())
	require.NotNil(t, stored.LastWorkingAddress)
	assert.Equal(t, addressOf(t, bob), stored.LastWorkingAddress.String())

	call.Hangup()
	<-call.Done()
	assert.Nil(t, alice.CurrentCall())
}

func TestPingOverLoopback(t *testing.T) {
	alice := newTestInstance(t, "alice")
	bob := newTestInstance(t, "bob")
	require.NoError(t, bob.Start())

	c, err := contact.New("bob", bob.PublicKey())
	require.NoError(t, err)
	c.AddAddress(addressOf(t, bob))
	require.NoError(t, alice.Store().Upsert(c))

	require.NoError(t, alice.PingContacts(context.Background()))
	assert.Equal(t, contact.StateOnline, alice.Store().FindByPublicKey(bob.PublicKey()).State)

	bob.Kill()
	require.NoError(t, alice.PingContacts(context.Background()))
	assert.Equal(t, contact.StateOffline, alice.Store().FindByPublicKey(bob.PublicKey()).State)
}

func TestKillBroadcastsOffline(t *testing.T) {
	alice := newTestInstance(t, "alice")
	bob := newTestInstance(t, "bob")
	require.NoError(t, alice.Start())
	require.NoError(t, bob.Start())

	// Each side knows the other and sees it online.
	ca, err := contact.New("alice", alice.PublicKey())
	require.NoError(t, err)
	ca.AddAddress(addressOf(t, alice))
	require.NoError(t, bob.Store().Upsert(ca))
	require.NoError(t, bob.Store().SetState(alice.PublicKey(), contact.StateOnline))

	cb, err := contact.New("bob", bob.PublicKey())
	require.NoError(t, err)
	cb.AddAddress(addressOf(t, bob))
	require.NoError(t, alice.Store().Upsert(cb))
	require.NoError(t, alice.Store().SetState(bob.PublicKey(), contact.StateOnline))

	bob.Kill()

	assert.Eventually(t, func() bool {
		return alice.Store().FindByPublicKey(bob.PublicKey()).State == contact.StateOffline
	}, 5*time.Second, 20*time.Millisecond)
}

func TestExportImportSelf(t *testing.T) {
	alice := newTestInstance(t, "alice")
	bob := newTestInstance(t, "bob")
	alice.SetSettings(Settings{Username: "alice", Addresses: []string{"00:11:22:33:44:55", "alice.lan"}})

	doc, err := alice.ExportSelf()
	require.NoError(t, err)

	c, err := bob.ImportContact(doc)
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Name)
	assert.Equal(t, alice.PublicKey(), c.PublicKey)
	assert.Equal(t, []string{"00:11:22:33:44:55", "alice.lan"}, c.Addresses)
	assert.Equal(t, 1, bob.Store().Len())
}

func TestKillWipesSecretKey(t *testing.T) {
	m := newTestInstance(t, "alice")
	require.NoError(t, m.Start())
	secret := m.identity.SecretKey
	require.NotEqual(t, make([]byte, len(secret)), secret)

	m.Kill()
	assert.Equal(t, make([]byte, len(secret)), secret)
	assert.Len(t, m.PublicKey(), crypto.PublicKeySize)

	_, err := m.Savedata(nil)
	assert.ErrorIs(t, err, ErrKilled)
	assert.ErrorIs(t, m.Load("unused", nil), ErrKilled)
	assert.ErrorIs(t, m.Start(), ErrKilled)

	m.Kill()
}
