package signaling

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/meshcall/contact"
)

func listenLoopback(t *testing.T) (net.Listener, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	return l, l.Addr().(*net.TCPAddr).Port
}

func storedContact(t *testing.T, store *contact.Store, address string) *contact.Contact {
	t.Helper()
	c, err := contact.New("peer", newIdentity(t).PublicKey)
	require.NoError(t, err)
	c.AddAddress(address)
	require.NoError(t, store.Upsert(c))
	return store.FindByPublicKey(c.PublicKey)
}

func TestConnectorRecordsServicePort(t *testing.T) {
	_, port := listenLoopback(t)
	store := contact.NewStore()
	c := storedContact(t, store, "127.0.0.1")

	cn := NewConnector(store, port, 500*time.Millisecond, nil)
	conn, err := cn.DialContact(context.Background(), c)
	require.NoError(t, err)
	conn.Close()

	got := store.FindByPublicKey(c.PublicKey).LastWorkingAddress
	require.NotNil(t, got)
	assert.Equal(t, "127.0.0.1", got.Host)
	assert.Equal(t, port, got.Port)
}

func TestConnectorKeepsExplicitPort(t *testing.T) {
	_, port := listenLoopback(t)
	store := contact.NewStore()
	c := storedContact(t, store, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))

	cn := NewConnector(store, 10001, 500*time.Millisecond, nil)
	require.Equal(t, 10001, cn.Port)
	conn, err := cn.DialContact(context.Background(), c)
	require.NoError(t, err)
	conn.Close()

	got := store.FindByPublicKey(c.PublicKey).LastWorkingAddress
	require.NotNil(t, got)
	assert.Equal(t, port, got.Port)
}

func TestConnectorUnreachable(t *testing.T) {
	l, port := listenLoopback(t)
	l.Close()
	store := contact.NewStore()
	c := storedContact(t, store, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))

	cn := NewConnector(store, port, 200*time.Millisecond, nil)
	_, err := cn.DialContact(context.Background(), c)
	assert.Error(t, err)
	assert.Nil(t, store.FindByPublicKey(c.PublicKey).LastWorkingAddress)
}
