package signaling

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/meshcall/contact"
	"github.com/opd-ai/meshcall/crypto"
)

const testTimeout = 3 * time.Second

// peer bundles an identity, its store and engine.
type peer struct {
	id     *crypto.Identity
	store  *contact.Store
	engine *Engine
	dialer *fakeDialer
}

func newPeer(t *testing.T, name string, cfg Config) *peer {
	t.Helper()
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)

	p := &peer{id: id, store: contact.NewStore(), dialer: newFakeDialer()}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 500 * time.Millisecond
	}
	cfg.Username = name
	p.engine = NewEngine(id, p.store, p.dialer, cfg)
	t.Cleanup(func() { p.engine.Close() })
	return p
}

// addContact stores other in p's contact list and returns the stored copy.
func (p *peer) addContact(t *testing.T, name string, other *peer) *contact.Contact {
	t.Helper()
	c, err := contact.New(name, other.id.PublicKey)
	require.NoError(t, err)
	require.NoError(t, p.store.Upsert(c))
	return p.store.FindByPublicKey(other.id.PublicKey)
}

// pipeTo returns a dial function that connects to other's inbound handler.
func pipeTo(other *peer) func() (net.Conn, error) {
	return func() (net.Conn, error) {
		local, remote := net.Pipe()
		go other.engine.HandleConn(remote)
		return local, nil
	}
}

type fakeDialer struct {
	mu    sync.Mutex
	dials map[string]func() (net.Conn, error)
	calls map[string]int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		dials: make(map[string]func() (net.Conn, error)),
		calls: make(map[string]int),
	}
}

func (f *fakeDialer) route(key []byte, dial func() (net.Conn, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials[string(key)] = dial
}

func (f *fakeDialer) callCount(key []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[string(key)]
}

func (f *fakeDialer) DialContact(ctx context.Context, c *contact.Contact) (net.Conn, error) {
	f.mu.Lock()
	f.calls[string(c.PublicKey)]++
	dial := f.dials[string(c.PublicKey)]
	f.mu.Unlock()
	if dial == nil {
		return nil, errors.New("connection refused")
	}
	return dial()
}

// collectStates reads n states or fails after testTimeout.
func collectStates(t *testing.T, call *Call, n int) []CallState {
	t.Helper()
	var got []CallState
	deadline := time.After(testTimeout)
	for len(got) < n {
		select {
		case s, ok := <-call.States():
			if !ok {
				return got
			}
			got = append(got, s)
		case <-deadline:
			t.Fatalf("timed out after states %v", got)
		}
	}
	return got
}

func waitIncoming(t *testing.T, p *peer) *Call {
	t.Helper()
	select {
	case call := <-p.engine.IncomingCalls():
		return call
	case <-time.After(testTimeout):
		t.Error("no incoming call")
		return nil
	}
}

func waitDone(t *testing.T, call *Call) {
	t.Helper()
	select {
	case <-call.Done():
	case <-time.After(testTimeout):
		t.Fatalf("call still in state %s", call.State())
	}
}
