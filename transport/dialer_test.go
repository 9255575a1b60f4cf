package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startEchoListener(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return l
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestDialEndpointsFallsThrough(t *testing.T) {
	live := startEchoListener(t)
	livePort := live.Addr().(*net.TCPAddr).Port

	endpoints := []Endpoint{
		{Host: "127.0.0.1", Port: closedPort(t)},
		{Host: "127.0.0.1", Port: livePort},
	}

	d := NewEndpointDialer(200 * time.Millisecond)
	conn, winner, err := d.DialEndpoints(context.Background(), endpoints)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, endpoints[1], winner)
}

func TestDialEndpointsSequentialOrder(t *testing.T) {
	var tried []string
	d := &EndpointDialer{
		Timeout: 50 * time.Millisecond,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			tried = append(tried, address)
			if address == "10.0.0.3:1" {
				client, server := net.Pipe()
				server.Close()
				return client, nil
			}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	endpoints := []Endpoint{
		{Host: "10.0.0.1", Port: 1},
		{Host: "10.0.0.2", Port: 1},
		{Host: "10.0.0.3", Port: 1},
		{Host: "10.0.0.4", Port: 1},
	}

	start := time.Now()
	conn, winner, err := d.DialEndpoints(context.Background(), endpoints)
	require.NoError(t, err)
	conn.Close()

	assert.Equal(t, []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"}, tried)
	assert.Equal(t, "10.0.0.3", winner.Host)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDialEndpointsExhausted(t *testing.T) {
	d := NewEndpointDialer(100 * time.Millisecond)
	_, _, err := d.DialEndpoints(context.Background(), []Endpoint{
		{Host: "127.0.0.1", Port: closedPort(t)},
	})
	assert.True(t, errors.Is(err, ErrNoEndpoint))

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "dial", opErr.Op)

	_, _, err = d.DialEndpoints(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNoEndpoint))
}

func TestDialEndpointsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewEndpointDialer(100 * time.Millisecond)
	_, _, err := d.DialEndpoints(ctx, []Endpoint{{Host: "127.0.0.1", Port: 1}})
	assert.True(t, errors.Is(err, context.Canceled))
}
