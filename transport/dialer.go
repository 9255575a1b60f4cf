package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultConnectTimeout bounds a single connection attempt.
const DefaultConnectTimeout = 500 * time.Millisecond

// DialFunc opens a stream connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// EndpointDialer tries endpoints strictly one after another. Latency stays
// bounded through the short per-attempt timeout, not through parallel dials.
type EndpointDialer struct {
	Timeout time.Duration
	Dial    DialFunc
}

// NewEndpointDialer creates a dialer with the given per-attempt timeout.
func NewEndpointDialer(timeout time.Duration) *EndpointDialer {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	d := &net.Dialer{}
	return &EndpointDialer{Timeout: timeout, Dial: d.DialContext}
}

// DialEndpoints returns the first connection that succeeds together with the
// endpoint that produced it. Refused or timed-out attempts move on to the next
// endpoint; an exhausted list yields ErrNoEndpoint.
func (d *EndpointDialer) DialEndpoints(ctx context.Context, endpoints []Endpoint) (net.Conn, Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, Endpoint{}, newOpError("dial", "", fmt.Errorf("%w: no candidates", ErrNoEndpoint))
	}

	var lastErr error
	for i, ep := range endpoints {
		if err := ctx.Err(); err != nil {
			return nil, Endpoint{}, newOpError("dial", ep.String(), err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.Timeout)
		conn, err := d.Dial(attemptCtx, "tcp", ep.String())
		cancel()
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"function": "DialEndpoints",
				"endpoint": ep.String(),
				"attempt":  i + 1,
			}).Debug("Connected")
			return conn, ep, nil
		}

		lastErr = err
		logrus.WithFields(logrus.Fields{
			"function": "DialEndpoints",
			"endpoint": ep.String(),
			"attempt":  i + 1,
			"timeout":  errors.Is(err, context.DeadlineExceeded) || isTimeout(err),
			"error":    err.Error(),
		}).Debug("Connection attempt failed")
	}

	return nil, Endpoint{}, newOpError("dial", "", fmt.Errorf("%w after %d attempts: %v", ErrNoEndpoint, len(endpoints), lastErr))
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
