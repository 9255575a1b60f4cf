package signaling

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/contact"
	"github.com/opd-ai/meshcall/transport"
)

// ContactDialer opens a raw connection to a contact.
type ContactDialer interface {
	DialContact(ctx context.Context, c *contact.Contact) (net.Conn, error)
}

// Connector resolves a contact's addresses and dials them in priority order,
// remembering the endpoint that worked.
type Connector struct {
	Resolver *transport.AddressResolver
	Dialer   *transport.EndpointDialer
	Store    *contact.Store
	// Port is the service port used for addresses without an explicit port and
	// recorded with the last working address.
	Port    int
	Metrics *Metrics
}

// NewConnector creates a connector using the system resolver.
func NewConnector(store *contact.Store, port int, timeout time.Duration, metrics *Metrics) *Connector {
	if port <= 0 {
		port = transport.DefaultPort
	}
	return &Connector{
		Resolver: transport.NewAddressResolver(port),
		Dialer:   transport.NewEndpointDialer(timeout),
		Store:    store,
		Port:     port,
		Metrics:  metrics,
	}
}

// DialContact connects to the first reachable endpoint of c and records it as
// the contact's last working address.
func (cn *Connector) DialContact(ctx context.Context, c *contact.Contact) (net.Conn, error) {
	endpoints := cn.Resolver.ResolveEndpoints(c.Addresses, c.LastWorkingAddress)
	conn, winner, err := cn.Dialer.DialEndpoints(ctx, endpoints)
	cn.Metrics.connectAttempt(err == nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "DialContact",
			"contact":   c.Fingerprint(),
			"endpoints": len(endpoints),
			"error":     err.Error(),
		}).Debug("Contact unreachable")
		return nil, err
	}

	// Addresses that name their own port keep it; everything else is
	// remembered at the service port.
	port := cn.Port
	if winner.Port > 0 && winner.Port != cn.Port {
		port = winner.Port
	}
	working := winner
	working.Port = port
	if ep, ok := transport.EndpointFromAddr(conn.RemoteAddr(), port); ok {
		working = ep
	}
	if cn.Store != nil {
		if err := cn.Store.SetLastWorkingAddress(c.PublicKey, working); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "DialContact",
				"contact":  c.Fingerprint(),
				"error":    err.Error(),
			}).Debug("Cannot record last working address")
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "DialContact",
		"contact":  c.Fingerprint(),
		"endpoint": working.String(),
	}).Debug("Connected to contact")
	return conn, nil
}
