package signaling

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/crypto"
	"github.com/opd-ai/meshcall/transport"
)

// Channel is an authenticated, encrypted message stream over one connection.
// The first verified sender key binds the channel; later frames from another
// key are rejected with ErrIdentityMismatch.
type Channel struct {
	conn         net.Conn
	reader       *transport.MessageReader
	identity     *crypto.Identity
	writeTimeout time.Duration
	metrics      *Metrics

	writeMu sync.Mutex

	mu   sync.Mutex
	peer []byte
}

// NewChannel wraps conn. peer may be nil for inbound connections, in which
// case the first received frame binds it.
func NewChannel(conn net.Conn, identity *crypto.Identity, peer []byte, writeTimeout time.Duration, metrics *Metrics) *Channel {
	ch := &Channel{
		conn:         conn,
		reader:       transport.NewMessageReader(conn),
		identity:     identity,
		writeTimeout: writeTimeout,
		metrics:      metrics,
	}
	if peer != nil {
		ch.peer = append([]byte(nil), peer...)
	}
	return ch
}

// Peer returns the bound peer key, or nil.
func (c *Channel) Peer() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

// Conn returns the underlying connection.
func (c *Channel) Conn() net.Conn { return c.conn }

// Send encrypts m for the bound peer and writes it as one frame.
func (c *Channel) Send(m *Message) error {
	peer := c.Peer()
	if peer == nil {
		return fmt.Errorf("%w: no peer bound", ErrProtocol)
	}
	plaintext, err := EncodeMessage(m)
	if err != nil {
		return err
	}
	sealed, err := crypto.EncryptEnvelope(plaintext, c.identity.PublicKey, c.identity.SecretKey, peer)
	if err != nil {
		c.metrics.envelopeFailure("encrypt")
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if err := transport.WriteMessage(c.conn, sealed); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Channel.Send",
		"action":   string(m.Action),
		"peer":     crypto.ShortFingerprint(peer),
		"size":     len(sealed),
	}).Debug("Sent signaling message")
	return nil
}

// Receive reads and authenticates the next frame. A clean close returns io.EOF.
func (c *Channel) Receive() (*Message, error) {
	frame, err := c.reader.ReadMessage()
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, io.EOF
	}

	sender, plaintext, err := crypto.DecryptEnvelope(frame, c.identity.PublicKey, c.identity.SecretKey)
	if err != nil {
		c.metrics.envelopeFailure("decrypt")
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	c.mu.Lock()
	switch {
	case c.peer == nil:
		c.peer = sender
	case !bytes.Equal(c.peer, sender):
		bound := c.peer
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Channel.Receive",
			"expected": crypto.ShortFingerprint(bound),
			"got":      crypto.ShortFingerprint(sender),
		}).Warn("Frame signed by a different identity")
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrIdentityMismatch,
			crypto.ShortFingerprint(bound), crypto.ShortFingerprint(sender))
	}
	c.mu.Unlock()

	m, err := DecodeMessage(plaintext)
	if err != nil {
		return nil, err
	}
	m.Action = m.Action.Normalize()
	return m, nil
}

// ReceiveFromPeer is Receive with frames from any identity other than the
// bound peer dropped. The connection stays open across dropped frames.
func (c *Channel) ReceiveFromPeer() (*Message, error) {
	for {
		m, err := c.Receive()
		if errors.Is(err, ErrIdentityMismatch) {
			continue
		}
		return m, err
	}
}

// SetReadTimeout sets a read deadline d from now; zero clears it.
func (c *Channel) SetReadTimeout(d time.Duration) {
	if d <= 0 {
		_ = c.conn.SetReadDeadline(time.Time{})
		return
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(d))
}

// Close closes the connection.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// isClosedErr reports whether err is the normal end of a connection.
func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
