package signaling

import (
	"errors"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/contact"
	"github.com/opd-ai/meshcall/transport"
)

type dispatchResult uint8

const (
	keepReading dispatchResult = iota
	handedOff
	closeConn
)

// peerSession is the per-connection view of the remote side.
type peerSession struct {
	ch      *Channel
	contact *contact.Contact
	known   bool
}

// handleConn runs the inbound dispatch loop for one connection.
func (e *Engine) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr()
	ch := NewChannel(conn, e.identity, nil, e.cfg.WriteTimeout, e.metrics)

	// Unauthenticated sockets must not hold a connection slot indefinitely.
	ch.SetReadTimeout(e.cfg.PingTimeout)
	msg, err := ch.Receive()
	if err != nil {
		// No reply before the caller is authenticated.
		outcome := "closed"
		var ne net.Error
		switch {
		case errors.Is(err, ErrDecrypt):
			outcome = "decrypt_failed"
		case errors.As(err, &ne) && ne.Timeout():
			outcome = "timeout"
		}
		e.metrics.inboundOutcome(outcome)
		logrus.WithFields(logrus.Fields{
			"function": "handleConn",
			"remote":   remote.String(),
			"error":    err.Error(),
		}).Debug("Dropping connection before authentication")
		conn.Close()
		return
	}

	sess, ok := e.resolvePeer(ch, remote)
	if !ok {
		conn.Close()
		return
	}
	ch.SetReadTimeout(0)
	e.metrics.inboundOutcome("accepted")

	for {
		switch e.dispatch(sess, msg) {
		case handedOff:
			return
		case closeConn:
			conn.Close()
			return
		}

		msg, err = ch.ReceiveFromPeer()
		if err != nil {
			if !isClosedErr(err) {
				logrus.WithFields(logrus.Fields{
					"function": "handleConn",
					"contact":  sess.contact.Fingerprint(),
					"error":    err.Error(),
				}).Debug("Connection ended with error")
			}
			conn.Close()
			return
		}
	}
}

// resolvePeer maps the authenticated sender to a contact, applying the
// blocked and unknown-caller policies.
func (e *Engine) resolvePeer(ch *Channel, remote net.Addr) (*peerSession, bool) {
	peer := ch.Peer()
	c := e.store.FindByPublicKey(peer)
	known := c != nil

	switch {
	case !known && e.blockUnknown.Load():
		e.metrics.inboundOutcome("rejected_unknown")
		logrus.WithFields(logrus.Fields{
			"function": "resolvePeer",
			"peer":     contact.NewPlaceholder(peer).Fingerprint(),
			"remote":   remote.String(),
		}).Info("Rejecting unknown caller")
		return nil, false
	case known && c.Blocked:
		e.metrics.inboundOutcome("rejected_blocked")
		logrus.WithFields(logrus.Fields{
			"function": "resolvePeer",
			"contact":  c.Fingerprint(),
			"name":     c.Name,
		}).Info("Rejecting blocked contact")
		return nil, false
	case !known:
		c = contact.NewPlaceholder(peer)
	}

	if ep, ok := transport.EndpointFromAddr(remote, e.cfg.ServicePort); ok {
		c.LastWorkingAddress = &ep
		if known {
			_ = e.store.SetLastWorkingAddress(peer, ep)
		}
	}
	return &peerSession{ch: ch, contact: c, known: known}, true
}

func (e *Engine) dispatch(sess *peerSession, msg *Message) dispatchResult {
	c := sess.contact
	logrus.WithFields(logrus.Fields{
		"function": "dispatch",
		"contact":  c.Fingerprint(),
		"action":   string(msg.Action),
	}).Debug("Inbound message")

	switch msg.Action {
	case ActionCall:
		return e.acceptCall(sess, msg)

	case ActionPing:
		if sess.known {
			_ = e.store.SetState(c.PublicKey, contact.StateOnline)
		}
		if err := sess.ch.Send(&Message{Action: ActionPong}); err != nil {
			return closeConn
		}

	case ActionStatusChange:
		if msg.Status == StatusOffline && sess.known {
			_ = e.store.SetState(c.PublicKey, contact.StateOffline)
		}

	default:
		logrus.WithFields(logrus.Fields{
			"function": "dispatch",
			"contact":  c.Fingerprint(),
			"action":   string(msg.Action),
		}).Debug("Ignoring unexpected action")
	}
	return keepReading
}

// acceptCall turns an inbound call message into a ringing Call and hands the
// connection to it.
func (e *Engine) acceptCall(sess *peerSession, msg *Message) dispatchResult {
	call := newCall(Incoming, sess.contact, msg.Offer, msg.Username)
	call.attach(sess.ch)

	if err := e.cfg.Slot.TryAcquire(call); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "acceptCall",
			"contact":  sess.contact.Fingerprint(),
		}).Info("Busy, dismissing incoming call")
		call.sendBestEffort(sess.ch, &Message{Action: ActionDismissed})
		return closeConn
	}
	call.finishHook(func(c *Call) { e.metrics.callFinished(Incoming, c.State()) })

	if !sess.known {
		if err := e.store.Upsert(sess.contact); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "acceptCall",
				"contact":  sess.contact.Fingerprint(),
				"error":    err.Error(),
			}).Warn("Cannot store unknown caller")
		}
	}

	call.setState(StateConnecting)
	if err := sess.ch.Send(&Message{Action: ActionRinging}); err != nil {
		call.fail(err)
		return handedOff
	}
	call.setState(StateRinging)

	select {
	case e.incoming <- call:
	default:
		logrus.WithFields(logrus.Fields{
			"function": "acceptCall",
			"contact":  sess.contact.Fingerprint(),
		}).Warn("Incoming call queue full, declining")
		_ = call.Decline()
		return handedOff
	}

	logrus.WithFields(logrus.Fields{
		"function": "acceptCall",
		"contact":  sess.contact.Fingerprint(),
		"name":     sess.contact.Name,
		"username": msg.Username,
	}).Info("Incoming call ringing")

	if !e.spawn(call.watch) {
		call.Hangup()
	}
	return handedOff
}
