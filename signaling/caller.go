package signaling

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/contact"
)

// StartCall places a call to the contact with the given key. It fails fast
// with ErrCallInProgress when another call holds the slot; otherwise the
// handshake runs in the background and progress is reported on Call.States.
func (e *Engine) StartCall(ctx context.Context, publicKey []byte, offer string) (*Call, error) {
	if e.isClosed() {
		return nil, ErrEngineClosed
	}
	c, err := e.store.Get(publicKey)
	if err != nil {
		return nil, err
	}
	if c.Blocked {
		return nil, fmt.Errorf("%w: %s", ErrContactBlocked, c.Fingerprint())
	}

	call, err := e.newOutgoingCall(c, offer)
	if err != nil {
		return nil, err
	}

	started := e.spawn(func() {
		conn, err := e.dialer.DialContact(ctx, c)
		if err != nil {
			call.fail(err)
			return
		}
		e.runOutgoing(call, conn)
	})
	if !started {
		call.fail(ErrEngineClosed)
		return nil, ErrEngineClosed
	}
	return call, nil
}

// RunOutgoing runs the caller side of the handshake over an open connection
// and returns once the call is CONNECTED or has finished.
func (e *Engine) RunOutgoing(conn net.Conn, c *contact.Contact, offer string) (*Call, error) {
	call, err := e.newOutgoingCall(c, offer)
	if err != nil {
		conn.Close()
		return nil, err
	}
	e.runOutgoing(call, conn)
	return call, nil
}

func (e *Engine) newOutgoingCall(c *contact.Contact, offer string) (*Call, error) {
	call := newCall(Outgoing, c, offer, e.currentUsername())
	if err := e.cfg.Slot.TryAcquire(call); err != nil {
		return nil, err
	}
	call.finishHook(func(cl *Call) { e.metrics.callFinished(Outgoing, cl.State()) })
	return call, nil
}

func (e *Engine) runOutgoing(call *Call, conn net.Conn) {
	c := call.contact
	ch := NewChannel(conn, e.identity, c.PublicKey, e.cfg.WriteTimeout, e.metrics)
	call.attach(ch)
	if call.State().Terminal() {
		// Hung up while dialing.
		ch.Close()
		return
	}
	start := time.Now()

	err := ch.Send(&Message{
		Action:     ActionCall,
		Offer:      call.offer,
		Username:   call.username,
		Identifier: e.identity.Fingerprint(),
	})
	if err != nil {
		call.fail(err)
		return
	}
	call.setState(StateConnecting)

	ch.SetReadTimeout(e.cfg.PingTimeout)
	reply, err := ch.Receive()
	if err != nil {
		call.fail(err)
		return
	}
	if reply.Action != ActionRinging {
		call.fail(fmt.Errorf("%w: expected %s, got %s", ErrProtocol, ActionRinging, reply.Action))
		return
	}
	call.setState(StateRinging)

	// The callee may ring for as long as the user takes to answer.
	ch.SetReadTimeout(0)
	reply, err = ch.Receive()
	if err != nil {
		call.fail(err)
		return
	}

	switch reply.Action {
	case ActionConnected:
		call.mu.Lock()
		call.answer = reply.Answer
		call.mu.Unlock()
		if call.setState(StateConnected) {
			e.metrics.handshake(time.Since(start))
			logrus.WithFields(logrus.Fields{
				"function": "runOutgoing",
				"contact":  c.Fingerprint(),
				"duration": time.Since(start).String(),
			}).Info("Call connected")
			if !e.spawn(call.watch) {
				call.Hangup()
			}
		}
	case ActionDismissed:
		call.setState(StateDismissed)
	default:
		call.fail(fmt.Errorf("%w: unexpected %s while ringing", ErrProtocol, reply.Action))
	}
}
