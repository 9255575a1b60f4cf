package signaling

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/contact"
)

// CallState is the state of one call.
type CallState uint8

const (
	// StateIdle is the initial state of an outgoing call before it is placed.
	StateIdle CallState = iota
	StateConnecting
	StateRinging
	StateConnected
	StateDismissed
	StateEnded
	StateError
)

// String returns the state name.
func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateRinging:
		return "RINGING"
	case StateConnected:
		return "CONNECTED"
	case StateDismissed:
		return "DISMISSED"
	case StateEnded:
		return "ENDED"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("CallState(%d)", uint8(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s CallState) Terminal() bool {
	return s == StateDismissed || s == StateEnded || s == StateError
}

// Direction tells who placed the call.
type Direction uint8

const (
	Outgoing Direction = iota
	Incoming
)

// String returns "outgoing" or "incoming".
func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

const (
	stateBuffer  = 8
	signalBuffer = 32
)

// Call is one call, incoming or outgoing. Every state transition is delivered
// on States in order; the channel is closed after the terminal state. Media
// passthrough messages from the peer arrive on Signals.
type Call struct {
	direction Direction
	contact   *contact.Contact
	offer     string
	username  string

	mu       sync.Mutex
	state    CallState
	answer   string
	err      error
	ch       *Channel
	watching bool

	states     chan CallState
	signals    chan *Message
	done       chan struct{}
	onFinish   []func(*Call)
	finishOnce sync.Once
}

func newCall(direction Direction, c *contact.Contact, offer, username string) *Call {
	return &Call{
		direction: direction,
		contact:   c.Clone(),
		offer:     offer,
		username:  username,
		state:     StateIdle,
		states:    make(chan CallState, stateBuffer),
		signals:   make(chan *Message, signalBuffer),
		done:      make(chan struct{}),
	}
}

// Direction returns who placed the call.
func (c *Call) Direction() Direction { return c.direction }

// Contact returns a copy of the remote contact.
func (c *Call) Contact() *contact.Contact { return c.contact.Clone() }

// Offer returns the caller's session offer.
func (c *Call) Offer() string { return c.offer }

// Username returns the name the caller announced, if any.
func (c *Call) Username() string { return c.username }

// States delivers every state transition.
func (c *Call) States() <-chan CallState { return c.states }

// Signals delivers media passthrough messages from the peer.
func (c *Call) Signals() <-chan *Message { return c.signals }

// Done is closed when the call reaches a terminal state.
func (c *Call) Done() <-chan struct{} { return c.done }

// State returns the current state.
func (c *Call) State() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Answer returns the callee's answer once CONNECTED.
func (c *Call) Answer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answer
}

// Err returns the failure that moved the call to ERROR, if any.
func (c *Call) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Accept answers a ringing incoming call.
func (c *Call) Accept(answer string) error {
	c.mu.Lock()
	if c.direction != Incoming || c.state != StateRinging {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot accept in %s", ErrInvalidState, state)
	}
	ch := c.ch
	c.mu.Unlock()

	if err := ch.Send(&Message{Action: ActionConnected, Answer: answer}); err != nil {
		c.fail(err)
		return err
	}
	c.mu.Lock()
	c.answer = answer
	c.mu.Unlock()
	c.setState(StateConnected)
	return nil
}

// Decline rejects a ringing incoming call.
func (c *Call) Decline() error {
	c.mu.Lock()
	if c.direction != Incoming || c.state != StateRinging {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot decline in %s", ErrInvalidState, state)
	}
	ch := c.ch
	c.mu.Unlock()

	c.sendBestEffort(ch, &Message{Action: ActionDismissed})
	c.setState(StateDismissed)
	return nil
}

// Hangup ends the call from the local side in any non-terminal state.
func (c *Call) Hangup() {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	ch := c.ch
	c.mu.Unlock()

	if ch != nil {
		c.sendBestEffort(ch, &Message{Action: ActionDismissed})
	}
	c.setState(StateEnded)
}

// SendSignal forwards a media passthrough message to the peer.
func (c *Call) SendSignal(m *Message) error {
	if m == nil || !m.Action.IsMediaSignal() {
		return fmt.Errorf("%w: not a media signal", ErrProtocol)
	}
	c.mu.Lock()
	if c.state.Terminal() || c.ch == nil {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot signal in %s", ErrInvalidState, state)
	}
	ch := c.ch
	c.mu.Unlock()
	return ch.Send(m)
}

func (c *Call) attach(ch *Channel) {
	c.mu.Lock()
	c.ch = ch
	c.mu.Unlock()
}

func (c *Call) finishHook(fn func(*Call)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFinish = append(c.onFinish, fn)
}

// setState applies a transition and reports whether it happened. Terminal
// states are sticky; reaching one closes the connection.
func (c *Call) setState(s CallState) bool {
	c.mu.Lock()
	if c.state.Terminal() || c.state == s {
		c.mu.Unlock()
		return false
	}
	old := c.state
	c.state = s
	c.states <- s
	terminal := s.Terminal()
	ch := c.ch
	closeSignals := terminal && !c.watching
	hooks := c.onFinish
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":  "Call.setState",
		"direction": c.direction.String(),
		"contact":   c.contact.Fingerprint(),
		"old_state": old.String(),
		"new_state": s.String(),
	}).Info("Call state changed")

	if terminal {
		if ch != nil {
			_ = ch.Close()
		}
		if closeSignals {
			close(c.signals)
		}
		c.finishOnce.Do(func() {
			for _, fn := range hooks {
				fn(c)
			}
			close(c.states)
			close(c.done)
		})
	}
	return true
}

func (c *Call) fail(err error) {
	c.mu.Lock()
	if c.err == nil && !c.state.Terminal() {
		c.err = err
	}
	c.mu.Unlock()
	c.setState(StateError)
}

func (c *Call) sendBestEffort(ch *Channel, m *Message) {
	if err := ch.Send(m); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Call.sendBestEffort",
			"action":   string(m.Action),
			"error":    err.Error(),
		}).Debug("Best-effort send failed")
	}
}

// watch reads frames after the handshake until the connection ends.
func (c *Call) watch() {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	c.watching = true
	ch := c.ch
	c.mu.Unlock()
	defer close(c.signals)

	for {
		m, err := ch.ReceiveFromPeer()
		if err != nil {
			c.peerGone(ch, err)
			return
		}

		switch {
		case m.Action == ActionDismissed:
			c.endByPeer()
			return
		case m.Action.IsMediaSignal():
			select {
			case c.signals <- m:
			default:
				logrus.WithFields(logrus.Fields{
					"function": "Call.watch",
					"action":   string(m.Action),
				}).Warn("Signal buffer full, dropping media message")
			}
		default:
			logrus.WithFields(logrus.Fields{
				"function": "Call.watch",
				"action":   string(m.Action),
				"state":    c.State().String(),
			}).Debug("Ignoring message during call")
		}
	}
}

func (c *Call) endByPeer() {
	if c.State() == StateConnected {
		c.setState(StateEnded)
		return
	}
	c.setState(StateDismissed)
}

func (c *Call) peerGone(ch *Channel, err error) {
	state := c.State()
	if state.Terminal() {
		return
	}
	if !isClosedErr(err) {
		logrus.WithFields(logrus.Fields{
			"function": "Call.peerGone",
			"state":    state.String(),
			"error":    err.Error(),
		}).Debug("Call connection failed")
	}
	if state == StateConnected {
		c.setState(StateEnded)
		return
	}
	c.sendBestEffort(ch, &Message{Action: ActionDismissed})
	c.setState(StateDismissed)
}
