package signaling

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/contact"
	"github.com/opd-ai/meshcall/crypto"
	"github.com/opd-ai/meshcall/transport"
)

// Config tunes an Engine. Zero values select the defaults.
type Config struct {
	Username       string
	BlockUnknown   bool
	ServicePort    int
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
	WriteTimeout   time.Duration
	PingWorkers    int
	MaxConnections int
	AcceptRate     float64
	AcceptBurst    int
	// Slot is shared with other components; a fresh slot is used when nil.
	Slot       *CallSlot
	Registerer prometheus.Registerer
}

// Defaults for zero Config fields.
const (
	DefaultPingTimeout    = 3 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultPingWorkers    = 4
	DefaultMaxConnections = 64
)

func (c *Config) setDefaults() {
	if c.ServicePort <= 0 {
		c.ServicePort = transport.DefaultPort
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = transport.DefaultConnectTimeout
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PingWorkers <= 0 {
		c.PingWorkers = DefaultPingWorkers
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.Slot == nil {
		c.Slot = NewCallSlot()
	}
}

// Engine runs the signaling protocol: the inbound server loop, outgoing calls,
// ping sweeps and the shutdown broadcast.
type Engine struct {
	identity *crypto.Identity
	store    *contact.Store
	dialer   ContactDialer
	cfg      Config
	metrics  *Metrics
	limiter  *transport.AcceptLimiter

	blockUnknown atomic.Bool
	username     atomic.Value

	sem      chan struct{}
	incoming chan *Call

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[net.Conn]struct{}
	closed    bool
	wg        sync.WaitGroup
}

// NewEngine creates an engine. When dialer is nil a Connector over the system
// resolver is used.
func NewEngine(identity *crypto.Identity, store *contact.Store, dialer ContactDialer, cfg Config) *Engine {
	cfg.setDefaults()
	metrics := NewMetrics(cfg.Registerer)
	if dialer == nil {
		dialer = NewConnector(store, cfg.ServicePort, cfg.ConnectTimeout, metrics)
	}

	e := &Engine{
		identity:  identity,
		store:     store,
		dialer:    dialer,
		cfg:       cfg,
		metrics:   metrics,
		limiter:   transport.NewAcceptLimiter(cfg.AcceptRate, cfg.AcceptBurst),
		sem:       make(chan struct{}, cfg.MaxConnections),
		incoming:  make(chan *Call, 4),
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[net.Conn]struct{}),
	}
	e.blockUnknown.Store(cfg.BlockUnknown)
	e.username.Store(cfg.Username)

	logrus.WithFields(logrus.Fields{
		"function":        "NewEngine",
		"identity":        identity.Fingerprint(),
		"service_port":    cfg.ServicePort,
		"max_connections": cfg.MaxConnections,
		"block_unknown":   cfg.BlockUnknown,
	}).Info("Signaling engine created")
	return e
}

// Slot returns the call slot.
func (e *Engine) Slot() *CallSlot { return e.cfg.Slot }

// Metrics returns the engine metrics.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// SetBlockUnknown changes whether unknown callers are rejected.
func (e *Engine) SetBlockUnknown(block bool) { e.blockUnknown.Store(block) }

// SetUsername changes the name announced in outgoing calls.
func (e *Engine) SetUsername(name string) { e.username.Store(name) }

func (e *Engine) currentUsername() string {
	name, _ := e.username.Load().(string)
	return name
}

// IncomingCalls delivers ringing incoming calls.
func (e *Engine) IncomingCalls() <-chan *Call { return e.incoming }

// Serve accepts connections on l until l is closed or the engine shuts down.
func (e *Engine) Serve(l net.Listener) error {
	if !e.trackListener(l, true) {
		return ErrEngineClosed
	}
	defer e.trackListener(l, false)

	logrus.WithFields(logrus.Fields{
		"function": "Serve",
		"address":  l.Addr().String(),
	}).Info("Accepting signaling connections")

	for {
		conn, err := l.Accept()
		if err != nil {
			if e.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		if !e.limiter.Allow(conn.RemoteAddr(), time.Now()) {
			e.metrics.inboundOutcome("rate_limited")
			logrus.WithFields(logrus.Fields{
				"function": "Serve",
				"remote":   conn.RemoteAddr().String(),
			}).Debug("Rate limited inbound connection")
			conn.Close()
			continue
		}

		select {
		case e.sem <- struct{}{}:
		default:
			e.metrics.inboundOutcome("overflow")
			logrus.WithFields(logrus.Fields{
				"function": "Serve",
				"remote":   conn.RemoteAddr().String(),
				"limit":    e.cfg.MaxConnections,
			}).Warn("Connection limit reached, closing")
			conn.Close()
			continue
		}

		if !e.trackConn(conn, true) {
			<-e.sem
			conn.Close()
			return nil
		}
		go func() {
			defer func() { <-e.sem }()
			defer e.trackConn(conn, false)
			e.handleConn(conn)
		}()
	}
}

// HandleConn runs the inbound protocol on conn and returns when this
// connection's dispatch loop ends. A call hand-off keeps conn open.
func (e *Engine) HandleConn(conn net.Conn) {
	if !e.trackConn(conn, true) {
		conn.Close()
		return
	}
	defer e.trackConn(conn, false)
	e.handleConn(conn)
}

// Close stops every listener, closes tracked connections, hangs up the
// current call and waits for handlers, dialers and call watchers to finish.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for l := range e.listeners {
		l.Close()
	}
	for c := range e.conns {
		c.Close()
	}
	e.mu.Unlock()

	if call := e.cfg.Slot.Current(); call != nil {
		call.Hangup()
	}
	e.wg.Wait()

	logrus.WithFields(logrus.Fields{
		"function": "Close",
	}).Info("Signaling engine closed")
	return nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) trackListener(l net.Listener, add bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if add {
		if e.closed {
			return false
		}
		e.listeners[l] = struct{}{}
		return true
	}
	delete(e.listeners, l)
	return true
}

// spawn runs fn on a goroutine that Close waits for. It reports false, without
// running fn, once the engine is closed.
func (e *Engine) spawn(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
	return true
}

func (e *Engine) trackConn(c net.Conn, add bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if add {
		if e.closed {
			return false
		}
		e.conns[c] = struct{}{}
		e.wg.Add(1)
		return true
	}
	if _, ok := e.conns[c]; ok {
		delete(e.conns, c)
		e.wg.Done()
	}
	return true
}
