package meshcall

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/contact"
	"github.com/opd-ai/meshcall/crypto"
	"github.com/opd-ai/meshcall/signaling"
)

// broadcastTimeout bounds the offline broadcast in Kill.
const broadcastTimeout = 2 * time.Second

// Meshcall is the application context: it owns the identity, the contact
// store, the settings, the call slot and the signaling engine.
type Meshcall struct {
	options  *Options
	identity *crypto.Identity
	store    *contact.Store
	slot     *signaling.CallSlot
	engine   *signaling.Engine

	mu       sync.Mutex
	settings Settings
	listener net.Listener
	cancel   context.CancelFunc
	running  bool
	killed   bool
	done     chan struct{}
}

// New creates a Meshcall instance with the given options.
func New(options *Options) (*Meshcall, error) {
	if options == nil {
		options = NewOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	applyLogLevel(options.LogLevel)

	m := &Meshcall{
		options:  options,
		store:    contact.NewStore(),
		slot:     signaling.NewCallSlot(),
		settings: options.Settings,
	}

	switch {
	case len(options.SaveData) > 0:
		data, err := decodeSaveData(options.SaveData, options.Password)
		if err != nil {
			return nil, err
		}
		id, err := crypto.IdentityFromSecretKey(data.SecretKey)
		crypto.ZeroBytes(data.SecretKey)
		if err != nil {
			return nil, err
		}
		m.identity = id
		m.settings = data.Settings
		m.restoreContacts(data.Contacts)
	case len(options.SecretKey) > 0:
		id, err := crypto.IdentityFromSecretKey(options.SecretKey)
		if err != nil {
			return nil, err
		}
		m.identity = id
	default:
		id, err := crypto.GenerateIdentity()
		if err != nil {
			return nil, err
		}
		m.identity = id
	}

	cfg := options.engineConfig(m.slot)
	cfg.Username = m.settings.Username
	cfg.BlockUnknown = m.settings.BlockUnknown
	m.engine = signaling.NewEngine(m.identity, m.store, nil, cfg)

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"fingerprint": m.identity.Fingerprint(),
		"contacts":    m.store.Len(),
		"port":        options.Port,
	}).Info("Meshcall instance created")
	return m, nil
}

func applyLogLevel(level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "applyLogLevel",
			"level":    level,
		}).Warn("Unknown log level, keeping current")
		return
	}
	logrus.SetLevel(parsed)
}

// PublicKey returns the own public key.
func (m *Meshcall) PublicKey() []byte {
	return append([]byte(nil), m.identity.PublicKey...)
}

// Fingerprint returns the base58 fingerprint of the own public key.
func (m *Meshcall) Fingerprint() string { return m.identity.Fingerprint() }

// Store returns the contact store.
func (m *Meshcall) Store() *contact.Store { return m.store }

// Engine returns the signaling engine.
func (m *Meshcall) Engine() *signaling.Engine { return m.engine }

// CurrentCall returns the call holding the call slot, or nil.
func (m *Meshcall) CurrentCall() *signaling.Call { return m.slot.Current() }

// Settings returns a copy of the settings.
func (m *Meshcall) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.settings
	s.ICEServers = append([]string(nil), s.ICEServers...)
	s.Addresses = append([]string(nil), s.Addresses...)
	return s
}

// SetSettings replaces the settings and applies them to the engine.
func (m *Meshcall) SetSettings(s Settings) {
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	m.engine.SetUsername(s.Username)
	m.engine.SetBlockUnknown(s.BlockUnknown)
}

// Start binds the listening socket and starts serving. With a positive
// PingInterval the periodic ping sweep starts as well.
func (m *Meshcall) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.killed {
		return ErrKilled
	}
	if m.running {
		return ErrAlreadyStarted
	}

	addr := net.JoinHostPort(m.options.ListenAddress, strconv.Itoa(m.options.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Start",
			"address":  addr,
			"error":    err.Error(),
		}).Error("Cannot bind signaling port")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.listener = l
	m.cancel = cancel
	m.running = true
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		if err := m.engine.Serve(l); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Start",
				"error":    err.Error(),
			}).Error("Signaling server stopped")
		}
	}()
	if m.options.PingInterval > 0 {
		go m.engine.RunPingLoop(ctx, m.options.PingInterval)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Start",
		"address":  l.Addr().String(),
	}).Info("Meshcall started")
	return nil
}

// Addr returns the listening address, or nil before Start.
func (m *Meshcall) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// StartCall places a call to the contact with the given key.
func (m *Meshcall) StartCall(ctx context.Context, publicKey []byte, offer string) (*signaling.Call, error) {
	return m.engine.StartCall(ctx, publicKey, offer)
}

// IncomingCalls delivers ringing incoming calls.
func (m *Meshcall) IncomingCalls() <-chan *signaling.Call {
	return m.engine.IncomingCalls()
}

// PingContacts runs one ping sweep over all unblocked contacts.
func (m *Meshcall) PingContacts(ctx context.Context) error {
	return m.engine.PingContacts(ctx)
}

// ExportSelf renders the own exchange document for QR codes.
func (m *Meshcall) ExportSelf() ([]byte, error) {
	s := m.Settings()
	return contact.ExportJSON(&contact.Contact{
		Name:      s.Username,
		PublicKey: m.identity.PublicKey,
		Addresses: s.Addresses,
	})
}

// ImportContact parses an exchange document and stores the contact.
func (m *Meshcall) ImportContact(data []byte) (*contact.Contact, error) {
	c, err := contact.ImportJSON(data)
	if err != nil {
		return nil, err
	}
	if err := m.store.Upsert(c); err != nil {
		return nil, err
	}
	return m.store.FindByPublicKey(c.PublicKey), nil
}

// Kill announces the shutdown to ONLINE contacts, stops the server and the
// ping loop, ends the current call and wipes the secret key. The instance
// cannot be started or saved afterwards.
func (m *Meshcall) Kill() {
	m.mu.Lock()
	if m.killed {
		m.mu.Unlock()
		return
	}
	m.killed = true
	running := m.running
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if running {
		ctx, stop := context.WithTimeout(context.Background(), broadcastTimeout)
		m.engine.BroadcastOffline(ctx)
		stop()
		cancel()
	}
	m.engine.Close()
	if done != nil {
		<-done
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Kill",
		"fingerprint": m.identity.Fingerprint(),
	}).Info("Meshcall stopped")

	// Engine handlers have returned; the secret key has no further use.
	m.mu.Lock()
	m.identity.Wipe()
	m.mu.Unlock()
}

func (m *Meshcall) restoreContacts(contacts []*contact.Contact) {
	for _, c := range contacts {
		c.State = contact.StatePending
		if err := m.store.Upsert(c); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "restoreContacts",
				"name":     c.Name,
				"error":    err.Error(),
			}).Warn("Skipping invalid saved contact")
		}
	}
}
