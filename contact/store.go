package contact

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/limits"
	"github.com/opd-ai/meshcall/transport"
)

// StateChange is delivered to subscribers whenever a contact's state changes.
type StateChange struct {
	PublicKey []byte
	Name      string
	Old       State
	New       State
}

// Store is the in-memory registry of contacts. It is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	contacts     []*Contact
	subscribers  map[int]chan StateChange
	nextSub      int
	timeProvider TimeProvider
}

// NewStore creates an empty store.
func NewStore() *Store {
	return NewStoreWithTimeProvider(defaultTimeProvider)
}

// NewStoreWithTimeProvider creates an empty store with a custom clock.
func NewStoreWithTimeProvider(tp TimeProvider) *Store {
	if tp == nil {
		tp = defaultTimeProvider
	}
	return &Store{
		subscribers:  make(map[int]chan StateChange),
		timeProvider: tp,
	}
}

// Len returns the number of contacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// FindByPublicKey returns a copy of the contact with the given key, or nil.
func (s *Store) FindByPublicKey(publicKey []byte) *Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(publicKey).Clone()
}

// Get is FindByPublicKey with an error for missing contacts.
func (s *Store) Get(publicKey []byte) (*Contact, error) {
	if c := s.FindByPublicKey(publicKey); c != nil {
		return c, nil
	}
	return nil, ErrNotFound
}

// FindByName returns a copy of the first contact with exactly this name, or nil.
func (s *Store) FindByName(name string) *Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts {
		if c.Name == name {
			return c.Clone()
		}
	}
	return nil
}

// Upsert replaces the contact with the same public key or appends a new one.
// Runtime state of an existing contact is preserved.
func (s *Store) Upsert(c *Contact) error {
	if err := c.Validate(); err != nil {
		return err
	}
	stored := c.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.contacts {
		if existing.HasPublicKey(c.PublicKey) {
			stored.State = existing.State
			stored.LastSeen = existing.LastSeen
			if stored.LastWorkingAddress == nil {
				stored.LastWorkingAddress = existing.LastWorkingAddress
			}
			s.contacts[i] = stored

			logrus.WithFields(logrus.Fields{
				"function":    "Upsert",
				"fingerprint": c.Fingerprint(),
				"name":        c.Name,
			}).Debug("Updated contact")
			return nil
		}
	}

	s.contacts = append(s.contacts, stored)
	logrus.WithFields(logrus.Fields{
		"function":    "Upsert",
		"fingerprint": c.Fingerprint(),
		"name":        c.Name,
		"count":       len(s.contacts),
	}).Info("Added contact")
	return nil
}

// Remove deletes the contact with the given key.
func (s *Store) Remove(publicKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.contacts {
		if c.HasPublicKey(publicKey) {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			logrus.WithFields(logrus.Fields{
				"function":    "Remove",
				"fingerprint": c.Fingerprint(),
			}).Info("Removed contact")
			return nil
		}
	}
	return ErrNotFound
}

// SetState updates the liveness state. Subscribers are notified when the state
// actually changes. Reaching ONLINE refreshes LastSeen.
func (s *Store) SetState(publicKey []byte, state State) error {
	s.mu.Lock()
	c := s.findLocked(publicKey)
	if c == nil {
		s.mu.Unlock()
		return ErrNotFound
	}

	old := c.State
	c.State = state
	if state == StateOnline {
		c.LastSeen = s.timeProvider.Now()
	}
	change := StateChange{
		PublicKey: append([]byte(nil), c.PublicKey...),
		Name:      c.Name,
		Old:       old,
		New:       state,
	}
	if old != state {
		s.notifyLocked(change)
	}
	s.mu.Unlock()

	if old != state {
		logrus.WithFields(logrus.Fields{
			"function":    "SetState",
			"fingerprint": c.Fingerprint(),
			"old_state":   old.String(),
			"new_state":   state.String(),
		}).Debug("Contact state changed")
	}
	return nil
}

// SetBlocked sets or clears the blocked flag.
func (s *Store) SetBlocked(publicKey []byte, blocked bool) error {
	return s.mutate(publicKey, func(c *Contact) error {
		c.Blocked = blocked
		logrus.WithFields(logrus.Fields{
			"function":    "SetBlocked",
			"fingerprint": c.Fingerprint(),
			"blocked":     blocked,
		}).Info("Contact block flag changed")
		return nil
	})
}

// SetLastWorkingAddress records the endpoint that most recently reached the contact.
func (s *Store) SetLastWorkingAddress(publicKey []byte, ep transport.Endpoint) error {
	return s.mutate(publicKey, func(c *Contact) error {
		c.LastWorkingAddress = &ep
		return nil
	})
}

// Rename changes the display name. Names must stay unique among named contacts.
func (s *Store) Rename(publicKey []byte, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findLocked(publicKey)
	if c == nil {
		return ErrNotFound
	}
	if name != "" {
		for _, other := range s.contacts {
			if other != c && other.Name == name {
				return fmt.Errorf("%w: %q", ErrNameTaken, name)
			}
		}
	}
	c.Name = name
	return nil
}

// SetAddresses replaces the address list, deduplicating case-insensitively.
func (s *Store) SetAddresses(publicKey []byte, addresses []string) error {
	updated := &Contact{}
	for _, a := range addresses {
		updated.AddAddress(a)
	}
	return s.mutate(publicKey, func(c *Contact) error {
		probe := c.Clone()
		probe.Addresses = updated.Addresses
		if err := probe.Validate(); err != nil {
			return err
		}
		c.Addresses = updated.Addresses
		return nil
	})
}

// Snapshot returns copies of all contacts in insertion order.
func (s *Store) Snapshot() []*Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Contact, len(s.contacts))
	for i, c := range s.contacts {
		out[i] = c.Clone()
	}
	return out
}

// Subscribe registers for state change notifications. Events are dropped for a
// subscriber whose buffer is full. The returned function unsubscribes and
// closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan StateChange, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan StateChange, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notifyLocked(change StateChange) {
	for id, ch := range s.subscribers {
		select {
		case ch <- change:
		default:
			logrus.WithFields(logrus.Fields{
				"function":   "notify",
				"subscriber": id,
				"new_state":  change.New.String(),
			}).Warn("Subscriber buffer full, dropping state change")
		}
	}
}

func (s *Store) mutate(publicKey []byte, fn func(*Contact) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(publicKey)
	if c == nil {
		return ErrNotFound
	}
	return fn(c)
}

func (s *Store) findLocked(publicKey []byte) *Contact {
	for _, c := range s.contacts {
		if c.HasPublicKey(publicKey) {
			return c
		}
	}
	return nil
}

func validName(name string) error {
	if err := limits.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContact, err)
	}
	for _, r := range name {
		if r < 0x20 {
			return fmt.Errorf("%w: control character in name", ErrInvalidContact)
		}
	}
	return nil
}
