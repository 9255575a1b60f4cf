package contact

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/opd-ai/meshcall/crypto"
	"github.com/opd-ai/meshcall/limits"
	"github.com/opd-ai/meshcall/transport"
)

// State is the liveness state of a contact.
type State uint8

const (
	// StatePending means the contact has not been probed yet.
	StatePending State = iota
	StateOnline
	StateOffline
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateOnline:
		return "ONLINE"
	case StateOffline:
		return "OFFLINE"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Contact is a remote peer known by its public key.
type Contact struct {
	Name               string              `json:"name"`
	PublicKey          []byte              `json:"public_key"`
	Addresses          []string            `json:"addresses,omitempty"`
	Blocked            bool                `json:"blocked,omitempty"`
	LastWorkingAddress *transport.Endpoint `json:"last_working_address,omitempty"`

	State    State     `json:"-"`
	LastSeen time.Time `json:"-"`
}

// New creates a contact after validating the name and public key.
func New(name string, publicKey []byte) (*Contact, error) {
	c := &Contact{
		Name:      name,
		PublicKey: append([]byte(nil), publicKey...),
		State:     StatePending,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewPlaceholder creates the nameless contact used for unknown callers.
func NewPlaceholder(publicKey []byte) *Contact {
	return &Contact{PublicKey: append([]byte(nil), publicKey...), State: StatePending}
}

// Validate checks the public key, the name length and every address length.
func (c *Contact) Validate() error {
	if err := crypto.ValidatePublicKey(c.PublicKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContact, err)
	}
	if err := limits.ValidateName(c.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContact, err)
	}
	for _, a := range c.Addresses {
		if a == "" || len(a) > limits.MaxAddressLength {
			return fmt.Errorf("%w: bad address %q", ErrInvalidContact, a)
		}
	}
	return nil
}

// HasPublicKey reports whether the contact is identified by key.
func (c *Contact) HasPublicKey(key []byte) bool {
	return bytes.Equal(c.PublicKey, key)
}

// Fingerprint returns the short base58 fingerprint used in logs.
func (c *Contact) Fingerprint() string {
	return crypto.ShortFingerprint(c.PublicKey)
}

// AddAddress appends address unless an equal one (ignoring case) is present.
// It reports whether the address was added.
func (c *Contact) AddAddress(address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}
	for _, a := range c.Addresses {
		if strings.EqualFold(a, address) {
			return false
		}
	}
	c.Addresses = append(c.Addresses, address)
	return true
}

// RemoveAddress deletes address (ignoring case) and reports whether it was present.
func (c *Contact) RemoveAddress(address string) bool {
	for i, a := range c.Addresses {
		if strings.EqualFold(a, address) {
			c.Addresses = append(c.Addresses[:i], c.Addresses[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}
	out := *c
	out.PublicKey = append([]byte(nil), c.PublicKey...)
	if c.Addresses != nil {
		out.Addresses = append([]string(nil), c.Addresses...)
	}
	if c.LastWorkingAddress != nil {
		ep := *c.LastWorkingAddress
		out.LastWorkingAddress = &ep
	}
	return &out
}
