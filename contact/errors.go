package contact

import "errors"

var (
	// ErrNotFound is returned when no contact has the requested public key.
	ErrNotFound = errors.New("contact not found")
	// ErrInvalidContact is returned for contacts with a bad key, name or address.
	ErrInvalidContact = errors.New("invalid contact")
	// ErrNameTaken is returned by Rename when another contact uses the name.
	ErrNameTaken = errors.New("contact name already in use")
)
