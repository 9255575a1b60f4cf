package contact

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// exchangeDoc is the QR/JSON contact exchange document.
type exchangeDoc struct {
	Name      string   `json:"name"`
	PublicKey string   `json:"public_key"`
	Addresses []string `json:"addresses"`
}

// ExportJSON renders the exchange document for c.
func ExportJSON(c *Contact) ([]byte, error) {
	doc := exchangeDoc{
		Name:      c.Name,
		PublicKey: hex.EncodeToString(c.PublicKey),
		Addresses: c.Addresses,
	}
	if doc.Addresses == nil {
		doc.Addresses = []string{}
	}
	return json.Marshal(doc)
}

// ImportJSON parses an exchange document into a new PENDING contact.
func ImportJSON(data []byte) (*Contact, error) {
	var doc exchangeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContact, err)
	}
	key, err := hex.DecodeString(doc.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not hex", ErrInvalidContact)
	}

	c, err := New(doc.Name, key)
	if err != nil {
		return nil, err
	}
	for _, a := range doc.Addresses {
		c.AddAddress(a)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
