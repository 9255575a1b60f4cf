package meshcall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshcall/contact"
	"github.com/opd-ai/meshcall/crypto"
	"github.com/opd-ai/meshcall/limits"
)

// SaveData is the persisted state of a Meshcall instance.
type SaveData struct {
	SecretKey []byte             `json:"secret_key"`
	Settings  Settings           `json:"settings"`
	Contacts  []*contact.Contact `json:"contacts"`
	Timestamp int64              `json:"timestamp"`
}

// Savedata serializes the identity, settings and contacts. With a non-empty
// password the result is an encrypted database blob, otherwise plain JSON.
func (m *Meshcall) Savedata(password []byte) ([]byte, error) {
	m.mu.Lock()
	if m.killed {
		m.mu.Unlock()
		return nil, ErrKilled
	}
	secret := append([]byte(nil), m.identity.SecretKey...)
	m.mu.Unlock()
	defer crypto.ZeroBytes(secret)

	data := &SaveData{
		SecretKey: secret,
		Settings:  m.Settings(),
		Contacts:  m.store.Snapshot(),
		Timestamp: time.Now().Unix(),
	}
	plain, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return plain, nil
	}
	defer crypto.ZeroBytes(plain)
	return crypto.EncryptDatabase(plain, password)
}

// Save writes Savedata to path atomically: a temporary file in the same
// directory is synced and renamed over path.
func (m *Meshcall) Save(path string, password []byte) error {
	blob, err := m.Savedata(password)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Save",
		"path":      path,
		"encrypted": len(password) > 0,
		"size":      len(blob),
	}).Info("Saved state")
	return nil
}

// Load reads a file written by Save and restores its settings and contacts.
// The file must belong to this instance's identity.
func (m *Meshcall) Load(path string, password []byte) error {
	m.mu.Lock()
	killed := m.killed
	m.mu.Unlock()
	if killed {
		return ErrKilled
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > limits.MaxDatabaseSize {
		return fmt.Errorf("%w: file too large", ErrInvalidSaveData)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data, err := decodeSaveData(blob, password)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(data.SecretKey)
	if !bytes.Equal(data.SecretKey, m.identity.SecretKey) {
		return ErrIdentityChanged
	}

	m.SetSettings(data.Settings)
	m.restoreContacts(data.Contacts)

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
		"contacts": len(data.Contacts),
	}).Info("Loaded state")
	return nil
}

// decodeSaveData accepts both plain JSON and encrypted database blobs; the
// latter start with the zero header.
func decodeSaveData(blob, password []byte) (*SaveData, error) {
	plain := blob
	if len(blob) >= crypto.DatabaseHeaderSize && bytes.Equal(blob[:crypto.DatabaseHeaderSize], make([]byte, crypto.DatabaseHeaderSize)) {
		var err error
		plain, err = crypto.DecryptDatabase(blob, password)
		if err != nil {
			return nil, err
		}
		defer crypto.ZeroBytes(plain)
	}

	var data SaveData
	if err := json.Unmarshal(plain, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSaveData, err)
	}
	if len(data.SecretKey) != crypto.SecretKeySize {
		return nil, fmt.Errorf("%w: missing secret key", ErrInvalidSaveData)
	}
	return &data, nil
}
