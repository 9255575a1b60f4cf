package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// PublicKeySize is the size of an identity public key in bytes.
	PublicKeySize = ed25519.PublicKeySize
	// SecretKeySize is the size of an identity secret key (seed || public key).
	SecretKeySize = ed25519.PrivateKeySize
	// SignatureSize is the size of an Ed25519 signature in bytes.
	SignatureSize = ed25519.SignatureSize
)

// Identity is the local Ed25519 signing keypair. The public key doubles as the
// address of this node in every contact list.
type Identity struct {
	PublicKey ed25519.PublicKey
	SecretKey ed25519.PrivateKey
}

// GenerateIdentity creates a fresh random identity.
// The only failure mode is an unavailable random source, which is fatal to the host.
func GenerateIdentity() (*Identity, error) {
	logger := NewLogger("GenerateIdentity")

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logger.WithError(err, "rng_failure", "ed25519_generate").Error("Identity generation failed")
		return nil, fmt.Errorf("generate identity: %w", err)
	}

	logger.WithFields(KeyFields(pub, "public_key")).Info("Identity generated")
	return &Identity{PublicKey: pub, SecretKey: priv}, nil
}

// IdentityFromSecretKey rebuilds an identity from a saved 64-byte secret key.
// The embedded public key must match the one derived from the seed.
func IdentityFromSecretKey(secretKey []byte) (*Identity, error) {
	if len(secretKey) != SecretKeySize {
		return nil, fmt.Errorf("%w: secret key size %d, want %d", ErrInvalidKey, len(secretKey), SecretKeySize)
	}

	priv := ed25519.NewKeyFromSeed(secretKey[:ed25519.SeedSize])
	if !bytes.Equal(priv[ed25519.SeedSize:], secretKey[ed25519.SeedSize:]) {
		ZeroBytes(priv)
		return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidKey)
	}

	pub := make(ed25519.PublicKey, PublicKeySize)
	copy(pub, priv[ed25519.SeedSize:])
	return &Identity{PublicKey: pub, SecretKey: priv}, nil
}

// Fingerprint returns the base58 rendering of the identity public key.
func (id *Identity) Fingerprint() string {
	return Fingerprint(id.PublicKey)
}

// Wipe zeroes the secret key. The identity is unusable afterwards.
func (id *Identity) Wipe() {
	if id == nil {
		return
	}
	ZeroBytes(id.SecretKey)
}

// ValidatePublicKey checks that key is a 32-byte encoding of a valid Ed25519 point.
func ValidatePublicKey(key []byte) error {
	if len(key) != PublicKeySize {
		return fmt.Errorf("%w: public key size %d, want %d", ErrInvalidKey, len(key), PublicKeySize)
	}
	if _, err := new(edwards25519.Point).SetBytes(key); err != nil {
		return fmt.Errorf("%w: not a valid curve point", ErrInvalidKey)
	}
	return nil
}
