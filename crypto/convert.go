package crypto

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
)

// curveKeySize is the size of X25519 public and private keys in bytes.
const curveKeySize = 32

// PublicKeyToCurve25519 converts an Ed25519 public key to the X25519 key used
// for sealed boxes, via the Edwards-to-Montgomery birational map.
func PublicKeyToCurve25519(edPub []byte) ([curveKeySize]byte, error) {
	var out [curveKeySize]byte
	if len(edPub) != ed25519.PublicKeySize {
		return out, fmt.Errorf("%w: public key size %d, want %d", ErrInvalidKey, len(edPub), ed25519.PublicKeySize)
	}

	point, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	copy(out[:], point.BytesMontgomery())
	return out, nil
}

// SecretKeyToCurve25519 converts an Ed25519 secret key to a clamped X25519 scalar.
// The result is owned by the caller, who must Wipe it.
func SecretKeyToCurve25519(edSecret []byte) (*SecretBuffer, error) {
	if len(edSecret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: secret key size %d, want %d", ErrInvalidKey, len(edSecret), ed25519.PrivateKeySize)
	}

	h := sha512.Sum512(edSecret[:ed25519.SeedSize])
	defer ZeroBytes(h[:])

	out := NewSecretBuffer(curveKeySize)
	k := out.Bytes()
	copy(k, h[:curveKeySize])
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
	return out, nil
}
