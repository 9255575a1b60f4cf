package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// envelopeMinSize is the smallest ciphertext that can hold a sender key and a signature.
const envelopeMinSize = box.AnonymousOverhead + PublicKeySize + SignatureSize

// EncryptEnvelope signs plaintext with the sender identity, prefixes the sender
// public key and seals the result anonymously to the recipient.
//
// Layout inside the sealed box: senderPub(32) || signature(64) || plaintext.
// The recipient Ed25519 key is converted to X25519 for sealing.
func EncryptEnvelope(plaintext, senderPub, senderSecret, recipientPub []byte) ([]byte, error) {
	logger := NewLogger("EncryptEnvelope")

	if len(senderPub) != PublicKeySize || len(senderSecret) != SecretKeySize || len(recipientPub) != PublicKeySize {
		logger.WithFields(OperationFields("validate_keys", "failed")).Warn("Wrong key length")
		return nil, fmt.Errorf("%w: %w", ErrEncryption, ErrInvalidKey)
	}
	if !bytes.Equal(senderSecret[ed25519.SeedSize:], senderPub) {
		return nil, fmt.Errorf("%w: %w: sender keys do not belong together", ErrEncryption, ErrInvalidKey)
	}

	recipientCurve, err := PublicKeyToCurve25519(recipientPub)
	if err != nil {
		logger.WithError(err, "invalid_key", "convert_recipient").Warn("Recipient key conversion failed")
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	signature := ed25519.Sign(ed25519.PrivateKey(senderSecret), plaintext)

	data := NewSecretBuffer(PublicKeySize + SignatureSize + len(plaintext))
	defer data.Wipe()
	buf := data.Bytes()
	copy(buf, senderPub)
	copy(buf[PublicKeySize:], signature)
	copy(buf[PublicKeySize+SignatureSize:], plaintext)

	sealed, err := box.SealAnonymous(nil, buf, &recipientCurve, rand.Reader)
	if err != nil {
		logger.WithError(err, "seal_failure", "seal_anonymous").Error("Sealing envelope failed")
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	logger.WithFields(OperationFields("seal", "success", KeyFields(recipientPub, "recipient"))).
		WithField("ciphertext_size", len(sealed)).
		Debug("Envelope sealed")
	return sealed, nil
}

// DecryptEnvelope opens an envelope addressed to the own identity and returns the
// sender public key together with the plaintext.
//
// The sender key is read from inside the sealed box and is only returned after
// the embedded signature verifies under that same key. Any failure yields
// ErrDecryption and no plaintext.
func DecryptEnvelope(ciphertext, ownPub, ownSecret []byte) (senderPub, plaintext []byte, err error) {
	logger := NewLogger("DecryptEnvelope")

	if len(ownPub) != PublicKeySize || len(ownSecret) != SecretKeySize {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecryption, ErrInvalidKey)
	}
	if len(ciphertext) < envelopeMinSize {
		return nil, nil, fmt.Errorf("%w: ciphertext size %d below minimum %d", ErrDecryption, len(ciphertext), envelopeMinSize)
	}

	ownCurvePub, err := PublicKeyToCurve25519(ownPub)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	ownCurveSecret, err := SecretKeyToCurve25519(ownSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	defer ownCurveSecret.Wipe()

	opened, ok := box.OpenAnonymous(nil, ciphertext, &ownCurvePub, (*[curveKeySize]byte)(ownCurveSecret.Bytes()))
	if !ok {
		logger.WithFields(OperationFields("open", "failed")).Debug("Sealed box did not open")
		return nil, nil, fmt.Errorf("%w: sealed box authentication failed", ErrDecryption)
	}
	data := SecretBufferFrom(opened)
	defer data.Wipe()

	buf := data.Bytes()
	if len(buf) < PublicKeySize+SignatureSize {
		return nil, nil, fmt.Errorf("%w: signed content too short", ErrDecryption)
	}

	claimed := buf[:PublicKeySize]
	signature := buf[PublicKeySize : PublicKeySize+SignatureSize]
	message := buf[PublicKeySize+SignatureSize:]

	if !ed25519.Verify(ed25519.PublicKey(claimed), message, signature) {
		logger.WithFields(OperationFields("verify", "failed", KeyFields(claimed, "claimed_sender"))).
			Warn("Envelope signature does not match claimed sender")
		return nil, nil, fmt.Errorf("%w: signature verification failed", ErrDecryption)
	}

	senderPub = append([]byte(nil), claimed...)
	plaintext = append([]byte(nil), message...)
	return senderPub, plaintext, nil
}
