package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIdentity(t *testing.T) *Identity {
	t.Helper()
	id, err := GenerateIdentity()
	require.NoError(t, err)
	return id
}

func TestEnvelopeRoundTrip(t *testing.T) {
	alice := mustIdentity(t)
	bob := mustIdentity(t)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"Empty plaintext", []byte{}},
		{"Short JSON", []byte(`{"action":"ping"}`)},
		{"Binary", bytes.Repeat([]byte{0x00, 0xff}, 500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := EncryptEnvelope(tt.plaintext, alice.PublicKey, alice.SecretKey, bob.PublicKey)
			require.NoError(t, err)

			sender, plaintext, err := DecryptEnvelope(sealed, bob.PublicKey, bob.SecretKey)
			require.NoError(t, err)
			assert.Equal(t, []byte(alice.PublicKey), sender)
			assert.True(t, bytes.Equal(tt.plaintext, plaintext))
		})
	}
}

func TestEnvelopeWrongRecipient(t *testing.T) {
	alice := mustIdentity(t)
	bob := mustIdentity(t)
	eve := mustIdentity(t)

	sealed, err := EncryptEnvelope([]byte("hello"), alice.PublicKey, alice.SecretKey, bob.PublicKey)
	require.NoError(t, err)

	sender, plaintext, err := DecryptEnvelope(sealed, eve.PublicKey, eve.SecretKey)
	assert.True(t, errors.Is(err, ErrDecryption))
	assert.Nil(t, sender)
	assert.Nil(t, plaintext)
}

// TestEnvelopeBitFlip flips every bit of a valid envelope in turn; none may decrypt.
func TestEnvelopeBitFlip(t *testing.T) {
	alice := mustIdentity(t)
	bob := mustIdentity(t)

	sealed, err := EncryptEnvelope([]byte(`{"action":"call","offer":"v=0"}`), alice.PublicKey, alice.SecretKey, bob.PublicKey)
	require.NoError(t, err)

	for i := 0; i < len(sealed)*8; i++ {
		tampered := append([]byte(nil), sealed...)
		tampered[i/8] ^= 1 << (i % 8)

		sender, plaintext, err := DecryptEnvelope(tampered, bob.PublicKey, bob.SecretKey)
		if err == nil {
			t.Fatalf("bit %d flipped but envelope still decrypted", i)
		}
		if sender != nil || plaintext != nil {
			t.Fatalf("bit %d: partial output returned on failure", i)
		}
	}
}

// TestEnvelopeForgedSender seals a message that claims to come from alice but is
// signed by eve. The sealed box opens; the signature check must reject it.
func TestEnvelopeForgedSender(t *testing.T) {
	alice := mustIdentity(t)
	bob := mustIdentity(t)
	eve := mustIdentity(t)

	sealed, err := EncryptEnvelope([]byte("hi"), eve.PublicKey, eve.SecretKey, bob.PublicKey)
	require.NoError(t, err)

	// Re-seal the content with alice's key swapped in as the claimed sender.
	_, _, err = DecryptEnvelope(sealed, bob.PublicKey, bob.SecretKey)
	require.NoError(t, err)

	curveSecret, err := SecretKeyToCurve25519(bob.SecretKey)
	require.NoError(t, err)
	defer curveSecret.Wipe()
	bobCurve, err := PublicKeyToCurve25519(bob.PublicKey)
	require.NoError(t, err)

	forged := forgeEnvelope(t, sealed, &bobCurve, curveSecret.Bytes(), alice.PublicKey)
	_, _, err = DecryptEnvelope(forged, bob.PublicKey, bob.SecretKey)
	assert.True(t, errors.Is(err, ErrDecryption))
}

func TestEncryptEnvelopeInvalidKeys(t *testing.T) {
	alice := mustIdentity(t)
	bob := mustIdentity(t)

	tests := []struct {
		name         string
		senderPub    []byte
		senderSecret []byte
		recipient    []byte
	}{
		{"Short sender key", alice.PublicKey[:16], alice.SecretKey, bob.PublicKey},
		{"Short secret key", alice.PublicKey, alice.SecretKey[:32], bob.PublicKey},
		{"Empty recipient", alice.PublicKey, alice.SecretKey, nil},
		{"Mismatched sender pair", bob.PublicKey, alice.SecretKey, bob.PublicKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := EncryptEnvelope([]byte("x"), tt.senderPub, tt.senderSecret, tt.recipient)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, ErrEncryption))
			assert.True(t, errors.Is(err, ErrInvalidKey))
		})
	}
}

func TestDecryptEnvelopeShortInput(t *testing.T) {
	bob := mustIdentity(t)
	_, _, err := DecryptEnvelope(make([]byte, envelopeMinSize-1), bob.PublicKey, bob.SecretKey)
	assert.True(t, errors.Is(err, ErrDecryption))
}

func TestIdentityFromSecretKey(t *testing.T) {
	id := mustIdentity(t)

	restored, err := IdentityFromSecretKey(id.SecretKey)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey, restored.PublicKey)
	assert.Equal(t, id.Fingerprint(), restored.Fingerprint())

	corrupted := append([]byte(nil), id.SecretKey...)
	corrupted[40] ^= 0xff
	_, err = IdentityFromSecretKey(corrupted)
	assert.True(t, errors.Is(err, ErrInvalidKey))

	_, err = IdentityFromSecretKey(id.SecretKey[:10])
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestFingerprintRoundTrip(t *testing.T) {
	id := mustIdentity(t)

	fp := Fingerprint(id.PublicKey)
	require.NotEmpty(t, fp)
	assert.Len(t, ShortFingerprint(id.PublicKey), 8)

	key, err := ParseFingerprint(fp)
	require.NoError(t, err)
	assert.Equal(t, []byte(id.PublicKey), key)

	_, err = ParseFingerprint("0OIl")
	assert.Error(t, err)
	assert.Equal(t, "", Fingerprint(nil))
}
