package crypto

import (
	"crypto/rand"
	"testing"

	"golang.org/x/crypto/nacl/box"
)

// forgeEnvelope opens a valid envelope, replaces the claimed sender key and
// reseals it to the same recipient without re-signing.
func forgeEnvelope(t *testing.T, sealed []byte, recipientPub *[32]byte, recipientSecret []byte, claimed []byte) []byte {
	t.Helper()

	opened, ok := box.OpenAnonymous(nil, sealed, recipientPub, (*[32]byte)(recipientSecret))
	if !ok {
		t.Fatal("failed to open envelope for forging")
	}
	copy(opened[:PublicKeySize], claimed)

	forged, err := box.SealAnonymous(nil, opened, recipientPub, rand.Reader)
	if err != nil {
		t.Fatalf("failed to reseal forged envelope: %v", err)
	}
	return forged
}
