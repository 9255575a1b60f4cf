package crypto

import (
	"testing"
)

func TestSecureWipe(t *testing.T) {
	id, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("Failed to generate identity: %v", err)
	}

	if isAllZero(id.SecretKey) {
		t.Fatalf("Secret key is all zeros before wiping, test cannot proceed")
	}

	id.Wipe()

	if !isAllZero(id.SecretKey) {
		t.Fatalf("Secret key data was not securely wiped")
	}

	if err := SecureWipe(nil); err == nil {
		t.Errorf("SecureWipe(nil) should return an error")
	}
}

func TestSecretBuffer(t *testing.T) {
	buf := NewSecretBuffer(32)
	if buf.Len() != 32 {
		t.Fatalf("Len() = %d, want 32", buf.Len())
	}

	raw := buf.Bytes()
	for i := range raw {
		raw[i] = 0xAA
	}

	buf.Wipe()

	if !isAllZero(raw) {
		t.Errorf("underlying slice not zeroed after Wipe")
	}
	if buf.Bytes() != nil || buf.Len() != 0 {
		t.Errorf("buffer still exposes data after Wipe")
	}

	// Second wipe and nil receivers must be harmless.
	buf.Wipe()
	var nilBuf *SecretBuffer
	nilBuf.Wipe()
	if nilBuf.Bytes() != nil {
		t.Errorf("nil buffer returned data")
	}
}

func TestSecretKeyToCurve25519Clamped(t *testing.T) {
	id, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("Failed to generate identity: %v", err)
	}

	k, err := SecretKeyToCurve25519(id.SecretKey)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	defer k.Wipe()

	b := k.Bytes()
	if b[0]&7 != 0 || b[31]&128 != 0 || b[31]&64 == 0 {
		t.Errorf("converted scalar is not clamped: %x", b)
	}
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
