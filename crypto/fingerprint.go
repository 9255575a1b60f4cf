package crypto

import "github.com/mr-tron/base58"

// Fingerprint renders a public key as base58. It is the compact form used in
// log fields and contact exchange.
func Fingerprint(publicKey []byte) string {
	if len(publicKey) == 0 {
		return ""
	}
	return base58.Encode(publicKey)
}

// ShortFingerprint returns the first 8 characters of Fingerprint.
func ShortFingerprint(publicKey []byte) string {
	fp := Fingerprint(publicKey)
	if len(fp) > 8 {
		return fp[:8]
	}
	return fp
}

// ParseFingerprint decodes a base58 fingerprint back into a public key.
func ParseFingerprint(fp string) ([]byte, error) {
	key, err := base58.Decode(fp)
	if err != nil {
		return nil, err
	}
	if err := ValidatePublicKey(key); err != nil {
		return nil, err
	}
	return key, nil
}
