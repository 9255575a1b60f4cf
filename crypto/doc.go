// Package crypto implements the cryptographic primitives of the meshcall protocol.
//
// Every signaling message travels inside an envelope: the plaintext is signed with
// the sender's Ed25519 identity, the sender public key is prepended, and the whole
// is sealed anonymously (NaCl sealed box) to the recipient's key converted to X25519.
// The sealed box hides the content, the signature authenticates the sender. There is
// no certificate chain; the verified envelope signature is the only identity assertion
// in the protocol.
//
// # Identities
//
//	id, err := crypto.GenerateIdentity()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer id.Wipe()
//
// # Envelopes
//
//	sealed, err := crypto.EncryptEnvelope(msg, me.PublicKey, me.SecretKey, peerPub)
//	sender, msg, err := crypto.DecryptEnvelope(sealed, me.PublicKey, me.SecretKey)
//
// DecryptEnvelope returns a sender key only after the signature verifies under it.
//
// # Database Blobs
//
// EncryptDatabase and DecryptDatabase protect the saved contact list with a password:
//
//	00 00 00 00 | salt (16) | nonce (24) | secretbox ciphertext + MAC
//
// The key is derived with argon2id. The reserved header must be zero.
//
// # Secure Memory Handling
//
// SecretBuffer owns derived keys and intermediate plaintexts and zeroes them on Wipe.
// Converted X25519 secrets, signed buffers and database keys are wiped on both the
// success and the failure path.
package crypto
