// Package contact holds the known-contacts registry for meshcall.
//
// A Contact is identified by its Ed25519 public key; the key is the merge key
// for every store operation and never changes once set. Names, addresses and
// the blocked flag are user data. State, LastWorkingAddress and LastSeen are
// runtime data maintained by the signaling layer.
//
// # Store
//
// Store guards the contact list with a single mutex. Every accessor returns a
// deep copy, so callers can iterate or keep results without racing the accept
// loop or the ping sweep:
//
//	store := contact.NewStore()
//	c, _ := contact.New("alice", alicePub)
//	c.AddAddress("00:11:22:33:44:55")
//	store.Upsert(c)
//
//	changes, cancel := store.Subscribe(16)
//	defer cancel()
//	for ch := range changes {
//	    fmt.Println(ch.Name, ch.Old, "->", ch.New)
//	}
//
// # Exchange format
//
// ExportJSON and ImportJSON read and write the compact JSON document carried in
// contact QR codes: {"name": ..., "public_key": <hex>, "addresses": [...]}.
//
// # Deterministic Testing
//
// Use NewStoreWithTimeProvider to control LastSeen timestamps in tests.
package contact
