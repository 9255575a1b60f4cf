// Package meshcall is a peer-to-peer encrypted calling core for local and mesh
// networks.
//
// Contacts are identified by Ed25519 public keys and reached directly through
// their MAC, IP or hostname addresses, without a central server. A Meshcall
// instance owns the local identity, the contact store, the user settings and
// the single call slot, and runs the signaling engine on TCP port 10001.
//
// # Getting Started
//
//	opts := meshcall.NewOptions()
//	opts.Settings.Username = "alice"
//
//	mc, err := meshcall.New(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mc.Kill()
//
//	if err := mc.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    for call := range mc.IncomingCalls() {
//	        call.Accept(answerSDP)
//	    }
//	}()
//
// # Persistence
//
// Savedata and Save serialize the identity, settings and contacts. With a
// password the blob is encrypted with an Argon2id-derived key; LoadOptions
// reads a YAML options file.
//
// # Packages
//
//	crypto     identities, sealed envelopes, database blobs
//	transport  framing, endpoints, address resolution, dialing
//	contact    contacts and the contact store
//	signaling  call state machine, server loop, ping sweep
//	limits     size limits shared by all layers
package meshcall
