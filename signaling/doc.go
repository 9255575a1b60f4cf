// Package signaling implements the meshcall call-signaling protocol.
//
// Every message is a small JSON object (Message) sealed into an envelope by
// the crypto package and sent as one length-prefixed frame. A Channel binds
// a connection to one peer identity; frames signed by any other key are
// rejected.
//
// # Calls
//
// The caller sends call, the callee answers ringing and later connected or
// dismissed. Call tracks the state machine
//
//	CONNECTING -> RINGING -> CONNECTED -> {DISMISSED | ENDED | ERROR}
//
// and publishes every transition on Call.States. Terminal states are sticky
// and close the connection. At most one call exists at a time; CallSlot
// enforces this and a second attempt fails with ErrCallInProgress.
//
//	call, err := engine.StartCall(ctx, bobKey, offerSDP)
//	if err != nil {
//	    return err
//	}
//	for state := range call.States() {
//	    fmt.Println(state)
//	}
//
// Incoming calls arrive on Engine.IncomingCalls already ringing; the
// application answers with Accept or Decline.
//
// # Liveness
//
// PingContacts probes every unblocked contact with ping/pong and stores
// ONLINE or OFFLINE; BroadcastOffline announces shutdown to ONLINE contacts.
//
// # Metrics
//
// Engine counters and histograms are registered on Config.Registerer using
// github.com/prometheus/client_golang.
package signaling
