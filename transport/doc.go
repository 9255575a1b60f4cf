// Package transport provides the byte-stream plumbing of meshcall: frame
// encoding, endpoint derivation for contacts, and connection establishment.
//
// # Framing
//
// Every message on a signaling connection is a frame:
//
//	[length: 4 bytes big-endian][payload: length bytes]
//
// WriteMessage emits one frame per call. MessageReader reassembles frames from
// arbitrary read boundaries using a fixed buffer and rejects headers larger than
// limits.MaxFrameSize:
//
//	r := transport.NewMessageReader(conn)
//	for {
//	    msg, err := r.ReadMessage()
//	    if err != nil || msg == nil {
//	        return // error, or peer closed cleanly
//	    }
//	    handle(msg)
//	}
//
// # Addresses and Endpoints
//
// Contacts store addresses as strings. ParseConnectionData classifies each one
// into a ConnectionData variant (hostname, link-local MAC, or explicit
// host:port / multiaddr). AddressResolver expands MAC addresses into EUI-64
// IPv6 candidates using the local interfaces as templates and into whatever the
// kernel neighbor table maps to the MAC, then deduplicates and orders the result:
//
//	resolver := transport.NewAddressResolver(transport.DefaultPort)
//	endpoints := resolver.ResolveEndpoints(contactAddresses, lastWorking)
//
// # Connecting
//
// EndpointDialer tries the ordered endpoints one at a time with a short
// per-attempt timeout and returns the first live connection:
//
//	conn, winner, err := transport.NewEndpointDialer(500*time.Millisecond).
//	    DialEndpoints(ctx, endpoints)
//
// # Accept Rate Limiting
//
// AcceptLimiter keeps a token bucket per remote IP for the signaling server's
// accept loop.
package transport
