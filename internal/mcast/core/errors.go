package core

import "errors"

// Sentinel errors. ErrNotAdvertisable surfaces to a caller (from Start);
// ErrUnsupportedProtocol is returned by CheckProtocolVersion and handled
// internally by HandleInbound, which drops the offending frame rather than
// propagating the error further.
var (
	// ErrNotAdvertisable is returned when a transport cannot resolve a
	// concrete, dialable address for itself from its bind address.
	ErrNotAdvertisable = errors.New("mcast: transport has no advertisable address")

	// ErrUnsupportedProtocol is returned when a peer receives a frame
	// whose protocol version this build cannot handle.
	ErrUnsupportedProtocol = errors.New("mcast: protocol version not supported")
)
