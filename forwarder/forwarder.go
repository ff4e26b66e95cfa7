package forwarder

// Header precedes every datagram on the wire.
type Header struct {
	Type uint8
}

const (
	// TypeSnapshot carries the interpreted engine/gear/LED state.
	TypeSnapshot = 1
)
