package state

// Listener receives link lifecycle events and frames from a Transport. Implementations must not
// block for long; events may arrive concurrently from different links.
type Listener interface {
	LinkConnected(link Link)
	LinkDisconnected(link Link)
	LinkReceivedFrame(link Link, frame []byte)
}

// Transport establishes links to neighbours. How a link is physically set up is opaque to the
// node.
type Transport interface {
	Start(l Listener) error
	Stop() error
}
