package state

import "errors"

var (
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrUnreachable     = errors.New("destination unreachable")
	ErrStaleWithdrawal = errors.New("withdrawal for unknown destination")
	ErrLinkClosed      = errors.New("link closed")
	ErrNotRunning      = errors.New("node is not running")
	ErrSelfDestination = errors.New("destination is this node")
	ErrZeroNodeId      = errors.New("node id must not be zero")
)
