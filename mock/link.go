package mock

import (
	"sync"

	"github.com/encodeous/strand/state"
	"github.com/google/uuid"
)

// Link records every frame sent on it instead of delivering it
type Link struct {
	VId   uuid.UUID
	VNode state.NodeId

	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func NewLink(neigh state.NodeId) *Link {
	return &Link{VId: uuid.New(), VNode: neigh}
}

func (m *Link) Id() uuid.UUID {
	return m.VId
}

func (m *Link) Node() state.NodeId {
	return m.VNode
}

func (m *Link) Send(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return state.ErrLinkClosed
	}
	m.sent = append(m.sent, append([]byte(nil), frame...))
	return nil
}

func (m *Link) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of the frames sent so far
func (m *Link) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]string, 0, len(m.sent))
	for _, f := range m.sent {
		res = append(res, string(f))
	}
	return res
}

// Take returns the frames sent so far and forgets them
func (m *Link) Take() []string {
	res := m.Sent()
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
	return res
}
