package mem

import (
	"fmt"
	"sync"

	"github.com/encodeous/strand/state"
)

// Transport is the view of a Network from a single node
type Transport struct {
	net *Network
	id  state.NodeId

	mu sync.Mutex
	l  state.Listener
}

func (t *Transport) Id() state.NodeId {
	return t.id
}

func (t *Transport) Start(l state.Listener) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.l != nil {
		return fmt.Errorf("mem transport for %s is already started", t.id)
	}
	t.l = l
	return nil
}

// Stop closes every link of this node and waits until their queues are drained
func (t *Transport) Stop() error {
	pairs := t.net.pairsOf(t.id)
	for _, p := range pairs {
		p.close()
	}
	for _, p := range pairs {
		p.flush()
	}
	t.mu.Lock()
	t.l = nil
	t.mu.Unlock()
	return nil
}

func (t *Transport) listener() state.Listener {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.l
}
