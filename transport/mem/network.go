// Package mem connects nodes of one process with in-memory links. Each direction of a link is a
// phony actor, so frames arrive in send order and a sender never blocks on the receiver.
package mem

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/encodeous/strand/state"
)

// Network is a set of in-memory transports that can be wired together in any topology
type Network struct {
	// Latency delays every frame on every link
	Latency time.Duration
	Log     *slog.Logger

	mu         sync.Mutex
	transports map[state.NodeId]*Transport
	pairs      map[state.Pair[state.NodeId, state.NodeId]][]*pair
}

func NewNetwork(latency time.Duration, log *slog.Logger) *Network {
	if log == nil {
		log = slog.Default()
	}
	return &Network{
		Latency:    latency,
		Log:        log.With("transport", "mem"),
		transports: make(map[state.NodeId]*Transport),
		pairs:      make(map[state.Pair[state.NodeId, state.NodeId]][]*pair),
	}
}

// Transport returns the transport of node id, creating it on first use
func (n *Network) Transport(id state.NodeId) *Transport {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.transports[id]; ok {
		return t
	}
	t := &Transport{net: n, id: id}
	n.transports[id] = t
	return t
}

// Connect opens a new link between a and b. Both transports must be started. Connecting an
// already connected pair opens an additional link. Both nodes are told about the link
// asynchronously.
func (n *Network) Connect(a, b state.NodeId) error {
	n.mu.Lock()
	ta, tb := n.transports[a], n.transports[b]
	if ta == nil || tb == nil {
		n.mu.Unlock()
		return fmt.Errorf("connect %s - %s: unknown node", a, b)
	}
	la, lb := ta.listener(), tb.listener()
	if la == nil || lb == nil {
		n.mu.Unlock()
		return fmt.Errorf("connect %s - %s: transport is not started", a, b)
	}
	p := newPair(n, ta, tb)
	key := state.MakeSortedPair(a, b)
	n.pairs[key] = append(n.pairs[key], p)
	n.mu.Unlock()

	n.Log.Debug("link up", "a", a, "b", b, "link", p.a.id)
	// each end is announced through the queue that carries frames towards it, so no frame can
	// overtake the connect
	p.a.Act(nil, func() { lb.LinkConnected(p.b) })
	p.b.Act(nil, func() { la.LinkConnected(p.a) })
	return nil
}

// Disconnect closes every link between a and b. Frames already sent are delivered before the
// disconnect is reported.
func (n *Network) Disconnect(a, b state.NodeId) error {
	n.mu.Lock()
	key := state.MakeSortedPair(a, b)
	pairs := n.pairs[key]
	delete(n.pairs, key)
	n.mu.Unlock()

	if len(pairs) == 0 {
		return fmt.Errorf("disconnect %s - %s: %w", a, b, state.ErrLinkClosed)
	}
	for _, p := range pairs {
		p.close()
	}
	return nil
}

// Links returns how many links are open between a and b
func (n *Network) Links(a, b state.NodeId) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pairs[state.MakeSortedPair(a, b)])
}

func (n *Network) forget(p *pair) {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := state.MakeSortedPair(p.a.local, p.b.local)
	pairs := n.pairs[key]
	for i, o := range pairs {
		if o == p {
			pairs = append(pairs[:i], pairs[i+1:]...)
			break
		}
	}
	if len(pairs) == 0 {
		delete(n.pairs, key)
	} else {
		n.pairs[key] = pairs
	}
}

// pairsOf lists every open pair touching id
func (n *Network) pairsOf(id state.NodeId) []*pair {
	n.mu.Lock()
	defer n.mu.Unlock()
	res := make([]*pair, 0)
	for key, pairs := range n.pairs {
		if key.V1 == id || key.V2 == id {
			res = append(res, pairs...)
		}
	}
	return res
}
