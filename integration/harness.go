//go:build integration

package integration

import (
	"log/slog"
	"maps"
	"net"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/strand/core"
	"github.com/encodeous/strand/state"
	"github.com/encodeous/strand/transport/tcp"
	"github.com/stretchr/testify/require"
)

// Inbox collects the messages delivered to one node
type Inbox struct {
	core.NopSink
	mu       sync.Mutex
	messages []string
}

func (i *Inbox) Deliver(sender state.NodeId, latency time.Duration, payload string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.messages = append(i.messages, sender.String()+": "+payload)
}

func (i *Inbox) Messages() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.messages)
}

// TCPHarness runs real nodes that talk over loopback TCP
type TCPHarness struct {
	Nodes   map[state.NodeId]*core.Node
	Inboxes map[state.NodeId]*Inbox
	addrs   map[state.NodeId]string
	log     *slog.Logger
}

func NewTCPHarness() *TCPHarness {
	return &TCPHarness{
		Nodes:   make(map[state.NodeId]*core.Node),
		Inboxes: make(map[state.NodeId]*Inbox),
		addrs:   make(map[state.NodeId]string),
		log:     slog.New(slog.DiscardHandler),
	}
}

// freeAddr reserves a loopback port long enough to learn its number
func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// NewNode adds a node that dials every node in peers. Peers must be added first and have smaller ids.
func (h *TCPHarness) NewNode(t *testing.T, id state.NodeId, peers ...state.NodeId) *core.Node {
	addr := freeAddr(t)
	cfg := state.LocalCfg{Id: int64(id), Listen: addr}
	for _, p := range peers {
		cfg.Peers = append(cfg.Peers, h.addrs[p])
	}
	require.NoError(t, state.NodeConfigValidator(&cfg))
	inbox := &Inbox{}
	n := core.NewNode(id, cfg, tcp.New(id, cfg.Listen, cfg.Peers, h.log), inbox, h.log)
	h.Nodes[id] = n
	h.Inboxes[id] = inbox
	h.addrs[id] = addr
	return n
}

// Start starts nodes in id order, so every node is listening before anyone dials it
func (h *TCPHarness) Start(t *testing.T) {
	for _, id := range slices.Sorted(maps.Keys(h.Nodes)) {
		require.NoError(t, h.Nodes[id].Start())
	}
}

func (h *TCPHarness) Stop(t *testing.T) {
	for _, n := range h.Nodes {
		require.NoError(t, n.Stop())
	}
}

// WaitConverged waits until every node has a route to every other node
func (h *TCPHarness) WaitConverged(t *testing.T, timeout time.Duration) {
	require.Eventually(t, func() bool {
		for _, n := range h.Nodes {
			routes, err := n.Routes()
			if err != nil || len(routes) != len(h.Nodes)-1 {
				return false
			}
		}
		return true
	}, timeout, 10*time.Millisecond)
}
