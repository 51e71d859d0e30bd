package mem

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Arceliar/phony"
	"github.com/encodeous/strand/state"
	"github.com/google/uuid"
)

// link is one end of an in-memory connection. Its inbox carries the frames this end sends.
type link struct {
	phony.Inbox
	id     uuid.UUID
	local  state.NodeId
	remote state.NodeId
	owner  *Transport
	peer   *link
	pair   *pair
	closed atomic.Bool
}

func (l *link) Id() uuid.UUID {
	return l.id
}

func (l *link) Node() state.NodeId {
	return l.remote
}

func (l *link) Send(frame []byte) error {
	if l.closed.Load() {
		return state.ErrLinkClosed
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	latency := l.owner.net.Latency
	l.Act(nil, func() {
		if latency > 0 {
			time.Sleep(latency)
		}
		if ls := l.peer.owner.listener(); ls != nil {
			ls.LinkReceivedFrame(l.peer, buf)
		}
	})
	return nil
}

func (l *link) Close() error {
	l.pair.close()
	return nil
}

func (l *link) String() string {
	return l.local.String() + "->" + l.remote.String()
}

// pair holds both ends of one connection
type pair struct {
	net  *Network
	a, b *link
	once sync.Once
}

func newPair(n *Network, ta, tb *Transport) *pair {
	p := &pair{net: n}
	p.a = &link{id: uuid.New(), local: ta.id, remote: tb.id, owner: ta, pair: p}
	p.b = &link{id: uuid.New(), local: tb.id, remote: ta.id, owner: tb, pair: p}
	p.a.peer, p.b.peer = p.b, p.a
	return p
}

// close stops both ends from sending. Each side hears about the disconnect only after the frames
// the other side already queued.
func (p *pair) close() {
	p.once.Do(func() {
		p.a.closed.Store(true)
		p.b.closed.Store(true)
		p.net.forget(p)
		for _, l := range []*link{p.a, p.b} {
			l.Act(nil, func() {
				if ls := l.peer.owner.listener(); ls != nil {
					ls.LinkDisconnected(l.peer)
				}
			})
		}
		p.net.Log.Debug("link down", "a", p.a.local, "b", p.b.local, "link", p.a.id)
	})
}

// flush waits until both ends have drained their queues
func (p *pair) flush() {
	phony.Block(p.a, func() {})
	phony.Block(p.b, func() {})
}
