package state

import (
	"slices"

	"github.com/google/uuid"
)

// Link is a live, bidirectional frame channel to exactly one neighbour. Links are owned by a
// transport; the node drops every reference once the link reports a disconnect.
type Link interface {
	Id() uuid.UUID
	// Node returns the neighbour on the other end
	Node() NodeId
	// Send queues a frame without blocking. An error only means the link is already known to be
	// dead; a nil error does not imply delivery.
	Send(frame []byte) error
	Close() error
}

// LinkSet tracks connected links in connection order, indexed by neighbour.
type LinkSet struct {
	links []Link
	index map[NodeId]Link
}

func NewLinkSet() *LinkSet {
	return &LinkSet{
		links: make([]Link, 0),
		index: make(map[NodeId]Link),
	}
}

// Add registers link. If another link to the same neighbour exists, the index moves to the
// newer one.
func (ls *LinkSet) Add(link Link) {
	if ls.indexOf(link) != -1 {
		return
	}
	ls.links = append(ls.links, link)
	ls.index[link.Node()] = link
}

// Remove unregisters link and reports whether the neighbour is still reachable through another
// link.
func (ls *LinkSet) Remove(link Link) (removed bool, stillConnected bool) {
	idx := ls.indexOf(link)
	if idx == -1 {
		_, stillConnected = ls.index[link.Node()]
		return false, stillConnected
	}
	ls.links = slices.Delete(ls.links, idx, idx+1)
	neigh := link.Node()
	if cur, ok := ls.index[neigh]; ok && cur.Id() == link.Id() {
		delete(ls.index, neigh)
		for i := len(ls.links) - 1; i >= 0; i-- {
			if ls.links[i].Node() == neigh {
				ls.index[neigh] = ls.links[i]
				break
			}
		}
	}
	_, stillConnected = ls.index[neigh]
	return true, stillConnected
}

func (ls *LinkSet) Get(neigh NodeId) (Link, bool) {
	l, ok := ls.index[neigh]
	return l, ok
}

// All returns the connected links in connection order. The slice must not be modified.
func (ls *LinkSet) All() []Link {
	return ls.links
}

// Neighbours returns the distinct neighbour ids in connection order
func (ls *LinkSet) Neighbours() []NodeId {
	out := make([]NodeId, 0, len(ls.index))
	for _, l := range ls.links {
		if !slices.Contains(out, l.Node()) {
			out = append(out, l.Node())
		}
	}
	return out
}

func (ls *LinkSet) Len() int {
	return len(ls.links)
}

func (ls *LinkSet) Empty() bool {
	return len(ls.links) == 0
}

func (ls *LinkSet) indexOf(link Link) int {
	return slices.IndexFunc(ls.links, func(l Link) bool {
		return l.Id() == link.Id()
	})
}
