package core

import (
	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
)

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteWithdrawn
	StaleWithdrawalDropped
	NeighbourUp
	NeighbourDown
	DuplicateLinkDown
)

// warn events

const (
	SelfLink RouterEvent = iota + 1000
	UnknownLink
	AdvertisementRejected
	WithdrawalRejected
	RouteTooLong
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "RouteAdded"
	case RouteWithdrawn:
		return "RouteWithdrawn"
	case StaleWithdrawalDropped:
		return "StaleWithdrawalDropped"
	case NeighbourUp:
		return "NeighbourUp"
	case NeighbourDown:
		return "NeighbourDown"
	case DuplicateLinkDown:
		return "DuplicateLinkDown"
	case SelfLink:
		return "SelfLink"
	case UnknownLink:
		return "UnknownLink"
	case AdvertisementRejected:
		return "AdvertisementRejected"
	case WithdrawalRejected:
		return "WithdrawalRejected"
	case RouteTooLong:
		return "RouteTooLong"
	}
	return "RouterEvent(?)"
}

// Router is an interface that defines the underlying router operations
type Router interface {
	// Broadcast sends frame on every link, skipping links to except when it is non-zero
	Broadcast(frame []byte, except state.NodeId)
	NeighboursChanged(neighbours []state.NodeId)
	// ResetFrames zeroes the frame counter once the node has no links left
	ResetFrames()
	Log(event RouterEvent, desc string, args ...any)
}

// HandleLinkConnected records a fresh direct route to the neighbour and pushes the whole table to
// every link, the new one included.
func HandleLinkConnected(s *state.State, r Router, link state.Link) {
	neigh := link.Node()
	if !s.Table.SetDirect(neigh) {
		r.Log(SelfLink, "neighbour uses our own id, no route recorded", "link", link.Id())
	}
	s.Links.Add(link)
	r.Log(NeighbourUp, "link connected", "neigh", neigh, "link", link.Id())
	r.NeighboursChanged(s.Links.Neighbours())
	if s.Table.Len() == 0 {
		return
	}
	r.Broadcast(protocol.EncodeAdvertisement(s.Table.Entries()), 0)
}

// HandleLinkDisconnected drops the direct route to the neighbour and tells the remaining links.
// Routes learned through the neighbour stay in the table until withdrawn separately.
func HandleLinkDisconnected(s *state.State, r Router, link state.Link) {
	neigh := link.Node()
	removed, stillConnected := s.Links.Remove(link)
	if !removed {
		r.Log(UnknownLink, "disconnect for a link that was never connected", "neigh", neigh, "link", link.Id())
		return
	}
	r.NeighboursChanged(s.Links.Neighbours())
	if stillConnected {
		r.Log(DuplicateLinkDown, "link closed, neighbour still reachable over another link", "neigh", neigh, "link", link.Id())
		return
	}
	s.Table.RemoveDirect(neigh)
	r.Log(NeighbourDown, "link disconnected", "neigh", neigh, "link", link.Id())
	if s.Links.Empty() {
		r.ResetFrames()
		return
	}
	r.Broadcast(protocol.EncodeWithdrawal(neigh), 0)
}

// HandleAdvertisement learns every previously unknown destination in entries through sender and,
// if anything was learned, pushes the table to everyone but sender. Entries that would grow past
// state.MaxHops are skipped. It returns the number of routes added.
func HandleAdvertisement(s *state.State, r Router, sender state.NodeId, entries []state.RouteEntry) int {
	added := 0
	for _, e := range entries {
		if e.Dest == s.Id {
			continue
		}
		if e.Hops >= state.MaxHops {
			r.Log(RouteTooLong, "ignoring route", "dest", e.Dest, "from", sender, "hops", e.Hops)
			continue
		}
		if s.Table.InsertIfAbsent(e.Dest, sender, e.Hops+1) {
			r.Log(RouteAdded, "learned route", "dest", e.Dest, "nh", sender, "hops", e.Hops+1)
			added++
		}
	}
	if added > 0 {
		r.Broadcast(protocol.EncodeAdvertisement(s.Table.Entries()), sender)
	}
	return added
}

// HandleWithdrawal forgets dest and passes the withdrawal on to everyone but sender. A withdrawal
// for a destination we do not know is dropped without being passed on.
func HandleWithdrawal(s *state.State, r Router, sender state.NodeId, dest state.NodeId) bool {
	if !s.Table.Remove(dest) {
		r.Log(StaleWithdrawalDropped, "dropping withdrawal", "dest", dest, "from", sender, "err", state.ErrStaleWithdrawal)
		return false
	}
	r.Log(RouteWithdrawn, "route withdrawn", "dest", dest, "from", sender)
	r.Broadcast(protocol.EncodeWithdrawal(dest), sender)
	return true
}
