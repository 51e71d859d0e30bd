package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type RouteEntry struct {
	Dest    NodeId
	NextHop NodeId
	Hops    int
}

func (e RouteEntry) String() string {
	return fmt.Sprintf("%s via %s (hops %d)", e.Dest, e.NextHop, e.Hops)
}

// RoutingTable maps a destination to exactly one route. Entries are only ever inserted or
// removed, never improved: the first route learned for a destination is kept until it is
// withdrawn, even if a shorter one is advertised later.
type RoutingTable struct {
	self    NodeId
	entries map[NodeId]RouteEntry
}

func NewRoutingTable(self NodeId) *RoutingTable {
	return &RoutingTable{
		self:    self,
		entries: make(map[NodeId]RouteEntry),
	}
}

func (t *RoutingTable) Lookup(dest NodeId) (RouteEntry, bool) {
	e, ok := t.entries[dest]
	return e, ok
}

// InsertIfAbsent records a route to dest unless one already exists or dest is this node.
// It reports whether the table changed.
func (t *RoutingTable) InsertIfAbsent(dest, nextHop NodeId, hops int) bool {
	if dest == t.self {
		return false
	}
	if _, ok := t.entries[dest]; ok {
		return false
	}
	t.entries[dest] = RouteEntry{Dest: dest, NextHop: nextHop, Hops: hops}
	return true
}

// SetDirect records neigh as a directly connected neighbour, replacing any learned route.
func (t *RoutingTable) SetDirect(neigh NodeId) bool {
	if neigh == t.self {
		return false
	}
	t.entries[neigh] = RouteEntry{Dest: neigh, NextHop: neigh, Hops: 1}
	return true
}

// RemoveDirect removes the entry for neigh itself. Routes whose next hop is neigh are kept.
func (t *RoutingTable) RemoveDirect(neigh NodeId) bool {
	return t.Remove(neigh)
}

func (t *RoutingTable) Remove(dest NodeId) bool {
	if _, ok := t.entries[dest]; !ok {
		return false
	}
	delete(t.entries, dest)
	return true
}

// Entries returns every route ordered by destination.
func (t *RoutingTable) Entries() []RouteEntry {
	out := make([]RouteEntry, 0, len(t.entries))
	for _, dest := range slices.Sorted(maps.Keys(t.entries)) {
		out = append(out, t.entries[dest])
	}
	return out
}

func (t *RoutingTable) Len() int {
	return len(t.entries)
}

func (t *RoutingTable) String() string {
	lines := make([]string, 0, len(t.entries))
	for _, e := range t.Entries() {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}
