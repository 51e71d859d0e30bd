package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// LocalCfg represents local node-level configuration
type LocalCfg struct {
	Id         int64    `yaml:"id"`                    // 0 draws a random id every time the node starts
	Listen     string   `yaml:"listen,omitempty"`      // tcp address to accept links on, empty disables listening
	Peers      []string `yaml:"peers,omitempty"`       // tcp addresses that are dialed and redialed while down
	LogPath    string   `yaml:"log_path,omitempty"`    // if not empty, strand will also write logs to this file
	DebugAddr  string   `yaml:"debug_addr,omitempty"`  // if not empty, serves /debug/metrics and /debug/vars
	DumpRoutes bool     `yaml:"dump_routes,omitempty"` // periodically log the routing table
}

type MeshNodeCfg struct {
	Name string `yaml:"name"`
	Id   NodeId `yaml:"id"`
}

// MeshCfg describes an in-memory mesh used for simulation
type MeshCfg struct {
	Nodes   []MeshNodeCfg
	Graph   []string
	Latency time.Duration `yaml:"latency,omitempty"` // delay applied to every frame on every link
}

func (c *MeshCfg) Names() []string {
	names := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		names = append(names, n.Name)
	}
	return names
}

func (c *MeshCfg) GetNode(name string) (MeshNodeCfg, bool) {
	idx := slices.IndexFunc(c.Nodes, func(n MeshNodeCfg) bool {
		return n.Name == name
	})
	if idx == -1 {
		return MeshNodeCfg{}, false
	}
	return c.Nodes[idx], true
}

// Edges evaluates the graph down to the set of links between node ids
func (c *MeshCfg) Edges() ([]Pair[NodeId, NodeId], error) {
	pairs, err := ParseGraph(c.Graph, c.Names())
	if err != nil {
		return nil, err
	}
	edges := make([]Pair[NodeId, NodeId], 0, len(pairs))
	for _, p := range pairs {
		a, _ := c.GetNode(p.V1)
		b, _ := c.GetNode(p.V2)
		edges = append(edges, MakeSortedPair(a.Id, b.Id))
	}
	SortPairs(edges)
	return slices.Compact(edges), nil
}

// splitMembers parses a comma separated list of node and group names. Empty entries are skipped.
func splitMembers(s string, known []string) ([]string, error) {
	members := make([]string, 0)
	for _, f := range strings.Split(s, ",") {
		name := strings.TrimSpace(f)
		if name == "" {
			continue
		}
		if !slices.Contains(known, name) {
			return nil, fmt.Errorf(`%s is not a valid node/group`, name)
		}
		members = append(members, name)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf(`node/group list must not be empty`)
	}
	slices.Sort(members)
	return members, nil
}

type graphLine struct {
	group string // empty for a line that links its members
	body  string
}

func splitGraph(graph []string, nodes []string) ([]graphLine, error) {
	lines := make([]graphLine, 0, len(graph))
	for _, raw := range graph {
		line := strings.ToLower(strings.TrimSpace(raw))
		name, body, isGroup := strings.Cut(line, "=")
		if !isGroup {
			lines = append(lines, graphLine{body: line})
			continue
		}
		if strings.Contains(body, "=") {
			return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", line)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid graph: %s. group name must not be empty", line)
		}
		if slices.Contains(nodes, name) {
			return nil, fmt.Errorf("group name must not be a node name: %s", name)
		}
		lines = append(lines, graphLine{group: name, body: body})
	}
	return lines, nil
}

// groupExpander resolves group names to the nodes they contain, remembering finished groups
type groupExpander struct {
	nodes  []string
	groups map[string][]string
	done   map[string][]string
}

func (e *groupExpander) expand(name string, path []string) ([]string, error) {
	if slices.Contains(e.nodes, name) {
		return []string{name}, nil
	}
	if members, ok := e.done[name]; ok {
		return members, nil
	}
	if i := slices.Index(path, name); i != -1 {
		cycle := slices.Clone(path[i:])
		slices.Sort(cycle)
		return nil, fmt.Errorf("cycle detected in graph: %v", cycle)
	}
	path = append(path, name)
	out := make([]string, 0)
	for _, m := range e.groups[name] {
		sub, err := e.expand(m, path)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	e.done[name] = out
	return out, nil
}

/*
ParseGraph evaluates a mesh graph down to the pairs of node names that get a link.

A line either defines a group or links every listed member with every other one:

	core = ada, bob        // a group of nodes
	edge = eve, core       // groups may contain other groups
	ada, eve               // one link
	core, kat              // kat links to ada and bob, who are not linked to each other
	core, core             // ada and bob are linked

Names are case-insensitive. nodes lists every node name the graph may refer to.
*/
func ParseGraph(graph []string, nodes []string) ([]Pair[string, string], error) {
	lines, err := splitGraph(graph, nodes)
	if err != nil {
		return nil, err
	}
	known := slices.Clone(nodes)
	for _, l := range lines {
		if l.group != "" {
			known = append(known, l.group)
		}
	}

	groups := make(map[string][]string)
	linked := make([]Pair[string, string], 0)
	for _, l := range lines {
		if l.group != "" {
			if _, ok := groups[l.group]; ok {
				return nil, fmt.Errorf("duplicate group name: %s", l.group)
			}
		}
		members, err := splitMembers(l.body, known)
		if err != nil {
			return nil, err
		}
		if l.group != "" {
			groups[l.group] = members
			continue
		}
		if len(members) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", members)
		}
		for i, name := range members {
			for _, other := range members[:i] {
				linked = append(linked, MakeSortedPair(other, name))
			}
		}
	}
	SortPairs(linked)
	linked = slices.Compact(linked)

	e := &groupExpander{nodes: nodes, groups: groups, done: make(map[string][]string)}
	// unused groups are still checked for cycles
	for _, g := range slices.Sorted(maps.Keys(groups)) {
		if _, err := e.expand(g, nil); err != nil {
			return nil, err
		}
	}

	pairs := make([]Pair[string, string], 0)
	for _, p := range linked {
		xs, _ := e.expand(p.V1, nil)
		ys, _ := e.expand(p.V2, nil)
		for _, x := range xs {
			for _, y := range ys {
				if x != y {
					pairs = append(pairs, MakeSortedPair(x, y))
				}
			}
		}
	}
	SortPairs(pairs)
	return slices.Compact(pairs), nil
}
