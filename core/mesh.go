package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/encodeous/strand/state"
	"github.com/encodeous/strand/transport/mem"
)

// Mesh runs every node of a MeshCfg in this process over an in-memory network
type Mesh struct {
	Cfg   state.MeshCfg
	Net   *mem.Network
	Nodes map[string]*Node
	log   *slog.Logger
}

// NewMesh creates one stopped node per configured node. sinkFor may be nil.
func NewMesh(cfg state.MeshCfg, sinkFor func(name string) Sink, log *slog.Logger) (*Mesh, error) {
	if err := state.MeshConfigValidator(&cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Mesh{
		Cfg:   cfg,
		Net:   mem.NewNetwork(cfg.Latency, log),
		Nodes: make(map[string]*Node),
		log:   log,
	}
	for _, nc := range cfg.Nodes {
		var sink Sink
		if sinkFor != nil {
			sink = sinkFor(nc.Name)
		}
		m.Nodes[nc.Name] = NewNode(
			nc.Id,
			state.LocalCfg{},
			m.Net.Transport(nc.Id),
			sink,
			log.With("name", nc.Name),
		)
	}
	return m, nil
}

// Start starts every node and then opens one link per graph edge
func (m *Mesh) Start() error {
	for _, name := range m.Cfg.Names() {
		if err := m.Nodes[name].Start(); err != nil {
			return errors.Join(err, m.Stop())
		}
	}
	edges, err := m.Cfg.Edges()
	if err != nil {
		return errors.Join(err, m.Stop())
	}
	for _, e := range edges {
		if err := m.Net.Connect(e.V1, e.V2); err != nil {
			return errors.Join(err, m.Stop())
		}
	}
	m.log.Info("mesh started", "nodes", len(m.Nodes), "links", len(edges))
	return nil
}

func (m *Mesh) Stop() error {
	var errs []error
	for _, name := range m.Cfg.Names() {
		errs = append(errs, m.Nodes[name].Stop())
	}
	return errors.Join(errs...)
}

// Node returns the node called name
func (m *Mesh) Node(name string) (*Node, error) {
	n, ok := m.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("no node named %s", name)
	}
	return n, nil
}

// Converged reports whether every node has a route to every other node
func (m *Mesh) Converged() (bool, error) {
	for _, n := range m.Nodes {
		routes, err := n.Routes()
		if err != nil {
			return false, err
		}
		if len(routes) != len(m.Nodes)-1 {
			return false, nil
		}
	}
	return true, nil
}
