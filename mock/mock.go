package mock

import (
	"time"

	"github.com/encodeous/strand/state"
)

// MockMesh is the demo topology used by `strand sim --demo`
func MockMesh() state.MeshCfg {
	names := []string{
		"bob",
		"jeb",
		"kat",
		"eve",
		"ada",
	}
	nodes := make([]state.MeshNodeCfg, 0)
	for i, name := range names {
		nodes = append(nodes, state.MeshNodeCfg{
			Name: name,
			Id:   state.NodeId(i + 1),
		})
	}
	return state.MeshCfg{
		Nodes: nodes,
		Graph: []string{
			"bob, jeb",
			"bob, kat",
			"bob, eve",
			"jeb, kat",
			"kat, ada",
			"kat, eve",
			"eve, ada",
		},
		Latency: time.Millisecond,
	}
}

// ChainMesh connects n nodes with ids 1..n in a line
func ChainMesh(n int) state.MeshCfg {
	cfg := state.MeshCfg{}
	for i := 1; i <= n; i++ {
		cfg.Nodes = append(cfg.Nodes, state.MeshNodeCfg{
			Name: "n" + state.NodeId(i).String(),
			Id:   state.NodeId(i),
		})
		if i > 1 {
			cfg.Graph = append(cfg.Graph, cfg.Nodes[i-2].Name+", "+cfg.Nodes[i-1].Name)
		}
	}
	return cfg
}
