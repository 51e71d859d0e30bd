package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameValidator_Valid(t *testing.T) {
	assert.NoError(t, NameValidator("1"))
	assert.NoError(t, NameValidator("ab_cd"))
	assert.NoError(t, NameValidator("abcd-a.com"))
}

func TestNameValidator_Invalid(t *testing.T) {
	assert.Error(t, NameValidator("1A"))
	assert.Error(t, NameValidator("node name"))
	assert.Error(t, NameValidator(""))
	assert.Error(t, NameValidator("\t"))
	assert.Error(t, NameValidator("abcd-a.com\\hi"))
	assert.Error(t, NameValidator(strings.Repeat("a", 200)))
}

func TestNodeConfigValidator(t *testing.T) {
	assert.NoError(t, NodeConfigValidator(&LocalCfg{}))
	assert.NoError(t, NodeConfigValidator(&LocalCfg{
		Listen: "0.0.0.0:57175",
		Peers:  []string{"10.0.0.2:57175", "[::1]:57175"},
	}))
	assert.ErrorContains(t, NodeConfigValidator(&LocalCfg{Listen: "localhost"}), "invalid listen address")
	assert.ErrorContains(t, NodeConfigValidator(&LocalCfg{Peers: []string{"10.0.0.2"}}), "invalid peer address")
	assert.ErrorContains(t, NodeConfigValidator(&LocalCfg{DebugAddr: ":x"}), "invalid debug address")
}

func TestMeshConfigValidator_DuplicateId(t *testing.T) {
	cfg := lineMesh()
	cfg.Nodes[2].Id = 1
	assert.ErrorContains(t, MeshConfigValidator(cfg), "nodes a and c share id 1")
}

func TestMeshConfigValidator_DuplicateName(t *testing.T) {
	cfg := lineMesh()
	cfg.Nodes[2].Name = "a"
	assert.ErrorContains(t, MeshConfigValidator(cfg), "duplicate node name: a")
}

func TestMeshConfigValidator_ZeroId(t *testing.T) {
	cfg := lineMesh()
	cfg.Nodes[0].Id = 0
	assert.ErrorIs(t, MeshConfigValidator(cfg), ErrZeroNodeId)
}

func TestMeshConfigValidator_BadGraph(t *testing.T) {
	cfg := lineMesh()
	cfg.Graph = []string{"a, d"}
	assert.ErrorContains(t, MeshConfigValidator(cfg), "d is not a valid node/group")
}
