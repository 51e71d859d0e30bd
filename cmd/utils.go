package cmd

var (
	DefaultNodeConfigPath = "node.yaml"
	DefaultMeshConfigPath = "mesh.yaml"
	nodeConfigPath        = DefaultNodeConfigPath
)
