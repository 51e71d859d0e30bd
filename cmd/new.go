package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/strand/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new node config",
	Long:  `Writes a node config with a fresh random id, unless one is given with --id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		id, _ := cmd.Flags().GetInt64("id")
		listen, _ := cmd.Flags().GetString("listen")
		peers, _ := cmd.Flags().GetStringSlice("peer")

		cfg := state.LocalCfg{
			Id:     int64(state.NewNodeId(id)),
			Listen: listen,
			Peers:  peers,
		}
		if err := state.NodeConfigValidator(&cfg); err != nil {
			return err
		}
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("%s already exists", out)
		}
		bytes, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, bytes, 0600); err != nil {
			return err
		}
		fmt.Printf("Created node %s in %s\n", state.NewNodeId(cfg.Id), out)
		return nil
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringP("output", "o", DefaultNodeConfigPath, "Path to write the node config to")
	newCmd.Flags().Int64("id", 0, "Node id, 0 picks a random one")
	newCmd.Flags().String("listen", fmt.Sprintf("0.0.0.0:%d", state.DefaultPort), "Address to accept links on")
	newCmd.Flags().StringSlice("peer", nil, "Address of a peer to dial, may be repeated")
}
