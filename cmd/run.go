package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/strand/core"
	"github.com/encodeous/strand/state"
	"github.com/encodeous/strand/transport/tcp"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a strand node",
	Long: `Runs a node over TCP using the node config. Commands are read from stdin:
  send <id> <text>   send a message to a node
  routes             print the routing table
  peers              print connected neighbours
  frames             print the frame counter
  flood [n]          send n random frames to every neighbour
  quit               stop the node`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := core.ReadNodeConfig(nodeConfigPath)
		if err != nil {
			panic(err)
		}
		if logPath, _ := cmd.Flags().GetString("log"); logPath != "" {
			cfg.LogPath = logPath
		}
		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		id := state.NewNodeId(cfg.Id)
		logger, err := core.NewLogger(id.String(), level, cfg.LogPath)
		if err != nil {
			panic(err)
		}
		sink := core.MultiSink(core.LogSink{Log: logger}, consoleSink{out: os.Stdout})
		node := core.NewNode(id, *cfg, tcp.New(id, cfg.Listen, cfg.Peers, logger), sink, logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if cfg.DebugAddr != "" {
			if err := core.StartDebugServer(ctx, cfg.DebugAddr, logger); err != nil {
				panic(err)
			}
		}
		if err := node.Start(); err != nil {
			panic(err)
		}
		logger.Info("Strand has been initialized. To gracefully exit, send SIGINT or Ctrl+C.", "id", id)

		go func() {
			c := &console{node: node, out: os.Stdout}
			in := bufio.NewScanner(os.Stdin)
			for in.Scan() {
				quit, err := c.exec(in.Text())
				if err != nil {
					fmt.Fprintln(os.Stdout, "error:", err)
				}
				if quit {
					break
				}
			}
			stop()
		}()

		select {
		case <-ctx.Done():
		case <-node.Done():
		}
		if err := node.Stop(); err != nil {
			logger.Warn("error while stopping", "err", err)
		}
		if cause := node.Err(); cause != nil && !errors.Is(cause, context.Canceled) {
			panic(cause)
		}
	},
	GroupID: "strand",
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&nodeConfigPath, "node-config", "n", DefaultNodeConfigPath, "node config")
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().String("log", "", "Also write logs to this file")
}
