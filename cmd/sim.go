package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/encodeous/strand/core"
	"github.com/encodeous/strand/mock"
	"github.com/encodeous/strand/state"
	"github.com/spf13/cobra"
)

// simSink collects messages delivered to one simulated node
type simSink struct {
	core.NopSink
	name string
	mu   *sync.Mutex
	out  *[]delivery
}

func (s simSink) Deliver(sender state.NodeId, latency time.Duration, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.out = append(*s.out, delivery{to: s.name, sender: sender, latency: latency, payload: payload})
}

type simMessage struct {
	from, to, text string
}

func parseSimMessage(s string) (simMessage, error) {
	spl := strings.SplitN(s, ":", 3)
	if len(spl) != 3 || spl[0] == "" || spl[1] == "" {
		return simMessage{}, fmt.Errorf("invalid message %q, expected from:to:text", s)
	}
	return simMessage{spl[0], spl[1], spl[2]}, nil
}

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Simulate a mesh in memory",
	Long:  `Starts every node of a mesh config in this process, links them according to the graph and prints the resulting routing tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		demo, _ := cmd.Flags().GetBool("demo")
		meshPath, _ := cmd.Flags().GetString("mesh")
		sends, _ := cmd.Flags().GetStringArray("send")
		settle, _ := cmd.Flags().GetDuration("settle")
		level := slog.LevelWarn
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		var cfg state.MeshCfg
		if demo {
			cfg = mock.MockMesh()
		} else {
			read, err := core.ReadMeshConfig(meshPath)
			if err != nil {
				return err
			}
			cfg = *read
		}
		messages := make([]simMessage, 0, len(sends))
		for _, s := range sends {
			m, err := parseSimMessage(s)
			if err != nil {
				return err
			}
			if _, ok := cfg.GetNode(m.from); !ok {
				return fmt.Errorf("unknown node %s", m.from)
			}
			if _, ok := cfg.GetNode(m.to); !ok {
				return fmt.Errorf("unknown node %s", m.to)
			}
			messages = append(messages, m)
		}

		logger, err := core.NewLogger("sim", level, "")
		if err != nil {
			return err
		}
		mu := &sync.Mutex{}
		deliveries := make([]delivery, 0)
		mesh, err := core.NewMesh(cfg, func(name string) core.Sink {
			return simSink{name: name, mu: mu, out: &deliveries}
		}, logger)
		if err != nil {
			return err
		}
		if err := mesh.Start(); err != nil {
			return err
		}
		defer mesh.Stop()

		converged, err := waitFor(settle, mesh.Converged)
		if err != nil {
			return err
		}
		if !converged {
			fmt.Fprintf(os.Stdout, "mesh did not converge within %s\n", settle)
		}

		names := make(map[state.NodeId]string)
		rows := make([]meshRoute, 0, len(cfg.Nodes))
		for _, nc := range cfg.Nodes {
			names[nc.Id] = nc.Name
			routes, err := mesh.Nodes[nc.Name].Routes()
			if err != nil {
				return err
			}
			rows = append(rows, meshRoute{node: fmt.Sprintf("%s (%s)", nc.Name, nc.Id), routes: routes})
		}
		printMeshRoutes(os.Stdout, names, rows)

		if len(messages) == 0 {
			return nil
		}
		for _, m := range messages {
			to, _ := cfg.GetNode(m.to)
			if err := mesh.Nodes[m.from].SendMessage(to.Id, []byte(m.text)); err != nil {
				fmt.Fprintf(os.Stdout, "%s -> %s: %v\n", m.from, m.to, err)
			}
		}
		_, _ = waitFor(settle, func() (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			return len(deliveries) >= len(messages), nil
		})
		mu.Lock()
		defer mu.Unlock()
		fmt.Println()
		printDeliveries(os.Stdout, names, deliveries)
		return nil
	},
	GroupID: "strand",
}

// waitFor polls cond until it holds or timeout passes
func waitFor(timeout time.Duration, cond func() (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond()
		if err != nil || ok {
			return ok, err
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().StringP("mesh", "m", DefaultMeshConfigPath, "mesh config")
	simCmd.Flags().Bool("demo", false, "Simulate the built-in demo mesh instead of a mesh config")
	simCmd.Flags().StringArray("send", nil, "Send a message once the mesh settles, as from:to:text")
	simCmd.Flags().Duration("settle", time.Second, "How long to wait for routes and messages")
	simCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
