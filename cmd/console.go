package cmd

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/encodeous/strand/core"
	"github.com/encodeous/strand/state"
)

// console executes the line commands of `strand run` against a node
type console struct {
	node *core.Node
	out  io.Writer
}

func (c *console) exec(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	fields := strings.SplitN(line, " ", 3)
	switch fields[0] {
	case "send":
		if len(fields) < 3 {
			return false, errors.New("usage: send <id> <text>")
		}
		dest, err := state.ParseNodeId(fields[1])
		if err != nil {
			return false, err
		}
		return false, c.node.SendMessage(dest, []byte(fields[2]))
	case "routes":
		routes, err := c.node.Routes()
		if err != nil {
			return false, err
		}
		printRoutes(c.out, routes)
	case "peers":
		peers, err := c.node.Neighbours()
		if err != nil {
			return false, err
		}
		printPeers(c.out, peers)
	case "frames":
		n, err := c.node.FramesCount()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "frames: %d\n", n)
	case "flood":
		count := state.FloodFrameCount
		if len(fields) > 1 {
			n, err := strconv.Atoi(strings.TrimSpace(strings.Join(fields[1:], " ")))
			if err != nil || n < 0 {
				return false, fmt.Errorf("invalid frame count %q", fields[1])
			}
			count = n
		}
		sent, err := flood(c.node, count)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "flooded %d frames\n", sent)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

// consoleSink prints delivered messages for the operator
type consoleSink struct {
	core.NopSink
	out io.Writer
}

func (c consoleSink) Deliver(sender state.NodeId, latency time.Duration, payload string) {
	fmt.Fprintf(c.out, "[%s, %dms] %s\n", sender, latency.Milliseconds(), payload)
}

// flood sends count random frames of state.FloodFrameSize bytes to every neighbour
func flood(n *core.Node, count int) (int, error) {
	total := 0
	frame := make([]byte, state.FloodFrameSize)
	for range count {
		for i := range frame {
			frame[i] = byte(rand.UintN(256))
		}
		sent, err := n.Broadcast(frame)
		if err != nil {
			return total, err
		}
		total += sent
	}
	return total, nil
}
