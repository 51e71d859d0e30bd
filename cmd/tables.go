package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/encodeous/strand/state"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

func printRoutes(w io.Writer, routes []state.RouteEntry) {
	table := newTable(w, "Destination", "Next Hop", "Hops")
	for _, r := range routes {
		table.Append([]string{r.Dest.String(), r.NextHop.String(), fmt.Sprint(r.Hops)})
	}
	table.Render()
}

func printPeers(w io.Writer, peers []state.NodeId) {
	table := newTable(w, "Neighbour")
	for _, p := range peers {
		table.Append([]string{p.String()})
	}
	table.Render()
}

// meshRoute is one row of the simulator's combined routing table
type meshRoute struct {
	node   string
	routes []state.RouteEntry
}

func printMeshRoutes(w io.Writer, names map[state.NodeId]string, rows []meshRoute) {
	table := newTable(w, "Node", "Destination", "Next Hop", "Hops")
	name := func(id state.NodeId) string {
		if n, ok := names[id]; ok {
			return fmt.Sprintf("%s (%s)", n, id)
		}
		return id.String()
	}
	for _, row := range rows {
		for _, r := range row.routes {
			table.Append([]string{row.node, name(r.Dest), name(r.NextHop), fmt.Sprint(r.Hops)})
		}
	}
	table.Render()
}

type delivery struct {
	to      string
	sender  state.NodeId
	latency time.Duration
	payload string
}

func printDeliveries(w io.Writer, names map[state.NodeId]string, ds []delivery) {
	table := newTable(w, "Receiver", "Sender", "Latency", "Message")
	for _, d := range ds {
		table.Append([]string{d.to, names[d.sender], d.latency.String(), d.payload})
	}
	table.Render()
}
