package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/encodeous/strand/perf"
	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
)

// StrandRouter owns the routing table of a node and implements Router over the node's links
type StrandRouter struct {
	*state.State
	sink Sink
}

func (r *StrandRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	if r.sink == nil {
		r.sink = NopSink{}
	}
	if s.DumpRoutes {
		s.Env.RepeatTask(dumpRoutes, state.RouteDumpDelay)
	}
	return nil
}

func (r *StrandRouter) Cleanup(s *state.State) error {
	r.State = nil
	return nil
}

func (r *StrandRouter) Broadcast(frame []byte, except state.NodeId) {
	sent := 0
	for _, link := range r.Links.All() {
		if except != 0 && link.Node() == except {
			continue
		}
		if sendFrame(r.State, link, frame) {
			sent++
		}
	}
	countFrames(r.State, r.sink, sent)
}

func (r *StrandRouter) NeighboursChanged(neighbours []state.NodeId) {
	r.sink.PeersChanged(neighbours)
}

func (r *StrandRouter) ResetFrames() {
	r.FramesCount = 0
	r.sink.FramesCount(0)
}

func (r *StrandRouter) Log(event RouterEvent, desc string, args ...any) {
	if event >= SelfLink {
		r.Env.Log.Warn(fmt.Sprintf("%s %s", event.String(), desc), args...)
		return
	}
	r.Env.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}

func (r *StrandRouter) linkConnected(link state.Link) error {
	HandleLinkConnected(r.State, r, link)
	return nil
}

func (r *StrandRouter) linkDisconnected(link state.Link) error {
	HandleLinkDisconnected(r.State, r, link)
	return nil
}

// handleRouting processes a mode 0 or 1 payload received from sender
func (r *StrandRouter) handleRouting(sender state.Link, mode protocol.Mode, payload []byte) error {
	switch mode {
	case protocol.ModeAdvertisement:
		entries, err := protocol.DecodeAdvertisement(payload)
		if err != nil {
			r.Log(AdvertisementRejected, "rejected advertisement", "from", sender.Node(), "err", err)
			return err
		}
		perf.RouteInsertions.Add(float64(HandleAdvertisement(r.State, r, sender.Node(), entries)))
	case protocol.ModeWithdrawal:
		dest, err := protocol.DecodeWithdrawal(payload)
		if err != nil {
			r.Log(WithdrawalRejected, "rejected withdrawal", "from", sender.Node(), "err", err)
			return err
		}
		if HandleWithdrawal(r.State, r, sender.Node(), dest) {
			perf.RouteWithdrawals.Add(1)
		}
	default:
		return fmt.Errorf("mode %s is not a routing frame: %w", mode, state.ErrMalformedFrame)
	}
	return nil
}

func dumpRoutes(s *state.State) error {
	s.Log.Debug("routing table", "id", s.Id, "links", s.Links.Len(), "routes", s.Table.Len())
	for _, e := range s.Table.Entries() {
		s.Log.Debug(" - " + e.String())
	}
	return nil
}

// sendFrame sends on a single link. Failures are logged and counted but never propagated, so a
// dead link cannot hold up the others.
func sendFrame(s *state.State, link state.Link, frame []byte) bool {
	if err := link.Send(frame); err != nil {
		perf.SendFailures.Add(1)
		if errors.Is(err, state.ErrLinkClosed) {
			s.Log.Debug("send on closed link", "neigh", link.Node(), "link", link.Id())
		} else {
			s.Log.Warn("send failed", "neigh", link.Node(), "link", link.Id(), "err", err)
		}
		return false
	}
	perf.FramesSent.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(frame)))
	if s.Log.Enabled(s.Context, slog.LevelDebug) {
		s.Log.Debug("sent frame", "to", link.Node(), "frame", describeFrame(frame))
	}
	return true
}

func countFrames(s *state.State, sink Sink, n int) {
	if n == 0 {
		return
	}
	s.FramesCount += n
	sink.FramesCount(s.FramesCount)
}
