package core

import (
	"fmt"
	"log/slog"

	"github.com/encodeous/strand/perf"
	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
)

// Forwarder classifies inbound frames, delivers data addressed to this node and relays the rest
type Forwarder struct {
	*state.State
	sink Sink
}

func (f *Forwarder) Init(s *state.State) error {
	s.Log.Debug("init forwarder")
	f.State = s
	if f.sink == nil {
		f.sink = NopSink{}
	}
	return nil
}

func (f *Forwarder) Cleanup(s *state.State) error {
	f.State = nil
	return nil
}

// handleFrame never fails the node: protocol errors are reported to the sink and the frame is
// discarded.
func (f *Forwarder) handleFrame(sender state.Link, frame []byte) error {
	perf.FramesReceived.Add(1)
	perf.RecvBytesPerSecond.Add(float64(len(frame)))
	if f.Log.Enabled(f.Context, slog.LevelDebug) {
		f.Log.Debug("received frame", "from", sender.Node(), "frame", describeFrame(frame))
	}

	mode, payload, err := protocol.Classify(frame)
	if err == nil {
		switch mode {
		case protocol.ModeAdvertisement, protocol.ModeWithdrawal:
			err = Get[*StrandRouter](f.State).handleRouting(sender, mode, payload)
		case protocol.ModeData:
			err = f.handleData(frame, payload)
		}
	}
	if err != nil {
		perf.InvalidFrames.Add(1)
		f.Log.Warn("invalid frame received", "from", sender.Node(), "size", len(frame), "err", err)
		f.sink.InvalidFrame()
		return nil
	}
	countFrames(f.State, f.sink, 1)
	return nil
}

func (f *Forwarder) handleData(frame, payload []byte) error {
	data, err := protocol.DecodeData(payload)
	if err != nil {
		return err
	}
	if data.Receiver == f.Id {
		latency := max(f.Now().Sub(data.Origin), 0)
		perf.FramesDelivered.Add(1)
		perf.DeliveryLatency.Add(float64(latency.Milliseconds()))
		f.sink.Deliver(data.Sender, latency, string(data.Payload))
		return nil
	}
	route, ok := f.Table.Lookup(data.Receiver)
	if !ok {
		perf.FramesDropped.Add(1)
		f.Log.Debug("no route, dropping data frame", "dest", data.Receiver, "sender", data.Sender)
		return nil
	}
	link, ok := f.Links.Get(route.NextHop)
	if !ok {
		perf.FramesDropped.Add(1)
		f.Log.Debug("next hop is not connected, dropping data frame", "dest", data.Receiver, "nh", route.NextHop)
		return nil
	}
	// relay the original bytes, including the sender's timestamp
	if sendFrame(f.State, link, frame) {
		perf.FramesForwarded.Add(1)
	}
	return nil
}

// sendMessage originates a data frame to dest. This is the only place a timestamp is taken.
func (f *Forwarder) sendMessage(dest state.NodeId, payload []byte) error {
	if dest == f.Id {
		return state.ErrSelfDestination
	}
	route, ok := f.Table.Lookup(dest)
	if !ok {
		return fmt.Errorf("send to %s: %w", dest, state.ErrUnreachable)
	}
	link, ok := f.Links.Get(route.NextHop)
	if !ok {
		return fmt.Errorf("send to %s via %s: %w", dest, route.NextHop, state.ErrUnreachable)
	}
	frame := protocol.EncodeData(protocol.Data{
		Sender:   f.Id,
		Receiver: dest,
		Origin:   f.Now(),
		Payload:  payload,
	})
	if !sendFrame(f.State, link, frame) {
		return fmt.Errorf("send to %s via %s: %w", dest, route.NextHop, state.ErrLinkClosed)
	}
	countFrames(f.State, f.sink, 1)
	return nil
}

// broadcast floods a raw frame to every link
func (f *Forwarder) broadcast(frame []byte) int {
	sent := 0
	for _, link := range f.Links.All() {
		if sendFrame(f.State, link, frame) {
			sent++
		}
	}
	countFrames(f.State, f.sink, sent)
	return sent
}
