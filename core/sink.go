package core

import (
	"log/slog"
	"time"

	"github.com/encodeous/strand/state"
)

// Sink is told about everything a user of the node would want to see. Calls happen on the node
// loop and must return quickly.
type Sink interface {
	Deliver(sender state.NodeId, latency time.Duration, payload string)
	FramesCount(n int)
	InvalidFrame()
	PeersChanged(peers []state.NodeId)
}

type NopSink struct{}

func (NopSink) Deliver(state.NodeId, time.Duration, string) {}
func (NopSink) FramesCount(int)                            {}
func (NopSink) InvalidFrame()                              {}
func (NopSink) PeersChanged([]state.NodeId)                {}

// LogSink reports node events through a structured logger
type LogSink struct {
	Log *slog.Logger
}

func (l LogSink) Deliver(sender state.NodeId, latency time.Duration, payload string) {
	l.Log.Info("message received",
		"sender", sender,
		"latency", latency.Milliseconds(),
		"message", describeFrame([]byte(payload)))
}

func (l LogSink) FramesCount(n int) {
	l.Log.Debug("frames", "count", n)
}

func (l LogSink) InvalidFrame() {
	l.Log.Warn("invalid frame received")
}

func (l LogSink) PeersChanged(peers []state.NodeId) {
	l.Log.Info("peers changed", "connected", len(peers), "peers", peers)
}

type multiSink []Sink

// MultiSink fans every event out to all sinks in order
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Deliver(sender state.NodeId, latency time.Duration, payload string) {
	for _, s := range m {
		s.Deliver(sender, latency, payload)
	}
}

func (m multiSink) FramesCount(n int) {
	for _, s := range m {
		s.FramesCount(n)
	}
}

func (m multiSink) InvalidFrame() {
	for _, s := range m {
		s.InvalidFrame()
	}
}

func (m multiSink) PeersChanged(peers []state.NodeId) {
	for _, s := range m {
		s.PeersChanged(peers)
	}
}
