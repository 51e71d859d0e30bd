package core

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/encodeous/strand/state"
	"github.com/stretchr/testify/assert"
)

func TestMultiSink(t *testing.T) {
	a, b := &RecordingSink{}, &RecordingSink{}
	s := MultiSink(a, NopSink{}, b)

	s.Deliver(4, time.Second, "hi")
	s.FramesCount(3)
	s.InvalidFrame()
	s.PeersChanged([]state.NodeId{1, 2})

	for _, r := range []*RecordingSink{a, b} {
		assert.Equal(t, []Delivery{{4, time.Second, "hi"}}, r.GetDeliveries())
		assert.Equal(t, 3, r.LastFrames())
		assert.Equal(t, 1, r.InvalidCount())
		assert.Equal(t, [][]state.NodeId{{1, 2}}, r.Peers)
	}
}

func TestLogSink(t *testing.T) {
	buf := &bytes.Buffer{}
	s := LogSink{Log: slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	s.Deliver(4, 1500*time.Millisecond, "hi")
	s.FramesCount(3)
	s.InvalidFrame()
	s.PeersChanged([]state.NodeId{1, 2})

	out := buf.String()
	assert.Contains(t, out, `msg="message received" sender=4 latency=1500 message=hi`)
	assert.Contains(t, out, "count=3")
	assert.Contains(t, out, "invalid frame received")
	assert.Contains(t, out, "peers=\"[1 2]\"")
}
