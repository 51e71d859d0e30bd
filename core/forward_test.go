package core

import (
	"strings"
	"testing"
	"time"

	"github.com/encodeous/strand/mock"
	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestNode builds node id with its modules initialised, driven directly instead of by a loop
func newTestNode(t *testing.T, id state.NodeId) (*state.State, *RecordingSink) {
	s := newTestState(t, id)
	sink := &RecordingSink{}
	require.NoError(t, initModules(s, sink))
	return s, sink
}

func link(t *testing.T, s *state.State, neigh state.NodeId) *mock.Link {
	l := mock.NewLink(neigh)
	require.NoError(t, Get[*StrandRouter](s).linkConnected(l))
	return l
}

func receive(t *testing.T, s *state.State, from state.Link, frame string) {
	require.NoError(t, Get[*Forwarder](s).handleFrame(from, []byte(frame)))
}

func TestForwardPassesFrameThrough(t *testing.T) {
	s, sink := newTestNode(t, 2)
	l1 := link(t, s, 1)
	l3 := link(t, s, 3)
	l1.Take()
	l3.Take()

	frame := "2|1|3|1000|hi|there;x"
	receive(t, s, l1, frame)

	assert.Equal(t, []string{frame}, l3.Sent())
	assert.Empty(t, l1.Sent())
	assert.Empty(t, sink.GetDeliveries())
}

func TestForwardUsesFirstLearnedNextHop(t *testing.T) {
	s, _ := newTestNode(t, 1)
	l2 := link(t, s, 2)
	l4 := link(t, s, 4)
	receive(t, s, l2, "03|3|1")
	receive(t, s, l4, "03|3|1")
	l2.Take()
	l4.Take()

	receive(t, s, l4, "2|9|3|1000|x")

	assert.Equal(t, []string{"2|9|3|1000|x"}, l2.Sent())
	assert.Empty(t, l4.Sent())
}

func TestDeliverLocal(t *testing.T) {
	s, sink := newTestNode(t, 3)
	s.Now = func() time.Time { return time.UnixMilli(1500) }
	l2 := link(t, s, 2)
	l2.Take()

	receive(t, s, l2, "2|1|3|1000|hi")

	assert.Equal(t, []Delivery{{Sender: 1, Latency: 500 * time.Millisecond, Payload: "hi"}}, sink.GetDeliveries())
	assert.Empty(t, l2.Sent())
}

func TestDeliverLocalClampsLatency(t *testing.T) {
	s, sink := newTestNode(t, 3)
	s.Now = func() time.Time { return time.UnixMilli(1000) }
	l2 := link(t, s, 2)

	receive(t, s, l2, "2|1|3|5000|early")

	d := sink.GetDeliveries()
	require.Len(t, d, 1)
	assert.Equal(t, time.Duration(0), d[0].Latency)
}

func TestForwardUnreachableDropped(t *testing.T) {
	s, sink := newTestNode(t, 2)
	l1 := link(t, s, 1)
	l1.Take()
	before := s.FramesCount

	receive(t, s, l1, "2|1|8|1000|lost")

	assert.Empty(t, l1.Sent())
	assert.Zero(t, sink.InvalidCount())
	assert.Equal(t, before+1, s.FramesCount)
}

func TestForwardStaleNextHopDropped(t *testing.T) {
	s, _ := newTestNode(t, 1)
	l2 := link(t, s, 2)
	l3 := link(t, s, 3)
	receive(t, s, l2, "05|5|1")
	// 5 stays in the table via 2 after 2 goes away
	require.NoError(t, Get[*StrandRouter](s).linkDisconnected(l2))
	_, ok := s.Table.Lookup(5)
	require.True(t, ok)
	l3.Take()

	receive(t, s, l3, "2|3|5|1000|x")

	assert.Empty(t, l3.Sent())
}

func TestInvalidFrames(t *testing.T) {
	for _, frame := range []string{
		"",
		"x",
		"9|1|2",
		"0",
		"01|2",
		"03|3|1;bad",
		"03|3|9223372036854775807",
		"03|3|+2",
		"1",
		"1abc",
		"2",
		"2|1|3",
		"2|1|3|soon|hi",
		"2|0|3|1000|hi",
		"2|1|3|-5|hi",
	} {
		t.Run(frame, func(t *testing.T) {
			s, sink := newTestNode(t, 1)
			l2 := link(t, s, 2)
			before := s.Table.Entries()
			frames := s.FramesCount
			l2.Take()

			receive(t, s, l2, frame)

			assert.Equal(t, 1, sink.InvalidCount())
			assert.Equal(t, before, s.Table.Entries())
			assert.Equal(t, frames, s.FramesCount)
			assert.Empty(t, l2.Sent())
			assert.Empty(t, sink.GetDeliveries())
		})
	}
}

func TestLongestRouteStaysAdvertisable(t *testing.T) {
	s, _ := newTestNode(t, 1)
	l2 := link(t, s, 2)
	l4 := link(t, s, 4)
	l2.Take()
	l4.Take()

	receive(t, s, l2, "03|3|1073741823")

	e, ok := s.Table.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, state.RouteEntry{Dest: 3, NextHop: 2, Hops: state.MaxHops}, e)

	sent := l4.Take()
	require.Len(t, sent, 1)
	mode, payload, err := protocol.Classify([]byte(sent[0]))
	require.NoError(t, err)
	assert.Equal(t, protocol.ModeAdvertisement, mode)
	_, err = protocol.DecodeAdvertisement(payload)
	assert.NoError(t, err)
}

func TestFrameCounter(t *testing.T) {
	s, sink := newTestNode(t, 1)
	l2 := link(t, s, 2)
	// the advertisement sent to 2
	assert.Equal(t, 1, s.FramesCount)

	link(t, s, 3)
	// the advertisement sent to 2 and 3
	assert.Equal(t, 3, s.FramesCount)

	receive(t, s, l2, "1999")
	assert.Equal(t, 4, s.FramesCount)
	assert.Equal(t, 4, sink.LastFrames())

	require.NoError(t, Get[*StrandRouter](s).linkDisconnected(l2))
	// the withdrawal of 2 sent to 3
	assert.Equal(t, 5, s.FramesCount)

	l3, _ := s.Links.Get(3)
	require.NoError(t, Get[*StrandRouter](s).linkDisconnected(l3))
	assert.Equal(t, 0, s.FramesCount)
	assert.Equal(t, 0, sink.LastFrames())
}

func TestSendMessage(t *testing.T) {
	s, sink := newTestNode(t, 1)
	s.Now = func() time.Time { return time.UnixMilli(4242) }
	l2 := link(t, s, 2)
	receive(t, s, l2, "03|3|1")
	l2.Take()
	f := Get[*Forwarder](s)

	require.NoError(t, f.sendMessage(3, []byte("hi")))
	assert.Equal(t, []string{"2|1|3|4242|hi"}, l2.Take())
	assert.Equal(t, s.FramesCount, sink.LastFrames())

	assert.ErrorIs(t, f.sendMessage(1, []byte("me")), state.ErrSelfDestination)
	assert.ErrorIs(t, f.sendMessage(7, []byte("nobody")), state.ErrUnreachable)
	assert.Empty(t, l2.Sent())

	require.NoError(t, l2.Close())
	assert.ErrorIs(t, f.sendMessage(2, []byte("closed")), state.ErrLinkClosed)
}

func TestBroadcastFrame(t *testing.T) {
	s, _ := newTestNode(t, 1)
	f := Get[*Forwarder](s)
	assert.Equal(t, 0, f.broadcast([]byte("raw")))

	l2 := link(t, s, 2)
	l3 := link(t, s, 3)
	l2.Take()
	l3.Take()
	frames := s.FramesCount

	assert.Equal(t, 2, f.broadcast([]byte("raw")))
	assert.Equal(t, []string{"raw"}, l2.Sent())
	assert.Equal(t, []string{"raw"}, l3.Sent())
	assert.Equal(t, frames+2, s.FramesCount)
}

func TestBroadcastSkipsFailedLinks(t *testing.T) {
	s, _ := newTestNode(t, 1)
	l2 := link(t, s, 2)
	l3 := link(t, s, 3)
	require.NoError(t, l2.Close())
	l3.Take()

	receive(t, s, l3, "04|4|1")

	// both advertisements were sent before the link closed
	assert.Len(t, l2.Sent(), 2)
	assert.Empty(t, l3.Sent())
	assert.Equal(t, 3, s.Table.Len())
}

func TestPeersChanged(t *testing.T) {
	s, sink := newTestNode(t, 1)
	l2 := link(t, s, 2)
	link(t, s, 3)
	require.NoError(t, Get[*StrandRouter](s).linkDisconnected(l2))

	assert.Equal(t, [][]state.NodeId{{2}, {2, 3}, {3}}, sink.Peers)
}

func TestDescribeFrame(t *testing.T) {
	assert.Equal(t, "0abc", describeFrame([]byte("0abc")))
	big := []byte(strings.Repeat("x", state.LogTruncateThreshold+1))
	assert.Equal(t, "<1000001 bytes>", describeFrame(big))
}
