//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/encodeous/strand/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := NewTCPHarness()
	h.NewNode(t, 1)
	h.NewNode(t, 2, 1)
	h.NewNode(t, 3, 1, 2)
	h.Start(t)
	h.WaitConverged(t, 5*time.Second)
	h.Stop(t)
}

func TestChainOverTCP(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := NewTCPHarness()
	h.NewNode(t, 1)
	h.NewNode(t, 2, 1)
	h.NewNode(t, 3, 2)
	h.NewNode(t, 4, 3)
	h.Start(t)
	h.WaitConverged(t, 5*time.Second)

	routes, err := h.Nodes[1].Routes()
	require.NoError(t, err)
	assert.Equal(t, []state.RouteEntry{
		{Dest: 2, NextHop: 2, Hops: 1},
		{Dest: 3, NextHop: 2, Hops: 2},
		{Dest: 4, NextHop: 2, Hops: 3},
	}, routes)

	require.NoError(t, h.Nodes[1].SendMessage(4, []byte("over | the ; wire")))
	require.NoError(t, h.Nodes[4].SendMessage(1, []byte("and back")))
	require.Eventually(t, func() bool {
		return len(h.Inboxes[4].Messages()) == 1 && len(h.Inboxes[1].Messages()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"1: over | the ; wire"}, h.Inboxes[4].Messages())
	assert.Equal(t, []string{"4: and back"}, h.Inboxes[1].Messages())

	// losing 3 withdraws it from 1, the route to 4 through it stays behind
	require.NoError(t, h.Nodes[3].Stop())
	require.Eventually(t, func() bool {
		routes, err := h.Nodes[1].Routes()
		return err == nil && len(routes) == 2
	}, 5*time.Second, 10*time.Millisecond)
	routes, err = h.Nodes[1].Routes()
	require.NoError(t, err)
	assert.Equal(t, []state.RouteEntry{
		{Dest: 2, NextHop: 2, Hops: 1},
		{Dest: 4, NextHop: 2, Hops: 3},
	}, routes)
	assert.ErrorIs(t, h.Nodes[1].SendMessage(3, []byte("x")), state.ErrUnreachable)

	h.Stop(t)
}
