package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/strand/mock"
	"github.com/encodeous/strand/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records what the routing algorithms ask of the router
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) Broadcast(frame []byte, except state.NodeId) {
	h.actions = append(h.actions, MakeEvent("BROADCAST", string(frame), except))
}

func (h *RouterHarness) NeighboursChanged(neighbours []state.NodeId) {
	h.actions = append(h.actions, MakeEvent("NEIGHBOURS", fmt.Sprint(neighbours)))
}

func (h *RouterHarness) ResetFrames() {
	h.actions = append(h.actions, MakeEvent("RESET_FRAMES"))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns and clears everything recorded except log events
func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	logs := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		} else {
			logs = append(logs, action)
		}
	}
	h.actions = logs
	return x
}

// GetLogs returns and clears the router events that were logged
func (h *RouterHarness) GetLogs() []RouterEvent {
	x := make([]RouterEvent, 0)
	rest := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message == "LOG" {
			x = append(x, action.Args[0].(RouterEvent))
		} else {
			rest = append(rest, action)
		}
	}
	h.actions = rest
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg && len(event.Args) >= len(args) {
			match := true
			for i, arg := range args {
				if !cmp.Equal(event.Args[i], arg) {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

// newTestState builds the state of node id without a running loop
func newTestState(t *testing.T, id state.NodeId) *state.State {
	ctx, cancel := context.WithCancelCause(context.Background())
	t.Cleanup(func() { cancel(context.Canceled) })
	return state.NewState(&state.Env{
		DispatchChannel: make(chan func(*state.State) error, state.DispatchQueueSize),
		Id:              id,
		Context:         ctx,
		Cancel:          cancel,
		Log:             slog.New(slog.DiscardHandler),
		Now:             time.Now,
	})
}

// connect registers a recording link to neigh with the routing algorithms
func connect(s *state.State, h *RouterHarness, neigh state.NodeId) *mock.Link {
	link := mock.NewLink(neigh)
	HandleLinkConnected(s, h, link)
	return link
}

// RecordingSink keeps every sink event for inspection
type RecordingSink struct {
	mu         sync.Mutex
	Deliveries []Delivery
	Frames     []int
	Invalid    int
	Peers      [][]state.NodeId
}

type Delivery struct {
	Sender  state.NodeId
	Latency time.Duration
	Payload string
}

func (r *RecordingSink) Deliver(sender state.NodeId, latency time.Duration, payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deliveries = append(r.Deliveries, Delivery{sender, latency, payload})
}

func (r *RecordingSink) FramesCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames = append(r.Frames, n)
}

func (r *RecordingSink) InvalidFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Invalid++
}

func (r *RecordingSink) PeersChanged(peers []state.NodeId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Peers = append(r.Peers, slices.Clone(peers))
}

func (r *RecordingSink) GetDeliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.Deliveries)
}

func (r *RecordingSink) InvalidCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Invalid
}

func (r *RecordingSink) LastFrames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Frames) == 0 {
		return 0
	}
	return r.Frames[len(r.Frames)-1]
}
