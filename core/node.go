package core

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/encodeous/strand/state"
)

// Node is a single participant of the mesh. All routing state lives on one dispatch loop that
// runs between Start and Stop; every other method only posts work to that loop.
type Node struct {
	cfg       state.LocalCfg
	id        state.NodeId
	transport state.Transport
	sink      Sink
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	env     *state.Env
	done    chan struct{}
}

// NewNode creates a stopped node. The id is usually drawn with state.NewNodeId from cfg.Id.
func NewNode(id state.NodeId, cfg state.LocalCfg, transport state.Transport, sink Sink, log *slog.Logger) *Node {
	if sink == nil {
		sink = NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Node{
		cfg:       cfg,
		id:        id,
		transport: transport,
		sink:      sink,
		log:       log.With("node", id),
		now:       time.Now,
	}
}

func (n *Node) Id() state.NodeId {
	return n.id
}

// SetClock replaces the wall clock used for timestamps and latency. It must be called before Start.
func (n *Node) SetClock(now func() time.Time) {
	n.now = now
}

// Start brings the node from Stopped to Running. Starting a running node does nothing.
func (n *Node) Start() error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	dispatch := make(chan func(*state.State) error, state.DispatchQueueSize)
	env := &state.Env{
		DispatchChannel: dispatch,
		LocalCfg:        n.cfg,
		Id:              n.id,
		Context:         ctx,
		Cancel:          cancel,
		Log:             n.log,
		Now:             n.now,
	}
	s := state.NewState(env)
	if err := initModules(s, n.sink); err != nil {
		cancel(err)
		n.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		MainLoop(s, dispatch)
	}()
	n.env, n.done, n.running = env, done, true
	n.mu.Unlock()

	n.log.Info("node started")
	if err := n.transport.Start(n); err != nil {
		_ = n.Stop()
		return err
	}
	return nil
}

// Stop brings the node back to Stopped and waits for the loop to exit. Stopping a stopped node
// does nothing.
func (n *Node) Stop() error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = false
	env, done := n.env, n.done
	n.mu.Unlock()

	err := n.transport.Stop()
	env.Cancel(context.Canceled)
	<-done
	n.log.Info("node stopped")
	return err
}

// Done is closed when the current run of the node ends, either through Stop or a fatal error
func (n *Node) Done() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.done == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return n.done
}

// Err returns why the last run ended, or nil while running
func (n *Node) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.env == nil {
		return nil
	}
	return context.Cause(n.env.Context)
}

func (n *Node) currentEnv() *state.Env {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return nil
	}
	return n.env
}

func (n *Node) dispatch(fun func(*state.State) error) {
	env := n.currentEnv()
	if env == nil {
		n.log.Debug("node is stopped, dropping event")
		return
	}
	env.Dispatch(fun)
}

func (n *Node) dispatchWait(fun func(*state.State) (any, error)) (any, error) {
	env := n.currentEnv()
	if env == nil {
		return nil, state.ErrNotRunning
	}
	res, err := env.DispatchWait(fun)
	if errors.Is(err, context.Canceled) {
		return nil, state.ErrNotRunning
	}
	return res, err
}

func (n *Node) LinkConnected(link state.Link) {
	n.dispatch(func(s *state.State) error {
		return Get[*StrandRouter](s).linkConnected(link)
	})
}

func (n *Node) LinkDisconnected(link state.Link) {
	n.dispatch(func(s *state.State) error {
		return Get[*StrandRouter](s).linkDisconnected(link)
	})
}

func (n *Node) LinkReceivedFrame(link state.Link, frame []byte) {
	n.dispatch(func(s *state.State) error {
		return Get[*Forwarder](s).handleFrame(link, frame)
	})
}

// SendMessage sends payload to dest over the first-learned route
func (n *Node) SendMessage(dest state.NodeId, payload []byte) error {
	_, err := n.dispatchWait(func(s *state.State) (any, error) {
		return nil, Get[*Forwarder](s).sendMessage(dest, payload)
	})
	return err
}

// Broadcast sends a raw frame on every link and returns how many links accepted it
func (n *Node) Broadcast(frame []byte) (int, error) {
	res, err := n.dispatchWait(func(s *state.State) (any, error) {
		return Get[*Forwarder](s).broadcast(frame), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

func (n *Node) Routes() ([]state.RouteEntry, error) {
	res, err := n.dispatchWait(func(s *state.State) (any, error) {
		return s.Table.Entries(), nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]state.RouteEntry), nil
}

func (n *Node) Neighbours() ([]state.NodeId, error) {
	res, err := n.dispatchWait(func(s *state.State) (any, error) {
		return s.Links.Neighbours(), nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]state.NodeId), nil
}

func (n *Node) FramesCount() (int, error) {
	res, err := n.dispatchWait(func(s *state.State) (any, error) {
		return s.FramesCount, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

func initModules(s *state.State, sink Sink) error {
	modules := []state.Module{
		&StrandRouter{sink: sink},
		&Forwarder{sink: sink},
	}
	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}
