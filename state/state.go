package state

import (
	"context"
	"log/slog"
	"time"
)

type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	Modules map[string]Module
	Table   *RoutingTable
	Links   *LinkSet
	// FramesCount counts frames processed and originated since the node last had a link
	FramesCount int
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	LocalCfg
	Id      NodeId
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger
	// Now is the wall clock used for data frame timestamps and latency
	Now func() time.Time
}

func NewState(env *Env) *State {
	return &State{
		Env:     env,
		Modules: make(map[string]Module),
		Table:   NewRoutingTable(env.Id),
		Links:   NewLinkSet(),
	}
}
