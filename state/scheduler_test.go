package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testEnv(t *testing.T) (*Env, chan func(*State) error, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	dispatchChan := make(chan func(*State) error, 10)
	env := &Env{
		DispatchChannel: dispatchChan,
		Context:         ctx,
		Cancel: func(err error) {
			cancel()
		},
	}
	return env, dispatchChan, cancel
}

func TestDispatch(t *testing.T) {
	env, dispatchChan, _ := testEnv(t)
	state := &State{
		Env: env,
	}

	var called bool
	env.Dispatch(func(s *State) error {
		called = true
		return nil
	})

	select {
	case f := <-dispatchChan:
		if err := f(state); err != nil {
			t.Errorf("Dispatch error: %v", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timed out waiting for dispatched function")
	}

	if !called {
		t.Fatal("Dispatch function was not executed")
	}
}

func TestDispatchAfterCancelDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env := &Env{
		DispatchChannel: make(chan func(*State) error),
		Context:         ctx,
		Cancel:          func(err error) {},
	}
	done := make(chan struct{})
	go func() {
		env.Dispatch(func(s *State) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a stopped loop")
	}
}

func TestDispatchWait(t *testing.T) {
	env, dispatchChan, _ := testEnv(t)
	state := &State{Env: env}
	go func() {
		f := <-dispatchChan
		_ = f(state)
	}()
	res, err := env.DispatchWait(func(s *State) (any, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, res)
}

func TestDispatchWaitCancelled(t *testing.T) {
	env, _, cancel := testEnv(t)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := env.DispatchWait(func(s *State) (any, error) {
		return nil, nil
	})
	// the queue has room, so the wait for the result is what gets cancelled
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepeatTask(t *testing.T) {
	env, dispatchChan, cancel := testEnv(t)
	state := &State{
		Env: env,
	}

	var wg sync.WaitGroup
	wg.Add(3)
	var count int

	env.RepeatTask(func(s *State) error {
		count++
		wg.Done()
		if count >= 3 {
			cancel()
		}
		return nil
	}, 20*time.Millisecond)

loop:
	for {
		select {
		case f := <-dispatchChan:
			err := f(state)
			if err != nil {
				t.Fatalf("RepeatTask error: %v", err)
			}
		case <-env.Context.Done():
			break loop
		case <-time.After(500 * time.Millisecond):
			t.Fatal("Timed out waiting for RepeatTask to execute")
		}
	}
	wg.Wait()
	if count != 3 {
		t.Fatalf("Expected 3 executions, got %d", count)
	}
}
