package repository

import (
	"context"
	"testing"
	"time"
)

func TestState_SubscribeReplaysCurrent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := NewState(1, nil)
	state.Set(2)

	ch := state.Subscribe(ctx)
	if got := <-ch; got != 2 {
		t.Fatalf("expected replay of 2, got %d", got)
	}
}

func TestState_SlowSubscriberSeesLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := NewState(0, nil)
	ch := state.Subscribe(ctx)

	for i := 1; i <= 5; i++ {
		state.Set(i)
	}

	if got := <-ch; got != 5 {
		t.Fatalf("expected latest value 5, got %d", got)
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestState_CloneOnRead(t *testing.T) {
	state := NewState([]int{1, 2}, func(in []int) []int {
		out := make([]int, len(in))
		copy(out, in)
		return out
	})

	v := state.Value()
	v[0] = 100

	if state.Value()[0] != 1 {
		t.Fatal("Value must return a copy")
	}
}

func TestState_UnsubscribeOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	state := NewState("a", nil)
	ch := state.Subscribe(ctx)
	<-ch

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if state.Subscribers() != 0 {
					t.Fatalf("expected no subscribers, got %d", state.Subscribers())
				}
				state.Set("b")
				return
			}
		case <-deadline:
			t.Fatal("channel was not closed after cancel")
		}
	}
}
