package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoRecoversPanicAndKeepsFirstError(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background())
	s.Go("boom", func(ctx context.Context) error { panic("bad") })
	s.Go("fine", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil || !strings.Contains(err.Error(), "panic in boom") {
		t.Fatalf("Wait err = %v", err)
	}
	if c := s.Counters(); c.Started != 2 || c.Active != 0 {
		t.Fatalf("counters = %+v", c)
	}
}

func TestCanceledIsNotAnError(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background())
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop err = %v", err)
	}
}

func TestCancelOnError(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background(), WithCancelOnError(true))
	s.Go("fail", func(ctx context.Context) error { return errors.New("nope") })
	select {
	case <-s.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled")
	}
}

func TestGoRestartRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background())
	var runs atomic.Int32
	s.GoRestart("poll", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithFixedDelay(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait err = %v", err)
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
}

func TestGoRestartGivesUp(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background())
	var runs atomic.Int32
	s.GoRestart("poll", func(ctx context.Context) error {
		runs.Add(1)
		panic("always")
	}, WithFixedDelay(time.Millisecond), WithMaxRestarts(2))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatal("expected error after giving up")
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
}
