package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"proxybot/internal/eventbus"
	logx "proxybot/pkg/logx"
)

func TestStartStopIdempotent(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(Config{Every: time.Hour, Timezone: "UTC"}, func(context.Context) {}, logx.Nop(), bus)
	ctx := context.Background()

	if s.Running() {
		t.Fatal("new scheduler must be stopped")
	}
	if !s.Start(ctx) {
		t.Fatal("first Start should report a transition")
	}
	if s.Start(ctx) {
		t.Fatal("second Start must be a no-op")
	}
	if !s.Running() {
		t.Fatal("state must be Running after start, start")
	}
	if next, ok := s.Next(); !ok || time.Until(next) <= 0 {
		t.Fatalf("Next = %v %v", next, ok)
	}

	if !s.Stop(ctx) {
		t.Fatal("first Stop should report a transition")
	}
	if s.Stop(ctx) {
		t.Fatal("second Stop must be a no-op")
	}
	if s.Running() {
		t.Fatal("state must be Stopped after stop, stop")
	}
	if _, ok := s.Next(); ok {
		t.Fatal("Next must be unset while stopped")
	}

	want := []string{eventbus.SchedulerStarted, eventbus.SchedulerStopped}
	for _, w := range want {
		if e := <-events; e.Type != w {
			t.Fatalf("event = %q, want %q", e.Type, w)
		}
	}
	select {
	case e := <-events:
		t.Fatalf("unexpected extra event %q", e.Type)
	default:
	}
}

func TestRunRecoversPanic(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	s := New(Config{Every: time.Hour}, func(context.Context) {
		calls.Add(1)
		panic("job bug")
	}, logx.Nop(), nil)

	s.run(context.Background())
	s.run(context.Background())
	if calls.Load() != 2 {
		t.Fatalf("calls = %d", calls.Load())
	}
	snap := s.Snapshot()
	if snap.Runs != 2 || snap.Panics != 2 || snap.Name != "broadcast" || snap.Running {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestJobRunsOnSchedule(t *testing.T) {
	t.Parallel()
	ran := make(chan struct{}, 1)
	// cron.Every rounds up to one second.
	s := New(Config{Every: time.Second}, func(ctx context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestStopCancelsRunContext(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	done := make(chan error, 1)
	s := New(Config{Every: time.Second}, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		done <- ctx.Err()
	}, logx.Nop(), nil)

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Stop(ctx)
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected canceled context")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight run was not canceled")
	}
}

func TestStatusReadsDoNotWaitForStop(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s := New(Config{Every: time.Second}, func(ctx context.Context) {
		once.Do(func() { close(started) })
		<-release
	}, logx.Nop(), nil)

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	stopped := make(chan bool, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	// Stop is now blocked on the in-flight run.
	deadline := time.Now().Add(2 * time.Second)
	for s.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	reads := make(chan struct{})
	go func() {
		s.Next()
		s.Snapshot()
		close(reads)
	}()
	select {
	case <-reads:
	case <-time.After(time.Second):
		t.Fatal("Next/Snapshot blocked while Stop waited for the run")
	}
	select {
	case <-stopped:
		t.Fatal("Stop returned before the run finished")
	default:
	}

	close(release)
	select {
	case ok := <-stopped:
		if !ok {
			t.Fatal("Stop reported not running")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
}
