package scheduler

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"proxybot/internal/eventbus"
	"proxybot/internal/metrics"
	logx "proxybot/pkg/logx"
)

type Service struct {
	cfg Config
	job Job
	log logx.Logger
	bus eventbus.Bus
	loc *time.Location

	// opMu serializes Start/Stop. mu guards the fields below and is never
	// held while waiting on a run; running is read lock-free.
	opMu    sync.Mutex
	mu      sync.Mutex
	c       *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc
	running atomic.Bool

	runs   atomic.Uint64
	panics atomic.Uint64
}

func New(cfg Config, job Job, log logx.Logger, bus eventbus.Bus) *Service {
	if cfg.Name == "" {
		cfg.Name = "broadcast"
	}
	if cfg.Every <= 0 {
		cfg.Every = DefaultEvery
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			log.Warn("invalid scheduler timezone; using local", logx.String("tz", tz), logx.Err(err))
		}
	}
	return &Service{cfg: cfg, job: job, log: log.With(logx.String("job", cfg.Name)), bus: bus, loc: loc}
}

// Running reports whether the job is scheduled.
func (s *Service) Running() bool { return s.running.Load() }

// Start schedules the job. It returns false when it was already running.
// Runs use a context detached from ctx's cancellation; Stop cancels them.
func (s *Service) Start(ctx context.Context) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return false
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	s.entry = c.Schedule(cron.Every(s.cfg.Every), cron.FuncJob(func() { s.run(runCtx) }))
	c.Start()

	s.c, s.cancel = c, cancel
	s.running.Store(true)
	metrics.SchedulerRunning.Set(1)
	s.bus.Publish(eventbus.Event{Type: eventbus.SchedulerStarted, Data: s.cfg.Name})
	s.log.Info("scheduler started", logx.Duration("every", s.cfg.Every), logx.String("tz", s.loc.String()))
	return true
}

// Stop unschedules the job and waits for an in-flight run, or for ctx.
// It returns false when it was already stopped.
func (s *Service) Stop(ctx context.Context) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	if s.c == nil {
		s.mu.Unlock()
		return false
	}
	c, cancel := s.c, s.cancel
	s.c, s.cancel, s.entry = nil, nil, 0
	s.running.Store(false)
	s.mu.Unlock()
	metrics.SchedulerRunning.Set(0)

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out; canceling in-flight run")
	}
	cancel()

	s.bus.Publish(eventbus.Event{Type: eventbus.SchedulerStopped, Data: s.cfg.Name})
	s.log.Info("scheduler stopped")
	return true
}

// Next returns the next run time while running.
func (s *Service) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}, false
	}
	e := s.c.Entry(s.entry)
	if e.ID == 0 || e.Next.IsZero() {
		return time.Time{}, false
	}
	return e.Next.In(s.loc), true
}

func (s *Service) Snapshot() Snapshot {
	snap := Snapshot{
		Name:     s.cfg.Name,
		Running:  s.Running(),
		Every:    s.cfg.Every,
		Timezone: s.loc.String(),
		Runs:     s.runs.Load(),
		Panics:   s.panics.Load(),
	}
	s.mu.Lock()
	if s.c != nil {
		e := s.c.Entry(s.entry)
		snap.Next, snap.Prev = e.Next, e.Prev
	}
	s.mu.Unlock()
	return snap
}

// run is the catch-all around the job body. cron.Recover stays in the chain
// as a second line.
func (s *Service) run(ctx context.Context) {
	s.runs.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			s.log.Error("scheduled job panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}
	start := time.Now()
	s.job(ctx)
	s.log.Debug("scheduled job finished", logx.Duration("took", time.Since(start)))
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
