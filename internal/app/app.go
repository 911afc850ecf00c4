package app

import (
	"context"
	"fmt"
	"time"

	"proxybot/internal/bot"
	"proxybot/internal/broadcast"
	"proxybot/internal/config"
	"proxybot/internal/eventbus"
	"proxybot/internal/httpapi"
	"proxybot/internal/links"
	rtsup "proxybot/internal/runtime/supervisor"
	"proxybot/internal/settings"
	"proxybot/internal/storage"
	"proxybot/internal/task/scheduler"
	kit "proxybot/internal/transport"
	telegram "proxybot/internal/transport/telegram/adapter"
	"proxybot/internal/transport/telegram/router"
	logx "proxybot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	cfg  *config.Config
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter  *telegram.Adapter
	provider *links.Provider
	bc       *broadcast.Service
	sched    *scheduler.Service
	router   *router.Router
	http     *httpapi.Server

	updates chan kit.Update
}

// NewApp loads the config at cfgPath (empty: environment only) and builds every component.
// Nothing runs until Start.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	ad, err := telegram.New(mapAdapterConfig(cfg), bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg), ad)
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	appLog := log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	store := storage.Store(storage.Disabled{})
	if sc, ok := mapStorageConfig(cfg); ok {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		appLog.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	octx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	src, err := links.Open(octx, mapLinksConfig(cfg), log.With(logx.String("comp", "links")))
	cancel()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("links: %w", err)
	}
	provider := links.NewProvider(src, log.With(logx.String("comp", "links")))

	st := settings.NewStore(cfg.Settings.Path)
	if err := st.Ensure(); err != nil {
		appLog.Warn("settings file not writable", logx.String("path", st.Path()), logx.Err(err))
	}

	render := mapFormatter(cfg)
	bc := broadcast.New(mapBroadcastConfig(cfg), provider, ad, render, log.With(logx.String("comp", "broadcast")), bus)

	schedCfg := mapSchedulerConfig(cfg)
	sched := scheduler.New(schedCfg, func(ctx context.Context) {
		bc.SendUpdates(broadcast.WithTrigger(ctx, "schedule"))
	}, log.With(logx.String("comp", "scheduler")), bus)

	rt := router.New(log.With(logx.String("comp", "router")), ad, cfg.Telegram.AdminIDs)
	bot.New(bot.Deps{
		Links:     provider,
		Scheduler: sched,
		Settings:  st,
		Audit:     store,
		Bus:       bus,
		Format:    render,
		LogPath:   logSvc.FilePath,
		Every:     schedCfg.Every,
		Log:       log,
	}).Register(rt)

	a := &App{
		cfgm:     cfgm,
		cfg:      cfg,
		log:      appLog,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		adapter:  ad,
		provider: provider,
		bc:       bc,
		sched:    sched,
		router:   rt,
		updates:  make(chan kit.Update, 256),
	}
	if cfg.HTTP.IsEnabled() {
		a.http = httpapi.New(cfg.HTTP.Addr, httpapi.Deps{
			Links:      provider,
			Broadcast:  bc,
			Scheduler:  sched,
			BotRunning: ad.Polling,
			Audit:      store,
			Log:        log,
		})
	}
	return a, nil
}

// Done is closed when the app context is canceled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log))
	sup := a.sup

	if err := a.adapter.Start(sup.Context(), a.updates); err != nil {
		return err
	}

	sup.Go("telegram.dispatcher", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})
	sup.Go0("telegram.menu", func(c context.Context) {
		if err := a.router.PublishMenu(c); err != nil {
			a.log.Warn("menu update failed", logx.Err(err))
		}
	})

	if a.http != nil {
		sup.Go("http.server", a.http.Run)
	}

	sup.Go0("events.log", a.logEvents)

	if a.cfgm.Path() != "" {
		updates := a.cfgm.Subscribe(4)
		sup.Go0("config.reload", func(c context.Context) {
			defer a.cfgm.Unsubscribe(updates)
			for {
				select {
				case <-c.Done():
					return
				case cfg := <-updates:
					// only logging is hot; other sections need a restart
					a.logs.Apply(mapLogConfig(cfg))
					a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded})
					a.log.Info("config reloaded (logging applied)")
				}
			}
		})
		sup.Go("config.watch", a.cfgm.Watch)
	}

	if a.cfg.Scheduler.StartOnBoot() {
		a.sched.Start(sup.Context())
	}
	if a.cfg.Broadcast.SendOnStartup() {
		sup.Go0("broadcast.startup", func(c context.Context) {
			a.bc.SendUpdates(broadcast.WithTrigger(c, "startup"))
		})
	}

	a.log.Info("app started",
		logx.Int("groups", len(a.cfg.Telegram.GroupChatIDs)),
		logx.Int("admins", len(a.cfg.Telegram.AdminIDs)),
		logx.Bool("scheduler", a.sched.Running()),
	)
	return nil
}

func (a *App) logEvents(ctx context.Context) {
	ch, unsub := a.bus.Subscribe(32)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
		}
	}
}

// Stop shuts components down in order. Each step is bounded so one stuck
// component cannot stall the rest.
func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 3*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("adapter", 3*time.Second, a.adapter.Stop)
	step("supervisor", 6*time.Second, a.sup.Wait)
	step("links", 2*time.Second, func(context.Context) error { return a.provider.Close() })
	step("storage", 1*time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}
