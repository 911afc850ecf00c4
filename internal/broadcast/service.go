package broadcast

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"proxybot/internal/eventbus"
	"proxybot/internal/format"
	"proxybot/internal/metrics"
	kit "proxybot/internal/transport"
	logx "proxybot/pkg/logx"
)

type Service struct {
	cfg     Config
	links   Fetcher
	sender  kit.Sender
	render  format.Formatter
	log     logx.Logger
	bus     eventbus.Bus
	limiter *rate.Limiter
	now     func() time.Time

	// one cycle at a time; the scheduler and the HTTP API may race
	runMu sync.Mutex
	last  atomic.Pointer[Result]
}

func New(cfg Config, links Fetcher, sender kit.Sender, f format.Formatter, log logx.Logger, bus eventbus.Bus) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{
		cfg:     cfg,
		links:   links,
		sender:  sender,
		render:  f,
		log:     log,
		bus:     bus,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		now:     time.Now,
	}
}

// Last returns the most recent cycle result.
func (s *Service) Last() (Result, bool) {
	r := s.last.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// SendUpdates runs one broadcast cycle and reports what happened.
func (s *Service) SendUpdates(ctx context.Context) (res Result) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res = Result{Trigger: triggerFrom(ctx), StartedAt: s.now()}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("broadcast panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			res.Err = fmt.Sprint(r)
		}
		res.Took = time.Since(res.StartedAt)
		s.finish(res)
	}()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	proxies := s.links.FetchProxies(ctx, s.cfg.ProxyCount)
	res.Proxies = len(proxies)
	parts := []string{s.render.ProxyLinks(proxies, format.StyleGroup)}
	if s.cfg.ConfigCount > 0 {
		configs := s.links.FetchConfigs(ctx, s.cfg.ConfigCount)
		res.Configs = len(configs)
		parts = append(parts, s.render.Configs(configs))
	}
	text := s.render.Update(res.StartedAt, parts...)

	for _, group := range s.cfg.Groups {
		if err := s.deliver(ctx, group, text); err != nil {
			res.Failed++
			metrics.SendsTotal.WithLabelValues("failed").Inc()
			s.log.Error("failed to send to group", logx.Int64("chat_id", group), logx.Err(err))
			if s.notifyAdmins(ctx, group, text) {
				res.Notified++
			}
			continue
		}
		res.Sent++
		metrics.SendsTotal.WithLabelValues("ok").Inc()
	}
	return res
}

// notifyAdmins stops at the first admin that receives the copy.
func (s *Service) notifyAdmins(ctx context.Context, group int64, text string) bool {
	msg := "⚠️ Failed to send to group " + strconv.FormatInt(group, 10) + ". Proxy message: " + text
	for _, admin := range s.cfg.Admins {
		if err := s.deliver(ctx, admin, msg); err != nil {
			s.log.Debug("admin fallback failed", logx.Int64("admin_id", admin), logx.Err(err))
			continue
		}
		metrics.SendsTotal.WithLabelValues("fallback_ok").Inc()
		return true
	}
	metrics.SendsTotal.WithLabelValues("fallback_failed").Inc()
	s.log.Error("no admin could be notified", logx.Int64("chat_id", group), logx.Int("admins", len(s.cfg.Admins)))
	return false
}

// deliver sends text in as many parts as Telegram needs.
func (s *Service) deliver(ctx context.Context, chatID int64, text string) error {
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}
	for _, part := range format.SplitMessage(text, format.MaxMessageLen) {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := s.sender.SendText(ctx, kit.ChatTarget{ChatID: chatID}, part, opt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) finish(res Result) {
	s.last.Store(&res)
	metrics.BroadcastsTotal.WithLabelValues(res.Trigger).Inc()
	metrics.BroadcastDuration.Observe(res.Took.Seconds())
	s.bus.Publish(eventbus.Event{Type: eventbus.BroadcastFinished, Data: res})

	fields := []logx.Field{
		logx.String("trigger", res.Trigger),
		logx.Int("proxies", res.Proxies),
		logx.Int("configs", res.Configs),
		logx.Int("sent", res.Sent),
		logx.Int("failed", res.Failed),
		logx.Duration("took", res.Took),
	}
	if res.Failed > 0 || res.Err != "" {
		s.log.Warn("update sent with failures", fields...)
		return
	}
	s.log.Info("update sent", fields...)
}
