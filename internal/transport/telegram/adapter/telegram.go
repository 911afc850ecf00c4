package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"proxybot/internal/format"
	rtsup "proxybot/internal/runtime/supervisor"
	kit "proxybot/internal/transport"
	logx "proxybot/pkg/logx"
)

// Adapter is the telebot.v4 implementation of transport.Adapter.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	out atomic.Value // chan<- kit.Update

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor

	dropped atomic.Uint64
	polling atomic.Bool
}

var _ kit.Adapter = (*Adapter)(nil)
var _ kit.CommandMenuUpdater = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	client, err := httpClient(cfg.Proxy, cfg.PollTimeout)
	if err != nil {
		return nil, err
	}
	a := &Adapter{cfg: cfg, log: log}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: cfg.PollTimeout},
		Client:  client,
		Offline: cfg.Offline,
		OnError: func(err error, _ tele.Context) {
			a.log.Error("telegram error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	a.bot = b
	var nilOut chan<- kit.Update
	a.out.Store(nilOut)
	a.registerHandlers()
	return a, nil
}

// httpClient builds the Bot API client. Its timeout must exceed the long-poll timeout.
func httpClient(proxy string, poll time.Duration) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p := strings.TrimSpace(proxy); p != "" {
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("telegram proxy %q: invalid url", p)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: tr, Timeout: poll + 30*time.Second}, nil
}

func (a *Adapter) registerHandlers() {
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Chat == nil {
			return nil
		}
		msg := &kit.Message{
			ID:      m.ID,
			ChatID:  m.Chat.ID,
			Text:    m.Text,
			Private: m.Chat.Type == tele.ChatPrivate,
		}
		if m.Sender != nil {
			msg.FromID, msg.FromUsername = m.Sender.ID, m.Sender.Username
		}
		a.push(kit.Update{Kind: kit.UpdateMessage, Message: msg})
		return nil
	})

	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
			return nil
		}
		up := &kit.Callback{
			ID:        cb.ID,
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.ID,
			Data:      cb.Data,
			Private:   cb.Message.Chat.Type == tele.ChatPrivate,
		}
		if cb.Sender != nil {
			up.FromID = cb.Sender.ID
		}
		a.push(kit.Update{Kind: kit.UpdateCallback, Callback: up})
		return nil
	})
}

func (a *Adapter) push(up kit.Update) {
	out, _ := a.out.Load().(chan<- kit.Update)
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		a.dropped.Add(1)
	}
}

// Polling reports whether the long-poll loop is active.
func (a *Adapter) Polling() bool { return a.polling.Load() }

// Start begins long polling and forwards updates to out. Polling restarts
// after RestartDelay whenever it exits while ctx is still live.
func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log))
	sup := a.sup
	a.runMu.Unlock()

	sup.Go0("telegram.drop_report", func(c context.Context) {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-c.Done():
				return
			case <-t.C:
				if n := a.dropped.Swap(0); n > 0 {
					a.log.Warn("incoming updates dropped (dispatcher busy)", logx.Any("count", n), logx.Int("chan_cap", cap(out)))
				}
			}
		}
	})

	sup.Go0("telegram.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})

	sup.GoRestart("telegram.poll", func(c context.Context) error {
		if c.Err() != nil {
			return nil
		}
		a.log.Info("starting bot polling")
		a.polling.Store(true)
		a.bot.Start()
		a.polling.Store(false)
		if c.Err() != nil {
			return nil
		}
		return errors.New("polling exited unexpectedly")
	}, rtsup.WithFixedDelay(a.cfg.RestartDelay))
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	var nilOut chan<- kit.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()
	if !wasRunning || sup == nil {
		return nil
	}

	sup.Cancel()
	// A pending getUpdates can hold Stop for the whole poll timeout.
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sup.Wait(wctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("telegram stop error", logx.Err(err))
	}
	return nil
}

func sendOptions(opt *kit.SendOptions, withMarkup bool) *tele.SendOptions {
	so := &tele.SendOptions{ParseMode: opt.ParseMode, DisableWebPagePreview: opt.DisablePreview}
	if opt.ReplyToID != 0 {
		so.ReplyTo = &tele.Message{ID: opt.ReplyToID}
	}
	if withMarkup {
		if rm, ok := opt.ReplyMarkupAdapter.(*tele.ReplyMarkup); ok {
			so.ReplyMarkup = rm
		}
	}
	return so
}

// SendText sends text, split at Telegram's limit. Markup and reply go on the first part.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chat := &tele.Chat{ID: to.ChatID}
	var first kit.MessageRef
	for i, part := range format.SplitMessage(text, format.MaxMessageLen) {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		so := sendOptions(opt, i == 0)
		if i > 0 {
			so.ReplyTo = nil
		}
		msg, err := a.bot.Send(chat, part, so)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// EditText replaces the message text; overflow parts are sent as new messages.
func (a *Adapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	parts := format.SplitMessage(text, format.MaxMessageLen)
	so := sendOptions(opt, true)
	so.ReplyTo = nil
	m := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	if _, err := a.bot.Edit(m, parts[0], so); err != nil {
		return err
	}
	for _, part := range parts[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.bot.Send(m.Chat, part, sendOptions(opt, false)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
}

// UpdateMenuCommands publishes the command list shown in Telegram's menu.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tc := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		d := c.Description
		if d == "" {
			d = c.Command
		}
		tc = append(tc, tele.Command{Text: c.Command, Description: d})
	}
	if err := a.bot.SetCommands(tc); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	a.log.Info("menu commands updated", logx.Int("count", len(tc)))
	return nil
}
