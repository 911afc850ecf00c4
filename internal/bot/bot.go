// Package bot holds the Telegram command and callback handlers.
package bot

import (
	"context"
	"errors"
	"time"

	"proxybot/internal/eventbus"
	"proxybot/internal/format"
	"proxybot/internal/settings"
	"proxybot/internal/storage"
	kit "proxybot/internal/transport"
	"proxybot/internal/transport/telegram/router"
	logx "proxybot/pkg/logx"
)

const (
	PrivateProxyCount = 10
	GroupProxyCount   = 20
	// DefaultConfigLimit caps configs fetched for one on-demand request.
	DefaultConfigLimit = 1000

	logLines = 10
	// stack traces make single lines huge; keep the block readable
	logLineMax = 380
)

type Links interface {
	FetchProxies(ctx context.Context, limit int) []string
	FetchConfigs(ctx context.Context, limit int) []string
}

type Scheduler interface {
	Start(ctx context.Context) bool
	Stop(ctx context.Context) bool
	Running() bool
	Next() (time.Time, bool)
}

type Deps struct {
	Links     Links
	Scheduler Scheduler
	Settings  *settings.Store
	Audit     storage.Store
	Bus       eventbus.Bus
	Format    format.Formatter
	// LogPath returns the active log file ("" when file logging is off).
	LogPath     func() string
	Every       time.Duration
	ConfigLimit int
	Log         logx.Logger
}

type Handlers struct {
	d   Deps
	rt  *router.Router
	log logx.Logger
}

func New(d Deps) *Handlers {
	if d.Audit == nil {
		d.Audit = storage.Disabled{}
	}
	if d.Bus == nil {
		d.Bus = eventbus.Nop{}
	}
	if d.ConfigLimit <= 0 {
		d.ConfigLimit = DefaultConfigLimit
	}
	if d.LogPath == nil {
		d.LogPath = func() string { return "" }
	}
	return &Handlers{d: d, log: d.Log.With(logx.String("comp", "bot"))}
}

// Register installs every route on rt.
func (h *Handlers) Register(rt *router.Router) {
	h.rt = rt
	rt.SetRoutes(h.commands(), h.callbacks())
}

func (h *Handlers) commands() []router.Command {
	return []router.Command{
		{Name: "start", Description: "Show the main menu", Handle: h.cmdStart},
		{Name: "getproxy", Description: "Get fresh proxies", Handle: h.cmdGetProxy},
		{Name: "getconfig", Description: "How to use configs", Handle: h.cmdGetConfig},
		{Name: "help", Description: "List commands", Handle: h.cmdHelp},
		{Name: "status", Description: "Scheduler status", Admin: true, Handle: h.cmdStatus},
		{Name: "logs", Description: "Recent log lines", Admin: true, Handle: h.cmdLogs},
		{Name: "channels", Description: "List channels", Admin: true, Handle: h.cmdChannels},
		{Name: "addchannel", Description: "Add a channel", Usage: "/addchannel <proxy|config> <channel>", Admin: true, Handle: h.cmdAddChannel},
		{Name: "delchannel", Description: "Remove a channel", Usage: "/delchannel <proxy|config> <channel>", Admin: true, Handle: h.cmdDelChannel},
	}
}

func (h *Handlers) callbacks() []router.CallbackRoute {
	return []router.CallbackRoute{
		{Data: CbGetProxies, Handle: h.cbGetProxies},
		{Data: CbGetConfigs, Handle: h.cbGetConfigs},
		{Data: CbBackMain, Handle: h.cbBackMain},
		{Data: CbStatus, Admin: true, Handle: h.cbStatus},
		{Data: CbLogs, Admin: true, Handle: h.cbLogs},
		{Data: CbAdminPanel, Admin: true, Handle: h.cbAdminPanel},
		{Data: CbStartScheduler, Admin: true, Handle: h.cbStartScheduler},
		{Data: CbStopScheduler, Admin: true, Handle: h.cbStopScheduler},
		{Data: CbListChannels, Admin: true, Handle: h.cbListChannels},
	}
}

// audit records an admin action. Storage errors are logged, never surfaced.
func (h *Handlers) audit(ctx context.Context, req *router.Request, action, target string, err error) {
	e := storage.AuditEntry{
		At:            time.Now().UTC(),
		ActorID:       req.FromID,
		ActorUsername: req.FromUsername,
		ChatID:        req.Chat.ChatID,
		Action:        action,
		Target:        target,
		OK:            err == nil,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if aerr := h.d.Audit.AppendAudit(ctx, e); aerr != nil && !errors.Is(aerr, storage.ErrDisabled) {
		req.Logger.Warn("audit append failed", logx.String("action", action), logx.Err(aerr))
	}
}

func kitRef(chatID int64, messageID int) kit.MessageRef {
	return kit.MessageRef{ChatID: chatID, MessageID: messageID}
}
