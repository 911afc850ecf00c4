package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"proxybot/internal/eventbus"
	"proxybot/internal/format"
	"proxybot/internal/settings"
	"proxybot/internal/transport/telegram/router"
	logx "proxybot/pkg/logx"
	"proxybot/pkg/tgui"
)

const (
	WelcomeText   = "🚀 Welcome! Choose an option:"
	AdminText     = "⚙️ Admin Panel"
	ConfigHint    = "برای استفاده از کانفیگ ها از اپلیکیشن TgProx استفاده کنید"
	NoLogsText    = "No logs available."
	timeLayout    = "Jan-02 15:04"
	channelsEmpty = "None"
)

// reply sends a fresh message to the request's chat.
func reply(ctx context.Context, req *router.Request, m tgui.Message) error {
	_, err := m.Send(ctx, req.Adapter, req.Chat)
	return err
}

// show replaces the message that carried the pressed button, falling back to a new message.
func show(ctx context.Context, req *router.Request, m tgui.Message) error {
	if req.MessageID != 0 {
		err := m.Edit(ctx, req.Adapter, kitRef(req.Chat.ChatID, req.MessageID))
		if err == nil {
			return nil
		}
		req.Logger.Debug("edit failed, sending new message", logx.Err(err))
	}
	return reply(ctx, req, m)
}

func (h *Handlers) cmdStart(ctx context.Context, req *router.Request) error {
	if !req.Private {
		return nil
	}
	return reply(ctx, req, tgui.HTML(WelcomeText, mainMenu()))
}

func (h *Handlers) proxiesFor(ctx context.Context, private bool) string {
	if private {
		return h.d.Format.ProxyLinks(h.d.Links.FetchProxies(ctx, PrivateProxyCount), format.StylePrivate)
	}
	return h.d.Format.ProxyLinks(h.d.Links.FetchProxies(ctx, GroupProxyCount), format.StyleGroup)
}

func (h *Handlers) cmdGetProxy(ctx context.Context, req *router.Request) error {
	return reply(ctx, req, tgui.HTML(h.proxiesFor(ctx, req.Private), nil))
}

func (h *Handlers) cmdGetConfig(ctx context.Context, req *router.Request) error {
	return reply(ctx, req, tgui.HTML(string(tgui.Esc(ConfigHint)), nil))
}

func (h *Handlers) cmdHelp(ctx context.Context, req *router.Request) error {
	return reply(ctx, req, tgui.HTML(h.helpText(req.Admin), nil))
}

func (h *Handlers) helpText(admin bool) string {
	b := tgui.New().Title("📖", "Commands")
	if h.rt == nil {
		return b.Text()
	}
	for _, c := range h.rt.Commands() {
		if c.Admin && !admin {
			continue
		}
		usage := c.Usage
		if usage == "" {
			usage = "/" + c.Name
		}
		b.RawLine(tgui.Code(usage) + tgui.Esc(" - "+c.Description))
	}
	return b.Text()
}

func (h *Handlers) cmdStatus(ctx context.Context, req *router.Request) error {
	return reply(ctx, req, tgui.HTML(h.statusText(), nil))
}

func (h *Handlers) cmdLogs(ctx context.Context, req *router.Request) error {
	return reply(ctx, req, tgui.HTML(logsText(h.d.LogPath()), nil))
}

func (h *Handlers) cmdChannels(ctx context.Context, req *router.Request) error {
	return reply(ctx, req, tgui.HTML(h.channelsText(), nil))
}

func (h *Handlers) cmdAddChannel(ctx context.Context, req *router.Request) error {
	return h.editChannels(ctx, req, "add")
}

func (h *Handlers) cmdDelChannel(ctx context.Context, req *router.Request) error {
	return h.editChannels(ctx, req, "remove")
}

func (h *Handlers) editChannels(ctx context.Context, req *router.Request, op string) error {
	if len(req.Args) != 2 {
		usage := fmt.Sprintf("Usage: %s <proxy|config> <channel>", req.Command)
		return reply(ctx, req, tgui.HTML(string(tgui.Esc(usage)), nil))
	}
	kind, err := settings.ParseKind(req.Args[0])
	if err != nil {
		return reply(ctx, req, tgui.HTML("❌ Type must be proxy or config.", nil))
	}
	ch := req.Args[1]

	var changed bool
	if op == "add" {
		changed, err = h.d.Settings.Add(kind, ch)
	} else {
		changed, err = h.d.Settings.Remove(kind, ch)
	}
	h.audit(ctx, req, "channel."+op, string(kind)+":"+ch, err)
	if err != nil {
		req.Logger.Error("settings update failed", logx.String("op", op), logx.Err(err))
		return reply(ctx, req, tgui.HTML(string(tgui.Esc("❌ Error updating settings: "+err.Error())), nil))
	}

	if changed {
		h.d.Bus.Publish(eventbus.Event{Type: eventbus.ChannelsChanged, Data: string(kind) + ":" + ch})
	}

	var text string
	switch {
	case op == "add" && changed:
		text = fmt.Sprintf("✅ Added %s to %s channels", ch, kind)
	case op == "add":
		text = fmt.Sprintf("ℹ️ %s is already in %s channels", ch, kind)
	case changed:
		text = fmt.Sprintf("✅ Removed %s from %s channels", ch, kind)
	default:
		text = fmt.Sprintf("ℹ️ %s is not in %s channels", ch, kind)
	}
	return reply(ctx, req, tgui.HTML(string(tgui.Esc(text)), nil))
}

func (h *Handlers) cbGetProxies(ctx context.Context, req *router.Request) error {
	return show(ctx, req, tgui.HTML(h.proxiesFor(ctx, req.Private), backMenu()))
}

func (h *Handlers) cbGetConfigs(ctx context.Context, req *router.Request) error {
	text := h.d.Format.Configs(h.d.Links.FetchConfigs(ctx, h.d.ConfigLimit))
	text += "\n\n" + string(tgui.Esc(ConfigHint))
	return show(ctx, req, tgui.HTML(text, backMenu()))
}

func (h *Handlers) cbBackMain(ctx context.Context, req *router.Request) error {
	return show(ctx, req, tgui.HTML(WelcomeText, mainMenu()))
}

func (h *Handlers) cbStatus(ctx context.Context, req *router.Request) error {
	return show(ctx, req, tgui.HTML(h.statusText(), backMenu()))
}

func (h *Handlers) cbLogs(ctx context.Context, req *router.Request) error {
	return show(ctx, req, tgui.HTML(logsText(h.d.LogPath()), backMenu()))
}

func (h *Handlers) cbAdminPanel(ctx context.Context, req *router.Request) error {
	return show(ctx, req, tgui.HTML(AdminText, adminMenu()))
}

func (h *Handlers) cbListChannels(ctx context.Context, req *router.Request) error {
	return show(ctx, req, tgui.HTML(h.channelsText(), adminMenu()))
}

func (h *Handlers) cbStartScheduler(ctx context.Context, req *router.Request) error {
	started := h.d.Scheduler.Start(ctx)
	h.audit(ctx, req, "scheduler.start", "broadcast", nil)
	if !started {
		return req.Answer(ctx, "⚠️ Already running")
	}
	return req.Answer(ctx, fmt.Sprintf("✅ Scheduler started (%d min intervals)", int(h.every().Minutes())))
}

func (h *Handlers) cbStopScheduler(ctx context.Context, req *router.Request) error {
	stopped := h.d.Scheduler.Stop(ctx)
	h.audit(ctx, req, "scheduler.stop", "broadcast", nil)
	if !stopped {
		return req.Answer(ctx, "⚠️ Not running")
	}
	return req.Answer(ctx, "✅ Scheduler stopped")
}

func (h *Handlers) every() time.Duration {
	if h.d.Every <= 0 {
		return 30 * time.Minute
	}
	return h.d.Every
}

func (h *Handlers) statusText() string {
	state := "stopped"
	if h.d.Scheduler.Running() {
		state = "running"
	}
	next := "N/A"
	if t, ok := h.d.Scheduler.Next(); ok {
		if loc := h.d.Format.Location; loc != nil {
			t = t.In(loc)
		}
		next = t.Format(timeLayout)
	}
	return "📊 Bot Status: " + state + "\nNext Update: " + next
}

func logsText(path string) string {
	if path == "" {
		return NoLogsText
	}
	lines, err := logx.Tail(path, logLines)
	if errors.Is(err, os.ErrNotExist) {
		return NoLogsText
	}
	if err != nil {
		return string(tgui.Esc("❌ Error reading logs: " + err.Error()))
	}
	if len(lines) == 0 {
		return NoLogsText
	}
	for i, l := range lines {
		lines[i] = clip(l, logLineMax)
	}
	return "📜 Recent Logs:\n" + string(tgui.Pre(strings.Join(lines, "\n")))
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (h *Handlers) channelsText() string {
	doc, err := h.d.Settings.Read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return string(tgui.Esc("❌ Error reading settings: " + err.Error()))
	}
	list := func(items []string) string {
		if len(items) == 0 {
			return channelsEmpty
		}
		return string(tgui.Esc(strings.Join(items, "\n")))
	}
	return "📚 Proxy Channels:\n" + list(doc.ProxyChannels) + "\n\n📚 Config Channels:\n" + list(doc.ConfigChannels)
}
