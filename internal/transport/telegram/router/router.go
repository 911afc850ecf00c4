package router

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"proxybot/internal/metrics"
	kit "proxybot/internal/transport"
	logx "proxybot/pkg/logx"
)

const DefaultTimeout = 60 * time.Second

type Command struct {
	Name        string
	Description string
	Usage       string
	Admin       bool
	// Hidden commands are routable but left out of the menu and /help.
	Hidden  bool
	Timeout time.Duration
	Handle  HandlerFunc
}

type CallbackRoute struct {
	Data    string
	Admin   bool
	Timeout time.Duration
	Handle  HandlerFunc
}

type Request struct {
	Update       kit.Update
	Chat         kit.ChatTarget
	FromID       int64
	FromUsername string
	Private      bool
	Command      string
	Args         []string
	// MessageID is the message that carried the callback button.
	MessageID int
	ReqID     string

	Adapter kit.Adapter
	Logger  logx.Logger
	Admin   bool

	answered bool
}

func (r *Request) IsCallback() bool { return r.Update.Kind == kit.UpdateCallback }

// Reply sends text to the chat the request came from.
func (r *Request) Reply(ctx context.Context, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return r.Adapter.SendText(ctx, r.Chat, text, opt)
}

// Answer acknowledges a callback. Only the first call reaches Telegram.
func (r *Request) Answer(ctx context.Context, text string) error {
	if !r.IsCallback() || r.answered {
		return nil
	}
	r.answered = true
	return r.Adapter.AnswerCallback(ctx, r.Update.Callback.ID, text)
}

type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	admins  []int64

	mu        sync.RWMutex
	commands  map[string]Command
	callbacks map[string]CallbackRoute
}

func New(log logx.Logger, adapter kit.Adapter, admins []int64) *Router {
	return &Router{
		log:       log,
		adapter:   adapter,
		admins:    append([]int64(nil), admins...),
		commands:  map[string]Command{},
		callbacks: map[string]CallbackRoute{},
	}
}

func (rt *Router) SetRoutes(cmds []Command, cbs []CallbackRoute) {
	cm := make(map[string]Command, len(cmds))
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		cm[name] = c
	}
	cb := make(map[string]CallbackRoute, len(cbs))
	for _, r := range cbs {
		if r.Data == "" || r.Handle == nil {
			continue
		}
		cb[r.Data] = r
	}
	rt.mu.Lock()
	rt.commands, rt.callbacks = cm, cb
	rt.mu.Unlock()
}

// Commands returns the visible commands sorted by name.
func (rt *Router) Commands() []Command {
	rt.mu.RLock()
	out := make([]Command, 0, len(rt.commands))
	for _, c := range rt.commands {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	rt.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (rt *Router) IsAdmin(id int64) bool {
	for _, a := range rt.admins {
		if a == id {
			return true
		}
	}
	return false
}

// PublishMenu pushes the command list to the adapter when it supports menus.
func (rt *Router) PublishMenu(ctx context.Context) error {
	up, ok := rt.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return nil
	}
	cmds := rt.Commands()
	menu := make([]kit.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		menu = append(menu, kit.BotCommand{Command: c.Name, Description: c.Description})
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return up.UpdateMenuCommands(ctx, menu)
}

// DispatchLoop handles updates one at a time until ctx ends or in is closed.
func (rt *Router) DispatchLoop(ctx context.Context, in <-chan kit.Update) error {
	rt.log.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			rt.log.Info("dispatcher stopped", logx.Err(ctx.Err()))
			return nil
		case up, ok := <-in:
			if !ok {
				rt.log.Info("dispatcher stopped (updates channel closed)")
				return nil
			}
			rt.Dispatch(ctx, up)
		}
	}
}

func (rt *Router) Dispatch(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		rt.routeMessage(ctx, up)
	case kit.UpdateCallback:
		rt.routeCallback(ctx, up)
	}
}

// parseCommand splits "/name@bot a b" into "name" and its args.
func parseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

func (rt *Router) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	name, args, ok := parseCommand(msg.Text)
	if !ok {
		return
	}
	rt.mu.RLock()
	cmd, found := rt.commands[name]
	rt.mu.RUnlock()
	if !found {
		rt.log.Debug("unknown command", logx.String("cmd", name), logx.Int64("chat_id", msg.ChatID))
		return
	}

	req := rt.newRequest(up, "/"+name, msg.ChatID, msg.FromID, msg.Private)
	req.FromUsername = msg.FromUsername
	req.Args = args
	rt.run(ctx, req, "cmd:"+name, cmd.Handle, cmd.Admin, cmd.Timeout)
}

func (rt *Router) routeCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	data := strings.TrimSpace(cb.Data)
	rt.mu.RLock()
	route, found := rt.callbacks[data]
	rt.mu.RUnlock()

	req := rt.newRequest(up, "cb:"+data, cb.ChatID, cb.FromID, cb.Private)
	req.MessageID = cb.MessageID
	if !found {
		_ = req.Answer(ctx, "")
		return
	}
	rt.run(ctx, req, "cb:"+data, route.Handle, route.Admin, route.Timeout)
	// stop the client's loading spinner
	_ = req.Answer(ctx, "")
}

func (rt *Router) newRequest(up kit.Update, command string, chatID, fromID int64, private bool) *Request {
	rid := uuid.NewString()
	return &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: chatID},
		FromID:  fromID,
		Private: private,
		Command: command,
		ReqID:   rid,
		Adapter: rt.adapter,
		Admin:   rt.IsAdmin(fromID),
		Logger: rt.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", chatID),
			logx.Int64("from_id", fromID),
			logx.String("cmd", command),
		),
	}
}

func (rt *Router) run(ctx context.Context, req *Request, route string, h HandlerFunc, admin bool, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var guard Middleware
	if admin {
		guard = RequireAdmin(rt.admins)
	}
	final := Chain(h,
		MWPanicRecover(rt.log),
		MWRequestLog(rt.log),
		MWTimeout(timeout),
		guard,
	)
	err := final(ctx, req)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotAdmin):
		outcome = "denied"
	case err != nil:
		outcome = "error"
	}
	metrics.UpdatesHandled.WithLabelValues(route, outcome).Inc()
}
