package tgui

import (
	"context"
	"strings"

	kit "proxybot/internal/transport"
)

// Message is rendered text plus send options. More holds follow-up parts
// (for texts over the Telegram limit); markup is attached to the first part only.
type Message struct {
	Text string
	Opt  *kit.SendOptions
	More []string
}

// HTML wraps already-rendered HTML with preview disabled.
func HTML(text string, kb *Inline) Message {
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}
	if kb != nil {
		opt.ReplyMarkupAdapter = kb.Markup()
	}
	return Message{Text: text, Opt: opt}
}

// Send delivers m to the chat and returns the ref of the first part.
func (m Message) Send(ctx context.Context, s kit.Sender, to kit.ChatTarget) (kit.MessageRef, error) {
	if m.Opt == nil {
		m.Opt = &kit.SendOptions{}
	}
	ref, err := s.SendText(ctx, to, m.Text, m.Opt)
	if err != nil {
		return ref, err
	}
	return ref, m.sendMore(ctx, s, to)
}

// Edit replaces the first part in place and sends the rest as new messages.
func (m Message) Edit(ctx context.Context, ad kit.Adapter, ref kit.MessageRef) error {
	if m.Opt == nil {
		m.Opt = &kit.SendOptions{}
	}
	if err := ad.EditText(ctx, ref, m.Text, m.Opt); err != nil {
		return err
	}
	return m.sendMore(ctx, ad, kit.ChatTarget{ChatID: ref.ChatID})
}

func (m Message) sendMore(ctx context.Context, s kit.Sender, to kit.ChatTarget) error {
	if len(m.More) == 0 {
		return nil
	}
	opt := *m.Opt
	opt.ReplyMarkupAdapter = nil
	for _, part := range m.More {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if _, err := s.SendText(ctx, to, part, &opt); err != nil {
			return err
		}
	}
	return nil
}

// Builder assembles an HTML message line by line.
type Builder struct {
	lines []string
	kb    *Inline
}

func New() *Builder { return &Builder{} }

// Title adds "<emoji> <b>title</b>".
func (b *Builder) Title(emoji, title string) *Builder {
	t := strings.TrimSpace(title)
	if t == "" {
		return b
	}
	line := string(B(t))
	if e := strings.TrimSpace(emoji); e != "" {
		line = string(Esc(e)) + " " + line
	}
	b.lines = append(b.lines, line)
	return b
}

// Line adds escaped text.
func (b *Builder) Line(s string) *Builder {
	b.lines = append(b.lines, string(Esc(s)))
	return b
}

// RawLine adds pre-rendered HTML.
func (b *Builder) RawLine(h H) *Builder {
	b.lines = append(b.lines, string(h))
	return b
}

func (b *Builder) Blank() *Builder {
	b.lines = append(b.lines, "")
	return b
}

// KV adds "<b>key</b>: value".
func (b *Builder) KV(key, value string) *Builder {
	key = strings.TrimSpace(key)
	if key == "" {
		return b
	}
	b.lines = append(b.lines, string(B(key))+": "+string(Esc(value)))
	return b
}

func (b *Builder) Inline(kb *Inline) *Builder {
	b.kb = kb
	return b
}

func (b *Builder) Text() string { return strings.Join(b.lines, "\n") }

func (b *Builder) Build() Message { return HTML(b.Text(), b.kb) }
