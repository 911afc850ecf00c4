package tgui

import (
	"fmt"
	"html"
	"strings"
)

// H is HTML that is safe to send with ParseMode "HTML".
type H string

func (h H) String() string { return string(h) }

// Esc escapes text for Telegram HTML.
func Esc(s string) H { return H(html.EscapeString(s)) }

// Raw marks s as already escaped.
func Raw(s string) H { return H(s) }

func tag(name string, inner H) H { return H("<" + name + ">" + string(inner) + "</" + name + ">") }

func B(s string) H    { return tag("b", Esc(s)) }
func I(s string) H    { return tag("i", Esc(s)) }
func Code(s string) H { return tag("code", Esc(s)) }

// Pre renders a preformatted block. Callers must keep one block per message,
// Telegram rejects messages whose tags are split.
func Pre(s string) H { return H("<pre>" + html.EscapeString(s) + "</pre>") }

// Link builds an anchor. Both the URL attribute and the text are escaped.
func Link(text, url string) H {
	return H(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text)))
}

// JoinH joins non-blank parts with sep.
func JoinH(sep string, parts ...H) H {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(string(p)) == "" {
			continue
		}
		out = append(out, string(p))
	}
	return H(strings.Join(out, sep))
}
