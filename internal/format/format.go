// Package format renders proxy lists and config deep links as Telegram HTML.
package format

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"proxybot/pkg/tgui"
)

const (
	NoProxies = "No working proxies found."
	NoConfigs = "No configs found."

	ProxyHeader  = "🛡️ Proxies:"
	ConfigHeader = "🔗 Configs:"

	DefaultLabel     = "پروکسی مهندس علایی"
	DefaultChunkSize = 200
	DeepLinkPrefix   = "hiddify://import/"

	// MaxMessageLen is Telegram's text limit per message.
	MaxMessageLen = 4096

	timeLayout = "Jan-02 15:04"
)

// Style selects how proxies are rendered.
type Style int

const (
	// StyleGroup renders every link under the same clickable label.
	StyleGroup Style = iota
	// StylePrivate numbers the links and shows each URL as inline code.
	StylePrivate
)

// Formatter carries the configurable parts of the output.
type Formatter struct {
	Label     string
	ChunkSize int
	Location  *time.Location
}

func (f Formatter) label() string {
	if strings.TrimSpace(f.Label) == "" {
		return DefaultLabel
	}
	return f.Label
}

// ProxyLinks renders proxies. Empty input yields NoProxies; otherwise the
// header is followed by exactly one line per proxy, in input order.
func (f Formatter) ProxyLinks(proxies []string, style Style) string {
	if len(proxies) == 0 {
		return NoProxies
	}
	lines := make([]string, 0, len(proxies)+1)
	lines = append(lines, ProxyHeader)
	for i, p := range proxies {
		switch style {
		case StylePrivate:
			lines = append(lines, "Proxy "+strconv.Itoa(i+1)+": "+tgui.Code(p).String())
		default:
			lines = append(lines, tgui.Link(f.label(), p).String())
		}
	}
	return strings.Join(lines, "\n")
}

// Configs renders one numbered deep link per chunk of configs.
func (f Formatter) Configs(configs []string) string {
	if len(configs) == 0 {
		return NoConfigs
	}
	chunks := ChunkConfigs(configs, f.ChunkSize)
	lines := make([]string, 0, len(chunks)+1)
	lines = append(lines, ConfigHeader)
	for i, c := range chunks {
		n := strconv.Itoa(i + 1)
		text := "Config pack " + n + " (" + strconv.Itoa(len(c)) + " configs)"
		lines = append(lines, n+". "+tgui.Link(text, DeepLink(c)).String())
	}
	return strings.Join(lines, "\n")
}

// Update prefixes body parts with the timestamped header. Empty parts are skipped.
func (f Formatter) Update(now time.Time, parts ...string) string {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("📢 Update ")
	b.WriteString(now.In(loc).Format(timeLayout))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(p)
	}
	return b.String()
}

// FormatProxyLinks renders proxies with the default label.
func FormatProxyLinks(proxies []string, style Style) string {
	return Formatter{}.ProxyLinks(proxies, style)
}

// FormatConfigs renders configs in chunks of chunkSize (<= 0 means 200).
func FormatConfigs(configs []string, chunkSize int) string {
	return Formatter{ChunkSize: chunkSize}.Configs(configs)
}

// FormatUpdate renders the broadcast message in loc.
func FormatUpdate(now time.Time, loc *time.Location, proxyText, configText string) string {
	return Formatter{Location: loc}.Update(now, proxyText, configText)
}

// ChunkConfigs partitions configs into consecutive chunks of size n,
// keeping order. The last chunk holds the remainder.
func ChunkConfigs(configs []string, n int) [][]string {
	if n <= 0 {
		n = DefaultChunkSize
	}
	out := make([][]string, 0, (len(configs)+n-1)/n)
	for start := 0; start < len(configs); start += n {
		end := min(start+n, len(configs))
		out = append(out, configs[start:end])
	}
	return out
}

// DeepLink encodes newline-joined configs with standard base64.
func DeepLink(configs []string) string {
	return DeepLinkPrefix + base64.StdEncoding.EncodeToString([]byte(strings.Join(configs, "\n")))
}

// SplitMessage breaks Telegram HTML into parts of at most max visible runes.
// Tags cost nothing and an entity counts as one rune, as Telegram measures the
// text after parsing. Parts end at line boundaries when possible. A tag or
// entity is never cut, and elements open at a cut are closed at the end of
// the part and reopened at the start of the next one.
func SplitMessage(text string, max int) []string {
	if max <= 0 {
		max = MaxMessageLen
	}
	if VisibleLen(text) <= max {
		return []string{text}
	}
	var sp splitter
	for _, line := range strings.Split(text, "\n") {
		toks := tokenize(line)
		sep := 0
		if sp.open {
			sep = 1
		}
		if sp.n+sep+visible(toks) > max {
			sp.flush()
			sep = 0
		}
		if sep == 1 {
			sp.write(token{text: "\n", w: 1})
		}
		for _, t := range toks {
			if t.w > 0 && sp.n+t.w > max {
				sp.flush()
			}
			sp.write(t)
		}
		sp.open = true
	}
	sp.flush()
	return sp.parts
}

// VisibleLen is the length Telegram counts for an HTML message.
func VisibleLen(text string) int { return visible(tokenize(text)) }

type token struct {
	text string
	w    int // visible runes
}

func visible(toks []token) int {
	n := 0
	for _, t := range toks {
		n += t.w
	}
	return n
}

// tokenize splits one line into tags, entities and single runes.
func tokenize(s string) []token {
	toks := make([]token, 0, len(s))
	for i := 0; i < len(s); {
		switch s[i] {
		case '<':
			if j := strings.IndexByte(s[i:], '>'); j > 0 {
				toks = append(toks, token{text: s[i : i+j+1]})
				i += j + 1
				continue
			}
		case '&':
			if j := strings.IndexByte(s[i:], ';'); j > 1 && j <= 10 && !strings.ContainsAny(s[i+1:i+j], " &<") {
				toks = append(toks, token{text: s[i : i+j+1], w: 1})
				i += j + 1
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		toks = append(toks, token{text: s[i : i+size], w: 1})
		i += size
	}
	return toks
}

type splitter struct {
	parts []string
	cur   strings.Builder
	n     int
	open  bool
	// opening tags of the elements not yet closed
	stack []string
}

func (sp *splitter) write(t token) {
	sp.cur.WriteString(t.text)
	sp.n += t.w
	sp.open = true
	if t.w > 0 || !strings.HasPrefix(t.text, "<") {
		return
	}
	switch {
	case strings.HasPrefix(t.text, "</"):
		if len(sp.stack) > 0 {
			sp.stack = sp.stack[:len(sp.stack)-1]
		}
	case !strings.HasSuffix(t.text, "/>"):
		sp.stack = append(sp.stack, t.text)
	}
}

func (sp *splitter) flush() {
	if !sp.open {
		return
	}
	for i := len(sp.stack) - 1; i >= 0; i-- {
		sp.cur.WriteString("</" + tagName(sp.stack[i]) + ">")
	}
	sp.parts = append(sp.parts, sp.cur.String())
	sp.cur.Reset()
	sp.n, sp.open = 0, false
	for _, t := range sp.stack {
		sp.cur.WriteString(t)
	}
}

func tagName(open string) string {
	name := strings.TrimPrefix(open, "<")
	if i := strings.IndexAny(name, " \t>"); i >= 0 {
		name = name[:i]
	}
	return name
}
