package bot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"proxybot/internal/format"
	"proxybot/internal/settings"
	"proxybot/internal/storage"
	kit "proxybot/internal/transport"
	"proxybot/internal/transport/telegram/router"
	logx "proxybot/pkg/logx"
)

type fakeAdapter struct {
	mu      sync.Mutex
	sent    []string
	edits   []string
	answers []string
	editErr error
}

func (f *fakeAdapter) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return kit.MessageRef{MessageID: len(f.sent)}, nil
}
func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                      { return nil }
func (f *fakeAdapter) EditText(_ context.Context, _ kit.MessageRef, text string, _ *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	return nil
}
func (f *fakeAdapter) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

type fakeLinks struct {
	proxies []string
	limits  []int
}

func (f *fakeLinks) FetchProxies(_ context.Context, limit int) []string {
	f.limits = append(f.limits, limit)
	if limit < len(f.proxies) {
		return f.proxies[:limit]
	}
	return f.proxies
}
func (f *fakeLinks) FetchConfigs(context.Context, int) []string { return []string{"vless://a", "vless://b"} }

type fakeScheduler struct {
	running bool
	next    time.Time
}

func (f *fakeScheduler) Start(context.Context) bool {
	if f.running {
		return false
	}
	f.running = true
	return true
}
func (f *fakeScheduler) Stop(context.Context) bool {
	if !f.running {
		return false
	}
	f.running = false
	return true
}
func (f *fakeScheduler) Running() bool { return f.running }
func (f *fakeScheduler) Next() (time.Time, bool) {
	return f.next, f.running && !f.next.IsZero()
}

type memAudit struct{ entries []storage.AuditEntry }

func (m *memAudit) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}
func (m *memAudit) RecentAudit(context.Context, int) ([]storage.AuditEntry, error) {
	return m.entries, nil
}
func (m *memAudit) Close() error { return nil }

type fixture struct {
	ad    *fakeAdapter
	links *fakeLinks
	sched *fakeScheduler
	audit *memAudit
	store *settings.Store
	rt    *router.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ad:    &fakeAdapter{},
		links: &fakeLinks{proxies: make([]string, 30)},
		sched: &fakeScheduler{},
		audit: &memAudit{},
		store: settings.NewStore(filepath.Join(t.TempDir(), "setting.json")),
	}
	for i := range f.links.proxies {
		f.links.proxies[i] = "tg://proxy?server=s" + string(rune('a'+i%26))
	}
	f.rt = router.New(logx.Nop(), f.ad, []int64{1})
	h := New(Deps{
		Links:     f.links,
		Scheduler: f.sched,
		Settings:  f.store,
		Audit:     f.audit,
		Format:    format.Formatter{Location: time.UTC},
		Every:     30 * time.Minute,
	})
	h.Register(f.rt)
	return f
}

func (f *fixture) command(from int64, text string, private bool) {
	f.rt.Dispatch(context.Background(), kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 100, FromID: from, Text: text, Private: private}})
}

func (f *fixture) callback(from int64, data string) {
	f.rt.Dispatch(context.Background(), kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "q", ChatID: 100, MessageID: 5, FromID: from, Data: data, Private: true}})
}

func TestStartShowsMenuOnlyInPrivate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.command(2, "/start", false)
	if len(f.ad.sent) != 0 {
		t.Fatalf("group /start replied: %v", f.ad.sent)
	}
	f.command(2, "/start", true)
	if len(f.ad.sent) != 1 || f.ad.sent[0] != WelcomeText {
		t.Fatalf("sent = %v", f.ad.sent)
	}
}

func TestGetProxyCountsByChatType(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.command(2, "/getproxy", true)
	f.command(2, "/getproxy@proxy_bot", false)
	if len(f.links.limits) != 2 || f.links.limits[0] != PrivateProxyCount || f.links.limits[1] != GroupProxyCount {
		t.Fatalf("limits = %v", f.links.limits)
	}
	if !strings.Contains(f.ad.sent[0], "Proxy 10: <code>") {
		t.Fatalf("private reply = %q", f.ad.sent[0])
	}
	if strings.Count(f.ad.sent[1], "<a href=") != GroupProxyCount {
		t.Fatalf("group reply has wrong link count")
	}
}

func TestGetConfigHint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.command(3, "/getconfig", false)
	if len(f.ad.sent) != 1 || f.ad.sent[0] != ConfigHint {
		t.Fatalf("sent = %v", f.ad.sent)
	}
	f.callback(3, CbGetConfigs)
	if len(f.ad.edits) != 1 || !strings.Contains(f.ad.edits[0], format.DeepLinkPrefix) {
		t.Fatalf("edits = %v", f.ad.edits)
	}
}

func TestStatusText(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.command(1, "/status", true)
	if f.ad.sent[0] != "📊 Bot Status: stopped\nNext Update: N/A" {
		t.Fatalf("status = %q", f.ad.sent[0])
	}
	f.sched.running = true
	f.sched.next = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	f.command(1, "/status", true)
	if f.ad.sent[1] != "📊 Bot Status: running\nNext Update: Mar-05 09:30" {
		t.Fatalf("status = %q", f.ad.sent[1])
	}
}

func TestSchedulerCallbacks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.callback(1, CbStartScheduler)
	f.callback(1, CbStartScheduler)
	f.callback(1, CbStopScheduler)
	f.callback(1, CbStopScheduler)
	want := []string{"✅ Scheduler started (30 min intervals)", "⚠️ Already running", "✅ Scheduler stopped", "⚠️ Not running"}
	if len(f.ad.answers) != len(want) {
		t.Fatalf("answers = %q", f.ad.answers)
	}
	for i := range want {
		if f.ad.answers[i] != want[i] {
			t.Fatalf("answers[%d] = %q, want %q", i, f.ad.answers[i], want[i])
		}
	}
	if len(f.audit.entries) != 4 || f.audit.entries[0].Action != "scheduler.start" {
		t.Fatalf("audit = %+v", f.audit.entries)
	}
}

func TestNonAdminCannotStopScheduler(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.sched.running = true
	f.callback(2, CbStopScheduler)
	if !f.sched.running {
		t.Fatal("scheduler stopped by non-admin")
	}
	if len(f.ad.answers) != 1 || f.ad.answers[0] != router.DeniedCallbackText {
		t.Fatalf("answers = %q", f.ad.answers)
	}
	if len(f.audit.entries) != 0 {
		t.Fatal("denied action was audited")
	}
}

func TestChannelCommands(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.command(1, "/channels", true)
	if f.ad.sent[0] != "📚 Proxy Channels:\nNone\n\n📚 Config Channels:\nNone" {
		t.Fatalf("channels = %q", f.ad.sent[0])
	}
	f.command(1, "/addchannel proxy @p1", true)
	f.command(1, "/addchannel proxy @p1", true)
	f.command(1, "/delchannel config @c1", true)
	f.command(1, "/addchannel bogus @x", true)
	f.command(1, "/addchannel proxy", true)

	doc, err := f.store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc.ProxyChannels) != 1 || doc.ProxyChannels[0] != "@p1" {
		t.Fatalf("doc = %+v", doc)
	}
	wantPrefixes := []string{"✅ Added", "ℹ️ @p1 is already", "ℹ️ @c1 is not", "❌ Type", "Usage: /addchannel"}
	for i, p := range wantPrefixes {
		if !strings.HasPrefix(f.ad.sent[i+1], p) {
			t.Fatalf("reply %d = %q, want prefix %q", i, f.ad.sent[i+1], p)
		}
	}
}

func TestLogsText(t *testing.T) {
	t.Parallel()
	if got := logsText(""); got != NoLogsText {
		t.Fatalf("got %q", got)
	}
	dir := t.TempDir()
	if got := logsText(filepath.Join(dir, "missing.log")); got != NoLogsText {
		t.Fatalf("got %q", got)
	}
	path := filepath.Join(dir, "bot.log")
	if err := os.WriteFile(path, []byte("a <b>\nc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := logsText(path)
	if got != "📜 Recent Logs:\n<pre>a &lt;b&gt;\nc</pre>" {
		t.Fatalf("got %q", got)
	}
	if got := logsText(dir); !strings.HasPrefix(got, "❌ Error reading logs:") {
		t.Fatalf("got %q", got)
	}
}

func TestCallbackFallsBackToSendWhenEditFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.ad.editErr = os.ErrClosed
	f.callback(2, CbBackMain)
	if len(f.ad.sent) != 1 || f.ad.sent[0] != WelcomeText {
		t.Fatalf("sent = %v", f.ad.sent)
	}
}

func TestHelpHidesAdminCommands(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.command(2, "/help", true)
	f.command(1, "/help", true)
	if strings.Contains(f.ad.sent[0], "/addchannel") {
		t.Fatalf("user help lists admin commands: %q", f.ad.sent[0])
	}
	if !strings.Contains(f.ad.sent[1], "/addchannel &lt;proxy|config&gt;") {
		t.Fatalf("admin help = %q", f.ad.sent[1])
	}
}

func TestLogsTextLongTailFitsOneMessage(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bot.log")
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString(`{"level":"error","stack":"` + strings.Repeat("goroutine 1 [running] <main.go>", 60) + "\"}\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	got := logsText(path)
	if !strings.HasPrefix(got, "📜 Recent Logs:\n<pre>") || !strings.HasSuffix(got, "</pre>") {
		t.Fatalf("got %.60q", got)
	}
	if n := format.VisibleLen(got); n > format.MaxMessageLen {
		t.Fatalf("visible length %d exceeds one message", n)
	}
	parts := format.SplitMessage(got, format.MaxMessageLen)
	if len(parts) != 1 {
		t.Fatalf("parts = %d", len(parts))
	}
	if strings.Count(got, "…") != logLines {
		t.Fatalf("expected every line clipped")
	}
}
