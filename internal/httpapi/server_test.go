package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"proxybot/internal/broadcast"
	logx "proxybot/pkg/logx"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeLinks struct{ last int }

func (f *fakeLinks) FetchProxies(_ context.Context, limit int) []string {
	f.last = limit
	out := make([]string, 0, limit)
	for range limit {
		out = append(out, "tg://proxy")
	}
	return out
}

type fakeBroadcast struct {
	res  broadcast.Result
	last *broadcast.Result
}

func (f *fakeBroadcast) SendUpdates(context.Context) broadcast.Result {
	f.last = &f.res
	return f.res
}

func (f *fakeBroadcast) Last() (broadcast.Result, bool) {
	if f.last == nil {
		return broadcast.Result{}, false
	}
	return *f.last, true
}

type fakeScheduler struct{ running bool }

func (f fakeScheduler) Running() bool { return f.running }
func (f fakeScheduler) Next() (time.Time, bool) {
	return time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC), f.running
}

func newTestServer(b *fakeBroadcast, l *fakeLinks) *Server {
	return New(":0", Deps{
		Links:      l,
		Broadcast:  b,
		Scheduler:  fakeScheduler{running: true},
		BotRunning: func() bool { return true },
		Log:        logx.Nop(),
	})
}

func do(t *testing.T, s *Server, method, target string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return rec.Code, body
}

func TestRootAndHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(&fakeBroadcast{}, &fakeLinks{})
	code, body := do(t, s, http.MethodGet, "/")
	if code != http.StatusOK || body["status"] != "healthy" || body["service"] != ServiceName || body["bot_running"] != true || body["scheduler_running"] != true {
		t.Fatalf("GET / = %d %v", code, body)
	}
	code, body = do(t, s, http.MethodGet, "/health")
	if code != http.StatusOK || len(body) != 1 || body["status"] != "healthy" {
		t.Fatalf("GET /health = %d %v", code, body)
	}
}

func TestProxiesCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		query string
		code  int
		limit int
	}{
		{"", http.StatusOK, 10},
		{"?count=3", http.StatusOK, 3},
		{"?count=500", http.StatusOK, 50},
		{"?count=-4", http.StatusOK, 0},
		{"?count=abc", http.StatusBadRequest, -1},
	}
	for _, tt := range tests {
		l := &fakeLinks{last: -1}
		s := newTestServer(&fakeBroadcast{}, l)
		code, body := do(t, s, http.MethodGet, "/api/proxies"+tt.query)
		if code != tt.code {
			t.Fatalf("%q: code = %d", tt.query, code)
		}
		if l.last != tt.limit {
			t.Fatalf("%q: limit = %d, want %d", tt.query, l.last, tt.limit)
		}
		if code == http.StatusOK && body["count"] != float64(tt.limit) {
			t.Fatalf("%q: body = %v", tt.query, body)
		}
	}
}

func TestSendUpdate(t *testing.T) {
	t.Parallel()
	b := &fakeBroadcast{res: broadcast.Result{Sent: 2, Failed: 1}}
	s := newTestServer(b, &fakeLinks{})
	code, body := do(t, s, http.MethodPost, "/api/send-update")
	if code != http.StatusOK || body["sent"] != float64(2) || body["failed"] != float64(1) {
		t.Fatalf("POST = %d %v", code, body)
	}

	code, body = do(t, s, http.MethodGet, "/api/status")
	if code != http.StatusOK || body["last_broadcast"] == nil || body["next_run"] != "2024-01-01T00:30:00Z" {
		t.Fatalf("status = %d %v", code, body)
	}

	b.res = broadcast.Result{Failed: 2}
	code, body = do(t, s, http.MethodPost, "/api/send-update")
	if code != http.StatusInternalServerError || body["error"] == nil {
		t.Fatalf("POST all failed = %d %v", code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(&fakeBroadcast{}, &fakeLinks{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("metrics = %d", rec.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	s := New("127.0.0.1:0", Deps{Links: &fakeLinks{}, Broadcast: &fakeBroadcast{}, Scheduler: fakeScheduler{}, Log: logx.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}
