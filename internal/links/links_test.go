package links

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	logx "proxybot/pkg/logx"
)

type fakeSource struct {
	proxies []string
	err     error
	panics  bool
	calls   int
}

func (f *fakeSource) Proxies(_ context.Context, _ int) ([]string, error) {
	f.calls++
	if f.panics {
		panic("driver bug")
	}
	return f.proxies, f.err
}

func (f *fakeSource) Configs(ctx context.Context, limit int) ([]string, error) {
	return f.Proxies(ctx, limit)
}

func (f *fakeSource) Close() error { return nil }

func TestProviderDegradesToEmpty(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		src   *fakeSource
		limit int
		want  int
		calls int
	}{
		{"error", &fakeSource{err: errors.New("timeout")}, 10, 0, 1},
		{"panic", &fakeSource{panics: true}, 10, 0, 1},
		{"zero limit", &fakeSource{proxies: []string{"a"}}, 0, 0, 0},
		{"negative limit", &fakeSource{proxies: []string{"a"}}, -3, 0, 0},
		{"truncates", &fakeSource{proxies: []string{"a", "b", "c"}}, 2, 2, 1},
		{"fewer than limit", &fakeSource{proxies: []string{"a"}}, 5, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := NewProvider(tc.src, logx.Nop())
			got := p.FetchProxies(context.Background(), tc.limit)
			if got == nil {
				t.Fatal("result must be non-nil")
			}
			if len(got) != tc.want {
				t.Fatalf("len = %d, want %d", len(got), tc.want)
			}
			if tc.src.calls != tc.calls {
				t.Fatalf("calls = %d, want %d", tc.src.calls, tc.calls)
			}
		})
	}
}

func TestSupabaseRequest(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/proxies" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("select") != "proxy_url" || r.URL.Query().Get("limit") != "2" {
			http.Error(w, "bad query "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		if r.Header.Get("apikey") != "k" || r.Header.Get("Authorization") != "Bearer k" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"proxy_url":"tg://proxy?server=a"},{"proxy_url":"tg://proxy?server=b"}]`))
	}))
	defer srv.Close()

	src, err := Open(context.Background(), Config{Driver: "supabase", URL: srv.URL + "/", Key: "k", Timeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	got, err := src.Proxies(context.Background(), 2)
	if err != nil {
		t.Fatalf("Proxies: %v", err)
	}
	if len(got) != 2 || got[1] != "tg://proxy?server=b" {
		t.Fatalf("got %v", got)
	}

	if _, err := src.Configs(context.Background(), 2); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestSQLiteSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src, err := Open(ctx, Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "links.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	s := src.(*sqliteSource)
	if err := s.Insert(ctx, s.cfg.Configs, "vless://1", "vless://2", "vless://3"); err != nil {
		t.Fatal(err)
	}
	got, err := src.Configs(ctx, 2)
	if err != nil {
		t.Fatalf("Configs: %v", err)
	}
	if len(got) != 2 || got[0] != "vless://1" {
		t.Fatalf("got %v", got)
	}
	if got, err := src.Proxies(ctx, 5); err != nil || len(got) != 0 {
		t.Fatalf("empty table: %v %v", got, err)
	}
}

func TestOpenRejects(t *testing.T) {
	t.Parallel()
	if _, err := Open(context.Background(), Config{Driver: "mongo"}, logx.Nop()); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v", err)
	}
	bad := Config{Driver: "sqlite", DSN: "x.db", Proxies: Table{Name: "p; DROP TABLE x", Column: "c"}}
	if _, err := Open(context.Background(), bad, logx.Nop()); err == nil {
		t.Fatal("expected identifier error")
	}
}
