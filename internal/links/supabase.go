package links

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// supabase reads rows through the PostgREST API of a Supabase project.
type supabase struct {
	base   string
	key    string
	cfg    Config
	client *http.Client
}

func newSupabase(cfg Config) (*supabase, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" || cfg.Key == "" {
		return nil, errors.New("links: supabase needs url and key")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("links: supabase url: %w", err)
	}
	// Ambient HTTP(S)_PROXY variables are meant for the Telegram client, not the data store.
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	return &supabase{
		base:   base,
		key:    cfg.Key,
		cfg:    cfg,
		client: &http.Client{Transport: tr, Timeout: cfg.Timeout},
	}, nil
}

func (s *supabase) Proxies(ctx context.Context, limit int) ([]string, error) {
	return s.selectColumn(ctx, s.cfg.Proxies, limit)
}

func (s *supabase) Configs(ctx context.Context, limit int) ([]string, error) {
	return s.selectColumn(ctx, s.cfg.Configs, limit)
}

func (s *supabase) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *supabase) selectColumn(ctx context.Context, t Table, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("select", t.Column)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := s.base + "/rest/v1/" + url.PathEscape(t.Name) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("select %s: status %d: %s", t.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.Name, err)
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if v, ok := row[t.Column].(string); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
