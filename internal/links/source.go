// Package links reads proxy and config links from the hosted data store.
//
// A Source talks to one backend and returns errors. Provider wraps a Source
// for the rest of the bot: it never fails, it returns an empty list instead.
package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "proxybot/pkg/logx"
)

var ErrUnknownDriver = errors.New("unknown links driver")

// Source is one backend for proxy and config links.
type Source interface {
	Proxies(ctx context.Context, limit int) ([]string, error)
	Configs(ctx context.Context, limit int) ([]string, error)
	Close() error
}

// Table names a table and the column that holds the link.
type Table struct {
	Name   string
	Column string
}

type Config struct {
	Driver  string
	URL     string
	Key     string
	DSN     string
	Proxies Table
	Configs Table
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Proxies.Name == "" {
		c.Proxies.Name = "proxies"
	}
	if c.Proxies.Column == "" {
		c.Proxies.Column = "proxy_url"
	}
	if c.Configs.Name == "" {
		c.Configs.Name = "configs"
	}
	if c.Configs.Column == "" {
		c.Configs.Column = "config_url"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// Open connects the configured driver.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Source, error) {
	cfg = cfg.withDefaults()
	for _, t := range []Table{cfg.Proxies, cfg.Configs} {
		if !validIdent(t.Name) || !validIdent(t.Column) {
			return nil, fmt.Errorf("links: invalid table/column %q.%q", t.Name, t.Column)
		}
	}
	var (
		src Source
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "supabase", "postgrest":
		src, err = newSupabase(cfg)
	case "postgres", "postgresql":
		src, err = openPostgres(ctx, cfg, log)
	case "sqlite", "sqlite3":
		src, err = openSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// validIdent allows plain SQL identifiers only; table names are interpolated into queries.
func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
