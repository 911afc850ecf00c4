package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// sqliteSource serves links from a local database file, mostly for
// self-hosted setups and tests.
type sqliteSource struct {
	db  *sql.DB
	cfg Config
}

func openSQLite(ctx context.Context, cfg Config) (*sqliteSource, error) {
	path := strings.TrimSpace(cfg.DSN)
	if path == "" {
		return nil, errors.New("links: sqlite needs dsn")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("links: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("links: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, t := range []Table{cfg.Proxies, cfg.Configs} {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, %s TEXT NOT NULL)`, t.Name, t.Column)
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("links: create %s: %w", t.Name, err)
		}
	}
	return &sqliteSource{db: db, cfg: cfg}, nil
}

func (s *sqliteSource) Proxies(ctx context.Context, limit int) ([]string, error) {
	return s.selectColumn(ctx, s.cfg.Proxies, limit)
}

func (s *sqliteSource) Configs(ctx context.Context, limit int) ([]string, error) {
	return s.selectColumn(ctx, s.cfg.Configs, limit)
}

func (s *sqliteSource) Close() error { return s.db.Close() }

// Insert adds rows to t, used to seed a local store.
func (s *sqliteSource) Insert(ctx context.Context, t Table, values ...string) error {
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?)`, t.Name, t.Column)
	for _, v := range values {
		if _, err := s.db.ExecContext(ctx, q, v); err != nil {
			return fmt.Errorf("insert %s: %w", t.Name, err)
		}
	}
	return nil
}

func (s *sqliteSource) selectColumn(ctx context.Context, t Table, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY id LIMIT ?`, t.Column, t.Name), limit)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Name, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
