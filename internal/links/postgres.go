package links

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	logx "proxybot/pkg/logx"
)

type postgres struct {
	pool *pgxpool.Pool
	cfg  Config
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (*postgres, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("links: parse dsn: %w", err)
	}
	pc.MaxConns = 4
	pc.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("links: connect: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		// The pool reconnects lazily; a cold database at boot is not fatal.
		log.Warn("links database not reachable yet", logx.Err(err))
	}
	return &postgres{pool: pool, cfg: cfg}, nil
}

func (p *postgres) Proxies(ctx context.Context, limit int) ([]string, error) {
	return p.selectColumn(ctx, p.cfg.Proxies, limit)
}

func (p *postgres) Configs(ctx context.Context, limit int) ([]string, error) {
	return p.selectColumn(ctx, p.cfg.Configs, limit)
}

func (p *postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *postgres) selectColumn(ctx context.Context, t Table, limit int) ([]string, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s LIMIT $1`, t.Column, t.Name), limit)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var v *string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Name, err)
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	return out, nil
}
