package links

import (
	"context"
	"fmt"

	"proxybot/internal/metrics"
	logx "proxybot/pkg/logx"
)

// Provider is the error-free view of a Source used by handlers and the broadcast.
// Failures are logged and counted, and the caller sees an empty list.
type Provider struct {
	src Source
	log logx.Logger
}

func NewProvider(src Source, log logx.Logger) *Provider {
	return &Provider{src: src, log: log}
}

// FetchProxies returns at most limit proxy links, or an empty list.
func (p *Provider) FetchProxies(ctx context.Context, limit int) []string {
	return p.fetch(ctx, "proxies", limit, p.src.Proxies)
}

// FetchConfigs returns at most limit config entries, or an empty list.
func (p *Provider) FetchConfigs(ctx context.Context, limit int) []string {
	return p.fetch(ctx, "configs", limit, p.src.Configs)
}

func (p *Provider) Close() error { return p.src.Close() }

func (p *Provider) fetch(ctx context.Context, kind string, limit int, fn func(context.Context, int) ([]string, error)) (out []string) {
	if limit <= 0 {
		return []string{}
	}
	defer func() {
		if r := recover(); r != nil {
			p.fail(kind, fmt.Errorf("panic: %v", r))
			out = []string{}
		}
	}()

	items, err := fn(ctx, limit)
	if err != nil {
		p.fail(kind, err)
		return []string{}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []string{}
	}
	metrics.LinksFetched.WithLabelValues(kind).Add(float64(len(items)))
	return items
}

func (p *Provider) fail(kind string, err error) {
	metrics.FetchFailures.WithLabelValues(kind).Inc()
	p.log.Error("fetch links failed", logx.String("kind", kind), logx.Err(err))
}
