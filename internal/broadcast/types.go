package broadcast

import (
	"context"
	"time"
)

// Fetcher is the subset of links.Provider used here. It never fails.
type Fetcher interface {
	FetchProxies(ctx context.Context, limit int) []string
	FetchConfigs(ctx context.Context, limit int) []string
}

type Config struct {
	Groups []int64
	Admins []int64

	ProxyCount  int
	ConfigCount int // 0 leaves configs out of the update

	RatePerSec int
	Timeout    time.Duration // whole cycle; 0 means no limit
}

// Result summarizes one cycle.
type Result struct {
	Trigger   string        `json:"trigger"`
	StartedAt time.Time     `json:"started_at"`
	Took      time.Duration `json:"took"`
	Proxies   int           `json:"proxies"`
	Configs   int           `json:"configs"`
	Sent      int           `json:"sent"`
	Failed    int           `json:"failed"`
	// Notified counts failed groups reported to an admin.
	Notified int    `json:"notified"`
	Err      string `json:"error,omitempty"`
}

// AllFailed reports whether there were destinations and none received the update.
func (r Result) AllFailed() bool {
	return r.Sent == 0 && (r.Failed > 0 || r.Err != "")
}

type triggerKey struct{}

// WithTrigger tags ctx with what started the cycle (schedule, startup, api).
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return "manual"
}
