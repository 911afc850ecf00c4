package scheduler

import (
	"context"
	"time"
)

const DefaultEvery = 30 * time.Minute

type Config struct {
	Name     string
	Every    time.Duration
	Timezone string
	// JobTimeout bounds one run; 0 means no limit.
	JobTimeout time.Duration
}

// Job is the recurring body. It must return when ctx is done.
type Job func(ctx context.Context)

// Snapshot is a point-in-time view for status output.
type Snapshot struct {
	Name     string        `json:"name"`
	Running  bool          `json:"running"`
	Every    time.Duration `json:"every"`
	Timezone string        `json:"timezone"`
	Next     time.Time     `json:"next,omitzero"`
	Prev     time.Time     `json:"prev,omitzero"`
	Runs     uint64        `json:"runs"`
	Panics   uint64        `json:"panics"`
}
