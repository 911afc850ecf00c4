package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // broadcast.timezone must resolve on hosts without zoneinfo
)

const (
	DefaultProxyCount   = 20
	DefaultChunkSize    = 200
	DefaultLabel        = "پروکسی مهندس علایی"
	DefaultTimezone     = "Asia/Tehran"
	DefaultEvery        = 30 * time.Minute
	DefaultSettingsPath = "./setting.json"
	DefaultHTTPAddr     = ":8080"
	DefaultRestartDelay = 5 * time.Second
)

// ApplyDefaults fills zero values. It never overrides explicit settings.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Links.Driver == "" {
		c.Links.Driver = "supabase"
	}
	if c.Links.ProxyTable == "" {
		c.Links.ProxyTable = "proxies"
	}
	if c.Links.ProxyColumn == "" {
		c.Links.ProxyColumn = "proxy_url"
	}
	if c.Links.ConfigTable == "" {
		c.Links.ConfigTable = "configs"
	}
	if c.Links.ConfigColumn == "" {
		c.Links.ConfigColumn = "config_url"
	}
	if c.Broadcast.ProxyCount <= 0 {
		c.Broadcast.ProxyCount = DefaultProxyCount
	}
	if c.Broadcast.ChunkSize <= 0 {
		c.Broadcast.ChunkSize = DefaultChunkSize
	}
	if strings.TrimSpace(c.Broadcast.Label) == "" {
		c.Broadcast.Label = DefaultLabel
	}
	if c.Broadcast.Timezone == "" {
		c.Broadcast.Timezone = DefaultTimezone
	}
	if c.Broadcast.RatePerSec <= 0 {
		c.Broadcast.RatePerSec = 1
	}
	if c.Settings.Path == "" {
		c.Settings.Path = DefaultSettingsPath
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required (or BOT_TOKEN)"))
	}
	switch c.Links.Driver {
	case "supabase":
		if c.Links.URL == "" || c.Links.Key == "" {
			errs = append(errs, errors.New("links: supabase driver needs url and key (or URL/KEY)"))
		}
	case "postgres", "sqlite":
		if c.Links.DSN == "" {
			errs = append(errs, fmt.Errorf("links: %s driver needs dsn", c.Links.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("links.driver: unknown driver %q", c.Links.Driver))
	}
	if _, err := time.LoadLocation(c.Broadcast.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("broadcast.timezone: %w", err))
	}
	if c.Broadcast.ConfigCount < 0 {
		errs = append(errs, errors.New("broadcast.config_count must be >= 0"))
	}
	for path, raw := range map[string]string{
		"telegram.poll_timeout":  c.Telegram.PollTimeout,
		"telegram.restart_delay": c.Telegram.RestartDelay,
		"links.timeout":          c.Links.Timeout,
		"broadcast.timeout":      c.Broadcast.Timeout,
		"scheduler.every":        c.Scheduler.Every,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Storage != nil && c.Storage.BusyTimeout != "" {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Location resolves the broadcast timezone, falling back to UTC.
func (c BroadcastConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Interval is the scheduler period. Invalid values fall back to the default.
func (c SchedulerConfig) Interval() time.Duration {
	d, err := ParseDurationOrDefault("scheduler.every", c.Every, DefaultEvery)
	if err != nil {
		return DefaultEvery
	}
	return d
}
