package app

import (
	"time"

	"proxybot/internal/broadcast"
	"proxybot/internal/config"
	"proxybot/internal/format"
	"proxybot/internal/links"
	"proxybot/internal/storage"
	"proxybot/internal/task/scheduler"
	telegram "proxybot/internal/transport/telegram/adapter"
	logx "proxybot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapAdapterConfig(cfg *config.Config) telegram.Config {
	return telegram.Config{
		Token:        cfg.Telegram.Token,
		Proxy:        cfg.Telegram.Proxy,
		PollTimeout:  config.MustDuration(cfg.Telegram.PollTimeout, 10*time.Second),
		RestartDelay: config.MustDuration(cfg.Telegram.RestartDelay, config.DefaultRestartDelay),
	}
}

func mapLinksConfig(cfg *config.Config) links.Config {
	return links.Config{
		Driver:  cfg.Links.Driver,
		URL:     cfg.Links.URL,
		Key:     cfg.Links.Key,
		DSN:     cfg.Links.DSN,
		Proxies: links.Table{Name: cfg.Links.ProxyTable, Column: cfg.Links.ProxyColumn},
		Configs: links.Table{Name: cfg.Links.ConfigTable, Column: cfg.Links.ConfigColumn},
		Timeout: config.MustDuration(cfg.Links.Timeout, 0),
	}
}

func mapFormatter(cfg *config.Config) format.Formatter {
	return format.Formatter{
		Label:     cfg.Broadcast.Label,
		ChunkSize: cfg.Broadcast.ChunkSize,
		Location:  cfg.Broadcast.Location(),
	}
}

func mapBroadcastConfig(cfg *config.Config) broadcast.Config {
	return broadcast.Config{
		Groups:      cfg.Telegram.GroupChatIDs,
		Admins:      cfg.Telegram.AdminIDs,
		ProxyCount:  cfg.Broadcast.ProxyCount,
		ConfigCount: cfg.Broadcast.ConfigCount,
		RatePerSec:  cfg.Broadcast.RatePerSec,
		Timeout:     config.MustDuration(cfg.Broadcast.Timeout, 2*time.Minute),
	}
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Name:     "broadcast",
		Every:    cfg.Scheduler.Interval(),
		Timezone: cfg.Broadcast.Timezone,
	}
}

// mapStorageConfig reports false when no audit store is configured.
func mapStorageConfig(cfg *config.Config) (storage.Config, bool) {
	if cfg.Storage == nil {
		return storage.Config{}, false
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: config.MustDuration(cfg.Storage.BusyTimeout, 5*time.Second),
	}, true
}
