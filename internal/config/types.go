package config

// Config is the on-disk configuration (JSON or YAML). Environment variables
// are overlaid on top by Manager.Parse, see env.go.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Links     LinksConfig     `json:"links"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Settings  SettingsConfig  `json:"settings"`
	HTTP      HTTPConfig      `json:"http"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	AdminIDs     []int64 `json:"admin_ids"`
	GroupChatIDs []int64 `json:"group_chat_ids"`
	// Proxy is an optional outbound proxy URL for the Bot API client.
	Proxy string `json:"proxy,omitempty"`
	// PollTimeout is a Go duration string (default "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// RestartDelay is the wait before polling resumes after a failure (default "5s").
	RestartDelay string `json:"restart_delay,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// LinksConfig selects the proxy/config data store.
//
// Drivers:
//   - "supabase": PostgREST at URL, authenticated with Key.
//   - "postgres": DSN is a pgx connection string.
//   - "sqlite":   DSN is a file path.
type LinksConfig struct {
	Driver string `json:"driver"`
	URL    string `json:"url,omitempty"`
	Key    string `json:"key,omitempty"`
	DSN    string `json:"dsn,omitempty"`

	ProxyTable   string `json:"proxy_table,omitempty"`
	ProxyColumn  string `json:"proxy_column,omitempty"`
	ConfigTable  string `json:"config_table,omitempty"`
	ConfigColumn string `json:"config_column,omitempty"`

	Timeout string `json:"timeout,omitempty"`
}

type BroadcastConfig struct {
	// ProxyCount is the number of proxies per update (default 20).
	ProxyCount int `json:"proxy_count,omitempty"`
	// ConfigCount is the number of configs per update; 0 leaves configs out.
	ConfigCount int    `json:"config_count,omitempty"`
	ChunkSize   int    `json:"chunk_size,omitempty"`
	Label       string `json:"label,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	OnStartup   *bool  `json:"on_startup,omitempty"`
	// Timeout bounds one whole cycle (default "2m").
	Timeout string `json:"timeout,omitempty"`
}

type SchedulerConfig struct {
	// Every is a Go duration string (default "30m").
	Every     string `json:"every,omitempty"`
	AutoStart *bool  `json:"auto_start,omitempty"`
}

type SettingsConfig struct {
	Path string `json:"path,omitempty"`
}

type HTTPConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
}

// StorageConfig controls the audit store.
//
//	"storage": { "driver": "sqlite", "path": "./data/audit.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (c BroadcastConfig) SendOnStartup() bool { return boolOr(c.OnStartup, true) }
func (c SchedulerConfig) StartOnBoot() bool  { return boolOr(c.AutoStart, true) }
func (c HTTPConfig) IsEnabled() bool         { return boolOr(c.Enabled, true) }
