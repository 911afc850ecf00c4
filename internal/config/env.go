package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds the deployment variables. Non-empty values override the file.
type Env struct {
	BotToken      string  `env:"BOT_TOKEN"`
	GroupChatIDs  []int64 `env:"GROUP_CHAT_ID" envSeparator:","`
	AdminIDs      []int64 `env:"ADMIN_IDS" envSeparator:","`
	TelegramProxy string  `env:"TELEGRAM_PROXY"`
	URL           string  `env:"URL"`
	Key           string  `env:"KEY"`
	DatabaseURL   string  `env:"DATABASE_URL"`
	Port          string  `env:"PORT"`
	LogLevel      string  `env:"LOG_LEVEL"`
}

// LoadDotEnv loads path into the process environment. A missing file is fine.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ReadEnv parses the variables from environ, or from the process environment when nil.
func ReadEnv(environ map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: environ}); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}

// ApplyEnv overlays e onto c.
func (c *Config) ApplyEnv(e Env) {
	if s := strings.TrimSpace(e.BotToken); s != "" {
		c.Telegram.Token = s
	}
	if len(e.GroupChatIDs) > 0 {
		c.Telegram.GroupChatIDs = e.GroupChatIDs
	}
	if len(e.AdminIDs) > 0 {
		c.Telegram.AdminIDs = e.AdminIDs
	}
	if s := strings.TrimSpace(e.TelegramProxy); s != "" {
		c.Telegram.Proxy = s
	}
	if s := strings.TrimSpace(e.URL); s != "" {
		c.Links.URL = s
		if c.Links.Driver == "" {
			c.Links.Driver = "supabase"
		}
	}
	if s := strings.TrimSpace(e.Key); s != "" {
		c.Links.Key = s
	}
	if s := strings.TrimSpace(e.DatabaseURL); s != "" {
		c.Links.DSN = s
		if c.Links.Driver == "" {
			c.Links.Driver = "postgres"
		}
	}
	if s := strings.TrimSpace(e.Port); s != "" {
		c.HTTP.Addr = ":" + strings.TrimPrefix(s, ":")
	}
	if s := strings.TrimSpace(e.LogLevel); s != "" {
		c.Logging.Level = s
	}
}
