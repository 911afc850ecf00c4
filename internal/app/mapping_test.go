package app

import (
	"testing"
	"time"

	"proxybot/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Telegram: config.TelegramConfig{Token: "1:x", AdminIDs: []int64{1}, GroupChatIDs: []int64{-10, -20}},
		Links:    config.LinksConfig{Driver: "sqlite", DSN: "links.db", Timeout: "3s"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestMapBroadcastConfigDefaults(t *testing.T) {
	t.Parallel()
	bc := mapBroadcastConfig(testConfig())
	if bc.ProxyCount != config.DefaultProxyCount || bc.ConfigCount != 0 || bc.Timeout != 2*time.Minute {
		t.Fatalf("broadcast config = %+v", bc)
	}
	if len(bc.Groups) != 2 || bc.Admins[0] != 1 {
		t.Fatalf("identities = %+v", bc)
	}
}

func TestMapAdapterAndLinks(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	ad := mapAdapterConfig(cfg)
	if ad.PollTimeout != 10*time.Second || ad.RestartDelay != config.DefaultRestartDelay {
		t.Fatalf("adapter config = %+v", ad)
	}
	lc := mapLinksConfig(cfg)
	if lc.Timeout != 3*time.Second || lc.Proxies.Name != "proxies" || lc.Configs.Column != "config_url" {
		t.Fatalf("links config = %+v", lc)
	}
}

func TestMapFormatterUsesTimezone(t *testing.T) {
	t.Parallel()
	f := mapFormatter(testConfig())
	if f.Location == nil || f.Location.String() != config.DefaultTimezone || f.ChunkSize != config.DefaultChunkSize {
		t.Fatalf("formatter = %+v", f)
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	if _, ok := mapStorageConfig(cfg); ok {
		t.Fatal("storage should be off without a section")
	}
	cfg.Storage = &config.StorageConfig{Driver: "sqlite", Path: "audit.db"}
	sc, ok := mapStorageConfig(cfg)
	if !ok || sc.BusyTimeout != 5*time.Second || sc.Driver != "sqlite" {
		t.Fatalf("storage config = %+v %v", sc, ok)
	}
}

func TestMapSchedulerConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Scheduler.Every = "15m"
	sc := mapSchedulerConfig(cfg)
	if sc.Every != 15*time.Minute || sc.Name != "broadcast" || sc.Timezone != config.DefaultTimezone {
		t.Fatalf("scheduler config = %+v", sc)
	}
}
