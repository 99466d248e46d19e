package infra

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfig = `
app:
  name: aura-go
  version: test
engine:
  platform_fee_bps: 250
  royalty_bps: 250
  treasury: treasury
  market_operator: market
  auction_operator: auction
feed:
  listen_addr: "127.0.0.1:0"
  max_clients: 16
  connects_per_sec: 4
storage:
  snapshot_keep: 3
logging:
  level: info
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.PlatformFeeBps != 250 {
		t.Errorf("fee = %d, want 250", cfg.Engine.PlatformFeeBps)
	}
	if cfg.Engine.Treasury != "treasury" {
		t.Errorf("treasury = %s", cfg.Engine.Treasury)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("AURA_TREASURY", "vault")

	cfg, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.Treasury != "vault" {
		t.Errorf("treasury = %s, want vault", cfg.Engine.Treasury)
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, testConfig))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	cfg := base()
	cfg.Engine.RoyaltyBps = 1001
	if err := cfg.Validate(); err == nil {
		t.Error("royalty above the cap must be rejected")
	}

	cfg = base()
	cfg.Engine.Treasury = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty treasury must be rejected")
	}

	cfg = base()
	cfg.Engine.AuctionOperator = cfg.Engine.MarketOperator
	if err := cfg.Validate(); err == nil {
		t.Error("shared operator identity must be rejected")
	}

	cfg = base()
	cfg.Feed.MaxClients = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max_clients with feed enabled must be rejected")
	}
}
