package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application settings. LoadConfig reads the YAML file and
// then applies environment variable overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine struct {
		PlatformFeeBps  int64  `yaml:"platform_fee_bps"`
		RoyaltyBps      int64  `yaml:"royalty_bps"`
		Treasury        string `yaml:"treasury"`
		MarketOperator  string `yaml:"market_operator"`
		AuctionOperator string `yaml:"auction_operator"`
	} `yaml:"engine"`

	Feed struct {
		ListenAddr     string  `yaml:"listen_addr"` // empty disables the feed
		MaxClients     int     `yaml:"max_clients"`
		ConnectsPerSec float64 `yaml:"connects_per_sec"`
	} `yaml:"feed"`

	Storage struct {
		SnapshotKeep int `yaml:"snapshot_keep"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Engine.PlatformFeeBps < 0 || c.Engine.PlatformFeeBps > 10_000 {
		return fmt.Errorf("platform fee %d bps out of range", c.Engine.PlatformFeeBps)
	}
	if c.Engine.RoyaltyBps < 0 || c.Engine.RoyaltyBps > 1_000 {
		return fmt.Errorf("royalty %d bps exceeds the 10%% cap", c.Engine.RoyaltyBps)
	}
	if c.Engine.Treasury == "" {
		return fmt.Errorf("treasury account is required")
	}
	if c.Engine.MarketOperator == "" || c.Engine.AuctionOperator == "" {
		return fmt.Errorf("engine operator identities are required")
	}
	if c.Engine.MarketOperator == c.Engine.AuctionOperator {
		return fmt.Errorf("market and auction operators must be distinct")
	}
	if c.Feed.ListenAddr != "" {
		if c.Feed.MaxClients <= 0 {
			return fmt.Errorf("feed max_clients must be positive")
		}
		if c.Feed.ConnectsPerSec <= 0 {
			return fmt.Errorf("feed connects_per_sec must be positive")
		}
	}
	if c.Storage.SnapshotKeep <= 0 {
		return fmt.Errorf("snapshot_keep must be positive")
	}
	return nil
}

// overrideWithEnv applies environment variable overrides. Deployment
// identities beat file contents so one config file can serve many
// installations.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("AURA_TREASURY"); v != "" {
		cfg.Engine.Treasury = v
	}
	if v := os.Getenv("AURA_FEED_ADDR"); v != "" {
		cfg.Feed.ListenAddr = v
	}
	if v := os.Getenv("AURA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
