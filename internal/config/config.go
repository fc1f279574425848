// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Targeting TargetingConfig `mapstructure:"targeting"`
	Signal    SignalConfig    `mapstructure:"signal"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	DB        DBConfig        `mapstructure:"db"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls operator HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TargetingConfig defines the geographic and vertical focus of the
// pipeline. Matching is substring, case-insensitive.
type TargetingConfig struct {
	Geographies    []string `mapstructure:"geographies"`
	Niches         []string `mapstructure:"niches"`
	LocalAreaCodes []string `mapstructure:"local_area_codes"`
}

// SignalConfig governs the signal scorer.
type SignalConfig struct {
	QualifyThreshold float64 `mapstructure:"qualify_threshold"`
	RecencyWindow    string  `mapstructure:"recency_window"`
}

// DiscoveryConfig governs fetch behavior inside the discovery engines.
type DiscoveryConfig struct {
	UserAgents      []string `mapstructure:"user_agents"`
	FetchTimeout    string   `mapstructure:"fetch_timeout"`
	MaxContactPages int      `mapstructure:"max_contact_pages"`
	MaxArticleLinks int      `mapstructure:"max_article_links"`
	DelayMinMs      int      `mapstructure:"delay_min_ms"`
	DelayMaxMs      int      `mapstructure:"delay_max_ms"`
	CacheTTL        string   `mapstructure:"cache_ttl"`
	BlockedDomains  []string `mapstructure:"blocked_domains"`
}

// GuardConfig governs the per-dependency circuit breakers and limiters.
type GuardConfig struct {
	FailureThreshold int     `mapstructure:"failure_threshold"`
	Cooldown         string  `mapstructure:"cooldown"`
	RatePerSecond    float64 `mapstructure:"rate_per_second"`
	Burst            int     `mapstructure:"burst"`
}

// EnrichConfig governs orchestrator batch runs and lifecycle policy.
type EnrichConfig struct {
	BatchSize           int    `mapstructure:"batch_size"`
	Concurrency         int    `mapstructure:"concurrency"`
	StalenessWindow     string `mapstructure:"staleness_window"`
	Interval            string `mapstructure:"interval"`
	PhoneReuseThreshold int    `mapstructure:"phone_reuse_threshold"`
}

// DispatchConfig gates outbound hand-off.
type DispatchConfig struct {
	// Suppressed lists do-not-contact emails and domains.
	Suppressed []string `mapstructure:"suppressed"`
	// MinRoleConfidence blocks role inboxes below this email
	// confidence. Zero disables the gate.
	MinRoleConfidence float64 `mapstructure:"min_role_confidence"`
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory store.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("targeting.geographies", []string{
		"miami", "fort lauderdale", "west palm beach", "boca raton",
		"hollywood", "coral gables", "south florida", "broward", "dade",
	})
	v.SetDefault("targeting.niches", []string{
		"hvac", "air conditioning", "plumbing", "roofing",
		"landscaping", "pool service", "pest control", "electrician",
	})
	v.SetDefault("targeting.local_area_codes", []string{
		"305", "786", "954", "754", "561", "772",
	})
	v.SetDefault("signal.qualify_threshold", 65.0)
	v.SetDefault("signal.recency_window", "72h")
	v.SetDefault("discovery.fetch_timeout", "10s")
	v.SetDefault("discovery.max_contact_pages", 8)
	v.SetDefault("discovery.max_article_links", 10)
	v.SetDefault("discovery.delay_min_ms", 500)
	v.SetDefault("discovery.delay_max_ms", 2000)
	v.SetDefault("discovery.cache_ttl", "24h")
	v.SetDefault("discovery.blocked_domains", []string{})
	v.SetDefault("guard.failure_threshold", 3)
	v.SetDefault("guard.cooldown", "5m")
	v.SetDefault("guard.rate_per_second", 0.5)
	v.SetDefault("guard.burst", 1)
	v.SetDefault("enrich.batch_size", 25)
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("enrich.staleness_window", "720h")
	v.SetDefault("enrich.interval", "10m")
	v.SetDefault("enrich.phone_reuse_threshold", 4)
	v.SetDefault("dispatch.suppressed", []string{})
	v.SetDefault("dispatch.min_role_confidence", 0.0)
	v.SetDefault("db.max_open_conns", 8)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Signal.QualifyThreshold < 0 || c.Signal.QualifyThreshold > 100 {
		return fmt.Errorf("signal.qualify_threshold must be within [0,100]")
	}
	if c.Discovery.MaxContactPages <= 0 {
		return fmt.Errorf("discovery.max_contact_pages must be > 0")
	}
	if c.Discovery.DelayMinMs > c.Discovery.DelayMaxMs {
		return fmt.Errorf("discovery.delay_min_ms must not exceed delay_max_ms")
	}
	if c.Guard.FailureThreshold <= 0 {
		return fmt.Errorf("guard.failure_threshold must be > 0")
	}
	if c.Enrich.BatchSize <= 0 {
		return fmt.Errorf("enrich.batch_size must be > 0")
	}
	if c.Enrich.Concurrency <= 0 {
		return fmt.Errorf("enrich.concurrency must be > 0")
	}
	if c.Dispatch.MinRoleConfidence < 0 || c.Dispatch.MinRoleConfidence > 1 {
		return fmt.Errorf("dispatch.min_role_confidence must be within [0,1]")
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"signal.recency_window", c.Signal.RecencyWindow},
		{"discovery.fetch_timeout", c.Discovery.FetchTimeout},
		{"discovery.cache_ttl", c.Discovery.CacheTTL},
		{"guard.cooldown", c.Guard.Cooldown},
		{"enrich.staleness_window", c.Enrich.StalenessWindow},
		{"enrich.interval", c.Enrich.Interval},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	return nil
}

// Duration parses a duration field that Validate has already vetted.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
