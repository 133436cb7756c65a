// Package config loads server settings from defaults, an optional YAML
// file, a .env file and AUCTION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/auction-room-backend/internal/engine"
)

const envPrefix = "AUCTION"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Room     RoomConfig     `mapstructure:"room"`
	Rules    RulesConfig    `mapstructure:"rules"`
}

// HTTPConfig has no write timeout: websocket connections are long-lived.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Format is "json" or "console"
	Format string `mapstructure:"format"`
}

// CatalogConfig selects where season data comes from.
// Source: "embedded", "file" (Path is a directory of <season>.json) or "postgres"
type CatalogConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
	Season string `mapstructure:"season"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
	// History records completed rooms when a DSN is set.
	History bool `mapstructure:"history"`
}

// RedisConfig enables the snapshot mirror when URL is set.
type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type RoomConfig struct {
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AIThinkDelay time.Duration `mapstructure:"ai_think_delay"`
}

type BandConfig struct {
	Below int64 `mapstructure:"below"`
	Step  int64 `mapstructure:"step"`
}

type RulesConfig struct {
	Purse            int64         `mapstructure:"purse"`
	MaxRetention     int           `mapstructure:"max_retention"`
	RetentionCost    []int64       `mapstructure:"retention_cost"`
	MaxSquad         int           `mapstructure:"max_squad"`
	OverseasCap      int           `mapstructure:"overseas_cap"`
	Increments       []BandConfig  `mapstructure:"increments"`
	BidTimer         time.Duration `mapstructure:"bid_timer"`
	RTMWindow        time.Duration `mapstructure:"rtm_window"`
	RetentionWindow  time.Duration `mapstructure:"retention_window"`
	RTMRights        int           `mapstructure:"rtm_rights"`
	RTMHike          bool          `mapstructure:"rtm_hike"`
	AIFill           bool          `mapstructure:"ai_fill"`
	DisconnectPolicy string        `mapstructure:"disconnect_policy"`
}

// Engine converts the configured rules for a new room.
func (r RulesConfig) Engine() engine.Rules {
	bands := make([]engine.IncrementBand, len(r.Increments))
	for i, b := range r.Increments {
		bands[i] = engine.IncrementBand{Below: b.Below, Step: b.Step}
	}
	return engine.Rules{
		Purse:            r.Purse,
		MaxRetention:     r.MaxRetention,
		RetentionCost:    append([]int64{}, r.RetentionCost...),
		MaxSquad:         r.MaxSquad,
		OverseasCap:      r.OverseasCap,
		Increments:       bands,
		BidTimer:         r.BidTimer,
		RTMWindow:        r.RTMWindow,
		RetentionWindow:  r.RetentionWindow,
		RTMRights:        r.RTMRights,
		RTMHike:          r.RTMHike,
		AIFill:           r.AIFill,
		DisconnectPolicy: engine.DisconnectPolicy(r.DisconnectPolicy),
	}
}

func setDefaults(v *viper.Viper) {
	rules := engine.DefaultRules()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("catalog.source", "embedded")
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.season", "2025")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.history", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.snapshot_ttl", 6*time.Hour)

	v.SetDefault("room.idle_timeout", 10*time.Minute)
	v.SetDefault("room.ai_think_delay", 750*time.Millisecond)

	v.SetDefault("rules.purse", rules.Purse)
	v.SetDefault("rules.max_retention", rules.MaxRetention)
	v.SetDefault("rules.retention_cost", rules.RetentionCost)
	v.SetDefault("rules.max_squad", rules.MaxSquad)
	v.SetDefault("rules.overseas_cap", rules.OverseasCap)
	bands := make([]map[string]any, len(rules.Increments))
	for i, b := range rules.Increments {
		bands[i] = map[string]any{"below": b.Below, "step": b.Step}
	}
	v.SetDefault("rules.increments", bands)
	v.SetDefault("rules.bid_timer", rules.BidTimer)
	v.SetDefault("rules.rtm_window", rules.RTMWindow)
	v.SetDefault("rules.retention_window", rules.RetentionWindow)
	v.SetDefault("rules.rtm_rights", rules.RTMRights)
	v.SetDefault("rules.rtm_hike", rules.RTMHike)
	v.SetDefault("rules.ai_fill", rules.AIFill)
	v.SetDefault("rules.disconnect_policy", string(rules.DisconnectPolicy))
}

// Load builds the configuration. path may be empty; envFiles default to
// ".env", and a missing env file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs error
	fail := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.HTTP.Addr == "" {
		fail("http.addr is empty")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		fail("http.shutdown_timeout must be positive")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		fail("log.level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		fail("log.format %q (want json or console)", c.Log.Format)
	}

	switch c.Catalog.Source {
	case "embedded":
	case "file":
		if c.Catalog.Path == "" {
			fail("catalog.path is required for the file source")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			fail("postgres.dsn is required for the postgres catalog")
		}
	default:
		fail("catalog.source %q", c.Catalog.Source)
	}
	if c.Catalog.Season == "" {
		fail("catalog.season is empty")
	}

	if c.Room.IdleTimeout < 0 || c.Room.AIThinkDelay < 0 {
		fail("room durations must not be negative")
	}
	if c.Redis.URL != "" && c.Redis.SnapshotTTL <= 0 {
		fail("redis.snapshot_ttl must be positive")
	}

	return multierr.Append(errs, c.Rules.Engine().Validate())
}
