package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	GC        GCConfig        `mapstructure:"gc"`
	Log       LogConfig       `mapstructure:"log"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	SlowLog   SlowLogConfig   `mapstructure:"slowlog"`
}

// GCConfig defines the parameters for the background active expiration
type GCConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`          // how often to run the background check
	SamplesPerCheck int           `mapstructure:"samples_per_check"` // how many keys to check per shard and loop
	MatchThreshold  float64       `mapstructure:"match_threshold"`   // 0.0-1.0. if expired/scanned > threshold, repeat immediately
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// StorageConfig defines the internal structure of the storage engine
type StorageConfig struct {
	Shards uint `mapstructure:"shards"`
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// PubSubConfig bounds the per-subscriber message queue
type PubSubConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// ScriptingConfig limits Lua script execution
type ScriptingConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// SlowLogConfig selects which commands are kept by SLOWLOG.
// A negative SlowerThan disables the log, zero records every command
type SlowLogConfig struct {
	SlowerThan time.Duration `mapstructure:"slower_than"`
	MaxLen     int           `mapstructure:"max_len"`
}

var defaults = map[string]any{
	"server.host":          "0.0.0.0",
	"server.port":          "6380",
	"storage.shards":       32,
	"gc.enabled":           true,
	"gc.interval":          "100ms",
	"gc.samples_per_check": 20,
	"gc.match_threshold":   0.25,
	"log.level":            "info",
	"log.format":           "json",
	"pubsub.queue_size":    1024,
	"scripting.timeout":    "5s",
	"metrics.enabled":      false,
	"metrics.address":      ":9121",
	"slowlog.slower_than":  "10ms",
	"slowlog.max_len":      128,
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOONKV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("read config: %w", err)
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

// Default returns the built-in configuration without reading files or environment
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: "6380"},
		Storage: StorageConfig{Shards: 32},
		GC: GCConfig{
			Enabled:         true,
			Interval:        100 * time.Millisecond,
			SamplesPerCheck: 20,
			MatchThreshold:  0.25,
		},
		Log:       LogConfig{Level: "info", Format: "json"},
		PubSub:    PubSubConfig{QueueSize: 1024},
		Scripting: ScriptingConfig{Timeout: 5 * time.Second},
		Metrics:   MetricsConfig{Enabled: false, Address: ":9121"},
		SlowLog:   SlowLogConfig{SlowerThan: 10 * time.Millisecond, MaxLen: 128},
	}
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if c.GC.Enabled && c.GC.Interval <= 0 {
		return errors.New("gc.interval must be positive")
	}
	if c.GC.MatchThreshold < 0 || c.GC.MatchThreshold > 1 {
		return errors.New("gc.match_threshold must be between 0 and 1")
	}
	if c.PubSub.QueueSize <= 0 {
		return errors.New("pubsub.queue_size must be positive")
	}
	if c.SlowLog.MaxLen < 0 {
		return errors.New("slowlog.max_len must not be negative")
	}
	return nil
}

// Settings flattens the configuration into dotted keys as they appear in the
// config file, e.g. "server.port" or "gc.interval"
func (c *Config) Settings() (map[string]string, error) {
	var tree map[string]any
	if err := mapstructure.Decode(*c, &tree); err != nil {
		return nil, fmt.Errorf("flatten config: %w", err)
	}

	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = fmt.Sprint(value)
	}
}
