// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/staywatch/staywatch/internal/fetch"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Survey  SurveyConfig  `mapstructure:"survey"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FetchConfig governs the resilient fetch session. Durations are expressed
// in float seconds to match operator expectations for sub-second politeness
// tuning.
type FetchConfig struct {
	MaxAttempts        int      `mapstructure:"max_attempts"`
	SleepBaseSeconds   float64  `mapstructure:"sleep_base_seconds"`
	TimeoutSeconds     float64  `mapstructure:"timeout_seconds"`
	ReinitSleepSeconds float64  `mapstructure:"reinit_sleep_seconds"`
	UserAgents         []string `mapstructure:"user_agents"`
	Proxies            []string `mapstructure:"proxies"`
	RespectRobots      bool     `mapstructure:"respect_robots"`
}

// SessionConfig converts the float-second knobs into the fetch package's
// duration-based config.
func (c FetchConfig) SessionConfig() fetch.Config {
	return fetch.Config{
		MaxAttempts:   c.MaxAttempts,
		SleepBase:     secondsToDuration(c.SleepBaseSeconds),
		Timeout:       secondsToDuration(c.TimeoutSeconds),
		ReinitSleep:   secondsToDuration(c.ReinitSleepSeconds),
		UserAgents:    c.UserAgents,
		RespectRobots: c.RespectRobots,
	}
}

// TargetConfig is one survey target: a URL plus its query parameters.
type TargetConfig struct {
	URL    string            `mapstructure:"url"`
	Params map[string]string `mapstructure:"params"`
}

// SurveyConfig controls the sequential survey runner.
type SurveyConfig struct {
	Targets     []TargetConfig `mapstructure:"targets"`
	HostRPS     float64        `mapstructure:"host_rps"`
	HostBurst   int            `mapstructure:"host_burst"`
	BlobPrefix  string         `mapstructure:"blob_prefix"`
	ContentType string         `mapstructure:"content_type"`
	Topic       string         `mapstructure:"topic"`
}

// ServerConfig controls the operator HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StorageConfig selects and configures the blob store backend.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
}

// DBConfig controls the Postgres page store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STAYWATCH")
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
	v.SetDefault("fetch.max_attempts", 5)
	v.SetDefault("fetch.sleep_base_seconds", 2.0)
	v.SetDefault("fetch.timeout_seconds", 15.0)
	v.SetDefault("fetch.reinit_sleep_seconds", 300.0)
	v.SetDefault("fetch.respect_robots", false)

	v.SetDefault("survey.host_rps", 0.5)
	v.SetDefault("survey.host_burst", 1)
	v.SetDefault("survey.blob_prefix", "pages")
	v.SetDefault("survey.content_type", "text/html; charset=utf-8")

	v.SetDefault("server.port", 8080)

	v.SetDefault("storage.provider", "memory")
	v.SetDefault("db.table", "pages")
	v.SetDefault("logging.development", false)
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.SleepBaseSeconds < 0 {
		return fmt.Errorf("fetch.sleep_base_seconds must be >= 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.ReinitSleepSeconds < 0 {
		return fmt.Errorf("fetch.reinit_sleep_seconds must be >= 0")
	}
	if c.Survey.HostRPS < 0 {
		return fmt.Errorf("survey.host_rps must be >= 0")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port")
	}
	switch c.Storage.Provider {
	case "memory":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local provider")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	for i, target := range c.Survey.Targets {
		if strings.TrimSpace(target.URL) == "" {
			return fmt.Errorf("survey.targets[%d].url must be set", i)
		}
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
