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
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Parser  ParserConfig  `mapstructure:"parser"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigin  string   `mapstructure:"cors_origin"`
	StaticDir   string   `mapstructure:"static_dir"`
	TimeoutSecs int      `mapstructure:"timeout_seconds"`
	PosterHosts []string `mapstructure:"poster_hosts"`
}

// CatalogConfig points at the upstream movie catalog site.
type CatalogConfig struct {
	BaseOrigin   string `mapstructure:"base_origin"`
	SearchOrigin string `mapstructure:"search_origin"`
	UserAgent    string `mapstructure:"user_agent"`
}

// HTTPConfig configures outbound HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
	BackoffBaseMs  int `mapstructure:"backoff_base_ms"`
}

// ParserConfig tunes detail-page extraction limits.
type ParserConfig struct {
	SummaryMaxLen int `mapstructure:"summary_max_len"`
	SummaryMinLen int `mapstructure:"summary_min_len"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MOVIEMETA")
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
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("server.poster_hosts", []string{"douban.com", "doubanio.com"})
	v.SetDefault("catalog.base_origin", "https://movie.douban.com")
	v.SetDefault("catalog.search_origin", "https://www.douban.com")
	v.SetDefault("catalog.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_base_ms", 1000)
	v.SetDefault("parser.summary_max_len", 500)
	v.SetDefault("parser.summary_min_len", 10)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Catalog.BaseOrigin == "" {
		return fmt.Errorf("catalog.base_origin must be set")
	}
	if c.Catalog.SearchOrigin == "" {
		return fmt.Errorf("catalog.search_origin must be set")
	}
	if c.Catalog.UserAgent == "" {
		return fmt.Errorf("catalog.user_agent must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffBaseMs <= 0 {
		return fmt.Errorf("http.backoff_base_ms must be > 0")
	}
	if c.Parser.SummaryMaxLen <= c.Parser.SummaryMinLen {
		return fmt.Errorf("parser.summary_max_len must be > parser.summary_min_len")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffBase converts the backoff config into a duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.HTTP.BackoffBaseMs) * time.Millisecond
}
