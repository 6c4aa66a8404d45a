// Package config loads wikibox server and CLI settings from a config file,
// a .env file, and WIKIBOX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WIKIBOX_SERVER_PORT.
const EnvPrefix = "WIKIBOX"

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Proxy  ProxyConfig  `mapstructure:"proxy"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
	Cache  CacheConfig  `mapstructure:"cache"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release or test
	StaticDir    string        `mapstructure:"static_dir"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ProxyConfig configures the CORS proxy.
type ProxyConfig struct {
	Target string `mapstructure:"target"`
	Prefix string `mapstructure:"prefix"`
}

// FetchConfig configures page retrieval.
type FetchConfig struct {
	BaseURL     string        `mapstructure:"base_url"` // wiki used to resolve bare titles
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxBodySize int64         `mapstructure:"max_body_size"`
	Browser     bool          `mapstructure:"browser"`
	BrowserBin  string        `mapstructure:"browser_bin"`
}

// CacheConfig configures the in-memory infobox cache.
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	Cleanup time.Duration `mapstructure:"cleanup"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint used to compare
// texts. An empty APIKey disables comparison.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LogConfig configures logging. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text or json
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Load reads configuration. path names a config file (any format viper
// supports); when empty, wikibox.{yaml,json,toml} is looked up in the working
// directory and silently skipped if absent. envFiles are loaded into the
// environment first, defaulting to .env; missing env files are ignored and
// variables already set are never overwritten.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("wikibox")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode)
	}
	if u, err := url.Parse(c.Proxy.Target); err != nil || u.Host == "" {
		return fmt.Errorf("proxy.target %q is not an absolute URL", c.Proxy.Target)
	}
	if !strings.HasPrefix(c.Proxy.Prefix, "/") {
		return fmt.Errorf("proxy.prefix %q must start with /", c.Proxy.Prefix)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.MaxBodySize <= 0 {
		return fmt.Errorf("fetch.max_body_size must be positive")
	}
	if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Host == "" {
		return fmt.Errorf("llm.base_url %q is not an absolute URL", c.LLM.BaseURL)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.static_dir", "public")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("proxy.target", "https://zh.wikipedia.org")
	v.SetDefault("proxy.prefix", "/proxy")

	v.SetDefault("fetch.base_url", "https://zh.wikipedia.org")
	v.SetDefault("fetch.user_agent", "wikibox/1.0 (+https://github.com/tsawler/wikibox)")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.max_body_size", 10<<20)
	v.SetDefault("fetch.browser", false)
	v.SetDefault("fetch.browser_bin", "")

	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.cleanup", "30m")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.moonshot.cn/v1")
	v.SetDefault("llm.model", "moonshot-v1-8k")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}
