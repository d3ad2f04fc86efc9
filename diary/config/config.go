package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/intern-diary/diary"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig stores HTTP listener settings.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	CORSEnabled       bool          `mapstructure:"cors_enabled"`
	GzipEnabled       bool          `mapstructure:"gzip_enabled"`
}

// LLMConfig stores the text-generation provider settings.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`    // "openai"
	BaseURL     string        `mapstructure:"base_url"`    // OpenAI-compatible endpoint root
	Model       string        `mapstructure:"model"`       // chat model name
	APIKey      string        `mapstructure:"api_key"`     // process-wide default credential
	Temperature float32       `mapstructure:"temperature"` // sampling temperature
	MaxTokens   int           `mapstructure:"max_tokens"`  // completion length cap
	Timeout     time.Duration `mapstructure:"timeout"`     // single-attempt deadline
}

// CacheConfig stores result cache settings.
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Expiry          time.Duration `mapstructure:"expiry"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	KeyPrefixLen    int           `mapstructure:"key_prefix_len"` // characters of the normalized summary hashed into the key
}

// RateLimitConfig stores the upstream token bucket settings.
type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Capacity   int           `mapstructure:"capacity"`
	RefillRate time.Duration `mapstructure:"refill_rate"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // zerolog level name
	Format string `mapstructure:"format"` // "console" or "json"
}

// Loader owns the viper instance behind a loaded Config so the caller can
// watch the file it came from.
type Loader struct {
	v *viper.Viper
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	cfg, _, err := Load(configPath)
	return cfg, err
}

// Load reads configuration like LoadConfig and also returns the Loader.
func Load(configPath string) (*Config, *Loader, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(internal.DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load %s: %w", internal.DefaultEnvFile, err)
	}

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("/etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. llm.base_url becomes LLM_BASE_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("llm.api_key", internal.DefaultAPIKeyEnv); err != nil {
		return nil, nil, fmt.Errorf("failed to bind %s: %w", internal.DefaultAPIKeyEnv, err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	return cfg, &Loader{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.cors_enabled", true)
	v.SetDefault("server.gzip_enabled", true)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4.1-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.expiry", "1h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.key_prefix_len", 500)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.capacity", 10)
	v.SetDefault("rate_limit.refill_rate", "1s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.Cache.Enabled && c.Cache.Expiry <= 0 {
		return fmt.Errorf("cache.expiry must be positive, got %s", c.Cache.Expiry)
	}
	if c.Cache.KeyPrefixLen <= 0 {
		return fmt.Errorf("cache.key_prefix_len must be positive, got %d", c.Cache.KeyPrefixLen)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity <= 0 || c.RateLimit.RefillRate <= 0) {
		return fmt.Errorf("rate_limit requires positive capacity and refill_rate")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// ConfigFileUsed returns the path of the file the config was read from, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch re-decodes the config whenever its file changes and hands the
// result to onChange. Decode failures go to onError and keep the old config.
// It is a no-op when no config file was read.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(l.v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}
