// Package config holds the typed narrate configuration. Values are layered:
// built-in defaults, the YAML config file and NARRATE_* variables through
// viper, then typed environment overrides.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/engine"
)

// AppName names the config file and the per-user directories.
const AppName = "narrate"

// Config is the effective configuration.
type Config struct {
	// Primary voice, overridden by NARRATE_TTS_VOICE.
	Voice string `yaml:"voice" mapstructure:"voice" env:"NARRATE_TTS_VOICE"`

	// Voice retried once when the primary voice fails.
	FallbackVoice string `yaml:"fallback_voice" mapstructure:"fallback_voice" env:"NARRATE_FALLBACK_VOICE"`

	Debug   bool   `yaml:"debug" mapstructure:"debug" env:"NARRATE_DEBUG"`
	LogFile string `yaml:"log_file" mapstructure:"log_file" env:"NARRATE_LOG_FILE"`

	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Bundle BundleConfig `yaml:"bundle" mapstructure:"bundle"`
}

// EngineConfig locates and paces the speech engine. Empty paths are searched
// for.
type EngineConfig struct {
	Binary        string `yaml:"binary" mapstructure:"binary" env:"NARRATE_ENGINE_BINARY"`
	ModelsDir     string `yaml:"models_dir" mapstructure:"models_dir" env:"NARRATE_ENGINE_MODELS_DIR"`
	EspeakDataDir string `yaml:"espeak_data_dir" mapstructure:"espeak_data_dir" env:"NARRATE_ENGINE_ESPEAK_DATA_DIR"`

	// Extra arguments, shell quoted, inserted before the text.
	ExtraArgs string `yaml:"extra_args" mapstructure:"extra_args" env:"NARRATE_ENGINE_EXTRA_ARGS"`

	// Per invocation. Zero disables.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" env:"NARRATE_ENGINE_TIMEOUT"`

	// Invocations per second. Zero disables.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" env:"NARRATE_ENGINE_RATE_LIMIT"`
}

// CacheConfig selects the sentence cache.
type CacheConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend" env:"NARRATE_CACHE_BACKEND"`
	Dir      string `yaml:"dir" mapstructure:"dir" env:"NARRATE_CACHE_DIR"`
	MemoryMB int    `yaml:"memory_mb" mapstructure:"memory_mb" env:"NARRATE_CACHE_MEMORY_MB"`
}

// BundleConfig names the default bundle directory.
type BundleConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir" env:"NARRATE_BUNDLE_DIR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Voice:         engine.DefaultVoice,
		FallbackVoice: engine.FallbackVoice,
		Engine: EngineConfig{
			Timeout: 2 * time.Minute,
		},
		Cache: CacheConfig{
			Backend:  cache.BackendDisk,
			Dir:      defaultCacheDir(),
			MemoryMB: 64,
		},
	}
}

// SetDefaults registers every key of Default with v so that environment
// variables and `config show` see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("voice", d.Voice)
	v.SetDefault("fallback_voice", d.FallbackVoice)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("engine.binary", d.Engine.Binary)
	v.SetDefault("engine.models_dir", d.Engine.ModelsDir)
	v.SetDefault("engine.espeak_data_dir", d.Engine.EspeakDataDir)
	v.SetDefault("engine.extra_args", d.Engine.ExtraArgs)
	v.SetDefault("engine.timeout", d.Engine.Timeout)
	v.SetDefault("engine.rate_limit", d.Engine.RateLimit)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("bundle.dir", d.Bundle.Dir)
}

// Load builds the effective configuration from v, applies environment
// overrides, expands ~ in paths and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse configuration: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse environment: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case cache.BackendDisk, cache.BackendSQLite:
	default:
		return fmt.Errorf("unknown cache backend %q: use %q or %q", c.Cache.Backend, cache.BackendDisk, cache.BackendSQLite)
	}
	if c.Cache.Dir == "" {
		return errors.New("cache directory not set")
	}
	if c.Cache.MemoryMB < 0 {
		return fmt.Errorf("cache memory_mb must not be negative, got %d", c.Cache.MemoryMB)
	}
	if c.Engine.RateLimit < 0 {
		return fmt.Errorf("engine rate_limit must not be negative, got %v", c.Engine.RateLimit)
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine timeout must not be negative, got %v", c.Engine.Timeout)
	}
	return nil
}

// Voices returns the voice policy.
func (c *Config) Voices() engine.Voices {
	return engine.Voices{Primary: c.Voice, Fallback: c.FallbackVoice}
}

// Resolver returns the engine search configuration.
func (c *Config) Resolver() engine.Resolver {
	return engine.Resolver{
		Binary:     c.Engine.Binary,
		ModelsDir:  c.Engine.ModelsDir,
		EspeakData: c.Engine.EspeakDataDir,
	}
}

// Limiter returns the engine rate limiter, or nil when unlimited.
func (c EngineConfig) Limiter() *rate.Limiter {
	if c.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RateLimit), 1)
}

// MemoryBytes is the in-process cache size in bytes.
func (c CacheConfig) MemoryBytes() int64 {
	return int64(c.MemoryMB) << 20
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.LogFile,
		&c.Engine.Binary,
		&c.Engine.ModelsDir,
		&c.Engine.EspeakDataDir,
		&c.Cache.Dir,
		&c.Bundle.Dir,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("unable to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

func defaultCacheDir() string {
	dir, err := gap.NewScope(gap.User, AppName).CacheDir()
	if err != nil {
		return ""
	}
	return dir
}
