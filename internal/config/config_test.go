package config

import (
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

func newViper(t *testing.T, yml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yml)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	return v
}

func TestDefault(t *testing.T) {
	cfg := Default()
	cfg.Cache.Dir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
	if cfg.Voice != "am_michael" || cfg.FallbackVoice != "bf_emma" {
		t.Errorf("voices = %q/%q", cfg.Voice, cfg.FallbackVoice)
	}
	if cfg.Engine.Limiter() != nil {
		t.Error("default limiter should be nil")
	}
}

func TestLoadFile(t *testing.T) {
	v := newViper(t, `
voice: af_sky
engine:
  binary: /opt/koko/koko
  extra_args: "--speed 1.2"
  timeout: 45s
  rate_limit: 2.5
cache:
  backend: sqlite
  dir: /tmp/narrate-cache
  memory_mb: 8
bundle:
  dir: ~/bundles
`)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Voice != "af_sky" {
		t.Errorf("Voice = %q", cfg.Voice)
	}
	if cfg.FallbackVoice != "bf_emma" {
		t.Errorf("FallbackVoice = %q, want default", cfg.FallbackVoice)
	}
	if cfg.Engine.Binary != "/opt/koko/koko" || cfg.Engine.ExtraArgs != "--speed 1.2" {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Engine.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v", cfg.Engine.Timeout)
	}
	if cfg.Engine.Limiter() == nil {
		t.Error("expected a limiter")
	}
	if cfg.Cache.Backend != "sqlite" || cfg.Cache.MemoryBytes() != 8<<20 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	want, _ := homedir.Expand("~/bundles")
	if cfg.Bundle.Dir != want {
		t.Errorf("Bundle.Dir = %q, want %q", cfg.Bundle.Dir, want)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NARRATE_TTS_VOICE", "bm_george")
	t.Setenv("NARRATE_CACHE_MEMORY_MB", "0")
	v := newViper(t, "voice: af_sky\ncache:\n  dir: /tmp/c\n")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Voice != "bm_george" {
		t.Errorf("Voice = %q, want env override", cfg.Voice)
	}
	if cfg.Cache.MemoryMB != 0 {
		t.Errorf("MemoryMB = %d, want 0", cfg.Cache.MemoryMB)
	}
	if got := cfg.Voices(); got.Primary != "bm_george" || got.Fallback != "bf_emma" {
		t.Errorf("Voices() = %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "sqlite", mutate: func(c *Config) { c.Cache.Backend = "sqlite" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "redis" }, wantErr: "unknown cache backend"},
		{name: "no cache dir", mutate: func(c *Config) { c.Cache.Dir = "" }, wantErr: "cache directory"},
		{name: "negative memory", mutate: func(c *Config) { c.Cache.MemoryMB = -1 }, wantErr: "memory_mb"},
		{name: "negative rate", mutate: func(c *Config) { c.Engine.RateLimit = -1 }, wantErr: "rate_limit"},
		{name: "negative timeout", mutate: func(c *Config) { c.Engine.Timeout = -time.Second }, wantErr: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Cache.Dir = "/tmp/cache"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
