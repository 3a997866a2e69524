package main

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/engine"
	"github.com/dgnsrekt/narrate/internal/narrator"
)

func openCache(ctx context.Context) (*cache.Tiered, error) {
	return cache.Open(ctx, cache.Options{
		Backend:     cfg.Cache.Backend,
		Dir:         cfg.Cache.Dir,
		MemoryBytes: cfg.Cache.MemoryBytes(),
		Logger:      log.Default().WithPrefix("cache"),
	})
}

func kokoOptions() engine.KokoOptions {
	return engine.KokoOptions{
		Resolver:  cfg.Resolver(),
		ExtraArgs: cfg.Engine.ExtraArgs,
		Logger:    log.Default().WithPrefix("engine"),
	}
}

func newNarrator(store cache.Store) *narrator.Narrator {
	opts := []engine.Option{engine.WithTimeout(cfg.Engine.Timeout)}
	if l := cfg.Engine.Limiter(); l != nil {
		opts = append(opts, engine.WithLimiter(l))
	}
	return narrator.New(store, engine.NewKokoFactory(kokoOptions()), cfg.Voices(),
		narrator.WithLogger(log.Default().WithPrefix("narrator")),
		narrator.WithEngineOptions(opts...),
	)
}

// bundleDirOr returns flag when set, otherwise the configured bundle dir.
func bundleDirOr(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Bundle.Dir
}
