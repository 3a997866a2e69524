package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/wav"
)

// Adapter turns sentences into cache entries using a lazily built Provider.
// One Adapter serves one request or export batch; sentences are synthesized
// one at a time.
type Adapter struct {
	factory Factory
	voices  Voices
	limiter *rate.Limiter
	timeout time.Duration
	log     *log.Logger

	mu          sync.Mutex
	resolved    bool
	provider    Provider
	resolveErr  error
	invocations int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLimiter paces engine invocations.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *Adapter) { a.limiter = l }
}

// WithTimeout bounds each engine invocation. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// NewAdapter returns an Adapter that calls factory on first use.
func NewAdapter(factory Factory, voices Voices, opts ...Option) *Adapter {
	a := &Adapter{
		factory: factory,
		voices:  voices.withDefaults(),
		log:     log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Resolved reports whether the provider has been built (or failed to build).
func (a *Adapter) Resolved() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolved
}

// Invocations counts provider calls, including failed and fallback attempts.
func (a *Adapter) Invocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.invocations
}

// Synthesize speaks one sentence with the primary voice, retrying once with
// the fallback voice. The audio is decoded to mono 16-bit PCM.
func (a *Adapter) Synthesize(ctx context.Context, text string, index int) (*cache.Entry, error) {
	p, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}

	entry, primaryErr := a.synthesizeVoice(ctx, p, a.voices.Primary, text, index)
	if primaryErr == nil {
		return entry, nil
	}
	if a.voices.Fallback == a.voices.Primary {
		return nil, primaryErr
	}

	a.log.Warn("Primary voice failed, trying fallback",
		"voice", a.voices.Primary, "fallback", a.voices.Fallback, "sentence", index, "err", primaryErr)

	entry, fallbackErr := a.synthesizeVoice(ctx, p, a.voices.Fallback, text, index)
	if fallbackErr != nil {
		return nil, &FallbackError{
			PrimaryVoice:  a.voices.Primary,
			FallbackVoice: a.voices.Fallback,
			Primary:       primaryErr,
			Fallback:      fallbackErr,
		}
	}
	return entry, nil
}

func (a *Adapter) resolve(ctx context.Context) (Provider, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.resolved {
		a.provider, a.resolveErr = a.factory(ctx)
		a.resolved = true
		if a.resolveErr != nil {
			a.log.Error("Could not resolve speech engine", "err", a.resolveErr)
		}
	}
	return a.provider, a.resolveErr
}

func (a *Adapter) synthesizeVoice(ctx context.Context, p Provider, voice, text string, index int) (*cache.Entry, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	a.mu.Lock()
	a.invocations++
	a.mu.Unlock()

	start := time.Now()
	out, err := p.Synthesize(ctx, Request{Voice: voice, Text: text, Index: index})
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.WAV) == 0 {
		return nil, ErrEmptyAudio
	}

	pcm, sampleRate, err := wav.DecodeMono16(out.WAV)
	if err != nil {
		return nil, fmt.Errorf("unable to decode engine audio: %w", err)
	}

	a.log.Debug("Synthesized sentence",
		"sentence", index, "voice", voice, "bytes", len(pcm), "rate", sampleRate, "elapsed", time.Since(start))
	return &cache.Entry{PCM: pcm, SampleRate: sampleRate, Alignment: out.Alignment}, nil
}
