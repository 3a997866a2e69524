// Package mock provides a scripted speech engine for testing.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/dgnsrekt/narrate/internal/engine"
	"github.com/dgnsrekt/narrate/internal/wav"
)

// ErrScripted is the default failure for voices marked as failing.
var ErrScripted = errors.New("mock engine failure")

// Engine implements engine.Provider. Each call returns silence whose length
// grows with the sentence, plus any alignment scripted for that text.
type Engine struct {
	// SampleRate of the generated audio. Defaults to 24000.
	SampleRate uint32
	// MSPerChar sets the generated duration. Defaults to 40.
	MSPerChar int

	mu         sync.Mutex
	alignments map[string]string
	failures   map[string]error
	calls      []engine.Request
}

// New creates a mock engine.
func New() *Engine {
	return &Engine{
		SampleRate: 24000,
		MSPerChar:  40,
		alignments: make(map[string]string),
		failures:   make(map[string]error),
	}
}

// SetAlignment scripts the alignment text returned for a sentence.
func (e *Engine) SetAlignment(text, tsv string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alignments[text] = tsv
}

// FailVoice makes every call with voice fail with err, or ErrScripted when
// err is nil.
func (e *Engine) FailVoice(voice string, err error) {
	if err == nil {
		err = ErrScripted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[voice] = err
}

// Calls returns a copy of the requests seen so far.
func (e *Engine) Calls() []engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.Request(nil), e.calls...)
}

// CallCount returns the number of calls.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Factory returns an engine.Factory that always yields e.
func (e *Engine) Factory() engine.Factory {
	return func(context.Context) (engine.Provider, error) { return e, nil }
}

// Synthesize implements engine.Provider.
func (e *Engine) Synthesize(ctx context.Context, req engine.Request) (*engine.Output, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	failure := e.failures[req.Voice]
	alignment := e.alignments[req.Text]
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}

	ms := len(req.Text) * e.MSPerChar
	samples := int(e.SampleRate) * ms / 1000
	return &engine.Output{
		WAV:       wav.Encode(make([]byte, samples*2), e.SampleRate),
		Alignment: alignment,
	}, nil
}
