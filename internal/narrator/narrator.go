// Package narrator runs the narration pipeline: bundle lookup, sentence
// splitting, cached or synthesized sentence audio and timeline stitching. It
// delivers results as an ordered event stream or persists them as bundles.
package narrator

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/bundle"
	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/engine"
	"github.com/dgnsrekt/narrate/internal/sentence"
	"github.com/dgnsrekt/narrate/internal/timeline"
	"github.com/dgnsrekt/narrate/internal/wav"
)

// Narrator turns text into timed audio.
type Narrator struct {
	cache      cache.Store
	factory    engine.Factory
	voices     engine.Voices
	engineOpts []engine.Option
	log        *log.Logger
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(n *Narrator) { n.log = l }
}

// WithEngineOptions is applied to every Adapter the Narrator creates.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(n *Narrator) { n.engineOpts = append(n.engineOpts, opts...) }
}

// New returns a Narrator. store may be nil to disable sentence caching.
func New(store cache.Store, factory engine.Factory, voices engine.Voices, opts ...Option) *Narrator {
	n := &Narrator{
		cache:   store,
		factory: factory,
		voices:  voices,
		log:     log.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Narration is a finished narration.
type Narration struct {
	Text       string
	WAV        []byte
	Timings    []timeline.Timing
	DurationMS float64
	Metrics    *Metrics
}

// Events returns the caller-facing events for nr: one word boundary per
// timing, in order, then the audio-ready event.
func (nr *Narration) Events() []Event {
	events := make([]Event, 0, len(nr.Timings)+1)
	for _, t := range nr.Timings {
		events = append(events, Event{
			Event: EventWordBoundary,
			Data: WordBoundary{
				Word:       timeline.WordAt(nr.Text, t.CharOffset),
				WordIndex:  t.WordIndex,
				CharOffset: t.CharOffset,
				StartMS:    t.StartMS,
				EndMS:      t.EndMS,
			},
		})
	}
	return append(events, Event{
		Event: EventAudioReady,
		Data: AudioReady{
			AudioBase64: base64.StdEncoding.EncodeToString(nr.WAV),
			DurationMS:  nr.DurationMS,
		},
	})
}

// Synthesize narrates text and sends the events to sink. The whole narration
// is computed first, so on error sink receives nothing.
func (n *Narrator) Synthesize(ctx context.Context, text, bundleDir string, sink Sink) error {
	nr, err := n.Render(ctx, text, bundleDir)
	if err != nil {
		return err
	}
	for _, ev := range nr.Events() {
		sink(ev)
	}
	return nil
}

// Render narrates text. When bundleDir is set and holds a bundle for text it
// is returned without touching the cache or the engine.
func (n *Narrator) Render(ctx context.Context, text, bundleDir string) (*Narration, error) {
	key := cache.HashText(text)
	m := newMetrics(key.String(), text)

	if bundleDir != "" {
		if b, ok := bundle.New(bundleDir).Get(key); ok {
			m.Bundled = true
			m.DurationMS = b.DurationMS
			m.end(n.log, nil)
			return &Narration{Text: text, WAV: b.WAV, Timings: b.Timings, DurationMS: b.DurationMS, Metrics: m}, nil
		}
	}

	nr, err := n.render(ctx, n.newAdapter(), text, m)
	m.end(n.log, err)
	return nr, err
}

// Export narrates every text that has no bundle in bundleDir yet and writes
// the result there. It returns the number of texts narrated. One engine
// resolution is shared by the whole batch.
func (n *Narrator) Export(ctx context.Context, texts []string, bundleDir string) (int, error) {
	store := bundle.New(bundleDir)
	adapter := n.newAdapter()

	exported := 0
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return exported, err
		}

		key := cache.HashText(text)
		if store.Has(key) {
			n.log.Debug("Bundle exists, skipping", "key", key)
			continue
		}

		m := newMetrics(key.String(), text)
		nr, err := n.render(ctx, adapter, text, m)
		m.end(n.log, err)
		if err != nil {
			return exported, err
		}

		if err := store.Put(key, nr.WAV, nr.Timings); err != nil {
			n.log.Debug("Unable to write bundle", "key", key, "err", err)
		}
		exported++
	}
	return exported, nil
}

// Warmup delegates to engine.Warmup.
func (n *Narrator) Warmup(ctx context.Context, opts engine.KokoOptions) (string, error) {
	if opts.Logger == nil {
		opts.Logger = n.log
	}
	return engine.Warmup(ctx, opts)
}

func (n *Narrator) newAdapter() *engine.Adapter {
	opts := append([]engine.Option{engine.WithLogger(n.log)}, n.engineOpts...)
	return engine.NewAdapter(n.factory, n.voices, opts...)
}

func (n *Narrator) render(ctx context.Context, adapter *engine.Adapter, text string, m *Metrics) (*Narration, error) {
	sentences := sentence.Split(text)
	m.Sentences = len(sentences)

	entries := make([]*cache.Entry, len(sentences))
	for i, s := range sentences {
		e, err := n.sentenceAudio(ctx, adapter, s, i, m)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}
		entries[i] = e
	}

	res, err := timeline.Stitch(text, sentences, entries)
	if err != nil {
		return nil, err
	}
	m.DurationMS = res.DurationMS
	return &Narration{
		Text:       text,
		WAV:        wav.Encode(res.PCM, res.SampleRate),
		Timings:    res.Timings,
		DurationMS: res.DurationMS,
		Metrics:    m,
	}, nil
}

func (n *Narrator) sentenceAudio(ctx context.Context, adapter *engine.Adapter, s sentence.Sentence, index int, m *Metrics) (*cache.Entry, error) {
	key := cache.HashText(s.Text)
	if n.cache != nil {
		if e, ok := n.cache.Get(key); ok {
			m.CacheHits++
			return e, nil
		}
	}

	before := adapter.Invocations()
	e, err := adapter.Synthesize(ctx, s.Text, index)
	m.EngineCalls += adapter.Invocations() - before
	if err != nil {
		return nil, err
	}

	if n.cache != nil {
		if err := n.cache.Put(key, e); err != nil {
			n.log.Debug("Unable to cache sentence", "key", key, "err", err)
		}
	}
	return e, nil
}
