// Package timeline reassembles independently synthesized sentences into one
// audio track and maps per-sentence word timings onto the words of the
// original text.
package timeline

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/sentence"
	"github.com/dgnsrekt/narrate/internal/wav"
)

// DefaultSampleRate is reported when no sentence produced audio.
const DefaultSampleRate uint32 = 24000

// ErrNoAudio is returned when every sentence came back empty.
var ErrNoAudio = errors.New("no audio produced for any sentence")

// InputWord is a whitespace-delimited token of the original text, numbered
// from zero across the whole text.
type InputWord struct {
	Index  int
	Offset int
}

// Timing places one word of the original text on the stitched track.
type Timing struct {
	WordIndex  int
	CharOffset int
	StartMS    float64
	EndMS      float64
}

// Result is the stitched audio and its word timeline.
type Result struct {
	PCM        []byte
	SampleRate uint32
	Timings    []Timing
	DurationMS float64
}

// InputWords tokenizes text on Unicode whitespace, recording byte offsets.
func InputWords(text string) []InputWord {
	var (
		words []InputWord
		start = -1
	)
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, InputWord{Index: len(words), Offset: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, InputWord{Index: len(words), Offset: start})
	}
	return words
}

// WordAt returns the whitespace-delimited token beginning at offset, or ""
// when offset is outside text or splits a rune.
func WordAt(text string, offset int) string {
	if offset < 0 || offset >= len(text) || !utf8.RuneStart(text[offset]) {
		return ""
	}
	rest := strings.TrimLeftFunc(text[offset:], unicode.IsSpace)
	if end := strings.IndexFunc(rest, unicode.IsSpace); end >= 0 {
		return rest[:end]
	}
	return rest
}

// Options selects stitching behaviour beyond the defaults.
type Options struct {
	// InterpolateUncovered spreads words that have no alignment row evenly
	// over the time after the last row. By default they get no timing.
	InterpolateUncovered bool
	// Resample converts sentences at a different rate to the output rate.
	// By default PCM is concatenated as is and each sentence's duration is
	// computed from its own rate.
	Resample bool
}

// Stitch concatenates the sentence audio in order and builds the global word
// timeline with default Options. entries[i] holds the synthesized audio of
// sentences[i]; a nil entry contributes neither audio nor timings.
//
// The first non-nil entry fixes the output sample rate. Sentence durations
// always come from PCM length. Alignment rows are matched to the sentence's
// words by position and words beyond the last row get no timing; a sentence
// without rows spreads all its words evenly over its duration. Emitted
// timings never move backwards and never end before they start.
func Stitch(text string, sentences []sentence.Sentence, entries []*cache.Entry) (*Result, error) {
	return StitchWith(text, sentences, entries, Options{})
}

// StitchWith is Stitch with explicit options.
func StitchWith(text string, sentences []sentence.Sentence, entries []*cache.Entry, opts Options) (*Result, error) {
	if len(sentences) != len(entries) {
		return nil, fmt.Errorf("stitch: %d sentences but %d results", len(sentences), len(entries))
	}

	res := &Result{SampleRate: DefaultSampleRate}
	for _, e := range entries {
		if e != nil {
			res.SampleRate = e.SampleRate
			break
		}
	}

	words := InputWords(text)
	b := builder{res: res}

	for i, s := range sentences {
		e := entries[i]
		if e == nil {
			continue
		}

		pcm, rate := e.PCM, e.SampleRate
		if opts.Resample && rate != res.SampleRate {
			pcm, rate = wav.Resample(pcm, rate, res.SampleRate), res.SampleRate
		}
		duration := wav.DurationMS(len(pcm), rate)

		local := wordsInSpan(words, s.Offset, s.End())
		rows := ParseAlignment(e.Alignment)

		if len(rows) == 0 {
			b.interpolate(local, 0, duration)
		} else {
			n := min(len(rows), len(local))
			for j := 0; j < n; j++ {
				b.emit(local[j], rows[j].Start*1000, rows[j].End*1000)
			}
			if opts.InterpolateUncovered && n < len(local) {
				from := rows[n-1].End * 1000
				b.interpolate(local[n:], from, max(duration, from))
			}
		}

		res.PCM = append(res.PCM, pcm...)
		b.offset += duration
	}

	if len(res.PCM) == 0 {
		return nil, ErrNoAudio
	}
	res.DurationMS = b.offset
	return res, nil
}

// builder accumulates timings against the running track offset.
type builder struct {
	res       *Result
	offset    float64
	lastStart float64
}

func (b *builder) emit(w InputWord, startMS, endMS float64) {
	start := max(startMS+b.offset, b.lastStart)
	end := max(endMS+b.offset, start)
	b.lastStart = start
	b.res.Timings = append(b.res.Timings, Timing{
		WordIndex:  w.Index,
		CharOffset: w.Offset,
		StartMS:    start,
		EndMS:      end,
	})
}

func (b *builder) interpolate(words []InputWord, fromMS, toMS float64) {
	count := float64(max(len(words), 1))
	span := toMS - fromMS
	for i, w := range words {
		b.emit(w, fromMS+float64(i)/count*span, fromMS+float64(i+1)/count*span)
	}
}

func wordsInSpan(words []InputWord, start, end int) []InputWord {
	var out []InputWord
	for _, w := range words {
		if w.Offset >= start && w.Offset < end {
			out = append(out, w)
		}
	}
	return out
}
