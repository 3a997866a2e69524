// Package engine drives the external speech synthesizer. A Provider turns one
// sentence into WAVE bytes plus optional alignment text; the Adapter resolves
// a provider lazily, applies the voice fallback policy and normalizes the
// audio into cache entries.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Built-in voices.
const (
	DefaultVoice  = "am_michael"
	FallbackVoice = "bf_emma"
)

// ErrEmptyAudio is returned when the engine exits cleanly without writing audio.
var ErrEmptyAudio = errors.New("engine produced no audio output")

// Request asks a provider to speak one sentence. Index is the sentence's
// position in the request and keeps temporary artifacts apart.
type Request struct {
	Voice string
	Text  string
	Index int
}

// Output is what a provider hands back: a WAVE buffer in any supported
// encoding and the raw alignment text, empty when the engine gave none.
type Output struct {
	WAV       []byte
	Alignment string
}

// Provider synthesizes speech.
type Provider interface {
	Synthesize(ctx context.Context, req Request) (*Output, error)
}

// Factory builds a Provider. It runs at most once per Adapter, on the first
// sentence that actually needs synthesis.
type Factory func(ctx context.Context) (Provider, error)

// Voices is the voice policy: Primary is tried first, Fallback once more when
// Primary fails and the two differ.
type Voices struct {
	Primary  string
	Fallback string
}

// withDefaults fills empty fields with the built-in voices.
func (v Voices) withDefaults() Voices {
	if v.Primary == "" {
		v.Primary = DefaultVoice
	}
	if v.Fallback == "" {
		v.Fallback = FallbackVoice
	}
	return v
}

// ResolveError reports a missing executable or data file with every location
// that was searched.
type ResolveError struct {
	What     string
	Searched []string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s not found. Searched: %s", e.What, strings.Join(e.Searched, ", "))
}

// InvocationError is a non-zero engine exit.
type InvocationError struct {
	Status string
	Stderr string
	Stdout string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("engine failed (%s): %s %s",
		e.Status, strings.TrimSpace(e.Stderr), strings.TrimSpace(e.Stdout))
}

// FallbackError carries both failures when the primary and fallback voices
// each failed.
type FallbackError struct {
	PrimaryVoice  string
	FallbackVoice string
	Primary       error
	Fallback      error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("engine failed for voice %q: %v. Fallback %q also failed: %v",
		e.PrimaryVoice, e.Primary, e.FallbackVoice, e.Fallback)
}

func (e *FallbackError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}
