// Package bundle stores fully narrated texts, keyed by a hash of the whole
// text, as a canonical WAVE file plus a sidecar word timing file. Bundles are
// produced by export runs and shipped alongside course content so playback
// never needs the speech engine.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/timeline"
	"github.com/dgnsrekt/narrate/internal/wav"
)

// File extensions of a bundle pair.
const (
	ExtAudio   = ".wav"
	ExtTimings = ".timings"
)

// Audio is a bundle read back from disk.
type Audio struct {
	WAV        []byte
	Timings    []timeline.Timing
	DurationMS float64
}

// Store reads and writes bundles in one directory.
type Store struct {
	Dir string
}

// New returns a Store for dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Get returns the bundle for key. Both files must exist, every timing line
// with four columns must parse, and the WAVE file must carry fmt and data
// chunks; anything else is a miss. Duration is derived from the data chunk.
func (s *Store) Get(key cache.Key) (*Audio, bool) {
	audio, err := os.ReadFile(s.path(key, ExtAudio))
	if err != nil {
		return nil, false
	}
	raw, err := os.ReadFile(s.path(key, ExtTimings))
	if err != nil {
		return nil, false
	}
	timings, err := ParseTimings(string(raw))
	if err != nil {
		return nil, false
	}
	f, data, err := wav.ParseChunks(audio)
	if err != nil {
		return nil, false
	}
	return &Audio{
		WAV:        audio,
		Timings:    timings,
		DurationMS: wav.DurationMS(len(data), f.SampleRate),
	}, true
}

// Has reports whether the WAVE file for key exists.
func (s *Store) Has(key cache.Key) bool {
	_, err := os.Stat(s.path(key, ExtAudio))
	return err == nil
}

// Put writes the WAVE file and timing sidecar for key, creating the
// directory when needed.
func (s *Store) Put(key cache.Key, audio []byte, timings []timeline.Timing) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("unable to create bundle dir: %w", err)
	}
	if err := os.WriteFile(s.path(key, ExtTimings), []byte(FormatTimings(timings)), 0o644); err != nil {
		return fmt.Errorf("unable to write timings: %w", err)
	}
	if err := os.WriteFile(s.path(key, ExtAudio), audio, 0o644); err != nil {
		return fmt.Errorf("unable to write audio: %w", err)
	}
	return nil
}

func (s *Store) path(key cache.Key, ext string) string {
	return filepath.Join(s.Dir, key.String()+ext)
}

// FormatTimings renders one "index\toffset\tstart\tend" line per timing, with
// millisecond values in their shortest decimal form.
func FormatTimings(timings []timeline.Timing) string {
	var sb strings.Builder
	for _, t := range timings {
		sb.WriteString(strconv.Itoa(t.WordIndex))
		sb.WriteByte('\t')
		sb.WriteString(strconv.Itoa(t.CharOffset))
		sb.WriteByte('\t')
		sb.WriteString(strconv.FormatFloat(t.StartMS, 'f', -1, 64))
		sb.WriteByte('\t')
		sb.WriteString(strconv.FormatFloat(t.EndMS, 'f', -1, 64))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseTimings is the inverse of FormatTimings. Lines with fewer than four
// columns are skipped; a malformed number fails the whole file.
func ParseTimings(s string) ([]timeline.Timing, error) {
	var out []timeline.Timing
	for n, line := range strings.Split(s, "\n") {
		cols := strings.Split(strings.TrimSuffix(line, "\r"), "\t")
		if len(cols) < 4 {
			continue
		}
		var (
			t   timeline.Timing
			err error
		)
		if t.WordIndex, err = parseIndex(cols[0]); err != nil {
			return nil, fmt.Errorf("line %d: word index: %w", n+1, err)
		}
		if t.CharOffset, err = parseIndex(cols[1]); err != nil {
			return nil, fmt.Errorf("line %d: char offset: %w", n+1, err)
		}
		if t.StartMS, err = strconv.ParseFloat(cols[2], 64); err != nil {
			return nil, fmt.Errorf("line %d: start: %w", n+1, err)
		}
		if t.EndMS, err = strconv.ParseFloat(cols[3], 64); err != nil {
			return nil, fmt.Errorf("line %d: end: %w", n+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseIndex(s string) (int, error) {
	v, err := strconv.ParseUint(s, 10, 0)
	return int(v), err
}
