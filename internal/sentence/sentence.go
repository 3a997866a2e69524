// Package sentence splits narration text into sentence-sized units that can
// be synthesized independently.
package sentence

import (
	"strings"
	"unicode"
)

// Sentence is a trimmed slice of the original text and the byte offset of its
// first non-space character in that text.
type Sentence struct {
	Offset int
	Text   string
}

// End returns the offset just past the sentence in the original text.
func (s Sentence) End() int {
	return s.Offset + len(s.Text)
}

// Split breaks text at runs of '.', '!' or '?' that are followed by ASCII
// whitespace or the end of the text. Whitespace after a boundary is skipped,
// and a non-empty remainder after the last boundary becomes the final
// sentence. Split never fails; empty or blank input yields no sentences.
func Split(text string) []Sentence {
	var (
		out   []Sentence
		start int
		i     int
	)
	for i < len(text) {
		if !isTerminal(text[i]) {
			i++
			continue
		}
		for i < len(text) && isTerminal(text[i]) {
			i++
		}
		if i < len(text) && !isASCIISpace(text[i]) {
			continue
		}
		out = appendTrimmed(out, text, start, i)
		for i < len(text) && isASCIISpace(text[i]) {
			i++
		}
		start = i
	}
	if start < len(text) {
		out = appendTrimmed(out, text, start, len(text))
	}
	return out
}

func appendTrimmed(out []Sentence, text string, from, to int) []Sentence {
	raw := text[from:to]
	lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return out
	}
	return append(out, Sentence{Offset: from + lead, Text: trimmed})
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// isASCIISpace matches space, tab, newline, form feed and carriage return.
func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}
