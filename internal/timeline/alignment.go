package timeline

import (
	"strconv"
	"strings"
)

// AlignedWord is one row of engine alignment output, in seconds.
type AlignedWord struct {
	Word  string
	Start float64
	End   float64
}

// ParseAlignment reads tab-separated engine output with a header row and
// columns word, start seconds, end seconds. Rows with fewer than three columns
// and rows whose word is only ASCII punctuation are dropped. Unparseable times
// read as zero.
func ParseAlignment(tsv string) []AlignedWord {
	lines := strings.Split(tsv, "\n")
	if len(lines) <= 1 {
		return nil
	}

	var out []AlignedWord
	for _, line := range lines[1:] {
		cols := strings.Split(strings.TrimSuffix(line, "\r"), "\t")
		if len(cols) < 3 || isPunctuation(cols[0]) {
			continue
		}
		start, _ := strconv.ParseFloat(cols[1], 64)
		end, _ := strconv.ParseFloat(cols[2], 64)
		out = append(out, AlignedWord{Word: cols[0], Start: start, End: end})
	}
	return out
}

// isPunctuation reports whether every byte of word is ASCII punctuation. The
// empty word counts as punctuation.
func isPunctuation(word string) bool {
	for i := 0; i < len(word); i++ {
		c := word[i]
		if !(c >= '!' && c <= '/' || c >= ':' && c <= '@' || c >= '[' && c <= '`' || c >= '{' && c <= '~') {
			return false
		}
	}
	return true
}
