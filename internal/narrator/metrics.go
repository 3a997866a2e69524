package narrator

import (
	"time"

	"github.com/charmbracelet/log"
)

// Metrics describes the work done for one narration.
type Metrics struct {
	Key         string
	TextLength  int
	Bundled     bool
	Sentences   int
	CacheHits   int
	EngineCalls int
	DurationMS  float64
	Start       time.Time
	Elapsed     time.Duration
}

func newMetrics(key string, text string) *Metrics {
	return &Metrics{Key: key, TextLength: len(text), Start: time.Now()}
}

// end stamps the elapsed time and logs the outcome.
func (m *Metrics) end(logger *log.Logger, err error) {
	m.Elapsed = time.Since(m.Start)
	if err != nil {
		logger.Error("Narration failed",
			"key", m.Key,
			"sentences", m.Sentences,
			"elapsed", m.Elapsed,
			"err", err)
		return
	}
	logger.Info("Narration completed",
		"key", m.Key,
		"textLength", m.TextLength,
		"bundled", m.Bundled,
		"sentences", m.Sentences,
		"cacheHits", m.CacheHits,
		"engineCalls", m.EngineCalls,
		"durationMs", m.DurationMS,
		"elapsed", m.Elapsed)
}
