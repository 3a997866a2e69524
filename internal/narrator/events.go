package narrator

// Event names sent to a Sink.
const (
	EventWordBoundary = "wordBoundary"
	EventAudioReady   = "audioReady"
)

// Event is one caller-facing notification. It encodes as
// {"event": "...", "data": {...}}.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WordBoundary places one word of the request text on the audio track.
type WordBoundary struct {
	Word       string  `json:"word"`
	WordIndex  int     `json:"wordIndex"`
	CharOffset int     `json:"charOffset"`
	StartMS    float64 `json:"startMs"`
	EndMS      float64 `json:"endMs"`
}

// AudioReady carries the finished WAVE file.
type AudioReady struct {
	AudioBase64 string  `json:"audioBase64"`
	DurationMS  float64 `json:"durationMs"`
}

// Sink receives events in order. Every word boundary of a request is sent
// before its single audio-ready event.
type Sink func(Event)
