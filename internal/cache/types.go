package cache

import "errors"

// ErrItemTooLarge is returned when an entry exceeds the memory cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// Entry is one synthesized sentence: mono 16-bit PCM, its sample rate and the
// engine's raw per-word alignment text (possibly empty).
type Entry struct {
	PCM        []byte
	SampleRate uint32
	Alignment  string
}

// Size is the number of bytes the entry occupies in memory.
func (e *Entry) Size() int64 {
	return int64(len(e.PCM) + len(e.Alignment))
}

// Store is a keyed sentence store. A miss is reported with ok == false and is
// never an error.
type Store interface {
	Get(key Key) (*Entry, bool)
	Put(key Key, entry *Entry) error
}

// Backend is a persistent Store that can report on and drop its contents.
type Backend interface {
	Store
	Stats() (Stats, error)
	Clear() error
	Close() error
}

// Stats describes the contents and effectiveness of a store.
type Stats struct {
	Backend  string
	Location string

	Entries int64
	Bytes   int64

	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate is hits over lookups, or zero before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
