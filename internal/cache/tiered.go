package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// Backend names accepted by Open.
const (
	BackendDisk   = "disk"
	BackendSQLite = "sqlite"
)

// SQLiteFile is the database file name used by the sqlite backend inside the
// cache directory.
const SQLiteFile = "sentences.db"

// Options selects and sizes the store returned by Open.
type Options struct {
	Backend     string
	Dir         string
	MemoryBytes int64
	Logger      *log.Logger
}

// Tiered fronts a persistent Backend with an optional MemoryCache. Hits in the
// backend are promoted into memory; writes go to both.
type Tiered struct {
	memory  *MemoryCache
	backend Backend
	log     *log.Logger

	mu                      sync.Mutex
	memoryHits, backendHits int64
	misses, failedWrites    int64
}

// Open builds the configured backend and wraps it in a Tiered store.
func Open(ctx context.Context, opts Options) (*Tiered, error) {
	if opts.Dir == "" {
		return nil, errors.New("cache directory not set")
	}

	var (
		backend Backend
		err     error
	)
	switch opts.Backend {
	case "", BackendDisk:
		backend = NewDiskStore(opts.Dir)
	case BackendSQLite:
		backend, err = OpenSQLite(ctx, filepath.Join(opts.Dir, SQLiteFile))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}

	return NewTiered(backend, opts.MemoryBytes, opts.Logger), nil
}

// NewTiered wraps backend. A memoryBytes of zero disables the memory layer.
func NewTiered(backend Backend, memoryBytes int64, logger *log.Logger) *Tiered {
	if logger == nil {
		logger = log.Default()
	}
	t := &Tiered{backend: backend, log: logger}
	if memoryBytes > 0 {
		t.memory = NewMemoryCache(memoryBytes)
	}
	return t
}

// Get checks memory, then the backend.
func (t *Tiered) Get(key Key) (*Entry, bool) {
	if t.memory != nil {
		if e, ok := t.memory.Get(key); ok {
			t.count(&t.memoryHits)
			t.log.Debug("cache hit", "key", key, "level", "memory")
			return e, true
		}
	}

	e, ok := t.backend.Get(key)
	if !ok {
		t.count(&t.misses)
		t.log.Debug("cache miss", "key", key)
		return nil, false
	}

	t.count(&t.backendHits)
	t.log.Debug("cache hit", "key", key, "level", "backend")
	t.promote(key, e)
	return e, true
}

// Put stores the entry in memory and the backend. Only backend failures are
// reported.
func (t *Tiered) Put(key Key, e *Entry) error {
	t.promote(key, e)
	if err := t.backend.Put(key, e); err != nil {
		t.count(&t.failedWrites)
		return fmt.Errorf("cache write %s: %w", key, err)
	}
	return nil
}

// Stats merges backend contents with this process's lookup counters.
func (t *Tiered) Stats() (Stats, error) {
	s, err := t.backend.Stats()
	if err != nil {
		return s, err
	}
	t.mu.Lock()
	s.Hits = t.memoryHits + t.backendHits
	s.Misses = t.misses
	t.mu.Unlock()
	if t.memory != nil {
		s.Evictions = t.memory.Stats().Evictions
	}
	return s, nil
}

// Clear empties both layers.
func (t *Tiered) Clear() error {
	if t.memory != nil {
		t.memory.Clear()
	}
	return t.backend.Clear()
}

// Close releases the backend.
func (t *Tiered) Close() error {
	return t.backend.Close()
}

func (t *Tiered) promote(key Key, e *Entry) {
	if t.memory == nil {
		return
	}
	if err := t.memory.Put(key, e); err != nil && !errors.Is(err, ErrItemTooLarge) {
		t.log.Debug("memory cache put failed", "key", key, "err", err)
	}
}

func (t *Tiered) count(n *int64) {
	t.mu.Lock()
	*n++
	t.mu.Unlock()
}
