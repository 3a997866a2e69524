package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Key identifies a piece of text in the cache and bundle stores.
type Key uint64

// HashText derives a Key from the first eight bytes of the SHA-256 digest of
// text, read little-endian. The mapping is stable across builds and restarts.
func HashText(text string) Key {
	sum := sha256.Sum256([]byte(text))
	return Key(binary.LittleEndian.Uint64(sum[:8]))
}

// String renders the key as 16 lowercase hex digits, the form used in file
// names and database rows.
func (k Key) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	if len(s) != 16 {
		return 0, fmt.Errorf("invalid cache key %q: want 16 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cache key %q: %w", s, err)
	}
	return Key(v), nil
}
