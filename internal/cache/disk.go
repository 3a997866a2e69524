package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File extensions of the three artifacts stored per key.
const (
	extPCM       = ".pcm"
	extMeta      = ".meta"
	extAlignment = ".tsv"
)

// DiskStore keeps each entry as three sibling files named after the key:
// raw PCM, the decimal sample rate, and the alignment text.
type DiskStore struct {
	dir string
}

// NewDiskStore returns a store rooted at dir. The directory is created on the
// first Put.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the directory holding the cache files.
func (d *DiskStore) Dir() string { return d.dir }

// Get loads the entry for key. The PCM and sample-rate files are required; a
// missing alignment file reads as empty alignment.
func (d *DiskStore) Get(key Key) (*Entry, bool) {
	pcm, err := os.ReadFile(d.path(key, extPCM))
	if err != nil {
		return nil, false
	}
	meta, err := os.ReadFile(d.path(key, extMeta))
	if err != nil {
		return nil, false
	}
	rate, err := strconv.ParseUint(strings.TrimSpace(string(meta)), 10, 32)
	if err != nil {
		return nil, false
	}
	alignment, err := os.ReadFile(d.path(key, extAlignment))
	if err != nil {
		alignment = nil
	}
	return &Entry{PCM: pcm, SampleRate: uint32(rate), Alignment: string(alignment)}, true
}

// Put writes the entry. The PCM file is renamed into place last, so a reader
// that finds it also finds the metadata written alongside it.
func (d *DiskStore) Put(key Key, e *Entry) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("unable to create cache dir: %w", err)
	}
	if err := writeFile(d.path(key, extAlignment), []byte(e.Alignment)); err != nil {
		return err
	}
	if err := writeFile(d.path(key, extMeta), []byte(strconv.FormatUint(uint64(e.SampleRate), 10))); err != nil {
		return err
	}
	return writeFile(d.path(key, extPCM), e.PCM)
}

// Stats counts complete entries and the bytes of every cache artifact.
func (d *DiskStore) Stats() (Stats, error) {
	s := Stats{Backend: "disk", Location: d.dir}
	err := d.walk(func(name string, info fs.FileInfo) error {
		if strings.HasSuffix(name, extPCM) {
			s.Entries++
		}
		s.Bytes += info.Size()
		return nil
	})
	return s, err
}

// Clear removes every cache artifact, leaving unrelated files alone.
func (d *DiskStore) Clear() error {
	return d.walk(func(name string, _ fs.FileInfo) error {
		return os.Remove(filepath.Join(d.dir, name))
	})
}

// Close is a no-op; it satisfies Backend.
func (d *DiskStore) Close() error { return nil }

func (d *DiskStore) path(key Key, ext string) string {
	return filepath.Join(d.dir, key.String()+ext)
}

func (d *DiskStore) walk(fn func(name string, info fs.FileInfo) error) error {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to read cache dir: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() || !isArtifact(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if err := fn(de.Name(), info); err != nil {
			return err
		}
	}
	return nil
}

func isArtifact(name string) bool {
	ext := filepath.Ext(name)
	if ext != extPCM && ext != extMeta && ext != extAlignment {
		return false
	}
	_, err := ParseKey(strings.TrimSuffix(name, ext))
	return err == nil
}

// writeFile writes to a temp file in the target directory, then renames it
// over path.
func writeFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	_, err = f.Write(data)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return closeErr
	}
	return os.Rename(tmp, path)
}
