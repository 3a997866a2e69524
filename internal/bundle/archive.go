package bundle

import (
	"archive/tar"
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/dgnsrekt/narrate/internal/cache"
)

// ManifestName is the first archive member, listing a blake3 digest per file.
const ManifestName = "MANIFEST"

// ErrChecksum is returned when an archive member does not match its manifest
// digest.
var ErrChecksum = errors.New("bundle checksum mismatch")

// Pack writes every bundle file in dir to w as a zstd-compressed tar archive
// led by a manifest, returning the number of bundles written.
func Pack(dir string, w io.Writer, level int) (int, error) {
	names, err := bundleFiles(dir)
	if err != nil {
		return 0, err
	}

	digests := make(map[string]string, len(names))
	for _, name := range names {
		d, err := digestFile(filepath.Join(dir, name))
		if err != nil {
			return 0, err
		}
		digests[name] = d
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	tw := tar.NewWriter(zw)

	var manifest bytes.Buffer
	for _, name := range names {
		fmt.Fprintf(&manifest, "%s  %s\n", digests[name], name)
	}
	now := time.Now()
	if err := writeMember(tw, ManifestName, int64(manifest.Len()), now, &manifest); err != nil {
		return 0, err
	}

	count := 0
	for _, name := range names {
		if err := copyMember(tw, dir, name, now); err != nil {
			return 0, err
		}
		if filepath.Ext(name) == ExtAudio {
			count++
		}
	}

	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("unable to finish archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("unable to finish compression: %w", err)
	}
	return count, nil
}

// Unpack extracts an archive written by Pack into dir, verifying every member
// against the manifest before it is written. It returns the number of bundles
// extracted.
func Unpack(r io.Reader, dir string) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer zr.Close()
	tr := tar.NewReader(zr)

	hdr, err := tr.Next()
	if err != nil {
		return 0, fmt.Errorf("unable to read archive: %w", err)
	}
	if hdr.Name != ManifestName {
		return 0, fmt.Errorf("archive does not start with %s", ManifestName)
	}
	manifest, err := parseManifest(tr)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("unable to create bundle dir: %w", err)
	}

	count := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("unable to read archive: %w", err)
		}
		name := hdr.Name
		if !isBundleFile(name) {
			return count, fmt.Errorf("unexpected archive member %q", name)
		}
		want, ok := manifest[name]
		if !ok {
			return count, fmt.Errorf("archive member %q missing from manifest", name)
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return count, fmt.Errorf("unable to read %s: %w", name, err)
		}
		if got := digest(data); got != want {
			return count, fmt.Errorf("%s: %w", name, ErrChecksum)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return count, fmt.Errorf("unable to write %s: %w", name, err)
		}
		delete(manifest, name)
		if filepath.Ext(name) == ExtAudio {
			count++
		}
	}

	if len(manifest) > 0 {
		return count, fmt.Errorf("archive is missing %d file(s) listed in the manifest", len(manifest))
	}
	return count, nil
}

// bundleFiles lists bundle files in dir in a stable order.
func bundleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read bundle dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isBundleFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// isBundleFile accepts "<16 hex digits>.wav" and "<16 hex digits>.timings".
func isBundleFile(name string) bool {
	if name != filepath.Base(name) {
		return false
	}
	ext := filepath.Ext(name)
	if ext != ExtAudio && ext != ExtTimings {
		return false
	}
	_, err := cache.ParseKey(strings.TrimSuffix(name, ext))
	return err == nil
}

func digest(b []byte) string {
	h := blake3.New(32, nil)
	_, _ = h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("calculating blake3 hash of %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func parseManifest(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		sum, name, ok := strings.Cut(line, "  ")
		if !ok || !isBundleFile(name) {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		out[name] = sum
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("unable to read manifest: %w", err)
	}
	return out, nil
}

func writeMember(tw *tar.Writer, name string, size int64, mod time.Time, r io.Reader) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    size,
		ModTime: mod,
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("unable to write %s header: %w", name, err)
	}
	if _, err := io.Copy(tw, r); err != nil {
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	return nil
}

func copyMember(tw *tar.Writer, dir, name string, mod time.Time) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return writeMember(tw, name, info.Size(), mod, f)
}
