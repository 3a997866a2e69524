package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/internal/narrator"
)

var (
	exportBundleDir string
	exportWatch     bool

	exportCmd = &cobra.Command{
		Use:   "export FILE...",
		Short: "Pre-render texts into a bundle directory",
		Long: paragraph(fmt.Sprintf("\n%s every text into the bundle directory so playback never needs the engine. A .json file holds an array of texts; any other file is one text. Texts that already have a bundle are skipped.", keyword("Export"))),
		Example: paragraph("narrate export lessons.json --bundle-dir course/audio\nnarrate export intro.txt --watch"),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := bundleDirOr(exportBundleDir)
			if dir == "" {
				return errors.New("no bundle directory: pass --bundle-dir or set bundle.dir")
			}

			store, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck
			n := newNarrator(store)

			for _, file := range args {
				if err := exportFile(cmd.Context(), cmd.OutOrStdout(), n, file, dir); err != nil {
					return err
				}
			}
			if !exportWatch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchExports(ctx, cmd.OutOrStdout(), n, args, dir)
		},
	}
)

func init() {
	exportCmd.Flags().StringVar(&exportBundleDir, "bundle-dir", "", "bundle directory (default from config)")
	exportCmd.Flags().BoolVarP(&exportWatch, "watch", "w", false, "re-export files when they change")
}

func exportFile(ctx context.Context, w io.Writer, n *narrator.Narrator, file, dir string) error {
	texts, err := readTexts(file)
	if err != nil {
		return err
	}
	count, err := n.Export(ctx, texts, dir)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	fmt.Fprintf(w, "%s: exported %d of %d\n", file, count, len(texts))
	return nil
}

// readTexts loads the texts of one export file.
func readTexts(file string) ([]string, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(file), ".json") {
		var texts []string
		if err := json.Unmarshal(b, &texts); err != nil {
			return nil, fmt.Errorf("%s: expected a JSON array of strings: %w", file, err)
		}
		return texts, nil
	}
	return []string{strings.TrimSuffix(string(b), "\n")}, nil
}

// watchExports re-exports a file whenever it is written, until ctx ends.
func watchExports(ctx context.Context, w io.Writer, n *narrator.Narrator, files []string, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	watched := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("unable to get absolute path: %w", err)
		}
		watched[abs] = true
		// Watch the directory so editors that replace the file are seen.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("unable to watch %s: %w", f, err)
		}
	}
	log.Info("Watching for changes", "files", len(files))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[event.Name] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			if err := exportFile(ctx, w, n, event.Name, dir); err != nil {
				log.Error("Export failed", "file", event.Name, "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "error", err)
		}
	}
}
