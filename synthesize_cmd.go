package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	synthOut       string
	synthBundleDir string

	synthesizeCmd = &cobra.Command{
		Use:     "synthesize [TEXT|-]",
		Aliases: []string{"say"},
		Short:   "Narrate text and print the event stream",
		Long: paragraph(fmt.Sprintf("\n%s text and print one JSON event per line: a wordBoundary event per word, then one audioReady event carrying the base64 WAVE file. Reads stdin when TEXT is - or omitted.", keyword("Narrate"))),
		Example: paragraph("narrate synthesize \"Hello world. How are you?\"\necho \"Hello.\" | narrate synthesize --out hello.wav"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args)
			if err != nil {
				return err
			}

			store, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			nr, err := newNarrator(store).Render(cmd.Context(), text, bundleDirOr(synthBundleDir))
			if err != nil {
				return err
			}

			if synthOut != "" {
				if err := os.WriteFile(synthOut, nr.WAV, 0o644); err != nil { //nolint:gosec
					return fmt.Errorf("unable to write audio: %w", err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range nr.Events() {
				if err := enc.Encode(ev); err != nil {
					return fmt.Errorf("unable to write event: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	synthesizeCmd.Flags().StringVarP(&synthOut, "out", "o", "", "also write the WAVE file here")
	synthesizeCmd.Flags().StringVar(&synthBundleDir, "bundle-dir", "", "check this bundle directory first (default from config)")
}

// readText returns the single argument, or stdin for "-" or no argument.
func readText(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	if len(args) == 0 {
		if yes, err := stdinIsPipe(); err != nil {
			return "", err
		} else if !yes {
			return "", errors.New("no text given: pass TEXT or pipe it on stdin")
		}
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read from stdin: %w", err)
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}
