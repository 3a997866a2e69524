package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-shellwords"
)

// EspeakEnv names the variable that points the engine at its phoneme data.
const EspeakEnv = "ESPEAK_DATA_PATH"

// Koko runs the kokoro command-line synthesizer once per sentence.
type Koko struct {
	Paths     Paths
	ExtraArgs []string
	TempDir   string
	// RunID keeps temp files of concurrent requests apart.
	RunID int64

	log *log.Logger
}

// KokoOptions configures NewKokoFactory.
type KokoOptions struct {
	Resolver  Resolver
	ExtraArgs string
	TempDir   string
	Logger    *log.Logger
}

// NewKokoFactory returns a Factory that resolves the engine paths and parses
// extra arguments when first called.
func NewKokoFactory(opts KokoOptions) Factory {
	return func(context.Context) (Provider, error) {
		return NewKoko(opts)
	}
}

// NewKoko resolves the engine and returns a ready provider.
func NewKoko(opts KokoOptions) (*Koko, error) {
	paths, err := opts.Resolver.Resolve()
	if err != nil {
		return nil, err
	}

	var extra []string
	if opts.ExtraArgs != "" {
		extra, err = shellwords.NewParser().Parse(opts.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("invalid engine extra args: %w", err)
		}
	}

	tmp := opts.TempDir
	if tmp == "" {
		tmp = os.TempDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	logger.Debug("Resolved speech engine",
		"binary", paths.Binary, "models", paths.ModelsDir, "espeak", paths.EspeakData)

	return &Koko{
		Paths:     paths,
		ExtraArgs: extra,
		TempDir:   tmp,
		RunID:     time.Now().UnixNano(),
		log:       logger,
	}, nil
}

// Synthesize runs the engine for one sentence. Both temp files are removed
// whatever the outcome.
func (k *Koko) Synthesize(ctx context.Context, req Request) (*Output, error) {
	base := filepath.Join(k.TempDir, fmt.Sprintf("narrate_tts_%d_%d", k.RunID, req.Index))
	wavPath, tsvPath := base+".wav", base+".tsv"
	defer func() {
		_ = os.Remove(wavPath)
		_ = os.Remove(tsvPath)
	}()

	if err := k.run(ctx, k.args(req.Voice, req.Text, wavPath)); err != nil {
		return nil, err
	}

	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read engine output: %w", err)
	}
	// No alignment file just means no word timings.
	alignment, _ := os.ReadFile(tsvPath)
	return &Output{WAV: audio, Alignment: string(alignment)}, nil
}

func (k *Koko) args(voice, text, out string) []string {
	args := []string{"-m", k.Paths.Model(), "-d", k.Paths.VoiceData()}
	if voice != "" {
		args = append(args, "-s", voice, "--timestamps")
	}
	args = append(args, "--mono")
	args = append(args, k.ExtraArgs...)
	return append(args, "text", text, "-o", out)
}

func (k *Koko) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, k.Paths.Binary, args...)
	if k.Paths.EspeakData != "" {
		cmd.Env = append(os.Environ(), EspeakEnv+"="+k.Paths.EspeakData)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	err := cmd.Wait()

	if ctx.Err() != nil {
		return fmt.Errorf("engine cancelled: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &InvocationError{
			Status: exitErr.ProcessState.String(),
			Stderr: stderr.String(),
			Stdout: stdout.String(),
		}
	}
	if err != nil {
		return fmt.Errorf("engine failed: %w", err)
	}
	return nil
}
