package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Warmup states.
const (
	StatusReady      = "ready"
	StatusDownloaded = "downloaded"
)

// Warmup makes sure the engine can run. With both model files already present
// it returns StatusReady without starting the engine; otherwise it runs the
// engine once, which fetches the models into the resolved directory, and
// returns StatusDownloaded.
func Warmup(ctx context.Context, opts KokoOptions) (string, error) {
	k, err := NewKoko(opts)
	if err != nil {
		return "", err
	}
	if k.Paths.HasModels() {
		return StatusReady, nil
	}

	out := filepath.Join(k.TempDir, fmt.Sprintf("narrate_tts_warmup_%d.wav", k.RunID))
	defer func() { _ = os.Remove(out) }()

	k.log.Info("Fetching speech models", "dir", k.Paths.ModelsDir)
	if err := k.run(ctx, k.args("", "ready", out)); err != nil {
		var ie *InvocationError
		if errors.As(err, &ie) {
			return "", fmt.Errorf("warmup failed: %w (model: %s, voices: %s)", err, k.Paths.Model(), k.Paths.VoiceData())
		}
		return "", err
	}
	return StatusDownloaded, nil
}
