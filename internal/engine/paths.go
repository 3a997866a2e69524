package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	gap "github.com/muesli/go-app-paths"
)

// Engine executable and model file names.
const (
	BinaryName = "koko"
	ModelFile  = "kokoro-v1.0.onnx"
	VoicesFile = "voices-v1.0.bin"
)

// Paths locates the engine executable and its data.
type Paths struct {
	Binary     string
	ModelsDir  string
	EspeakData string
}

// Model returns the model file path.
func (p Paths) Model() string { return filepath.Join(p.ModelsDir, ModelFile) }

// VoiceData returns the voice data file path.
func (p Paths) VoiceData() string { return filepath.Join(p.ModelsDir, VoicesFile) }

// HasModels reports whether both model files are present.
func (p Paths) HasModels() bool { return hasModels(p.ModelsDir) }

// Resolver searches for the engine. Explicit settings win; otherwise the
// directory of the running executable is searched in the packaged layouts,
// then PATH (executable) or the per-user data directory (models).
type Resolver struct {
	Binary     string
	ModelsDir  string
	EspeakData string

	// ExeDir overrides the directory of the running executable.
	ExeDir string
	// DataDir overrides the per-user models directory.
	DataDir string
}

// Resolve returns the engine paths. The models directory always resolves:
// when no packaged copy exists the per-user directory is created so the
// engine can download into it.
func (r Resolver) Resolve() (Paths, error) {
	bin, err := r.binary()
	if err != nil {
		return Paths{}, err
	}
	models, err := r.modelsDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{Binary: bin, ModelsDir: models, EspeakData: r.espeakDir()}, nil
}

func (r Resolver) exeDir() string {
	if r.ExeDir != "" {
		return r.ExeDir
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func (r Resolver) binary() (string, error) {
	if r.Binary != "" {
		if isFile(r.Binary) {
			return r.Binary, nil
		}
		return "", &ResolveError{What: "speech engine binary", Searched: []string{r.Binary}}
	}

	suffix := ""
	if runtime.GOOS == "windows" {
		suffix = ".exe"
	}
	dir := r.exeDir()
	searched := []string{
		filepath.Join(dir, fmt.Sprintf("%s-%s-%s%s", BinaryName, runtime.GOOS, runtime.GOARCH, suffix)),
		filepath.Join(dir, BinaryName+suffix),
	}
	for _, c := range searched {
		if isFile(c) {
			return c, nil
		}
	}

	if p, err := exec.LookPath(BinaryName); err == nil {
		return p, nil
	}
	searched = append(searched, "$PATH/"+BinaryName)
	return "", &ResolveError{What: "speech engine binary", Searched: searched}
}

func (r Resolver) modelsDir() (string, error) {
	if r.ModelsDir != "" {
		if hasModels(r.ModelsDir) {
			return r.ModelsDir, nil
		}
		return "", &ResolveError{What: "speech models (" + ModelFile + ", " + VoicesFile + ")", Searched: []string{r.ModelsDir}}
	}

	dir := r.exeDir()
	for _, c := range []string{
		filepath.Join(filepath.Dir(dir), "Resources", "resources", "models"),
		filepath.Join(dir, "resources", "models"),
	} {
		if hasModels(c) {
			return c, nil
		}
	}

	data := r.DataDir
	if data == "" {
		p, err := gap.NewScope(gap.User, "narrate").DataPath("models")
		if err != nil {
			return "", fmt.Errorf("unable to locate data dir: %w", err)
		}
		data = p
	}
	if err := os.MkdirAll(data, 0o755); err != nil {
		return "", fmt.Errorf("unable to create models dir: %w", err)
	}
	return data, nil
}

func (r Resolver) espeakDir() string {
	if r.EspeakData != "" {
		return r.EspeakData
	}
	dir := r.exeDir()
	for _, c := range []string{
		filepath.Join(filepath.Dir(dir), "Resources", "resources", "piper", "espeak-ng-data"),
		filepath.Join(filepath.Dir(dir), "Resources", "resources", "espeak-ng-data"),
		filepath.Join(dir, "resources", "piper", "espeak-ng-data"),
		filepath.Join(dir, "resources", "espeak-ng-data"),
	} {
		if isDir(c) {
			return c
		}
	}
	return ""
}

func hasModels(dir string) bool {
	return isFile(filepath.Join(dir, ModelFile)) && isFile(filepath.Join(dir, VoicesFile))
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}
