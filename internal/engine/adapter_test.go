package engine_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/engine"
	"github.com/dgnsrekt/narrate/internal/engine/mock"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestAdapterPrimaryVoice(t *testing.T) {
	m := mock.New()
	a := engine.NewAdapter(m.Factory(), engine.Voices{}, engine.WithLogger(quietLogger()))

	entry, err := a.Synthesize(context.Background(), "Hello world.", 0)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if entry.SampleRate != 24000 || len(entry.PCM) == 0 {
		t.Errorf("unexpected entry: rate=%d bytes=%d", entry.SampleRate, len(entry.PCM))
	}
	calls := m.Calls()
	if len(calls) != 1 || calls[0].Voice != engine.DefaultVoice {
		t.Errorf("calls = %+v, want one call with %s", calls, engine.DefaultVoice)
	}
}

func TestAdapterFallback(t *testing.T) {
	m := mock.New()
	m.FailVoice("primary", nil)
	a := engine.NewAdapter(m.Factory(), engine.Voices{Primary: "primary", Fallback: "backup"},
		engine.WithLogger(quietLogger()))

	if _, err := a.Synthesize(context.Background(), "Hello.", 3); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	calls := m.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[1].Voice != "backup" || calls[1].Index != 3 {
		t.Errorf("fallback call = %+v", calls[1])
	}
	if a.Invocations() != 2 {
		t.Errorf("Invocations() = %d, want 2", a.Invocations())
	}
}

func TestAdapterBothVoicesFail(t *testing.T) {
	errA := errors.New("primary broke")
	errB := errors.New("backup broke")
	m := mock.New()
	m.FailVoice("primary", errA)
	m.FailVoice("backup", errB)
	a := engine.NewAdapter(m.Factory(), engine.Voices{Primary: "primary", Fallback: "backup"},
		engine.WithLogger(quietLogger()))

	_, err := a.Synthesize(context.Background(), "Hello.", 0)
	var fe *engine.FallbackError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FallbackError", err)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("FallbackError should wrap both causes: %v", err)
	}
	if fe.PrimaryVoice != "primary" || fe.FallbackVoice != "backup" {
		t.Errorf("voices = %q/%q", fe.PrimaryVoice, fe.FallbackVoice)
	}
}

func TestAdapterSameVoiceNoRetry(t *testing.T) {
	m := mock.New()
	m.FailVoice("only", nil)
	a := engine.NewAdapter(m.Factory(), engine.Voices{Primary: "only", Fallback: "only"},
		engine.WithLogger(quietLogger()))

	_, err := a.Synthesize(context.Background(), "Hello.", 0)
	if !errors.Is(err, mock.ErrScripted) {
		t.Errorf("err = %v, want ErrScripted", err)
	}
	var fe *engine.FallbackError
	if errors.As(err, &fe) {
		t.Error("did not expect a FallbackError")
	}
	if m.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", m.CallCount())
	}
}

func TestAdapterLazyResolution(t *testing.T) {
	calls := 0
	errMissing := errors.New("no engine")
	factory := func(context.Context) (engine.Provider, error) {
		calls++
		return nil, errMissing
	}
	a := engine.NewAdapter(factory, engine.Voices{}, engine.WithLogger(quietLogger()))

	if a.Resolved() {
		t.Fatal("adapter resolved before first use")
	}
	for i := 0; i < 2; i++ {
		if _, err := a.Synthesize(context.Background(), "x", i); !errors.Is(err, errMissing) {
			t.Errorf("err = %v, want %v", err, errMissing)
		}
	}
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
	if !a.Resolved() {
		t.Error("Resolved() = false after use")
	}
}

type stubProvider struct {
	out *engine.Output
}

func (s stubProvider) Synthesize(context.Context, engine.Request) (*engine.Output, error) {
	return s.out, nil
}

func TestAdapterBadOutput(t *testing.T) {
	tests := []struct {
		name string
		out  *engine.Output
		want error
	}{
		{name: "nil output", out: nil, want: engine.ErrEmptyAudio},
		{name: "empty wav", out: &engine.Output{}, want: engine.ErrEmptyAudio},
		{name: "garbage", out: &engine.Output{WAV: []byte("not a wave file at all, really not")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := func(context.Context) (engine.Provider, error) { return stubProvider{tt.out}, nil }
			a := engine.NewAdapter(factory, engine.Voices{Primary: "v", Fallback: "v"},
				engine.WithLogger(quietLogger()))

			_, err := a.Synthesize(context.Background(), "x", 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	re := &engine.ResolveError{What: "speech engine binary", Searched: []string{"/a/koko", "/b/koko"}}
	if got, want := re.Error(), "speech engine binary not found. Searched: /a/koko, /b/koko"; got != want {
		t.Errorf("ResolveError = %q, want %q", got, want)
	}

	fe := &engine.FallbackError{
		PrimaryVoice: "a", FallbackVoice: "b",
		Primary: errors.New("x"), Fallback: errors.New("y"),
	}
	if got, want := fe.Error(), `engine failed for voice "a": x. Fallback "b" also failed: y`; got != want {
		t.Errorf("FallbackError = %q, want %q", got, want)
	}
}
