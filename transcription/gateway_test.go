package transcription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/transcription/transcriptiontest"
)

type audioMap map[string][]byte

func (a audioMap) GetObject(_ context.Context, p string) ([]byte, error) {
	b, ok := a[p]
	if !ok {
		return nil, apperrors.NotFound("object", p)
	}
	return b, nil
}

func newGateway(p transcription.Provider, audio audioMap, cfg transcription.Config) *transcription.Gateway {
	return transcription.NewGateway(p, audio, cfg, nil)
}

func TestTranscribeBatch_Separators(t *testing.T) {
	audio := audioMap{"s/0.webm": []byte("a"), "s/1.webm": []byte("b"), "s/2.webm": []byte("c")}
	p := transcriptiontest.NewProvider(map[string]string{"s/0.webm": "hello", "s/1.webm": "world", "s/2.webm": "again"})
	p.Fail("s/1.webm", nil)

	tests := []struct {
		name     string
		locators []string
		want     string
	}{
		{"empty", nil, ""},
		{"single", []string{"s/0.webm"}, "hello "},
		{"success then failure", []string{"s/0.webm", "s/1.webm"}, "hello\n [Transcription failed] "},
		{"three", []string{"s/0.webm", "s/2.webm", "s/0.webm"}, "hello\n again\n hello "},
		{"missing object", []string{"s/9.webm"}, "[Transcription failed] "},
	}
	gw := newGateway(p, audio, transcription.Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gw.TranscribeBatch(context.Background(), tt.locators)
			if err != nil {
				t.Fatalf("TranscribeBatch: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecognizeBatch_CountsFailures(t *testing.T) {
	audio := audioMap{"s/0.wav": nil, "s/1.wav": nil}
	p := transcriptiontest.NewProvider(nil)
	p.Fail("s/0.wav", nil)
	res, err := newGateway(p, audio, transcription.Config{}).RecognizeBatch(context.Background(), []string{"s/0.wav", "s/1.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if !errors.Is(res.Segments[0].Err, transcriptiontest.ErrScripted) {
		t.Errorf("segment 0 err = %v", res.Segments[0].Err)
	}
}

func TestTranscribeBatch_RecognitionConfigIsFixed(t *testing.T) {
	p := transcriptiontest.NewProvider(nil)
	var got transcription.Request
	p.Before = func(_ context.Context, req transcription.Request) error {
		got = req
		return nil
	}
	gw := newGateway(p, audioMap{"s/0.wav": []byte("x")}, transcription.Config{})
	if _, err := gw.TranscribeBatch(context.Background(), []string{"s/0.wav"}); err != nil {
		t.Fatal(err)
	}
	if got.Config != transcription.DefaultRecognitionConfig() {
		t.Errorf("config = %+v", got.Config)
	}
	if got.Config.SampleRateHertz != 16000 || got.Config.LanguageCode != "en-US" {
		t.Errorf("unexpected defaults %+v", got.Config)
	}
	if string(got.Audio) != "x" {
		t.Errorf("audio = %q", got.Audio)
	}
}

func TestTranscribeBatch_NoProvider(t *testing.T) {
	gw := newGateway(nil, audioMap{}, transcription.Config{})
	_, err := gw.TranscribeBatch(context.Background(), []string{"s/0.wav"})
	if !apperrors.HasCode(err, apperrors.ErrCodeTranscriptionFailed) {
		t.Fatalf("err = %v, want TRANSCRIPTION_FAILED", err)
	}
}

func TestTranscribeBatch_CancelledContext(t *testing.T) {
	gw := newGateway(transcriptiontest.NewProvider(nil), audioMap{"s/0.wav": nil}, transcription.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gw.TranscribeBatch(ctx, []string{"s/0.wav"}); !apperrors.HasCode(err, apperrors.ErrCodeTranscriptionFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestTranscribeBatch_OpenCircuitSkipsBackend(t *testing.T) {
	audio := audioMap{"s/0.wav": nil, "s/1.wav": nil, "s/2.wav": nil}
	p := transcriptiontest.NewProvider(nil)
	p.Fail("s/0.wav", nil)
	gw := newGateway(p, audio, transcription.Config{BreakerFailures: 1, BreakerCooldown: time.Hour})

	got, err := gw.TranscribeBatch(context.Background(), []string{"s/0.wav", "s/1.wav", "s/2.wav"})
	if err != nil {
		t.Fatal(err)
	}
	want := "[Transcription failed]\n [Transcription failed]\n [Transcription failed] "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if calls := p.Calls(); len(calls) != 1 {
		t.Errorf("backend called %d times, want 1", len(calls))
	}
}

func TestTranscribeBatch_SyncTimeout(t *testing.T) {
	p := transcriptiontest.NewProvider(nil)
	p.Before = func(ctx context.Context, _ transcription.Request) error {
		<-ctx.Done()
		return ctx.Err()
	}
	gw := newGateway(p, audioMap{"s/0.wav": nil}, transcription.Config{SyncTimeout: 10 * time.Millisecond})
	got, err := gw.TranscribeBatch(context.Background(), []string{"s/0.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if got != transcription.FailedSentinel+" " {
		t.Errorf("got %q", got)
	}
}

func TestTranscribeLongRunning(t *testing.T) {
	audio := audioMap{"u/sessions/1-full-session.wav": []byte("pcm")}

	t.Run("polls until done", func(t *testing.T) {
		p := transcriptiontest.NewLongRunning(map[string]string{"u/sessions/1-full-session.wav": "whole text"})
		p.PollsToFinish = 3
		gw := newGateway(p, audio, transcription.Config{PollInterval: time.Millisecond})
		got, err := gw.TranscribeLongRunning(context.Background(), "u/sessions/1-full-session.wav")
		if err != nil {
			t.Fatal(err)
		}
		if got != "whole text" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("timeout cancels remote job", func(t *testing.T) {
		p := transcriptiontest.NewLongRunning(nil)
		p.Hang = true
		gw := newGateway(p, audio, transcription.Config{PollInterval: time.Millisecond, LongRunningTimeout: 30 * time.Millisecond})
		_, err := gw.TranscribeLongRunning(context.Background(), "u/sessions/1-full-session.wav")
		if !apperrors.HasCode(err, apperrors.ErrCodeTranscriptionFailed) {
			t.Fatalf("err = %v", err)
		}
		if c := p.Cancelled(); len(c) != 1 || c[0] != "op-1" {
			t.Errorf("cancelled = %v, want [op-1]", c)
		}
	})

	t.Run("poll failure cancels remote job", func(t *testing.T) {
		p := transcriptiontest.NewLongRunning(nil)
		p.PollErr = errors.New("sidecar 502")
		gw := newGateway(p, audio, transcription.Config{PollInterval: time.Millisecond})
		_, err := gw.TranscribeLongRunning(context.Background(), "u/sessions/1-full-session.wav")
		if !apperrors.HasCode(err, apperrors.ErrCodeTranscriptionFailed) {
			t.Fatalf("err = %v", err)
		}
		if c := p.Cancelled(); len(c) != 1 || c[0] != "op-1" {
			t.Errorf("cancelled = %v, want [op-1]", c)
		}
	})

	t.Run("finished job is not cancelled", func(t *testing.T) {
		p := transcriptiontest.NewLongRunning(nil)
		p.Fail("u/sessions/1-full-session.wav", nil)
		gw := newGateway(p, audio, transcription.Config{PollInterval: time.Millisecond})
		if _, err := gw.TranscribeLongRunning(context.Background(), "u/sessions/1-full-session.wav"); err == nil {
			t.Fatal("expected error")
		}
		if c := p.Cancelled(); len(c) != 0 {
			t.Errorf("cancelled = %v, want none", c)
		}
	})

	t.Run("job failure", func(t *testing.T) {
		p := transcriptiontest.NewLongRunning(nil)
		p.Fail("u/sessions/1-full-session.wav", nil)
		gw := newGateway(p, audio, transcription.Config{PollInterval: time.Millisecond})
		if _, err := gw.TranscribeLongRunning(context.Background(), "u/sessions/1-full-session.wav"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("sync fallback", func(t *testing.T) {
		p := transcriptiontest.NewProvider(map[string]string{"u/sessions/1-full-session.wav": "sync"})
		gw := newGateway(p, audio, transcription.Config{})
		got, err := gw.TranscribeLongRunning(context.Background(), "u/sessions/1-full-session.wav")
		if err != nil || got != "sync" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("missing audio", func(t *testing.T) {
		gw := newGateway(transcriptiontest.NewLongRunning(nil), audio, transcription.Config{})
		if _, err := gw.TranscribeLongRunning(context.Background(), "nope.wav"); err == nil {
			t.Fatal("expected error")
		}
	})
}
