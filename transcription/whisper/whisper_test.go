package whisper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kbukum/scribe/transcription"
)

func newTestServer(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	seen := &sync.Map{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /transcribe", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		seen.Store("filename", hdr.Filename)
		seen.Store("language", r.FormValue("language"))
		seen.Store("sample_rate", r.FormValue("sample_rate"))
		seen.Store("model", r.FormValue("model"))
		if string(data) == "bad" {
			http.Error(w, "cannot decode audio", http.StatusUnprocessableEntity)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     " hello there ",
			"language": "en",
			"segments": []map[string]any{{"text": "hello", "start": 0, "end": 1.5}, {"text": "there", "start": 1.5, "end": 2.25}},
		})
	})
	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-7", "status": "queued"})
	})
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "job-7" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "job-7", "status": "completed", "result": map[string]any{"text": "long text"},
		})
	})
	mux.HandleFunc("DELETE /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch id := r.PathValue("id"); id {
		case "gone":
			http.NotFound(w, r)
		case "finished":
			http.Error(w, "job already finished", http.StatusConflict)
		case "broken":
			http.Error(w, "boom", http.StatusBadRequest)
		default:
			seen.Store("deleted", id)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, seen
}

func load(m *sync.Map, k string) string {
	v, _ := m.Load(k)
	s, _ := v.(string)
	return s
}

func TestRecognize(t *testing.T) {
	srv, seen := newTestServer(t)
	p := NewProvider(Config{URL: srv.URL})

	resp, err := p.Recognize(context.Background(), transcription.Request{
		Locator: "sess/3.webm",
		Audio:   []byte("ok"),
		Config:  transcription.DefaultRecognitionConfig(),
	})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if resp.Text != "hello there" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Duration != 2.25 || len(resp.Segments) != 2 {
		t.Errorf("Duration = %v, segments = %d", resp.Duration, len(resp.Segments))
	}
	checks := map[string]string{"filename": "3.webm", "language": "en", "sample_rate": "16000", "model": "base"}
	for k, want := range checks {
		if got := load(seen, k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestRecognize_ErrorStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	p := NewProvider(Config{URL: srv.URL})
	_, err := p.Recognize(context.Background(), transcription.Request{Locator: "s/0.wav", Audio: []byte("bad")})
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("err = %v, want status 422", err)
	}
}

func TestJobs(t *testing.T) {
	srv, seen := newTestServer(t)
	p := NewProvider(Config{URL: srv.URL})
	ctx := context.Background()

	op, err := p.StartLongRunning(ctx, transcription.Request{Locator: "u/sessions/1-full-session.wav", Audio: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	if op.ID != "job-7" || op.State != transcription.OperationPending || op.Done() {
		t.Fatalf("op = %+v", op)
	}

	op, err = p.GetOperation(ctx, op.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !op.Done() || op.Result == nil || op.Result.Text != "long text" {
		t.Fatalf("op = %+v", op)
	}

	if _, err := p.GetOperation(ctx, "missing"); err == nil {
		t.Error("expected error for unknown job")
	}

	if err := p.CancelOperation(ctx, "job-7"); err != nil {
		t.Fatal(err)
	}
	if got := load(seen, "deleted"); got != "job-7" {
		t.Errorf("deleted = %q", got)
	}
}

func TestCancelOperation(t *testing.T) {
	srv, _ := newTestServer(t)
	p := NewProvider(Config{URL: srv.URL})

	tests := []struct {
		id      string
		wantErr bool
	}{
		{id: "job-7"},
		{id: "gone"},
		{id: "finished"},
		{id: "broken", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := p.CancelOperation(context.Background(), tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CancelOperation(%q) err = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestRecognize_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"text":"ok"}`)
	}))
	t.Cleanup(srv.Close)

	resp, err := NewProvider(Config{URL: srv.URL, Attempts: 3}).
		Recognize(context.Background(), transcription.Request{Locator: "s/0.wav", Audio: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "ok" || calls.Load() != 3 {
		t.Fatalf("text = %q after %d calls", resp.Text, calls.Load())
	}

	calls.Store(0)
	_, err = NewProvider(Config{URL: srv.URL}).
		Recognize(context.Background(), transcription.Request{Locator: "s/0.wav", Audio: []byte("x")})
	if err == nil || calls.Load() != 1 {
		t.Fatalf("without retries: err = %v after %d calls", err, calls.Load())
	}
}

func TestIsAvailable(t *testing.T) {
	srv, _ := newTestServer(t)
	if !NewProvider(Config{URL: srv.URL}).IsAvailable(context.Background()) {
		t.Error("expected available")
	}
	if NewProvider(Config{URL: "http://127.0.0.1:1"}).IsAvailable(context.Background()) {
		t.Error("expected unavailable")
	}
}

func TestRegistered(t *testing.T) {
	p, err := transcription.New(ProviderName, transcription.Options{Backend: Config{URL: "http://x"}})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != ProviderName {
		t.Errorf("Name = %q", p.Name())
	}
	if _, err := transcription.New(ProviderName, transcription.Options{Backend: 42}); err == nil {
		t.Error("expected config type error")
	}
}

func TestLanguage(t *testing.T) {
	for in, want := range map[string]string{"en-US": "en", "de": "de", "": "", "PT-br": "pt"} {
		if got := language(in); got != want {
			t.Errorf("language(%q) = %q, want %q", in, got, want)
		}
	}
}
