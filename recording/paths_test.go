package recording

import (
	"strings"
	"testing"
	"time"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"audio/webm", "webm"},
		{"audio/webm;codecs=opus", "webm"},
		{"AUDIO/WAV", "wav"},
		{"audio/x-wav", "wav"},
		{"audio/wave", "wav"},
		{"audio/ogg", "ogg"},
		{"audio/mpeg", "mp3"},
		{"audio/mp4", "m4a"},
		{"audio/flac", "flac"},
		{"audio/L16; rate=16000", "raw"},
		{"audio/aac", "aac"},
		{"application/octet-stream", "octet-stream"},
		{"garbage", "bin"},
		{"", "bin"},
		{"audio/../../etc", "bin"},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := Extension(tt.mime); got != tt.want {
				t.Errorf("Extension(%q) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	at := time.UnixMilli(1718000000123)
	if got := ChunkPath("s1", 4, "audio/webm"); got != "s1/4.webm" {
		t.Errorf("ChunkPath = %s", got)
	}
	if got := WholeFilePath("u1", at, "audio/wav"); got != "u1/sessions/1718000000123-full-session.wav" {
		t.Errorf("WholeFilePath = %s", got)
	}
	if got := TranscriptPath("s1"); got != "s1/transcript.txt" {
		t.Errorf("TranscriptPath = %s", got)
	}
}

func TestBelongsTo(t *testing.T) {
	tests := []struct {
		locator string
		want    bool
	}{
		{"s1/0.webm", true},
		{"s1/", false},
		{"s10/0.webm", false},
		{"s2/0.webm", false},
		{"s1/a/0.webm", false},
		{"s1/../s2/0.webm", false},
		{"0.webm", false},
	}
	for _, tt := range tests {
		if got := BelongsTo(tt.locator, "s1"); got != tt.want {
			t.Errorf("BelongsTo(%q) = %v, want %v", tt.locator, got, tt.want)
		}
	}
}

func TestChunkNumber(t *testing.T) {
	tests := []struct {
		locator string
		want    int
		ok      bool
	}{
		{"s1/0.webm", 0, true},
		{"s1/17.wav", 17, true},
		{"s1/17", 17, true},
		{"s1/transcript.txt", 0, false},
		{"s1/-1.wav", 0, false},
	}
	for _, tt := range tests {
		got, ok := ChunkNumber(tt.locator)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ChunkNumber(%q) = %d, %v", tt.locator, got, ok)
		}
	}
}

func TestOrder(t *testing.T) {
	in := []string{"s/10.webm", "s/2.webm", "s/x.webm", "s/0.webm"}
	if got := strings.Join(Order(in, OrderArrival), " "); got != strings.Join(in, " ") {
		t.Errorf("arrival = %s", got)
	}
	got := Order(in, OrderChunkNumber)
	if want := "s/0.webm s/2.webm s/10.webm s/x.webm"; strings.Join(got, " ") != want {
		t.Errorf("chunk_number = %v, want %s", got, want)
	}
	if in[0] != "s/10.webm" {
		t.Error("Order modified its input")
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.ChunkOrder != OrderArrival || cfg.MaxWholeFileBytes != DefaultMaxWholeFileBytes || cfg.AbandonAfter != 0 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.ChunkOrder = "random"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown chunk order")
	}
}

func TestSessionLocks_Released(t *testing.T) {
	l := newSessionLocks()
	st := l.acquire("a")
	st.completing = true
	l.release("a", st)
	if l.size() != 1 {
		t.Fatal("completing state dropped")
	}
	st = l.acquire("a")
	if !st.completing {
		t.Fatal("completing flag lost")
	}
	st.completing = false
	l.release("a", st)
	if l.size() != 0 {
		t.Fatalf("size = %d", l.size())
	}
}
