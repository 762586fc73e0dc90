package session_test

import (
	"testing"

	"github.com/kbukum/scribe/session"
	"github.com/kbukum/scribe/session/sessiontest"
)

func TestMemoryRegistry(t *testing.T) {
	sessiontest.Run(t, func(_ *testing.T, opts ...session.Option) session.Registry {
		return session.NewMemoryRegistry(opts...)
	})
}

func TestSessionClone(t *testing.T) {
	s := &session.Session{ID: "a", Chunks: []string{"a/0.webm"}}
	c := s.Clone()
	c.Chunks[0] = "changed"
	if s.Chunks[0] != "a/0.webm" {
		t.Fatal("Clone shares chunk storage")
	}
	if empty := (&session.Session{}).Clone(); empty.Chunks == nil {
		t.Fatal("Clone of nil chunks should be an empty slice")
	}
}
