package recording

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

func TestReapAbandoned(t *testing.T) {
	h := newHarness(t, Config{AbandonAfter: 10 * time.Minute})
	ctx := context.Background()

	idle := h.start(t, "p", "alice")
	loc := h.upload(t, idle, "alice", 0)
	if _, err := h.svc.NotifyChunkUploaded(ctx, idle, "alice", loc, false); err != nil {
		t.Fatal(err)
	}
	done := h.start(t, "p", "bob")
	if _, err := h.svc.NotifyChunkUploaded(ctx, done, "bob", done+"/0.webm", true); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(9 * time.Minute)
	fresh := h.start(t, "p", "alice")
	h.clock.Advance(2 * time.Minute)

	n, err := h.svc.ReapAbandoned(ctx, h.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("reaped = %d, want 1", n)
	}
	sess, _ := h.svc.GetSession(ctx, idle, "alice")
	if !sess.Completed() || sess.Transcript != "text of "+loc+" " {
		t.Fatalf("idle session = %+v", sess)
	}
	if s, _ := h.svc.GetSession(ctx, fresh, "alice"); s.Completed() {
		t.Fatal("fresh session reaped")
	}
	events := h.completions()
	if last := events[len(events)-1]; last.SessionID != idle || !last.Reaped {
		t.Fatalf("event = %+v", last)
	}

	if n, _ := h.svc.ReapAbandoned(ctx, h.clock.Now()); n != 0 {
		t.Fatalf("second pass reaped %d", n)
	}
}

func TestReapAbandoned_Disabled(t *testing.T) {
	h := newHarness(t, Config{})
	h.start(t, "p", "alice")
	h.clock.Advance(24 * time.Hour)
	if n, err := h.svc.ReapAbandoned(context.Background(), h.clock.Now()); n != 0 || err != nil {
		t.Fatalf("reaped %d, %v", n, err)
	}
	r := NewReaper(h.svc, logger.Nop())
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d := r.Describe(); d.Details != "disabled" {
		t.Fatalf("describe = %+v", d)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestReaper_Loop(t *testing.T) {
	h := newHarness(t, Config{AbandonAfter: time.Minute, ReapInterval: 5 * time.Millisecond})
	ctx := context.Background()
	id := h.start(t, "p", "alice")
	h.clock.Advance(2 * time.Minute)

	r := NewReaper(h.svc, logger.Nop())
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		sess, _ := h.svc.GetSession(ctx, id, "alice")
		if sess.Completed() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reaper never completed the session")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := r.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if h := r.Health(ctx); h.Status != component.StatusHealthy {
		t.Fatalf("health = %+v", h)
	}
	sess, _ := h.svc.GetSession(ctx, id, "alice")
	if sess.Transcript != "" {
		t.Fatalf("empty session transcript = %q", sess.Transcript)
	}
}
