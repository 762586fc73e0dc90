// Package sessiontest is a behavioral test suite shared by every
// session.Registry implementation.
package sessiontest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/session"
)

// Factory builds a fresh, empty registry for one test.
type Factory func(t *testing.T, opts ...session.Option) session.Registry

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed whole-second UTC instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Run executes the suite against registries built by newRegistry.
func Run(t *testing.T, newRegistry Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, newRegistry Factory)
	}{
		{"CreateValidates", testCreateValidates},
		{"CreateAndGet", testCreateAndGet},
		{"OwnerScoping", testOwnerScoping},
		{"ListByPatient", testListByPatient},
		{"ListByOwner", testListByOwner},
		{"AppendChunk", testAppendChunk},
		{"Complete", testComplete},
		{"ReturnsCopies", testReturnsCopies},
		{"ListStale", testListStale},
		{"Count", testCount},
		{"ConcurrentAppends", testConcurrentAppends},
		{"ConcurrentSessions", testConcurrentSessions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.fn(t, newRegistry) })
	}
}

func mustCreate(t *testing.T, r session.Registry, patientID, ownerID string) *session.Session {
	t.Helper()
	s, err := r.Create(context.Background(), patientID, ownerID)
	if err != nil {
		t.Fatalf("Create(%q, %q): %v", patientID, ownerID, err)
	}
	return s
}

func ids(sessions []*session.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func testCreateValidates(t *testing.T, newRegistry Factory) {
	r := newRegistry(t)
	for _, tc := range []struct{ patient, owner string }{{"", "u1"}, {"p1", ""}, {"  ", "u1"}} {
		_, err := r.Create(context.Background(), tc.patient, tc.owner)
		if !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
			t.Errorf("Create(%q, %q) err = %v, want INVALID_INPUT", tc.patient, tc.owner, err)
		}
	}
	if n, _ := r.Count(context.Background()); n != 0 {
		t.Errorf("Count = %d after invalid creates", n)
	}
}

func testCreateAndGet(t *testing.T, newRegistry Factory) {
	clock := NewClock()
	r := newRegistry(t, session.WithClock(clock.Now))
	s := mustCreate(t, r, "p1", "u1")

	if s.ID == "" || s.PatientID != "p1" || s.OwnerID != "u1" {
		t.Fatalf("created %+v", s)
	}
	if s.Status != session.StatusRecording || len(s.Chunks) != 0 || s.Transcript != "" {
		t.Fatalf("new session not empty: %+v", s)
	}
	if !s.CreatedAt.Equal(clock.Now()) || !s.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("timestamps = %v / %v", s.CreatedAt, s.UpdatedAt)
	}

	got, err := r.Get(context.Background(), s.ID, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID || got.PatientID != "p1" || got.Status != session.StatusRecording {
		t.Errorf("Get = %+v", got)
	}

	other := mustCreate(t, r, "p1", "u1")
	if other.ID == s.ID {
		t.Error("ids are not unique")
	}
}

func testOwnerScoping(t *testing.T, newRegistry Factory) {
	r := newRegistry(t)
	ctx := context.Background()
	s := mustCreate(t, r, "p1", "u1")

	checks := map[string]func() error{
		"Get missing":        func() error { _, err := r.Get(ctx, "missing", "u1"); return err },
		"Get other owner":    func() error { _, err := r.Get(ctx, s.ID, "u2"); return err },
		"Append other owner": func() error { return r.AppendChunk(ctx, s.ID, "u2", s.ID+"/0.webm") },
		"Append missing":     func() error { return r.AppendChunk(ctx, "missing", "u1", "x") },
		"Complete other":     func() error { return r.Complete(ctx, s.ID, "u2", "t") },
		"Complete missing":   func() error { return r.Complete(ctx, "missing", "u1", "t") },
	}
	for name, fn := range checks {
		if err := fn(); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			t.Errorf("%s: err = %v, want NOT_FOUND", name, err)
		}
	}

	got, err := r.Get(ctx, s.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Chunks) != 0 || got.Status != session.StatusRecording {
		t.Errorf("cross-owner calls mutated the session: %+v", got)
	}
}

func testListByPatient(t *testing.T, newRegistry Factory) {
	clock := NewClock()
	r := newRegistry(t, session.WithClock(clock.Now))
	a := mustCreate(t, r, "p1", "u1")
	clock.Advance(time.Second)
	mustCreate(t, r, "p2", "u1")
	mustCreate(t, r, "p1", "u2")
	b := mustCreate(t, r, "p1", "u1")

	got, err := r.ListByPatient(context.Background(), "p1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{a.ID, b.ID}; !slices.Equal(ids(got), want) {
		t.Errorf("ListByPatient = %v, want %v", ids(got), want)
	}

	none, err := r.ListByPatient(context.Background(), "p9", "u1")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("unknown patient = %v, %v; want empty non-nil", none, err)
	}
}

func testListByOwner(t *testing.T, newRegistry Factory) {
	r := newRegistry(t)
	var want []string
	for i := range 5 {
		want = append(want, mustCreate(t, r, fmt.Sprintf("p%d", i%2), "u1").ID)
		mustCreate(t, r, "p1", "u2")
	}
	got, err := r.ListByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids(got), want) {
		t.Errorf("ListByOwner = %v, want %v", ids(got), want)
	}
	if empty, _ := r.ListByOwner(context.Background(), "nobody"); len(empty) != 0 {
		t.Errorf("unknown owner = %v", ids(empty))
	}
}

func testAppendChunk(t *testing.T, newRegistry Factory) {
	clock := NewClock()
	r := newRegistry(t, session.WithClock(clock.Now))
	ctx := context.Background()
	s := mustCreate(t, r, "p1", "u1")

	want := []string{s.ID + "/0.webm", s.ID + "/2.webm", s.ID + "/1.webm"}
	for _, loc := range want {
		clock.Advance(time.Second)
		if err := r.AppendChunk(ctx, s.ID, "u1", loc); err != nil {
			t.Fatalf("AppendChunk(%s): %v", loc, err)
		}
	}
	got, err := r.Get(ctx, s.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got.Chunks, want) {
		t.Errorf("chunks = %v, want arrival order %v", got.Chunks, want)
	}
	if !got.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, clock.Now())
	}
	if !got.CreatedAt.Equal(s.CreatedAt) {
		t.Errorf("CreatedAt moved: %v -> %v", s.CreatedAt, got.CreatedAt)
	}
}

func testComplete(t *testing.T, newRegistry Factory) {
	r := newRegistry(t)
	ctx := context.Background()
	s := mustCreate(t, r, "p1", "u1")
	if err := r.AppendChunk(ctx, s.ID, "u1", s.ID+"/0.webm"); err != nil {
		t.Fatal(err)
	}

	if err := r.Complete(ctx, s.ID, "u1", "first "); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := r.Complete(ctx, s.ID, "u1", "second "); err != nil {
		t.Fatalf("Complete again: %v", err)
	}
	got, err := r.Get(ctx, s.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != session.StatusCompleted || got.Transcript != "second " {
		t.Errorf("after complete: status=%s transcript=%q", got.Status, got.Transcript)
	}
	if len(got.Chunks) != 1 {
		t.Errorf("chunks = %v", got.Chunks)
	}
}

func testReturnsCopies(t *testing.T, newRegistry Factory) {
	r := newRegistry(t)
	ctx := context.Background()
	s := mustCreate(t, r, "p1", "u1")
	if err := r.AppendChunk(ctx, s.ID, "u1", s.ID+"/0.webm"); err != nil {
		t.Fatal(err)
	}

	got, _ := r.Get(ctx, s.ID, "u1")
	got.Chunks[0] = "tampered"
	got.Chunks = append(got.Chunks, "extra")
	got.Status = session.StatusCompleted

	listed, _ := r.ListByOwner(ctx, "u1")
	listed[0].Transcript = "tampered"

	again, _ := r.Get(ctx, s.ID, "u1")
	if len(again.Chunks) != 1 || again.Chunks[0] != s.ID+"/0.webm" {
		t.Errorf("chunks aliased: %v", again.Chunks)
	}
	if again.Status != session.StatusRecording || again.Transcript != "" {
		t.Errorf("session aliased: %+v", again)
	}
}

func testListStale(t *testing.T, newRegistry Factory) {
	clock := NewClock()
	r := newRegistry(t, session.WithClock(clock.Now))
	ctx := context.Background()

	idle := mustCreate(t, r, "p1", "u1")
	done := mustCreate(t, r, "p1", "u1")
	if err := r.Complete(ctx, done.ID, "u1", ""); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Minute)
	mustCreate(t, r, "p2", "u2")

	stale, err := r.ListStale(ctx, clock.Now().Add(-5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{idle.ID}; !slices.Equal(ids(stale), want) {
		t.Errorf("ListStale = %v, want %v", ids(stale), want)
	}

	clock.Advance(time.Minute)
	if err := r.AppendChunk(ctx, idle.ID, "u1", idle.ID+"/0.wav"); err != nil {
		t.Fatal(err)
	}
	stale, _ = r.ListStale(ctx, clock.Now().Add(-5*time.Minute))
	if len(stale) != 0 {
		t.Errorf("ListStale after append = %v, want none", ids(stale))
	}
}

func testCount(t *testing.T, newRegistry Factory) {
	r := newRegistry(t)
	for range 3 {
		mustCreate(t, r, "p", "u")
	}
	if n, err := r.Count(context.Background()); err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3", n, err)
	}
}

func testConcurrentAppends(t *testing.T, newRegistry Factory) {
	r := newRegistry(t)
	ctx := context.Background()
	s := mustCreate(t, r, "p1", "u1")

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.AppendChunk(ctx, s.ID, "u1", fmt.Sprintf("%s/%d.webm", s.ID, i)); err != nil {
				t.Errorf("AppendChunk: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := r.Get(ctx, s.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Chunks) != n {
		t.Fatalf("len(chunks) = %d, want %d", len(got.Chunks), n)
	}
	seen := map[string]bool{}
	for _, c := range got.Chunks {
		if seen[c] {
			t.Errorf("duplicate chunk %s", c)
		}
		seen[c] = true
	}
}

// testConcurrentSessions writes to many sessions at once: one sequential
// appender per session alongside concurrent creates.
func testConcurrentSessions(t *testing.T, newRegistry Factory) {
	r := newRegistry(t)
	ctx := context.Background()

	const sessions, chunks, creates = 8, 10, 20
	ss := make([]*session.Session, sessions)
	for i := range ss {
		ss[i] = mustCreate(t, r, fmt.Sprintf("p%d", i), "u1")
	}

	var wg sync.WaitGroup
	for _, s := range ss {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range chunks {
				if err := r.AppendChunk(ctx, s.ID, "u1", fmt.Sprintf("%s/%d.webm", s.ID, c)); err != nil {
					t.Errorf("AppendChunk(%s, %d): %v", s.ID, c, err)
					return
				}
			}
		}()
	}
	for i := range creates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Create(ctx, fmt.Sprintf("q%d", i), "u2"); err != nil {
				t.Errorf("Create: %v", err)
			}
		}()
	}
	wg.Wait()

	for _, s := range ss {
		got, err := r.Get(ctx, s.ID, "u1")
		if err != nil {
			t.Fatal(err)
		}
		want := make([]string, chunks)
		for c := range want {
			want[c] = fmt.Sprintf("%s/%d.webm", s.ID, c)
		}
		if !slices.Equal(got.Chunks, want) {
			t.Errorf("chunks of %s = %v, want %v", s.ID, got.Chunks, want)
		}
	}
	if n, err := r.Count(ctx); err != nil || n != sessions+creates {
		t.Errorf("Count = %d, %v; want %d", n, err, sessions+creates)
	}
	if owned, err := r.ListByOwner(ctx, "u2"); err != nil || len(owned) != creates {
		t.Errorf("ListByOwner(u2) = %d, %v; want %d", len(owned), err, creates)
	}
}
