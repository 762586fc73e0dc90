package session

import (
	"context"
	"sync"
	"time"
)

type record struct {
	mu sync.Mutex
	s  Session
}

func (r *record) snapshot() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s.Clone()
}

// MemoryRegistry is an in-process Registry. The structural lock guards the
// index only; each record has its own lock for mutation.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string
	opts    Options
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry(opts ...Option) *MemoryRegistry {
	return &MemoryRegistry{
		records: make(map[string]*record),
		opts:    BuildOptions(opts...),
	}
}

func (m *MemoryRegistry) Create(_ context.Context, patientID, ownerID string) (*Session, error) {
	if err := CheckCreate(patientID, ownerID); err != nil {
		return nil, err
	}
	now := m.opts.Now()
	r := &record{s: Session{
		ID:        m.opts.NewID(),
		PatientID: patientID,
		OwnerID:   ownerID,
		Status:    StatusRecording,
		Chunks:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}}

	m.mu.Lock()
	m.records[r.s.ID] = r
	m.order = append(m.order, r.s.ID)
	m.mu.Unlock()
	return r.s.Clone(), nil
}

// lookup is the single owner-scoped lookup every id-based operation goes through.
func (m *MemoryRegistry) lookup(id, ownerID string) (*record, error) {
	m.mu.RLock()
	r, ok := m.records[id]
	m.mu.RUnlock()
	if !ok || r.s.OwnerID != ownerID {
		return nil, ErrNotFound(id)
	}
	return r, nil
}

func (m *MemoryRegistry) Get(_ context.Context, id, ownerID string) (*Session, error) {
	r, err := m.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	return r.snapshot(), nil
}

func (m *MemoryRegistry) ListByPatient(_ context.Context, patientID, ownerID string) ([]*Session, error) {
	return m.filter(func(s *Session) bool {
		return s.OwnerID == ownerID && s.PatientID == patientID
	}), nil
}

func (m *MemoryRegistry) ListByOwner(_ context.Context, ownerID string) ([]*Session, error) {
	return m.filter(func(s *Session) bool { return s.OwnerID == ownerID }), nil
}

func (m *MemoryRegistry) AppendChunk(_ context.Context, id, ownerID, locator string) error {
	r, err := m.lookup(id, ownerID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.s.Chunks = append(r.s.Chunks, locator)
	r.s.UpdatedAt = m.opts.Now()
	r.mu.Unlock()
	return nil
}

func (m *MemoryRegistry) Complete(_ context.Context, id, ownerID, transcript string) error {
	r, err := m.lookup(id, ownerID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.s.Status = StatusCompleted
	r.s.Transcript = transcript
	r.s.UpdatedAt = m.opts.Now()
	r.mu.Unlock()
	return nil
}

func (m *MemoryRegistry) ListStale(_ context.Context, olderThan time.Time) ([]*Session, error) {
	return m.filter(func(s *Session) bool {
		return s.Status == StatusRecording && s.UpdatedAt.Before(olderThan)
	}), nil
}

func (m *MemoryRegistry) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order), nil
}

func (m *MemoryRegistry) filter(keep func(*Session) bool) []*Session {
	m.mu.RLock()
	records := make([]*record, len(m.order))
	for i, id := range m.order {
		records[i] = m.records[id]
	}
	m.mu.RUnlock()

	out := make([]*Session, 0)
	for _, r := range records {
		if s := r.snapshot(); keep(s) {
			out = append(out, s)
		}
	}
	return out
}
