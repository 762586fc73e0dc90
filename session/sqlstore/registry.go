// Package sqlstore is a session.Registry backed by gorm.
package sqlstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/session"
)

// Registry implements session.Registry over the sessions and session_chunks tables.
type Registry struct {
	db   *database.DB
	opts session.Options
}

var _ session.Registry = (*Registry)(nil)

// New creates a registry. The tables must exist; see Migrations.
func New(db *database.DB, opts ...session.Option) *Registry {
	return &Registry{db: db, opts: session.BuildOptions(opts...)}
}

func (r *Registry) Create(ctx context.Context, patientID, ownerID string) (*session.Session, error) {
	if err := session.CheckCreate(patientID, ownerID); err != nil {
		return nil, err
	}
	now := r.opts.Now()
	row := &sessionRow{
		ID:        r.opts.NewID(),
		PatientID: patientID,
		OwnerID:   ownerID,
		Status:    string(session.StatusRecording),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&sessionRow{}).Select("COALESCE(MAX(ordinal), 0)").Scan(&last).Error; err != nil {
			return err
		}
		row.Ordinal = last + 1
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, database.FromDatabase(err, "session", row.ID)
	}
	return row.toSession(nil), nil
}

// lookup loads the owned session row or returns NOT_FOUND.
func lookup(tx *gorm.DB, id, ownerID string) (*sessionRow, error) {
	var row sessionRow
	if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).Take(&row).Error; err != nil {
		return nil, database.FromDatabase(err, "session", id)
	}
	return &row, nil
}

func (r *Registry) Get(ctx context.Context, id, ownerID string) (*session.Session, error) {
	tx := r.db.WithContext(ctx)
	row, err := lookup(tx, id, ownerID)
	if err != nil {
		return nil, err
	}
	chunks, err := r.chunks(tx, []string{id})
	if err != nil {
		return nil, err
	}
	return row.toSession(chunks[id]), nil
}

func (r *Registry) ListByPatient(ctx context.Context, patientID, ownerID string) ([]*session.Session, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("owner_id = ? AND patient_id = ?", ownerID, patientID)
	})
}

func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]*session.Session, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB { return q.Where("owner_id = ?", ownerID) })
}

func (r *Registry) ListStale(ctx context.Context, olderThan time.Time) ([]*session.Session, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ? AND updated_at < ?", string(session.StatusRecording), olderThan.UTC())
	})
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&sessionRow{}).Count(&n).Error; err != nil {
		return 0, database.FromDatabase(err, "session", "")
	}
	return int(n), nil
}

// AppendChunk inserts the locator at the next sequence number. The write
// transaction is opened IMMEDIATE (see database.Config), so appends to
// different sessions queue on the busy timeout instead of failing.
func (r *Registry) AppendChunk(ctx context.Context, id, ownerID, locator string) error {
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lookup(tx, id, ownerID); err != nil {
			return err
		}
		if err := tx.Exec(`INSERT INTO session_chunks (session_id, seq, locator)
			SELECT ?, COALESCE(MAX(seq) + 1, 0), ? FROM session_chunks WHERE session_id = ?`,
			id, locator, id).Error; err != nil {
			return err
		}
		return tx.Model(&sessionRow{}).Where("id = ?", id).Update("updated_at", r.opts.Now()).Error
	})
	return database.FromDatabase(err, "session", id)
}

func (r *Registry) Complete(ctx context.Context, id, ownerID, transcript string) error {
	res := r.db.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]any{
			"status":     string(session.StatusCompleted),
			"transcript": transcript,
			"updated_at": r.opts.Now(),
		})
	if res.Error != nil {
		return database.FromDatabase(res.Error, "session", id)
	}
	if res.RowsAffected == 0 {
		return session.ErrNotFound(id)
	}
	return nil
}

func (r *Registry) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*session.Session, error) {
	tx := r.db.WithContext(ctx)
	var rows []sessionRow
	if err := scope(tx.Model(&sessionRow{})).Order("ordinal").Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "session", "")
	}
	out := make([]*session.Session, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	chunks, err := r.chunks(tx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out = append(out, rows[i].toSession(chunks[rows[i].ID]))
	}
	return out, nil
}

func (r *Registry) chunks(tx *gorm.DB, ids []string) (map[string][]string, error) {
	var rows []chunkRow
	if err := tx.Where("session_id IN ?", ids).Order("session_id, seq").Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "session", "")
	}
	out := make(map[string][]string, len(ids))
	for _, c := range rows {
		out[c.SessionID] = append(out[c.SessionID], c.Locator)
	}
	return out, nil
}
