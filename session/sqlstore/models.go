package sqlstore

import (
	"embed"
	"time"

	"github.com/kbukum/scribe/database/migration"
	"github.com/kbukum/scribe/session"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations is the versioned schema for the sessions and session_chunks tables.
func Migrations() migration.Source {
	return migration.Source{FS: migrationFiles, Dir: "migrations"}
}

// sessionRow is a row of the sessions table. Ordinal preserves creation order.
type sessionRow struct {
	ID         string `gorm:"primaryKey"`
	Ordinal    int64
	PatientID  string
	OwnerID    string
	Status     string
	Transcript string
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

func (sessionRow) TableName() string { return "sessions" }

// chunkRow is one locator of a session; Seq is its arrival position.
type chunkRow struct {
	SessionID string `gorm:"primaryKey"`
	Seq       int    `gorm:"primaryKey;autoIncrement:false"`
	Locator   string
}

func (chunkRow) TableName() string { return "session_chunks" }

func (r *sessionRow) toSession(chunks []string) *session.Session {
	if chunks == nil {
		chunks = []string{}
	}
	return &session.Session{
		ID:         r.ID,
		PatientID:  r.PatientID,
		OwnerID:    r.OwnerID,
		Status:     session.Status(r.Status),
		Chunks:     chunks,
		Transcript: r.Transcript,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}
