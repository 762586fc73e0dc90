package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/session"
	"github.com/kbukum/scribe/session/sessiontest"
	"github.com/kbukum/scribe/session/sqlstore"
)

func openDB(t *testing.T) *database.DB {
	t.Helper()
	return openDSN(t, "file::memory:")
}

// openFileDB opens a database file with the default pool, so writers run on
// separate connections.
func openFileDB(t *testing.T) *database.DB {
	t.Helper()
	return openDSN(t, "file:"+filepath.Join(t.TempDir(), "scribe.db"))
}

func openDSN(t *testing.T, dsn string) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{DSN: dsn, LogLevel: "silent"}, logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(sqlstore.Migrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestRegistry(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T, opts ...session.Option) session.Registry {
		return sqlstore.New(openDB(t), opts...)
	})
}

func TestRegistry_FileDatabase(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T, opts ...session.Option) session.Registry {
		return sqlstore.New(openFileDB(t), opts...)
	})
}

func TestRegistry_ChunkSequence(t *testing.T) {
	db := openDB(t)
	r := sqlstore.New(db)
	ctx := context.Background()

	s, err := r.Create(ctx, "p1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	for _, loc := range []string{"b", "a", "c"} {
		if err := r.AppendChunk(ctx, s.ID, "u1", s.ID+"/"+loc); err != nil {
			t.Fatal(err)
		}
	}

	var seqs []int
	if err := db.WithContext(ctx).Table("session_chunks").Where("session_id = ?", s.ID).
		Order("seq").Pluck("seq", &seqs).Error; err != nil {
		t.Fatal(err)
	}
	if len(seqs) != 3 || seqs[0] != 0 || seqs[2] != 2 {
		t.Fatalf("seqs = %v, want [0 1 2]", seqs)
	}
}
