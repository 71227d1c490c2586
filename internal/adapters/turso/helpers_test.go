package turso_test

import (
	"context"
	"database/sql"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/emiliopalmerini/trialscope/internal/migrate"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	ctx := context.Background()
	log.SetOutput(io.Discard)
	if err := migrate.RunAll(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}
