package migrate

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"testing/fstest"

	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

var testFS = fstest.MapFS{
	"001_a.up.sql":   {Data: []byte("CREATE TABLE a (id INTEGER);")},
	"001_a.down.sql": {Data: []byte("DROP TABLE a;")},
	"002_b.up.sql":   {Data: []byte("-- second\nCREATE TABLE b (id INTEGER);\nCREATE TABLE c (id INTEGER);")},
	"002_b.down.sql": {Data: []byte("DROP TABLE c; DROP TABLE b;")},
	"003_c.up.sql":   {Data: []byte("CREATE TABLE d (id INTEGER);")},
	"README.md":      {Data: []byte("ignored")},
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestSplitSQL(t *testing.T) {
	got := SplitSQL("-- header\nCREATE TABLE x (id INTEGER);\n\n;  ;SELECT 1")
	if len(got) != 2 {
		t.Fatalf("SplitSQL() returned %d statements: %q", len(got), got)
	}
	if got[1] != "SELECT 1" {
		t.Errorf("second statement = %q", got[1])
	}
}

func TestLoad_SortsAndPairsDownFiles(t *testing.T) {
	m := New(nil).WithSource(testFS)
	all, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Load() returned %d migrations, want 3", len(all))
	}
	for i, want := range []int{1, 2, 3} {
		if all[i].Version != want {
			t.Errorf("all[%d].Version = %d, want %d", i, all[i].Version, want)
		}
	}
	if all[1].Name != "b" || all[1].DownSQL == "" {
		t.Errorf("all[1] = %+v", all[1])
	}
	if all[2].DownSQL != "" {
		t.Error("migration 3 has no down file")
	}
}

func TestUpDownCycle(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	m := New(db).WithSource(testFS).WithLogger(quietLogger())

	n, err := m.UpTo(ctx, 2)
	if err != nil || n != 2 {
		t.Fatalf("UpTo(2) = %d, %v", n, err)
	}
	if !tableExists(t, db, "c") || tableExists(t, db, "d") {
		t.Error("tables after UpTo(2) are wrong")
	}

	st, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st != (Status{Version: 2, Latest: 3}) {
		t.Errorf("Status() = %+v", st)
	}

	if n, err := m.Up(ctx); err != nil || n != 1 {
		t.Fatalf("Up() = %d, %v", n, err)
	}
	if n, err := m.Up(ctx); err != nil || n != 0 {
		t.Errorf("second Up() = %d, %v, want no-op", n, err)
	}

	if _, err := m.DownTo(ctx, 1); err == nil {
		t.Error("DownTo across a migration without down SQL should fail")
	}
}

func TestDownTo(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	m := New(db).WithSource(testFS).WithLogger(quietLogger())

	if _, err := m.UpTo(ctx, 2); err != nil {
		t.Fatalf("UpTo(2) error = %v", err)
	}
	n, err := m.DownTo(ctx, 0)
	if err != nil || n != 2 {
		t.Fatalf("DownTo(0) = %d, %v", n, err)
	}
	if tableExists(t, db, "a") || tableExists(t, db, "b") {
		t.Error("tables should be dropped")
	}
	st, _ := m.Status(ctx)
	if st.Version != 0 || st.Dirty {
		t.Errorf("Status() = %+v", st)
	}
}

func TestDirtyDatabaseRefusesToMigrate(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	m := New(db).WithSource(fstest.MapFS{
		"001_bad.up.sql": {Data: []byte("CREATE TABLE ok (id INTEGER); THIS IS NOT SQL")},
	}).WithLogger(quietLogger())

	if _, err := m.Up(ctx); err == nil {
		t.Fatal("expected failure on invalid SQL")
	}
	st, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.Dirty || st.Version != 1 {
		t.Errorf("Status() = %+v, want dirty at 1", st)
	}
	if _, err := m.Up(ctx); err == nil {
		t.Error("Up() on a dirty database should fail")
	}
}

func TestRunAll_EmbeddedSchema(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	log.SetOutput(io.Discard)

	if err := RunAll(ctx, db); err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	for _, name := range []string{"experiments", "trials", "runs"} {
		if !tableExists(t, db, name) {
			t.Errorf("table %s missing", name)
		}
	}
	if err := RunAll(ctx, db); err != nil {
		t.Errorf("second RunAll() error = %v", err)
	}
}
