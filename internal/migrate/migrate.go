// Package migrate applies the embedded schema migrations to a libsql database.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/trialscope/migrations"
)

// Migration is one schema step with its up and down SQL.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Status is the applied version of a database.
type Status struct {
	Version int
	Dirty   bool
	Latest  int
}

var upPattern = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// Migrator runs migrations from a filesystem against one database.
type Migrator struct {
	db     *sql.DB
	source fs.FS
	logger log.FieldLogger
}

// New creates a Migrator over the embedded migrations.
func New(db *sql.DB) *Migrator {
	return &Migrator{db: db, source: migrations.FS, logger: log.StandardLogger()}
}

// WithSource replaces the migration filesystem.
func (m *Migrator) WithSource(source fs.FS) *Migrator {
	m.source = source
	return m
}

// WithLogger replaces the progress logger.
func (m *Migrator) WithLogger(logger log.FieldLogger) *Migrator {
	m.logger = logger
	return m
}

// ensureTable creates schema_migrations, recreating it when it predates the dirty column.
func (m *Migrator) ensureTable(ctx context.Context) error {
	const create = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		dirty INTEGER NOT NULL DEFAULT 0
	)`

	var count int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('schema_migrations') WHERE name = 'dirty'`,
	).Scan(&count)
	if err == nil && count == 0 {
		if _, err := m.db.ExecContext(ctx, `DROP TABLE IF EXISTS schema_migrations`); err != nil {
			return fmt.Errorf("failed to drop legacy migrations table: %w", err)
		}
	}
	if _, err := m.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) version(ctx context.Context) (int, bool, error) {
	var version, dirty int
	err := m.db.QueryRowContext(ctx,
		`SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty == 1, nil
}

func (m *Migrator) setVersion(ctx context.Context, version int, dirty bool) error {
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return err
	}
	if version <= 0 {
		return nil
	}
	_, err := m.db.ExecContext(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, dirtyInt)
	return err
}

// Load reads every NNN_name.up.sql (and its optional down file) sorted by version.
func (m *Migrator) Load() ([]Migration, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var result []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := upPattern.FindStringSubmatch(path.Base(e.Name()))
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %s: %w", e.Name(), err)
		}
		up, err := fs.ReadFile(m.source, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		down, _ := fs.ReadFile(m.source, fmt.Sprintf("%s_%s.down.sql", matches[1], matches[2]))

		result = append(result, Migration{
			Version: version,
			Name:    matches[2],
			UpSQL:   string(up),
			DownSQL: string(down),
		})
	}

	slices.SortFunc(result, func(a, b Migration) int { return a.Version - b.Version })
	return result, nil
}

// Status reports the applied and latest available versions.
func (m *Migrator) Status(ctx context.Context) (Status, error) {
	if err := m.ensureTable(ctx); err != nil {
		return Status{}, err
	}
	version, dirty, err := m.version(ctx)
	if err != nil {
		return Status{}, err
	}
	all, err := m.Load()
	if err != nil {
		return Status{}, err
	}
	st := Status{Version: version, Dirty: dirty}
	if len(all) > 0 {
		st.Latest = all[len(all)-1].Version
	}
	return st, nil
}

func (m *Migrator) run(ctx context.Context, mig Migration, up bool) error {
	direction, content, target := "up", mig.UpSQL, mig.Version
	if !up {
		direction, content, target = "down", mig.DownSQL, mig.Version-1
	}
	m.logger.WithFields(log.Fields{"version": mig.Version, "name": mig.Name, "direction": direction}).Info("applying migration")

	if err := m.setVersion(ctx, mig.Version, true); err != nil {
		return fmt.Errorf("failed to set dirty flag: %w", err)
	}
	for _, stmt := range SplitSQL(content) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d %s: %w\nSQL: %s", mig.Version, direction, err, stmt)
		}
	}
	if err := m.setVersion(ctx, target, false); err != nil {
		return fmt.Errorf("failed to clear dirty flag: %w", err)
	}
	return nil
}

// SplitSQL splits a script into trimmed, non-empty statements.
func SplitSQL(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" && !onlyComments(stmt) {
			out = append(out, stmt)
		}
	}
	return out
}

func onlyComments(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

func (m *Migrator) prepare(ctx context.Context) (int, []Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, nil, err
	}
	current, dirty, err := m.version(ctx)
	if err != nil {
		return 0, nil, err
	}
	if dirty {
		return 0, nil, fmt.Errorf("database is in dirty state at version %d", current)
	}
	all, err := m.Load()
	if err != nil {
		return 0, nil, err
	}
	return current, all, nil
}

// Up applies every pending migration and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	return m.UpTo(ctx, -1)
}

// UpTo applies pending migrations up to target inclusive. A negative target means all.
func (m *Migrator) UpTo(ctx context.Context, target int) (int, error) {
	current, all, err := m.prepare(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, mig := range all {
		if mig.Version <= current {
			continue
		}
		if target >= 0 && mig.Version > target {
			break
		}
		if err := m.run(ctx, mig, true); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// DownTo reverts applied migrations until the version equals target.
func (m *Migrator) DownTo(ctx context.Context, target int) (int, error) {
	current, all, err := m.prepare(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := len(all) - 1; i >= 0; i-- {
		mig := all[i]
		if mig.Version > current {
			continue
		}
		if mig.Version <= target {
			break
		}
		if mig.DownSQL == "" {
			return count, fmt.Errorf("no down migration for version %d", mig.Version)
		}
		if err := m.run(ctx, mig, false); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// RunAll applies all pending embedded migrations to db.
func RunAll(ctx context.Context, db *sql.DB) error {
	if _, err := New(db).Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
