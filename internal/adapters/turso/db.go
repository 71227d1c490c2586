package turso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tursodatabase/go-libsql"
)

// Config selects the database. With a URL the local file is an embedded
// replica of the remote primary; without one it is a plain local database.
type Config struct {
	Path      string `yaml:"path"`
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token" split_words:"true"`
}

// DB is an open libsql database.
type DB struct {
	*sql.DB
	connector *libsql.Connector
}

// NewDB opens the database described by cfg.
func NewDB(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if cfg.URL == "" {
		db, err := sql.Open("libsql", "file:"+cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return &DB{DB: db}, nil
	}

	var opts []libsql.Option
	if cfg.AuthToken != "" {
		opts = append(opts, libsql.WithAuthToken(cfg.AuthToken))
	}
	connector, err := libsql.NewEmbeddedReplicaConnector(cfg.Path, cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create replica connector: %w", err)
	}
	db := sql.OpenDB(connector)

	// Remote streams are closed aggressively; stale idle connections fail.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{DB: db, connector: connector}, nil
}

// Sync pulls remote changes into the embedded replica. It is a no-op for
// local databases.
func (d *DB) Sync() error {
	if d.connector == nil {
		return nil
	}
	if _, err := d.connector.Sync(); err != nil {
		return fmt.Errorf("failed to sync replica: %w", err)
	}
	return nil
}

// Close closes the pool and the replica connector.
func (d *DB) Close() error {
	err := d.DB.Close()
	if d.connector != nil {
		err = errors.Join(err, d.connector.Close())
	}
	return err
}

// IsStreamError reports a remote "stream not found" error.
func IsStreamError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "stream not found")
}

// WithRetry runs fn again, up to maxRetries times, while it fails with a stream error.
func WithRetry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	var result T
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = fn()
		if err == nil || !IsStreamError(err) || attempt == maxRetries {
			return result, err
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return result, err
}
