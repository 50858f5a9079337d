// Package sqlite implements repository.Store on an embedded SQLite file via gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/numberadder/numberadder/internal/repository"
)

// Store provides database access methods over a single SQLite file.
type Store struct {
	db *gorm.DB
}

var _ repository.Store = (*Store)(nil)

// BuildDSN constructs a SQLite DSN with foreign keys enforced.
func BuildDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
	}, "&")
}

// New opens the database at path and applies the schema.
func New(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := gorm.Open(sqlite.Open(BuildDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	// Single writer.
	sqlDB.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn := s.db.WithContext(ctx)

	if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			email               TEXT NOT NULL UNIQUE,
			password_hash       TEXT NOT NULL,
			is_premium          BOOLEAN NOT NULL DEFAULT 0,
			billing_customer_id TEXT UNIQUE,
			api_key_hash        TEXT UNIQUE,
			created_at          DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("sqlite: create users: %w", err)
	}
	if err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS calculations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			operation  TEXT NOT NULL DEFAULT 'add',
			num_a      REAL NOT NULL,
			num_b      REAL NOT NULL,
			result     REAL NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("sqlite: create calculations: %w", err)
	}
	if err := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_calculations_user_created
		ON calculations (user_id, created_at DESC, id DESC)
	`).Error; err != nil {
		return fmt.Errorf("sqlite: create calculations index: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		(err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}
