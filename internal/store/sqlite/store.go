// Package sqlite provides SQLite-backed persistence for the unmatched dish
// log.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/normalize"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for unmatched dish records.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	// Run schema migration.
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, logger: log}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts an unmatched record.
func (s *Store) Append(ctx context.Context, rec domain.UnmatchedRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO unmatched_items (id, title, description, category, logged_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Description,
		normalize.Category(rec.Title),
		rec.LoggedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert unmatched record: %w", err)
	}
	return nil
}

// List returns the most recent unmatched records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.UnmatchedRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, logged_at
		 FROM unmatched_items
		 ORDER BY logged_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unmatched records: %w", err)
	}
	defer rows.Close()

	var records []domain.UnmatchedRecord
	for rows.Next() {
		var rec domain.UnmatchedRecord
		var loggedAt string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &loggedAt); err != nil {
			return nil, fmt.Errorf("scan unmatched record: %w", err)
		}
		rec.LoggedAt, err = time.Parse(time.RFC3339Nano, loggedAt)
		if err != nil {
			return nil, fmt.Errorf("parse logged_at %q: %w", loggedAt, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListByCategory returns unmatched records in one food category, newest
// first.
func (s *Store) ListByCategory(ctx context.Context, category string, limit int) ([]domain.UnmatchedRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, logged_at
		 FROM unmatched_items
		 WHERE category = ?
		 ORDER BY logged_at DESC
		 LIMIT ?`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("query unmatched records: %w", err)
	}
	defer rows.Close()

	var records []domain.UnmatchedRecord
	for rows.Next() {
		var rec domain.UnmatchedRecord
		var loggedAt string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &loggedAt); err != nil {
			return nil, fmt.Errorf("scan unmatched record: %w", err)
		}
		rec.LoggedAt, err = time.Parse(time.RFC3339Nano, loggedAt)
		if err != nil {
			return nil, fmt.Errorf("parse logged_at %q: %w", loggedAt, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns one unmatched record by ID, or sql.ErrNoRows when absent.
func (s *Store) Get(ctx context.Context, id string) (domain.UnmatchedRecord, error) {
	var rec domain.UnmatchedRecord
	var loggedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, logged_at
		 FROM unmatched_items
		 WHERE id = ?`, id).Scan(&rec.ID, &rec.Title, &rec.Description, &loggedAt)
	if err != nil {
		return domain.UnmatchedRecord{}, err
	}
	rec.LoggedAt, err = time.Parse(time.RFC3339Nano, loggedAt)
	if err != nil {
		return domain.UnmatchedRecord{}, fmt.Errorf("parse logged_at %q: %w", loggedAt, err)
	}
	return rec, nil
}

// Delete removes one unmatched record, typically after a curator has added
// the dish to the catalog.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM unmatched_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete unmatched record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the total number of unmatched records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM unmatched_items`).Scan(&n)
	return n, err
}
