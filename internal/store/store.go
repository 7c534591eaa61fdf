// Package store provides the Badger-backed persistent result cache.
package store

import (
	"context"
	"encoding/json/v2"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
)

const cachePrefix = "cache:"

// Store wraps a Badger database instance and implements the resolver's
// result cache. Only web-search and generated outcomes land here; entries
// survive restarts.
type Store struct {
	db     *badger.DB
	logger *logger.Logger
}

// New creates a new Store instance with the given database path.
func New(path string, log *logger.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if log != nil {
		log.Info("Badger database opened successfully", "path", path)
	}

	return &Store{db: db, logger: log}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Get returns the cached entry for key, or nil when absent.
func (s *Store) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := s.get([]byte(cachePrefix+key), &entry)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.ErrCacheUnavailable.WithCause(err)
	}
	return &entry, nil
}

// Put stores an entry, replacing any existing one for the same key.
func (s *Store) Put(_ context.Context, entry domain.CacheEntry) error {
	if err := s.set([]byte(cachePrefix+entry.Key), entry); err != nil {
		return errors.ErrCacheUnavailable.WithCause(err)
	}
	return nil
}

// Clear drops every cached resolution. Used by the curation API after
// catalog imports so stale web results stop shadowing new catalog entries.
func (s *Store) Clear(_ context.Context) error {
	return s.db.DropPrefix([]byte(cachePrefix))
}

// Len counts cached entries. Badger has no cheap count, so this iterates
// keys only.
func (s *Store) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(cachePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}
