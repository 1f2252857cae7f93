package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Store holds the active role table and swaps it atomically on reload.
// Readers always see one consistent snapshot; a role never resolves
// against half of an old table and half of a new one.
type Store struct {
	table  atomic.Pointer[RoleTable]
	path   string
	logger *zap.Logger
}

// NewStore creates a store seeded with the given table.
func NewStore(table *RoleTable, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger}
	s.table.Store(table)
	return s
}

// NewStoreFromFile loads the table from path and remembers the path for Watch.
func NewStoreFromFile(path string, logger *zap.Logger) (*Store, error) {
	table, err := LoadRoleTable(path)
	if err != nil {
		return nil, err
	}
	s := NewStore(table, logger)
	s.path = path
	return s, nil
}

// Table returns the current role table snapshot.
func (s *Store) Table() *RoleTable {
	return s.table.Load()
}

// Replace atomically installs a new table after validating it.
func (s *Store) Replace(table *RoleTable) error {
	if err := table.Validate(); err != nil {
		return err
	}
	s.table.Store(table)
	return nil
}

// Watch reloads the table whenever the backing file changes, until ctx is
// cancelled. A reload that fails to parse or validate keeps the previous
// table in place.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("store was not loaded from a file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by rename, which drops
	// a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			table, err := LoadRoleTable(s.path)
			if err != nil {
				s.logger.Warn("role table reload failed, keeping previous",
					zap.String("path", s.path), zap.Error(err))
				continue
			}
			s.table.Store(table)
			s.logger.Info("role table reloaded",
				zap.String("path", s.path), zap.Int("roles", len(table.Roles)))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("role table watcher error", zap.Error(err))
		}
	}
}
