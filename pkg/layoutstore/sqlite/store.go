// Package sqlite is an alternative layout store backend on a local SQLite
// database. Every Put is a write-through upsert, so crash-safety comes from
// SQLite itself rather than file renames.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"codeberg.org/anver/kbdmem/pkg/kbdmem"
	"codeberg.org/anver/kbdmem/pkg/layoutstore/sqlite/migrations"
)

type Store struct {
	db *sql.DB
}

func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrations.Migrate(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(window string) (kbdmem.Mapping, bool, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT layout, updated FROM mappings WHERE window = ?`, window)

	var mapping kbdmem.Mapping
	err := row.Scan(&mapping.Layout, &mapping.Updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return kbdmem.Mapping{}, false, nil
	case err != nil:
		return kbdmem.Mapping{}, false, fmt.Errorf("sqlite select: %w", err)
	}

	return mapping, true, nil
}

func (s *Store) Put(window string, layout int) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO mappings (window, layout, updated) VALUES (?, ?, ?)
		 ON CONFLICT (window) DO UPDATE SET layout = excluded.layout, updated = excluded.updated`,
		window, layout, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: sqlite upsert: %v", kbdmem.ErrPersistFailed, err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
