// Package json is the default layout store: a single JSON file mapping
// window identities to layout indexes, written through on every mutation.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"codeberg.org/anver/kbdmem/pkg/kbdmem"
)

// Store keeps the mapping in memory and mirrors every mutation to disk with
// an atomic temp-file rename. The file is shared with separately invoked
// one-shot captures, so writes re-read the file first and only overlay the
// entries this process changed.
type Store struct {
	path     string
	mappings map[string]kbdmem.Mapping
	dirty    map[string]struct{}
	now      func() time.Time
}

// Open loads the store at path. A malformed file is moved aside to
// path+".bak" and replaced by an empty store with a logged warning; only
// environmental failures (e.g. permissions) are returned.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	s := &Store{
		path:     path,
		mappings: make(map[string]kbdmem.Mapping),
		dirty:    make(map[string]struct{}),
		now:      time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read store: %w", err)
	}

	if err := json.Unmarshal(data, &s.mappings); err != nil {
		backup := path + ".bak"
		if renameErr := os.Rename(path, backup); renameErr != nil {
			return nil, fmt.Errorf("back up corrupt store: %w", renameErr)
		}
		log.Warnw("recovered from corrupt store, starting empty",
			"error", fmt.Errorf("%w: %v", kbdmem.ErrCorruptStore, err),
			"backup", backup,
		)
		s.mappings = make(map[string]kbdmem.Mapping)
	}

	return s, nil
}

func (s *Store) Get(window string) (kbdmem.Mapping, bool, error) {
	mapping, ok := s.mappings[window]
	return mapping, ok, nil
}

// Put upserts the mapping and persists immediately. On a write failure the
// entry stays dirty in memory and is flushed by the next successful write.
func (s *Store) Put(window string, layout int) error {
	s.mappings[window] = kbdmem.Mapping{Layout: layout, Updated: s.now().UTC()}
	s.dirty[window] = struct{}{}
	return s.save()
}

// Close flushes any dirty entries. With write-through persistence there is
// normally nothing left to write.
func (s *Store) Close() error {
	if len(s.dirty) == 0 {
		return nil
	}
	return s.save()
}

func (s *Store) save() error {
	merged := s.readForMerge()
	for window := range s.dirty {
		merged[window] = s.mappings[window]
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", kbdmem.ErrPersistFailed, err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", kbdmem.ErrPersistFailed, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", kbdmem.ErrPersistFailed, err)
	}

	s.mappings = merged
	s.dirty = make(map[string]struct{})
	return nil
}

// readForMerge re-reads the file so entries written by another process since
// load are not lost. Falls back to the in-memory view when the file is
// unreadable; the write about to happen replaces it anyway.
func (s *Store) readForMerge() map[string]kbdmem.Mapping {
	merged := make(map[string]kbdmem.Mapping, len(s.mappings))

	data, err := os.ReadFile(s.path)
	if err == nil {
		disk := make(map[string]kbdmem.Mapping)
		if json.Unmarshal(data, &disk) == nil {
			for window, mapping := range disk {
				merged[window] = mapping
			}
			return merged
		}
	}

	for window, mapping := range s.mappings {
		merged[window] = mapping
	}
	return merged
}
