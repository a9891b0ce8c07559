// Package memory is an in-memory layout store, used in tests.
package memory

import (
	"time"

	"codeberg.org/anver/kbdmem/pkg/kbdmem"
)

type Store struct {
	mappings map[string]kbdmem.Mapping
	now      func() time.Time
}

func New() *Store {
	return &Store{
		mappings: make(map[string]kbdmem.Mapping),
		now:      time.Now,
	}
}

func (s *Store) Get(window string) (kbdmem.Mapping, bool, error) {
	mapping, ok := s.mappings[window]
	return mapping, ok, nil
}

func (s *Store) Put(window string, layout int) error {
	s.mappings[window] = kbdmem.Mapping{Layout: layout, Updated: s.now().UTC()}
	return nil
}

func (s *Store) Close() error {
	return nil
}
