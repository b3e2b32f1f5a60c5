// Package memory is an in-process kv.Store for tests and throwaway sessions.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dokon/internal/kv"
)

type Store struct {
	mu    sync.Mutex
	items map[string][]byte
}

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// NewFromFiles seeds a store from every <key>.json file in base. A missing
// directory yields an empty store.
func NewFromFiles(base string) *Store {
	s := New()
	matches, _ := filepath.Glob(filepath.Join(base, "*.json"))
	for _, path := range matches {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(filepath.Base(path), ".json")
		s.items[key] = b
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

// Keys returns the number of stored keys.
func (s *Store) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
