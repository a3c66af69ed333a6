// Package memorybank provides an ephemeral, thread-safe, in-memory bank
// backend. It is meant for tests and dry runs; nothing survives the process.
package memorybank

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/protectgrid/internal/bank"
)

// Name is the identifier used in provider configs.
const Name = "memory"

// Backend registers the memory backend into a bank.Table.
type Backend struct{}

// Register implements bank.Backend.
func (Backend) Register(t *bank.Table) {
	t.Register(Name, func(ctx context.Context, opts bank.Options) (bank.Plugin, error) {
		return New(), nil
	})
}

// Store keeps objects in a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates an empty store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) CreateObject(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; exists {
		return bank.ErrObjectExists
	}
	s.objects[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) UpdateObject(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.objects[key]
	if !ok {
		return nil, bank.ErrObjectNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

func (s *Store) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
