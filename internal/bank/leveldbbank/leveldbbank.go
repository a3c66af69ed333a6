// Package leveldbbank is a bank backend on top of an embedded LevelDB
// database.
package leveldbbank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Name is the identifier used in provider configs.
const Name = "leveldb"

// MemoryPath opens a database backed by memory storage instead of files.
const MemoryPath = ":memory:"

// Backend registers the LevelDB backend into a bank.Table.
type Backend struct{}

// Register implements bank.Backend. The "path" option is required.
func (Backend) Register(t *bank.Table) {
	t.Register(Name, func(ctx context.Context, opts bank.Options) (bank.Plugin, error) {
		path := opts.Get("path", "")
		if path == "" {
			return nil, fmt.Errorf("option 'path' is required")
		}
		return Open(path)
	})
}

// Store wraps a LevelDB handle.
type Store struct {
	db *leveldb.DB
	// createMu makes the existence check and the put of CreateObject atomic.
	createMu sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == MemoryPath {
		db, err = leveldb.Open(storage.NewMemStorage(), &opt.Options{})
	} else {
		db, err = leveldb.OpenFile(path, &opt.Options{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at '%s': %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateObject(ctx context.Context, key string, value []byte) error {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	exists, err := s.db.Has([]byte(key), nil)
	if err != nil {
		return bank.NewIOError("create", key, false, err)
	}
	if exists {
		return bank.ErrObjectExists
	}
	if err := s.db.Put([]byte(key), value, &opt.WriteOptions{Sync: true}); err != nil {
		return bank.NewIOError("create", key, false, err)
	}
	return nil
}

func (s *Store) UpdateObject(ctx context.Context, key string, value []byte) error {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	if err := s.db.Put([]byte(key), value, &opt.WriteOptions{Sync: true}); err != nil {
		return bank.NewIOError("update", key, false, err)
	}
	return nil
}

func (s *Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, bank.ErrObjectNotFound
		}
		return nil, bank.NewIOError("get", key, false, err)
	}
	return value, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	if err := s.db.Delete([]byte(key), nil); err != nil {
		return bank.NewIOError("delete", key, false, err)
	}
	return nil
}

// ListObjects returns keys in LevelDB order, which is bytewise and therefore
// already sorted.
func (s *Store) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, bank.NewIOError("list", prefix, false, err)
	}
	return keys, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
