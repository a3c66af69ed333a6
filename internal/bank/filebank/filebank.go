// Package filebank stores bank objects as files under a root directory.
//
// A key "a/b" maps to "<root>/a/b.obj", so a key and its children can
// coexist. Writes go through a temporary file in the target directory and
// are published with a link (create) or a rename (update), so readers never
// see a partially written object. Temporary files never carry the object
// extension, so listings skip them while keeping dot-prefixed keys.
package filebank

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/fsutil"
)

// Name is the identifier used in provider configs.
const Name = "local"

const objectExt = ".obj"

// Backend registers the filesystem backend into a bank.Table.
type Backend struct{}

// Register implements bank.Backend. The "root" option is required.
func (Backend) Register(t *bank.Table) {
	t.Register(Name, func(ctx context.Context, opts bank.Options) (bank.Plugin, error) {
		root := opts.Get("root", "")
		if root == "" {
			return nil, fmt.Errorf("option 'root' is required")
		}
		return New(root)
	})
}

// Store is a filesystem bank backend.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a store over it.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bank root '%s': %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bank root '%s': %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key)) + objectExt
}

// writeTemp writes value to a fresh temporary file next to target.
func (s *Store) writeTemp(target string, value []byte) (string, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(value); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (s *Store) CreateObject(ctx context.Context, key string, value []byte) error {
	target := s.path(key)
	tmp, err := s.writeTemp(target, value)
	if err != nil {
		return bank.NewIOError("create", key, false, err)
	}
	defer os.Remove(tmp)

	// Link fails if target exists, which gives create-if-absent semantics.
	if err := os.Link(tmp, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return bank.ErrObjectExists
		}
		return bank.NewIOError("create", key, false, err)
	}
	return nil
}

func (s *Store) UpdateObject(ctx context.Context, key string, value []byte) error {
	target := s.path(key)
	tmp, err := s.writeTemp(target, value)
	if err != nil {
		return bank.NewIOError("update", key, false, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return bank.NewIOError("update", key, false, err)
	}
	return nil
}

func (s *Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, bank.ErrObjectNotFound
		}
		return nil, bank.NewIOError("get", key, false, err)
	}
	return data, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	target := s.path(key)
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return bank.NewIOError("delete", key, false, err)
	}
	s.pruneEmptyDirs(filepath.Dir(target))
	return nil
}

// pruneEmptyDirs removes empty directories from dir up to, but excluding,
// the root. It stops at the first directory that is not empty.
func (s *Store) pruneEmptyDirs(dir string) {
	for dir != s.root && strings.HasPrefix(dir, s.root+string(filepath.Separator)) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (s *Store) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	files, err := fsutil.FindAllFilesByExtension(s.root, objectExt)
	if err != nil {
		return nil, bank.NewIOError("list", prefix, false, err)
	}

	var keys []string
	for _, f := range files {
		rel, err := filepath.Rel(s.root, f)
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), objectExt)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return nil
}
