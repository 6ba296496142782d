// Package dir stores repository keys as files in a local directory. File
// names are the URL-safe base64 encoding of the key.
package dir

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/keshon/bvault/internal/fs"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/storage"
)

const tempPattern = ".tmp-*"

type Store struct {
	fs   fs.FS
	root string
}

// New opens the directory root. With create set a missing directory is
// created; otherwise it must already exist.
func New(fsys fs.FS, root string, create bool) (*Store, error) {
	if root == "" {
		return nil, errors.New("dir storage: empty path")
	}
	if !fsys.IsDir(root) {
		if !create {
			return nil, fmt.Errorf("dir storage %q: %w", root, storage.ErrInvalidRepository)
		}
		if err := fsys.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create %q: %w", root, err)
		}
	}
	s := &Store{fs: fsys, root: root}
	if err := s.CleanupTemp(); err != nil {
		return nil, err
	}
	return s, nil
}

// CleanupTemp removes temp files orphaned by interrupted writes. The store
// assumes a single writer, so every temp file found at open is stale.
func (s *Store) CleanupTemp() error {
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("cleanup %q: %w", s.root, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		p := filepath.Join(s.root, e.Name())
		logger.Debug("removing orphaned temp file", logger.KeyPath, p)
		if err := s.fs.Remove(p); err != nil && !s.fs.IsNotExist(err) {
			return fmt.Errorf("cleanup %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, storage.EncodeName(key))
}

func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", s.root, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		key, err := storage.DecodeName(e.Name())
		if err != nil {
			logger.Debug("ignoring foreign file", logger.KeyPath, e.Name())
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Store writes value to a temp file in the same directory and renames it
// over the key's file, so readers never see a partial value.
func (s *Store) Store(_ context.Context, key string, value []byte) error {
	w, tmp, err := s.fs.CreateTempFile(s.root, tempPattern)
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	if _, err := w.Write(value); err != nil {
		w.Close()
		s.fs.Remove(tmp)
		return fmt.Errorf("store %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("store %q: %w", key, err)
	}
	if err := s.fs.Rename(tmp, s.path(key)); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

func (s *Store) Retrieve(_ context.Context, key string) ([]byte, error) {
	data, err := s.fs.ReadFile(s.path(key))
	if err != nil {
		if s.fs.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("retrieve %q: %w", key, err)
	}
	return data, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.fs.Remove(s.path(key)); err != nil && !s.fs.IsNotExist(err) {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Destroy removes every file of the repository and then the directory.
func (s *Store) Destroy(_ context.Context) error {
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("destroy %q: %w", s.root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.root, e.Name())); err != nil {
			return fmt.Errorf("destroy %q: %w", s.root, err)
		}
	}
	if err := s.fs.Remove(s.root); err != nil {
		return fmt.Errorf("destroy %q: %w", s.root, err)
	}
	return nil
}
