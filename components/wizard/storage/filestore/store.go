// Package filestore persists wizard snapshots as JSON files on an afero
// filesystem.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/spf13/afero"
)

const fileExt = ".json"

// Store implements wizard.SnapshotStore with one file per key.
type Store struct {
	mu  sync.RWMutex
	fs  afero.Fs
	dir string
}

// New creates a store rooted at dir on fs. A nil fs uses the OS filesystem.
func New(fs afero.Fs, dir string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, dir: dir}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+fileExt)
}

// Get reads the snapshot stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, wizard.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("filestore: read %s: %w", key, err)
	}
	return data, nil
}

// Put writes payload atomically through a temp file and rename.
func (s *Store) Put(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("filestore: create directory: %w", err)
	}
	path := s.path(key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, payload, 0o600); err != nil {
		return fmt.Errorf("filestore: write temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("filestore: rename temp file: %w", err)
	}
	return nil
}

// Delete removes the snapshot of key. Missing files are ignored.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("filestore: delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys starting with prefix.
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("filestore: list %s: %w", s.dir, err)
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil || !strings.HasPrefix(key, prefix) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
