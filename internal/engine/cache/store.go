package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultTTL applies when a store is opened with a zero TTL.
const DefaultTTL = 24 * time.Hour

const entryExt = ".json"

// Lookup errors.
var (
	ErrNotFound   = errors.New("cache entry not found")
	ErrExpired    = errors.New("cache entry expired")
	ErrInvalidKey = errors.New("cache key must be a hex digest")
)

// Store keeps entries as JSON files in one directory. It is safe for
// concurrent use within a process.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time

	mu sync.RWMutex
}

// Stats summarizes the store contents.
type Stats struct {
	Entries int
	Expired int
	Bytes   int64
}

// Open creates dir if needed and returns a store writing entries with ttl.
func Open(dir string, ttl time.Duration) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Dir returns the directory holding the entries.
func (s *Store) Dir() string { return s.dir }

// TTL returns the lifetime given to new entries.
func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns the data stored under key, ErrNotFound when there is none and
// ErrExpired when it has outlived its TTL.
func (s *Store) Get(key string) (json.RawMessage, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := readEntry(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if entry.ExpiredAt(s.now()) {
		return nil, ErrExpired
	}
	return entry.Data, nil
}

// Put stores data under key, replacing any previous entry. The file is
// written beside its final name and renamed into place.
func (s *Store) Put(key string, data json.RawMessage) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(newEntry(key, data, s.now(), s.ttl))
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key. Deleting a missing entry is not an error.
func (s *Store) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were removed.
func (s *Store) Clear() (int, error) {
	return s.removeWhere(func(string) bool { return true })
}

// Prune removes expired and unreadable entries and returns how many were
// removed.
func (s *Store) Prune() (int, error) {
	now := s.now()
	return s.removeWhere(func(path string) bool {
		entry, err := readEntry(path)
		return err != nil || entry.ExpiredAt(now)
	})
}

// Stats counts entries and their size on disk.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	now := s.now()
	err := s.walk(func(path string, info os.FileInfo) error {
		st.Entries++
		st.Bytes += info.Size()
		if entry, readErr := readEntry(path); readErr != nil || entry.ExpiredAt(now) {
			st.Expired++
		}
		return nil
	})
	return st, err
}

func (s *Store) removeWhere(match func(path string) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := s.walk(func(path string, _ os.FileInfo) error {
		if !match(path) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", filepath.Base(path), err)
		}
		removed++
		return nil
	})
	return removed, err
}

// walk calls fn for every entry file in the store directory.
func (s *Store) walk(fn func(path string, info os.FileInfo) error) error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != entryExt {
			continue
		}
		info, infoErr := de.Info()
		if infoErr != nil {
			continue
		}
		if err = fn(filepath.Join(s.dir, de.Name()), info); err != nil {
			return err
		}
	}
	return nil
}

// path maps key to its file, rejecting anything that is not a hex digest so
// keys can never escape the directory.
func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", ErrInvalidKey
	}
	if _, err := hex.DecodeString(key); err != nil {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key+entryExt), nil
}

func readEntry(path string) (Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err = json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("decoding cache entry %s: %w", filepath.Base(path), err)
	}
	return entry, nil
}
