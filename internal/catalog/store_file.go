package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps the whole collection as a JSON array in one file. Reads
// always go to disk. Appends are serialized and replace the file atomically.
type FileStore struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Path() string { return s.path }

// Seed writes items to the backing file if it does not exist yet.
func (s *FileStore) Seed(items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return storageErr("stat", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return storageErr("mkdir", s.path, err)
	}
	return s.writeAll(items)
}

func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return storageErr("stat", s.path, err)
	}
	return nil
}

func (s *FileStore) ReadAll(_ context.Context) ([]Item, error) {
	return s.readAll()
}

func (s *FileStore) FindByID(_ context.Context, id int64) (Item, bool, error) {
	items, err := s.readAll()
	if err != nil {
		return Item{}, false, err
	}
	it, ok := findByID(items, id)
	return it, ok, nil
}

func (s *FileStore) Append(_ context.Context, n NewItem) (Item, error) {
	if err := n.Validate(); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.readAll()
	if err != nil {
		return Item{}, err
	}

	it := Item{
		ID:       nextID(s.now(), items),
		Name:     n.Name,
		Category: n.Category,
		Price:    n.Price,
	}

	next := make([]Item, 0, len(items)+1)
	next = append(next, items...)
	next = append(next, it)

	if err := s.writeAll(next); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (s *FileStore) readAll() ([]Item, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, storageErr("read", s.path, err)
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, storageErr("parse", s.path, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// writeAll writes to a sibling temp file and renames it over the backing
// file. Callers hold s.mu.
func (s *FileStore) writeAll(items []Item) error {
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return storageErr("encode", s.path, err)
	}

	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := writeSynced(tmp, raw); err != nil {
		_ = os.Remove(tmp)
		return storageErr("write", s.path, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return storageErr("replace", s.path, err)
	}
	return nil
}

func writeSynced(path string, raw []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// nextID is the current time in milliseconds, bumped past the largest id
// already stored. Two processes writing the same file can still collide.
func nextID(now time.Time, items []Item) int64 {
	id := now.UnixMilli()
	for _, it := range items {
		if it.ID >= id {
			id = it.ID + 1
		}
	}
	return id
}
