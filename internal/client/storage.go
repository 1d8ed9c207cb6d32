package client

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
)

// Local slots.
const (
	SlotCart    = "cart"
	SlotSession = "session"
	SlotCatalog = "catalog"
)

// Storage keeps small named blobs across process restarts.
type Storage interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, data []byte) error
}

// FileStorage stores every key as <Dir>/<key>.json.
type FileStorage struct {
	Dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}
	return &FileStorage{Dir: dir}, nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

func (s *FileStorage) Load(key string) ([]byte, bool, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s", key)
	}
	return b, true, nil
}

// Save replaces the slot atomically so a crash never leaves half a file.
func (s *FileStorage) Save(key string, data []byte) error {
	tmp, err := os.CreateTemp(s.Dir, key+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "save %s", key)
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return errors.Wrapf(err, "save %s", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return errors.Wrapf(err, "save %s", key)
	}
	if err := os.Rename(name, s.path(key)); err != nil {
		_ = os.Remove(name)
		return errors.Wrapf(err, "save %s", key)
	}
	return nil
}

// MemStorage is a Storage that forgets everything on exit.
type MemStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStorage() *MemStorage {
	return &MemStorage{data: map[string][]byte{}}
}

func (s *MemStorage) Load(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (s *MemStorage) Save(key string, data []byte) error {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}
