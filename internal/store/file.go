package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names kept from the original deployment so existing data directories
// can be reused as is.
var fileNames = map[string]string{
	CollectionUsers:  "users.json",
	CollectionTopics: "general_topics.json",
	CollectionLogs:   "logs.json",
}

// FileBackend keeps one JSON file per collection inside a directory.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Path returns the file backing a collection.
func (b *FileBackend) Path(name string) string {
	if f, ok := fileNames[name]; ok {
		return filepath.Join(b.dir, f)
	}
	return filepath.Join(b.dir, name+".json")
}

func (b *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

// Save writes to a temp file in the same directory and renames it over the
// target, so readers never observe a half written document.
func (b *FileBackend) Save(_ context.Context, name string, doc []byte) error {
	target := b.Path(name)
	tmp, err := os.CreateTemp(b.dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (b *FileBackend) Close() error { return nil }
