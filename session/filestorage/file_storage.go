// Package filestorage persists a storage scope as a single JSON object on disk,
// one file per portal profile.
package filestorage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/pkg/errors"
)

var _ session.Storage = (*FileStorage)(nil)

// FileStorage keeps key/value pairs in a JSON file. Every write replaces the
// file atomically so a crash never leaves a half-written scope behind.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// New returns a FileStorage at path, creating the parent directory.
func New(path string) (*FileStorage, error) {
	if path == "" {
		return nil, errors.New("[filestorage.New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestorage.New] create directory")
	}
	return &FileStorage{path: path}, nil
}

// Path is the backing file.
func (fs *FileStorage) Path() string {
	return fs.path
}

func (fs *FileStorage) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", session.ErrKeyNotFound
	}
	return v, nil
}

func (fs *FileStorage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.read()
	if err != nil {
		return err
	}
	values[key] = value
	return fs.write(values)
}

func (fs *FileStorage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return fs.write(values)
}

func (fs *FileStorage) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", fs.path)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(err, "decode %s", fs.path)
	}
	return values, nil
}

func (fs *FileStorage) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode scope")
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return errors.Wrapf(err, "replace %s", fs.path)
	}
	return nil
}
