package storagefake

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/jrsteele09/go-dept-admin/session"
)

var _ session.Storage = (*FakeStorage)(nil)

// ErrInjected is returned for keys configured to fail.
var ErrInjected = errors.New("injected storage failure")

// FakeStorage is an in-memory session.Storage with per-key failure injection.
type FakeStorage struct {
	values     map[string]string
	failGet    map[string]bool
	failSet    map[string]bool
	failRemove map[string]bool
	lock       sync.RWMutex
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		values:     make(map[string]string),
		failGet:    make(map[string]bool),
		failSet:    make(map[string]bool),
		failRemove: make(map[string]bool),
	}
}

// NewFakeStorageWith returns a FakeStorage seeded with values.
func NewFakeStorageWith(values map[string]string) *FakeStorage {
	fs := NewFakeStorage()
	maps.Copy(fs.values, values)
	return fs
}

func (fs *FakeStorage) Get(_ context.Context, key string) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.failGet[key] {
		return "", ErrInjected
	}
	v, ok := fs.values[key]
	if !ok {
		return "", session.ErrKeyNotFound
	}
	return v, nil
}

func (fs *FakeStorage) Set(_ context.Context, key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.failSet[key] {
		return ErrInjected
	}
	fs.values[key] = value
	return nil
}

func (fs *FakeStorage) Remove(_ context.Context, key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.failRemove[key] {
		return ErrInjected
	}
	delete(fs.values, key)
	return nil
}

// Snapshot returns a copy of every stored key.
func (fs *FakeStorage) Snapshot() map[string]string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return maps.Clone(fs.values)
}

// FailGet makes Get fail for key.
func (fs *FakeStorage) FailGet(key string, fail bool) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failGet[key] = fail
}

// FailSet makes Set fail for key.
func (fs *FakeStorage) FailSet(key string, fail bool) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failSet[key] = fail
}

// FailRemove makes Remove fail for key.
func (fs *FakeStorage) FailRemove(key string, fail bool) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failRemove[key] = fail
}
