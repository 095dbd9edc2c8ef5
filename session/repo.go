package session

import "context"

// Storage is the key/value persistence scope a Store owns its keys in.
// Get returns ErrKeyNotFound for absent keys. Remove of an absent key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
