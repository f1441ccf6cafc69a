package clientdata

import "context"

// Storage is the raw string key/value backend under a Repository.
// Implementations do not interpret values; TTL handling lives in the Repository.
type Storage interface {
	// Read returns the stored value. ok is false when the key does not exist.
	Read(ctx context.Context, key string) (value string, ok bool, err error)
	// Write upserts a value.
	Write(ctx context.Context, key, value string) error
	// Delete removes keys and reports how many existed.
	Delete(ctx context.Context, keys ...string) (int, error)
	// Keys lists every key starting with prefix. An empty prefix lists all keys.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
