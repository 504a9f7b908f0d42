// Package content persists classified page content under a deterministic,
// tenant-scoped key scheme.
package content

import "context"

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStore abstracts the blob backend (GCS in production, memory in
// tests). Put overwrites unconditionally; existence checks belong to the
// caller.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	// Head returns the object size and true when the key exists.
	Head(ctx context.Context, key string) (int64, bool, error)
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)
	Delete(ctx context.Context, keys []string) error
}
