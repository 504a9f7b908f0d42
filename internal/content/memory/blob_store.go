// Package memory provides an in-memory ObjectStore for development and
// tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/brandscan/brandscan/internal/content"
)

// BlobStore keeps objects in a map guarded by a mutex.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailKeys makes Put fail for matching keys, for batch-resilience tests.
	FailKeys map[string]error
}

// NewBlobStore constructs an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

// Put stores data under key.
func (s *BlobStore) Put(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailKeys[key]; ok {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	return nil
}

// Head reports the size of an object, if present.
func (s *BlobStore) Head(_ context.Context, key string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return 0, false, nil
	}
	return int64(len(data)), true, nil
}

// List enumerates keys under prefix in sorted order.
func (s *BlobStore) List(_ context.Context, prefix string, limit int) ([]content.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []content.ObjectInfo
	for key, data := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, content.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes the given keys.
func (s *BlobStore) Delete(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.objects, key)
	}
	return nil
}

// Get returns the stored bytes for a key, for test assertions.
func (s *BlobStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len returns the number of stored objects.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
