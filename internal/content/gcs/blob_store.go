// Package gcs provides an ObjectStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/brandscan/brandscan/internal/content"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// BlobStore reads and writes brand content objects in a GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed object store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads data to the configured bucket, overwriting any existing
// object at the key.
func (s *BlobStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Head returns the object size and whether the key exists.
func (s *BlobStore) Head(ctx context.Context, key string) (int64, bool, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("object attrs: %w", err)
	}
	return attrs.Size, true, nil
}

// List enumerates objects under a prefix, up to limit when limit > 0.
func (s *BlobStore) List(ctx context.Context, prefix string, limit int) ([]content.ObjectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []content.ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate objects: %w", err)
		}
		out = append(out, content.ObjectInfo{Key: attrs.Name, Size: attrs.Size})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Delete removes the given keys one at a time; GCS has no bulk delete API,
// so the first failure aborts the batch and is reported to the caller.
func (s *BlobStore) Delete(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil &&
			!errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("delete object %s: %w", key, err)
		}
	}
	return nil
}
