package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// ErrBlobNotFound is returned by MemBlobs.Fetch for unknown keys.
var ErrBlobNotFound = errors.New("blob not found")

// MemBlobs is an in-memory blob store. Presigned URLs are fake but carry the
// key, TTL and filename so tests can assert on them.
type MemBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	fetchErrs map[string]error
	deleted   []string

	// DeleteErr, when set, is returned by DeleteMany after recording the keys.
	DeleteErr error
	// PresignErr, when set, is returned by both presign methods.
	PresignErr error
}

// NewMemBlobs returns an empty blob store.
func NewMemBlobs() *MemBlobs {
	return &MemBlobs{
		objects:   make(map[string][]byte),
		fetchErrs: make(map[string]error),
	}
}

// Put stores an object.
func (b *MemBlobs) Put(key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
}

// FailFetch makes Fetch of key return err.
func (b *MemBlobs) FailFetch(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchErrs[key] = err
}

// Has reports whether key is stored.
func (b *MemBlobs) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// Deleted returns every key passed to DeleteMany, in call order.
func (b *MemBlobs) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

func (b *MemBlobs) PresignUpload(ctx context.Context, key, mimeType string, ttl time.Duration) (string, error) {
	if b.PresignErr != nil {
		return "", b.PresignErr
	}
	q := url.Values{}
	q.Set("op", "put")
	q.Set("content-type", mimeType)
	q.Set("expires", fmt.Sprint(int(ttl.Seconds())))
	return "https://blobs.test/" + key + "?" + q.Encode(), nil
}

func (b *MemBlobs) PresignDownload(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	if b.PresignErr != nil {
		return "", b.PresignErr
	}
	q := url.Values{}
	q.Set("op", "get")
	q.Set("filename", filename)
	q.Set("expires", fmt.Sprint(int(ttl.Seconds())))
	return "https://blobs.test/" + key + "?" + q.Encode(), nil
}

func (b *MemBlobs) DeleteMany(ctx context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, keys...)
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	for _, k := range keys {
		delete(b.objects, k)
	}
	return nil
}

// Fetch returns the object body.
func (b *MemBlobs) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fetchErrs[key]; err != nil {
		return nil, err
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrBlobNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
