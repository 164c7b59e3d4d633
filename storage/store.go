package storage

import (
	"context"
	"io"
	"time"
)

// Object is an open object body with its metadata.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// AssetStore is binary object storage keyed by caller-chosen keys.
// Get, Stream and Delete return an apperr NotFound error for a missing key.
type AssetStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Stream(ctx context.Context, key string) (*Object, error)
	Sign(ctx context.Context, key string, ttl time.Duration) (string, error)
}
