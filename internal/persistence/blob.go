package persistence

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by Read when nothing is stored under the key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore persists opaque documents under string keys.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
