// Package blob provides the document storage backends behind the asset
// reference store. Keys are content hashes, so writes are idempotent: putting
// the same key twice is a no-op that returns the existing object.
package blob

import (
	"context"
	"errors"
	"io"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverMemory is the in-memory implementation used in tests and dev.
	DriverMemory Driver = "memory"
	// DriverFilesystem is the local filesystem implementation.
	DriverFilesystem Driver = "fs"
	// DriverS3 is an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
)

// Info describes a stored blob.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is the interface for blob storage backends. The registry core only
// ever sees keys and sizes; document bytes stay behind this boundary.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Driver() Driver
}

// ErrNotFound indicates the key has no stored object.
var ErrNotFound = errors.New("blob: not found")
