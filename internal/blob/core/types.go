// Package core holds the object store contract shared by the blob drivers
// and the snapshot gateway that writes through them.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver names a backend.
type Driver string

// Backends understood by blob.Open.
const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrNotExist reports a key with no object behind it. Drivers wrap it.
var ErrNotExist = errors.New("blob: object does not exist")

// PutOptions carries the optional attributes of a write. Metadata should
// stay small; S3 caps it at 2KB.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info is what a driver knows about one stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store reads and writes whole objects under flat keys. Put overwrites.
// Delete reports whether the key existed. List orders results by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}
