// Package blob selects a snapshot object store. Callers depend on Store;
// only this package imports the drivers.
package blob

import (
	"context"
	"fmt"

	"roomcore/internal/blob/core"
	"roomcore/internal/infra/blob/fs"
	memorystore "roomcore/internal/infra/blob/memory"
	infraS3 "roomcore/internal/infra/blob/s3"
)

type (
	Driver     = core.Driver
	Store      = core.Store
	Info       = core.Info
	PutOptions = core.PutOptions
	// S3Config configures the S3 driver.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrNotExist is wrapped by Get for missing keys.
var ErrNotExist = core.ErrNotExist

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the configured backend. An empty driver selects the
// filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }
