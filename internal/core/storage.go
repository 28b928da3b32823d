package core

import (
	"context"
	"fmt"

	"roomcore/internal/blob"
	blobgw "roomcore/internal/infra/persistence/blob"
	"roomcore/internal/infra/persistence/memory"
	redisgw "roomcore/internal/infra/persistence/redis"
	"roomcore/internal/infra/persistence/sqlkv"
	"roomcore/pkg/domain"
)

// StorageDriver identifies a snapshot gateway implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageMySQL    StorageDriver = "mysql"    // MySQL server
	StorageRedis    StorageDriver = "redis"    // Redis string key
	StorageBlob     StorageDriver = "blob"     // JSON object in a blob store
)

// SnapshotGateway is a persistence gateway that can also drop a snapshot.
type SnapshotGateway interface {
	domain.PersistenceGateway
	Delete(ctx context.Context, key string) error
}

// StorageConfig selects and configures a gateway.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	MySQLDSN    string
	Redis       redisgw.Options
	Blob        blob.Config
	BlobPrefix  string
}

// OpenGateway constructs the configured gateway. Defaults to sqlite when
// the driver is unset. Gateways holding connections implement io.Closer.
func OpenGateway(ctx context.Context, cfg StorageConfig) (SnapshotGateway, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.New(), nil
	case StorageSQLite:
		return opened(sqlkv.OpenSQLite(ctx, cfg.SQLitePath))
	case StoragePostgres:
		return opened(sqlkv.OpenPostgres(ctx, cfg.PostgresDSN))
	case StorageMySQL:
		return opened(sqlkv.OpenMySQL(ctx, cfg.MySQLDSN))
	case StorageRedis:
		return opened(redisgw.Open(ctx, cfg.Redis))
	case StorageBlob:
		store, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return blobgw.New(store, cfg.BlobPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// opened keeps a failed constructor's nil pointer out of the interface.
func opened[G SnapshotGateway](g G, err error) (SnapshotGateway, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}
