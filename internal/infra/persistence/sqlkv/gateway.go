// Package sqlkv persists room snapshots as JSON documents in a single
// `state(bucket, payload)` table. Each snapshot key is one bucket row,
// rewritten in full on every save.
package sqlkv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"roomcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistenceGateway = (*Gateway)(nil)

// Dialect carries the driver name and statements for one SQL engine.
type Dialect struct {
	Name        string
	DriverName  string
	CreateTable string
	Upsert      string
	Select      string
	Delete      string
}

// SQLite stores payloads in a BLOB column.
var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	CreateTable: `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
	Upsert: `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
	Select: `SELECT payload FROM state WHERE bucket = ?`,
	Delete: `DELETE FROM state WHERE bucket = ?`,
}

// Postgres stores payloads as JSONB through the pgx stdlib driver.
var Postgres = Dialect{
	Name:       "postgres",
	DriverName: "pgx",
	CreateTable: `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
	Upsert: `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload`,
	Select: `SELECT payload FROM state WHERE bucket = $1`,
	Delete: `DELETE FROM state WHERE bucket = $1`,
}

// MySQL stores payloads in a JSON column.
var MySQL = Dialect{
	Name:       "mysql",
	DriverName: "mysql",
	CreateTable: `CREATE TABLE IF NOT EXISTS state (
		bucket VARCHAR(191) PRIMARY KEY,
		payload JSON NOT NULL
	)`,
	Upsert: `INSERT INTO state(bucket,payload) VALUES(?,?) ON DUPLICATE KEY UPDATE payload=VALUES(payload)`,
	Select: `SELECT payload FROM state WHERE bucket = ?`,
	Delete: `DELETE FROM state WHERE bucket = ?`,
}

// Defaults for the open helpers.
const (
	DefaultSQLitePath  = "roomcore.db"
	DefaultPostgresDSN = "postgres://localhost/roomcore?sslmode=disable"
	DefaultMySQLDSN    = "root@tcp(127.0.0.1:3306)/roomcore"
)

// Gateway is a snapshot gateway over database/sql.
type Gateway struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

// New wraps an open database, creating the state table if needed.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Gateway, error) {
	if _, err := db.ExecContext(ctx, dialect.CreateTable); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	return &Gateway{db: db, dialect: dialect}, nil
}

// Open connects with dialect's driver, verifies the connection and
// prepares the state table.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Gateway, error) {
	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	g, err := New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return g, nil
}

// OpenSQLite opens (creating when needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*Gateway, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return Open(ctx, SQLite, path)
}

// OpenPostgres connects to a Postgres server.
func OpenPostgres(ctx context.Context, dsn string) (*Gateway, error) {
	if dsn == "" {
		dsn = DefaultPostgresDSN
	}
	return Open(ctx, Postgres, dsn)
}

// OpenMySQL connects to a MySQL server. The DSN is normalised so JSON
// columns scan as bytes and timestamps parse.
func OpenMySQL(ctx context.Context, dsn string) (*Gateway, error) {
	normalized, err := NormalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	return Open(ctx, MySQL, normalized)
}

// NormalizeMySQLDSN parses dsn and enables the options the gateway relies on.
func NormalizeMySQLDSN(dsn string) (string, error) {
	if dsn == "" {
		dsn = DefaultMySQLDSN
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

// Dialect returns the engine the gateway talks to.
func (g *Gateway) Dialect() Dialect { return g.dialect }

// DB exposes the underlying sql.DB for integration testing hooks.
func (g *Gateway) DB() *sql.DB { return g.db }

// Save upserts the snapshot stored under key.
func (g *Gateway) Save(ctx context.Context, key string, state domain.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.db.ExecContext(ctx, g.dialect.Upsert, key, string(data)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Load reads the snapshot stored under key.
func (g *Gateway) Load(ctx context.Context, key string) (domain.RoomState, bool, error) {
	var payload []byte
	err := g.db.QueryRowContext(ctx, g.dialect.Select, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RoomState{}, false, nil
	}
	if err != nil {
		return domain.RoomState{}, false, fmt.Errorf("select %s: %w", key, err)
	}
	var state domain.RoomState
	if err := json.Unmarshal(payload, &state); err != nil {
		return domain.RoomState{}, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return state, true, nil
}

// Delete removes the snapshot stored under key.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.db.ExecContext(ctx, g.dialect.Delete, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (g *Gateway) Close() error { return g.db.Close() }
