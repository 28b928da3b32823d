// Package config loads runtime settings from ROOMCORE_* environment
// variables, optionally seeded from a dotenv file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"roomcore/internal/blob"
	"roomcore/internal/core"
	redisgw "roomcore/internal/infra/persistence/redis"
	"roomcore/pkg/domain"
)

// Prefix namespaces every variable read by Load.
const Prefix = "ROOMCORE_"

// Metrics exporters.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config holds every runtime setting.
type Config struct {
	Storage       core.StorageConfig
	SnapshotKey   string
	FlushTimeout  time.Duration
	ScenesFile    string
	InventoryFile string
	HTTPAddr      string
	LogLevel      slog.Level
	LogFormat     string
	AMQPURL       string
	AMQPQueue     string
	Metrics       string
	ZoneCapacity  int
	StrictZones   bool
	AdoptedAt     time.Time
}

// Lookup resolves one variable.
type Lookup func(key string) (string, bool)

// Load reads the process environment. Values from envFiles fill in
// variables the environment does not set; a missing file is skipped.
func Load(envFiles ...string) (Config, error) {
	fileVals := map[string]string{}
	for _, path := range envFiles {
		vals, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range vals {
			if _, seen := fileVals[k]; !seen {
				fileVals[k] = v
			}
		}
	}
	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	})
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup Lookup) (Config, error) {
	r := reader{lookup: lookup}
	cfg := Config{
		Storage: core.StorageConfig{
			Driver:      core.StorageDriver(r.str("STORAGE_DRIVER", string(core.StorageSQLite))),
			SQLitePath:  r.str("SQLITE_PATH", ""),
			PostgresDSN: r.str("POSTGRES_DSN", ""),
			MySQLDSN:    r.str("MYSQL_DSN", ""),
			Redis: redisgw.Options{
				Addr:     r.str("REDIS_ADDR", ""),
				Password: r.str("REDIS_PASSWORD", ""),
				DB:       r.integer("REDIS_DB", 0),
				Prefix:   r.str("REDIS_PREFIX", ""),
			},
			Blob: blob.Config{
				Driver: blob.Driver(r.str("BLOB_DRIVER", string(blob.DriverFilesystem))),
				FSRoot: r.str("BLOB_FS_ROOT", ""),
				S3: blob.S3Config{
					Bucket:          r.str("BLOB_S3_BUCKET", ""),
					Region:          r.str("BLOB_S3_REGION", ""),
					Endpoint:        r.str("BLOB_S3_ENDPOINT", ""),
					AccessKeyID:     r.str("BLOB_S3_ACCESS_KEY_ID", ""),
					SecretAccessKey: r.str("BLOB_S3_SECRET_ACCESS_KEY", ""),
					SessionToken:    r.str("BLOB_S3_SESSION_TOKEN", ""),
					PathStyle:       r.boolean("BLOB_S3_PATH_STYLE", false),
				},
			},
			BlobPrefix: r.str("BLOB_PREFIX", ""),
		},
		SnapshotKey:   r.str("SNAPSHOT_KEY", core.DefaultSnapshotKey),
		FlushTimeout:  r.duration("FLUSH_TIMEOUT", 0),
		ScenesFile:    r.str("SCENES_FILE", ""),
		InventoryFile: r.str("INVENTORY_FILE", ""),
		HTTPAddr:      r.str("HTTP_ADDR", ":8080"),
		LogLevel:      r.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat:     strings.ToLower(r.str("LOG_FORMAT", "text")),
		AMQPURL:       r.str("AMQP_URL", ""),
		AMQPQueue:     r.str("AMQP_QUEUE", ""),
		Metrics:       strings.ToLower(r.str("METRICS", MetricsExpvar)),
		ZoneCapacity:  r.integer("ZONE_CAPACITY", 0),
		StrictZones:   r.boolean("STRICT_ZONES", false),
		AdoptedAt:     r.date("ADOPTED_AT"),
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		r.fail("LOG_FORMAT", cfg.LogFormat, errors.New("want text or json"))
	}
	switch cfg.Metrics {
	case MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		r.fail("METRICS", cfg.Metrics, errors.New("want none, expvar or prometheus"))
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds the slog logger described by the config.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RulesEngine returns the placement rules selected by the config.
func (c Config) RulesEngine() *core.RulesEngine {
	engine := core.NewRulesEngine()
	severity := domain.SeverityWarn
	if c.StrictZones {
		severity = domain.SeverityBlock
	}
	engine.Register(core.NewZonePlaceableRule(severity))
	if c.ZoneCapacity > 0 {
		engine.Register(core.NewZoneCapacityRule(c.ZoneCapacity))
	}
	return engine
}

type reader struct {
	lookup Lookup
	errs   []error
}

func (r *reader) raw(key string) (string, bool) {
	v, ok := r.lookup(Prefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) fail(key, value string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s%s=%q: %w", Prefix, key, value, err))
}

func (r *reader) str(key, def string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.fail(key, v, err)
		return def
	}
	return lvl
}

// date accepts RFC 3339 timestamps or plain dates.
func (r *reader) date(key string) time.Time {
	v, ok := r.raw(key)
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC()
		}
	}
	r.fail(key, v, errors.New("want RFC 3339 or YYYY-MM-DD"))
	return time.Time{}
}
