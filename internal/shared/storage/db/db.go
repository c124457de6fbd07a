package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	_ "modernc.org/sqlite"             // sqlite database/sql driver

	"internship-matcher/internal/shared/telemetry"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

const defaultPingTimeout = 5 * time.Second

var errEmptyURL = errors.New("DATABASE_URL is empty")

// Options controls pool sizing and the connectivity check.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// IsLambdaRuntime reports whether the process runs inside AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultLambdaOptions keeps the pool small; many Lambda instances share one database.
func DefaultLambdaOptions() Options {
	return Options{MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxIdleTime: 30 * time.Second, ConnMaxLifetime: 15 * time.Minute, PingTimeout: 3 * time.Second}
}

// DefaultServerOptions suits the long-running API and worker processes.
func DefaultServerOptions() Options {
	return Options{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: defaultPingTimeout}
}

// DefaultMigrateOptions suits one-shot migration runs.
func DefaultMigrateOptions() Options {
	return Options{MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: defaultPingTimeout}
}

// OptionsFromEnv applies DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS,
// DB_CONN_MAX_LIFETIME, DB_CONN_MAX_IDLE_TIME and DB_PING_TIMEOUT on top of
// defaults. Unparseable values are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	envInt("DB_MAX_OPEN_CONNS", &opts.MaxOpenConns)
	envInt("DB_MAX_IDLE_CONNS", &opts.MaxIdleConns)
	envDuration("DB_CONN_MAX_LIFETIME", &opts.ConnMaxLifetime)
	envDuration("DB_CONN_MAX_IDLE_TIME", &opts.ConnMaxIdleTime)
	envDuration("DB_PING_TIMEOUT", &opts.PingTimeout)
	return opts
}

// forDriver fills zero values and applies driver limits.
func (o Options) forDriver(driver string) Options {
	if driver == DriverSQLite {
		// sqlite serializes writers, and :memory: databases live on one connection.
		o.MaxOpenConns, o.MaxIdleConns = 1, 1
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 10
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 5
	}
	o.MaxIdleConns = min(o.MaxIdleConns, o.MaxOpenConns)
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = time.Hour
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPingTimeout
	}
	return o
}

func (o Options) apply(db *sql.DB) {
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)
	if o.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(o.ConnMaxIdleTime)
	}
}

var openDB = sql.Open

// Connect opens a pool for driver (pgx when empty) and pings it. Callers
// share the returned *sql.DB.
func Connect(ctx context.Context, driver, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errEmptyURL
	}
	if driver == "" {
		driver = DriverPostgres
	}

	db, err := openDB(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	opts = opts.forDriver(driver)
	opts.apply(db)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	stats := db.Stats()
	telemetry.Info("db.connected", map[string]any{
		"driver":   driver,
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return db, nil
}

// shared is a pool opened at most once per process. A failed open leaves it
// empty so the next caller retries; concurrent callers wait for the open in
// flight instead of racing their own.
type shared struct {
	mu      sync.Mutex
	done    *sync.Cond
	db      *sql.DB
	opening bool
}

func newShared() *shared {
	s := &shared{}
	s.done = sync.NewCond(&s.mu)
	return s
}

var process = newShared()

func (s *shared) get(ctx context.Context, driver, databaseURL string, opts Options) (*sql.DB, error) {
	s.mu.Lock()
	for s.opening && s.db == nil {
		s.done.Wait()
	}
	if s.db != nil {
		db := s.db
		s.mu.Unlock()
		telemetry.Debug("db.singleton_reuse", nil)
		return db, nil
	}
	s.opening = true
	s.mu.Unlock()

	db, err := Connect(ctx, driver, databaseURL, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opening = false
	s.done.Broadcast()
	if err != nil {
		return nil, err
	}
	s.db = db
	telemetry.Info("db.singleton_init", map[string]any{"driver": driver})
	return db, nil
}

// GetSingleton returns the process-wide pool, opening it on first use. Warm
// Lambda invocations reuse it.
func GetSingleton(ctx context.Context, driver, databaseURL string, opts Options) (*sql.DB, error) {
	return process.get(ctx, driver, databaseURL, opts)
}

func envInt(key string, dst *int) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
		return
	}
	*dst = v
}

func envDuration(key string, dst *time.Duration) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
		return
	}
	*dst = v
}
