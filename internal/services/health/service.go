package health

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusUp   = "up"
	StatusDown = "down"

	checkTimeout = 2 * time.Second
)

var errNotReady = errors.New("not ready")

// Readiness reports whether a component has finished loading.
type Readiness interface {
	Ready() bool
}

// Service encapsulates health-related checks.
type Service struct {
	Catalog Readiness
	DB      *sql.DB
	Redis   redis.UniversalClient
}

// NewService constructs a new health service. Nil dependencies are skipped.
func NewService(catalog Readiness, db *sql.DB, rdb redis.UniversalClient) *Service {
	return &Service{Catalog: catalog, DB: db, Redis: rdb}
}

// Report is the health payload served over HTTP.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Ready reports whether the catalog has been loaded and can serve matches.
func (s *Service) Ready() bool {
	return s.Catalog == nil || s.Catalog.Ready()
}

// Status runs every configured check.
func (s *Service) Status(ctx context.Context) Report {
	rep := Report{OK: true, Checks: map[string]string{}}
	mark := func(name string, err error) {
		if err != nil {
			rep.OK = false
			rep.Checks[name] = StatusDown
			return
		}
		rep.Checks[name] = StatusUp
	}

	if s.Catalog != nil {
		if s.Catalog.Ready() {
			mark("catalog", nil)
		} else {
			mark("catalog", errNotReady)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if s.DB != nil {
		mark("database", s.DB.PingContext(ctx))
	}
	if s.Redis != nil {
		mark("redis", s.Redis.Ping(ctx).Err())
	}
	return rep
}
