package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"internship-matcher/internal/applications"
	"internship-matcher/internal/bookmarks"
	"internship-matcher/internal/catalog"
	"internship-matcher/internal/dashboard"
	"internship-matcher/internal/matching"
	"internship-matcher/internal/notify"
	"internship-matcher/internal/profiles"
	"internship-matcher/internal/queue"
	"internship-matcher/internal/services/health"
	"internship-matcher/internal/shared/config"
	"internship-matcher/internal/shared/server"
	"internship-matcher/internal/shared/storage/cache"
	"internship-matcher/internal/shared/storage/db"
	"internship-matcher/internal/shared/storage/object"
	localstore "internship-matcher/internal/shared/storage/object/local"
	s3store "internship-matcher/internal/shared/storage/object/s3"
	"internship-matcher/internal/shared/telemetry"
	"internship-matcher/internal/taxonomy"
)

const defaultRegion = "us-east-1"

// App holds shared dependencies and the HTTP router built over them.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Redis    *redis.Client
	Store    object.ObjectStore
	Taxonomy *taxonomy.Taxonomy

	CatalogIndex        *catalog.Index
	CatalogService      *catalog.Service
	ProfilesService     *profiles.Service
	MatchingService     *matching.Service
	ApplicationsService *applications.Service
	BookmarksService    *bookmarks.Service
	DashboardService    *dashboard.Service
	Health              *health.Service
	Notifications       *notify.Dispatcher
}

// Build connects storage, loads the catalog and wires every service and
// handler. Dev-like environments fall back to in-memory storage when a
// backing service is unavailable.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	tax, err := buildTaxonomy(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rdb, err := buildRedis(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	target, err := buildNotifier(ctx, cfg, rdb)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config:        cfg,
		DB:            sqlDB,
		Redis:         rdb,
		Store:         store,
		Taxonomy:      tax,
		Notifications: notify.NewDispatcher(target, notify.DefaultTimeout),
	}
	buildServices(app)

	if err := loadCatalog(ctx, app); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       cfg,
		Health:       app.Health,
		Profiles:     profiles.NewHandler(app.ProfilesService),
		Catalog:      catalog.NewHandler(app.CatalogService),
		Matching:     matching.NewHandler(app.MatchingService),
		Applications: applications.NewHandler(app.ApplicationsService),
		Bookmarks:    bookmarks.NewHandler(app.BookmarksService),
		Dashboard:    dashboard.NewHandler(app.DashboardService),
	})
	return app, nil
}

// Close waits briefly for pending notifications, then releases connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notify.DefaultTimeout)
	defer cancel()
	if err := a.Notifications.Wait(ctx); err != nil {
		telemetry.Warn("bootstrap.notifications_pending", map[string]any{"error": err.Error()})
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if !db.IsLambdaRuntime() {
		closeDB(a.DB)
	}
}

func buildTaxonomy(cfg config.Config) (*taxonomy.Taxonomy, error) {
	if strings.TrimSpace(cfg.TaxonomyFile) == "" {
		return taxonomy.Default(), nil
	}
	tax, err := taxonomy.Load(cfg.TaxonomyFile)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy %s: %w", cfg.TaxonomyFile, err)
	}
	return tax, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == db.DriverSQLite {
		dsn := strings.TrimSpace(cfg.DatabaseURL)
		if dsn == "" {
			dsn = ":memory:"
		}
		return db.OpenSQLite(ctx, dsn)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDev() {
			telemetry.Info("bootstrap.memory_storage", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, db.DriverPostgres, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, db.DriverPostgres, cfg.DatabaseURL, opts)
	}
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB, db.DriverPostgres)
	}
	if err != nil {
		if cfg.IsDev() {
			telemetry.Warn("bootstrap.memory_storage", map[string]any{"reason": "database unavailable", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.IsDev() {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return rdb, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, region(cfg), cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildNotifier fans transitions out to every configured channel. Without
// any, events are only logged.
func buildNotifier(ctx context.Context, cfg config.Config, rdb *redis.Client) (notify.Notifier, error) {
	var targets notify.Multi
	if url := strings.TrimSpace(cfg.NotifyQueueURL); url != "" {
		client, err := queue.NewSQSClient(ctx, region(cfg), url)
		if err != nil {
			return nil, err
		}
		targets = append(targets, notify.Queue{Client: client})
	}
	if rdb != nil && strings.TrimSpace(cfg.NotifyRedisChannel) != "" {
		targets = append(targets, notify.Redis{Client: rdb, Channel: cfg.NotifyRedisChannel})
	}
	switch len(targets) {
	case 0:
		return notify.Log{}, nil
	case 1:
		return targets[0], nil
	default:
		return targets, nil
	}
}

func buildServices(app *App) {
	var (
		profileRepo profiles.Repo
		catalogRepo catalog.Repo
		appRepo     applications.Repo
		marks       bookmarks.Store
	)
	if app.DB != nil {
		profileRepo = &profiles.SQLRepo{DB: app.DB}
		catalogRepo = &catalog.SQLRepo{DB: app.DB}
		appRepo = &applications.SQLRepo{DB: app.DB}
		marks = &bookmarks.SQLStore{DB: app.DB}
	} else {
		profileRepo = profiles.NewMemoryRepo()
		catalogRepo = catalog.NewMemoryRepo()
		appRepo = applications.NewMemoryRepo()
		marks = bookmarks.NewMemoryStore()
	}
	if app.Redis != nil {
		marks = bookmarks.NewRedisStore(app.Redis)
	}

	index := catalog.NewIndex()
	app.CatalogIndex = index
	app.CatalogService = catalog.NewService(index, catalogRepo, app.Taxonomy)
	app.ProfilesService = profiles.NewService(profiles.NewNormalizer(app.Taxonomy), profileRepo)

	app.MatchingService = matching.NewService(index, app.ProfilesService,
		matching.NewRanker(app.Config.MatchMinScore, app.Config.MatchMaxPageSize))
	app.MatchingService.Tax = app.Taxonomy

	app.ApplicationsService = applications.NewService(appRepo, index, app.Notifications)
	app.BookmarksService = bookmarks.NewService(marks, index)
	app.DashboardService = dashboard.NewService(app.ApplicationsService, app.BookmarksService, app.MatchingService, index)

	app.Health = health.NewService(index, app.DB, nil)
	if app.Redis != nil {
		app.Health.Redis = app.Redis
	}
}

// loadCatalog fills the index from the repository, then layers the configured
// feed on top. A missing feed is logged, not fatal.
func loadCatalog(ctx context.Context, app *App) error {
	if err := app.CatalogService.Refresh(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	key := strings.TrimSpace(app.Config.CatalogFeedKey)
	if key == "" {
		return nil
	}
	start := time.Now()
	res, err := app.CatalogService.ImportFeed(ctx, app.Store, key)
	if err != nil {
		telemetry.Warn("bootstrap.feed_import_failed", map[string]any{"key": key, "error": err.Error()})
		return nil
	}
	telemetry.Info("bootstrap.feed_imported", map[string]any{
		"key":         key,
		"accepted":    res.Accepted,
		"rejected":    len(res.Rejected),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func region(cfg config.Config) string {
	if r := strings.TrimSpace(cfg.AWSRegion); r != "" {
		return r
	}
	return defaultRegion
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}
