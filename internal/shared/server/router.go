package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"internship-matcher/internal/services/health"
	"internship-matcher/internal/shared/config"
	"internship-matcher/internal/shared/metrics"
	"internship-matcher/internal/shared/server/middleware"
	"internship-matcher/internal/shared/server/respond"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config       config.Config
	Health       *health.Service
	Profiles     RouteRegistrar
	Catalog      RouteRegistrar
	Matching     RouteRegistrar
	Applications RouteRegistrar
	Bookmarks    RouteRegistrar
	Dashboard    RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthHandler := func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, health.Report{OK: true, Checks: map[string]string{}})
			return
		}
		rep := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !rep.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, rep)
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)

	authed := api.Group("")
	authed.Use(
		middleware.Auth(deps.Config.IsDev()),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst},
			},
		}),
	)
	registerMeRoutes(authed)
	for _, h := range []RouteRegistrar{
		deps.Profiles,
		deps.Catalog,
		deps.Matching,
		deps.Applications,
		deps.Bookmarks,
		deps.Dashboard,
	} {
		if h != nil {
			h.RegisterRoutes(authed)
		}
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
