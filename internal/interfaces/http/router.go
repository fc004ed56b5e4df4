package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/flame-data/internal/interfaces/http/handlers"
	"github.com/turtacn/flame-data/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	SpeciesHandler    *handlers.SpeciesHandler
	ReactionHandler   *handlers.ReactionHandler
	CollectionHandler *handlers.CollectionHandler
	HealthHandler     *handlers.HealthHandler

	AuthMiddleware    *middleware.AuthMiddleware
	CredentialLimiter *middleware.TokenBucketLimiter
	CORS              config.CORSConfig
	Logging           middleware.LoggingConfig
	MaxBodySize       int64

	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter builds the gin engine: global middleware, public probes and the
// /api tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if len(cfg.CORS.AllowOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORS))
	}
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	}
	r.Use(middleware.Metrics(cfg.Metrics))
	if cfg.MaxBodySize > 0 {
		r.Use(bodyLimit(cfg.MaxBodySize))
	}
	if cfg.AuthMiddleware != nil {
		r.Use(cfg.AuthMiddleware.Session())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "Not found"})
	})

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api")
	registerAuthRoutes(api, cfg.AuthHandler, cfg.CredentialLimiter)
	registerSpeciesRoutes(api, cfg.SpeciesHandler)
	registerReactionRoutes(api, cfg.ReactionHandler)
	registerCollectionRoutes(api, cfg.CollectionHandler)

	return r
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func registerAuthRoutes(r *gin.RouterGroup, h *handlers.AuthHandler, limiter *middleware.TokenBucketLimiter) {
	if h == nil {
		return
	}
	r.GET("/@me", h.Me)
	r.POST("/login", middleware.RateLimit(limiter), h.Login)
	r.POST("/register", middleware.RateLimit(limiter), h.Register)
	r.POST("/logout", h.Logout)
}

// registerSpeciesRoutes mounts /species. Reads are public; writes need a
// session.
func registerSpeciesRoutes(r *gin.RouterGroup, h *handlers.SpeciesHandler) {
	if h == nil {
		return
	}
	g := r.Group("/species", middleware.RequireUserForWrites())
	g.GET("/lookup", h.Lookup)
	g.GET("/connectivity", h.Search)
	g.GET("/connectivity/:id", h.Get)
	g.POST("/connectivity", h.Add)
	g.POST("/connectivity/batch", h.AddBatch)
	g.DELETE("/connectivity/:id", h.Delete)
	g.PUT("/:id", h.UpdateGeometry)
}

func registerReactionRoutes(r *gin.RouterGroup, h *handlers.ReactionHandler) {
	if h == nil {
		return
	}
	g := r.Group("/reaction", middleware.RequireUserForWrites())
	g.GET("/lookup", h.Lookup)
	g.GET("/connectivity", h.Search)
	g.GET("/connectivity/:id", h.Get)
	g.POST("/connectivity", h.Add)
	g.DELETE("/connectivity/:id", h.Delete)
	g.PUT("/ts/:id", h.UpdateTSGeometry)
}

// registerCollectionRoutes mounts /collection. Every route needs a session.
func registerCollectionRoutes(r *gin.RouterGroup, h *handlers.CollectionHandler) {
	if h == nil {
		return
	}
	g := r.Group("/collection", middleware.RequireUser())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/export", h.Export)
	g.POST("/species/:id", h.AddSpecies)
	g.DELETE("/species/:id", h.RemoveSpecies)
	g.POST("/reaction/:id", h.AddReactions)
	g.DELETE("/reaction/:id", h.RemoveReactions)
}
