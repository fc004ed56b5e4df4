package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authapp "github.com/turtacn/flame-data/internal/application/auth"
	collectionapp "github.com/turtacn/flame-data/internal/application/collection"
	reactionapp "github.com/turtacn/flame-data/internal/application/reaction"
	speciesapp "github.com/turtacn/flame-data/internal/application/species"
	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/chem"
	"github.com/turtacn/flame-data/internal/infrastructure/database/postgres"
	"github.com/turtacn/flame-data/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/flame-data/internal/infrastructure/database/redis"
	"github.com/turtacn/flame-data/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/flame-data/internal/infrastructure/storage/minio"
	httpapi "github.com/turtacn/flame-data/internal/interfaces/http"
	"github.com/turtacn/flame-data/internal/interfaces/http/handlers"
	"github.com/turtacn/flame-data/internal/interfaces/http/middleware"
)

// App holds every wired dependency of a running process. Fields a command
// does not need may stay nil.
type App struct {
	Species     speciesapp.Service
	Reactions   reactionapp.Service
	Collections collectionapp.Service
	Auth        authapp.Service

	DB       *postgres.Connection
	Redis    *redis.Client
	Oracle   *chem.Client
	Producer kafka.MessageProducer
	Storage  *minio.Client
	Metrics  *prometheus.AppMetrics
	Handler  http.Handler

	limiter *middleware.TokenBucketLimiter
	logger  logging.Logger
}

// Login and registration attempts allowed per client IP.
const (
	credentialRate  = 0.2
	credentialBurst = 10
)

// BootstrapFunc builds an App for a command.
type BootstrapFunc func(ctx context.Context, cc *CLIContext) (*App, error)

// Bootstrap connects every backing service named in the configuration and
// assembles the services, handlers and router. Partially built
// dependencies are released on failure.
func Bootstrap(ctx context.Context, cc *CLIContext) (*App, error) {
	app := &App{logger: cc.Logger}
	if err := app.wire(ctx, cc.Config); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, cfg *config.Config) error {
	log := a.logger

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	a.Metrics = prometheus.NewAppMetrics(collector)

	if a.DB, err = postgres.NewConnection(cfg.Database, log); err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := a.DB.RunMigrations(); err != nil {
			return err
		}
	}
	if a.Redis, err = redis.NewClient(cfg.Redis, log); err != nil {
		return err
	}
	if a.Oracle, err = chem.New(ctx, cfg.Oracle, log); err != nil {
		return err
	}
	var oracle identity.Oracle = a.Oracle
	if cfg.Oracle.Cache {
		cache := redis.NewRedisCache(a.Redis, log, redis.WithNamespace("oracle"), redis.WithDefaultTTL(cfg.Oracle.CacheTTL))
		oracle = chem.NewInstrumented(a.Oracle, cache, cfg.Oracle.CacheTTL, a.Metrics, log)
	}

	a.Producer = kafka.NopProducer{}
	if cfg.Kafka.Enabled {
		if err := ensureTopics(ctx, cfg.Kafka, log); err != nil {
			log.Warn("kafka topic provisioning failed", logging.Err(err))
		}
		p, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			return err
		}
		a.Producer = p
	}
	events := kafka.NewEvents(a.Producer, "flame-data", log)

	var storage collectionapp.ObjectStorage
	if cfg.Storage.Enabled {
		if a.Storage, err = minio.NewClient(cfg.Storage, log); err != nil {
			return err
		}
		storage = a.Storage
	}

	speciesRepo := repositories.NewPostgresSpeciesRepo(a.DB, log)
	a.Species = speciesapp.NewService(speciesRepo, oracle, events, a.Metrics, log)
	a.Reactions = reactionapp.NewService(repositories.NewPostgresReactionRepo(a.DB, log),
		a.Species, speciesRepo, oracle, events, a.Metrics, log)
	a.Collections = collectionapp.NewService(repositories.NewPostgresCollectionRepo(a.DB, log),
		storage, cfg.Auth.DefaultCollection, log)
	sessions := redis.NewSessionStore(a.Redis, cfg.Auth.SessionTTL, log)
	a.Auth = authapp.NewService(repositories.NewPostgresUserRepo(a.DB, log), sessions, cfg.Auth, a.Metrics, log)

	a.Handler = a.router(cfg, collector)
	return nil
}

func (a *App) router(cfg *config.Config, collector prometheus.MetricsCollector) http.Handler {
	gin.SetMode(cfg.Server.Mode)

	checks := []handlers.HealthChecker{
		handlers.CheckFunc{Component: "postgres", Fn: a.DB.HealthCheck},
		handlers.CheckFunc{Component: "redis", Fn: a.Redis.Ping},
		handlers.CheckFunc{Component: "oracle", Fn: a.Oracle.Ping},
	}
	if a.Storage != nil {
		checks = append(checks, handlers.CheckFunc{Component: "storage", Fn: a.Storage.HealthCheck})
	}

	a.limiter = middleware.NewTokenBucketLimiter(credentialRate, credentialBurst, time.Minute)

	routerCfg := httpapi.RouterConfig{
		AuthHandler:       handlers.NewAuthHandler(a.Auth, cfg.Auth),
		SpeciesHandler:    handlers.NewSpeciesHandler(a.Species, a.Collections, a.logger),
		ReactionHandler:   handlers.NewReactionHandler(a.Reactions, a.Collections, a.logger),
		CollectionHandler: handlers.NewCollectionHandler(a.Collections),
		HealthHandler:     handlers.NewHealthHandler(Version, checks...),
		AuthMiddleware:    middleware.NewAuthMiddleware(a.Auth, cfg.Auth.CookieName, a.logger),
		CredentialLimiter: a.limiter,
		CORS:              cfg.CORS,
		Logging: middleware.LoggingConfig{
			SkipPaths:     middleware.DefaultLoggingConfig().SkipPaths,
			SlowThreshold: cfg.Server.SlowRequest,
		},
		MaxBodySize: cfg.Server.MaxBodySize,
		Logger:      a.logger,
		Metrics:     a.Metrics,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	return httpapi.NewRouter(routerCfg)
}

func ensureTopics(ctx context.Context, cfg config.KafkaConfig, log logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Brokers, log)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics())
}

// Close releases every connected dependency in reverse order of creation.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Storage != nil {
		_ = a.Storage.Close()
	}
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil && a.logger != nil {
			a.logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if a.Oracle != nil {
		_ = a.Oracle.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
