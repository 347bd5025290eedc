package container

import (
	"context"

	"vibe-be/internal/config"
	"vibe-be/internal/repository"
	"vibe-be/internal/service"
	"vibe-be/internal/service/auth"
	"vibe-be/pkg/database"
	"vibe-be/pkg/logger"
	"vibe-be/pkg/ratelimit"
	"vibe-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *database.PostgresDB
	RedisClient *redis.Client
	Services    *service.Services
}

// New creates a new dependency injection container. PostgreSQL and Redis are
// both optional: without Redis the ingestion throttle falls back to a
// per-instance in-memory window, and without PostgreSQL sessions live in
// process memory. Either fallback is logged loudly since it changes the
// durability story.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, falling back to in-memory rate limiting")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, using in-memory rate limiting")
	}

	var db *database.PostgresDB
	if cfg.DatabaseURL != "" {
		pg, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize PostgreSQL pool, falling back to in-memory session storage")
		} else {
			db = pg
			log.Info("PostgreSQL pool initialized successfully")
		}
	} else {
		log.Info("Database URL not configured, using in-memory session storage")
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient)
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	var (
		sessionStore repository.SessionStore
		historyStore repository.SearchHistoryStore
		auditStore   repository.AuditStore
	)
	if db != nil {
		sessionStore = repository.NewSessionRepository(db, cfg.MaxActionsPerSession, cfg.SessionTTL)
		historyStore = repository.NewSearchHistoryRepository(db)
		auditStore = repository.NewAuditRepository(db)
	} else {
		sessionStore = repository.NewMemorySessionStore(cfg.MaxActionsPerSession, cfg.SessionTTL)
		historyStore = repository.NewMemorySearchHistoryStore()
		auditStore = repository.NewMemoryAuditStore()
	}

	services := &service.Services{
		Auth:      auth.NewService(cfg.AuthJWTSecret, log),
		Actions:   service.NewAnonymousActionService(sessionStore, limiter, auditStore, log, cfg.RateLimitMaxRequests, cfg.RateLimitWindow),
		Reconcile: service.NewReconcileService(sessionStore, historyStore, log),
		Sweeper:   service.NewSweeperService(sessionStore, auditStore, log, cfg.SweepSchedule),
	}

	return &Container{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		RedisClient: redisClient,
		Services:    services,
	}, nil
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetActionService returns the anonymous action service
func (c *Container) GetActionService() service.AnonymousActionService {
	return c.Services.Actions
}

// GetReconcileService returns the reconcile service
func (c *Container) GetReconcileService() service.ReconcileService {
	return c.Services.Reconcile
}

// GetSweeperService returns the expiry sweeper
func (c *Container) GetSweeperService() service.SweeperService {
	return c.Services.Sweeper
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetDB returns the PostgreSQL pool (may be nil if not configured)
func (c *Container) GetDB() *database.PostgresDB {
	return c.DB
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if the Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HasDB returns true if the PostgreSQL pool is available
func (c *Container) HasDB() bool {
	return c.DB != nil
}
