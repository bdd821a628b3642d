package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/audit"
	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
	"github.com/ripclass/trdrhub.com-sub003/pkg/config"
	"github.com/ripclass/trdrhub.com-sub003/pkg/database"
	"github.com/ripclass/trdrhub.com-sub003/pkg/handlers"
	"github.com/ripclass/trdrhub.com-sub003/pkg/logging"
	"github.com/ripclass/trdrhub.com-sub003/pkg/middleware"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
	"github.com/ripclass/trdrhub.com-sub003/pkg/repositories"
	"github.com/ripclass/trdrhub.com-sub003/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("redis_host", cfg.Redis.Host))

	ctx := context.Background()

	// Migrations run over database/sql; the app itself uses pgx pools.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient == nil {
		logger.Info("Redis not configured; merge locking falls back to conditional writes")
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to initialize JWKS client", zap.Error(err))
	}
	authMiddleware := auth.NewMiddleware(jwksClient, logger)
	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger))

	sessionRepo := repositories.NewSessionRepository()
	recordRepo := repositories.NewMergeRecordRepository()
	transactor := repositories.NewTransactor()

	auditLog := audit.NewEventLogger(logger)
	matcher := services.NewSimilarityMatcher(sessionRepo, &cfg.Dedup, logger)
	coordinator := services.NewMergeCoordinator(sessionRepo, recordRepo, transactor, redisClient, auditLog, &cfg.Dedup, logger)
	sessionService := services.NewSessionService(sessionRepo, recordRepo, &models.DefaultLCSchema, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	duplicatesHandler := handlers.NewDuplicatesHandler(matcher, coordinator, logger)
	duplicatesHandler.RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	sessionsHandler := handlers.NewSessionsHandler(sessionService, logger)
	sessionsHandler.RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting dedup-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
