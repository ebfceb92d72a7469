package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GSN-OMG/Prism/pkg/audit"
	"github.com/GSN-OMG/Prism/pkg/auth"
	"github.com/GSN-OMG/Prism/pkg/config"
	"github.com/GSN-OMG/Prism/pkg/database"
	"github.com/GSN-OMG/Prism/pkg/handlers"
	"github.com/GSN-OMG/Prism/pkg/redaction"
	"github.com/GSN-OMG/Prism/pkg/repositories"
	"github.com/GSN-OMG/Prism/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// An invalid redaction policy aborts startup.
	policyPath, err := cfg.Redaction.ResolvedPolicyPath()
	if err != nil {
		logger.Fatal("Failed to resolve redaction policy path", zap.Error(err))
	}
	policyCache := redaction.NewPolicyCache()
	policy, err := policyCache.Load(policyPath)
	if err != nil {
		logger.Fatal("Failed to load redaction policy", zap.Error(err))
	}
	logger.Info("Loaded redaction policy",
		zap.String("path", policyPath),
		zap.String("version", policy.Version),
		zap.Int("rules", len(policy.Rules)))

	ctx := context.Background()

	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
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

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSURL:            cfg.Auth.JWKSURL,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	authMiddleware := auth.NewMiddleware(jwksClient, logger)

	auditor := audit.NewSecurityAuditor(logger)

	caseService := services.NewCaseService(
		db,
		repositories.NewCaseRepository(),
		repositories.NewCaseEventRepository(),
		repositories.NewCourtRunRepository(),
	)
	governance := services.NewPromptGovernanceService(
		db,
		repositories.NewPromptUpdateRepository(),
		repositories.NewRolePromptRepository(),
		policy,
		auditor,
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, policy.Version, logger).RegisterRoutes(mux)
	handlers.NewCaseHandler(caseService, logger).RegisterRoutes(mux)
	handlers.NewPromptUpdateHandler(governance, logger).RegisterRoutes(mux, authMiddleware)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting prism-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Env))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
