package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/config"
	"github.com/scanbench/scanbench-engine/pkg/database"
	"github.com/scanbench/scanbench-engine/pkg/handlers"
	"github.com/scanbench/scanbench-engine/pkg/logging"
	"github.com/scanbench/scanbench-engine/pkg/repositories"
	"github.com/scanbench/scanbench-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database_url", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.Int("matching_min_score", cfg.Matching.MinScore))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	// Migrations run over database/sql; the pgx stdlib driver shares the
	// connection settings with the pool.
	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	schemaRepo := repositories.NewSchemaRepository(db)
	resolver := services.NewAcquisitionResolver(logger)
	fetcher := services.ContentFetcher(schemaRepo.GetContent)

	store := services.NewWorkspaceStore(&services.WorkspaceStoreDeps{
		Resolver: resolver,
		Fetcher:  fetcher,
		Logger:   logger,
	})

	matching := services.NewMatchingService(&services.MatchingServiceDeps{
		Store: store,
		Scoring: services.NewMatchScoringEngine(&services.MatchScoringEngineDeps{
			Comparator:  services.NewFieldComparator(logger),
			Concurrency: cfg.Matching.ComparatorConcurrency,
			Logger:      logger,
		}),
		Suggester: services.NewMatchSuggester(&services.MatchSuggesterDeps{
			MinScore: cfg.Matching.MinScore,
			Logger:   logger,
		}),
		Logger: logger,
	})

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg).RegisterRoutes(mux)
	handlers.NewSchemaLibraryHandler(schemaRepo, resolver, logger).RegisterRoutes(mux)
	handlers.NewWorkspaceHandler(store, logger).RegisterRoutes(mux)
	handlers.NewMatchingHandler(matching, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting scanbench-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
