package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/apperrors"
	"github.com/scrutinise/ownership-engine/pkg/config"
	"github.com/scrutinise/ownership-engine/pkg/database"
	"github.com/scrutinise/ownership-engine/pkg/llm"
	"github.com/scrutinise/ownership-engine/pkg/ocr"
	"github.com/scrutinise/ownership-engine/pkg/registry"
	"github.com/scrutinise/ownership-engine/pkg/repositories"
	"github.com/scrutinise/ownership-engine/pkg/services"
	"github.com/scrutinise/ownership-engine/pkg/workqueue"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("scheduler_workers", cfg.Scheduler.Workers))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate(cfg, logger); err != nil {
		logger.Fatal("Migrations failed", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	cache := newRegistryCache(cfg, logger)

	companies := registry.NewCompaniesClient(registry.Options{
		BaseURL:  cfg.Registry.CompaniesBaseURL,
		APIKey:   cfg.Registry.CompaniesAPIKey,
		Cache:    cache,
		CacheTTL: cfg.Registry.CacheTTL(),
		Timeout:  cfg.Registry.Timeout(),
		Logger:   logger,
	})
	documents := registry.NewDocumentClient(registry.Options{
		BaseURL:  cfg.Registry.DocumentBaseURL,
		APIKey:   cfg.Registry.CompaniesAPIKey,
		Cache:    cache,
		CacheTTL: cfg.Registry.CacheTTL(),
		Timeout:  cfg.Registry.Timeout(),
		Logger:   logger,
	})

	// The charity register is optional; without credentials the engine
	// resolves and enriches against the companies register only.
	var charities *registry.CharityClient
	if cfg.Registry.CharityAPIKey != "" {
		charities = registry.NewCharityClient(registry.Options{
			BaseURL:  cfg.Registry.CharityBaseURL,
			APIKey:   cfg.Registry.CharityAPIKey,
			Cache:    cache,
			CacheTTL: cfg.Registry.CacheTTL(),
			Timeout:  cfg.Registry.Timeout(),
			Logger:   logger,
		})
	} else {
		logger.Warn("Charity registry API key not set, charity lookups disabled")
	}

	llmClient, err := llm.NewClientForProvider(&llm.Config{
		Provider: cfg.LLM.Provider,
		Endpoint: cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  cfg.LLM.Timeout(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	extractor := services.NewDocumentExtractor(
		ocr.NewExtractor(logger), llmClient,
		cfg.LLM.Timeout(), cfg.LLM.MaxAttempts, logger)
	shareholders := services.NewShareholderResolver(
		companies, documents, extractor, cfg.Resolution.FilingWindow, logger)
	resolver := services.NewEntityResolver(companies, charities, logger)
	trees := services.NewTreeBuilder(
		companies, resolver, shareholders, cfg.Resolution.MaxDepth, logger)
	enricher := services.NewEnrichmentService(
		companies, charities, shareholders, trees, logger)

	repo := repositories.NewEntityRepository(db)
	queue := workqueue.New(logger,
		workqueue.WithStrategy(workqueue.NewBoundedStrategy(cfg.Scheduler.Workers)))
	scheduler := services.NewScheduler(
		repo, enricher, queue, cfg.Scheduler.MaxRetries, cfg.Scheduler.RetryBase(), logger)
	intake := services.NewIntakeService(resolver, repo, scheduler, logger)

	// Records left running by a previous process go back into the queue.
	if err := scheduler.Recover(ctx); err != nil {
		logger.Fatal("Failed to recover abandoned records", zap.Error(err))
	}

	mux := http.NewServeMux()
	registerRoutes(mux, cfg, repo, intake, logger)

	srv := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting ownership-engine",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server shutdown error", zap.Error(err))
	}
	queue.Cancel()
}

// newRegistryCache returns the shared registry response cache: Redis when
// configured, otherwise in-process.
func newRegistryCache(cfg *config.Config, logger *zap.Logger) registry.Cache {
	if cfg.Redis.Addr == "" {
		logger.Info("Using in-memory registry cache")
		return registry.NewMemoryCache()
	}
	client, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory registry cache", zap.Error(err))
		return registry.NewMemoryCache()
	}
	logger.Info("Using Redis registry cache", zap.String("addr", cfg.Redis.Addr))
	return registry.NewRedisCache(client)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// migrate opens a short-lived database/sql connection for golang-migrate.
func migrate(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return database.RunMigrations(sqlDB, "migrations", logger)
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, repo repositories.EntityRepository, intake *services.IntakeService, logger *zap.Logger) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /entities", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := intake.Register(r.Context(), req.Name)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				writeError(w, http.StatusConflict, "entity already registered")
				return
			}
			logger.Error("Intake failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "registration failed")
			return
		}

		status := http.StatusCreated
		if result.Record == nil {
			// Ambiguous name: candidates returned, nothing persisted.
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, result, logger)
	})

	mux.HandleFunc("GET /entities/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid entity id")
			return
		}

		record, err := repo.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				writeError(w, http.StatusNotFound, "entity not found")
				return
			}
			logger.Error("Entity lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, record, logger)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
