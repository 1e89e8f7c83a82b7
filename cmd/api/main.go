package main

// @title EV Tile Publisher API
// @version 1.0.0
// @description Publishes EV adoption analysis layers as PMTiles archives and drives the map viewer's selection state.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ev-tile-publisher/docs/swagger"
	"github.com/ev-tile-publisher/internal/catalog"
	"github.com/ev-tile-publisher/internal/config"
	httpDelivery "github.com/ev-tile-publisher/internal/delivery/http"
	"github.com/ev-tile-publisher/internal/delivery/http/handler"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"github.com/ev-tile-publisher/internal/pkg/logger"
	"github.com/ev-tile-publisher/internal/repository/cache"
	"github.com/ev-tile-publisher/internal/repository/postgres"
	redisRepo "github.com/ev-tile-publisher/internal/repository/redis"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/ev-tile-publisher/internal/viewer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting EV Tile Publisher API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("tile_base_url", cfg.Viewer.TileBaseURL),
		zap.String("output_dir", cfg.Pipeline.OutputDir),
	)

	// 3. Load catalog
	cat, err := catalog.Load(cfg.Viewer.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load catalog", zap.Error(err))
	}
	log.Info("Catalog loaded",
		zap.Int("regions", len(cat.Regions)),
		zap.Int("stages", len(cat.Stages)),
		zap.Int("available", len(cat.Available)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 4. Optional Redis: archive cache and conversion queue
	var (
		cacheRepo  repository.CacheRepository
		streamRepo repository.StreamRepository
		checks     = make(map[string]httpDelivery.HealthCheck)
	)
	if cfg.RedisEnabled() {
		redisClient, err := cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}()
		checks["redis"] = redisClient.Health
		cacheRepo = cache.NewCacheRepository(redisClient)
		streamRepo = redisRepo.NewStreamRepository(redisClient.Client(), cfg.Worker.StreamReadTimeout, log)
		log.Info("Redis connected")
	} else {
		log.Info("Redis not configured, archive cache and queue disabled")
	}

	// 5. Optional PostgreSQL: run ledger
	var runRepo repository.RunRepository
	if cfg.LedgerEnabled() {
		db, err := postgres.New(&cfg.Database, log)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close PostgreSQL connection", zap.Error(err))
			}
		}()
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to prepare run ledger schema", zap.Error(err))
		}
		checks["postgres"] = db.Health
		runRepo = postgres.NewRunRepository(db)
		log.Info("PostgreSQL connected")
	} else {
		log.Info("Database not configured, run ledger disabled")
	}

	// 6. Initialize Use Cases
	archiveUC := usecase.NewArchiveUseCase(cat, cacheRepo, cfg.Pipeline.OutputDir, cfg.Cache.ArchivesCacheTTL, log)
	catalogUC := usecase.NewCatalogUseCase(cat, archiveUC, cfg.Viewer.DiscoverArchives, log)
	runUC := usecase.NewRunUseCase(runRepo, log)

	var queueUC *usecase.QueueUseCase
	if streamRepo != nil {
		// planning needs only the catalog and paths, nothing is converted here
		planner := usecase.NewBatchUseCase(cat, nil, nil, nil, cfg.Pipeline, log)
		queueUC = usecase.NewQueueUseCase(planner, streamRepo, log)
	}

	log.Info("Use cases initialized")

	// 7. Viewer sessions and HTTP
	store := viewer.NewStore(cfg.Viewer.TileBaseURL, cfg.Viewer.SessionTTL, log)

	server := httpDelivery.NewServer(
		cfg,
		log,
		handler.NewViewerHandler(catalogUC, store, cfg.Viewer.TileBaseURL, log),
		handler.NewPipelineHandler(archiveUC, runUC, queueUC, log),
	)

	for name, check := range checks {
		server.AddHealthCheck(name, check)
	}

	log.Info("HTTP server initialized")

	// 8. Run until SIGINT/SIGTERM
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		return store.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}

	log.Info("Server stopped successfully")
}
