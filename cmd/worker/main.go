package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ev-tile-publisher/internal/catalog"
	"github.com/ev-tile-publisher/internal/config"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"github.com/ev-tile-publisher/internal/infrastructure/toolchain"
	"github.com/ev-tile-publisher/internal/pkg/logger"
	"github.com/ev-tile-publisher/internal/repository/cache"
	"github.com/ev-tile-publisher/internal/repository/postgres"
	redisRepo "github.com/ev-tile-publisher/internal/repository/redis"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/ev-tile-publisher/internal/worker"
	"github.com/ev-tile-publisher/internal/worker/conversion"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}
	if !cfg.RedisEnabled() {
		fmt.Println("Worker needs Redis. Set REDIS_HOST to enable the conversion queue.")
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Conversion Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("batch_size", cfg.Worker.BatchSize),
		zap.String("input_dir", cfg.Pipeline.InputDir),
		zap.String("output_dir", cfg.Pipeline.OutputDir))

	cat, err := catalog.Load(cfg.Viewer.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load catalog", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 4. Optional run ledger
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
		runRepo = postgres.NewRunRepository(db)
	}

	// 5. Initialize repositories
	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), cfg.Worker.StreamReadTimeout, log)

	runner := toolchain.NewExecRunner(log, cfg.Pipeline.ToolTimeout)
	gdal := toolchain.NewGDAL(runner, cfg.Pipeline.Ogr2OgrPath, log)
	tippecanoe := toolchain.NewTippecanoe(runner, cfg.Pipeline.TippecanoePath, log)

	// 6. Initialize use cases
	conversionUC := usecase.NewConversionUseCase(cat, gdal, tippecanoe, cfg.Pipeline, log)
	batchUC := usecase.NewBatchUseCase(cat, conversionUC, runRepo, cacheRepo, cfg.Pipeline, log)
	queueUC := usecase.NewQueueUseCase(batchUC, streamRepo, log)

	// 7. Initialize workers
	conversionWorker := conversion.NewConversionWorker(
		streamRepo,
		queueUC,
		batchUC,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.BatchSize,
		log,
	)

	// 8. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(log)
	workerManager.Register(conversionWorker)

	// Start workers
	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("Received shutdown signal")
	case <-workerManager.Done():
		log.Error("Workers exited", zap.Error(workerManager.Err()))
	}

	// Cancel context to stop workers
	cancel()

	// Stop worker manager
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	for _, st := range workerManager.Stats() {
		log.Info("Worker summary",
			zap.String("name", st.Name),
			zap.Int64("processed", st.Processed),
			zap.Int64("failed", st.Failed))
	}

	log.Info("Worker shutdown complete")
}
