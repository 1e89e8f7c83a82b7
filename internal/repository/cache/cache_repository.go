package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const archivesKey = "archives:inventory"

type cacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCacheRepository(redis *Redis) repository.CacheRepository {
	return &cacheRepository{
		client: redis.Client(),
		logger: redis.logger,
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Cache miss
	}
	if err != nil {
		r.logger.Error("Failed to get from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	r.logger.Debug("Cache hit", zap.String("key", key))
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.client.Set(ctx, key, value, ttl).Err()
	if err != nil {
		r.logger.Error("Failed to set cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set error: %w", err)
	}

	r.logger.Debug("Cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, key).Err()
	if err != nil {
		r.logger.Error("Failed to delete from cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache delete error: %w", err)
	}

	r.logger.Debug("Cache deleted", zap.String("key", key))
	return nil
}

// GetArchives получает инвентарь архивов из кеша
func (r *cacheRepository) GetArchives(ctx context.Context) (*domain.ArchiveInventory, error) {
	data, err := r.Get(ctx, archivesKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil // Cache miss
	}

	var inv domain.ArchiveInventory
	if err := json.Unmarshal(data, &inv); err != nil {
		r.logger.Error("Failed to unmarshal archives from cache", zap.Error(err))
		return nil, fmt.Errorf("unmarshal archives: %w", err)
	}

	return &inv, nil
}

// SetArchives сохраняет инвентарь архивов в кеше
func (r *cacheRepository) SetArchives(ctx context.Context, inv *domain.ArchiveInventory, ttl time.Duration) error {
	data, err := json.Marshal(inv)
	if err != nil {
		r.logger.Error("Failed to marshal archives", zap.Error(err))
		return fmt.Errorf("marshal archives: %w", err)
	}

	return r.Set(ctx, archivesKey, data, ttl)
}

func (r *cacheRepository) InvalidateArchives(ctx context.Context) error {
	return r.Delete(ctx, archivesKey)
}
