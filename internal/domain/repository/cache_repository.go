package repository

import (
	"context"
	"time"

	"github.com/ev-tile-publisher/internal/domain"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	// Get получает значение из кеша по ключу
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кеше с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет значение из кеша
	Delete(ctx context.Context, key string) error

	// GetArchives returns the cached archive inventory, nil on a miss.
	GetArchives(ctx context.Context) (*domain.ArchiveInventory, error)

	// SetArchives caches the archive inventory.
	SetArchives(ctx context.Context, inv *domain.ArchiveInventory, ttl time.Duration) error

	// InvalidateArchives drops the cached inventory after a conversion.
	InvalidateArchives(ctx context.Context) error
}
