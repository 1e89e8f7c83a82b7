package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"go.uber.org/zap"
)

// ArchiveUseCase lists published archives, using the cache when possible.
type ArchiveUseCase struct {
	catalog   *domain.Catalog
	cacheRepo repository.CacheRepository
	outputDir string
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewArchiveUseCase создает новый экземпляр ArchiveUseCase. cacheRepo may be nil.
func NewArchiveUseCase(
	catalog *domain.Catalog,
	cacheRepo repository.CacheRepository,
	outputDir string,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ArchiveUseCase {
	return &ArchiveUseCase{
		catalog:   catalog,
		cacheRepo: cacheRepo,
		outputDir: outputDir,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// List returns the archive inventory.
func (uc *ArchiveUseCase) List(ctx context.Context) (*domain.ArchiveInventory, error) {
	// 1. cache
	if uc.cacheRepo != nil {
		cached, err := uc.cacheRepo.GetArchives(ctx)
		if err == nil && cached != nil {
			uc.logger.Debug("Archive inventory fetched from cache")
			return cached, nil
		}
		if err != nil {
			uc.logger.Warn("Failed to get archives from cache", zap.Error(err))
		}
	}

	// 2. filesystem
	inv, err := uc.scan()
	if err != nil {
		return nil, err
	}

	// 3. store
	if uc.cacheRepo != nil {
		if err := uc.cacheRepo.SetArchives(ctx, inv, uc.cacheTTL); err != nil {
			uc.logger.Warn("Failed to cache archives", zap.Error(err))
		}
	}
	return inv, nil
}

// AvailableKeys returns the keys of archives that exist and the catalog
// recognises. Unknown files are ignored.
func (uc *ArchiveUseCase) AvailableKeys(ctx context.Context) ([]string, error) {
	inv, err := uc.List(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(inv.Archives))
	for _, a := range inv.Archives {
		if a.Stage != "" {
			keys = append(keys, a.Key)
		}
	}
	return keys, nil
}

func (uc *ArchiveUseCase) scan() (*domain.ArchiveInventory, error) {
	inv := &domain.ArchiveInventory{GeneratedAt: time.Now().UTC()}

	entries, err := os.ReadDir(uc.outputDir)
	if errors.Is(err, fs.ErrNotExist) {
		inv.Archives = []domain.Archive{}
		inv.TotalSize = humanize.Bytes(0)
		return inv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pmtiles" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		key := strings.TrimSuffix(e.Name(), ".pmtiles")
		a := domain.Archive{
			Key:        key,
			Bytes:      info.Size(),
			Size:       humanize.Bytes(uint64(info.Size())),
			ModifiedAt: info.ModTime().UTC(),
		}
		if region, stage, ok := uc.catalog.ParseArchiveKey(key); ok {
			a.Region = region
			a.Stage = stage
			a.Overlay = region == ""
		}
		inv.Archives = append(inv.Archives, a)
		inv.TotalBytes += a.Bytes
	}

	if inv.Archives == nil {
		inv.Archives = []domain.Archive{}
	}
	sort.Slice(inv.Archives, func(i, j int) bool {
		return inv.Archives[i].Key < inv.Archives[j].Key
	})
	inv.TotalSize = humanize.Bytes(uint64(inv.TotalBytes))
	return inv, nil
}
