package usecase

import (
	"context"

	"github.com/ev-tile-publisher/internal/domain"
	"go.uber.org/zap"
)

// KeyLister reports archive keys that exist on disk.
type KeyLister interface {
	AvailableKeys(ctx context.Context) ([]string, error)
}

// CatalogUseCase serves the catalog to the viewer. With discovery on, the
// declared availability list is extended with archives found in the output
// directory.
type CatalogUseCase struct {
	catalog  *domain.Catalog
	archives KeyLister
	discover bool
	logger   *zap.Logger
}

func NewCatalogUseCase(catalog *domain.Catalog, archives KeyLister, discover bool, logger *zap.Logger) *CatalogUseCase {
	return &CatalogUseCase{
		catalog:  catalog,
		archives: archives,
		discover: discover,
		logger:   logger,
	}
}

// Current returns the catalog viewers should start from. Discovery errors
// fall back to the declared list.
func (uc *CatalogUseCase) Current(ctx context.Context) *domain.Catalog {
	if !uc.discover || uc.archives == nil {
		return uc.catalog
	}

	keys, err := uc.archives.AvailableKeys(ctx)
	if err != nil {
		uc.logger.Warn("Archive discovery failed, using declared availability", zap.Error(err))
		return uc.catalog
	}
	return uc.catalog.WithAvailable(keys)
}
