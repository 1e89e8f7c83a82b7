package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ev-tile-publisher/internal/catalog"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCatalogUseCase_Current(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("declared list without discovery", func(t *testing.T) {
		lister := stubKeyLister{keys: []string{"tactran_range_feasibility"}}
		uc := usecase.NewCatalogUseCase(cat, lister, false, zap.NewNop())

		assert.Same(t, cat, uc.Current(ctx))
		assert.False(t, uc.Current(ctx).IsAvailable("tactran_range_feasibility"))
	})

	t.Run("discovered archives extend the list", func(t *testing.T) {
		lister := stubKeyLister{keys: []string{"tactran_range_feasibility"}}
		uc := usecase.NewCatalogUseCase(cat, lister, true, zap.NewNop())

		current := uc.Current(ctx)
		assert.True(t, current.IsAvailable("tactran_range_feasibility"))
		assert.True(t, current.IsAvailable("hitrans_range_feasibility"))
		assert.False(t, cat.IsAvailable("tactran_range_feasibility"))
	})

	t.Run("discovery failure falls back", func(t *testing.T) {
		uc := usecase.NewCatalogUseCase(cat, stubKeyLister{err: errors.New("disk gone")}, true, zap.NewNop())
		assert.Same(t, cat, uc.Current(ctx))
	})
}
