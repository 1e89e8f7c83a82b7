package geopackage_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/repository/geopackage"
	"github.com/ev-tile-publisher/internal/repository/geopackage/gpkgtest"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func wideLayer(columns, rows int) gpkgtest.Layer {
	return gpkgtest.Layer{
		Table:        "output_areas",
		GeometryType: "MULTIPOLYGON",
		SRSID:        27700,
		Columns:      gpkgtest.Columns(columns),
		Rows:         rows,
		Row: func(i int) ([]interface{}, orb.Geometry) {
			values := make([]interface{}, columns)
			for j := range values {
				values[j] = float64(i*1000 + j)
			}
			return values, gpkgtest.Square(float64(i)*10, 0, 5)
		},
	}
}

func TestContainer_Inspect(t *testing.T) {
	ctx := context.Background()
	path := gpkgtest.Write(t, t.TempDir(), "areas.gpkg", wideLayer(450, 3))

	c, err := geopackage.Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	info, err := c.FirstLayer(ctx)
	require.NoError(t, err)

	assert.Equal(t, "output_areas", info.Table)
	assert.Equal(t, "geom", info.GeometryColumn)
	assert.Equal(t, "fid", info.PrimaryKey)
	assert.Len(t, info.Columns, 450)
	assert.Equal(t, "c000", info.Columns[0])
	assert.Equal(t, "EPSG:27700", info.CRS)
	assert.Equal(t, int64(3), info.RowCount)

	kind, ok := info.Kind()
	assert.True(t, ok)
	assert.Equal(t, domain.GeometryPolygon, kind)
}

func TestContainer_UndefinedCRS(t *testing.T) {
	ctx := context.Background()
	layer := wideLayer(2, 1)
	layer.SRSID = 0
	path := gpkgtest.Write(t, t.TempDir(), "nocrs.gpkg", layer)

	c, err := geopackage.Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	info, err := c.FirstLayer(ctx)
	require.NoError(t, err)
	assert.Empty(t, info.CRS)
}

func TestContainer_Scan(t *testing.T) {
	ctx := context.Background()
	path := gpkgtest.Write(t, t.TempDir(), "areas.gpkg", wideLayer(450, 5))

	c, err := geopackage.Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	info, err := c.FirstLayer(ctx)
	require.NoError(t, err)

	rng := &domain.ColumnRange{Start: 418, End: 438}
	columns := rng.Select(info.Columns)

	var features []*geojson.Feature
	n, err := c.Scan(ctx, info, columns,
		func(i int64) bool { return i%2 == 0 },
		func(f *geojson.Feature) error {
			features = append(features, f)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, features, 3)

	first := features[0]
	assert.Len(t, first.Properties, 20)
	assert.Equal(t, float64(418), first.Properties["c418"])
	assert.NotContains(t, first.Properties, "c438")
	assert.NotContains(t, first.Properties, "geom")

	poly, ok := first.Geometry.(orb.MultiPolygon)
	if !ok {
		single, isPoly := first.Geometry.(orb.Polygon)
		require.True(t, isPoly, "unexpected geometry %T", first.Geometry)
		poly = orb.MultiPolygon{single}
	}
	assert.Equal(t, orb.Point{0, 0}, poly[0][0][0])

	assert.Equal(t, float64(2000+418), features[1].Properties["c418"], "row 2 follows row 0")
}

func TestContainer_ScanCallbackError(t *testing.T) {
	ctx := context.Background()
	path := gpkgtest.Write(t, t.TempDir(), "areas.gpkg", wideLayer(1, 3))

	c, err := geopackage.Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	info, err := c.FirstLayer(ctx)
	require.NoError(t, err)

	stop := errors.New("stop")
	_, err = c.Scan(ctx, info, info.Columns, nil, func(*geojson.Feature) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestOpen_Missing(t *testing.T) {
	_, err := geopackage.Open(context.Background(), filepath.Join(t.TempDir(), "none.gpkg"), zap.NewNop())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestContainer_NoLayers(t *testing.T) {
	ctx := context.Background()
	path := gpkgtest.Write(t, t.TempDir(), "empty.gpkg")

	c, err := geopackage.Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.FirstLayer(ctx)
	assert.ErrorIs(t, err, geopackage.ErrNoLayers)
}
