package usecase_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ev-tile-publisher/internal/catalog"
	"github.com/ev-tile-publisher/internal/config"
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/infrastructure/toolchain"
	"github.com/ev-tile-publisher/internal/repository/geopackage/gpkgtest"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPipelineConfig(t *testing.T) config.PipelineConfig {
	t.Helper()
	root := t.TempDir()
	tmp := filepath.Join(root, "tmp")
	require.NoError(t, os.MkdirAll(tmp, 0o755))

	return config.PipelineConfig{
		InputDir:        filepath.Join(root, "gpkg"),
		OutputDir:       filepath.Join(root, "pmtiles"),
		TempDir:         tmp,
		FallbackCRS:     "EPSG:27700",
		SampleSeed:      42,
		PolygonSimplify: config.SimplifyConfig{Tolerance: 0.0005, PreserveTopology: true},
		LineSimplify:    config.SimplifyConfig{Tolerance: 0.001},
		PolygonTiling:   config.TilingConfig{MinZoom: 4, MaxZoom: 12, Flags: []string{"--detect-shared-borders"}},
		LineTiling:      config.TilingConfig{MinZoom: 6, MaxZoom: 14},
		PointTiling:     config.TilingConfig{MinZoom: 5, MaxZoom: 14},
	}
}

func polygonLayer(srsID int32, rows int) gpkgtest.Layer {
	cols := gpkgtest.Columns(450)
	return gpkgtest.Layer{
		Table:        "zones",
		GeometryType: "MULTIPOLYGON",
		SRSID:        srsID,
		Columns:      cols,
		Rows:         rows,
		Row: func(i int) ([]interface{}, orb.Geometry) {
			values := make([]interface{}, len(cols))
			for j := range values {
				values[j] = float64(i*1000 + j)
			}
			return values, orb.MultiPolygon{gpkgtest.Square(float64(i)*100, 0, 50)}
		},
	}
}

func writeInput(t *testing.T, cfg config.PipelineConfig, region, stage string, layer gpkgtest.Layer) string {
	t.Helper()
	dir := filepath.Join(cfg.InputDir, region)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return gpkgtest.Write(t, dir, stage+".gpkg", layer)
}

func newBatch(t *testing.T, cat *domain.Catalog, cfg config.PipelineConfig, conv usecase.Converter) *usecase.BatchUseCase {
	t.Helper()
	return usecase.NewBatchUseCase(cat, conv, nil, nil, cfg, zap.NewNop())
}

func TestConversionUseCase_Convert(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("polygon stage end to end", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		writeInput(t, cfg, "hitrans", "adoption_propensity", polygonLayer(27700, 5))

		reproj := &copyReprojector{}
		compiler := &recordingCompiler{}
		uc := usecase.NewConversionUseCase(cat, reproj, compiler, cfg, zap.NewNop())

		item, err := newBatch(t, cat, cfg, uc).StageItem("hitrans", "adoption_propensity")
		require.NoError(t, err)

		res := uc.Convert(ctx, item)

		require.Equal(t, domain.StatusConverted, res.Status, res.Error)
		assert.Equal(t, "hitrans_adoption_propensity", res.Key)
		assert.Equal(t, "EPSG:27700", res.SourceCRS)
		assert.Equal(t, int64(5), res.InputRows)
		assert.Equal(t, int64(5), res.SampledRows)
		assert.Equal(t, int64(5), res.Features)
		assert.Equal(t, int64(len(archiveBytes)), res.OutputBytes)
		require.Len(t, res.Columns, 20)
		assert.Equal(t, "c418", res.Columns[0])
		assert.Equal(t, "c437", res.Columns[19])

		require.Len(t, reproj.requests, 1)
		assert.Equal(t, "EPSG:27700", reproj.requests[0].SourceCRS)
		assert.True(t, reproj.requests[0].MakeValid)
		assert.True(t, reproj.requests[0].PreserveTopology)
		assert.Equal(t, 0.0005, reproj.requests[0].Tolerance)

		require.Len(t, compiler.requests, 1)
		build := compiler.requests[0]
		assert.Equal(t, "hitrans_adoption_propensity", build.Layer)
		assert.Equal(t, item.OutputPath, build.Output)
		assert.Equal(t, 4, build.MinZoom)
		assert.Equal(t, 12, build.MaxZoom)
		assert.Equal(t, []string{"--detect-shared-borders"}, build.Flags)

		require.Len(t, compiler.features, 5)
		props := compiler.features[2].Properties
		assert.Len(t, props, 20)
		assert.Equal(t, 2418.0, props["c418"])
		assert.NotContains(t, props, "c438")

		_, err = os.Stat(item.OutputPath)
		assert.NoError(t, err)

		entries, err := os.ReadDir(cfg.TempDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "transient files must be removed")
	})

	t.Run("undefined CRS uses fallback", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		writeInput(t, cfg, "nestrans", "charging_potential", polygonLayer(0, 2))

		reproj := &copyReprojector{}
		uc := usecase.NewConversionUseCase(cat, reproj, &recordingCompiler{}, cfg, zap.NewNop())
		item, _ := newBatch(t, cat, cfg, uc).StageItem("nestrans", "charging_potential")

		res := uc.Convert(ctx, item)
		require.Equal(t, domain.StatusConverted, res.Status, res.Error)
		assert.Equal(t, "EPSG:27700", res.SourceCRS)
		assert.Equal(t, "EPSG:27700", reproj.requests[0].SourceCRS)
		assert.Len(t, res.Columns, 12, "range clipped to the 450 available columns")
	})

	t.Run("geographic input is not reprojected from a source CRS", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		writeInput(t, cfg, "spt", "adoption_propensity", polygonLayer(4326, 1))

		reproj := &copyReprojector{}
		uc := usecase.NewConversionUseCase(cat, reproj, &recordingCompiler{}, cfg, zap.NewNop())
		item, _ := newBatch(t, cat, cfg, uc).StageItem("spt", "adoption_propensity")

		res := uc.Convert(ctx, item)
		require.Equal(t, domain.StatusConverted, res.Status, res.Error)
		assert.Equal(t, "EPSG:4326", res.SourceCRS)
		assert.Empty(t, reproj.requests[0].SourceCRS)
	})

	t.Run("line layer is sampled and simplified in process", func(t *testing.T) {
		sampled := *cat
		sampled.Sampling = domain.SamplingPolicy{Thresholds: []domain.SampleThreshold{{MinBytes: 0, Rate: 0.1}}}

		cfg := testPipelineConfig(t)
		cols := gpkgtest.Columns(20)
		writeInput(t, cfg, "hitrans", "range_feasibility", gpkgtest.Layer{
			Table:        "routes",
			GeometryType: "LINESTRING",
			SRSID:        27700,
			Columns:      cols,
			Rows:         100,
			Row: func(i int) ([]interface{}, orb.Geometry) {
				values := make([]interface{}, len(cols))
				for j := range values {
					values[j] = int64(i)
				}
				x := float64(i)
				return values, orb.LineString{{x, 0}, {x + 0.5, 0.00001}, {x + 1, 0}}
			},
		})

		reproj := &copyReprojector{}
		compiler := &recordingCompiler{}
		uc := usecase.NewConversionUseCase(&sampled, reproj, compiler, cfg, zap.NewNop())
		item, _ := newBatch(t, &sampled, cfg, uc).StageItem("hitrans", "range_feasibility")

		res := uc.Convert(ctx, item)
		require.Equal(t, domain.StatusConverted, res.Status, res.Error)
		assert.Equal(t, int64(100), res.InputRows)
		assert.Equal(t, int64(10), res.SampledRows)
		assert.Equal(t, int64(10), res.Features)
		assert.Len(t, res.Columns, 14)
		assert.False(t, reproj.requests[0].PreserveTopology)

		require.Len(t, compiler.features, 10)
		line, ok := compiler.features[0].Geometry.(orb.LineString)
		require.True(t, ok)
		assert.Len(t, line, 2, "middle vertex is within tolerance")

		// same seed, same rows
		again := uc.Convert(ctx, item)
		require.Equal(t, domain.StatusConverted, again.Status)
		assert.Equal(t, compiler.features[:10], compiler.features[10:])
	})

	t.Run("empty geometries are dropped", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		layer := polygonLayer(27700, 4)
		row := layer.Row
		layer.Row = func(i int) ([]interface{}, orb.Geometry) {
			values, g := row(i)
			if i%2 == 1 {
				return values, nil
			}
			return values, g
		}
		writeInput(t, cfg, "tactran", "priority_zones", layer)

		compiler := &recordingCompiler{}
		uc := usecase.NewConversionUseCase(cat, &copyReprojector{}, compiler, cfg, zap.NewNop())
		item, _ := newBatch(t, cat, cfg, uc).StageItem("tactran", "priority_zones")

		res := uc.Convert(ctx, item)
		require.Equal(t, domain.StatusConverted, res.Status, res.Error)
		assert.Equal(t, int64(2), res.Features)
		assert.Len(t, compiler.features, 2)
	})

	t.Run("missing input is skipped", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		reproj := &copyReprojector{}
		compiler := &recordingCompiler{}
		uc := usecase.NewConversionUseCase(cat, reproj, compiler, cfg, zap.NewNop())
		item, _ := newBatch(t, cat, cfg, uc).StageItem("zetrans", "adoption_propensity")

		res := uc.Convert(ctx, item)
		assert.Equal(t, domain.StatusSkipped, res.Status)
		assert.Empty(t, reproj.requests)
		assert.Empty(t, compiler.requests)
	})

	t.Run("tool failure keeps diagnostics", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		writeInput(t, cfg, "sestran", "adoption_propensity", polygonLayer(27700, 1))

		reproj := &copyReprojector{err: &toolchain.ToolError{
			Tool:     "ogr2ogr",
			ExitCode: 1,
			Stderr:   "ERROR 1: PROJ: proj_create: unrecognized format",
		}}
		compiler := &recordingCompiler{}
		uc := usecase.NewConversionUseCase(cat, reproj, compiler, cfg, zap.NewNop())
		item, _ := newBatch(t, cat, cfg, uc).StageItem("sestran", "adoption_propensity")

		res := uc.Convert(ctx, item)
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Contains(t, res.Error, "ogr2ogr exited with code 1")
		assert.Equal(t, "ERROR 1: PROJ: proj_create: unrecognized format", res.Diagnostics)
		assert.Empty(t, compiler.requests)

		entries, err := os.ReadDir(cfg.TempDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("tiler without output fails", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		writeInput(t, cfg, "spt", "charging_potential", polygonLayer(27700, 1))

		uc := usecase.NewConversionUseCase(cat, &copyReprojector{}, &recordingCompiler{skip: true}, cfg, zap.NewNop())
		item, _ := newBatch(t, cat, cfg, uc).StageItem("spt", "charging_potential")

		res := uc.Convert(ctx, item)
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Contains(t, res.Error, usecase.ErrNoArchive.Error())
	})

	t.Run("unknown stage converts every column", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		path := writeInput(t, cfg, "adhoc", "anything", polygonLayer(27700, 1))

		uc := usecase.NewConversionUseCase(cat, &copyReprojector{}, &recordingCompiler{}, cfg, zap.NewNop())
		item := uc.ItemForFile(path, "not_a_stage", "")

		res := uc.Convert(ctx, item)
		require.Equal(t, domain.StatusConverted, res.Status, res.Error)
		assert.Len(t, res.Columns, 450)
		assert.Equal(t, filepath.Join(cfg.OutputDir, "not_a_stage.pmtiles"), res.OutputPath)
	})
}

func TestConversionUseCase_ItemForFile(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	cfg := testPipelineConfig(t)
	uc := usecase.NewConversionUseCase(cat, &copyReprojector{}, &recordingCompiler{}, cfg, zap.NewNop())

	tests := []struct {
		name       string
		stage      string
		output     string
		wantKey    string
		wantOutput string
	}{
		{
			name:       "output stem names the layer",
			stage:      "adoption_propensity",
			output:     "/out/hitrans_adoption_propensity.pmtiles",
			wantKey:    "hitrans_adoption_propensity",
			wantOutput: "/out/hitrans_adoption_propensity.pmtiles",
		},
		{
			name:       "output stem without stage",
			output:     "/out/custom.pmtiles",
			wantKey:    "custom",
			wantOutput: "/out/custom.pmtiles",
		},
		{
			name:       "default output from stage",
			stage:      "adoption_propensity",
			wantKey:    "adoption_propensity",
			wantOutput: filepath.Join(cfg.OutputDir, "adoption_propensity.pmtiles"),
		},
		{
			name:       "default output from input stem",
			wantKey:    "adoption_propensity",
			wantOutput: filepath.Join(cfg.OutputDir, "adoption_propensity.pmtiles"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := uc.ItemForFile("/data/hitrans/adoption_propensity.gpkg", tt.stage, tt.output)
			assert.Equal(t, tt.wantKey, item.Key)
			assert.Equal(t, tt.wantOutput, item.OutputPath)
		})
	}

	t.Run("tiler layer matches the archive stem", func(t *testing.T) {
		path := writeInput(t, cfg, "hitrans", "adoption_propensity", polygonLayer(27700, 2))
		out := filepath.Join(t.TempDir(), "hitrans_adoption_propensity.pmtiles")

		compiler := &recordingCompiler{}
		uc := usecase.NewConversionUseCase(cat, &copyReprojector{}, compiler, cfg, zap.NewNop())

		res := uc.Convert(context.Background(), uc.ItemForFile(path, "adoption_propensity", out))
		require.Equal(t, domain.StatusConverted, res.Status, res.Error)
		require.Len(t, compiler.requests, 1)
		assert.Equal(t, "hitrans_adoption_propensity", compiler.requests[0].Layer)
		assert.Equal(t, out, compiler.requests[0].Output)
	})
}
