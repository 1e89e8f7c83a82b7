package usecase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ev-tile-publisher/internal/config"
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"github.com/ev-tile-publisher/internal/pkg/geometry"
	"github.com/ev-tile-publisher/internal/repository/geopackage"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// ErrNoFeatures is returned when cleaning removed every feature.
var ErrNoFeatures = errors.New("no features left after cleaning")

// ErrNoArchive is returned when the tiler exited cleanly without writing
// the archive.
var ErrNoArchive = errors.New("tiler produced no archive")

// ConversionUseCase turns one GeoPackage into one PMTiles archive.
type ConversionUseCase struct {
	catalog  *domain.Catalog
	reproj   repository.Reprojector
	compiler repository.TileCompiler
	cfg      config.PipelineConfig
	logger   *zap.Logger
}

// NewConversionUseCase создает новый экземпляр ConversionUseCase
func NewConversionUseCase(
	catalog *domain.Catalog,
	reproj repository.Reprojector,
	compiler repository.TileCompiler,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *ConversionUseCase {
	return &ConversionUseCase{
		catalog:  catalog,
		reproj:   reproj,
		compiler: compiler,
		cfg:      cfg,
		logger:   logger,
	}
}

// ItemForFile builds an ad-hoc item for a container outside the catalog
// layout. An unknown stage converts every column. The layer name is always
// the output stem; without an output path it is the stage id, else the
// input stem.
func (uc *ConversionUseCase) ItemForFile(inputPath, stageID, outputPath string) domain.ConversionItem {
	var key string
	switch {
	case outputPath != "":
		key = stem(outputPath)
	case stageID != "":
		key = stageID
	default:
		key = stem(inputPath)
	}
	item := domain.ConversionItem{
		Key:        key,
		Stage:      stageID,
		InputPath:  inputPath,
		OutputPath: outputPath,
	}
	if item.OutputPath == "" {
		item.OutputPath = filepath.Join(uc.cfg.OutputDir, key+".pmtiles")
	}
	if stage, ok := uc.catalog.Stage(stageID); ok {
		item.Columns = stage.Columns
		item.GeometryType = stage.GeometryType
	}
	return item
}

// Convert runs the whole conversion for one item. It never returns an
// error: the outcome, including failures, is in the result.
func (uc *ConversionUseCase) Convert(ctx context.Context, item domain.ConversionItem) domain.ConversionResult {
	start := time.Now()
	res := domain.ConversionResult{
		Key:        item.Key,
		InputPath:  item.InputPath,
		OutputPath: item.OutputPath,
	}
	log := uc.logger.With(zap.String("key", item.Key), zap.String("input", item.InputPath))

	stat, err := os.Stat(item.InputPath)
	if errors.Is(err, fs.ErrNotExist) {
		res.Status = domain.StatusSkipped
		res.Error = "input not found"
		res.Duration = time.Since(start)
		log.Info("Input not found, skipping")
		return res
	}

	if err == nil {
		err = uc.convert(ctx, item, stat.Size(), &res, log)
	}
	res.Duration = time.Since(start)

	if err != nil {
		res.Status = domain.StatusFailed
		res.Error = err.Error()
		res.Diagnostics = domain.Diagnostics(err)
		log.Error("Conversion failed", zap.Error(err), zap.Duration("duration", res.Duration))
		return res
	}

	res.Status = domain.StatusConverted
	log.Info("Archive written",
		zap.String("output", item.OutputPath),
		zap.String("size", humanize.Bytes(uint64(res.OutputBytes))),
		zap.Int64("features", res.Features),
		zap.Duration("duration", res.Duration))
	return res
}

func (uc *ConversionUseCase) convert(
	ctx context.Context,
	item domain.ConversionItem,
	inputSize int64,
	res *domain.ConversionResult,
	log *zap.Logger,
) error {
	gpkg, err := geopackage.Open(ctx, item.InputPath, uc.logger)
	if err != nil {
		return err
	}
	defer gpkg.Close()

	layer, err := gpkg.FirstLayer(ctx)
	if err != nil {
		return err
	}

	kind := item.GeometryType
	if declared, ok := layer.Kind(); ok {
		kind = declared
	} else if kind == "" {
		return fmt.Errorf("unsupported geometry type %q in %s", layer.GeometryType, layer.Table)
	}

	columns := item.Columns.Select(layer.Columns)
	res.Columns = columns
	res.InputRows = layer.RowCount

	srcCRS := layer.CRS
	if srcCRS == "" {
		srcCRS = uc.cfg.FallbackCRS
		log.Warn("Layer has no CRS, assuming fallback", zap.String("crs", srcCRS))
	}
	res.SourceCRS = srcCRS

	var keep func(int64) bool
	if kind == domain.GeometryLine {
		if rate := uc.catalog.Sampling.Rate(inputSize); rate < 1 {
			indices := SampleIndices(layer.RowCount, rate, uc.cfg.SampleSeed)
			keep = IndexFilter(indices)
			log.Info("Sampling line layer",
				zap.String("input_size", humanize.Bytes(uint64(inputSize))),
				zap.Float64("rate", rate),
				zap.Int("rows", len(indices)))
		}
	}

	workDir, err := os.MkdirTemp(uc.cfg.TempDir, "convert-"+item.Key+"-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	rawPath := filepath.Join(workDir, "source.geojsonl")
	sampled, err := writeFeatures(rawPath, func(emit func(*geojson.Feature) error) error {
		_, err := gpkg.Scan(ctx, layer, columns, keep, emit)
		return err
	})
	if err != nil {
		return err
	}
	res.SampledRows = sampled

	simplify := uc.cfg.Simplify(kind.String())
	projectedPath := filepath.Join(workDir, "projected.geojsonl")
	req := domain.ReprojectRequest{
		Input:            rawPath,
		Output:           projectedPath,
		SourceCRS:        srcCRS,
		MakeValid:        true,
		Tolerance:        simplify.Tolerance,
		PreserveTopology: simplify.PreserveTopology,
	}
	if srcCRS == domain.TargetCRS {
		req.SourceCRS = ""
	}
	if err := uc.reproj.Reproject(ctx, req); err != nil {
		return err
	}

	cleaner := &geometry.Cleaner{
		Tolerance: simplify.Tolerance,
		Simplify:  !simplify.PreserveTopology && simplify.Tolerance > 0,
	}
	interchangePath := filepath.Join(workDir, item.Key+".geojsonl")
	if _, err := writeFeatures(interchangePath, func(emit func(*geojson.Feature) error) error {
		return readFeatures(projectedPath, func(f *geojson.Feature) error {
			f.Geometry = cleaner.Clean(f.Geometry)
			return emit(f)
		})
	}); err != nil {
		return err
	}
	if err := os.Remove(projectedPath); err != nil {
		log.Warn("Failed to remove transient file", zap.String("path", projectedPath), zap.Error(err))
	}

	res.Features = cleaner.Kept
	log.Debug("Cleaned features",
		zap.Int64("kept", cleaner.Kept),
		zap.Int64("dropped_empty", cleaner.DroppedEmpty),
		zap.Int64("dropped_after_simplify", cleaner.DroppedSimpler))
	if cleaner.Kept == 0 {
		return ErrNoFeatures
	}

	if err := os.MkdirAll(filepath.Dir(item.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tiling := uc.cfg.Tiling(kind.String())
	if err := uc.compiler.Build(ctx, domain.TileBuildRequest{
		Input:   interchangePath,
		Output:  item.OutputPath,
		Layer:   item.Key,
		MinZoom: tiling.MinZoom,
		MaxZoom: tiling.MaxZoom,
		Flags:   tiling.Flags,
	}); err != nil {
		return err
	}

	out, err := os.Stat(item.OutputPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoArchive, item.OutputPath)
	}
	res.OutputBytes = out.Size()
	return nil
}

// writeFeatures creates path and writes every feature passed to emit as
// one GeoJSON line. Features without geometry are dropped.
func writeFeatures(path string, produce func(emit func(*geojson.Feature) error) error) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	w := bufio.NewWriterSize(file, 1<<20)
	var written int64
	err = produce(func(f *geojson.Feature) error {
		if f.Geometry == nil {
			return nil
		}
		data, err := f.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode feature: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		written++
		return w.WriteByte('\n')
	})
	if err != nil {
		return written, err
	}
	if err := w.Flush(); err != nil {
		return written, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return written, file.Close()
}

// readFeatures decodes a GeoJSONSeq file, with or without RS separators.
func readFeatures(path string, fn func(f *geojson.Feature) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	r := bufio.NewReaderSize(file, 1<<20)
	var line int
	for {
		data, err := r.ReadBytes('\n')
		if len(data) > 0 {
			line++
			data = bytes.TrimSpace(bytes.TrimLeft(data, "\x1e"))
			if len(data) > 0 {
				var f geojson.Feature
				if jerr := json.Unmarshal(data, &f); jerr != nil {
					return fmt.Errorf("decode %s line %d: %w", filepath.Base(path), line, jerr)
				}
				if ferr := fn(&f); ferr != nil {
					return ferr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
