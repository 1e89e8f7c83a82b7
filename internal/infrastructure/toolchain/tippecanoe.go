package toolchain

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"go.uber.org/zap"
)

type tippecanoe struct {
	runner Runner
	path   string
	logger *zap.Logger
}

// NewTippecanoe creates a tile compiler backed by the tippecanoe binary at path.
func NewTippecanoe(runner Runner, path string, logger *zap.Logger) repository.TileCompiler {
	if path == "" {
		path = "tippecanoe"
	}
	return &tippecanoe{runner: runner, path: path, logger: logger}
}

func (t *tippecanoe) Build(ctx context.Context, req domain.TileBuildRequest) error {
	cmd := Command{Name: t.path, Args: BuildArgs(req)}

	out, err := t.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("tile %s: %w", req.Layer, err)
	}

	t.logger.Debug("Tiled",
		zap.String("layer", req.Layer),
		zap.String("output", req.Output),
		zap.Duration("duration", out.Duration))
	return nil
}

// BuildArgs builds the tippecanoe argument list. The layer name is forced so
// the viewer can address the source-layer by archive key.
func BuildArgs(req domain.TileBuildRequest) []string {
	args := []string{
		"-o", req.Output,
		"-l", req.Layer,
		"--force",
		"--quiet",
		"-Z", strconv.Itoa(req.MinZoom),
		"-z", strconv.Itoa(req.MaxZoom),
	}
	args = append(args, req.Flags...)
	return append(args, req.Input)
}
