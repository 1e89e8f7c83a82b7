package toolchain

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	"go.uber.org/zap"
)

type gdal struct {
	runner Runner
	path   string
	logger *zap.Logger
}

// NewGDAL creates a reprojector backed by the ogr2ogr binary at path.
func NewGDAL(runner Runner, path string, logger *zap.Logger) repository.Reprojector {
	if path == "" {
		path = "ogr2ogr"
	}
	return &gdal{runner: runner, path: path, logger: logger}
}

func (g *gdal) Reproject(ctx context.Context, req domain.ReprojectRequest) error {
	cmd := Command{Name: g.path, Args: ReprojectArgs(req)}

	out, err := g.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("reproject %s: %w", req.Input, err)
	}

	g.logger.Debug("Reprojected",
		zap.String("input", req.Input),
		zap.String("source_crs", req.SourceCRS),
		zap.Duration("duration", out.Duration))
	return nil
}

// ReprojectArgs builds the ogr2ogr argument list. The source CRS is always
// passed explicitly because GeoJSON input is otherwise assumed to be WGS84.
func ReprojectArgs(req domain.ReprojectRequest) []string {
	args := []string{"-f", "GeoJSONSeq"}
	if req.SourceCRS != "" {
		args = append(args, "-s_srs", req.SourceCRS)
	}
	args = append(args, "-t_srs", domain.TargetCRS)
	if req.MakeValid {
		args = append(args, "-makevalid")
	}
	if req.PreserveTopology && req.Tolerance > 0 {
		args = append(args, "-simplify", strconv.FormatFloat(req.Tolerance, 'f', -1, 64))
	}
	return append(args, req.Output, req.Input)
}
