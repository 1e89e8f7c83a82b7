package repository

import (
	"context"

	"github.com/ev-tile-publisher/internal/domain"
)

// Reprojector transforms a GeoJSONSeq file into EPSG:4326.
type Reprojector interface {
	Reproject(ctx context.Context, req domain.ReprojectRequest) error
}

// TileCompiler builds a PMTiles archive from a GeoJSONSeq file.
type TileCompiler interface {
	Build(ctx context.Context, req domain.TileBuildRequest) error
}
