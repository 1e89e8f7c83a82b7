package geopackage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

var ErrNoLayers = errors.New("geopackage has no feature layers")

// Layer is a feature table registered in gpkg_contents.
type Layer struct {
	Table          string `db:"table_name"`
	GeometryColumn string `db:"column_name"`
	GeometryType   string `db:"geometry_type_name"`
	SRSID          int32  `db:"srs_id"`
}

// LayerInfo describes a layer's attribute columns, CRS and size.
type LayerInfo struct {
	Layer
	PrimaryKey string
	Columns    []string
	// CRS is "AUTH:CODE", empty when the layer has no defined CRS.
	CRS      string
	RowCount int64
}

// Kind maps the declared geometry type onto the domain type.
func (l LayerInfo) Kind() (domain.GeometryType, bool) {
	return domain.ParseGeometryType(strings.ToUpper(l.GeometryType))
}

// Container is an open, read-only GeoPackage file.
type Container struct {
	db     *sqlx.DB
	path   string
	logger *zap.Logger
}

// Open opens path read-only. A missing file returns an error wrapping
// fs.ErrNotExist instead of letting SQLite create an empty database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Container, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open geopackage: %w", err)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geopackage: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA query_only = 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open geopackage %s: %w", path, err)
	}

	logger.Debug("GeoPackage opened", zap.String("path", path))
	return &Container{db: db, path: path, logger: logger}, nil
}

func (c *Container) Close() error {
	return c.db.Close()
}

// Path returns the file the container was opened from.
func (c *Container) Path() string {
	return c.path
}

// Layers lists feature layers in registration order.
func (c *Container) Layers(ctx context.Context) ([]Layer, error) {
	var layers []Layer
	err := c.db.SelectContext(ctx, &layers, `
		SELECT c.table_name, g.column_name, g.geometry_type_name, g.srs_id
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'
		ORDER BY c.rowid`)
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	return layers, nil
}

// FirstLayer inspects the first registered feature layer.
func (c *Container) FirstLayer(ctx context.Context) (*LayerInfo, error) {
	layers, err := c.Layers(ctx)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	return c.Inspect(ctx, layers[0])
}

type columnInfo struct {
	CID       int            `db:"cid"`
	Name      string         `db:"name"`
	Type      string         `db:"type"`
	NotNull   int            `db:"notnull"`
	DfltValue sql.NullString `db:"dflt_value"`
	PK        int            `db:"pk"`
}

// Inspect reads the column list, CRS and row count of a layer.
func (c *Container) Inspect(ctx context.Context, layer Layer) (*LayerInfo, error) {
	var cols []columnInfo
	if err := c.db.SelectContext(ctx, &cols, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(layer.Table))); err != nil {
		return nil, fmt.Errorf("inspect layer %s: %w", layer.Table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("inspect layer %s: table not found", layer.Table)
	}

	info := &LayerInfo{Layer: layer}
	for _, col := range cols {
		switch {
		case col.PK == 1 && info.PrimaryKey == "":
			info.PrimaryKey = col.Name
		case strings.EqualFold(col.Name, layer.GeometryColumn):
			// read separately by Scan
		default:
			info.Columns = append(info.Columns, col.Name)
		}
	}

	crs, err := c.crs(ctx, layer.SRSID)
	if err != nil {
		return nil, err
	}
	info.CRS = crs

	if err := c.db.GetContext(ctx, &info.RowCount, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(layer.Table))); err != nil {
		return nil, fmt.Errorf("count rows of %s: %w", layer.Table, err)
	}

	c.logger.Debug("Layer inspected",
		zap.String("table", layer.Table),
		zap.Int("columns", len(info.Columns)),
		zap.String("crs", info.CRS),
		zap.Int64("rows", info.RowCount))

	return info, nil
}

// crs resolves an srs_id. The GeoPackage "undefined" systems (-1, 0) and
// ids missing from gpkg_spatial_ref_sys resolve to "".
func (c *Container) crs(ctx context.Context, srsID int32) (string, error) {
	if srsID <= 0 {
		return "", nil
	}

	var ref struct {
		Organization string `db:"organization"`
		Code         int64  `db:"organization_coordsys_id"`
	}
	err := c.db.GetContext(ctx, &ref,
		"SELECT organization, organization_coordsys_id FROM gpkg_spatial_ref_sys WHERE srs_id = ?", srsID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup srs %d: %w", srsID, err)
	}
	if ref.Organization == "" || strings.EqualFold(ref.Organization, "none") {
		return "", nil
	}
	return fmt.Sprintf("%s:%d", strings.ToUpper(ref.Organization), ref.Code), nil
}

// Scan streams the layer's rows in primary-key order. Only the given
// attribute columns are read, plus geometry. keep is asked for every row
// index (0-based) and may be nil to keep all rows. fn receives each kept
// row as a GeoJSON feature; rows whose geometry is empty carry a nil
// geometry and are still passed on.
func (c *Container) Scan(
	ctx context.Context,
	info *LayerInfo,
	columns []string,
	keep func(i int64) bool,
	fn func(f *geojson.Feature) error,
) (int64, error) {
	selectList := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		selectList = append(selectList, quoteIdent(col))
	}
	selectList = append(selectList, quoteIdent(info.GeometryColumn))

	order := "rowid"
	if info.PrimaryKey != "" {
		order = quoteIdent(info.PrimaryKey)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(selectList, ", "), quoteIdent(info.Table), order)

	rows, err := c.db.QueryxContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", info.Table, err)
	}
	defer rows.Close()

	var index, emitted int64
	for rows.Next() {
		i := index
		index++
		if keep != nil && !keep(i) {
			continue
		}

		values, err := rows.SliceScan()
		if err != nil {
			return emitted, fmt.Errorf("scan %s row %d: %w", info.Table, i, err)
		}

		blob, _ := values[len(values)-1].([]byte)
		geom, err := DecodeGeometry(blob)
		if err != nil {
			return emitted, fmt.Errorf("scan %s row %d: %w", info.Table, i, err)
		}

		f := geojson.NewFeature(geom)
		for j, col := range columns {
			f.Properties[col] = normalizeValue(values[j])
		}

		if err := fn(f); err != nil {
			return emitted, err
		}
		emitted++
	}
	if err := rows.Err(); err != nil {
		return emitted, fmt.Errorf("scan %s: %w", info.Table, err)
	}
	return emitted, nil
}

func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
