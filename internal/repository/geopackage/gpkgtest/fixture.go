// Package gpkgtest writes small GeoPackage files for tests.
package gpkgtest

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ev-tile-publisher/internal/repository/geopackage"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// Layer describes one feature table to create.
type Layer struct {
	Table        string
	GeometryType string // e.g. "MULTIPOLYGON", "LINESTRING"
	SRSID        int32  // 27700, 4326, 0 for undefined
	Columns      []string
	// Row returns attribute values (len(Columns)) and geometry for row i.
	Row  func(i int) ([]interface{}, orb.Geometry)
	Rows int
}

const schema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name TEXT NOT NULL,
	srs_id INTEGER PRIMARY KEY,
	organization TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition TEXT NOT NULL,
	description TEXT
);
CREATE TABLE gpkg_contents (
	table_name TEXT NOT NULL PRIMARY KEY,
	data_type TEXT NOT NULL,
	identifier TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
	srs_id INTEGER
);
CREATE TABLE gpkg_geometry_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL,
	z TINYINT NOT NULL,
	m TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
);
INSERT INTO gpkg_spatial_ref_sys VALUES
	('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', NULL),
	('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', NULL),
	('WGS 84 geodetic', 4326, 'EPSG', 4326, 'GEOGCS["WGS 84"]', NULL),
	('OSGB36 / British National Grid', 27700, 'EPSG', 27700, 'PROJCS["OSGB36 / British National Grid"]', NULL);
`

// Write creates a GeoPackage at dir/name with the given layers and returns
// its path.
func Write(t testing.TB, dir, name string, layers ...Layer) string {
	t.Helper()

	path := filepath.Join(dir, name)
	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)

	for _, l := range layers {
		writeLayer(t, db, l)
	}
	return path
}

func writeLayer(t testing.TB, db *sqlx.DB, l Layer) {
	t.Helper()

	defs := []string{`"fid" INTEGER PRIMARY KEY AUTOINCREMENT`, `"geom" BLOB`}
	for _, c := range l.Columns {
		defs = append(defs, fmt.Sprintf(`%q`, c))
	}
	_, err := db.Exec(fmt.Sprintf(`CREATE TABLE %q (%s)`, l.Table, strings.Join(defs, ", ")))
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO gpkg_contents (table_name, data_type, identifier, srs_id) VALUES (?, 'features', ?, ?)`,
		l.Table, l.Table, l.SRSID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO gpkg_geometry_columns VALUES (?, 'geom', ?, ?, 0, 0)`,
		l.Table, l.GeometryType, l.SRSID)
	require.NoError(t, err)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(l.Columns)+1), ", ")
	cols := []string{`"geom"`}
	for _, c := range l.Columns {
		cols = append(cols, fmt.Sprintf(`%q`, c))
	}
	insert := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, l.Table, strings.Join(cols, ", "), placeholders)

	tx, err := db.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare(insert)
	require.NoError(t, err)

	for i := 0; i < l.Rows; i++ {
		values, geom := l.Row(i)
		blob, err := geopackage.EncodeGeometry(geom, l.SRSID)
		require.NoError(t, err)
		args := append([]interface{}{blob}, values...)
		_, err = stmt.Exec(args...)
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())
}

// Columns returns n generated column names: c000, c001, ...
func Columns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%03d", i)
	}
	return cols
}

// Square is a closed unit-ish square polygon anchored at x, y.
func Square(x, y, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}
