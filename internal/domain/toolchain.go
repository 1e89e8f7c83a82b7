package domain

import "errors"

// TargetCRS is the output coordinate system of every archive.
const TargetCRS = "EPSG:4326"

// ReprojectRequest describes one ogr2ogr pass over an interchange file.
type ReprojectRequest struct {
	Input     string
	Output    string
	SourceCRS string
	// MakeValid asks GDAL to repair invalid geometries.
	MakeValid bool
	// Tolerance > 0 with PreserveTopology runs a topology-preserving
	// simplification inside GDAL.
	Tolerance        float64
	PreserveTopology bool
}

// TileBuildRequest describes one tippecanoe invocation.
type TileBuildRequest struct {
	Input   string
	Output  string
	Layer   string
	MinZoom int
	MaxZoom int
	Flags   []string
}

// DiagnosticError is implemented by errors that carry captured output of an
// external tool.
type DiagnosticError interface {
	error
	Diagnostics() string
}

// Diagnostics returns the tool output attached anywhere in err's chain, or "".
func Diagnostics(err error) string {
	var d DiagnosticError
	if errors.As(err, &d) {
		return d.Diagnostics()
	}
	return ""
}
