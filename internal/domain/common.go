package domain

// Point is a WGS84 position. Order matches the map library: lon first.
type Point struct {
	Lon float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
}

// Camera is a map view: center and zoom.
type Camera struct {
	Center Point   `json:"center" yaml:"center"`
	Zoom   float64 `json:"zoom" yaml:"zoom" validate:"gte=0,lte=22"`
}

// GeometryType classifies the geometry stored in a layer.
type GeometryType string

const (
	GeometryPolygon GeometryType = "polygon"
	GeometryLine    GeometryType = "line"
	GeometryPoint   GeometryType = "point"
)

func (g GeometryType) String() string {
	return string(g)
}

// ParseGeometryType maps a GeoPackage geometry_type_name onto a GeometryType.
func ParseGeometryType(name string) (GeometryType, bool) {
	switch name {
	case "POLYGON", "MULTIPOLYGON", "CURVEPOLYGON", "MULTISURFACE", "SURFACE":
		return GeometryPolygon, true
	case "LINESTRING", "MULTILINESTRING", "CIRCULARSTRING", "COMPOUNDCURVE", "MULTICURVE", "CURVE":
		return GeometryLine, true
	case "POINT", "MULTIPOINT":
		return GeometryPoint, true
	}
	return "", false
}
