// Package geometry holds the lightweight validity repair and simplification
// applied to features after reprojection.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// IsEmpty reports whether g has no usable coordinates.
func IsEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.Point:
		return !finite(g)
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(g) == 0
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiPolygon:
		for _, p := range g {
			if !IsEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range g {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	}
	return false
}

// Repair removes what the tiler cannot render: non-finite and repeated
// vertices, unclosed or collapsed rings, polygons without a shell and lines
// with fewer than two vertices. It returns nil when nothing survives.
func Repair(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case nil:
		return nil
	case orb.Point:
		if !finite(g) {
			return nil
		}
		return g
	case orb.MultiPoint:
		out := make(orb.MultiPoint, 0, len(g))
		for _, p := range g {
			if finite(p) {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case orb.LineString:
		if ls := repairLine(g); ls != nil {
			return ls
		}
		return nil
	case orb.MultiLineString:
		out := make(orb.MultiLineString, 0, len(g))
		for _, ls := range g {
			if r := repairLine(ls); r != nil {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case orb.Ring:
		if r := repairRing(g); r != nil {
			return r
		}
		return nil
	case orb.Polygon:
		if p := repairPolygon(g); p != nil {
			return p
		}
		return nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(g))
		for _, p := range g {
			if r := repairPolygon(p); r != nil {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, 0, len(g))
		for _, c := range g {
			if r := Repair(c); r != nil {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return g
}

// Simplify runs Douglas-Peucker with the given tolerance in coordinate
// units. Points pass through unchanged.
func Simplify(g orb.Geometry, tolerance float64) orb.Geometry {
	if g == nil || tolerance <= 0 {
		return g
	}
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return g
	}
	return simplify.DouglasPeucker(tolerance).Simplify(orb.Clone(g))
}

func repairLine(ls orb.LineString) orb.LineString {
	out := dedupe(ls)
	if len(out) < 2 {
		return nil
	}
	return orb.LineString(out)
}

func repairRing(r orb.Ring) orb.Ring {
	pts := dedupe(r)
	if len(pts) > 1 && pts[0] != pts[len(pts)-1] {
		pts = append(pts, pts[0])
	}
	ring := orb.Ring(pts)
	if len(ring) < 4 || ring.Orientation() == 0 {
		return nil
	}
	return ring
}

func repairPolygon(p orb.Polygon) orb.Polygon {
	if len(p) == 0 {
		return nil
	}
	shell := repairRing(p[0])
	if shell == nil {
		return nil
	}
	out := orb.Polygon{shell}
	for _, hole := range p[1:] {
		if h := repairRing(hole); h != nil {
			out = append(out, h)
		}
	}
	return out
}

func dedupe(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		if !finite(p) {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

func finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}
