package geometry

import "github.com/paulmach/orb"

// Cleaner applies repair, empty removal and optional simplification, then
// repeats repair and empty removal since simplification can collapse rings
// and lines again.
type Cleaner struct {
	Tolerance float64
	// Simplify is false when simplification already happened upstream.
	Simplify bool

	Kept           int64
	DroppedEmpty   int64
	DroppedSimpler int64
}

// Clean returns the cleaned geometry, or nil when the feature should be
// dropped. Counters are updated either way.
func (c *Cleaner) Clean(g orb.Geometry) orb.Geometry {
	g = Repair(g)
	if IsEmpty(g) {
		c.DroppedEmpty++
		return nil
	}

	if c.Simplify {
		g = Repair(Simplify(g, c.Tolerance))
		if IsEmpty(g) {
			c.DroppedSimpler++
			return nil
		}
	}

	c.Kept++
	return g
}
