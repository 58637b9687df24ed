// Package space provides the geometry used to decide whether a node can hear
// a transmission.
package space

import (
	"fmt"
	"math"
)

// A Position is a fixed point on the simulation plane. Positions are
// compared by value and can be used as map keys.
type Position struct {
	X, Y float64
}

// At creates a Position.
func At(x, y float64) Position {
	return Position{X: x, Y: y}
}

// String renders the position as (x, y).
func (p Position) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// InRange reports whether b lies strictly within rangeThreshold of a.
func InRange(a, b Position, rangeThreshold float64) bool {
	return Distance(a, b) < rangeThreshold
}
