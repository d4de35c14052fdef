package model

import "math"

// DefaultMatchTolerance is the per-component tolerance, in points, used when
// deciding whether two shape records describe the same visual element.
const DefaultMatchTolerance = 1.5

// Point represents a 2D point in points, origin at the top-left of the slide.
type Point struct {
	X, Y float64
}

// Position is the top-left corner of a shape in points.
type Position struct {
	X float64 `json:"x_pt"`
	Y float64 `json:"y_pt"`
}

// Size is the extent of a shape in points.
type Size struct {
	Width  float64 `json:"width_pt"`
	Height float64 `json:"height_pt"`
}

// Rect is an axis-aligned rectangle given by its top-left (X0, Y0) and
// bottom-right (X1, Y1) corners. Y grows downwards, as on a slide.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// RectOf builds the rectangle covered by a shape.
func RectOf(pos Position, size Size) Rect {
	return Rect{
		X0: pos.X,
		Y0: pos.Y,
		X1: pos.X + size.Width,
		Y1: pos.Y + size.Height,
	}
}

// Origin returns the top-left corner.
func (r Rect) Origin() Point {
	return Point{X: r.X0, Y: r.Y0}
}

// Contains checks if a point is inside the rectangle. All four bounds are
// inclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X <= r.X1 &&
		p.Y >= r.Y0 && p.Y <= r.Y1
}

// Scale multiplies each axis independently. Aspect ratio is not preserved
// when sx != sy.
func (r Rect) Scale(sx, sy float64) Rect {
	return Rect{
		X0: r.X0 * sx,
		Y0: r.Y0 * sy,
		X1: r.X1 * sx,
		Y1: r.Y1 * sy,
	}
}

// Match reports whether two shape records are within tol points of each
// other on every component of position and size.
func Match(posA Position, sizeA Size, posB Position, sizeB Size, tol float64) bool {
	return math.Abs(posA.X-posB.X) <= tol &&
		math.Abs(posA.Y-posB.Y) <= tol &&
		math.Abs(sizeA.Width-sizeB.Width) <= tol &&
		math.Abs(sizeA.Height-sizeB.Height) <= tol
}
