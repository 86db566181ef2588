// Package geom provides the 2D geometry shared by the circuit database, the
// selection layer and the edit planners: points, rectangles, polygons and
// affine transforms.
package geom

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used when comparing database coordinates.
const Epsilon = 1e-9

// Point is a location in database units.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Eq reports whether p and q are the same point within Epsilon.
func (p Point) Eq(q Point) bool {
	return math.Abs(p.X-q.X) < Epsilon && math.Abs(p.Y-q.Y) < Epsilon
}

func (p Point) String() string {
	return fmt.Sprintf("(%s,%s)", FormatCoord(p.X), FormatCoord(p.Y))
}

// Rect is an axis-aligned rectangle. A Rect whose Min exceeds its Max is
// empty.
type Rect struct {
	Min Point
	Max Point
}

// R builds a canonical rectangle from two opposite corners.
func R(x0, y0, x1, y1 float64) Rect {
	return Rect{
		Min: Point{X: math.Min(x0, x1), Y: math.Min(y0, y1)},
		Max: Point{X: math.Max(x0, x1), Y: math.Max(y0, y1)},
	}
}

// RectAround builds the rectangle of the given size centered on c.
func RectAround(c Point, width, height float64) Rect {
	return R(c.X-width/2, c.Y-height/2, c.X+width/2, c.Y+height/2)
}

// EmptyRect returns a rectangle that contains nothing and grows with Expand.
func EmptyRect() Rect {
	return Rect{
		Min: Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// IsEmpty reports whether the rectangle has never been expanded.
func (r Rect) IsEmpty() bool {
	return r.Min.X > r.Max.X || r.Min.Y > r.Max.Y
}

// IsZeroSize reports whether the rectangle degenerates to a point.
func (r Rect) IsZeroSize() bool {
	return !r.IsEmpty() && r.Width() < Epsilon && r.Height() < Epsilon
}

// Expand grows the rectangle to include p.
func (r *Rect) Expand(p Point) {
	r.Min.X = math.Min(r.Min.X, p.X)
	r.Min.Y = math.Min(r.Min.Y, p.Y)
	r.Max.X = math.Max(r.Max.X, p.X)
	r.Max.Y = math.Max(r.Max.Y, p.Y)
}

// ExpandRect grows the rectangle to include other.
func (r *Rect) ExpandRect(other Rect) {
	if other.IsEmpty() {
		return
	}
	r.Expand(other.Min)
	r.Expand(other.Max)
}

// Union returns the smallest rectangle containing both.
func (r Rect) Union(other Rect) Rect {
	out := r
	out.ExpandRect(other)
	return out
}

// Grow returns the rectangle expanded by d on every side.
func (r Rect) Grow(d float64) Rect {
	return Rect{
		Min: Point{X: r.Min.X - d, Y: r.Min.Y - d},
		Max: Point{X: r.Max.X + d, Y: r.Max.Y + d},
	}
}

// Translate returns the rectangle moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{
		Min: Point{X: r.Min.X + dx, Y: r.Min.Y + dy},
		Max: Point{X: r.Max.X + dx, Y: r.Max.Y + dy},
	}
}

// Intersects reports whether the rectangles share at least one point.
func (r Rect) Intersects(other Rect) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.Min.X <= other.Max.X && r.Max.X >= other.Min.X &&
		r.Min.Y <= other.Max.Y && r.Max.Y >= other.Min.Y
}

// Contains reports whether p lies inside or on the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X-Epsilon && p.X <= r.Max.X+Epsilon &&
		p.Y >= r.Min.Y-Epsilon && p.Y <= r.Max.Y+Epsilon
}

// ContainsRect reports whether other lies entirely within r.
func (r Rect) ContainsRect(other Rect) bool {
	if other.IsEmpty() {
		return false
	}
	return r.Contains(other.Min) && r.Contains(other.Max)
}

// Width returns the X extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the Y extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Area returns Width*Height, zero when empty.
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Center returns the midpoint.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Corners returns the four corners counter-clockwise from Min.
func (r Rect) Corners() []Point {
	return []Point{
		r.Min,
		{X: r.Max.X, Y: r.Min.Y},
		r.Max,
		{X: r.Min.X, Y: r.Max.Y},
	}
}

func (r Rect) String() string {
	if r.IsEmpty() {
		return "[empty]"
	}
	return fmt.Sprintf("[%s<=X<=%s, %s<=Y<=%s]",
		FormatCoord(r.Min.X), FormatCoord(r.Max.X),
		FormatCoord(r.Min.Y), FormatCoord(r.Max.Y))
}

// FormatCoord prints a coordinate without trailing zeros so descriptions
// stay stable across platforms.
func FormatCoord(v float64) string {
	if math.Abs(v) < Epsilon {
		v = 0
	}
	return fmt.Sprintf("%g", math.Round(v*1e6)/1e6)
}
