package geom

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Style says how a polygon's points are interpreted.
type Style int

const (
	// Filled polygons cover their interior.
	Filled Style = iota
	// Outline polygons are closed but only their boundary counts.
	Outline
	// Opened polygons are polylines.
	Opened
)

// Poly is a polygon on a named layer.
type Poly struct {
	Points []Point
	Style  Style
	Layer  string
}

// NewPoly builds a filled polygon from its vertices.
func NewPoly(points ...Point) Poly {
	pts := make([]Point, len(points))
	copy(pts, points)
	return Poly{Points: pts}
}

// RectPoly builds a filled polygon covering r.
func RectPoly(r Rect) Poly {
	return Poly{Points: r.Corners()}
}

// LinePoly builds an opened two-point polygon.
func LinePoly(a, b Point) Poly {
	return Poly{Points: []Point{a, b}, Style: Opened}
}

// Bounds returns the bounding rectangle of the vertices.
func (p Poly) Bounds() Rect {
	if len(p.Points) == 0 {
		return EmptyRect()
	}
	xs := make([]float64, len(p.Points))
	ys := make([]float64, len(p.Points))
	for i, pt := range p.Points {
		xs[i] = pt.X
		ys[i] = pt.Y
	}
	return Rect{
		Min: Point{X: floats.Min(xs), Y: floats.Min(ys)},
		Max: Point{X: floats.Max(xs), Y: floats.Max(ys)},
	}
}

// Area returns the absolute shoelace area. Opened polygons have no area.
func (p Poly) Area() float64 {
	if p.Style == Opened || len(p.Points) < 3 {
		return 0
	}
	return PolygonArea(p.Points)
}

// PolygonArea returns the absolute area of a closed vertex loop.
func PolygonArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}
	sum := 0.0
	for i := range points {
		j := (i + 1) % len(points)
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(sum) / 2
}

// Transform returns the polygon mapped through t.
func (p Poly) Transform(t Transform) Poly {
	out := Poly{Points: make([]Point, len(p.Points)), Style: p.Style, Layer: p.Layer}
	for i, pt := range p.Points {
		out.Points[i] = t.Apply(pt)
	}
	return out
}

// ContainsPoint reports whether pt is inside a filled polygon or on the
// boundary of any polygon.
func (p Poly) ContainsPoint(pt Point) bool {
	if p.onBoundary(pt) {
		return true
	}
	if p.Style != Filled || len(p.Points) < 3 {
		return false
	}
	inside := false
	n := len(p.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.Points[i], p.Points[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// ContainedIn reports whether every vertex lies within r. Since r is convex
// this means the whole polygon does.
func (p Poly) ContainedIn(r Rect) bool {
	if len(p.Points) == 0 {
		return false
	}
	for _, pt := range p.Points {
		if !r.Contains(pt) {
			return false
		}
	}
	return true
}

// Distance returns how far the polygon is from the rectangle r: zero when
// they touch or overlap, otherwise the closest approach between them.
func (p Poly) Distance(r Rect) float64 {
	if r.IsZeroSize() {
		return p.PointDistance(r.Min)
	}
	return p.Separation(RectPoly(r))
}

// PointDistance returns the distance from pt to the polygon; zero when pt is
// inside a filled polygon.
func (p Poly) PointDistance(pt Point) float64 {
	if len(p.Points) == 0 {
		return math.Inf(1)
	}
	if len(p.Points) == 1 {
		return p.Points[0].Distance(pt)
	}
	if p.ContainsPoint(pt) {
		return 0
	}
	best := math.Inf(1)
	p.eachEdge(func(a, b Point) {
		best = math.Min(best, pointSegmentDistance(pt, a, b))
	})
	return best
}

// Separation returns the gap between two polygons, zero if they touch or
// overlap.
func (p Poly) Separation(other Poly) float64 {
	if len(p.Points) == 0 || len(other.Points) == 0 {
		return math.Inf(1)
	}
	for _, pt := range other.Points {
		if p.ContainsPoint(pt) {
			return 0
		}
	}
	for _, pt := range p.Points {
		if other.ContainsPoint(pt) {
			return 0
		}
	}
	best := math.Inf(1)
	p.eachEdge(func(a, b Point) {
		other.eachEdge(func(c, d Point) {
			best = math.Min(best, segmentDistance(a, b, c, d))
		})
	})
	if len(p.Points) == 1 {
		best = math.Min(best, other.PointDistance(p.Points[0]))
	}
	if len(other.Points) == 1 {
		best = math.Min(best, p.PointDistance(other.Points[0]))
	}
	return best
}

func (p Poly) onBoundary(pt Point) bool {
	found := false
	p.eachEdge(func(a, b Point) {
		if !found && pointSegmentDistance(pt, a, b) < Epsilon {
			found = true
		}
	})
	return found
}

func (p Poly) eachEdge(fn func(a, b Point)) {
	n := len(p.Points)
	if n < 2 {
		return
	}
	for i := 0; i < n-1; i++ {
		fn(p.Points[i], p.Points[i+1])
	}
	if p.Style != Opened && n > 2 {
		fn(p.Points[n-1], p.Points[0])
	}
}

func pointSegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.Distance(Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

func segmentDistance(a, b, c, d Point) float64 {
	if segmentsIntersect(a, b, c, d) {
		return 0
	}
	return math.Min(
		math.Min(pointSegmentDistance(a, c, d), pointSegmentDistance(b, c, d)),
		math.Min(pointSegmentDistance(c, a, b), pointSegmentDistance(d, a, b)),
	)
}

func segmentsIntersect(a, b, c, d Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
