package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Transform is a 2D affine map:
//
//	x' = A*x + C*y + E
//	y' = B*x + D*y + F
type Transform struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, D: 1}
}

// Translate returns a pure translation.
func Translate(dx, dy float64) Transform {
	return Transform{A: 1, D: 1, E: dx, F: dy}
}

// Rotate returns a rotation about the origin by angle tenths of a degree,
// counter-clockwise. Multiples of 90 degrees are exact.
func Rotate(angle int) Transform {
	sin, cos := sinCos(angle)
	return Transform{A: cos, B: sin, C: -sin, D: cos}
}

// Mirror flips X when mirrorX is set and Y when mirrorY is set.
func Mirror(mirrorX, mirrorY bool) Transform {
	t := Identity()
	if mirrorX {
		t.A = -1
	}
	if mirrorY {
		t.D = -1
	}
	return t
}

// Orient builds the placement transform of an object whose local origin
// sits at center: mirror first, then rotate, then translate.
func Orient(angle int, mirrorX, mirrorY bool, center Point) Transform {
	return Mirror(mirrorX, mirrorY).Then(Rotate(angle)).Then(Translate(center.X, center.Y))
}

// RotateAbout rotates (and optionally mirrors) about pivot.
func RotateAbout(angle int, mirrorX, mirrorY bool, pivot Point) Transform {
	return Translate(-pivot.X, -pivot.Y).
		Then(Mirror(mirrorX, mirrorY)).
		Then(Rotate(angle)).
		Then(Translate(pivot.X, pivot.Y))
}

// Then returns the transform that applies t first and u second.
func (t Transform) Then(u Transform) Transform {
	var m mat.Dense
	m.Mul(u.dense(), t.dense())
	return Transform{
		A: m.At(0, 0), C: m.At(0, 1), E: m.At(0, 2),
		B: m.At(1, 0), D: m.At(1, 1), F: m.At(1, 2),
	}
}

// Inverse returns the inverse map. Singular transforms return identity.
func (t Transform) Inverse() Transform {
	var inv mat.Dense
	if err := inv.Inverse(t.dense()); err != nil {
		return Identity()
	}
	return Transform{
		A: inv.At(0, 0), C: inv.At(0, 1), E: inv.At(0, 2),
		B: inv.At(1, 0), D: inv.At(1, 1), F: inv.At(1, 2),
	}
}

// Apply maps a point.
func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.E,
		Y: t.B*p.X + t.D*p.Y + t.F,
	}
}

// ApplyRect maps the corners of r and returns their bounds.
func (t Transform) ApplyRect(r Rect) Rect {
	if r.IsEmpty() {
		return r
	}
	out := EmptyRect()
	for _, c := range r.Corners() {
		out.Expand(t.Apply(c))
	}
	return out
}

// IsIdentity reports whether t leaves every point in place.
func (t Transform) IsIdentity() bool {
	return t == Identity()
}

// IsMirrored reports whether t flips handedness.
func (t Transform) IsMirrored() bool {
	return t.A*t.D-t.B*t.C < 0
}

func (t Transform) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.A, t.C, t.E,
		t.B, t.D, t.F,
		0, 0, 1,
	})
}

func sinCos(angle int) (float64, float64) {
	angle %= 3600
	if angle < 0 {
		angle += 3600
	}
	switch angle {
	case 0:
		return 0, 1
	case 900:
		return 1, 0
	case 1800:
		return 0, -1
	case 2700:
		return -1, 0
	}
	rad := float64(angle) / 10 * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}
