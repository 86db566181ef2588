package geom

// Orientation is a rotation in tenths of a degree preceded by an optional
// X mirror. Every combination of mirror and rotation reduces to this form.
type Orientation struct {
	Angle   int
	MirrorX bool
}

// NewOrientation normalizes a mirror pair and angle. A Y mirror equals an X
// mirror followed by a half turn.
func NewOrientation(angle int, mirrorX, mirrorY bool) Orientation {
	if mirrorY {
		mirrorX = !mirrorX
		angle += 1800
	}
	return Orientation{Angle: normAngle(angle), MirrorX: mirrorX}
}

// IsIdentity reports whether o leaves shapes unchanged.
func (o Orientation) IsIdentity() bool {
	return o.Angle == 0 && !o.MirrorX
}

// Then returns the orientation that applies o first and p second.
func (o Orientation) Then(p Orientation) Orientation {
	if p.MirrorX {
		return Orientation{Angle: normAngle(p.Angle - o.Angle), MirrorX: !o.MirrorX}
	}
	return Orientation{Angle: normAngle(o.Angle + p.Angle), MirrorX: o.MirrorX}
}

// Transform places the orientation at center.
func (o Orientation) Transform(center Point) Transform {
	return Orient(o.Angle, o.MirrorX, false, center)
}

// About returns the transform rotating about pivot.
func (o Orientation) About(pivot Point) Transform {
	return RotateAbout(o.Angle, o.MirrorX, false, pivot)
}

func normAngle(a int) int {
	a %= 3600
	if a < 0 {
		a += 3600
	}
	return a
}
