package world

import "math"

// Vec3 is a world position or direction. The game is 2D; Z is kept for
// draw ordering by the host.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3           { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3           { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(f float64) Vec3      { return Vec3{v.X * f, v.Y * f, v.Z * f} }
func (v Vec3) Len() float64              { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }
func (v Vec3) DistanceTo(o Vec3) float64 { return v.Sub(o).Len() }

// Normalized returns the unit vector, or the zero vector for zero input.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Quat is a rotation. Sprites only turn about Z, see QuatFromAngle.
type Quat struct {
	X, Y, Z, W float64
}

var Identity = Quat{W: 1}

// QuatFromAngle builds a rotation of rad radians about the Z axis.
func QuatFromAngle(rad float64) Quat {
	s, c := math.Sincos(rad / 2)
	return Quat{Z: s, W: c}
}

// Angle returns the Z rotation in radians.
func (q Quat) Angle() float64 {
	return 2 * math.Atan2(q.Z, q.W)
}
