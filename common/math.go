package common

import (
	"github.com/chewxy/math32"
)

// Epsilon is the tolerance used when deciding that a vector has collapsed to zero length.
const Epsilon float32 = 1e-6

// Vec3 is a float32 3-component vector used for positions and basis directions.
type Vec3 [3]float32

// WorldUp is the world-space up axis.
var WorldUp = Vec3{0, 1, 0}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v multiplied by the scalar s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float32 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the cross product v × o.
//
// Parameters:
//   - o: the right-hand operand
//
// Returns:
//   - Vec3: the vector perpendicular to both v and o
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length.
// When v is shorter than Epsilon or not finite the input is returned unchanged and ok is false,
// so callers can keep a previous direction instead of dividing by zero.
// Finite vectors whose length overflows float32 are rescaled by their largest component first.
//
// Returns:
//   - Vec3: the unit vector, or v when degenerate
//   - bool: false if v has (near) zero length or a NaN/Inf component
func (v Vec3) Normalize() (Vec3, bool) {
	if !v.IsFinite() {
		return v, false
	}
	l := v.Length()
	if math32.IsInf(l, 1) {
		m := max(math32.Abs(v[0]), math32.Abs(v[1]), math32.Abs(v[2]))
		return v.Scale(1 / m).Normalize()
	}
	if l < Epsilon {
		return v, false
	}
	return v.Scale(1 / l), true
}

// IsFinite reports whether every component of v is neither NaN nor infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Clamp restricts x to the closed interval [lo, hi].
func Clamp[T int32 | uint32 | float32 | float64](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
