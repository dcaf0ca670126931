package math

import "gonum.org/v1/gonum/spatial/r3"

// Vec2 is a texture coordinate.
type Vec2 struct {
	X, Y float32
}

// R3 lifts v into the XY plane of a double precision vector.
func (v Vec2) R3() r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y)}
}

// Vec2FromR3 drops the Z component of p.
func Vec2FromR3(p r3.Vec) Vec2 {
	return Vec2{float32(p.X), float32(p.Y)}
}
