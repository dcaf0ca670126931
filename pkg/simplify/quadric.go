package simplify

import "gonum.org/v1/gonum/spatial/r3"

// Quadric is a symmetric 4x4 error quadric stored as its upper triangle:
//
//	q0 q1 q2 q3
//	   q4 q5 q6
//	      q7 q8
//	         q9
//
// Evaluated at a point it yields the weighted sum of squared distances to
// the planes it was built from. Quadrics add exactly.
type Quadric [10]float64

// NewPlaneQuadric returns the quadric of the plane ax+by+cz+d=0.
// (a,b,c) is expected to be a unit normal.
func NewPlaneQuadric(a, b, c, d float64) Quadric {
	return Quadric{
		a * a, a * b, a * c, a * d,
		b * b, b * c, b * d,
		c * c, c * d,
		d * d,
	}
}

// Add returns q + o.
func (q Quadric) Add(o Quadric) Quadric {
	for i := range q {
		q[i] += o[i]
	}
	return q
}

// Scale returns q * s.
func (q Quadric) Scale(s float64) Quadric {
	for i := range q {
		q[i] *= s
	}
	return q
}

// Error evaluates the quadratic form at (x, y, z, 1).
func (q Quadric) Error(x, y, z float64) float64 {
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}

// ErrorAt evaluates the quadratic form at p.
func (q Quadric) ErrorAt(p r3.Vec) float64 {
	return q.Error(p.X, p.Y, p.Z)
}

// det returns the determinant of the 3x3 matrix whose entries are the
// coefficients at the given indices, row major.
func (q Quadric) det(a11, a12, a13, a21, a22, a23, a31, a32, a33 int) float64 {
	return q[a11]*q[a22]*q[a33] + q[a13]*q[a21]*q[a32] + q[a12]*q[a23]*q[a31] -
		q[a13]*q[a22]*q[a31] - q[a11]*q[a23]*q[a32] - q[a12]*q[a21]*q[a33]
}

// Minimizer solves for the point minimising the quadric. It returns false
// when the upper-left 3x3 block is singular and no unique minimiser exists.
func (q Quadric) Minimizer() (r3.Vec, bool) {
	det := q.det(0, 1, 2, 1, 4, 5, 2, 5, 7)
	if det == 0 {
		return r3.Vec{}, false
	}
	return r3.Vec{
		X: -1 / det * q.det(1, 2, 3, 4, 5, 6, 5, 7, 8),
		Y: 1 / det * q.det(0, 2, 3, 1, 5, 6, 2, 7, 8),
		Z: -1 / det * q.det(0, 1, 3, 1, 4, 6, 2, 5, 8),
	}, true
}
