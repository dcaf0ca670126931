package simplify

import (
	gomath "math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Collapse feasibility tolerances.
const (
	// colinearThreshold rejects a collapse when the two edges leaving the
	// moved corner of a surrounding triangle become this close to parallel.
	colinearThreshold = 0.999
	// normalThreshold is the minimum cosine between a triangle's cached
	// normal and its normal after the collapse.
	normalThreshold = 0.2
	// degenerateLength is the edge length below which a surrounding
	// triangle counts as collapsed onto the new position.
	degenerateLength = 1e-12
	// barycentricEpsilon guards UV interpolation on zero-area triangles.
	barycentricEpsilon = 1e-30
)

// calculateError returns the error of collapsing the edge (i1, i2) and the
// position the merged vertex should take. The analytic minimiser of the
// summed quadric is used when it exists and the edge is not a border pair;
// otherwise the best of both endpoints and their midpoint.
func (s *Simplifier) calculateError(i1, i2 int) (float64, r3.Vec) {
	v1, v2 := &s.vertices[i1], &s.vertices[i2]
	q := v1.q.Add(v2.q)
	border := v1.border && v2.border

	if !border {
		if p, ok := q.Minimizer(); ok {
			return q.ErrorAt(p), p
		}
	}

	p1 := v1.p
	p2 := v2.p
	p3 := r3.Scale(0.5, r3.Add(p1, p2))
	e1 := q.ErrorAt(p1)
	e2 := q.ErrorAt(p2)
	e3 := q.ErrorAt(p3)
	e := min(e1, e2, e3)

	// Later candidates win ties.
	var p r3.Vec
	if e1 == e {
		p = p1
	}
	if e2 == e {
		p = p2
	}
	if e3 == e {
		p = p3
	}
	return e, p
}

// flipped reports whether moving vertex i0 (v0) to p would fold or
// degenerate any triangle of its one-ring. Triangles that also contain i1
// disappear with the collapse; they are flagged in deleted, which is
// indexed like v0's ref slice.
func (s *Simplifier) flipped(p r3.Vec, i1 int, v0 *vertex, deleted []bool) bool {
	for k := 0; k < v0.tcount; k++ {
		r := s.refs[v0.tstart+k]
		t := &s.triangles[r.tid]
		if t.deleted {
			continue
		}
		id1 := t.v[(r.tvertex+1)%3]
		id2 := t.v[(r.tvertex+2)%3]
		if id1 == i1 || id2 == i1 {
			deleted[k] = true
			continue
		}

		d1 := r3.Sub(s.vertices[id1].p, p)
		d2 := r3.Sub(s.vertices[id2].p, p)
		l1, l2 := r3.Norm(d1), r3.Norm(d2)
		if l1 < degenerateLength || l2 < degenerateLength {
			return true
		}
		d1 = r3.Scale(1/l1, d1)
		d2 = r3.Scale(1/l2, d2)
		if gomath.Abs(r3.Dot(d1, d2)) > colinearThreshold {
			return true
		}
		n := unit(r3.Cross(d1, d2))
		deleted[k] = false
		if r3.Dot(n, t.n) < normalThreshold {
			return true
		}
	}
	return false
}

// updateUVs moves the texture coordinate at v's corner of every surviving
// one-ring triangle to the value interpolated at p on that triangle.
func (s *Simplifier) updateUVs(v *vertex, p r3.Vec, deleted []bool) {
	for k := 0; k < v.tcount; k++ {
		r := s.refs[v.tstart+k]
		t := &s.triangles[r.tid]
		if t.deleted || deleted[k] || t.attr&AttrTexCoord == 0 {
			continue
		}
		uv, ok := interpolate(p,
			s.vertices[t.v[0]].p,
			s.vertices[t.v[1]].p,
			s.vertices[t.v[2]].p,
			t.uvs)
		if ok {
			t.uvs[r.tvertex] = uv
		}
	}
}

// updateTriangles re-targets v's surviving one-ring triangles to i0 and
// appends a ref for each of them. Triangles flagged in deleted, and ones
// that become degenerate or duplicate a triangle already re-targeted by
// this collapse (refs from start onwards), are deleted and counted.
func (s *Simplifier) updateTriangles(i0 int, v *vertex, deleted []bool, start int, deletedTriangles *int) {
	for k := 0; k < v.tcount; k++ {
		r := s.refs[v.tstart+k]
		t := &s.triangles[r.tid]
		if t.deleted {
			continue
		}
		if deleted[k] {
			t.deleted = true
			*deletedTriangles++
			continue
		}
		t.v[r.tvertex] = i0
		if t.degenerate() || s.duplicates(r.tid, start) {
			t.deleted = true
			*deletedTriangles++
			continue
		}
		t.dirty = true
		s.updateErrors(t)
		s.refs = append(s.refs, r)
	}
}

// duplicates reports whether another live triangle referenced from
// refs[start:] has the same vertex cycle as triangle tid.
func (s *Simplifier) duplicates(tid, start int) bool {
	t := &s.triangles[tid]
	for _, r := range s.refs[start:] {
		if r.tid == tid {
			continue
		}
		u := &s.triangles[r.tid]
		if !u.deleted && sameCycle(t.v, u.v) {
			return true
		}
	}
	return false
}

func (t *triangle) degenerate() bool {
	return t.v[0] == t.v[1] || t.v[1] == t.v[2] || t.v[2] == t.v[0]
}

func sameCycle(a, b [3]int) bool {
	for shift := 0; shift < 3; shift++ {
		if a[0] == b[shift] && a[1] == b[(shift+1)%3] && a[2] == b[(shift+2)%3] {
			return true
		}
	}
	return false
}

// barycentric returns the barycentric coordinates of p projected onto the
// plane of triangle (a, b, c). It returns false for zero-area triangles.
func barycentric(p, a, b, c r3.Vec) (r3.Vec, bool) {
	v0 := r3.Sub(b, a)
	v1 := r3.Sub(c, a)
	v2 := r3.Sub(p, a)
	d00 := r3.Dot(v0, v0)
	d01 := r3.Dot(v0, v1)
	d11 := r3.Dot(v1, v1)
	d20 := r3.Dot(v2, v0)
	d21 := r3.Dot(v2, v1)
	denom := d00*d11 - d01*d01
	if gomath.Abs(denom) < barycentricEpsilon {
		return r3.Vec{}, false
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return r3.Vec{X: 1 - v - w, Y: v, Z: w}, true
}

func interpolate(p, a, b, c r3.Vec, attrs [3]r3.Vec) (r3.Vec, bool) {
	bary, ok := barycentric(p, a, b, c)
	if !ok {
		return r3.Vec{}, false
	}
	out := r3.Scale(bary.X, attrs[0])
	out = r3.Add(out, r3.Scale(bary.Y, attrs[1]))
	out = r3.Add(out, r3.Scale(bary.Z, attrs[2]))
	return out, true
}

// collapseFirstEdge collapses the first edge of triangle ti whose cached
// error is below threshold and that passes the border and flip checks. The
// surviving vertex is the edge's first endpoint. It reports whether an edge
// was collapsed.
func (s *Simplifier) collapseFirstEdge(ti int, threshold float64, deletedTriangles *int) bool {
	t := &s.triangles[ti]
	for j := 0; j < 3; j++ {
		if !(t.err[j] < threshold) {
			continue
		}
		i0, i1 := t.v[j], t.v[(j+1)%3]
		v0, v1 := &s.vertices[i0], &s.vertices[i1]
		if v0.border != v1.border {
			continue
		}

		_, p := s.calculateError(i0, i1)
		s.deleted0 = resetFlags(s.deleted0, v0.tcount)
		s.deleted1 = resetFlags(s.deleted1, v1.tcount)
		if s.flipped(p, i1, v0, s.deleted0) {
			continue
		}
		if s.flipped(p, i0, v1, s.deleted1) {
			continue
		}

		if t.attr&AttrTexCoord != 0 {
			s.updateUVs(v0, p, s.deleted0)
			s.updateUVs(v1, p, s.deleted1)
		}

		v0.p = p
		v0.q = v1.q.Add(v0.q)
		tstart := len(s.refs)

		s.updateTriangles(i0, v0, s.deleted0, tstart, deletedTriangles)
		s.updateTriangles(i0, v1, s.deleted1, tstart, deletedTriangles)

		tcount := len(s.refs) - tstart
		if tcount <= v0.tcount {
			// Reuse v0's old slot and drop the appended tail.
			copy(s.refs[v0.tstart:], s.refs[tstart:])
			s.refs = s.refs[:tstart]
		} else {
			v0.tstart = tstart
		}
		v0.tcount = tcount
		return true
	}
	return false
}

func resetFlags(flags []bool, n int) []bool {
	if cap(flags) < n {
		return make([]bool, n)
	}
	flags = flags[:n]
	for i := range flags {
		flags[i] = false
	}
	return flags
}
