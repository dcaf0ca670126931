package simplify

import "gonum.org/v1/gonum/spatial/r3"

// updateMesh rebuilds adjacency for the current triangle set. Deleted
// triangles are compacted away on every call after the first. Quadrics,
// face normals, border flags and cached edge errors are initialised on the
// first call, or on every call when opts.RefreshQuadrics is set.
func (s *Simplifier) updateMesh(iteration int, opts Options) {
	if iteration > 0 {
		dst := 0
		for i := range s.triangles {
			if !s.triangles[i].deleted {
				s.triangles[dst] = s.triangles[i]
				dst++
			}
		}
		s.triangles = s.triangles[:dst]
	}

	s.buildRefs()

	if iteration == 0 || opts.RefreshQuadrics {
		s.detectBorders()
		s.initQuadrics(opts.BorderWeight)
		for i := range s.triangles {
			s.updateErrors(&s.triangles[i])
		}
	}
}

// buildRefs recomputes tstart/tcount for every vertex and fills refs so
// that each vertex owns a contiguous slice of the triangles touching it.
func (s *Simplifier) buildRefs() {
	for i := range s.vertices {
		s.vertices[i].tstart = 0
		s.vertices[i].tcount = 0
	}
	for i := range s.triangles {
		t := &s.triangles[i]
		for j := 0; j < 3; j++ {
			s.vertices[t.v[j]].tcount++
		}
	}
	tstart := 0
	for i := range s.vertices {
		v := &s.vertices[i]
		v.tstart = tstart
		tstart += v.tcount
		v.tcount = 0
	}

	if cap(s.refs) < len(s.triangles)*3 {
		s.refs = make([]ref, len(s.triangles)*3)
	}
	s.refs = s.refs[:len(s.triangles)*3]
	for i := range s.triangles {
		t := &s.triangles[i]
		for j := 0; j < 3; j++ {
			v := &s.vertices[t.v[j]]
			s.refs[v.tstart+v.tcount] = ref{tid: i, tvertex: j}
			v.tcount++
		}
	}
}

// detectBorders flags every vertex that has a neighbour it shares exactly
// one triangle with, and that neighbour.
func (s *Simplifier) detectBorders() {
	for i := range s.vertices {
		s.vertices[i].border = false
	}
	for i := range s.vertices {
		v := &s.vertices[i]
		s.vcount = s.vcount[:0]
		s.vids = s.vids[:0]
		for j := 0; j < v.tcount; j++ {
			t := &s.triangles[s.refs[v.tstart+j].tid]
			for k := 0; k < 3; k++ {
				id := t.v[k]
				ofs := 0
				for ofs < len(s.vcount) && s.vids[ofs] != id {
					ofs++
				}
				if ofs == len(s.vcount) {
					s.vcount = append(s.vcount, 1)
					s.vids = append(s.vids, id)
				} else {
					s.vcount[ofs]++
				}
			}
		}
		for j, c := range s.vcount {
			if c == 1 {
				s.vertices[s.vids[j]].border = true
			}
		}
	}
}

// initQuadrics sets every vertex quadric to the sum of the plane quadrics
// of its triangles and caches each triangle's unit normal. With a positive
// borderWeight, every open edge also contributes a plane through the edge
// perpendicular to its triangle, so that moving a boundary costs error.
func (s *Simplifier) initQuadrics(borderWeight float64) {
	for i := range s.vertices {
		s.vertices[i].q = Quadric{}
	}
	for i := range s.triangles {
		t := &s.triangles[i]
		p0 := s.vertices[t.v[0]].p
		p1 := s.vertices[t.v[1]].p
		p2 := s.vertices[t.v[2]].p
		t.n = unit(r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0)))
		q := NewPlaneQuadric(t.n.X, t.n.Y, t.n.Z, -r3.Dot(t.n, p0))
		for j := 0; j < 3; j++ {
			v := &s.vertices[t.v[j]]
			v.q = v.q.Add(q)
		}
	}
	if borderWeight <= 0 {
		return
	}
	for i := range s.triangles {
		t := &s.triangles[i]
		for j := 0; j < 3; j++ {
			a, b := t.v[j], t.v[(j+1)%3]
			if !s.vertices[a].border || !s.vertices[b].border || s.edgeTriangles(a, b) != 1 {
				continue
			}
			pa := s.vertices[a].p
			m := unit(r3.Cross(r3.Sub(s.vertices[b].p, pa), t.n))
			if m == (r3.Vec{}) {
				continue
			}
			q := NewPlaneQuadric(m.X, m.Y, m.Z, -r3.Dot(m, pa)).Scale(borderWeight)
			s.vertices[a].q = s.vertices[a].q.Add(q)
			s.vertices[b].q = s.vertices[b].q.Add(q)
		}
	}
}

// edgeTriangles counts the live triangles containing both a and b.
func (s *Simplifier) edgeTriangles(a, b int) int {
	v := &s.vertices[a]
	n := 0
	for k := 0; k < v.tcount; k++ {
		t := &s.triangles[s.refs[v.tstart+k].tid]
		if t.deleted {
			continue
		}
		if t.v[0] == b || t.v[1] == b || t.v[2] == b {
			n++
		}
	}
	return n
}

// updateErrors recomputes the cached collapse error of each edge of t.
func (s *Simplifier) updateErrors(t *triangle) {
	for j := 0; j < 3; j++ {
		t.err[j], _ = s.calculateError(t.v[j], t.v[(j+1)%3])
	}
	t.err[3] = min(t.err[0], t.err[1], t.err[2])
}

// compactMesh drops deleted triangles and unreferenced vertices and remaps
// triangle indices to the compacted vertex numbering.
func (s *Simplifier) compactMesh() {
	for i := range s.vertices {
		s.vertices[i].tcount = 0
	}
	dst := 0
	for i := range s.triangles {
		if s.triangles[i].deleted {
			continue
		}
		t := s.triangles[i]
		s.triangles[dst] = t
		dst++
		for j := 0; j < 3; j++ {
			s.vertices[t.v[j]].tcount = 1
		}
	}
	s.triangles = s.triangles[:dst]

	dst = 0
	for i := range s.vertices {
		if s.vertices[i].tcount == 0 {
			continue
		}
		s.vertices[i].tstart = dst
		s.vertices[dst].p = s.vertices[i].p
		dst++
	}
	for i := range s.triangles {
		t := &s.triangles[i]
		for j := 0; j < 3; j++ {
			t.v[j] = s.vertices[t.v[j]].tstart
		}
	}
	s.vertices = s.vertices[:dst]
	s.refs = s.refs[:0]
}

// unit returns p scaled to unit length, or the zero vector when p has no
// length.
func unit(p r3.Vec) r3.Vec {
	l := r3.Norm(p)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, p)
}
