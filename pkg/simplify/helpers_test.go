package simplify

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/meshsimp/pkg/math"
)

// unitCube returns an outward wound unit cube with 8 vertices and 12
// triangles.
func unitCube() ([]math.Vec3, []uint32) {
	positions := []math.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	}
	indices := []uint32{
		0, 2, 1, 0, 3, 2, // bottom
		4, 5, 6, 4, 6, 7, // top
		0, 1, 5, 0, 5, 4, // front
		3, 7, 6, 3, 6, 2, // back
		0, 4, 7, 0, 7, 3, // left
		1, 2, 6, 1, 6, 5, // right
	}
	return positions, indices
}

// planarQuad returns the unit square in the XY plane split along the
// (0,2) diagonal.
func planarQuad() ([]math.Vec3, []uint32) {
	positions := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	return positions, indices
}

// grid returns an n x n cell grid over the unit square in the XY plane,
// facing +Z, with texture coordinates equal to the XY position.
func grid(n int) *Mesh {
	m := &Mesh{}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			m.Positions = append(m.Positions, math.Vec3{X: float32(i) / float32(n), Y: float32(j) / float32(n)})
		}
	}
	at := func(i, j int) uint32 { return uint32(j*(n+1) + i) }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a, b, c, d := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
			m.Indices = append(m.Indices, a, b, c, a, c, d)
		}
	}
	for _, idx := range m.Indices {
		p := m.Positions[idx]
		m.TexCoords = append(m.TexCoords, math.Vec2{X: p.X, Y: p.Y})
	}
	return m
}

// subdividedCube returns a unit cube whose faces are n x n grids, welded
// along the cube edges.
func subdividedCube(n int) ([]math.Vec3, []uint32) {
	var positions []math.Vec3
	index := make(map[math.Vec3]uint32)
	vertexAt := func(p math.Vec3) uint32 {
		if idx, ok := index[p]; ok {
			return idx
		}
		idx := uint32(len(positions))
		positions = append(positions, p)
		index[p] = idx
		return idx
	}

	// origin, u and v axes of each face; u x v points outwards
	faces := [][3]math.Vec3{
		{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}}, // z=0
		{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}, // z=1
		{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}}, // y=0
		{{X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}}, // y=1
		{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 0}}, // x=0
		{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}}, // x=1
	}

	var indices []uint32
	step := 1 / float32(n)
	for _, f := range faces {
		origin, u, v := f[0], f[1], f[2]
		at := func(i, j int) uint32 {
			return vertexAt(origin.Add(u.Scale(float32(i) * step)).Add(v.Scale(float32(j) * step)))
		}
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				a, b, c, d := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
				indices = append(indices, a, b, c, a, c, d)
			}
		}
	}
	return positions, indices
}

// icosphere returns a unit sphere built by subdividing an icosahedron.
func icosphere(subdivisions int) ([]math.Vec3, []uint32) {
	g := (1 + gomath.Sqrt(5)) / 2
	raw := [][3]float64{
		{-1, g, 0}, {1, g, 0}, {-1, -g, 0}, {1, -g, 0},
		{0, -1, g}, {0, 1, g}, {0, -1, -g}, {0, 1, -g},
		{g, 0, -1}, {g, 0, 1}, {-g, 0, -1}, {-g, 0, 1},
	}
	var points [][3]float64
	push := func(p [3]float64) uint32 {
		l := gomath.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		points = append(points, [3]float64{p[0] / l, p[1] / l, p[2] / l})
		return uint32(len(points) - 1)
	}
	for _, p := range raw {
		push(p)
	}
	faces := [][3]uint32{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for s := 0; s < subdivisions; s++ {
		cache := make(map[[2]uint32]uint32)
		mid := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if idx, ok := cache[key]; ok {
				return idx
			}
			pa, pb := points[a], points[b]
			idx := push([3]float64{(pa[0] + pb[0]) / 2, (pa[1] + pb[1]) / 2, (pa[2] + pb[2]) / 2})
			cache[key] = idx
			return idx
		}
		next := make([][3]uint32, 0, len(faces)*4)
		for _, f := range faces {
			ab, bc, ca := mid(f[0], f[1]), mid(f[1], f[2]), mid(f[2], f[0])
			next = append(next,
				[3]uint32{f[0], ab, ca},
				[3]uint32{f[1], bc, ab},
				[3]uint32{f[2], ca, bc},
				[3]uint32{ab, bc, ca})
		}
		faces = next
	}

	positions := make([]math.Vec3, len(points))
	for i, p := range points {
		positions[i] = math.Vec3{X: float32(p[0]), Y: float32(p[1]), Z: float32(p[2])}
	}
	indices := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		indices = append(indices, f[0], f[1], f[2])
	}
	return positions, indices
}

func mustLoad(t *testing.T, positions []math.Vec3, indices []uint32) *Simplifier {
	t.Helper()
	s := New()
	if err := s.Load(positions, indices); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return s
}

func checkIndices(t *testing.T, positions []math.Vec3, indices []uint32) {
	t.Helper()
	if len(indices)%3 != 0 {
		t.Fatalf("index count %d is not a multiple of 3", len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= len(positions) {
			t.Fatalf("index %d at %d out of range (vertices: %d)", idx, i, len(positions))
		}
	}
}

// edgeUses counts the triangles sharing each undirected edge.
func edgeUses(indices []uint32) map[[2]uint32]int {
	edges := make(map[[2]uint32]int)
	for i := 0; i+2 < len(indices); i += 3 {
		for j := 0; j < 3; j++ {
			a, b := indices[i+j], indices[i+(j+1)%3]
			edges[[2]uint32{min(a, b), max(a, b)}]++
		}
	}
	return edges
}

// borderVertices counts vertices on edges used by exactly one triangle.
func borderVertices(indices []uint32) int {
	edges := edgeUses(indices)
	border := make(map[uint32]bool)
	for e, n := range edges {
		if n == 1 {
			border[e[0]] = true
			border[e[1]] = true
		}
	}
	return len(border)
}

func faceNormal(positions []math.Vec3, indices []uint32, tri int) math.Vec3 {
	p0 := positions[indices[3*tri]]
	p1 := positions[indices[3*tri+1]]
	p2 := positions[indices[3*tri+2]]
	return p1.Sub(p0).Cross(p2.Sub(p0))
}
