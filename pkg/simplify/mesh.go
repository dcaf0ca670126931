// Package simplify reduces the triangle count of indexed meshes with
// quadric error metric edge collapses.
//
// A Simplifier owns flat vertex, triangle and reference arrays; all
// adjacency is expressed as integer indices into them. Triangles are soft
// deleted during a run and physically removed by compaction at the end.
package simplify

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshsimp/pkg/math"
)

// Input errors.
var (
	ErrInvalidIndexCount     = errors.New("index count is not a multiple of 3")
	ErrIndexOutOfRange       = errors.New("vertex index out of range")
	ErrUVCountMismatch       = errors.New("texcoord count does not match index count")
	ErrMaterialCountMismatch = errors.New("material count does not match triangle count")
)

// Attributes is a bitmask of per-triangle attributes.
type Attributes int

const (
	AttrNone     Attributes = 0
	AttrNormal   Attributes = 2
	AttrTexCoord Attributes = 4
	AttrColor    Attributes = 8
)

type vertex struct {
	p      r3.Vec
	q      Quadric
	tstart int
	tcount int
	border bool
}

type triangle struct {
	v        [3]int
	err      [4]float64 // per-edge collapse error, err[3] is the minimum
	deleted  bool
	dirty    bool
	attr     Attributes
	n        r3.Vec
	uvs      [3]r3.Vec
	material int
}

// ref records that triangle tid touches a vertex at corner tvertex.
type ref struct {
	tid     int
	tvertex int
}

// Mesh is an indexed triangle mesh with optional per-corner texture
// coordinates and per-triangle material ids.
type Mesh struct {
	Positions     []math.Vec3
	Indices       []uint32
	TexCoords     []math.Vec2 // one per index, or empty
	Materials     []int       // one per triangle, or empty; -1 means none
	MaterialNames []string
	MaterialLibs  []string // material library files the names resolve in
}

// TriangleCount returns len(Indices)/3.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Simplifier holds the mesh being simplified. It is not safe for
// concurrent use; create one per run.
type Simplifier struct {
	vertices  []vertex
	triangles []triangle
	refs      []ref
	materials []string
	libs      []string

	// scratch buffers reused across collapses
	deleted0, deleted1 []bool
	vids, vcount       []int
}

// New returns an empty Simplifier.
func New() *Simplifier {
	return &Simplifier{}
}

// NewFromMesh returns a Simplifier loaded with m.
func NewFromMesh(m *Mesh) (*Simplifier, error) {
	s := New()
	if err := s.LoadMesh(m); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the current mesh with positions and triangle indices.
// All per-triangle state is reset; no attributes are set.
func (s *Simplifier) Load(positions []math.Vec3, indices []uint32) error {
	return s.LoadMesh(&Mesh{Positions: positions, Indices: indices})
}

// LoadMesh replaces the current mesh with m, including texture coordinates
// and materials when present.
func (s *Simplifier) LoadMesh(m *Mesh) error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndexCount, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			return fmt.Errorf("%w: index %d at %d (vertices: %d)", ErrIndexOutOfRange, idx, i, len(m.Positions))
		}
	}
	triCount := m.TriangleCount()
	if len(m.TexCoords) != 0 && len(m.TexCoords) != len(m.Indices) {
		return fmt.Errorf("%w: %d texcoords, %d indices", ErrUVCountMismatch, len(m.TexCoords), len(m.Indices))
	}
	if len(m.Materials) != 0 && len(m.Materials) != triCount {
		return fmt.Errorf("%w: %d materials, %d triangles", ErrMaterialCountMismatch, len(m.Materials), triCount)
	}

	s.vertices = make([]vertex, len(m.Positions))
	for i, p := range m.Positions {
		s.vertices[i] = vertex{p: p.R3()}
	}

	s.triangles = make([]triangle, triCount)
	for i := range s.triangles {
		t := &s.triangles[i]
		for j := 0; j < 3; j++ {
			t.v[j] = int(m.Indices[3*i+j])
		}
		if len(m.TexCoords) != 0 {
			t.attr |= AttrTexCoord
			for j := 0; j < 3; j++ {
				t.uvs[j] = m.TexCoords[3*i+j].R3()
			}
		}
		if len(m.Materials) != 0 {
			t.material = m.Materials[i]
		}
	}

	s.refs = s.refs[:0]
	s.materials = append([]string(nil), m.MaterialNames...)
	s.libs = append([]string(nil), m.MaterialLibs...)
	return nil
}

// Export returns the current positions and triangle indices. Deleted
// triangles are skipped; call it after a simplification run, which leaves
// the mesh compacted.
func (s *Simplifier) Export() ([]math.Vec3, []uint32) {
	positions := make([]math.Vec3, len(s.vertices))
	for i := range s.vertices {
		positions[i] = math.Vec3FromR3(s.vertices[i].p)
	}
	indices := make([]uint32, 0, len(s.triangles)*3)
	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		indices = append(indices, uint32(t.v[0]), uint32(t.v[1]), uint32(t.v[2]))
	}
	return positions, indices
}

// ExportMesh returns the current mesh including texture coordinates and
// materials. TexCoords is only filled when at least one triangle carries
// them.
func (s *Simplifier) ExportMesh() *Mesh {
	positions, indices := s.Export()
	m := &Mesh{
		Positions:     positions,
		Indices:       indices,
		MaterialNames: append([]string(nil), s.materials...),
		MaterialLibs:  append([]string(nil), s.libs...),
	}

	hasUVs, hasMaterials := false, false
	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		hasUVs = hasUVs || t.attr&AttrTexCoord != 0
		hasMaterials = hasMaterials || t.material != 0
	}
	if !hasUVs && !hasMaterials && len(s.materials) == 0 {
		return m
	}

	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		if hasUVs {
			for j := 0; j < 3; j++ {
				m.TexCoords = append(m.TexCoords, math.Vec2FromR3(t.uvs[j]))
			}
		}
		if hasMaterials || len(s.materials) != 0 {
			m.Materials = append(m.Materials, t.material)
		}
	}
	return m
}

// TriangleCount returns the number of live triangles.
func (s *Simplifier) TriangleCount() int {
	n := 0
	for i := range s.triangles {
		if !s.triangles[i].deleted {
			n++
		}
	}
	return n
}

// VertexCount returns the number of vertices, including ones no longer
// referenced before compaction.
func (s *Simplifier) VertexCount() int {
	return len(s.vertices)
}
