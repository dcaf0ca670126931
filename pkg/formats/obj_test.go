package formats

import (
	"errors"
	"strings"
	"testing"

	"github.com/Faultbox/meshsimp/pkg/math"
	"github.com/Faultbox/meshsimp/pkg/simplify"
)

const quadOBJ = `# unit quad
mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl red
f 1/1 2/2 3/3 4/4
`

func TestParseOBJ_Quad(t *testing.T) {
	obj, err := ParseOBJ([]byte(quadOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	if len(obj.Positions) != 4 {
		t.Errorf("expected 4 positions, got %d", len(obj.Positions))
	}
	if len(obj.TexCoords) != 4 {
		t.Errorf("expected 4 texcoords, got %d", len(obj.TexCoords))
	}
	if len(obj.Faces) != 2 {
		t.Fatalf("expected quad to fan into 2 faces, got %d", len(obj.Faces))
	}
	if obj.Faces[1].Vertex != [3]int{0, 2, 3} {
		t.Errorf("second face = %v, want [0 2 3]", obj.Faces[1].Vertex)
	}
	if obj.Faces[0].Material != 0 || len(obj.Materials) != 1 || obj.Materials[0] != "red" {
		t.Errorf("materials = %v, face material %d", obj.Materials, obj.Faces[0].Material)
	}
	if len(obj.MaterialLibs) != 1 || obj.MaterialLibs[0] != "quad.mtl" {
		t.Errorf("material libs = %v", obj.MaterialLibs)
	}
}

func TestParseOBJ_IndexForms(t *testing.T) {
	tests := []struct {
		name string
		face string
		want [3]int
		uvs  [3]int
	}{
		{"plain", "f 1 2 3", [3]int{0, 1, 2}, [3]int{-1, -1, -1}},
		{"with texcoords", "f 1/1 2/2 3/3", [3]int{0, 1, 2}, [3]int{0, 1, 2}},
		{"with normals only", "f 1//1 2//2 3//3", [3]int{0, 1, 2}, [3]int{-1, -1, -1}},
		{"full", "f 1/3/1 2/2/1 3/1/1", [3]int{0, 1, 2}, [3]int{2, 1, 0}},
		{"negative", "f -3 -2 -1", [3]int{0, 1, 2}, [3]int{-1, -1, -1}},
	}

	header := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvt 1 0\nvt 0 1\n"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ParseOBJ([]byte(header + tt.face + "\n"))
			if err != nil {
				t.Fatalf("ParseOBJ failed: %v", err)
			}
			if len(obj.Faces) != 1 {
				t.Fatalf("expected 1 face, got %d", len(obj.Faces))
			}
			if obj.Faces[0].Vertex != tt.want {
				t.Errorf("vertices = %v, want %v", obj.Faces[0].Vertex, tt.want)
			}
			if obj.Faces[0].TexCoord != tt.uvs {
				t.Errorf("texcoords = %v, want %v", obj.Faces[0].TexCoord, tt.uvs)
			}
		})
	}
}

func TestParseOBJ_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"short vertex", "v 1 2\n", ErrInvalidOBJVertex},
		{"bad float", "v 1 x 3\n", ErrInvalidOBJVertex},
		{"two corners", "v 0 0 0\nv 1 0 0\nf 1 2\n", ErrInvalidOBJFace},
		{"bad index", "v 0 0 0\nf 1 a 1\n", ErrInvalidOBJFace},
		{"out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n", ErrInvalidOBJIndex},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n", ErrInvalidOBJIndex},
		{"texcoord out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/1 2/1 3/1\n", ErrInvalidOBJIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestOBJ_Mesh(t *testing.T) {
	obj, err := ParseOBJ([]byte(quadOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	m := obj.Mesh()
	if m.TriangleCount() != 2 {
		t.Fatalf("expected 2 triangles, got %d", m.TriangleCount())
	}
	if len(m.TexCoords) != 6 {
		t.Errorf("expected 6 per-corner texcoords, got %d", len(m.TexCoords))
	}
	if m.TexCoords[4] != (math.Vec2{X: 1, Y: 1}) {
		t.Errorf("corner 4 texcoord = %v, want (1,1)", m.TexCoords[4])
	}
	if len(m.Materials) != 2 || m.Materials[1] != 0 {
		t.Errorf("materials = %v", m.Materials)
	}
}

func TestOBJ_MeshDropsPartialTexCoords(t *testing.T) {
	data := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 1 1 0\nvt 0 0\nf 1/1 2/1 3/1\nf 2 4 3\n"
	obj, err := ParseOBJ([]byte(data))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}
	m := obj.Mesh()
	if m.TexCoords != nil {
		t.Errorf("expected no texcoords, got %d", len(m.TexCoords))
	}
	if m.Materials != nil {
		t.Errorf("expected no materials, got %v", m.Materials)
	}
}

func TestEncodeOBJ_RoundTrip(t *testing.T) {
	in := &simplify.Mesh{
		Positions: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0.5}},
		Indices:   []uint32{0, 1, 2, 1, 3, 2},
		TexCoords: []math.Vec2{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1},
			{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		},
		Materials:     []int{0, 1},
		MaterialNames: []string{"a", "b"},
		MaterialLibs:  []string{"scene.mtl"},
	}

	data := EncodeOBJ(in)
	if !strings.Contains(string(data), "mtllib scene.mtl\n") {
		t.Errorf("expected mtllib line:\n%s", data)
	}
	if !strings.Contains(string(data), "usemtl b\n") {
		t.Errorf("expected usemtl run for material b:\n%s", data)
	}

	obj, err := ParseOBJ(data)
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}
	out := obj.Mesh()

	if len(out.Positions) != len(in.Positions) {
		t.Fatalf("positions: got %d, want %d", len(out.Positions), len(in.Positions))
	}
	for i := range in.Positions {
		if out.Positions[i] != in.Positions[i] {
			t.Errorf("position %d = %v, want %v", i, out.Positions[i], in.Positions[i])
		}
	}
	for i := range in.Indices {
		if out.Indices[i] != in.Indices[i] {
			t.Errorf("index %d = %d, want %d", i, out.Indices[i], in.Indices[i])
		}
	}
	for i := range in.TexCoords {
		if out.TexCoords[i] != in.TexCoords[i] {
			t.Errorf("texcoord %d = %v, want %v", i, out.TexCoords[i], in.TexCoords[i])
		}
	}
	if len(out.Materials) != 2 || out.Materials[0] != 0 || out.Materials[1] != 1 {
		t.Errorf("materials = %v, want [0 1]", out.Materials)
	}
	if len(out.MaterialLibs) != 1 || out.MaterialLibs[0] != "scene.mtl" {
		t.Errorf("material libs = %v, want [scene.mtl]", out.MaterialLibs)
	}
}

func TestOBJ_FacesWithoutMaterial(t *testing.T) {
	data := "mtllib scene.mtl\nv 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3\nusemtl red\nf 1 3 4\n"
	obj, err := ParseOBJ([]byte(data))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	m := obj.Mesh()
	if len(m.Materials) != 2 || m.Materials[0] != -1 || m.Materials[1] != 0 {
		t.Fatalf("materials = %v, want [-1 0]", m.Materials)
	}
	if len(m.MaterialLibs) != 1 || m.MaterialLibs[0] != "scene.mtl" {
		t.Errorf("material libs = %v, want [scene.mtl]", m.MaterialLibs)
	}

	encoded := string(EncodeOBJ(m))
	first := strings.Index(encoded, "f 1 2 3\n")
	use := strings.Index(encoded, "usemtl red\n")
	if first < 0 || use < 0 || first > use {
		t.Errorf("expected unassigned face before usemtl:\n%s", encoded)
	}
	if !strings.HasPrefix(encoded[strings.Index(encoded, "\n")+1:], "mtllib scene.mtl\n") {
		t.Errorf("expected mtllib right after the header:\n%s", encoded)
	}

	again, err := ParseOBJ([]byte(encoded))
	if err != nil {
		t.Fatalf("ParseOBJ of encoded data failed: %v", err)
	}
	if got := again.Mesh().Materials; len(got) != 2 || got[0] != -1 || got[1] != 0 {
		t.Errorf("materials after round trip = %v, want [-1 0]", got)
	}
}

func TestEncodeOBJ_GroupsUnassignedFirst(t *testing.T) {
	m := &simplify.Mesh{
		Positions:     []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Indices:       []uint32{0, 1, 2, 0, 2, 1, 1, 2, 0},
		Materials:     []int{0, -1, 0},
		MaterialNames: []string{"red"},
	}

	want := "usemtl red\nf 1 2 3\nf 2 3 1\n"
	encoded := string(EncodeOBJ(m))
	if !strings.HasSuffix(encoded, "f 1 3 2\n"+want) {
		t.Errorf("unexpected face order:\n%s", encoded)
	}
	if strings.Count(encoded, "usemtl") != 1 {
		t.Errorf("expected a single usemtl run:\n%s", encoded)
	}
}
