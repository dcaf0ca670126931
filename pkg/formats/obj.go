package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/meshsimp/pkg/math"
	"github.com/Faultbox/meshsimp/pkg/simplify"
)

// OBJ format errors.
var (
	ErrInvalidOBJVertex = errors.New("invalid OBJ vertex")
	ErrInvalidOBJFace   = errors.New("invalid OBJ face")
	ErrInvalidOBJIndex  = errors.New("OBJ index out of range")
)

// OBJFace is a triangle of an OBJ file. Polygons are fan triangulated on
// load. Indices are zero based; TexCoord entries are -1 when absent.
type OBJFace struct {
	Vertex   [3]int
	TexCoord [3]int
	Material int // index into OBJ.Materials, -1 before any usemtl
}

// OBJ represents a parsed Wavefront OBJ file. Normals are ignored; they
// are recomputed from geometry by consumers.
type OBJ struct {
	Positions    []math.Vec3
	TexCoords    []math.Vec2
	Faces        []OBJFace
	Materials    []string // names in order of first use
	MaterialLibs []string
}

// ParseOBJ parses OBJ data from a byte slice.
func ParseOBJ(data []byte) (*OBJ, error) {
	obj := &OBJ{}
	materialIndex := make(map[string]int)
	material := -1

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJVertex, line, err)
			}
			obj.Positions = append(obj.Positions, math.Vec3{X: float32(p[0]), Y: float32(p[1]), Z: float32(p[2])})
		case "vt":
			uv, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJVertex, line, err)
			}
			obj.TexCoords = append(obj.TexCoords, math.Vec2{X: float32(uv[0]), Y: float32(uv[1])})
		case "f":
			if err := obj.parseFace(fields[1:], material, line); err != nil {
				return nil, err
			}
		case "usemtl":
			if len(fields) < 2 {
				continue
			}
			name := fields[1]
			idx, ok := materialIndex[name]
			if !ok {
				idx = len(obj.Materials)
				materialIndex[name] = idx
				obj.Materials = append(obj.Materials, name)
			}
			material = idx
		case "mtllib":
			obj.MaterialLibs = append(obj.MaterialLibs, fields[1:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (obj *OBJ) parseFace(corners []string, material, line int) error {
	if len(corners) < 3 {
		return fmt.Errorf("%w: line %d: %d corners", ErrInvalidOBJFace, line, len(corners))
	}

	verts := make([]int, len(corners))
	uvs := make([]int, len(corners))
	for i, c := range corners {
		parts := strings.Split(c, "/")
		v, err := resolveIndex(parts[0], len(obj.Positions))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		verts[i] = v
		uvs[i] = -1
		if len(parts) > 1 && parts[1] != "" {
			vt, err := resolveIndex(parts[1], len(obj.TexCoords))
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			uvs[i] = vt
		}
	}

	for i := 1; i+1 < len(corners); i++ {
		obj.Faces = append(obj.Faces, OBJFace{
			Vertex:   [3]int{verts[0], verts[i], verts[i+1]},
			TexCoord: [3]int{uvs[0], uvs[i], uvs[i+1]},
			Material: material,
		})
	}
	return nil
}

// resolveIndex converts a 1-based or negative relative OBJ index into a
// zero-based one.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOBJFace, s)
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && -n <= count:
		return count + n, nil
	default:
		return 0, fmt.Errorf("%w: %d (count %d)", ErrInvalidOBJIndex, n, count)
	}
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Mesh converts the OBJ into an indexed mesh. Texture coordinates are kept
// only when every face has them; materials only when any usemtl was seen.
// Faces before the first usemtl keep material -1.
func (obj *OBJ) Mesh() *simplify.Mesh {
	m := &simplify.Mesh{
		Positions:     obj.Positions,
		Indices:       make([]uint32, 0, len(obj.Faces)*3),
		MaterialNames: obj.Materials,
		MaterialLibs:  obj.MaterialLibs,
	}

	hasUVs := len(obj.Faces) > 0
	for _, f := range obj.Faces {
		if f.TexCoord[0] < 0 || f.TexCoord[1] < 0 || f.TexCoord[2] < 0 {
			hasUVs = false
			break
		}
	}

	for _, f := range obj.Faces {
		for j := 0; j < 3; j++ {
			m.Indices = append(m.Indices, uint32(f.Vertex[j]))
			if hasUVs {
				m.TexCoords = append(m.TexCoords, obj.TexCoords[f.TexCoord[j]])
			}
		}
		if len(obj.Materials) > 0 {
			m.Materials = append(m.Materials, f.Material)
		}
	}
	return m
}

// EncodeOBJ serialises m as OBJ. Texture coordinates are written per
// corner and materials as usemtl runs. Triangles without a material are
// written first, ahead of any usemtl.
func EncodeOBJ(m *simplify.Mesh) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	fmt.Fprintf(w, "# %d vertices, %d triangles\n", len(m.Positions), m.TriangleCount())
	for _, lib := range m.MaterialLibs {
		fmt.Fprintf(w, "mtllib %s\n", lib)
	}
	for _, p := range m.Positions {
		fmt.Fprintf(w, "v %s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	hasUVs := len(m.TexCoords) == len(m.Indices) && len(m.TexCoords) > 0
	if hasUVs {
		for _, uv := range m.TexCoords {
			fmt.Fprintf(w, "vt %s %s\n", formatFloat(uv.X), formatFloat(uv.Y))
		}
	}

	material := func(i int) int {
		if len(m.Materials) != m.TriangleCount() {
			return -1
		}
		if mat := m.Materials[i]; mat >= 0 && mat < len(m.MaterialNames) {
			return mat
		}
		return -1
	}

	order := make([]int, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		if material(i) < 0 {
			order = append(order, i)
		}
	}
	for i := 0; i < m.TriangleCount(); i++ {
		if material(i) >= 0 {
			order = append(order, i)
		}
	}

	current := -1
	for _, i := range order {
		if mat := material(i); mat != current {
			fmt.Fprintf(w, "usemtl %s\n", m.MaterialNames[mat])
			current = mat
		}
		a, b, c := m.Indices[3*i]+1, m.Indices[3*i+1]+1, m.Indices[3*i+2]+1
		if hasUVs {
			t := 3*i + 1
			fmt.Fprintf(w, "f %d/%d %d/%d %d/%d\n", a, t, b, t+1, c, t+2)
		} else {
			fmt.Fprintf(w, "f %d %d %d\n", a, b, c)
		}
	}

	w.Flush()
	return buf.Bytes()
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
