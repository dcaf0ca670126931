package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/meshsimp/pkg/math"
	"github.com/Faultbox/meshsimp/pkg/simplify"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTLFacet  = errors.New("invalid STL facet")
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// stlTriangle is the on-disk layout of a binary STL facet.
type stlTriangle struct {
	Normal    [3]float32
	Vertices  [3][3]float32
	Attribute uint16
}

// ParseSTL parses binary or ASCII STL data. Identical positions are welded
// into shared vertices.
func ParseSTL(data []byte) (*simplify.Mesh, error) {
	if isASCIISTL(data) {
		return parseASCIISTL(data)
	}
	return parseBinarySTL(data)
}

// isASCIISTL reports whether data looks like ASCII STL. Binary files may
// also start with "solid", so the binary size is checked first.
func isASCIISTL(data []byte) bool {
	if len(data) >= stlHeaderSize+4 {
		count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
		if uint64(len(data)) == stlHeaderSize+4+uint64(count)*stlTriangleSize {
			return false
		}
	}
	head := data[:min(len(data), 512)]
	return bytes.HasPrefix(bytes.TrimSpace(head), []byte("solid")) && bytes.Contains(data, []byte("facet"))
}

func parseBinarySTL(data []byte) (*simplify.Mesh, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, ErrTruncatedSTLData
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	r := bytes.NewReader(data[stlHeaderSize+4:])
	if uint64(r.Len()) < uint64(count)*stlTriangleSize {
		return nil, fmt.Errorf("%w: %d triangles declared, %d bytes left", ErrTruncatedSTLData, count, r.Len())
	}

	w := newWelder(int(count))
	for i := uint32(0); i < count; i++ {
		var tri stlTriangle
		if err := binary.Read(r, binary.LittleEndian, &tri); err != nil {
			return nil, fmt.Errorf("%w: triangle %d: %v", ErrTruncatedSTLData, i, err)
		}
		for _, v := range tri.Vertices {
			w.add(math.Vec3{X: v[0], Y: v[1], Z: v[2]})
		}
	}
	return w.mesh(), nil
}

func parseASCIISTL(data []byte) (*simplify.Mesh, error) {
	w := newWelder(0)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	corners := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			corners = 0
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d", ErrInvalidSTLFacet, line)
			}
			var p [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLFacet, line, err)
				}
				p[i] = float32(f)
			}
			w.add(math.Vec3{X: p[0], Y: p[1], Z: p[2]})
			corners++
		case "endfacet":
			if corners != 3 {
				return nil, fmt.Errorf("%w: line %d: %d vertices", ErrInvalidSTLFacet, line, corners)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return w.mesh(), nil
}

// welder merges bit-identical positions into shared vertices.
type welder struct {
	index     map[math.Vec3]uint32
	positions []math.Vec3
	indices   []uint32
}

func newWelder(triangles int) *welder {
	return &welder{
		index:   make(map[math.Vec3]uint32, triangles/2),
		indices: make([]uint32, 0, triangles*3),
	}
}

func (w *welder) add(p math.Vec3) {
	idx, ok := w.index[p]
	if !ok {
		idx = uint32(len(w.positions))
		w.index[p] = idx
		w.positions = append(w.positions, p)
	}
	w.indices = append(w.indices, idx)
}

func (w *welder) mesh() *simplify.Mesh {
	return &simplify.Mesh{Positions: w.positions, Indices: w.indices}
}

// EncodeSTL serialises m as binary STL with face normals.
func EncodeSTL(m *simplify.Mesh) []byte {
	var buf bytes.Buffer
	header := make([]byte, stlHeaderSize)
	copy(header, "meshsimp")
	buf.Write(header)
	binary.Write(&buf, binary.LittleEndian, uint32(m.TriangleCount()))

	for i := 0; i < m.TriangleCount(); i++ {
		p0 := m.Positions[m.Indices[3*i]]
		p1 := m.Positions[m.Indices[3*i+1]]
		p2 := m.Positions[m.Indices[3*i+2]]
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		if l := n.Length(); l > 0 {
			n = n.Scale(1 / l)
		}
		tri := stlTriangle{
			Normal: [3]float32{n.X, n.Y, n.Z},
			Vertices: [3][3]float32{
				{p0.X, p0.Y, p0.Z},
				{p1.X, p1.Y, p1.Z},
				{p2.X, p2.Y, p2.Z},
			},
		}
		binary.Write(&buf, binary.LittleEndian, &tri)
	}
	return buf.Bytes()
}
