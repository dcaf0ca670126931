// Package formats reads and writes triangle meshes in common interchange
// formats.
package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/meshsimp/pkg/simplify"
)

// ErrUnsupportedFormat is returned for file extensions with no codec.
var ErrUnsupportedFormat = errors.New("unsupported mesh format")

// Format identifies a mesh file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatOBJ
	FormatSTL
)

// String returns the format's usual file extension without the dot.
func (f Format) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatSTL:
		return "stl"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) Format {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseFormat parses a format name such as "obj" or "stl".
func ParseFormat(name string) Format {
	switch strings.ToLower(name) {
	case "obj":
		return FormatOBJ
	case "stl":
		return FormatSTL
	default:
		return FormatUnknown
	}
}

// Decode parses data in format f.
func Decode(data []byte, f Format) (*simplify.Mesh, error) {
	switch f {
	case FormatOBJ:
		obj, err := ParseOBJ(data)
		if err != nil {
			return nil, err
		}
		return obj.Mesh(), nil
	case FormatSTL:
		return ParseSTL(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// Encode serialises m in format f.
func Encode(m *simplify.Mesh, f Format) ([]byte, error) {
	switch f {
	case FormatOBJ:
		return EncodeOBJ(m), nil
	case FormatSTL:
		return EncodeSTL(m), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// ReadFile loads a mesh, choosing the format by extension.
func ReadFile(path string) (*simplify.Mesh, error) {
	f := FormatFromPath(path)
	if f == FormatUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// WriteFile saves a mesh, choosing the format by extension.
func WriteFile(path string, m *simplify.Mesh) error {
	f := FormatFromPath(path)
	if f == FormatUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	data, err := Encode(m, f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
