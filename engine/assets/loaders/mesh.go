package loaders

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

type Vec2 [2]float32

type Vec3 [3]float32

type Vertex struct {
	Position Vec3 `json:"position"`
	Normal   Vec3 `json:"normal"`
	Texcoord Vec2 `json:"texcoord"`
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Name         string   `json:"name"`
	MaterialName string   `json:"material,omitempty"`
	Vertices     []Vertex `json:"vertices"`
	Indices      []uint32 `json:"indices"`
}

// MeshLoader reads Wavefront .obj files and the engine's JSON .mesh format.
type MeshLoader struct{}

func (ml *MeshLoader) Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error) {
	data, err := fsys.ReadFile(md.Path)
	if err != nil {
		return nil, err
	}

	var mesh *Mesh
	switch ext := strings.ToLower(path.Ext(md.Path)); ext {
	case ".obj":
		mesh, err = parseOBJ(data)
	case ".mesh":
		mesh = &Mesh{}
		err = json.Unmarshal(data, mesh)
	default:
		return nil, fmt.Errorf("%w: mesh extension %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", md.Path, err)
	}
	if err := validateMesh(mesh); err != nil {
		return nil, fmt.Errorf("%s: %w", md.Path, err)
	}
	if mesh.Name == "" {
		mesh.Name = md.Name
	}
	return mesh, nil
}

func (ml *MeshLoader) Save(fsys platform.FileSystem, md metadata.AssetMetadata, asset any) error {
	mesh, ok := asset.(*Mesh)
	if !ok {
		return unexpectedAsset(md, "*Mesh", asset)
	}
	if err := validateMesh(mesh); err != nil {
		return err
	}

	var data []byte
	switch ext := strings.ToLower(path.Ext(md.Path)); ext {
	case ".obj":
		data = encodeOBJ(mesh)
	case ".mesh":
		var err error
		if data, err = json.MarshalIndent(mesh, "", "  "); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: mesh extension %s", ErrUnsupportedFormat, ext)
	}
	return fsys.WriteFile(md.Path, data)
}

type objIndex struct {
	v, vt, vn int
}

// parseOBJ reads positions, texcoords, normals and faces. Polygons are
// triangulated as fans; objects, groups and smoothing are flattened.
func parseOBJ(data []byte) (*Mesh, error) {
	var (
		positions []Vec3
		texcoords []Vec2
		normals   []Vec3
		mesh      = &Mesh{}
		seen      = make(map[objIndex]uint32)
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			positions = append(positions, Vec3{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			texcoords = append(texcoords, Vec2{v[0], v[1]})
		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			normals = append(normals, Vec3{v[0], v[1], v[2]})
		case "o":
			if mesh.Name == "" && len(fields) > 1 {
				mesh.Name = strings.Join(fields[1:], " ")
			}
		case "usemtl":
			if mesh.MaterialName == "" && len(fields) > 1 {
				mesh.MaterialName = fields[1]
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: %w: face needs at least 3 vertices", lineNo, ErrInvalidMesh)
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := parseFaceRef(ref, len(positions), len(texcoords), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				vi, ok := seen[idx]
				if !ok {
					vert := Vertex{Position: positions[idx.v]}
					if idx.vt >= 0 {
						vert.Texcoord = texcoords[idx.vt]
					}
					if idx.vn >= 0 {
						vert.Normal = normals[idx.vn]
					}
					vi = uint32(len(mesh.Vertices))
					mesh.Vertices = append(mesh.Vertices, vert)
					seen[idx] = vi
				}
				face = append(face, vi)
			}
			for i := 1; i+1 < len(face); i++ {
				mesh.Indices = append(mesh.Indices, face[0], face[i], face[i+1])
			}
		default:
			// mtllib, g, s, l and friends carry nothing the mesh needs.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mesh, nil
}

// parseFaceRef resolves "v", "v/vt", "v//vn" or "v/vt/vn" to zero-based
// indices, -1 for absent parts. Negative OBJ indices count from the end.
func parseFaceRef(ref string, nv, nvt, nvn int) (objIndex, error) {
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return objIndex{}, fmt.Errorf("%w: face reference %q", ErrInvalidMesh, ref)
	}
	out := objIndex{v: -1, vt: -1, vn: -1}
	targets := []*int{&out.v, &out.vt, &out.vn}
	counts := []int{nv, nvt, nvn}
	for i, part := range parts {
		if part == "" {
			if i == 0 {
				return objIndex{}, fmt.Errorf("%w: face reference %q has no position", ErrInvalidMesh, ref)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return objIndex{}, fmt.Errorf("%w: face reference %q", ErrInvalidMesh, ref)
		}
		if n < 0 {
			n = counts[i] + n
		} else {
			n--
		}
		if n < 0 || n >= counts[i] {
			return objIndex{}, fmt.Errorf("%w: face reference %q out of range", ErrInvalidMesh, ref)
		}
		*targets[i] = n
	}
	return out, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidMesh, n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidMesh, fields[i])
		}
		out[i] = float32(f)
	}
	return out, nil
}

// encodeOBJ writes one v/vt/vn triple per vertex so indices map 1:1.
func encodeOBJ(mesh *Mesh) []byte {
	var b bytes.Buffer
	if mesh.Name != "" {
		fmt.Fprintf(&b, "o %s\n", mesh.Name)
	}
	if mesh.MaterialName != "" {
		fmt.Fprintf(&b, "usemtl %s\n", mesh.MaterialName)
	}
	for _, v := range mesh.Vertices {
		fmt.Fprintf(&b, "v %s %s %s\n", formatFloat(v.Position[0]), formatFloat(v.Position[1]), formatFloat(v.Position[2]))
	}
	for _, v := range mesh.Vertices {
		fmt.Fprintf(&b, "vt %s %s\n", formatFloat(v.Texcoord[0]), formatFloat(v.Texcoord[1]))
	}
	for _, v := range mesh.Vertices {
		fmt.Fprintf(&b, "vn %s %s %s\n", formatFloat(v.Normal[0]), formatFloat(v.Normal[1]), formatFloat(v.Normal[2]))
	}
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		b.WriteString("f")
		for _, idx := range mesh.Indices[i : i+3] {
			n := idx + 1
			fmt.Fprintf(&b, " %d/%d/%d", n, n, n)
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

func validateMesh(mesh *Mesh) error {
	if len(mesh.Indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidMesh, len(mesh.Indices))
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= len(mesh.Vertices) {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidMesh, idx)
		}
	}
	return nil
}
