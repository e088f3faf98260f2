package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/gfx"
	"deferred-renderer/internal/logx"
)

// objCorner is one face corner as 0-based position, UV and normal indices;
// -1 means absent.
type objCorner struct{ v, vt, vn int }

type objGroup struct {
	name     string
	material string
	corners  []objCorner // triangle list
}

// ImportOBJ reads a Wavefront .obj file and the .mtl libraries it names.
// Each object, group or material change becomes one mesh. Polygons are fan
// triangulated and V is flipped to match the glTF convention.
func ImportOBJ(path string) (*Import, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &gfx.AssetError{Path: path, Err: err}
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var (
		positions []mgl32.Vec3
		normals   []mgl32.Vec3
		uvs       []mgl32.Vec2
		groups    []*objGroup
		libraries []string
	)
	cur := &objGroup{name: "default"}
	next := func(name, material string) {
		if len(cur.corners) > 0 {
			groups = append(groups, cur)
		}
		cur = &objGroup{name: name, material: material}
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		fail := func(err error) (*Import, error) {
			return nil, &gfx.AssetError{Path: path, Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}

		switch fields[0] {
		case "v", "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return fail(err)
			}
			if fields[0] == "v" {
				positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})
			} else {
				normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})
			}
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return fail(err)
			}
			uvs = append(uvs, mgl32.Vec2{v[0], 1 - v[1]})
		case "o", "g":
			name := "default"
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			next(name, cur.material)
		case "usemtl":
			if len(fields) < 2 {
				return fail(fmt.Errorf("usemtl without a name: %w", errIncomplete))
			}
			if fields[1] != cur.material {
				next(cur.name, fields[1])
			}
		case "mtllib":
			for _, lib := range fields[1:] {
				libraries = append(libraries, filepath.Join(dir, lib))
			}
		case "f":
			if len(fields) < 4 {
				return fail(fmt.Errorf("face with %d corners: %w", len(fields)-1, errIncomplete))
			}
			corners := make([]objCorner, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				c, err := parseCorner(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return fail(err)
				}
				corners = append(corners, c)
			}
			for i := 1; i+1 < len(corners); i++ {
				cur.corners = append(cur.corners, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &gfx.AssetError{Path: path, Err: err}
	}
	next("", "")
	if len(groups) == 0 {
		return nil, &gfx.AssetError{Path: path, Err: fmt.Errorf("no faces: %w", errIncomplete)}
	}

	imp := &Import{Path: path}
	materialIndex := make(map[string]int)
	for _, lib := range libraries {
		mats, err := readMTL(lib)
		if err != nil {
			return nil, &gfx.AssetError{Path: path, Err: err}
		}
		for _, m := range mats {
			if _, dup := materialIndex[m.Name]; dup {
				continue
			}
			materialIndex[m.Name] = len(imp.Materials)
			imp.Materials = append(imp.Materials, m)
		}
	}

	for i, g := range groups {
		src := buildOBJMesh(g, positions, uvs, normals)
		src.Name = fmt.Sprintf("%s_%d", g.name, i)
		src.Material = -1
		if g.material != "" {
			idx, ok := materialIndex[g.material]
			if !ok {
				logx.Logger().Warn("unknown obj material, using placeholder", "mesh", src.Name, "material", g.material)
			} else {
				src.Material = idx
			}
		}
		imp.Meshes = append(imp.Meshes, src)
	}

	logx.Logger().Info("scene imported", "path", path,
		"materials", len(imp.Materials), "meshes", len(imp.Meshes))
	return imp, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d numbers, got %d: %w", n, len(fields), errIncomplete)
	}
	out := make([]float32, n)
	for i := range n {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseCorner reads "v", "v/vt", "v//vn" or "v/vt/vn". Indices are 1-based,
// negative ones count back from the last element read so far.
func parseCorner(tok string, nv, nvt, nvn int) (objCorner, error) {
	c := objCorner{v: -1, vt: -1, vn: -1}
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return c, fmt.Errorf("face corner %q: %w", tok, errIncomplete)
	}
	resolve := func(s string, count int, required bool) (int, error) {
		if s == "" {
			if required {
				return -1, fmt.Errorf("face corner %q has no position: %w", tok, errIncomplete)
			}
			return -1, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return -1, fmt.Errorf("face corner %q: %w", tok, err)
		}
		if n < 0 {
			n += count
		} else {
			n--
		}
		if n < 0 || n >= count {
			return -1, fmt.Errorf("face corner %q out of range: %w", tok, errIncomplete)
		}
		return n, nil
	}

	var err error
	if c.v, err = resolve(parts[0], nv, true); err != nil {
		return c, err
	}
	if len(parts) > 1 {
		if c.vt, err = resolve(parts[1], nvt, false); err != nil {
			return c, err
		}
	}
	if len(parts) > 2 {
		if c.vn, err = resolve(parts[2], nvn, false); err != nil {
			return c, err
		}
	}
	return c, nil
}

// buildOBJMesh deduplicates corners into an indexed vertex list.
func buildOBJMesh(g *objGroup, positions []mgl32.Vec3, uvs []mgl32.Vec2, normals []mgl32.Vec3) MeshSource {
	var src MeshSource
	seen := make(map[objCorner]uint32, len(g.corners))
	missingNormals := false
	for _, c := range g.corners {
		if idx, ok := seen[c]; ok {
			src.Indices = append(src.Indices, idx)
			continue
		}
		v := gfx.Vertex{Position: positions[c.v]}
		if c.vt >= 0 {
			v.TexCoord = uvs[c.vt]
		}
		if c.vn >= 0 {
			v.Normal = normals[c.vn]
		} else {
			missingNormals = true
		}
		idx := uint32(len(src.Vertices))
		seen[c] = idx
		src.Vertices = append(src.Vertices, v)
		src.Indices = append(src.Indices, idx)
	}
	if missingNormals {
		gfx.GenerateNormals(src.Vertices, src.Indices)
	}
	gfx.ComputeTangents(src.Vertices, src.Indices)
	return src
}

// readMTL reads the texture maps of every material in an .mtl library.
// Colour and shininess terms are ignored: the G-buffer stores only albedo
// and normals.
func readMTL(path string) ([]MaterialSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var mats []MaterialSource
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			mats = append(mats, MaterialSource{Name: fields[1]})
			continue
		}
		if len(mats) == 0 {
			continue
		}
		cur := &mats[len(mats)-1]
		// Options such as "-bm 1" precede the file name, which comes last.
		file := filepath.Join(dir, filepath.FromSlash(fields[len(fields)-1]))
		switch fields[0] {
		case "map_Kd":
			cur.DiffusePath = file
		case "map_Bump", "map_bump", "bump", "norm":
			cur.NormalPath = file
		}
	}
	return mats, scanner.Err()
}
