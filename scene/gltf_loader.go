package scene

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"deferred-renderer/gfx"
	"deferred-renderer/internal/logx"
)

// MaterialSource names a material's texture files. Empty paths mean the
// placeholder is used.
type MaterialSource struct {
	Name        string
	DiffusePath string
	NormalPath  string
}

// MeshSource is one triangle list ready for upload. Material indexes
// Import.Materials, or is -1.
type MeshSource struct {
	Name     string
	Vertices []gfx.Vertex
	Indices  []uint32
	Material int
}

// Import is a decoded scene file: CPU-side geometry and texture paths.
type Import struct {
	Path      string
	Materials []MaterialSource
	Meshes    []MeshSource
}

// TextureRequests lists every texture the import's materials reference.
func (imp *Import) TextureRequests() []gfx.TextureRequest {
	var reqs []gfx.TextureRequest
	for _, m := range imp.Materials {
		if m.DiffusePath != "" {
			reqs = append(reqs, gfx.TextureRequest{Path: m.DiffusePath, SRGB: true})
		}
		if m.NormalPath != "" {
			reqs = append(reqs, gfx.TextureRequest{Path: m.NormalPath})
		}
	}
	return reqs
}

var errIncomplete = errors.New("incomplete data")

// ImportGLTF reads a .gltf or .glb file. Node transforms are baked into the
// vertices. Missing normals and tangents are generated; primitives that are
// not triangle lists are skipped.
func ImportGLTF(path string) (*Import, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, &gfx.AssetError{Path: path, Err: err}
	}
	imp := &Import{Path: path}
	dir := filepath.Dir(path)

	// ── Materials ─────────────────────────────────────────────────────────────
	for i, gm := range doc.Materials {
		src := MaterialSource{Name: gm.Name}
		if src.Name == "" {
			src.Name = fmt.Sprintf("material_%d", i)
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
			if src.DiffusePath, err = texturePath(doc, dir, pbr.BaseColorTexture.Index); err != nil {
				return nil, &gfx.AssetError{Path: path, Err: fmt.Errorf("material %d base colour: %w", i, err)}
			}
		}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			if src.NormalPath, err = texturePath(doc, dir, *gm.NormalTexture.Index); err != nil {
				return nil, &gfx.AssetError{Path: path, Err: fmt.Errorf("material %d normal: %w", i, err)}
			}
		}
		imp.Materials = append(imp.Materials, src)
	}

	// ── Nodes ─────────────────────────────────────────────────────────────────
	var walk func(idx int, parent mgl32.Mat4, depth int) error
	walk = func(idx int, parent mgl32.Mat4, depth int) error {
		if idx < 0 || idx >= len(doc.Nodes) || depth > len(doc.Nodes) {
			return fmt.Errorf("node %d: %w", idx, errIncomplete)
		}
		gn := doc.Nodes[idx]
		world := parent.Mul4(nodeMatrix(gn))
		if gn.Mesh != nil {
			if err := imp.addMesh(doc, *gn.Mesh, world); err != nil {
				return fmt.Errorf("node %d: %w", idx, err)
			}
		}
		for _, child := range gn.Children {
			if err := walk(child, world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range rootNodes(doc) {
		if err := walk(root, mgl32.Ident4(), 0); err != nil {
			return nil, &gfx.AssetError{Path: path, Err: err}
		}
	}

	logx.Logger().Info("scene imported", "path", path,
		"materials", len(imp.Materials), "meshes", len(imp.Meshes))
	return imp, nil
}

// texturePath resolves a texture index to a file next to the scene.
// Embedded images are not supported and resolve to "".
func texturePath(doc *gltf.Document, dir string, texIdx int) (string, error) {
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return "", fmt.Errorf("texture %d: %w", texIdx, errIncomplete)
	}
	tex := doc.Textures[texIdx]
	if tex.Source == nil {
		return "", nil
	}
	if *tex.Source < 0 || *tex.Source >= len(doc.Images) {
		return "", fmt.Errorf("image %d: %w", *tex.Source, errIncomplete)
	}
	img := doc.Images[*tex.Source]
	if img.URI == "" || img.IsEmbeddedResource() {
		logx.Logger().Warn("embedded image ignored, using placeholder", "image", *tex.Source)
		return "", nil
	}
	uri, err := url.PathUnescape(img.URI)
	if err != nil {
		return "", fmt.Errorf("image %d uri: %w", *tex.Source, err)
	}
	return filepath.Join(dir, filepath.FromSlash(uri)), nil
}

// rootNodes are the default scene's nodes, or every parentless node when the
// file names no scene.
func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			s = *doc.Scene
		}
		return doc.Scenes[s].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// nodeMatrix is the node's local transform. glTF matrices are column-major
// like mgl32.
func nodeMatrix(gn *gltf.Node) mgl32.Mat4 {
	if m := gn.MatrixOrDefault(); m != identityMatrix {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault() // x, y, z, w
	s := gn.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func (imp *Import) addMesh(doc *gltf.Document, meshIdx int, world mgl32.Mat4) error {
	if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
		return fmt.Errorf("mesh %d: %w", meshIdx, errIncomplete)
	}
	gm := doc.Meshes[meshIdx]
	normalMatrix := world.Mat3().Inv().Transpose()
	// A mirroring transform reverses Normal x Tangent.
	mirrored := world.Mat3().Det() < 0
	for pi, prim := range gm.Primitives {
		name := fmt.Sprintf("%s_p%d", gm.Name, pi)
		if gm.Name == "" {
			name = fmt.Sprintf("mesh%d_p%d", meshIdx, pi)
		}
		if prim.Mode != gltf.PrimitiveTriangles {
			logx.Logger().Warn("non-triangle primitive skipped", "primitive", name, "mode", prim.Mode)
			continue
		}
		src, err := readPrimitive(doc, prim)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		src.Name = name
		src.Material = -1
		if prim.Material != nil {
			if *prim.Material < 0 || *prim.Material >= len(imp.Materials) {
				return fmt.Errorf("%s material %d: %w", name, *prim.Material, errIncomplete)
			}
			src.Material = *prim.Material
		}
		for i := range src.Vertices {
			v := &src.Vertices[i]
			v.Position = world.Mul4x1(v.Position.Vec4(1)).Vec3()
			v.Normal = normalMatrix.Mul3x1(v.Normal).Normalize()
			if v.Tangent.LenSqr() > 0 {
				v.Tangent = world.Mat3().Mul3x1(v.Tangent).Normalize()
			}
			if mirrored {
				v.Handedness = -v.Handedness
			}
		}
		imp.Meshes = append(imp.Meshes, src)
	}
	return nil
}

func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) (MeshSource, error) {
	accessor := func(semantic string) (*gltf.Accessor, bool, error) {
		idx, ok := prim.Attributes[semantic]
		if !ok {
			return nil, false, nil
		}
		if idx < 0 || idx >= len(doc.Accessors) {
			return nil, false, fmt.Errorf("%s accessor %d: %w", semantic, idx, errIncomplete)
		}
		return doc.Accessors[idx], true, nil
	}

	var src MeshSource
	posAcc, ok, err := accessor("POSITION")
	if err != nil {
		return src, err
	}
	if !ok {
		return src, fmt.Errorf("no POSITION attribute: %w", errIncomplete)
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		return src, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if acc, ok, err := accessor("NORMAL"); err != nil {
		return src, err
	} else if ok {
		if normals, err = modeler.ReadNormal(doc, acc, nil); err != nil {
			return src, fmt.Errorf("normals: %w", err)
		}
	}
	var uvs [][2]float32
	if acc, ok, err := accessor("TEXCOORD_0"); err != nil {
		return src, err
	} else if ok {
		if uvs, err = modeler.ReadTextureCoord(doc, acc, nil); err != nil {
			return src, fmt.Errorf("texcoords: %w", err)
		}
	}
	var tangents [][4]float32
	if acc, ok, err := accessor("TANGENT"); err != nil {
		return src, err
	} else if ok {
		if tangents, err = modeler.ReadTangent(doc, acc, nil); err != nil {
			return src, fmt.Errorf("tangents: %w", err)
		}
	}

	src.Vertices = make([]gfx.Vertex, len(positions))
	for i, p := range positions {
		v := gfx.Vertex{Position: mgl32.Vec3(p)}
		if i < len(normals) {
			v.Normal = mgl32.Vec3(normals[i])
		}
		if i < len(uvs) {
			v.TexCoord = mgl32.Vec2(uvs[i])
		}
		if i < len(tangents) {
			t := tangents[i]
			v.Tangent = mgl32.Vec3{t[0], t[1], t[2]}
			v.Handedness = 1
			if t[3] < 0 {
				v.Handedness = -1
			}
		}
		src.Vertices[i] = v
	}

	if prim.Indices != nil {
		if *prim.Indices < 0 || *prim.Indices >= len(doc.Accessors) {
			return src, fmt.Errorf("index accessor %d: %w", *prim.Indices, errIncomplete)
		}
		if src.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return src, fmt.Errorf("indices: %w", err)
		}
		for _, i := range src.Indices {
			if int(i) >= len(src.Vertices) {
				return src, fmt.Errorf("index %d out of range: %w", i, errIncomplete)
			}
		}
	}
	if len(src.Indices) == 0 && len(src.Vertices)%3 != 0 {
		return src, fmt.Errorf("%d vertices is not a triangle list: %w", len(src.Vertices), errIncomplete)
	}

	if len(normals) < len(positions) {
		gfx.GenerateNormals(src.Vertices, src.Indices)
	}
	if len(tangents) < len(positions) {
		gfx.ComputeTangents(src.Vertices, src.Indices)
	}
	return src, nil
}
