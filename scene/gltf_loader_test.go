package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/gfx"
)

// writeTriangleScene saves a binary glTF with one textured triangle under a
// translated parent node, plus a line primitive that must be skipped.
func writeTriangleScene(t *testing.T, dir string) string {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Images = []*gltf.Image{{URI: "brick%20diffuse.png"}, {URI: "brick_normal.png"}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}, {Source: gltf.Index(1)}}
	doc.Materials = []*gltf.Material{{
		Name:                 "brick",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{BaseColorTexture: &gltf.TextureInfo{Index: 0}},
		NormalTexture:        &gltf.NormalTexture{Index: gltf.Index(1)},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{
			{
				Indices:    gltf.Index(idx),
				Attributes: map[string]int{"POSITION": pos, "TEXCOORD_0": uv},
				Material:   gltf.Index(0),
			},
			{Mode: gltf.PrimitiveLines, Attributes: map[string]int{"POSITION": pos}},
		},
	}, {
		Name:       "bare",
		Primitives: []*gltf.Primitive{{Attributes: map[string]int{"POSITION": pos}}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "root", Translation: [3]float64{0, 0, 5}, Children: []int{1, 2}},
		{Name: "child", Mesh: gltf.Index(0), Translation: [3]float64{1, 0, 0}},
		{Name: "plain", Mesh: gltf.Index(1)},
	}
	doc.Scenes[0].Nodes = []int{0}

	path := filepath.Join(dir, "tri.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func TestImportGLTF(t *testing.T) {
	dir := t.TempDir()
	imp, err := ImportGLTF(writeTriangleScene(t, dir))
	require.NoError(t, err)

	require.Len(t, imp.Materials, 1)
	assert.Equal(t, MaterialSource{
		Name:        "brick",
		DiffusePath: filepath.Join(dir, "brick diffuse.png"),
		NormalPath:  filepath.Join(dir, "brick_normal.png"),
	}, imp.Materials[0])

	require.Len(t, imp.Meshes, 2, "the line primitive is skipped")
	tri := imp.Meshes[0]
	assert.Equal(t, "tri_p0", tri.Name)
	assert.Equal(t, 0, tri.Material)
	assert.Equal(t, []uint32{0, 1, 2}, tri.Indices)
	require.Len(t, tri.Vertices, 3)

	want := []mgl32.Vec3{{1, 0, 5}, {2, 0, 5}, {1, 1, 5}}
	for i, v := range tri.Vertices {
		assertVec3Near(t, want[i], v.Position, 1e-5, "vertex %d", i)
		assertVec3Near(t, mgl32.Vec3{0, 0, 1}, v.Normal, 1e-5, "generated normal")
		assert.InDelta(t, 1, v.Tangent.Len(), 1e-5, "generated tangent")
	}
	assert.Equal(t, mgl32.Vec2{1, 0}, tri.Vertices[1].TexCoord)

	bare := imp.Meshes[1]
	assert.Equal(t, -1, bare.Material)
	assert.Empty(t, bare.Indices)
	assert.Equal(t, mgl32.Vec3{0, 1, 5}, bare.Vertices[2].Position)
}

func TestImportTextureRequests(t *testing.T) {
	imp := &Import{Materials: []MaterialSource{
		{Name: "a", DiffusePath: "a.png", NormalPath: "a_n.png"},
		{Name: "b", NormalPath: "b_n.png"},
	}}
	assert.Equal(t, []gfx.TextureRequest{
		{Path: "a.png", SRGB: true},
		{Path: "a_n.png"},
		{Path: "b_n.png"},
	}, imp.TextureRequests())
}

func TestImportMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.glb")
	_, err := ImportGLTF(path)

	var ae *gfx.AssetError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, path, ae.Path)
}

func TestImportMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.gltf")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := ImportGLTF(path)

	var ae *gfx.AssetError
	assert.ErrorAs(t, err, &ae)
}

func TestImportRequiresPositions(t *testing.T) {
	doc := gltf.NewDocument()
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{Attributes: map[string]int{"NORMAL": nrm}}}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []int{0}
	path := filepath.Join(t.TempDir(), "nopos.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	_, err := ImportGLTF(path)
	var ae *gfx.AssetError
	require.ErrorAs(t, err, &ae)
	assert.True(t, errors.Is(err, errIncomplete))
}

func TestImportRejectsOutOfRangeIndices(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 7})
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{
		Indices:    gltf.Index(idx),
		Attributes: map[string]int{"POSITION": pos},
	}}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []int{0}
	path := filepath.Join(t.TempDir(), "badidx.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	_, err := ImportGLTF(path)
	assert.ErrorIs(t, err, errIncomplete)
}

func TestImportKeepsTangentHandedness(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	tan := modeler.WriteTangent(doc, [][4]float32{{1, 0, 0, -1}, {1, 0, 0, -1}, {1, 0, 0, 1}})
	doc.Meshes = []*gltf.Mesh{{Name: "mirror", Primitives: []*gltf.Primitive{{
		Attributes: map[string]int{"POSITION": pos, "NORMAL": nrm, "TANGENT": tan},
	}}}}
	doc.Nodes = []*gltf.Node{
		{Name: "plain", Mesh: gltf.Index(0)},
		{Name: "flipped", Mesh: gltf.Index(0), Scale: [3]float64{-1, 1, 1}},
	}
	doc.Scenes[0].Nodes = []int{0, 1}
	path := filepath.Join(t.TempDir(), "mirror.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	imp, err := ImportGLTF(path)
	require.NoError(t, err)
	require.Len(t, imp.Meshes, 2)

	plain := imp.Meshes[0].Vertices
	assertVec3Near(t, mgl32.Vec3{1, 0, 0}, plain[0].Tangent, 1e-6, "w must not flip the tangent")
	assert.Equal(t, float32(-1), plain[0].Handedness)
	assert.Equal(t, float32(1), plain[2].Handedness)

	flipped := imp.Meshes[1].Vertices
	assertVec3Near(t, mgl32.Vec3{-1, 0, 0}, flipped[0].Tangent, 1e-6)
	assert.Equal(t, float32(1), flipped[0].Handedness, "a mirroring node reverses handedness")
	assert.Equal(t, float32(-1), flipped[2].Handedness)
}

func TestNodeMatrixPrefersExplicitMatrix(t *testing.T) {
	m := mgl32.Translate3D(3, 4, 5).Mul4(mgl32.Scale3D(2, 2, 2))
	var raw [16]float64
	for i, v := range m {
		raw[i] = float64(v)
	}
	got := nodeMatrix(&gltf.Node{Matrix: raw, Translation: [3]float64{100, 0, 0}})
	assertMat4Near(t, m, got, 1e-6)

	trs := nodeMatrix(&gltf.Node{
		Translation: [3]float64{1, 2, 3},
		Rotation:    [4]float64{0, 0.7071068, 0, 0.7071068},
		Scale:       [3]float64{2, 2, 2},
	})
	p := trs.Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assertVec3Near(t, mgl32.Vec3{1, 2, 1}, p, 1e-5)
}
