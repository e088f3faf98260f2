package scene

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/gfx"
	"deferred-renderer/internal/gpu/gputest"
)

func writeSolidPNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadUploadsImport(t *testing.T) {
	dir := t.TempDir()
	path := writeTriangleScene(t, dir)
	writeSolidPNG(t, filepath.Join(dir, "brick diffuse.png"), color.NRGBA{200, 80, 40, 255})
	writeSolidPNG(t, filepath.Join(dir, "brick_normal.png"), color.NRGBA{128, 128, 255, 255})

	imp, err := ImportGLTF(path)
	require.NoError(t, err)

	dev := gputest.New()
	cache := gfx.NewTextureCache(dev)
	var progressed int
	model, materials, err := Load(context.Background(), dev, cache, imp, func(gfx.TextureRequest) { progressed++ })
	require.NoError(t, err)

	assert.Equal(t, 2, progressed)
	assert.Equal(t, "tri", model.Name)
	require.Len(t, model.Meshes, 2)
	require.Len(t, materials, 2, "imported material plus the fallback")

	brick := model.Meshes[0].Material()
	assert.Equal(t, "brick", brick.Name)
	assert.Equal(t, filepath.Join(dir, "brick diffuse.png"), brick.Diffuse().Path())
	assert.Equal(t, filepath.Join(dir, "brick_normal.png"), brick.Normal().Path())

	fallback := model.Meshes[1].Material()
	assert.Equal(t, "default", fallback.Name)
	assert.Equal(t, gfx.WhiteTexture, fallback.Diffuse().Path())
	assert.Equal(t, gfx.FlatNormalTexture, fallback.Normal().Path())

	sc := &Scene{Materials: materials}
	sc.AddModel(model)
	sc.Destroy()
	cache.Destroy()
	assert.Zero(t, dev.Live())
}

func TestLoadMissingTexture(t *testing.T) {
	dir := t.TempDir()
	imp, err := ImportGLTF(writeTriangleScene(t, dir))
	require.NoError(t, err)

	dev := gputest.New()
	cache := gfx.NewTextureCache(dev)
	before := dev.Live()
	_, _, err = Load(context.Background(), dev, cache, imp, nil)

	var ae *gfx.AssetError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, before, dev.Live(), "nothing leaks on failure")
}

func TestLoadRejectsBadGeometry(t *testing.T) {
	dev := gputest.New()
	cache := gfx.NewTextureCache(dev)
	before := dev.Live()
	imp := &Import{
		Path:      "broken.glb",
		Materials: []MaterialSource{{Name: "plain"}},
		Meshes: []MeshSource{
			{Name: "good", Vertices: make([]gfx.Vertex, 3), Material: 0},
			{Name: "bad", Vertices: make([]gfx.Vertex, 3), Indices: []uint32{0, 1, 9}, Material: 0},
		},
	}
	_, _, err := Load(context.Background(), dev, cache, imp, nil)
	assert.Error(t, err)
	assert.Equal(t, before, dev.Live())
}

func TestLoadReportsFallbackMaterialFailure(t *testing.T) {
	dev := gputest.New()
	cache := gfx.NewTextureCache(dev)
	cache.Destroy()
	imp := &Import{
		Path:   "bare.obj",
		Meshes: []MeshSource{{Name: "bare", Vertices: make([]gfx.Vertex, 3), Material: -1}},
	}

	model, materials, err := Load(context.Background(), dev, cache, imp, nil)
	var rce *gfx.ResourceCreationError
	require.ErrorAs(t, err, &rce)
	assert.Contains(t, err.Error(), "material default")
	assert.Nil(t, model)
	assert.Nil(t, materials)
	assert.Zero(t, dev.Live())
}
