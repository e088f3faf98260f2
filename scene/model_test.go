package scene

import (
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/gfx"
	"deferred-renderer/internal/gpu/gputest"
)

var modelShaders = fstest.MapFS{
	"m.vert": {Data: []byte("#version 460 core\nuniform mat4 model;\nvoid main() {}\n")},
	"m.frag": {Data: []byte("#version 460 core\nvoid main() {}\n")},
}

func TestModelDrawUploadsMatrix(t *testing.T) {
	dev := gputest.New()
	cache := gfx.NewTextureCache(dev)
	mat, err := gfx.NewMaterial(cache, "plain", "", "")
	require.NoError(t, err)
	cube, err := gfx.NewCube(dev, mat)
	require.NoError(t, err)
	prog, err := gfx.BuildProgram(dev, modelShaders, "m", "m.vert", "m.frag")
	require.NoError(t, err)

	m := NewModel("box", []*gfx.Mesh{cube})
	m.Transform.Position = mgl32.Vec3{0, 2, 0}
	prog.Use()
	m.Draw(prog)

	require.Len(t, dev.Draws, 1)
	assert.Equal(t, mgl32.Translate3D(0, 2, 0), dev.Draws[0].Uniforms["model"])
	assert.Equal(t, 36, dev.Draws[0].Count)

	sc := &Scene{Materials: []*gfx.Material{mat}}
	sc.AddModel(m)
	sc.Destroy()
	assert.Empty(t, m.Meshes)
	assert.Nil(t, mat.Diffuse(), "materials are released")
	assert.Zero(t, cache.White().Refs()-1)
}

func TestModelDrawVisibleCullsOutsideFrustum(t *testing.T) {
	dev := gputest.New()
	ahead, err := gfx.NewCube(dev, nil)
	require.NoError(t, err)
	prog, err := gfx.BuildProgram(dev, modelShaders, "m", "m.vert", "m.frag")
	require.NoError(t, err)

	// Camera at the origin looking down +Z.
	cam := NewCamera(mgl32.Vec3{}, 90, 0, 60, 1, 0.1, 50)
	f := FrustumFromMatrix(cam.ProjectionMatrix().Mul4(cam.ViewMatrix()))

	m := NewModel("box", []*gfx.Mesh{ahead})
	m.Transform.Position = mgl32.Vec3{0, 0, 5}
	prog.Use()
	assert.Zero(t, m.DrawVisible(prog, &f, nil))
	assert.Len(t, dev.Draws, 1)

	dev.Draws = nil
	m.Transform.Position = mgl32.Vec3{0, 0, -5}
	assert.Equal(t, 1, m.DrawVisible(prog, &f, nil))
	assert.Empty(t, dev.Draws)

	m.Destroy()
}
