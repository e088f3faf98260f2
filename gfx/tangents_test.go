package gfx

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestComputeTangentsFollowsU(t *testing.T) {
	vertices, indices := cubeGeometry()
	ComputeTangents(vertices, indices)

	front := vertices[:4]
	for _, v := range front {
		assert.InDelta(t, 1, v.Tangent.X(), 1e-5)
		assert.InDelta(t, 0, v.Tangent.Y(), 1e-5)
		assert.InDelta(t, 0, v.Tangent.Z(), 1e-5)
	}
	for _, v := range vertices {
		assert.InDelta(t, 1, v.Tangent.Len(), 1e-5)
		assert.InDelta(t, 0, v.Tangent.Dot(v.Normal), 1e-5)
		assert.Equal(t, float32(1), v.Handedness)
	}
}

func TestComputeTangentsMirroredUV(t *testing.T) {
	// V runs down the triangle, so the UV bitangent is -(N x T).
	vertices := []Vertex{
		{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0, 0}},
	}
	ComputeTangents(vertices, nil)
	for _, v := range vertices {
		assert.InDelta(t, 1, v.Tangent.X(), 1e-5, "tangent still follows U")
		assert.Equal(t, float32(-1), v.Handedness)
	}
}

func TestComputeTangentsDegenerateUV(t *testing.T) {
	vertices := []Vertex{
		{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 0, 1}, Normal: mgl32.Vec3{1, 0, 0}},
	}
	ComputeTangents(vertices, nil)
	for _, v := range vertices {
		assert.InDelta(t, 1, v.Tangent.Len(), 1e-5)
		assert.InDelta(t, 0, v.Tangent.Dot(v.Normal), 1e-5)
	}
}

func TestGenerateNormals(t *testing.T) {
	vertices := []Vertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 0, -1}},
		{Position: mgl32.Vec3{5, 5, 5}},
	}
	GenerateNormals(vertices, []uint32{0, 1, 2})
	for _, v := range vertices[:3] {
		assert.InDelta(t, 1, v.Normal.Y(), 1e-5)
	}
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, vertices[3].Normal, "unreferenced vertices get a default")
}
