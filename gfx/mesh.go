package gfx

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/internal/gpu"
)

// Vertex is the single interleaved layout every program consumes:
// location 0 position, 1 normal, 2 texcoord, 3 tangent, 4 handedness.
// Geometry without normal mapping leaves Tangent zero. Handedness is the
// sign of the bitangent relative to Normal x Tangent; mirrored UVs make it
// -1.
type Vertex struct {
	Position   mgl32.Vec3
	Normal     mgl32.Vec3
	TexCoord   mgl32.Vec2
	Tangent    mgl32.Vec3
	Handedness float32
}

const vertexSize = int(unsafe.Sizeof(Vertex{}))

// VertexLayout describes Vertex to the device.
var VertexLayout = gpu.VertexLayout{
	Stride: vertexSize,
	Attributes: []gpu.Attribute{
		{Location: 0, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Position))},
		{Location: 1, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Normal))},
		{Location: 2, Components: 2, Offset: int(unsafe.Offsetof(Vertex{}.TexCoord))},
		{Location: 3, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Tangent))},
		{Location: 4, Components: 1, Offset: int(unsafe.Offsetof(Vertex{}.Handedness))},
	},
}

// Texture units a Material binds to.
const (
	DiffuseUnit = 0
	NormalUnit  = 1
)

// Mesh owns static vertex and index buffers. The Material is shared.
type Mesh struct {
	_ noCopy

	dev         gpu.Device
	vbo         gpu.BufferID
	ebo         gpu.BufferID
	vao         gpu.VertexArrayID
	vertexCount int
	indexCount  int
	material    *Material
	min, max    mgl32.Vec3
}

// NewMesh uploads vertices and optional indices once. mat may be nil.
func NewMesh(dev gpu.Device, vertices []Vertex, indices []uint32, mat *Material) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, &ResourceCreationError{Resource: "mesh", Reason: "no vertices"}
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			return nil, &ResourceCreationError{Resource: "mesh", Reason: "index out of range"}
		}
	}
	m := &Mesh{
		dev:         dev,
		vertexCount: len(vertices),
		indexCount:  len(indices),
		material:    mat,
		min:         vertices[0].Position,
		max:         vertices[0].Position,
	}
	for _, v := range vertices[1:] {
		for k := range 3 {
			m.min[k] = min(m.min[k], v.Position[k])
			m.max[k] = max(m.max[k], v.Position[k])
		}
	}
	m.vbo = dev.CreateBuffer(unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*vertexSize))
	if len(indices) > 0 {
		m.ebo = dev.CreateBuffer(unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4))
	}
	m.vao = dev.CreateVertexArray(VertexLayout, m.vbo, m.ebo)
	return m, nil
}

// Draw binds the material's textures, if any, and issues one draw call.
// Programs that sample material textures use DrawWith instead.
func (m *Mesh) Draw() { m.DrawWith(nil) }

// DrawWith is Draw with fallback bound in place of a missing material, so a
// mesh never samples the textures of the previous draw.
func (m *Mesh) DrawWith(fallback *Material) {
	if mat := m.material; mat != nil {
		mat.Bind()
	} else if fallback != nil {
		fallback.Bind()
	}
	if m.indexCount > 0 {
		m.dev.DrawElements(m.vao, gpu.Triangles, m.indexCount)
		return
	}
	m.dev.DrawArrays(m.vao, gpu.Triangles, 0, m.vertexCount)
}

func (m *Mesh) Material() *Material { return m.material }
func (m *Mesh) VertexCount() int    { return m.vertexCount }
func (m *Mesh) IndexCount() int     { return m.indexCount }

// Bounds is the local axis-aligned box around every vertex.
func (m *Mesh) Bounds() (lo, hi mgl32.Vec3) { return m.min, m.max }

// Destroy releases the buffers. The material is left to its owner.
func (m *Mesh) Destroy() {
	if m.vao == 0 {
		return
	}
	m.dev.DeleteVertexArray(m.vao)
	m.dev.DeleteBuffer(m.vbo)
	if m.ebo != 0 {
		m.dev.DeleteBuffer(m.ebo)
	}
	m.vao, m.vbo, m.ebo = 0, 0, 0
}

// ── Primitives ───────────────────────────────────────────────────────────────

// NewQuad is a full-screen quad in normalised device coordinates, the target
// of every screen-space pass.
func NewQuad(dev gpu.Device) (*Mesh, error) {
	n := mgl32.Vec3{0, 0, 1}
	vertices := []Vertex{
		{Position: mgl32.Vec3{-1, -1, 0}, Normal: n, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{1, -1, 0}, Normal: n, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{1, 1, 0}, Normal: n, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{-1, 1, 0}, Normal: n, TexCoord: mgl32.Vec2{0, 1}},
	}
	return NewMesh(dev, vertices, []uint32{0, 1, 2, 2, 3, 0}, nil)
}

// NewCube is an axis-aligned unit cube centred on the origin with outward
// faces and tangents.
func NewCube(dev gpu.Device, mat *Material) (*Mesh, error) {
	vertices, indices := cubeGeometry()
	ComputeTangents(vertices, indices)
	return NewMesh(dev, vertices, indices, mat)
}

// NewInvertedCube is the unit cube seen from inside, for skyboxes.
func NewInvertedCube(dev gpu.Device) (*Mesh, error) {
	vertices, indices := invertedCubeGeometry()
	return NewMesh(dev, vertices, indices, nil)
}

func invertedCubeGeometry() ([]Vertex, []uint32) {
	vertices, indices := cubeGeometry()
	for i := range vertices {
		vertices[i].Normal = vertices[i].Normal.Mul(-1)
	}
	for i := 0; i+2 < len(indices); i += 3 {
		indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
	}
	return vertices, indices
}

func cubeGeometry() ([]Vertex, []uint32) {
	const s = 0.5
	type face struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}
	faces := []face{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-s, -s, s}, {s, -s, s}, {s, s, s}, {-s, s, s}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{s, -s, -s}, {-s, -s, -s}, {-s, s, -s}, {s, s, -s}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-s, s, s}, {s, s, s}, {s, s, -s}, {-s, s, -s}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-s, -s, -s}, {s, -s, -s}, {s, -s, s}, {-s, -s, s}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{s, -s, s}, {s, -s, -s}, {s, s, -s}, {s, s, s}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-s, -s, -s}, {-s, -s, s}, {-s, s, s}, {-s, s, -s}}},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for i, c := range f.corners {
			vertices = append(vertices, Vertex{Position: c, Normal: f.normal, TexCoord: uvs[i]})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return vertices, indices
}
