package scene

import "deferred-renderer/gfx"

// Model is a list of meshes drawn with one transform.
type Model struct {
	Name      string
	Meshes    []*gfx.Mesh
	Transform Transform
}

func NewModel(name string, meshes []*gfx.Mesh) *Model {
	return &Model{Name: name, Meshes: meshes, Transform: NewTransform()}
}

// Draw uploads the model matrix to p and draws every mesh.
func (m *Model) Draw(p *gfx.ShaderProgram) {
	p.SetMat4("model", m.Transform.ModelMatrix())
	for _, mesh := range m.Meshes {
		mesh.Draw()
	}
}

// DrawVisible draws the meshes whose bounds intersect f and returns how
// many were culled. Meshes without a material are drawn with fallback.
func (m *Model) DrawVisible(p *gfx.ShaderProgram, f *Frustum, fallback *gfx.Material) (culled int) {
	world := m.Transform.ModelMatrix()
	p.SetMat4("model", world)
	for _, mesh := range m.Meshes {
		lo, hi := mesh.Bounds()
		if !(AABB{Min: lo, Max: hi}).Transform(world).IntersectsFrustum(f) {
			culled++
			continue
		}
		mesh.DrawWith(fallback)
	}
	return culled
}

// Destroy releases the meshes. Their materials belong to the scene.
func (m *Model) Destroy() {
	for _, mesh := range m.Meshes {
		mesh.Destroy()
	}
	m.Meshes = nil
}
