package scene

import "deferred-renderer/gfx"

// Scene is everything the renderer draws in a frame: a flat list of models,
// the materials they share, the camera and the two lights.
type Scene struct {
	Models    []*Model
	Materials []*gfx.Material
	Camera    *Camera
	Sun       *DirectionalLight
	Light     *PointLight
}

func (s *Scene) AddModel(m *Model) {
	s.Models = append(s.Models, m)
}

// Destroy releases models first, then the materials they referenced.
func (s *Scene) Destroy() {
	for _, m := range s.Models {
		m.Destroy()
	}
	s.Models = nil
	for _, mat := range s.Materials {
		mat.Release()
	}
	s.Materials = nil
}
