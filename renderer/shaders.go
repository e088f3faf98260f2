package renderer

import (
	"io/fs"

	"deferred-renderer/gfx"
)

// Program sources, relative to the shader filesystem.
const (
	quadVert = "postprocessing.vert.glsl"
)

type programSource struct {
	name       string
	vert, frag string
}

var (
	depthSource    = programSource{"depth", "depth.vert.glsl", "depth.frag.glsl"}
	geometrySource = programSource{"g_buffer", "g_buffer.vert.glsl", "g_buffer.frag.glsl"}
	lightingSource = programSource{"deferred_shading", "deferred_shading.vert.glsl", "deferred_shading.frag.glsl"}
	bloomSource    = programSource{"bloom", quadVert, "gaussian.frag.glsl"}
	postSource     = programSource{"post", quadVert, "postprocessing.frag.glsl"}
	skyboxSource   = programSource{"skybox", "skybox.vert.glsl", "skybox.frag.glsl"}
)

// program builds src and registers it for release with the pipeline.
func (p *Pipeline) program(fsys fs.FS, src programSource) (*gfx.ShaderProgram, error) {
	prog, err := gfx.BuildProgram(p.dev, fsys, src.name, src.vert, src.frag)
	if err != nil {
		return nil, err
	}
	p.own(prog.Destroy)
	return prog, nil
}
