package shaders

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/gfx"
	"deferred-renderer/internal/gpu/gputest"
)

func TestProgramsBuild(t *testing.T) {
	programs := []struct {
		name, vert, frag string
		uniforms         []string
	}{
		{"depth", "depth.vert.glsl", "depth.frag.glsl", []string{"light_space", "model"}},
		{"g_buffer", "g_buffer.vert.glsl", "g_buffer.frag.glsl", []string{
			"model", "view", "projection", "camera_position",
			"material.diffuse_map", "material.normal_map",
		}},
		{"deferred_shading", "deferred_shading.vert.glsl", "deferred_shading.frag.glsl", []string{
			"sun.direction", "sun.color", "sun.ambient", "sun.diffuse", "sun.specular",
			"sun.shadow_map", "sun.transform",
			"point_light.position", "point_light.constant", "point_light.quadratic",
			"albedo_map", "positions_map", "normals_map", "camera_position", "bloom_threshold",
		}},
		{"bloom", "postprocessing.vert.glsl", "gaussian.frag.glsl", []string{"image", "horizontal"}},
		{"post", "postprocessing.vert.glsl", "postprocessing.frag.glsl", []string{
			"screen_texture", "bloom_texture", "gamma", "exposure",
		}},
		{"skybox", "skybox.vert.glsl", "skybox.frag.glsl", []string{"view", "projection", "skybox"}},
	}

	dev := gputest.New()
	for _, tc := range programs {
		t.Run(tc.name, func(t *testing.T) {
			p, err := gfx.BuildProgram(dev, FS, tc.name, tc.vert, tc.frag)
			require.NoError(t, err)
			defer p.Destroy()

			_, prog := dev.ProgramByLabel(tc.name)
			require.NotNil(t, prog)
			for _, u := range tc.uniforms {
				assert.Contains(t, prog.Uniforms, u)
			}
		})
	}
}

func TestEverySourceIsVersioned(t *testing.T) {
	names, err := fs.Glob(FS, "*.glsl")
	require.NoError(t, err)
	assert.Len(t, names, 11)
	for _, n := range names {
		src, err := fs.ReadFile(FS, n)
		require.NoError(t, err)
		assert.Regexp(t, `^#version 460 core\n`, string(src), n)
	}
}
