package renderer

import (
	"deferred-renderer/gfx"
	"deferred-renderer/internal/gpu"
	"deferred-renderer/scene"
)

// Sampler units of the deferred shading program.
const (
	shadowUnit    = 0
	albedoUnit    = 1
	positionsUnit = 2
	normalsUnit   = 3
)

// Sampler units of the post-processing program.
const (
	screenUnit = 0
	bloomUnit  = 1
)

// drawState is the fixed-function state a pass starts from. Every pass sets
// it in full rather than relying on what the previous pass left.
func (p *Pipeline) drawState(depthTest, cull bool, width, height int) {
	p.dev.Viewport(0, 0, width, height)
	if depthTest {
		p.dev.Enable(gpu.DepthTest)
	} else {
		p.dev.Disable(gpu.DepthTest)
	}
	if cull {
		p.dev.Enable(gpu.CullFace)
	} else {
		p.dev.Disable(gpu.CullFace)
	}
	p.dev.DepthFunc(gpu.Less)
	p.dev.DepthMask(true)
}

// shadowPass renders depth from the sun. Receivers outside the sun's
// frustum sample the depth border of 1 and stay lit rather than shadowed.
func (p *Pipeline) shadowPass(sc *scene.Scene) error {
	if size := p.Settings.ShadowMapSize; size > 0 && size != p.shadowMap.Width() {
		if err := p.shadowMap.Resize(size, size); err != nil {
			return err
		}
		p.shadowFT.Refresh()
	}
	if err := p.shadowFT.Bind(); err != nil {
		return err
	}
	p.drawState(true, true, p.shadowMap.Width(), p.shadowMap.Height())
	p.dev.Clear(gpu.ClearDepthBit)

	p.depth.Use()
	p.depth.SetMat4("light_space", sc.Sun.LightSpaceMatrix())
	for _, m := range sc.Models {
		m.Draw(p.depth)
	}
	return nil
}

func (p *Pipeline) geometryPass(sc *scene.Scene) error {
	if err := p.gBufferFT.Bind(); err != nil {
		return err
	}
	p.drawState(true, true, p.width, p.height)
	// A zero normal marks pixels no geometry covered.
	p.dev.ClearColor(0, 0, 0, 0)
	p.dev.Clear(gpu.ClearColorBit | gpu.ClearDepthBit)

	cam := sc.Camera
	p.geometry.Use()
	p.geometry.SetMat4("view", cam.ViewMatrix())
	p.geometry.SetMat4("projection", cam.ProjectionMatrix())
	p.geometry.SetVec3("camera_position", cam.Position())
	p.geometry.SetInt("material.diffuse_map", gfx.DiffuseUnit)
	p.geometry.SetInt("material.normal_map", gfx.NormalUnit)
	frustum := scene.FrustumFromMatrix(cam.ProjectionMatrix().Mul4(cam.ViewMatrix()))
	p.culled = 0
	for _, m := range sc.Models {
		p.culled += m.DrawVisible(p.geometry, &frustum, p.fallback)
	}
	return nil
}

func (p *Pipeline) lightingPass(sc *scene.Scene) error {
	if err := p.litFT.Bind(); err != nil {
		return err
	}
	p.drawState(false, false, p.width, p.height)
	// Depth is the G-buffer's and must survive for the skybox.
	p.dev.ClearColor(0, 0, 0, 1)
	p.dev.Clear(gpu.ClearColorBit)

	sun, cam := sc.Sun, sc.Camera
	l := p.lighting
	l.Use()
	l.SetVec3("camera_position", cam.Position())
	l.SetVec3("sun.direction", sun.Direction())
	l.SetVec3("sun.color", sun.Color)
	l.SetVec3("sun.ambient", sun.Ambient)
	l.SetFloat("sun.diffuse", sun.Diffuse)
	l.SetFloat("sun.specular", sun.Specular)
	l.SetInt("sun.shadow_map", shadowUnit)
	l.SetMat4("sun.transform", sun.LightSpaceMatrix())
	l.SetInt("albedo_map", albedoUnit)
	l.SetInt("positions_map", positionsUnit)
	l.SetInt("normals_map", normalsUnit)
	l.SetFloat("bloom_threshold", p.Settings.BloomThreshold)
	setPointLight(l, sc.Light)

	p.shadowMap.Bind(shadowUnit)
	p.albedo.Bind(albedoUnit)
	p.positions.Bind(positionsUnit)
	p.normals.Bind(normalsUnit)
	p.quad.Draw()

	if p.skybox != nil {
		p.drawSkybox(cam)
	}
	return nil
}

// setPointLight uploads light, or a light contributing nothing when nil.
func setPointLight(prog *gfx.ShaderProgram, light *scene.PointLight) {
	if light == nil {
		light = &scene.PointLight{Constant: 1}
	}
	prog.SetVec3("point_light.position", light.Position)
	prog.SetVec3("point_light.ambient", light.Ambient)
	prog.SetVec3("point_light.diffuse", light.Diffuse)
	prog.SetVec3("point_light.specular", light.Specular)
	prog.SetFloat("point_light.constant", light.Constant)
	prog.SetFloat("point_light.linear", light.Linear)
	prog.SetFloat("point_light.quadratic", light.Quadratic)
}

// drawSkybox fills the pixels the G-buffer left at the far plane.
func (p *Pipeline) drawSkybox(cam *scene.Camera) {
	p.dev.Enable(gpu.DepthTest)
	p.dev.DepthFunc(gpu.LessEqual)
	p.dev.DepthMask(false)

	p.sky.Use()
	p.sky.SetMat4("view", cam.ViewMatrix())
	p.sky.SetMat4("projection", cam.ProjectionMatrix())
	p.sky.SetInt("skybox", 0)
	p.skybox.Bind(0)
	p.skyCube.Draw()

	p.dev.DepthMask(true)
	p.dev.DepthFunc(gpu.Less)
}

// bloomPass blurs the bright buffer 2×BloomAmount times, alternating
// direction. The first iteration writes pingpong[1] so the last one always
// lands in pingpong[0].
func (p *Pipeline) bloomPass(*scene.Scene) error {
	p.drawState(false, false, p.width, p.height)
	p.bloom.Use()
	p.bloom.SetInt("image", 0)

	horizontal := true
	for i := 0; i < 2*p.Settings.BloomAmount; i++ {
		dst, src := p.pingpongFT[index(horizontal)], p.pingpong[index(!horizontal)]
		if i == 0 {
			src = p.bright
		}
		if err := dst.Bind(); err != nil {
			return err
		}
		p.bloom.SetBool("horizontal", horizontal)
		src.Bind(0)
		p.quad.Draw()
		horizontal = !horizontal
	}
	return nil
}

func index(b bool) int {
	if b {
		return 1
	}
	return 0
}

// postPass tone-maps lit+bloom into the window framebuffer:
// pow(1 - exp(-(lit+bloom)·exposure), 1/gamma).
func (p *Pipeline) postPass(*scene.Scene) error {
	p.dev.BindFramebuffer(gpu.DefaultFramebuffer)
	p.drawState(false, false, p.width, p.height)

	p.post.Use()
	p.post.SetFloat("gamma", p.Settings.Gamma)
	p.post.SetFloat("exposure", p.Settings.Exposure)
	p.post.SetInt("screen_texture", screenUnit)
	p.post.SetInt("bloom_texture", bloomUnit)
	p.lit.Bind(screenUnit)
	p.pingpong[0].Bind(bloomUnit)
	p.quad.Draw()
	return nil
}

func (p *Pipeline) overlayPass(*scene.Scene) error {
	if p.overlay == nil {
		return nil
	}
	p.dev.BindFramebuffer(gpu.DefaultFramebuffer)
	p.drawState(false, false, p.width, p.height)
	p.overlay(p)
	return nil
}
