// Package renderer drives the deferred pipeline: shadow map, G-buffer,
// deferred lighting, bloom and tone mapping, followed by an optional overlay.
package renderer

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"

	"deferred-renderer/gfx"
	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/logx"
	"deferred-renderer/scene"
	"deferred-renderer/shaders"
)

// Pass names, also used as debug group labels.
const (
	ShadowPass   = "Shadow Map"
	GeometryPass = "Geometry Buffer"
	LightingPass = "Deferred Shading"
	BloomPass    = "Bloom Ping-Pong"
	PostPass     = "Post-Processing"
	OverlayPass  = "Overlay"
)

// Options configure New.
type Options struct {
	// Shaders holds the GLSL sources. Nil selects the embedded set.
	Shaders fs.FS
	// Width and Height are the window framebuffer size.
	Width, Height int
	Settings      Settings
	// Skybox is an optional cubemap drawn behind the scene. The pipeline
	// borrows it.
	Skybox *gfx.RenderTarget
}

// Pipeline owns every framebuffer, attachment and program the frame uses.
// It must be used from the goroutine that owns the GPU context.
type Pipeline struct {
	// Settings may be edited between frames.
	Settings Settings

	dev           gpu.Device
	width, height int
	overlay       func(*Pipeline)

	depth, geometry, lighting, bloom, post, sky *gfx.ShaderProgram

	quad, skyCube *gfx.Mesh
	skybox        *gfx.RenderTarget
	// fallback textures meshes that have no material.
	fallback *gfx.Material

	shadowMap                  *gfx.RenderTarget
	albedo, positions, normals *gfx.RenderTarget
	sceneDepth                 *gfx.RenderTarget
	lit, bright                *gfx.RenderTarget
	pingpong                   [2]*gfx.RenderTarget
	shadowFT, gBufferFT, litFT *gfx.FrameTarget
	pingpongFT                 [2]*gfx.FrameTarget
	windowTargets              []*gfx.RenderTarget
	windowFrames               []*gfx.FrameTarget
	targets                    map[string]*gfx.RenderTarget
	graph                      *graph
	release                    []func()
	culled                     int
}

// New builds the pipeline. Any shader or framebuffer failure is returned
// and everything allocated so far is released.
func New(dev gpu.Device, opts Options) (*Pipeline, error) {
	if opts.Shaders == nil {
		opts.Shaders = shaders.FS
	}
	if opts.Settings.ShadowMapSize <= 0 {
		return nil, &gfx.ResourceCreationError{
			Resource: "shadow map",
			Reason:   fmt.Sprintf("invalid size %d", opts.Settings.ShadowMapSize),
		}
	}
	if opts.Skybox != nil && opts.Skybox.Target() != gpu.TextureCubeMap {
		return nil, &gfx.ResourceCreationError{Resource: "skybox", Reason: "texture is not a cubemap"}
	}
	p := &Pipeline{
		Settings: opts.Settings,
		dev:      dev,
		width:    opts.Width,
		height:   opts.Height,
		skybox:   opts.Skybox,
		targets:  make(map[string]*gfx.RenderTarget),
	}
	if err := p.init(opts.Shaders); err != nil {
		p.Destroy()
		return nil, err
	}
	logx.Logger().Info("pipeline ready", "width", p.width, "height", p.height,
		"shadow_map", p.Settings.ShadowMapSize, "skybox", p.skybox != nil)
	return p, nil
}

func (p *Pipeline) own(release func()) {
	p.release = append(p.release, release)
}

func (p *Pipeline) init(fsys fs.FS) error {
	var err error
	if p.depth, err = p.program(fsys, depthSource); err != nil {
		return err
	}
	if p.geometry, err = p.program(fsys, geometrySource); err != nil {
		return err
	}
	if p.lighting, err = p.program(fsys, lightingSource); err != nil {
		return err
	}
	if p.bloom, err = p.program(fsys, bloomSource); err != nil {
		return err
	}
	if p.post, err = p.program(fsys, postSource); err != nil {
		return err
	}

	if p.quad, err = gfx.NewQuad(p.dev); err != nil {
		return err
	}
	p.own(p.quad.Destroy)
	placeholders := gfx.NewTextureCache(p.dev)
	p.own(placeholders.Destroy)
	if p.fallback, err = gfx.NewMaterial(placeholders, "fallback", "", ""); err != nil {
		return err
	}
	p.own(p.fallback.Release)
	if p.skybox != nil {
		if p.sky, err = p.program(fsys, skyboxSource); err != nil {
			return err
		}
		if p.skyCube, err = gfx.NewInvertedCube(p.dev); err != nil {
			return err
		}
		p.own(p.skyCube.Destroy)
	}

	if err := p.createTargets(); err != nil {
		return err
	}
	if err := p.createFrames(); err != nil {
		return err
	}
	p.clearPingPong()
	return p.buildGraph()
}

func (p *Pipeline) createTargets() error {
	depth := func(name string, w, h int) (*gfx.RenderTarget, error) {
		rt, err := gfx.NewDepthAttachment(p.dev, w, h)
		if err != nil {
			return nil, err
		}
		p.register(name, rt)
		return rt, nil
	}
	color := func(name string, f gpu.Format) (*gfx.RenderTarget, error) {
		rt, err := gfx.NewColorAttachment(p.dev, p.width, p.height, f)
		if err != nil {
			return nil, err
		}
		p.register(name, rt)
		p.windowTargets = append(p.windowTargets, rt)
		return rt, nil
	}

	var err error
	size := p.Settings.ShadowMapSize
	if p.shadowMap, err = depth("shadow_map", size, size); err != nil {
		return err
	}
	if p.albedo, err = color("albedo", gpu.FormatRGBA16F); err != nil {
		return err
	}
	if p.positions, err = color("positions", gpu.FormatRGBA32F); err != nil {
		return err
	}
	if p.normals, err = color("normals", gpu.FormatRGBA16F); err != nil {
		return err
	}
	if p.sceneDepth, err = depth("depth", p.width, p.height); err != nil {
		return err
	}
	p.windowTargets = append(p.windowTargets, p.sceneDepth)
	if p.lit, err = color("lit", gpu.FormatRGBA16F); err != nil {
		return err
	}
	if p.bright, err = color("bright", gpu.FormatRGBA16F); err != nil {
		return err
	}
	for i := range p.pingpong {
		if p.pingpong[i], err = color(fmt.Sprintf("bloom_%d", i), gpu.FormatRGBA16F); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) register(name string, rt *gfx.RenderTarget) {
	rt.SetLabel(name)
	p.targets[name] = rt
	p.own(rt.Destroy)
}

func (p *Pipeline) createFrames() error {
	frame := func(name string) *gfx.FrameTarget {
		ft := gfx.NewFrameTarget(p.dev, name)
		p.own(ft.Destroy)
		return ft
	}

	p.shadowFT = frame("shadow")
	p.shadowFT.SetDepthAttachment(p.shadowMap)
	p.shadowFT.SetDrawBuffers(gpu.NoAttachment)
	p.shadowFT.SetReadBuffer(gpu.NoAttachment)

	p.gBufferFT = frame("g_buffer")
	p.gBufferFT.SetColorAttachment(p.albedo, 0)
	p.gBufferFT.SetColorAttachment(p.positions, 1)
	p.gBufferFT.SetColorAttachment(p.normals, 2)
	p.gBufferFT.SetDepthAttachment(p.sceneDepth)
	p.gBufferFT.SetDrawBuffers(gpu.ColorAttachment(0), gpu.ColorAttachment(1), gpu.ColorAttachment(2))

	// The scene depth is shared so the skybox is depth-tested against the
	// G-buffer.
	p.litFT = frame("deferred_shading")
	p.litFT.SetColorAttachment(p.lit, 0)
	p.litFT.SetColorAttachment(p.bright, 1)
	p.litFT.SetDepthAttachment(p.sceneDepth)
	p.litFT.SetDrawBuffers(gpu.ColorAttachment(0), gpu.ColorAttachment(1))

	for i := range p.pingpongFT {
		p.pingpongFT[i] = frame(fmt.Sprintf("bloom_%d", i))
		p.pingpongFT[i].SetColorAttachment(p.pingpong[i], 0)
	}
	p.windowFrames = []*gfx.FrameTarget{p.gBufferFT, p.litFT, p.pingpongFT[0], p.pingpongFT[1]}

	for _, ft := range append([]*gfx.FrameTarget{p.shadowFT}, p.windowFrames...) {
		if err := ft.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// clearPingPong gives the bloom buffers defined contents so a frame with no
// blur iterations composites black.
func (p *Pipeline) clearPingPong() {
	p.dev.ClearColor(0, 0, 0, 1)
	for _, ft := range p.pingpongFT {
		p.dev.BindFramebuffer(ft.Handle())
		p.dev.Clear(gpu.ClearColorBit)
	}
	p.dev.BindFramebuffer(gpu.DefaultFramebuffer)
}

func (p *Pipeline) buildGraph() error {
	lightingReads := []*gfx.RenderTarget{p.shadowMap, p.albedo, p.positions, p.normals, p.sceneDepth}
	var external []*gfx.RenderTarget
	if p.skybox != nil {
		lightingReads = append(lightingReads, p.skybox)
		external = append(external, p.skybox)
	}
	g, err := newGraph(p.dev, []Pass{
		{
			Name:   ShadowPass,
			Writes: []*gfx.RenderTarget{p.shadowMap},
			Run:    p.shadowPass,
		},
		{
			Name:   GeometryPass,
			Writes: []*gfx.RenderTarget{p.albedo, p.positions, p.normals, p.sceneDepth},
			Run:    p.geometryPass,
		},
		{
			Name:   LightingPass,
			Reads:  lightingReads,
			Writes: []*gfx.RenderTarget{p.lit, p.bright},
			Run:    p.lightingPass,
		},
		{
			Name:   BloomPass,
			Reads:  []*gfx.RenderTarget{p.bright},
			Writes: p.pingpong[:],
			Run:    p.bloomPass,
		},
		{
			Name:  PostPass,
			Reads: []*gfx.RenderTarget{p.lit, p.pingpong[0]},
			Run:   p.postPass,
		},
		{
			Name: OverlayPass,
			Run:  p.overlayPass,
		},
	}, external...)
	if err != nil {
		return err
	}
	p.graph = g
	return nil
}

// Render draws one frame of sc into the window framebuffer.
func (p *Pipeline) Render(sc *scene.Scene) error {
	if sc == nil || sc.Camera == nil || sc.Sun == nil {
		return errors.New("renderer: scene needs a camera and a sun")
	}
	return p.graph.execute(sc)
}

// Resize reallocates every window-sized target. Zero sizes, as reported for
// minimised windows, are ignored.
func (p *Pipeline) Resize(width, height int) error {
	if width <= 0 || height <= 0 || (width == p.width && height == p.height) {
		return nil
	}
	for _, rt := range p.windowTargets {
		if err := rt.Resize(width, height); err != nil {
			return err
		}
	}
	for _, ft := range p.windowFrames {
		ft.Refresh()
	}
	p.width, p.height = width, height
	p.clearPingPong()
	logx.Logger().Debug("pipeline resized", "width", width, "height", height)
	return nil
}

// Size is the window framebuffer size the pipeline renders at.
func (p *Pipeline) Size() (width, height int) { return p.width, p.height }

// Culled is the number of meshes the last geometry pass skipped as outside
// the camera frustum.
func (p *Pipeline) Culled() int { return p.culled }

// SetOverlay installs a callback run last every frame with the window
// framebuffer bound. Nil removes it.
func (p *Pipeline) SetOverlay(fn func(*Pipeline)) { p.overlay = fn }

// Targets returns the pipeline's render targets by name, for preview.
func (p *Pipeline) Targets() map[string]*gfx.RenderTarget {
	return maps.Clone(p.targets)
}

// Destroy releases everything in reverse order of creation. The skybox is
// borrowed and left alone.
func (p *Pipeline) Destroy() {
	for i := len(p.release) - 1; i >= 0; i-- {
		p.release[i]()
	}
	p.release = nil
	clear(p.targets)
}
