package renderer

import (
	"errors"
	"fmt"

	"deferred-renderer/gfx"
	"deferred-renderer/internal/gpu"
	"deferred-renderer/scene"
)

var (
	// ErrUndeclaredDependency means a pass reads a target that no earlier
	// pass writes.
	ErrUndeclaredDependency = errors.New("renderer: pass reads a target no earlier pass writes")
	// ErrStaleTarget means a target was reallocated after it was written
	// this frame and before a later pass read it.
	ErrStaleTarget = errors.New("renderer: target reallocated after it was written")
)

// Pass is one step of the frame. Reads and Writes declare the render targets
// it samples and renders into; Run issues the work.
type Pass struct {
	Name   string
	Reads  []*gfx.RenderTarget
	Writes []*gfx.RenderTarget
	Run    func(sc *scene.Scene) error
}

// graph runs passes in order, each inside a debug group, and restores the
// window framebuffer after every pass.
type graph struct {
	dev     gpu.Device
	passes  []Pass
	written map[*gfx.RenderTarget]uint64
}

// newGraph checks that every read is either external (sampled but never
// rendered, like a loaded cubemap) or written by an earlier pass.
func newGraph(dev gpu.Device, passes []Pass, external ...*gfx.RenderTarget) (*graph, error) {
	produced := make(map[*gfx.RenderTarget]bool)
	for _, rt := range external {
		produced[rt] = true
	}
	for _, p := range passes {
		if p.Run == nil {
			return nil, fmt.Errorf("pass %s has no body", p.Name)
		}
		for _, rt := range p.Reads {
			if !produced[rt] {
				return nil, fmt.Errorf("pass %s reads %s: %w", p.Name, rt.Label(), ErrUndeclaredDependency)
			}
		}
		for _, rt := range p.Writes {
			produced[rt] = true
		}
	}
	return &graph{dev: dev, passes: passes, written: make(map[*gfx.RenderTarget]uint64)}, nil
}

func (g *graph) execute(sc *scene.Scene) error {
	clear(g.written)
	for i := range g.passes {
		p := &g.passes[i]
		for _, rt := range p.Reads {
			if gen, ok := g.written[rt]; ok && gen != rt.Generation() {
				return fmt.Errorf("pass %s reads %s: %w", p.Name, rt.Label(), ErrStaleTarget)
			}
		}
		if err := g.run(p, sc); err != nil {
			return fmt.Errorf("pass %s: %w", p.Name, err)
		}
		for _, rt := range p.Writes {
			g.written[rt] = rt.Generation()
		}
	}
	return nil
}

func (g *graph) run(p *Pass, sc *scene.Scene) error {
	g.dev.PushDebugGroup(p.Name)
	defer func() {
		g.dev.BindFramebuffer(gpu.DefaultFramebuffer)
		g.dev.PopDebugGroup()
	}()
	return p.Run(sc)
}
