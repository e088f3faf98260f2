package main

import (
	"fmt"
	"strings"

	"deferred-renderer/core"
	"deferred-renderer/renderer"
	"deferred-renderer/scene"
)

// titleOverlay reports frame rate, camera position and the tunables in the
// window title, refreshed once per second.
type titleOverlay struct {
	window *core.Window
	camera *scene.Camera
	base   string

	frames int
	since  float64
	parts  []string
}

func newTitleOverlay(w *core.Window, cam *scene.Camera) *titleOverlay {
	return &titleOverlay{window: w, camera: cam, base: w.Title(), since: w.Time()}
}

func (o *titleOverlay) add(format string, args ...any) {
	o.parts = append(o.parts, fmt.Sprintf(format, args...))
}

// Draw runs as the pipeline's overlay pass, once per frame.
func (o *titleOverlay) Draw(p *renderer.Pipeline) {
	o.frames++
	now := o.window.Time()
	elapsed := now - o.since
	if elapsed < 1 {
		return
	}

	pos := o.camera.Position()
	o.parts = o.parts[:0]
	o.add("%s", o.base)
	o.add("FPS: %.0f", float64(o.frames)/elapsed)
	o.add("(%.1f, %.1f, %.1f)", pos.X(), pos.Y(), pos.Z())
	o.add("culled %d", p.Culled())
	o.add("gamma %.1f  exposure %.1f  bloom %d", p.Settings.Gamma, p.Settings.Exposure, p.Settings.BloomAmount)
	o.window.SetTitle(strings.Join(o.parts, " | "))

	o.frames = 0
	o.since = now
}

// tunableKeys adjusts the render settings on key presses, matching the
// slider ranges gamma [0.1, 3], exposure [0, 10] and bloom steps [0, 10].
type tunableKeys struct {
	window *core.Window
	held   map[core.Key]bool
}

func newTunableKeys(w *core.Window) *tunableKeys {
	return &tunableKeys{window: w, held: make(map[core.Key]bool)}
}

// pressed is true on the frame key goes down.
func (t *tunableKeys) pressed(key core.Key) bool {
	down := t.window.IsKeyPressed(key)
	was := t.held[key]
	t.held[key] = down
	return down && !was
}

func (t *tunableKeys) Update(s *renderer.Settings) {
	if t.pressed(core.KeyMinus) {
		s.Gamma = max(s.Gamma-0.1, 0.1)
	}
	if t.pressed(core.KeyEqual) {
		s.Gamma = min(s.Gamma+0.1, 3)
	}
	if t.pressed(core.KeyLeftBracket) {
		s.Exposure = max(s.Exposure-0.1, 0)
	}
	if t.pressed(core.KeyRightBracket) {
		s.Exposure = min(s.Exposure+0.1, 10)
	}
	if t.pressed(core.KeyComma) {
		s.BloomAmount = max(s.BloomAmount-1, 0)
	}
	if t.pressed(core.KeyPeriod) {
		s.BloomAmount = min(s.BloomAmount+1, 10)
	}
}
