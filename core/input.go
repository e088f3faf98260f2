package core

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"deferred-renderer/scene"
)

type Key int

const (
	KeySpace     = Key(glfw.KeySpace)
	KeyA         = Key(glfw.KeyA)
	KeyD         = Key(glfw.KeyD)
	KeyE         = Key(glfw.KeyE)
	KeyQ         = Key(glfw.KeyQ)
	KeyS         = Key(glfw.KeyS)
	KeyW         = Key(glfw.KeyW)
	KeyEscape    = Key(glfw.KeyEscape)
	KeyTab       = Key(glfw.KeyTab)
	KeyRight     = Key(glfw.KeyRight)
	KeyLeft      = Key(glfw.KeyLeft)
	KeyDown      = Key(glfw.KeyDown)
	KeyUp        = Key(glfw.KeyUp)
	KeyLeftShift = Key(glfw.KeyLeftShift)
)

// Bindings maps camera actions to keys. An action may have several keys.
type Bindings map[scene.Action][]Key

// DefaultBindings is WASD movement, Space/Shift or E/Q for up/down and the
// arrow keys for turning.
func DefaultBindings() Bindings {
	return Bindings{
		scene.MoveForward:  {KeyW},
		scene.MoveBackward: {KeyS},
		scene.StrafeLeft:   {KeyA},
		scene.StrafeRight:  {KeyD},
		scene.MoveUp:       {KeySpace, KeyE},
		scene.MoveDown:     {KeyLeftShift, KeyQ},
		scene.TurnLeft:     {KeyLeft},
		scene.TurnRight:    {KeyRight},
		scene.LookUp:       {KeyUp},
		scene.LookDown:     {KeyDown},
	}
}

// Keyboard reports bound actions from the window's key state.
type Keyboard struct {
	window   *Window
	bindings Bindings
}

var _ scene.Input = (*Keyboard)(nil)

func NewKeyboard(w *Window, b Bindings) *Keyboard {
	return &Keyboard{window: w, bindings: b}
}

func (k *Keyboard) Active(a scene.Action) bool {
	for _, key := range k.bindings[a] {
		if k.window.IsKeyPressed(key) {
			return true
		}
	}
	return false
}

// Keys the demo uses for the render tunables.
const (
	KeyComma        = Key(glfw.KeyComma)
	KeyMinus        = Key(glfw.KeyMinus)
	KeyPeriod       = Key(glfw.KeyPeriod)
	KeyEqual        = Key(glfw.KeyEqual)
	KeyLeftBracket  = Key(glfw.KeyLeftBracket)
	KeyRightBracket = Key(glfw.KeyRightBracket)
)
