// Package core owns the GLFW window, its GL context and raw input.
package core

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"deferred-renderer/internal/logx"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

type Window struct {
	handle *glfw.Window
	title  string

	fbWidth, fbHeight int
	resized           bool
	onCursor          func(x, y float64)
}

type WindowConfig struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
	VSync     bool
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:     1280,
		Height:    720,
		Title:     "Deferred Renderer",
		Resizable: true,
	}
}

// NewWindow opens a window with a current OpenGL 4.6 core context.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &Window{handle: handle, title: config.Title}
	w.fbWidth, w.fbHeight = handle.GetFramebufferSize()

	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if width == w.fbWidth && height == w.fbHeight {
			return
		}
		w.fbWidth, w.fbHeight = width, height
		w.resized = true
	})
	handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.onCursor != nil {
			w.onCursor(x, y)
		}
	})

	logx.Logger().Info("window opened", "width", w.fbWidth, "height", w.fbHeight, "vsync", config.VSync)
	return w, nil
}

func (w *Window) ShouldClose() bool { return w.handle.ShouldClose() }

func (w *Window) SetShouldClose(v bool) { w.handle.SetShouldClose(v) }

func (w *Window) PollEvents() { glfw.PollEvents() }

func (w *Window) SwapBuffers() { w.handle.SwapBuffers() }

// Time is the number of seconds since the window was opened.
func (w *Window) Time() float64 { return glfw.GetTime() }

// FramebufferSize is the drawable size in pixels, zero while minimised.
func (w *Window) FramebufferSize() (int, int) { return w.fbWidth, w.fbHeight }

// TakeResize reports a framebuffer size change since the last call.
func (w *Window) TakeResize() (width, height int, changed bool) {
	changed = w.resized
	w.resized = false
	return w.fbWidth, w.fbHeight, changed
}

// SetCursorCallback receives cursor positions in window coordinates.
func (w *Window) SetCursorCallback(cb func(x, y float64)) { w.onCursor = cb }

// CaptureCursor hides and locks the cursor for mouse look.
func (w *Window) CaptureCursor(captured bool) {
	mode := glfw.CursorNormal
	if captured {
		mode = glfw.CursorDisabled
	}
	w.handle.SetInputMode(glfw.CursorMode, mode)
	if captured && glfw.RawMouseMotionSupported() {
		w.handle.SetInputMode(glfw.RawMouseMotion, glfw.True)
	}
}

func (w *Window) IsKeyPressed(key Key) bool {
	return w.handle.GetKey(glfw.Key(key)) == glfw.Press
}

func (w *Window) Title() string { return w.title }

func (w *Window) SetTitle(title string) {
	w.handle.SetTitle(title)
	w.title = title
}

func (w *Window) Destroy() {
	w.handle.Destroy()
	glfw.Terminate()
}

func boolToInt(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
