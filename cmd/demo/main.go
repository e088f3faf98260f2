// Command demo renders a glTF or OBJ scene through the deferred pipeline
// with a fly camera. WASD moves, Space/Shift (or E/Q) rise and sink, the
// mouse and the arrow keys look around, -/= change gamma, [/] exposure and
// ,/. the bloom steps. Escape quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"

	"deferred-renderer/config"
	"deferred-renderer/core"
	"deferred-renderer/gfx"
	"deferred-renderer/internal/logx"
	"deferred-renderer/internal/opengl"
	"deferred-renderer/renderer"
	"deferred-renderer/scene"
)

func main() {
	if err := run(); err != nil {
		logx.Logger().Error("demo failed", "err", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML configuration file")
	scenePath := flag.String("scene", "", "glTF or OBJ scene to load, overrides assets.scene")
	logLevel := flag.String("log-level", "", "debug, info, warn or error, overrides log.level")
	vsync := flag.Bool("vsync", false, "wait for vertical sync, overrides window.vsync")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scene":
			cfg.Assets.Scene = *scenePath
		case "log-level":
			cfg.Log.Level = *logLevel
		case "vsync":
			cfg.Window.VSync = *vsync
		}
	})

	logger, err := logx.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logx.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	window, err := core.NewWindow(core.WindowConfig{
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Title:     cfg.Window.Title,
		Resizable: true,
		VSync:     cfg.Window.VSync,
	})
	if err != nil {
		return err
	}
	defer window.Destroy()

	dev, err := opengl.NewDevice()
	if err != nil {
		return err
	}
	dev.EnableDebugOutput()

	// ── Scene ─────────────────────────────────────────────────────────────────
	imp, err := scene.ImportScene(cfg.Assets.Scene)
	if err != nil {
		return err
	}
	cache := gfx.NewTextureCache(dev)
	defer cache.Destroy()

	bar := progressbar.Default(int64(len(imp.TextureRequests())), "loading textures")
	model, materials, err := scene.Load(ctx, dev, cache, imp, func(gfx.TextureRequest) { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil {
		return err
	}

	width, height := window.FramebufferSize()
	sun, err := cfg.Sun.NewLight()
	if err != nil {
		return err
	}
	sc := &scene.Scene{
		Materials: materials,
		Camera:    cfg.Camera.NewCamera(width, height),
		Sun:       sun,
		Light:     cfg.PointLight.NewLight(),
	}
	sc.AddModel(model)
	defer sc.Destroy()

	var skybox *gfx.RenderTarget
	if len(cfg.Assets.Skybox) > 0 {
		if skybox, err = gfx.LoadCubemap(dev, cfg.Assets.Skybox); err != nil {
			return err
		}
		defer skybox.Destroy()
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	var shaderFS fs.FS
	if cfg.Assets.Shaders != "" {
		shaderFS = os.DirFS(cfg.Assets.Shaders)
	}
	pipeline, err := renderer.New(dev, renderer.Options{
		Shaders:  shaderFS,
		Width:    width,
		Height:   height,
		Settings: cfg.Render.Settings(),
		Skybox:   skybox,
	})
	if err != nil {
		return err
	}
	defer pipeline.Destroy()

	overlay := newTitleOverlay(window, sc.Camera)
	pipeline.SetOverlay(overlay.Draw)

	controller := cfg.Camera.NewController()
	window.SetCursorCallback(controller.CursorMoved)
	window.CaptureCursor(true)
	keyboard := core.NewKeyboard(window, core.DefaultBindings())
	tunables := newTunableKeys(window)

	return loop(ctx, window, pipeline, sc, controller, keyboard, tunables)
}

func loop(ctx context.Context, window *core.Window, pipeline *renderer.Pipeline, sc *scene.Scene,
	controller *scene.CameraController, keyboard *core.Keyboard, tunables *tunableKeys) error {
	last := window.Time()
	for !window.ShouldClose() && ctx.Err() == nil {
		window.PollEvents()
		if window.IsKeyPressed(core.KeyEscape) {
			window.SetShouldClose(true)
			continue
		}

		if w, h, changed := window.TakeResize(); changed {
			if err := pipeline.Resize(w, h); err != nil {
				return fmt.Errorf("resize to %dx%d: %w", w, h, err)
			}
			sc.Camera.SetAspect(w, h)
		}

		now := window.Time()
		controller.Update(sc.Camera, keyboard, now-last)
		last = now
		tunables.Update(&pipeline.Settings)

		if w, h := window.FramebufferSize(); w == 0 || h == 0 {
			// Minimised: nothing to draw into.
			continue
		}
		if err := pipeline.Render(sc); err != nil {
			return err
		}
		window.SwapBuffers()
	}
	logx.Logger().Info("exiting")
	return nil
}
