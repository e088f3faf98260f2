// Package config loads the demo's YAML configuration.
//
// A file is decoded on top of Default, so any key may be left out. Unknown
// keys are rejected to catch typos.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"deferred-renderer/renderer"
	"deferred-renderer/scene"
)

type Config struct {
	Window     Window     `yaml:"window"`
	Assets     Assets     `yaml:"assets"`
	Camera     Camera     `yaml:"camera"`
	Sun        Sun        `yaml:"sun"`
	PointLight PointLight `yaml:"point_light"`
	Render     Render     `yaml:"render"`
	Log        Log        `yaml:"log"`
}

type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

type Assets struct {
	Scene string `yaml:"scene"`
	// Shaders overrides the embedded GLSL sources with a directory.
	Shaders string `yaml:"shaders"`
	// Skybox lists six cubemap faces in +X, -X, +Y, -Y, +Z, -Z order.
	Skybox []string `yaml:"skybox"`
}

type Camera struct {
	Eye             mgl32.Vec3 `yaml:"eye"`
	Yaw             float32    `yaml:"yaw"`
	Pitch           float32    `yaml:"pitch"`
	FOV             float32    `yaml:"fov"`
	Near            float32    `yaml:"near"`
	Far             float32    `yaml:"far"`
	MoveSpeed       float32    `yaml:"move_speed"`
	LookSensitivity float32    `yaml:"look_sensitivity"`
	TurnSpeed       float32    `yaml:"turn_speed"`
}

type Sun struct {
	Position mgl32.Vec3 `yaml:"position"`
	// Rotation is in degrees and turns -Z into the light direction.
	Rotation  mgl32.Vec3 `yaml:"rotation"`
	Color     mgl32.Vec3 `yaml:"color"`
	Ambient   mgl32.Vec3 `yaml:"ambient"`
	Diffuse   float32    `yaml:"diffuse"`
	Specular  float32    `yaml:"specular"`
	LeftRight float32    `yaml:"left_right"`
	TopBottom float32    `yaml:"top_bottom"`
	Near      float32    `yaml:"near"`
	Far       float32    `yaml:"far"`
}

type PointLight struct {
	Enabled   bool       `yaml:"enabled"`
	Position  mgl32.Vec3 `yaml:"position"`
	Ambient   mgl32.Vec3 `yaml:"ambient"`
	Diffuse   mgl32.Vec3 `yaml:"diffuse"`
	Specular  mgl32.Vec3 `yaml:"specular"`
	Constant  float32    `yaml:"constant"`
	Linear    float32    `yaml:"linear"`
	Quadratic float32    `yaml:"quadratic"`
}

type Render struct {
	ShadowMapSize  int     `yaml:"shadow_map_size"`
	Gamma          float32 `yaml:"gamma"`
	Exposure       float32 `yaml:"exposure"`
	BloomAmount    int     `yaml:"bloom_amount"`
	BloomThreshold float32 `yaml:"bloom_threshold"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default is the configuration used when no file is given.
func Default() Config {
	settings := renderer.DefaultSettings()
	return Config{
		Window: Window{Width: 1280, Height: 720, Title: "Deferred Renderer"},
		Assets: Assets{Scene: "assets/sponza.gltf"},
		Camera: Camera{
			Eye:             mgl32.Vec3{0, 2, 0},
			FOV:             60,
			Near:            0.1,
			Far:             100,
			MoveSpeed:       5,
			LookSensitivity: 0.1,
			TurnSpeed:       90,
		},
		Sun: Sun{
			Position:  mgl32.Vec3{0, 20, 0},
			Rotation:  mgl32.Vec3{-60, 30, 0},
			Color:     mgl32.Vec3{1, 1, 1},
			Ambient:   mgl32.Vec3{0.1, 0.1, 0.1},
			Diffuse:   1,
			Specular:  0.5,
			LeftRight: 20,
			TopBottom: 20,
			Near:      1,
			Far:       50,
		},
		PointLight: PointLight{
			Enabled:   true,
			Position:  mgl32.Vec3{0, 2, 0},
			Ambient:   mgl32.Vec3{0.05, 0.05, 0.05},
			Diffuse:   mgl32.Vec3{0.8, 0.8, 0.8},
			Specular:  mgl32.Vec3{1, 1, 1},
			Constant:  1,
			Linear:    0.09,
			Quadratic: 0.032,
		},
		Render: Render{
			ShadowMapSize:  settings.ShadowMapSize,
			Gamma:          settings.Gamma,
			Exposure:       settings.Exposure,
			BloomAmount:    settings.BloomAmount,
			BloomThreshold: settings.BloomThreshold,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path over Default and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	ErrWindowSize     = errors.New("window size must be positive")
	ErrShadowMapSize  = errors.New("shadow map size must be positive")
	ErrBloomAmount    = errors.New("bloom amount must not be negative")
	ErrGamma          = errors.New("gamma must be positive")
	ErrExposure       = errors.New("exposure must not be negative")
	ErrClipRange      = errors.New("near plane must be positive and closer than far plane")
	ErrFieldOfView    = errors.New("field of view must be between 0 and 180 degrees")
	ErrShadowFrustum  = errors.New("sun shadow frustum extents must be positive")
	ErrSkyboxFaces    = errors.New("skybox needs exactly 6 faces")
	ErrSceneUnset     = errors.New("assets.scene is empty")
	ErrAttenuationOff = errors.New("point light attenuation terms must not be negative and not all zero")
)

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	fail := func(err error) error { return fmt.Errorf("config: %w", err) }
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fail(ErrWindowSize)
	case c.Assets.Scene == "":
		return fail(ErrSceneUnset)
	case len(c.Assets.Skybox) != 0 && len(c.Assets.Skybox) != 6:
		return fail(ErrSkyboxFaces)
	case c.Camera.Near <= 0 || c.Camera.Near >= c.Camera.Far:
		return fail(fmt.Errorf("camera: %w", ErrClipRange))
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return fail(ErrFieldOfView)
	case c.Sun.Near >= c.Sun.Far:
		return fail(fmt.Errorf("sun: %w", ErrClipRange))
	case c.Sun.LeftRight <= 0 || c.Sun.TopBottom <= 0:
		return fail(ErrShadowFrustum)
	case c.Render.ShadowMapSize <= 0:
		return fail(ErrShadowMapSize)
	case c.Render.BloomAmount < 0:
		return fail(ErrBloomAmount)
	case c.Render.Gamma <= 0:
		return fail(ErrGamma)
	case c.Render.Exposure < 0:
		return fail(ErrExposure)
	}
	p := c.PointLight
	if p.Enabled && (p.Constant < 0 || p.Linear < 0 || p.Quadratic < 0 || p.Constant+p.Linear+p.Quadratic == 0) {
		return fail(ErrAttenuationOff)
	}
	if err := scene.ValidateDirection(scene.RotationDirection(c.Sun.Rotation)); err != nil {
		return fail(fmt.Errorf("sun rotation %v: %w", c.Sun.Rotation, err))
	}
	return nil
}

// NewCamera builds the camera for a framebuffer of the given size.
func (c Camera) NewCamera(width, height int) *scene.Camera {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	return scene.NewCamera(c.Eye, c.Yaw, c.Pitch, c.FOV, aspect, c.Near, c.Far)
}

func (c Camera) NewController() *scene.CameraController {
	return scene.NewCameraController(c.MoveSpeed, c.LookSensitivity, c.TurnSpeed)
}

// NewLight builds the sun. It fails only for a rotation Validate rejects.
func (s Sun) NewLight() (*scene.DirectionalLight, error) {
	l, err := scene.NewDirectionalLight(s.Position, scene.RotationDirection(s.Rotation))
	if err != nil {
		return nil, err
	}
	if err := l.SetRotation(s.Rotation); err != nil {
		return nil, err
	}
	l.Color = s.Color
	l.Ambient = s.Ambient
	l.Diffuse = s.Diffuse
	l.Specular = s.Specular
	l.LeftRight = s.LeftRight
	l.TopBottom = s.TopBottom
	l.Near = s.Near
	l.Far = s.Far
	return l, nil
}

// NewLight builds the point light, or nil when it is disabled.
func (p PointLight) NewLight() *scene.PointLight {
	if !p.Enabled {
		return nil
	}
	l := scene.NewPointLight(p.Position)
	l.Ambient = p.Ambient
	l.Diffuse = p.Diffuse
	l.Specular = p.Specular
	l.Constant = p.Constant
	l.Linear = p.Linear
	l.Quadratic = p.Quadratic
	return l
}

func (r Render) Settings() renderer.Settings {
	return renderer.Settings{
		Gamma:          r.Gamma,
		Exposure:       r.Exposure,
		BloomAmount:    r.BloomAmount,
		BloomThreshold: r.BloomThreshold,
		ShadowMapSize:  r.ShadowMapSize,
	}
}
