package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxPitch keeps the view direction away from the up vector.
const MaxPitch = 89

// Camera is a fly camera oriented by yaw and pitch in degrees. Yaw 0 looks
// down +X, yaw 90 down +Z.
type Camera struct {
	position mgl32.Vec3
	yaw      float32
	pitch    float32
	up       mgl32.Vec3

	fovY   float32 // degrees
	aspect float32
	near   float32
	far    float32

	// Cached matrices
	view       mgl32.Mat4
	projection mgl32.Mat4
	dirty      bool
}

func NewCamera(position mgl32.Vec3, yaw, pitch, fovY, aspect, near, far float32) *Camera {
	c := &Camera{
		position: position,
		up:       WorldUp,
		fovY:     fovY,
		aspect:   aspect,
		near:     near,
		far:      far,
	}
	c.SetOrientation(yaw, pitch)
	return c
}

func (c *Camera) Position() mgl32.Vec3 { return c.position }
func (c *Camera) Yaw() float32         { return c.yaw }
func (c *Camera) Pitch() float32       { return c.pitch }
func (c *Camera) FovY() float32        { return c.fovY }
func (c *Camera) Aspect() float32      { return c.aspect }

// ClipRange is the near and far plane distance.
func (c *Camera) ClipRange() (near, far float32) { return c.near, c.far }

func (c *Camera) SetPosition(p mgl32.Vec3) {
	c.position = p
	c.dirty = true
}

func (c *Camera) Translate(delta mgl32.Vec3) {
	c.position = c.position.Add(delta)
	c.dirty = true
}

// SetOrientation wraps yaw into [0, 360) and clamps pitch to ±MaxPitch.
func (c *Camera) SetOrientation(yaw, pitch float32) {
	yaw = math32.Mod(yaw, 360)
	if yaw < 0 {
		yaw += 360
	}
	c.yaw = yaw
	c.pitch = mgl32.Clamp(pitch, -MaxPitch, MaxPitch)
	c.dirty = true
}

// SetAspect updates the aspect ratio from a framebuffer size. Zero heights
// (minimised windows) are ignored.
func (c *Camera) SetAspect(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
	c.dirty = true
}

func (c *Camera) SetFovY(deg float32) {
	c.fovY = deg
	c.dirty = true
}

// Forward is the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	yaw, pitch := mgl32.DegToRad(c.yaw), mgl32.DegToRad(c.pitch)
	return mgl32.Vec3{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	}.Normalize()
}

// Right is the unit vector to the right of the view direction.
func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(c.up).Normalize()
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	if c.dirty {
		c.updateMatrices()
	}
	return c.view
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.dirty {
		c.updateMatrices()
	}
	return c.projection
}

func (c *Camera) updateMatrices() {
	c.view = mgl32.LookAtV(c.position, c.position.Add(c.Forward()), c.up)
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.fovY), c.aspect, c.near, c.far)
	c.dirty = false
}
