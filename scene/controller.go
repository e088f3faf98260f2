package scene

import "github.com/go-gl/mathgl/mgl32"

// Action is a camera control the entry point binds to keys.
type Action int

const (
	MoveForward Action = iota
	MoveBackward
	StrafeLeft
	StrafeRight
	MoveUp
	MoveDown
	TurnLeft
	TurnRight
	LookUp
	LookDown
)

// Input reports which actions are held this frame.
type Input interface {
	Active(a Action) bool
}

// maxFrameTime caps the step so a stall does not fling the camera.
const maxFrameTime = 0.05

// CameraController turns held actions and cursor motion into camera motion.
type CameraController struct {
	MoveSpeed       float32 // world units per second
	LookSensitivity float32 // degrees per pixel of cursor motion
	TurnSpeed       float32 // degrees per second for the turn actions

	lastX, lastY float64
	hasCursor    bool
	dx, dy       float32
}

func NewCameraController(moveSpeed, lookSensitivity, turnSpeed float32) *CameraController {
	return &CameraController{
		MoveSpeed:       moveSpeed,
		LookSensitivity: lookSensitivity,
		TurnSpeed:       turnSpeed,
	}
}

// CursorMoved records a cursor position. The first report only sets the
// reference point.
func (cc *CameraController) CursorMoved(x, y float64) {
	if cc.hasCursor {
		cc.dx += float32(x - cc.lastX)
		cc.dy += float32(y - cc.lastY)
	}
	cc.lastX, cc.lastY = x, y
	cc.hasCursor = true
}

// Update applies one frame of input to cam and consumes the cursor delta.
func (cc *CameraController) Update(cam *Camera, in Input, dt float64) {
	if dt > maxFrameTime {
		dt = maxFrameTime
	}
	step := float32(dt)

	yaw := cam.Yaw() + cc.dx*cc.LookSensitivity
	pitch := cam.Pitch() - cc.dy*cc.LookSensitivity
	cc.dx, cc.dy = 0, 0

	turn := cc.TurnSpeed * step
	if in.Active(TurnLeft) {
		yaw -= turn
	}
	if in.Active(TurnRight) {
		yaw += turn
	}
	if in.Active(LookUp) {
		pitch += turn
	}
	if in.Active(LookDown) {
		pitch -= turn
	}
	cam.SetOrientation(yaw, pitch)

	var move mgl32.Vec3
	forward, right := cam.Forward(), cam.Right()
	if in.Active(MoveForward) {
		move = move.Add(forward)
	}
	if in.Active(MoveBackward) {
		move = move.Sub(forward)
	}
	if in.Active(StrafeRight) {
		move = move.Add(right)
	}
	if in.Active(StrafeLeft) {
		move = move.Sub(right)
	}
	if in.Active(MoveUp) {
		move = move.Add(WorldUp)
	}
	if in.Active(MoveDown) {
		move = move.Sub(WorldUp)
	}
	if move.LenSqr() > 0 {
		cam.Translate(move.Normalize().Mul(cc.MoveSpeed * step))
	}
}
