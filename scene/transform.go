package scene

import "github.com/go-gl/mathgl/mgl32"

// Transform places a model in the world. Rotation holds Euler angles in
// degrees about X, Y and Z.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// ModelMatrix scales, then rotates, then translates.
func (t Transform) ModelMatrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := eulerQuat(t.Rotation).Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// eulerQuat builds the rotation Rz·Ry·Rx from angles in degrees.
func eulerQuat(deg mgl32.Vec3) mgl32.Quat {
	qx := mgl32.QuatRotate(mgl32.DegToRad(deg.X()), mgl32.Vec3{1, 0, 0})
	qy := mgl32.QuatRotate(mgl32.DegToRad(deg.Y()), mgl32.Vec3{0, 1, 0})
	qz := mgl32.QuatRotate(mgl32.DegToRad(deg.Z()), mgl32.Vec3{0, 0, 1})
	return qz.Mul(qy).Mul(qx)
}
