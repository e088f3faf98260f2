package scene

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// WorldUp is the up vector shared by the camera and the light views.
var WorldUp = mgl32.Vec3{0, 1, 0}

// ErrDegenerateDirection rejects light directions that cannot build a view
// matrix against WorldUp.
var ErrDegenerateDirection = errors.New("scene: light direction is zero or parallel to world up")

// ValidateDirection reports whether d can orient a light.
func ValidateDirection(d mgl32.Vec3) error {
	l := d.Len()
	if l < 1e-6 {
		return ErrDegenerateDirection
	}
	if math32.Abs(d.Dot(WorldUp))/l > 1-1e-5 {
		return ErrDegenerateDirection
	}
	return nil
}

// DirectionalLight is the sun. Its shadow is rendered with an orthographic
// projection whose extents are set independently of the scene bounds;
// geometry outside them casts no shadow.
type DirectionalLight struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	Ambient  mgl32.Vec3
	Diffuse  float32
	Specular float32

	// Orthographic shadow frustum.
	LeftRight float32
	TopBottom float32
	Near      float32
	Far       float32

	direction mgl32.Vec3
	rotation  mgl32.Vec3
}

// NewDirectionalLight returns a white sun at position shining along
// direction with a 20×20 shadow frustum.
func NewDirectionalLight(position, direction mgl32.Vec3) (*DirectionalLight, error) {
	l := &DirectionalLight{
		Position:  position,
		Color:     mgl32.Vec3{1, 1, 1},
		Ambient:   mgl32.Vec3{0.1, 0.1, 0.1},
		Diffuse:   1,
		Specular:  0.5,
		LeftRight: 10,
		TopBottom: 10,
		Near:      1,
		Far:       20,
	}
	if err := l.SetDirection(direction); err != nil {
		return nil, err
	}
	return l, nil
}

// Direction is the unit direction the light travels in.
func (l *DirectionalLight) Direction() mgl32.Vec3 { return l.direction }

// Rotation is the Euler triple last passed to SetRotation, zero when the
// direction was set explicitly.
func (l *DirectionalLight) Rotation() mgl32.Vec3 { return l.rotation }

// SetDirection points the light along d. A degenerate d is rejected and the
// previous direction kept.
func (l *DirectionalLight) SetDirection(d mgl32.Vec3) error {
	if err := ValidateDirection(d); err != nil {
		return err
	}
	l.direction = d.Normalize()
	l.rotation = mgl32.Vec3{}
	return nil
}

// SetRotation orients the light by rotating -Z with Euler angles in degrees.
func (l *DirectionalLight) SetRotation(deg mgl32.Vec3) error {
	d := RotationDirection(deg)
	if err := ValidateDirection(d); err != nil {
		return err
	}
	l.direction = d.Normalize()
	l.rotation = deg
	return nil
}

// RotationDirection is the direction -Z takes under the Euler rotation deg.
func RotationDirection(deg mgl32.Vec3) mgl32.Vec3 {
	return eulerQuat(deg).Rotate(mgl32.Vec3{0, 0, -1})
}

// LightSpaceMatrix maps world space into the light's clip space:
// ortho × lookAt(position, position+direction, up).
func (l *DirectionalLight) LightSpaceMatrix() mgl32.Mat4 {
	projection := mgl32.Ortho(-l.LeftRight, l.LeftRight, -l.TopBottom, l.TopBottom, l.Near, l.Far)
	view := mgl32.LookAtV(l.Position, l.Position.Add(l.direction), WorldUp)
	return projection.Mul4(view)
}

// PointLight is an omnidirectional light with distance attenuation.
type PointLight struct {
	Position mgl32.Vec3
	Ambient  mgl32.Vec3
	Diffuse  mgl32.Vec3
	Specular mgl32.Vec3

	Constant  float32
	Linear    float32
	Quadratic float32
}

// NewPointLight returns a white light with a falloff reaching about 50 units.
func NewPointLight(position mgl32.Vec3) *PointLight {
	return &PointLight{
		Position:  position,
		Ambient:   mgl32.Vec3{0.05, 0.05, 0.05},
		Diffuse:   mgl32.Vec3{0.8, 0.8, 0.8},
		Specular:  mgl32.Vec3{1, 1, 1},
		Constant:  1,
		Linear:    0.09,
		Quadratic: 0.032,
	}
}

// Attenuation is the intensity factor at distance d.
func (p *PointLight) Attenuation(d float32) float32 {
	return 1 / (p.Constant + p.Linear*d + p.Quadratic*d*d)
}
