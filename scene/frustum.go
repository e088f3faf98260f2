package scene

import "github.com/go-gl/mathgl/mgl32"

// Plane is the half-space Normal·p + D >= 0.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceTo is the signed distance from pt, positive inside.
func (p Plane) DistanceTo(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds six inward-facing planes: left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts the clip planes of a view-projection matrix
// (Gribb/Hartmann). mgl32 is column-major, so row i is Row(i).
func FrustumFromMatrix(vp mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := vp.Row(0), vp.Row(1), vp.Row(2), vp.Row(3)
	return Frustum{Planes: [6]Plane{
		normalizePlane(r3.Add(r0)),
		normalizePlane(r3.Sub(r0)),
		normalizePlane(r3.Add(r1)),
		normalizePlane(r3.Sub(r1)),
		normalizePlane(r3.Add(r2)),
		normalizePlane(r3.Sub(r2)),
	}}
}

func normalizePlane(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v.W() / l}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// IntersectsFrustum is false only when the box lies entirely outside one
// plane. Boxes near a corner may pass although they are outside.
func (box AABB) IntersectsFrustum(f *Frustum) bool {
	for _, p := range f.Planes {
		// Corner furthest along the plane normal.
		var c mgl32.Vec3
		for i := range 3 {
			if p.Normal[i] < 0 {
				c[i] = box.Min[i]
			} else {
				c[i] = box.Max[i]
			}
		}
		if p.DistanceTo(c) < 0 {
			return false
		}
	}
	return true
}

// Transform is the box enclosing all eight corners of box under m.
func (box AABB) Transform(m mgl32.Mat4) AABB {
	mn, mx := box.Min, box.Max
	var out AABB
	for i := range 8 {
		c := mgl32.Vec3{mn[0], mn[1], mn[2]}
		if i&1 != 0 {
			c[0] = mx[0]
		}
		if i&2 != 0 {
			c[1] = mx[1]
		}
		if i&4 != 0 {
			c[2] = mx[2]
		}
		w := mgl32.TransformCoordinate(c, m)
		if i == 0 {
			out = AABB{Min: w, Max: w}
			continue
		}
		for k := range 3 {
			out.Min[k] = min(out.Min[k], w[k])
			out.Max[k] = max(out.Max[k], w[k])
		}
	}
	return out
}
