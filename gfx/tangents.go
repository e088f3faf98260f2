package gfx

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// triangles calls fn for every triangle of an indexed or non-indexed list.
func triangles(vertexCount int, indices []uint32, fn func(i0, i1, i2 uint32)) {
	if len(indices) > 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			fn(indices[i], indices[i+1], indices[i+2])
		}
		return
	}
	for i := 0; i+2 < vertexCount; i += 3 {
		fn(uint32(i), uint32(i+1), uint32(i+2))
	}
}

// ComputeTangents fills per-vertex tangents from positions and UVs, then
// orthogonalises each against its normal (Gram-Schmidt). Handedness is -1
// where the UV bitangent opposes Normal x Tangent. Triangles with a
// degenerate UV mapping contribute nothing; vertices left without a tangent
// get an arbitrary one perpendicular to the normal.
func ComputeTangents(vertices []Vertex, indices []uint32) {
	bitangents := make([]mgl32.Vec3, len(vertices))
	for i := range vertices {
		vertices[i].Tangent = mgl32.Vec3{}
	}

	triangles(len(vertices), indices, func(i0, i1, i2 uint32) {
		v0, v1, v2 := vertices[i0], vertices[i1], vertices[i2]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		duv1 := v1.TexCoord.Sub(v0.TexCoord)
		duv2 := v2.TexCoord.Sub(v0.TexCoord)

		denom := duv1.X()*duv2.Y() - duv2.X()*duv1.Y()
		if denom == 0 {
			return
		}
		r := 1 / denom
		t := e1.Mul(duv2.Y() * r).Sub(e2.Mul(duv1.Y() * r))
		b := e2.Mul(duv1.X() * r).Sub(e1.Mul(duv2.X() * r))

		for _, i := range [3]uint32{i0, i1, i2} {
			vertices[i].Tangent = vertices[i].Tangent.Add(t)
			bitangents[i] = bitangents[i].Add(b)
		}
	})

	for i := range vertices {
		n := vertices[i].Normal
		t := vertices[i].Tangent
		t = t.Sub(n.Mul(n.Dot(t)))
		if t.LenSqr() < 1e-8 {
			if math32.Abs(n.X()) < 0.9 {
				t = mgl32.Vec3{1, 0, 0}.Sub(n.Mul(n.X()))
			} else {
				t = mgl32.Vec3{0, 1, 0}.Sub(n.Mul(n.Y()))
			}
		}
		vertices[i].Tangent = t.Normalize()
		vertices[i].Handedness = 1
		if n.Cross(vertices[i].Tangent).Dot(bitangents[i]) < 0 {
			vertices[i].Handedness = -1
		}
	}
}

// GenerateNormals replaces normals with area-weighted face normals averaged
// per vertex.
func GenerateNormals(vertices []Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Normal = mgl32.Vec3{}
	}
	triangles(len(vertices), indices, func(i0, i1, i2 uint32) {
		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		vertices[i0].Normal = vertices[i0].Normal.Add(n)
		vertices[i1].Normal = vertices[i1].Normal.Add(n)
		vertices[i2].Normal = vertices[i2].Normal.Add(n)
	})
	for i := range vertices {
		if vertices[i].Normal.LenSqr() > 0 {
			vertices[i].Normal = vertices[i].Normal.Normalize()
		} else {
			vertices[i].Normal = mgl32.Vec3{0, 1, 0}
		}
	}
}
