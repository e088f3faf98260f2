// Package opengl implements gpu.Device on an OpenGL 4.6 core context using
// direct state access, so no call depends on what happens to be bound.
package opengl

import (
	"errors"
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/logx"
)

// Device issues GL calls on the context current on the calling thread.
type Device struct {
	program gpu.ProgramID
	vao     gpu.VertexArrayID
	fb      gpu.FramebufferID
}

var _ gpu.Device = (*Device)(nil)

// NewDevice loads the GL entry points. A 4.6 core context must be current.
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}
	version := gl.GoStr(gl.GetString(gl.VERSION))
	if version == "" {
		return nil, errors.New("gl init: no current context")
	}
	logx.Logger().Info("OpenGL context",
		"version", version,
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"vendor", gl.GoStr(gl.GetString(gl.VENDOR)))
	return &Device{}, nil
}

// ── Textures ──────────────────────────────────────────────────────────────────

func textureTarget(t gpu.TextureTarget) uint32 {
	if t == gpu.TextureCubeMap {
		return gl.TEXTURE_CUBE_MAP
	}
	return gl.TEXTURE_2D
}

func internalFormat(f gpu.Format) uint32 {
	switch f {
	case gpu.FormatRGBA8:
		return gl.RGBA8
	case gpu.FormatSRGB8Alpha8:
		return gl.SRGB8_ALPHA8
	case gpu.FormatRGBA16F:
		return gl.RGBA16F
	case gpu.FormatRGBA32F:
		return gl.RGBA32F
	case gpu.FormatDepth24:
		return gl.DEPTH_COMPONENT24
	case gpu.FormatDepth32F:
		return gl.DEPTH_COMPONENT32F
	}
	return gl.NONE
}

func formatFromGL(v int32) gpu.Format {
	switch uint32(v) {
	case gl.RGBA8:
		return gpu.FormatRGBA8
	case gl.SRGB8_ALPHA8:
		return gpu.FormatSRGB8Alpha8
	case gl.RGBA16F:
		return gpu.FormatRGBA16F
	case gl.RGBA32F:
		return gpu.FormatRGBA32F
	case gl.DEPTH_COMPONENT24:
		return gpu.FormatDepth24
	case gl.DEPTH_COMPONENT32F:
		return gpu.FormatDepth32F
	}
	return gpu.FormatNone
}

func (d *Device) CreateTexture(target gpu.TextureTarget) gpu.TextureID {
	var id uint32
	gl.CreateTextures(textureTarget(target), 1, &id)
	return gpu.TextureID(id)
}

func (d *Device) TextureStorage(t gpu.TextureID, levels int, format gpu.Format, width, height int) {
	gl.TextureStorage2D(uint32(t), int32(levels), internalFormat(format), int32(width), int32(height))
}

func (d *Device) TextureUpload(t gpu.TextureID, face, width, height int, rgba []byte) {
	if len(rgba) == 0 {
		return
	}
	var target int32
	gl.GetTextureParameteriv(uint32(t), gl.TEXTURE_TARGET, &target)
	if uint32(target) == gl.TEXTURE_CUBE_MAP {
		gl.TextureSubImage3D(uint32(t), 0, 0, 0, int32(face), int32(width), int32(height), 1,
			gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&rgba[0]))
		return
	}
	gl.TextureSubImage2D(uint32(t), 0, 0, 0, int32(width), int32(height),
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&rgba[0]))
}

func (d *Device) GenerateMipmaps(t gpu.TextureID) {
	gl.GenerateTextureMipmap(uint32(t))
}

func filterMode(f gpu.Filter) int32 {
	switch f {
	case gpu.FilterNearest:
		return gl.NEAREST
	case gpu.FilterLinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	}
	return gl.LINEAR
}

func wrapMode(w gpu.Wrap) int32 {
	switch w {
	case gpu.WrapClampToEdge:
		return gl.CLAMP_TO_EDGE
	case gpu.WrapClampToBorder:
		return gl.CLAMP_TO_BORDER
	}
	return gl.REPEAT
}

func (d *Device) TextureSampling(t gpu.TextureID, s gpu.Sampling) {
	id := uint32(t)
	gl.TextureParameteri(id, gl.TEXTURE_MIN_FILTER, filterMode(s.MinFilter))
	gl.TextureParameteri(id, gl.TEXTURE_MAG_FILTER, filterMode(s.MagFilter))
	gl.TextureParameteri(id, gl.TEXTURE_WRAP_S, wrapMode(s.WrapS))
	gl.TextureParameteri(id, gl.TEXTURE_WRAP_T, wrapMode(s.WrapT))
	gl.TextureParameteri(id, gl.TEXTURE_WRAP_R, wrapMode(s.WrapR))
	border := s.Border
	gl.TextureParameterfv(id, gl.TEXTURE_BORDER_COLOR, &border[0])
}

func (d *Device) BindTextureUnit(unit int, t gpu.TextureID) {
	gl.BindTextureUnit(uint32(unit), uint32(t))
}

func (d *Device) TextureInfo(t gpu.TextureID) gpu.TextureInfo {
	var w, h, f int32
	gl.GetTextureLevelParameteriv(uint32(t), 0, gl.TEXTURE_WIDTH, &w)
	gl.GetTextureLevelParameteriv(uint32(t), 0, gl.TEXTURE_HEIGHT, &h)
	gl.GetTextureLevelParameteriv(uint32(t), 0, gl.TEXTURE_INTERNAL_FORMAT, &f)
	return gpu.TextureInfo{Width: int(w), Height: int(h), Format: formatFromGL(f)}
}

func (d *Device) DeleteTexture(t gpu.TextureID) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

// ── Framebuffers ──────────────────────────────────────────────────────────────

func attachmentPoint(a gpu.Attachment) uint32 {
	switch {
	case a == gpu.DepthAttachment:
		return gl.DEPTH_ATTACHMENT
	case a.IsColor():
		return gl.COLOR_ATTACHMENT0 + uint32(a)
	}
	return gl.NONE
}

func (d *Device) CreateFramebuffer() gpu.FramebufferID {
	var id uint32
	gl.CreateFramebuffers(1, &id)
	return gpu.FramebufferID(id)
}

func (d *Device) FramebufferTexture(fb gpu.FramebufferID, a gpu.Attachment, t gpu.TextureID) {
	gl.NamedFramebufferTexture(uint32(fb), attachmentPoint(a), uint32(t), 0)
}

func (d *Device) FramebufferDrawBuffers(fb gpu.FramebufferID, buffers []gpu.Attachment) {
	if len(buffers) == 0 {
		gl.NamedFramebufferDrawBuffer(uint32(fb), gl.NONE)
		return
	}
	bufs := make([]uint32, len(buffers))
	for i, b := range buffers {
		bufs[i] = attachmentPoint(b)
	}
	gl.NamedFramebufferDrawBuffers(uint32(fb), int32(len(bufs)), &bufs[0])
}

func (d *Device) FramebufferReadBuffer(fb gpu.FramebufferID, a gpu.Attachment) {
	gl.NamedFramebufferReadBuffer(uint32(fb), attachmentPoint(a))
}

func (d *Device) FramebufferStatus(fb gpu.FramebufferID) gpu.FramebufferStatus {
	switch gl.CheckNamedFramebufferStatus(uint32(fb), gl.FRAMEBUFFER) {
	case gl.FRAMEBUFFER_COMPLETE:
		return gpu.StatusComplete
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return gpu.StatusIncompleteAttachment
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return gpu.StatusMissingAttachment
	case gl.FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER:
		return gpu.StatusIncompleteDrawBuffer
	case gl.FRAMEBUFFER_INCOMPLETE_READ_BUFFER:
		return gpu.StatusIncompleteReadBuffer
	case gl.FRAMEBUFFER_UNDEFINED:
		return gpu.StatusUndefined
	}
	return gpu.StatusUnsupported
}

func (d *Device) BindFramebuffer(fb gpu.FramebufferID) {
	if d.fb == fb {
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	d.fb = fb
}

func (d *Device) DeleteFramebuffer(fb gpu.FramebufferID) {
	if d.fb == fb {
		d.BindFramebuffer(gpu.DefaultFramebuffer)
	}
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
}

// ── Geometry ──────────────────────────────────────────────────────────────────

func (d *Device) CreateBuffer(data []byte) gpu.BufferID {
	var id uint32
	gl.CreateBuffers(1, &id)
	if len(data) > 0 {
		gl.NamedBufferStorage(id, len(data), unsafe.Pointer(&data[0]), 0)
	}
	return gpu.BufferID(id)
}

func (d *Device) DeleteBuffer(b gpu.BufferID) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

func (d *Device) CreateVertexArray(layout gpu.VertexLayout, vbo, ebo gpu.BufferID) gpu.VertexArrayID {
	var id uint32
	gl.CreateVertexArrays(1, &id)
	gl.VertexArrayVertexBuffer(id, 0, uint32(vbo), 0, int32(layout.Stride))
	if ebo != 0 {
		gl.VertexArrayElementBuffer(id, uint32(ebo))
	}
	for _, a := range layout.Attributes {
		loc := uint32(a.Location)
		gl.EnableVertexArrayAttrib(id, loc)
		gl.VertexArrayAttribFormat(id, loc, int32(a.Components), gl.FLOAT, false, uint32(a.Offset))
		gl.VertexArrayAttribBinding(id, loc, 0)
	}
	return gpu.VertexArrayID(id)
}

func (d *Device) DeleteVertexArray(va gpu.VertexArrayID) {
	if d.vao == va {
		d.vao = 0
	}
	id := uint32(va)
	gl.DeleteVertexArrays(1, &id)
}

func primitiveMode(p gpu.Primitive) uint32 {
	switch p {
	case gpu.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpu.Lines:
		return gl.LINES
	}
	return gl.TRIANGLES
}

func (d *Device) bindVertexArray(va gpu.VertexArrayID) {
	if d.vao != va {
		gl.BindVertexArray(uint32(va))
		d.vao = va
	}
}

func (d *Device) DrawArrays(va gpu.VertexArrayID, mode gpu.Primitive, first, count int) {
	d.bindVertexArray(va)
	gl.DrawArrays(primitiveMode(mode), int32(first), int32(count))
}

func (d *Device) DrawElements(va gpu.VertexArrayID, mode gpu.Primitive, count int) {
	d.bindVertexArray(va)
	gl.DrawElements(primitiveMode(mode), int32(count), gl.UNSIGNED_INT, nil)
}

// ── Fixed-function state ──────────────────────────────────────────────────────

func capability(c gpu.Capability) uint32 {
	if c == gpu.CullFace {
		return gl.CULL_FACE
	}
	return gl.DEPTH_TEST
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) Enable(c gpu.Capability)  { gl.Enable(capability(c)) }
func (d *Device) Disable(c gpu.Capability) { gl.Disable(capability(c)) }

func (d *Device) DepthFunc(f gpu.CompareFunc) {
	if f == gpu.LessEqual {
		gl.DepthFunc(gl.LEQUAL)
		return
	}
	gl.DepthFunc(gl.LESS)
}

func (d *Device) DepthMask(write bool)          { gl.DepthMask(write) }
func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ClearColorBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.ClearDepthBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(bits)
}

// ── Debugging ─────────────────────────────────────────────────────────────────

func (d *Device) PushDebugGroup(name string) {
	gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, 0, -1, gl.Str(name+"\x00"))
}

func (d *Device) PopDebugGroup() { gl.PopDebugGroup() }

func objectIdentifier(k gpu.ObjectKind) uint32 {
	switch k {
	case gpu.ObjectFramebuffer:
		return gl.FRAMEBUFFER
	case gpu.ObjectProgram:
		return gl.PROGRAM
	case gpu.ObjectBuffer:
		return gl.BUFFER
	case gpu.ObjectVertexArray:
		return gl.VERTEX_ARRAY
	}
	return gl.TEXTURE
}

func (d *Device) Label(kind gpu.ObjectKind, handle uint32, label string) {
	gl.ObjectLabel(objectIdentifier(kind), handle, -1, gl.Str(label+"\x00"))
}

// mat4Ptr points at m's first element; mgl32 and GL are both column-major.
func mat4Ptr(m *mgl32.Mat4) *float32 { return &m[0] }
