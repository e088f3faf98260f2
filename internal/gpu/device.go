// Package gpu defines the rendering context every draw goes through.
//
// The Device interface mirrors the subset of the OpenGL 4.6 state machine the
// renderer needs, expressed with typed handles instead of raw integers. The
// production implementation lives in internal/opengl; tests use gputest.
package gpu

import "github.com/go-gl/mathgl/mgl32"

// Device is the explicit GPU context. All methods must be called from the
// goroutine that owns the context.
type Device interface {
	// ── Textures ──────────────────────────────────────────────────────────
	CreateTexture(target TextureTarget) TextureID
	TextureStorage(t TextureID, levels int, format Format, width, height int)
	// TextureUpload copies tightly packed RGBA8 pixels into mip level 0.
	// face selects the cubemap face and is ignored for 2D textures.
	TextureUpload(t TextureID, face, width, height int, rgba []byte)
	GenerateMipmaps(t TextureID)
	TextureSampling(t TextureID, s Sampling)
	BindTextureUnit(unit int, t TextureID)
	TextureInfo(t TextureID) TextureInfo
	DeleteTexture(t TextureID)

	// ── Framebuffers ──────────────────────────────────────────────────────
	CreateFramebuffer() FramebufferID
	FramebufferTexture(fb FramebufferID, a Attachment, t TextureID)
	FramebufferDrawBuffers(fb FramebufferID, buffers []Attachment)
	FramebufferReadBuffer(fb FramebufferID, a Attachment)
	FramebufferStatus(fb FramebufferID) FramebufferStatus
	BindFramebuffer(fb FramebufferID)
	DeleteFramebuffer(fb FramebufferID)

	// ── Shaders ───────────────────────────────────────────────────────────
	CreateShader(stage ShaderStage) ShaderID
	CompileShader(s ShaderID, source string) (log string, ok bool)
	DeleteShader(s ShaderID)
	CreateProgram() ProgramID
	AttachShader(p ProgramID, s ShaderID)
	LinkProgram(p ProgramID) (log string, ok bool)
	UseProgram(p ProgramID)
	UniformLocation(p ProgramID, name string) int32
	UniformInt(p ProgramID, location int32, v int32)
	UniformFloat(p ProgramID, location int32, v float32)
	UniformVec3(p ProgramID, location int32, v mgl32.Vec3)
	UniformMat4(p ProgramID, location int32, m mgl32.Mat4)
	DeleteProgram(p ProgramID)

	// ── Geometry ──────────────────────────────────────────────────────────
	CreateBuffer(data []byte) BufferID
	DeleteBuffer(b BufferID)
	// CreateVertexArray binds vbo at binding point 0 with the given layout.
	// ebo may be zero for non-indexed geometry.
	CreateVertexArray(layout VertexLayout, vbo, ebo BufferID) VertexArrayID
	DeleteVertexArray(va VertexArrayID)
	DrawArrays(va VertexArrayID, mode Primitive, first, count int)
	DrawElements(va VertexArrayID, mode Primitive, count int)

	// ── Fixed-function state ──────────────────────────────────────────────
	Viewport(x, y, width, height int)
	Enable(c Capability)
	Disable(c Capability)
	DepthFunc(f CompareFunc)
	DepthMask(write bool)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)

	// ── Debugging ─────────────────────────────────────────────────────────
	PushDebugGroup(name string)
	PopDebugGroup()
	Label(kind ObjectKind, handle uint32, label string)
}
