package gpu

import "fmt"

// Handle types. The zero value is never a live object.
type (
	TextureID     uint32
	FramebufferID uint32
	ShaderID      uint32
	ProgramID     uint32
	BufferID      uint32
	VertexArrayID uint32
)

// DefaultFramebuffer is the window's framebuffer.
const DefaultFramebuffer FramebufferID = 0

type TextureTarget int

const (
	Texture2D TextureTarget = iota
	TextureCubeMap
)

func (t TextureTarget) String() string {
	switch t {
	case Texture2D:
		return "2D"
	case TextureCubeMap:
		return "cubemap"
	}
	return fmt.Sprintf("TextureTarget(%d)", int(t))
}

// Format is a sized internal texture format.
type Format int

const (
	FormatNone Format = iota
	FormatRGBA8
	FormatSRGB8Alpha8
	FormatRGBA16F
	FormatRGBA32F
	FormatDepth24
	FormatDepth32F
)

// IsDepth reports whether f can only be attached as a depth buffer.
func (f Format) IsDepth() bool {
	return f == FormatDepth24 || f == FormatDepth32F
}

// Channels is the number of colour channels f stores. Depth formats report 1.
func (f Format) Channels() int {
	switch f {
	case FormatRGBA8, FormatSRGB8Alpha8, FormatRGBA16F, FormatRGBA32F:
		return 4
	case FormatDepth24, FormatDepth32F:
		return 1
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatRGBA8:
		return "RGBA8"
	case FormatSRGB8Alpha8:
		return "SRGB8_ALPHA8"
	case FormatRGBA16F:
		return "RGBA16F"
	case FormatRGBA32F:
		return "RGBA32F"
	case FormatDepth24:
		return "DEPTH_COMPONENT24"
	case FormatDepth32F:
		return "DEPTH_COMPONENT32F"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// TextureInfo describes mip level 0 of a texture.
type TextureInfo struct {
	Width, Height int
	Format        Format
}

type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
	FilterLinearMipmapLinear
)

type Wrap int

const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
	WrapClampToBorder
)

// Sampling is the full sampler state applied to a texture.
type Sampling struct {
	MinFilter, MagFilter Filter
	WrapS, WrapT, WrapR  Wrap
	// Border is used when a wrap mode is WrapClampToBorder.
	Border [4]float32
}

// Attachment names a framebuffer attachment point. Non-negative values are
// colour attachment indices.
type Attachment int

const (
	NoAttachment    Attachment = -1
	DepthAttachment Attachment = -2
)

// ColorAttachment returns colour attachment i.
func ColorAttachment(i int) Attachment { return Attachment(i) }

// IsColor reports whether a is a colour attachment point.
func (a Attachment) IsColor() bool { return a >= 0 }

func (a Attachment) String() string {
	switch {
	case a == NoAttachment:
		return "NONE"
	case a == DepthAttachment:
		return "DEPTH"
	case a.IsColor():
		return fmt.Sprintf("COLOR%d", int(a))
	}
	return fmt.Sprintf("Attachment(%d)", int(a))
}

type FramebufferStatus int

const (
	StatusComplete FramebufferStatus = iota
	StatusIncompleteAttachment
	StatusMissingAttachment
	StatusIncompleteDrawBuffer
	StatusIncompleteReadBuffer
	StatusUnsupported
	StatusUndefined
)

func (s FramebufferStatus) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusIncompleteAttachment:
		return "incomplete attachment"
	case StatusMissingAttachment:
		return "missing attachment"
	case StatusIncompleteDrawBuffer:
		return "incomplete draw buffer"
	case StatusIncompleteReadBuffer:
		return "incomplete read buffer"
	case StatusUnsupported:
		return "unsupported"
	case StatusUndefined:
		return "undefined"
	}
	return fmt.Sprintf("FramebufferStatus(%d)", int(s))
}

type ShaderStage int

const (
	VertexStage ShaderStage = iota
	FragmentStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	}
	return fmt.Sprintf("ShaderStage(%d)", int(s))
}

type Primitive int

const (
	Triangles Primitive = iota
	TriangleStrip
	Lines
)

// Attribute is one float vertex attribute inside an interleaved buffer.
type Attribute struct {
	Location   int
	Components int
	Offset     int
}

// VertexLayout describes an interleaved float vertex buffer.
type VertexLayout struct {
	Stride     int
	Attributes []Attribute
}

type Capability int

const (
	DepthTest Capability = iota
	CullFace
)

func (c Capability) String() string {
	switch c {
	case DepthTest:
		return "DEPTH_TEST"
	case CullFace:
		return "CULL_FACE"
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

type CompareFunc int

const (
	Less CompareFunc = iota
	LessEqual
)

type ClearMask uint8

const (
	ClearColorBit ClearMask = 1 << iota
	ClearDepthBit
)

// ObjectKind is the namespace of a debug label.
type ObjectKind int

const (
	ObjectTexture ObjectKind = iota
	ObjectFramebuffer
	ObjectProgram
	ObjectBuffer
	ObjectVertexArray
)
