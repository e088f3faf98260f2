package gfx

import (
	"fmt"
	"image"
	"image/color"
	"math/bits"

	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/logx"
)

// noCopy makes go vet's copylocks check flag accidental copies of types that
// own a GPU handle.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

var (
	imageSampling = gpu.Sampling{
		MinFilter: gpu.FilterLinearMipmapLinear,
		MagFilter: gpu.FilterLinear,
		WrapS:     gpu.WrapRepeat,
		WrapT:     gpu.WrapRepeat,
		WrapR:     gpu.WrapRepeat,
	}
	cubemapSampling = gpu.Sampling{
		MinFilter: gpu.FilterLinear,
		MagFilter: gpu.FilterLinear,
		WrapS:     gpu.WrapClampToEdge,
		WrapT:     gpu.WrapClampToEdge,
		WrapR:     gpu.WrapClampToEdge,
	}
	colorAttachmentSampling = gpu.Sampling{
		MinFilter: gpu.FilterLinear,
		MagFilter: gpu.FilterLinear,
		WrapS:     gpu.WrapClampToBorder,
		WrapT:     gpu.WrapClampToBorder,
		WrapR:     gpu.WrapClampToBorder,
	}
	// Depth border is the far plane: lookups outside the light frustum
	// compare as unoccluded, so receivers beyond the shadow map are lit,
	// not black.
	depthAttachmentSampling = gpu.Sampling{
		MinFilter: gpu.FilterNearest,
		MagFilter: gpu.FilterNearest,
		WrapS:     gpu.WrapClampToBorder,
		WrapT:     gpu.WrapClampToBorder,
		WrapR:     gpu.WrapClampToBorder,
		Border:    [4]float32{1, 1, 1, 1},
	}
)

// RenderTarget owns one GPU image: a sampled texture, a framebuffer
// attachment or a cubemap. It must not be copied; Destroy releases it.
type RenderTarget struct {
	_ noCopy

	dev        gpu.Device
	id         gpu.TextureID
	target     gpu.TextureTarget
	format     gpu.Format
	sampling   gpu.Sampling
	levels     int
	width      int
	height     int
	attachment bool
	generation uint64
	label      string
}

func newRenderTarget(dev gpu.Device, target gpu.TextureTarget, format gpu.Format, s gpu.Sampling, levels, w, h int) *RenderTarget {
	rt := &RenderTarget{
		dev:      dev,
		target:   target,
		format:   format,
		sampling: s,
		levels:   levels,
		width:    w,
		height:   h,
	}
	rt.allocate()
	return rt
}

func (rt *RenderTarget) allocate() {
	rt.id = rt.dev.CreateTexture(rt.target)
	rt.dev.TextureStorage(rt.id, rt.levels, rt.format, rt.width, rt.height)
	rt.dev.TextureSampling(rt.id, rt.sampling)
	if rt.label != "" {
		rt.dev.Label(gpu.ObjectTexture, uint32(rt.id), rt.label)
	}
	rt.generation++
}

// mipLevels is the length of the full mip chain for a w×h image.
func mipLevels(w, h int) int {
	return bits.Len(uint(max(w, h)))
}

// Load2D decodes an image file into a mipmapped, repeating texture. Colour
// images are stored as sRGB when srgb is set; normal maps must not be.
func Load2D(dev gpu.Device, path string, srgb bool) (*RenderTarget, error) {
	img, err := DecodeImage(path)
	if err != nil {
		return nil, err
	}
	rt := NewTexture2D(dev, img, srgb)
	rt.SetLabel(path)
	logx.Logger().Debug("texture loaded", "path", path, "width", rt.width, "height", rt.height, "srgb", srgb)
	return rt, nil
}

// NewTexture2D uploads an in-memory image.
func NewTexture2D(dev gpu.Device, img *image.NRGBA, srgb bool) *RenderTarget {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	format := gpu.FormatRGBA8
	if srgb {
		format = gpu.FormatSRGB8Alpha8
	}
	rt := newRenderTarget(dev, gpu.Texture2D, format, imageSampling, mipLevels(w, h), w, h)
	dev.TextureUpload(rt.id, 0, w, h, img.Pix)
	dev.GenerateMipmaps(rt.id)
	return rt
}

// NewSolidTexture is a 1×1 texture of one colour, used for placeholders.
func NewSolidTexture(dev gpu.Device, c color.NRGBA, srgb bool) *RenderTarget {
	return NewTexture2D(dev, solidImage(c), srgb)
}

// LoadCubemap builds a cubemap from six square faces in +X, -X, +Y, -Y, +Z, -Z
// order.
func LoadCubemap(dev gpu.Device, faces []string) (*RenderTarget, error) {
	if len(faces) != 6 {
		return nil, &ResourceCreationError{
			Resource: "cubemap",
			Reason:   fmt.Sprintf("need 6 faces, got %d", len(faces)),
		}
	}
	imgs := make([]*image.NRGBA, len(faces))
	for i, path := range faces {
		img, err := DecodeImage(path)
		if err != nil {
			return nil, err
		}
		if i > 0 && img.Rect.Size() != imgs[0].Rect.Size() {
			return nil, &ResourceCreationError{
				Resource: "cubemap",
				Reason:   fmt.Sprintf("face %s is %v, want %v", path, img.Rect.Size(), imgs[0].Rect.Size()),
			}
		}
		imgs[i] = img
	}
	size := imgs[0].Rect.Size()
	if size.X != size.Y {
		return nil, &ResourceCreationError{
			Resource: "cubemap",
			Reason:   fmt.Sprintf("faces must be square, got %v", size),
		}
	}
	rt := newRenderTarget(dev, gpu.TextureCubeMap, gpu.FormatSRGB8Alpha8, cubemapSampling, 1, size.X, size.Y)
	for face, img := range imgs {
		dev.TextureUpload(rt.id, face, size.X, size.Y, img.Pix)
	}
	rt.SetLabel("skybox")
	return rt, nil
}

// NewColorAttachment allocates uninitialised colour storage of exactly w×h.
func NewColorAttachment(dev gpu.Device, w, h int, format gpu.Format) (*RenderTarget, error) {
	if format.IsDepth() || format == gpu.FormatNone {
		return nil, &ResourceCreationError{Resource: "color attachment", Reason: "format " + format.String() + " is not a colour format"}
	}
	return newAttachment(dev, w, h, format, colorAttachmentSampling)
}

// NewDepthAttachment allocates uninitialised 32-bit float depth storage.
func NewDepthAttachment(dev gpu.Device, w, h int) (*RenderTarget, error) {
	return newAttachment(dev, w, h, gpu.FormatDepth32F, depthAttachmentSampling)
}

func newAttachment(dev gpu.Device, w, h int, format gpu.Format, s gpu.Sampling) (*RenderTarget, error) {
	if w <= 0 || h <= 0 {
		return nil, &ResourceCreationError{
			Resource: format.String() + " attachment",
			Reason:   fmt.Sprintf("invalid size %dx%d", w, h),
		}
	}
	rt := newRenderTarget(dev, gpu.Texture2D, format, s, 1, w, h)
	rt.attachment = true
	return rt, nil
}

// Bind makes the texture visible to samplers on unit. It changes global
// texture-unit state.
func (rt *RenderTarget) Bind(unit int) {
	rt.dev.BindTextureUnit(unit, rt.id)
}

// Handle exposes the raw texture name for read-only interop such as an
// overlay preview.
func (rt *RenderTarget) Handle() gpu.TextureID { return rt.id }

// Info queries the GPU for the allocated size and format.
func (rt *RenderTarget) Info() gpu.TextureInfo { return rt.dev.TextureInfo(rt.id) }

func (rt *RenderTarget) Width() int  { return rt.width }
func (rt *RenderTarget) Height() int { return rt.height }

func (rt *RenderTarget) Format() gpu.Format        { return rt.format }
func (rt *RenderTarget) Target() gpu.TextureTarget { return rt.target }
func (rt *RenderTarget) Label() string             { return rt.label }

// Generation increases every time the storage is reallocated. Framebuffers
// and passes use it to notice stale attachments.
func (rt *RenderTarget) Generation() uint64 { return rt.generation }

// SetLabel names the texture in GPU debuggers.
func (rt *RenderTarget) SetLabel(label string) {
	rt.label = label
	if rt.id != 0 {
		rt.dev.Label(gpu.ObjectTexture, uint32(rt.id), label)
	}
}

// Resize reallocates an attachment at a new size. Contents are undefined
// afterwards and framebuffers referencing it must be refreshed.
func (rt *RenderTarget) Resize(w, h int) error {
	if !rt.attachment {
		return &ResourceCreationError{Resource: "texture " + rt.label, Reason: "only attachments can be resized"}
	}
	if w <= 0 || h <= 0 {
		return &ResourceCreationError{Resource: "texture " + rt.label, Reason: fmt.Sprintf("invalid size %dx%d", w, h)}
	}
	if w == rt.width && h == rt.height {
		return nil
	}
	rt.dev.DeleteTexture(rt.id)
	rt.width, rt.height = w, h
	rt.allocate()
	return nil
}

// Destroy releases the GPU image. Calling it twice is harmless.
func (rt *RenderTarget) Destroy() {
	if rt.id == 0 {
		return
	}
	rt.dev.DeleteTexture(rt.id)
	rt.id = 0
}
