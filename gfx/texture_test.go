package gfx

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/gpu/gputest"
)

func TestLoad2D(t *testing.T) {
	dev := gputest.New()
	path := writePNG(t, t.TempDir(), "brick.png", solidNRGBA(4, 2, color.NRGBA{200, 10, 10, 255}))

	rt, err := Load2D(dev, path, true)
	require.NoError(t, err)

	tex := dev.Textures[rt.Handle()]
	require.NotNil(t, tex)
	assert.Equal(t, gpu.FormatSRGB8Alpha8, tex.Format)
	assert.Equal(t, 3, tex.Levels)
	assert.True(t, tex.Mipmapped)
	assert.Equal(t, gpu.WrapRepeat, tex.Sampling.WrapS)
	assert.Equal(t, gpu.WrapRepeat, tex.Sampling.WrapT)
	assert.Equal(t, gpu.FilterLinearMipmapLinear, tex.Sampling.MinFilter)
	assert.Equal(t, 4*2*4, tex.Faces[0])
	assert.Equal(t, path, tex.Label)
}

func TestLoad2DLinear(t *testing.T) {
	dev := gputest.New()
	path := writePNG(t, t.TempDir(), "normal.png", solidNRGBA(2, 2, color.NRGBA{128, 128, 255, 255}))

	rt, err := Load2D(dev, path, false)
	require.NoError(t, err)
	assert.Equal(t, gpu.FormatRGBA8, rt.Info().Format)
}

func TestLoad2DAcceptsThreeChannels(t *testing.T) {
	dev := gputest.New()
	path := writeJPEG(t, t.TempDir(), "stone.jpg", solidNRGBA(8, 8, color.NRGBA{90, 90, 90, 255}))

	rt, err := Load2D(dev, path, true)
	require.NoError(t, err)
	assert.Equal(t, gpu.TextureInfo{Width: 8, Height: 8, Format: gpu.FormatSRGB8Alpha8}, rt.Info())
}

func TestLoad2DMissingFile(t *testing.T) {
	_, err := Load2D(gputest.New(), filepath.Join(t.TempDir(), "nope.png"), true)

	var assetErr *AssetError
	require.True(t, errors.As(err, &assetErr), "got %v", err)
	assert.Contains(t, assetErr.Path, "nope.png")
}

func TestLoad2DMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "ok.png", solidNRGBA(1, 1, color.NRGBA{}))
	require.NoError(t, truncate(path))

	_, err := Load2D(gputest.New(), path, true)
	var assetErr *AssetError
	assert.True(t, errors.As(err, &assetErr), "got %v", err)
}

func TestLoad2DRejectsSingleChannel(t *testing.T) {
	dev := gputest.New()
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	path := writePNG(t, t.TempDir(), "mask.png", gray)

	_, err := Load2D(dev, path, true)
	var resErr *ResourceCreationError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.Contains(t, resErr.Reason, "channel count 1")
	assert.Empty(t, dev.Textures)
}

func TestLoadCubemap(t *testing.T) {
	dev := gputest.New()
	dir := t.TempDir()
	var faces []string
	for _, name := range []string{"px", "nx", "py", "ny", "pz", "nz"} {
		faces = append(faces, writePNG(t, dir, name+".png", solidNRGBA(4, 4, color.NRGBA{0, 0, 255, 255})))
	}

	rt, err := LoadCubemap(dev, faces)
	require.NoError(t, err)
	assert.Equal(t, gpu.TextureCubeMap, rt.Target())
	tex := dev.Textures[rt.Handle()]
	assert.Len(t, tex.Faces, 6)
	assert.Equal(t, gpu.WrapClampToEdge, tex.Sampling.WrapR)
}

func TestLoadCubemapNeedsSixFaces(t *testing.T) {
	dev := gputest.New()
	dir := t.TempDir()
	faces := make([]string, 5)
	for i := range faces {
		faces[i] = writePNG(t, dir, string(rune('a'+i))+".png", solidNRGBA(1, 1, color.NRGBA{}))
	}

	_, err := LoadCubemap(dev, faces)
	var resErr *ResourceCreationError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.Contains(t, resErr.Reason, "got 5")
	assert.Empty(t, dev.Textures)
}

func TestLoadCubemapRejectsMismatchedFaces(t *testing.T) {
	dir := t.TempDir()
	faces := make([]string, 6)
	for i := range faces {
		size := 4
		if i == 3 {
			size = 2
		}
		faces[i] = writePNG(t, dir, string(rune('a'+i))+".png", solidNRGBA(size, size, color.NRGBA{}))
	}

	_, err := LoadCubemap(gputest.New(), faces)
	var resErr *ResourceCreationError
	assert.True(t, errors.As(err, &resErr), "got %v", err)
}

func TestColorAttachmentRoundTrip(t *testing.T) {
	for _, format := range []gpu.Format{gpu.FormatRGBA8, gpu.FormatRGBA16F, gpu.FormatRGBA32F} {
		t.Run(format.String(), func(t *testing.T) {
			dev := gputest.New()
			rt, err := NewColorAttachment(dev, 1280, 720, format)
			require.NoError(t, err)

			rt.Bind(3)
			assert.Equal(t, rt.Handle(), dev.Units[3])

			info := rt.Info()
			assert.Equal(t, 1280, info.Width)
			assert.Equal(t, 720, info.Height)
			assert.Equal(t, format, info.Format)
			assert.Equal(t, 4, info.Format.Channels())
		})
	}
}

func TestColorAttachmentRejectsBadInput(t *testing.T) {
	dev := gputest.New()
	_, err := NewColorAttachment(dev, 16, 16, gpu.FormatDepth32F)
	assert.Error(t, err)
	_, err = NewColorAttachment(dev, 0, 16, gpu.FormatRGBA8)
	assert.Error(t, err)
	assert.Empty(t, dev.Textures)
}

func TestDepthAttachmentBorder(t *testing.T) {
	dev := gputest.New()
	rt, err := NewDepthAttachment(dev, 1024, 1024)
	require.NoError(t, err)

	tex := dev.Textures[rt.Handle()]
	assert.Equal(t, gpu.FormatDepth32F, tex.Format)
	assert.Equal(t, gpu.WrapClampToBorder, tex.Sampling.WrapS)
	assert.Equal(t, gpu.WrapClampToBorder, tex.Sampling.WrapT)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, tex.Sampling.Border)
	assert.Empty(t, tex.Faces, "attachments start uninitialised")
}

func TestResize(t *testing.T) {
	dev := gputest.New()
	rt, err := NewColorAttachment(dev, 64, 64, gpu.FormatRGBA16F)
	require.NoError(t, err)
	rt.SetLabel("lit")
	old, gen := rt.Handle(), rt.Generation()

	require.NoError(t, rt.Resize(64, 64))
	assert.Equal(t, old, rt.Handle(), "same size keeps storage")

	require.NoError(t, rt.Resize(32, 16))
	assert.NotEqual(t, old, rt.Handle())
	assert.Greater(t, rt.Generation(), gen)
	assert.NotContains(t, dev.Textures, old)
	assert.Equal(t, gpu.TextureInfo{Width: 32, Height: 16, Format: gpu.FormatRGBA16F}, rt.Info())
	assert.Equal(t, "lit", dev.Textures[rt.Handle()].Label)

	assert.Error(t, rt.Resize(0, 1))
}

func TestResizeRejectsImages(t *testing.T) {
	rt := NewSolidTexture(gputest.New(), color.NRGBA{255, 255, 255, 255}, true)
	assert.Error(t, rt.Resize(2, 2))
}

func TestDestroyIsIdempotent(t *testing.T) {
	dev := gputest.New()
	rt, err := NewDepthAttachment(dev, 8, 8)
	require.NoError(t, err)

	rt.Destroy()
	rt.Destroy()
	assert.Equal(t, 1, dev.Deleted["texture"])
	assert.Zero(t, rt.Handle())
}
