package gfx

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/gpu/gputest"
)

func TestMaterialAbsentNormalUsesFlatPlaceholder(t *testing.T) {
	dev := gputest.New()
	cache := NewTextureCache(dev)
	diffuse := writePNG(t, t.TempDir(), "wall.png", solidNRGBA(2, 2, color.NRGBA{10, 20, 30, 255}))

	mat, err := NewMaterial(cache, "wall", diffuse, "")
	require.NoError(t, err)

	require.NotNil(t, mat.Normal())
	assert.Equal(t, FlatNormalTexture, mat.Normal().Path())
	assert.NotZero(t, mat.Normal().Handle())
	assert.Equal(t, gpu.FormatRGBA8, mat.Normal().Format(), "normal maps are linear")
	assert.Equal(t, gpu.FormatSRGB8Alpha8, mat.Diffuse().Format())
}

func TestMaterialAbsentDiffuseUsesWhite(t *testing.T) {
	cache := NewTextureCache(gputest.New())
	mat, err := NewMaterial(cache, "blank", "", "")
	require.NoError(t, err)
	assert.Equal(t, WhiteTexture, mat.Diffuse().Path())

	mat.Release()
	assert.NotZero(t, cache.White().Handle(), "placeholders outlive their users")
}

func TestMaterialLoadFailure(t *testing.T) {
	dev := gputest.New()
	cache := NewTextureCache(dev)
	diffuse := writePNG(t, t.TempDir(), "ok.png", solidNRGBA(1, 1, color.NRGBA{255, 0, 0, 255}))

	_, err := NewMaterial(cache, "bad", diffuse, filepath.Join(t.TempDir(), "missing.png"))
	var assetErr *AssetError
	require.True(t, errors.As(err, &assetErr), "got %v", err)
	assert.Equal(t, 2, cache.Len(), "diffuse reference was returned on failure")
}

func TestCacheSharesTextures(t *testing.T) {
	dev := gputest.New()
	cache := NewTextureCache(dev)
	path := writePNG(t, t.TempDir(), "floor.png", solidNRGBA(4, 4, color.NRGBA{90, 80, 70, 255}))

	a, err := NewMaterial(cache, "a", path, "")
	require.NoError(t, err)
	b, err := NewMaterial(cache, "b", path, "")
	require.NoError(t, err)

	assert.Same(t, a.Diffuse(), b.Diffuse())
	assert.Equal(t, 2, a.Diffuse().Refs())
	assert.Equal(t, 3, cache.Len())

	handle := a.Diffuse().Handle()
	a.Release()
	assert.Contains(t, dev.Textures, handle)
	b.Release()
	assert.NotContains(t, dev.Textures, handle)
	assert.Equal(t, 2, cache.Len())
}

func TestCacheKeysOnColorSpace(t *testing.T) {
	cache := NewTextureCache(gputest.New())
	path := writePNG(t, t.TempDir(), "x.png", solidNRGBA(1, 1, color.NRGBA{1, 2, 3, 255}))

	srgb, err := cache.Acquire(path, true)
	require.NoError(t, err)
	linear, err := cache.Acquire(path, false)
	require.NoError(t, err)
	assert.NotSame(t, srgb, linear)
}

func TestPreload(t *testing.T) {
	dev := gputest.New()
	cache := NewTextureCache(dev)
	dir := t.TempDir()
	var reqs []TextureRequest
	for i := 0; i < 5; i++ {
		p := writePNG(t, dir, fmt.Sprintf("t%d.png", i), solidNRGBA(2, 2, color.NRGBA{uint8(i), 0, 0, 255}))
		reqs = append(reqs, TextureRequest{Path: p, SRGB: true})
	}
	reqs = append(reqs, reqs[0])

	var decoded atomic.Int32
	err := cache.Preload(context.Background(), reqs, func(TextureRequest) { decoded.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, int32(5), decoded.Load(), "duplicates decode once")
	assert.Equal(t, 7, cache.Len())

	before := len(dev.Textures)
	tex, err := cache.Acquire(reqs[2].Path, true)
	require.NoError(t, err)
	assert.Equal(t, before, len(dev.Textures), "preloaded textures are not reloaded")
	assert.Equal(t, 1, tex.Refs())
}

func TestPreloadFailsOnBadFile(t *testing.T) {
	dev := gputest.New()
	cache := NewTextureCache(dev)
	good := writePNG(t, t.TempDir(), "good.png", solidNRGBA(1, 1, color.NRGBA{}))
	reqs := []TextureRequest{{Path: good}, {Path: filepath.Join(t.TempDir(), "bad.png")}}

	err := cache.Preload(context.Background(), reqs, nil)
	var assetErr *AssetError
	require.True(t, errors.As(err, &assetErr), "got %v", err)
	assert.Equal(t, 2, cache.Len(), "nothing is uploaded when a decode fails")
}

func TestPreloadHonoursCancellation(t *testing.T) {
	cache := NewTextureCache(gputest.New())
	good := writePNG(t, t.TempDir(), "good.png", solidNRGBA(1, 1, color.NRGBA{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cache.Preload(ctx, []TextureRequest{{Path: good}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheDestroy(t *testing.T) {
	dev := gputest.New()
	cache := NewTextureCache(dev)
	_, err := NewMaterial(cache, "m", "", "")
	require.NoError(t, err)

	cache.Destroy()
	assert.Empty(t, dev.Textures)
	assert.Zero(t, cache.Len())
}

func TestNewMaterialAfterCacheDestroyed(t *testing.T) {
	cache := NewTextureCache(gputest.New())
	cache.Destroy()

	_, err := NewMaterial(cache, "late", "", "")
	var rce *ResourceCreationError
	require.ErrorAs(t, err, &rce)
	assert.Contains(t, rce.Resource, "late")
}
