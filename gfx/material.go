package gfx

import (
	"context"
	"image"
	"image/color"
	"runtime"

	"golang.org/x/sync/errgroup"

	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/logx"
)

// Placeholder texture keys. They never collide with file paths.
const (
	WhiteTexture      = "builtin:white"
	FlatNormalTexture = "builtin:flat_normal"
)

type textureKey struct {
	path string
	srgb bool
}

// SharedTexture is a reference-counted RenderTarget owned by a TextureCache.
type SharedTexture struct {
	*RenderTarget

	cache   *TextureCache
	key     textureKey
	refs    int
	builtin bool
}

// Path is the source the texture was loaded from.
func (s *SharedTexture) Path() string { return s.key.path }

// Refs is the number of outstanding Acquire calls.
func (s *SharedTexture) Refs() int { return s.refs }

// Release drops one reference. The texture is destroyed when the last
// reference goes, except for placeholders which live as long as the cache.
func (s *SharedTexture) Release() {
	if s.refs == 0 {
		return
	}
	s.refs--
	if s.refs == 0 && !s.builtin {
		s.cache.evict(s)
	}
}

// TextureCache loads each distinct (path, colour space) pair once.
// It is not safe for concurrent use; only Preload decodes in parallel.
type TextureCache struct {
	dev     gpu.Device
	entries map[textureKey]*SharedTexture
}

// NewTextureCache creates a cache holding the white and flat-normal
// placeholders.
func NewTextureCache(dev gpu.Device) *TextureCache {
	c := &TextureCache{dev: dev, entries: make(map[textureKey]*SharedTexture)}
	c.addBuiltin(WhiteTexture, color.NRGBA{255, 255, 255, 255}, true)
	c.addBuiltin(FlatNormalTexture, color.NRGBA{128, 128, 255, 255}, false)
	return c
}

func (c *TextureCache) addBuiltin(key string, col color.NRGBA, srgb bool) {
	rt := NewSolidTexture(c.dev, col, srgb)
	rt.SetLabel(key)
	k := textureKey{path: key, srgb: srgb}
	c.entries[k] = &SharedTexture{RenderTarget: rt, cache: c, key: k, builtin: true}
}

// White returns a new reference to the solid white placeholder.
func (c *TextureCache) White() *SharedTexture {
	return c.ref(c.entries[textureKey{WhiteTexture, true}])
}

// FlatNormal returns a new reference to the (0.5, 0.5, 1) normal placeholder.
func (c *TextureCache) FlatNormal() *SharedTexture {
	return c.ref(c.entries[textureKey{FlatNormalTexture, false}])
}

func (c *TextureCache) ref(s *SharedTexture) *SharedTexture {
	s.refs++
	return s
}

// Acquire returns a reference to the texture at path, loading it on first
// use.
func (c *TextureCache) Acquire(path string, srgb bool) (*SharedTexture, error) {
	key := textureKey{path, srgb}
	if s, ok := c.entries[key]; ok {
		return c.ref(s), nil
	}
	rt, err := Load2D(c.dev, path, srgb)
	if err != nil {
		return nil, err
	}
	s := &SharedTexture{RenderTarget: rt, cache: c, key: key}
	c.entries[key] = s
	return c.ref(s), nil
}

func (c *TextureCache) evict(s *SharedTexture) {
	delete(c.entries, s.key)
	s.RenderTarget.Destroy()
	logx.Logger().Debug("texture released", "path", s.key.path)
}

// TextureRequest names a texture to preload.
type TextureRequest struct {
	Path string
	SRGB bool
}

// Preload decodes every request not already cached on a pool of goroutines
// and uploads the results on the calling goroutine, which must own the GPU
// context. Preloaded textures start with no references. progress, if set,
// is called once per decoded file and may be called concurrently.
func (c *TextureCache) Preload(ctx context.Context, reqs []TextureRequest, progress func(TextureRequest)) error {
	var pending []TextureRequest
	seen := make(map[textureKey]bool)
	for _, r := range reqs {
		key := textureKey{r.Path, r.SRGB}
		if _, ok := c.entries[key]; ok || seen[key] {
			continue
		}
		seen[key] = true
		pending = append(pending, r)
	}

	imgs := make([]*image.NRGBA, len(pending))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range pending {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := DecodeImage(r.Path)
			if err != nil {
				return err
			}
			imgs[i] = img
			if progress != nil {
				progress(r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, r := range pending {
		rt := NewTexture2D(c.dev, imgs[i], r.SRGB)
		rt.SetLabel(r.Path)
		key := textureKey{r.Path, r.SRGB}
		c.entries[key] = &SharedTexture{RenderTarget: rt, cache: c, key: key}
	}
	logx.Logger().Debug("textures preloaded", "count", len(pending))
	return nil
}

// Len is the number of textures held, placeholders included.
func (c *TextureCache) Len() int { return len(c.entries) }

// Destroy releases every texture regardless of outstanding references.
func (c *TextureCache) Destroy() {
	for key, s := range c.entries {
		s.RenderTarget.Destroy()
		delete(c.entries, key)
	}
}

// Material pairs a diffuse map with a normal map. Missing maps resolve to
// the cache's placeholders, so neither is ever nil.
type Material struct {
	Name string

	diffuse *SharedTexture
	normal  *SharedTexture
}

// NewMaterial acquires the material's textures. An empty path selects the
// placeholder. Diffuse maps are sampled as sRGB, normal maps linearly.
func NewMaterial(cache *TextureCache, name, diffusePath, normalPath string) (*Material, error) {
	acquire := func(path, builtin string, srgb bool) (*SharedTexture, error) {
		if path != "" {
			return cache.Acquire(path, srgb)
		}
		s, ok := cache.entries[textureKey{builtin, srgb}]
		if !ok {
			return nil, &ResourceCreationError{Resource: "material " + name, Reason: "texture cache was destroyed"}
		}
		return cache.ref(s), nil
	}
	m := &Material{Name: name}
	var err error
	if m.diffuse, err = acquire(diffusePath, WhiteTexture, true); err != nil {
		return nil, err
	}
	if m.normal, err = acquire(normalPath, FlatNormalTexture, false); err != nil {
		m.diffuse.Release()
		return nil, err
	}
	return m, nil
}

// Bind binds the diffuse map to DiffuseUnit and the normal map to NormalUnit.
func (m *Material) Bind() {
	m.diffuse.Bind(DiffuseUnit)
	m.normal.Bind(NormalUnit)
}

func (m *Material) Diffuse() *SharedTexture { return m.diffuse }
func (m *Material) Normal() *SharedTexture  { return m.normal }

// Release returns both textures to the cache.
func (m *Material) Release() {
	if m.diffuse == nil {
		return
	}
	m.diffuse.Release()
	m.normal.Release()
	m.diffuse, m.normal = nil, nil
}
