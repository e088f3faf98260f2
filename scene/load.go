package scene

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"deferred-renderer/gfx"
	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/logx"
)

// Load uploads an import: textures are preloaded through cache, then one
// material per source and one mesh per primitive are created. The result is
// a single model plus the material pool it draws with. On error nothing is
// left allocated except what cache already held.
func Load(ctx context.Context, dev gpu.Device, cache *gfx.TextureCache, imp *Import, progress func(gfx.TextureRequest)) (*Model, []*gfx.Material, error) {
	if err := cache.Preload(ctx, imp.TextureRequests(), progress); err != nil {
		return nil, nil, fmt.Errorf("load textures: %w", err)
	}

	var materials []*gfx.Material
	var meshes []*gfx.Mesh
	cleanup := func() {
		for _, m := range meshes {
			m.Destroy()
		}
		for _, m := range materials {
			m.Release()
		}
	}

	for _, src := range imp.Materials {
		mat, err := gfx.NewMaterial(cache, src.Name, src.DiffusePath, src.NormalPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("material %s: %w", src.Name, err)
		}
		materials = append(materials, mat)
	}

	var fallback *gfx.Material
	for _, src := range imp.Meshes {
		var mat *gfx.Material
		if src.Material >= 0 {
			mat = materials[src.Material]
		} else {
			if fallback == nil {
				var err error
				if fallback, err = gfx.NewMaterial(cache, "default", "", ""); err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("material default: %w", err)
				}
				materials = append(materials, fallback)
			}
			mat = fallback
		}
		mesh, err := gfx.NewMesh(dev, src.Vertices, src.Indices, mat)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mesh %s: %w", src.Name, err)
		}
		meshes = append(meshes, mesh)
	}

	name := strings.TrimSuffix(filepath.Base(imp.Path), filepath.Ext(imp.Path))
	logx.Logger().Info("scene uploaded", "model", name, "meshes", len(meshes),
		"materials", len(materials), "textures", cache.Len())
	return NewModel(name, meshes), materials, nil
}
