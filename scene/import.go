package scene

import (
	"errors"
	"path/filepath"
	"strings"

	"deferred-renderer/gfx"
)

var ErrUnsupportedFormat = errors.New("unsupported scene format")

// ImportScene picks the importer from the file extension: .gltf and .glb
// go to ImportGLTF, .obj to ImportOBJ.
func ImportScene(path string) (*Import, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return ImportGLTF(path)
	case ".obj":
		return ImportOBJ(path)
	}
	return nil, &gfx.AssetError{Path: path, Err: ErrUnsupportedFormat}
}
