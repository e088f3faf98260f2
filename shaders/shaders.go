// Package shaders embeds the GLSL sources of the render pipeline. Files are
// named <program>.<stage>.glsl.
package shaders

import "embed"

// FS holds every stage source.
//
//go:embed *.glsl
var FS embed.FS
