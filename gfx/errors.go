package gfx

import (
	"fmt"

	"deferred-renderer/internal/gpu"
)

// AssetError reports a missing or malformed image or scene file.
type AssetError struct {
	Path string
	Err  error
}

func (e *AssetError) Error() string { return fmt.Sprintf("asset %s: %v", e.Path, e.Err) }
func (e *AssetError) Unwrap() error { return e.Err }

// ShaderCompileError carries the compiler log of a failed stage.
type ShaderCompileError struct {
	Path  string
	Stage gpu.ShaderStage
	Log   string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("compile %s shader %s: %s", e.Stage, e.Path, e.Log)
}

// ShaderLinkError carries the linker log of a failed program.
type ShaderLinkError struct {
	Program string
	Log     string
}

func (e *ShaderLinkError) Error() string {
	return fmt.Sprintf("link program %s: %s", e.Program, e.Log)
}

// FramebufferIncompleteError means the framebuffer wiring is wrong. It is a
// programming error, never a transient condition.
type FramebufferIncompleteError struct {
	Name   string
	Status gpu.FramebufferStatus
	Reason string
}

func (e *FramebufferIncompleteError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("framebuffer %s incomplete: %s", e.Name, e.Status)
	}
	return fmt.Sprintf("framebuffer %s incomplete: %s (%s)", e.Name, e.Status, e.Reason)
}

// ResourceCreationError reports a GPU resource that cannot be built from the
// given inputs, such as a cubemap with the wrong face count.
type ResourceCreationError struct {
	Resource string
	Reason   string
}

func (e *ResourceCreationError) Error() string {
	return fmt.Sprintf("create %s: %s", e.Resource, e.Reason)
}
