package gfx

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/logx"
)

// ShaderProgram is a linked GPU program built from shader files in an fs.FS.
type ShaderProgram struct {
	_ noCopy

	dev      gpu.Device
	fsys     fs.FS
	name     string
	id       gpu.ProgramID
	stages   []gpu.ShaderID
	linked   bool
	uniforms map[string]int32
}

// NewShaderProgram creates an empty program reading sources from fsys.
func NewShaderProgram(dev gpu.Device, fsys fs.FS, name string) *ShaderProgram {
	p := &ShaderProgram{
		dev:      dev,
		fsys:     fsys,
		name:     name,
		id:       dev.CreateProgram(),
		uniforms: make(map[string]int32),
	}
	dev.Label(gpu.ObjectProgram, uint32(p.id), name)
	return p
}

// BuildProgram compiles a vertex and a fragment file and links them.
func BuildProgram(dev gpu.Device, fsys fs.FS, name, vertPath, fragPath string) (*ShaderProgram, error) {
	p := NewShaderProgram(dev, fsys, name)
	if err := p.AttachShader(gpu.VertexStage, vertPath); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.AttachShader(gpu.FragmentStage, fragPath); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.Link(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

// AttachShader reads, compiles and attaches one stage.
func (p *ShaderProgram) AttachShader(stage gpu.ShaderStage, path string) error {
	if p.linked {
		return fmt.Errorf("program %s: attach %s after link", p.name, path)
	}
	src, err := fs.ReadFile(p.fsys, path)
	if err != nil {
		return &AssetError{Path: path, Err: err}
	}
	s := p.dev.CreateShader(stage)
	if log, ok := p.dev.CompileShader(s, string(src)); !ok {
		p.dev.DeleteShader(s)
		return &ShaderCompileError{Path: path, Stage: stage, Log: strings.TrimSpace(log)}
	}
	p.dev.AttachShader(p.id, s)
	p.stages = append(p.stages, s)
	return nil
}

// Link links the attached stages and releases them. The program is
// immutable afterwards.
func (p *ShaderProgram) Link() error {
	if p.linked {
		return nil
	}
	log, ok := p.dev.LinkProgram(p.id)
	for _, s := range p.stages {
		p.dev.DeleteShader(s)
	}
	p.stages = nil
	if !ok {
		return &ShaderLinkError{Program: p.name, Log: strings.TrimSpace(log)}
	}
	p.linked = true
	logx.Logger().Debug("program linked", "name", p.name)
	return nil
}

// Use makes the program current.
func (p *ShaderProgram) Use() { p.dev.UseProgram(p.id) }

// location resolves and caches a uniform location. Unknown names cache -1.
func (p *ShaderProgram) location(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := p.dev.UniformLocation(p.id, name)
	p.uniforms[name] = loc
	return loc
}

// Uniform setters silently ignore names the program does not declare.

func (p *ShaderProgram) SetInt(name string, v int) {
	if loc := p.location(name); loc >= 0 {
		p.dev.UniformInt(p.id, loc, int32(v))
	}
}

func (p *ShaderProgram) SetBool(name string, v bool) {
	i := 0
	if v {
		i = 1
	}
	p.SetInt(name, i)
}

func (p *ShaderProgram) SetFloat(name string, v float32) {
	if loc := p.location(name); loc >= 0 {
		p.dev.UniformFloat(p.id, loc, v)
	}
}

func (p *ShaderProgram) SetVec3(name string, v mgl32.Vec3) {
	if loc := p.location(name); loc >= 0 {
		p.dev.UniformVec3(p.id, loc, v)
	}
}

func (p *ShaderProgram) SetMat4(name string, m mgl32.Mat4) {
	if loc := p.location(name); loc >= 0 {
		p.dev.UniformMat4(p.id, loc, m)
	}
}

func (p *ShaderProgram) Name() string          { return p.name }
func (p *ShaderProgram) Handle() gpu.ProgramID { return p.id }

// Destroy releases the program and any stage not yet linked.
func (p *ShaderProgram) Destroy() {
	if p.id == 0 {
		return
	}
	for _, s := range p.stages {
		p.dev.DeleteShader(s)
	}
	p.stages = nil
	p.dev.DeleteProgram(p.id)
	p.id = 0
}
