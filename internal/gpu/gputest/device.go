// Package gputest provides an in-memory gpu.Device that records state
// changes and draw calls, for tests that must not touch a real GPU.
package gputest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/internal/gpu"
)

type Texture struct {
	Target    gpu.TextureTarget
	Format    gpu.Format
	Width     int
	Height    int
	Levels    int
	Sampling  gpu.Sampling
	Faces     map[int]int // face -> byte length of the last upload
	Mipmapped bool
	Label     string
}

type Framebuffer struct {
	Attachments map[gpu.Attachment]gpu.TextureID
	DrawBuffers []gpu.Attachment
	ReadBuffer  gpu.Attachment
	Label       string
}

type Shader struct {
	Stage    gpu.ShaderStage
	Source   string
	Compiled bool
}

type Program struct {
	Shaders  []gpu.ShaderID
	Linked   bool
	Label    string
	Uniforms map[string]int32
	Values   map[string]any
	names    map[int32]string
}

type VertexArray struct {
	Layout gpu.VertexLayout
	VBO    gpu.BufferID
	EBO    gpu.BufferID
}

// Draw is one recorded draw call together with the state it observed.
type Draw struct {
	Group       string
	Framebuffer gpu.FramebufferID
	Program     gpu.ProgramID
	VertexArray gpu.VertexArrayID
	Mode        gpu.Primitive
	Count       int
	Indexed     bool
	Units       map[int]gpu.TextureID
	Uniforms    map[string]any
	DepthTest   bool
	CullFace    bool
	Viewport    [4]int
}

type Clear struct {
	Group       string
	Framebuffer gpu.FramebufferID
	Mask        gpu.ClearMask
	Color       [4]float32
}

// Device is a recording gpu.Device. Its exported fields are safe to inspect
// between calls.
type Device struct {
	Textures     map[gpu.TextureID]*Texture
	Framebuffers map[gpu.FramebufferID]*Framebuffer
	Shaders      map[gpu.ShaderID]*Shader
	Programs     map[gpu.ProgramID]*Program
	Buffers      map[gpu.BufferID][]byte
	VertexArrays map[gpu.VertexArrayID]*VertexArray

	CurrentProgram     gpu.ProgramID
	CurrentFramebuffer gpu.FramebufferID
	Units              map[int]gpu.TextureID
	Caps               map[gpu.Capability]bool
	Depth              gpu.CompareFunc
	DepthWrite         bool
	ViewportRect       [4]int
	ClearRGBA          [4]float32

	Draws  []Draw
	Clears []Clear
	// Groups lists every debug group in the order it was pushed.
	Groups []string
	// UseProgramCalls counts UseProgram calls that changed the active program.
	UseProgramCalls int
	// MissingUniforms records uniform lookups that resolved to -1.
	MissingUniforms []string
	// Deleted counts released objects by kind.
	Deleted map[string]int

	groupStack []string
	next       uint32
}

// New returns an empty device with depth writes enabled, like a fresh context.
func New() *Device {
	return &Device{
		Textures:     make(map[gpu.TextureID]*Texture),
		Framebuffers: make(map[gpu.FramebufferID]*Framebuffer),
		Shaders:      make(map[gpu.ShaderID]*Shader),
		Programs:     make(map[gpu.ProgramID]*Program),
		Buffers:      make(map[gpu.BufferID][]byte),
		VertexArrays: make(map[gpu.VertexArrayID]*VertexArray),
		Units:        make(map[int]gpu.TextureID),
		Caps:         make(map[gpu.Capability]bool),
		DepthWrite:   true,
		Deleted:      make(map[string]int),
	}
}

var _ gpu.Device = (*Device)(nil)

func (d *Device) id() uint32 {
	d.next++
	return d.next
}

func (d *Device) group() string {
	if len(d.groupStack) == 0 {
		return ""
	}
	return d.groupStack[len(d.groupStack)-1]
}

// ── Textures ─────────────────────────────────────────────────────────────────

func (d *Device) CreateTexture(target gpu.TextureTarget) gpu.TextureID {
	id := gpu.TextureID(d.id())
	d.Textures[id] = &Texture{Target: target, Faces: make(map[int]int)}
	return id
}

func (d *Device) TextureStorage(t gpu.TextureID, levels int, format gpu.Format, width, height int) {
	tex := d.mustTexture(t)
	tex.Levels, tex.Format, tex.Width, tex.Height = levels, format, width, height
}

func (d *Device) TextureUpload(t gpu.TextureID, face, width, height int, rgba []byte) {
	tex := d.mustTexture(t)
	if width != tex.Width || height != tex.Height {
		panic(fmt.Sprintf("gputest: upload %dx%d into %dx%d texture", width, height, tex.Width, tex.Height))
	}
	if len(rgba) != width*height*4 {
		panic(fmt.Sprintf("gputest: upload of %d bytes for %dx%d RGBA", len(rgba), width, height))
	}
	tex.Faces[face] = len(rgba)
}

func (d *Device) GenerateMipmaps(t gpu.TextureID) { d.mustTexture(t).Mipmapped = true }

func (d *Device) TextureSampling(t gpu.TextureID, s gpu.Sampling) { d.mustTexture(t).Sampling = s }

func (d *Device) BindTextureUnit(unit int, t gpu.TextureID) {
	if t != 0 {
		d.mustTexture(t)
	}
	d.Units[unit] = t
}

func (d *Device) TextureInfo(t gpu.TextureID) gpu.TextureInfo {
	tex := d.mustTexture(t)
	return gpu.TextureInfo{Width: tex.Width, Height: tex.Height, Format: tex.Format}
}

func (d *Device) DeleteTexture(t gpu.TextureID) {
	d.mustTexture(t)
	delete(d.Textures, t)
	for unit, bound := range d.Units {
		if bound == t {
			d.Units[unit] = 0
		}
	}
	d.Deleted["texture"]++
}

func (d *Device) mustTexture(t gpu.TextureID) *Texture {
	tex, ok := d.Textures[t]
	if !ok {
		panic(fmt.Sprintf("gputest: unknown texture %d", t))
	}
	return tex
}

// ── Framebuffers ─────────────────────────────────────────────────────────────

func (d *Device) CreateFramebuffer() gpu.FramebufferID {
	id := gpu.FramebufferID(d.id())
	d.Framebuffers[id] = &Framebuffer{
		Attachments: make(map[gpu.Attachment]gpu.TextureID),
		DrawBuffers: []gpu.Attachment{gpu.ColorAttachment(0)},
		ReadBuffer:  gpu.ColorAttachment(0),
	}
	return id
}

func (d *Device) FramebufferTexture(fb gpu.FramebufferID, a gpu.Attachment, t gpu.TextureID) {
	f := d.mustFramebuffer(fb)
	if t == 0 {
		delete(f.Attachments, a)
		return
	}
	d.mustTexture(t)
	f.Attachments[a] = t
}

func (d *Device) FramebufferDrawBuffers(fb gpu.FramebufferID, buffers []gpu.Attachment) {
	d.mustFramebuffer(fb).DrawBuffers = append([]gpu.Attachment(nil), buffers...)
}

func (d *Device) FramebufferReadBuffer(fb gpu.FramebufferID, a gpu.Attachment) {
	d.mustFramebuffer(fb).ReadBuffer = a
}

// FramebufferStatus applies the OpenGL framebuffer completeness rules,
// including the draw/read buffer rules that newer drivers no longer report.
func (d *Device) FramebufferStatus(fb gpu.FramebufferID) gpu.FramebufferStatus {
	if fb == gpu.DefaultFramebuffer {
		return gpu.StatusComplete
	}
	f := d.mustFramebuffer(fb)
	if len(f.Attachments) == 0 {
		return gpu.StatusMissingAttachment
	}
	width, height := -1, -1
	for a, t := range f.Attachments {
		tex, ok := d.Textures[t]
		if !ok || tex.Format == gpu.FormatNone || tex.Target != gpu.Texture2D {
			return gpu.StatusIncompleteAttachment
		}
		if a.IsColor() == tex.Format.IsDepth() {
			return gpu.StatusIncompleteAttachment
		}
		if width < 0 {
			width, height = tex.Width, tex.Height
		} else if tex.Width != width || tex.Height != height {
			return gpu.StatusIncompleteAttachment
		}
	}
	for _, a := range f.DrawBuffers {
		if a == gpu.NoAttachment {
			continue
		}
		if _, ok := f.Attachments[a]; !ok {
			return gpu.StatusIncompleteDrawBuffer
		}
	}
	if f.ReadBuffer != gpu.NoAttachment {
		if _, ok := f.Attachments[f.ReadBuffer]; !ok {
			return gpu.StatusIncompleteReadBuffer
		}
	}
	return gpu.StatusComplete
}

func (d *Device) BindFramebuffer(fb gpu.FramebufferID) {
	if fb != gpu.DefaultFramebuffer {
		d.mustFramebuffer(fb)
	}
	d.CurrentFramebuffer = fb
}

func (d *Device) DeleteFramebuffer(fb gpu.FramebufferID) {
	d.mustFramebuffer(fb)
	delete(d.Framebuffers, fb)
	if d.CurrentFramebuffer == fb {
		d.CurrentFramebuffer = gpu.DefaultFramebuffer
	}
	d.Deleted["framebuffer"]++
}

func (d *Device) mustFramebuffer(fb gpu.FramebufferID) *Framebuffer {
	f, ok := d.Framebuffers[fb]
	if !ok {
		panic(fmt.Sprintf("gputest: unknown framebuffer %d", fb))
	}
	return f
}

// ── Shaders ──────────────────────────────────────────────────────────────────

func (d *Device) CreateShader(stage gpu.ShaderStage) gpu.ShaderID {
	id := gpu.ShaderID(d.id())
	d.Shaders[id] = &Shader{Stage: stage}
	return id
}

// CompileShader fails for any source containing an #error directive.
func (d *Device) CompileShader(s gpu.ShaderID, source string) (string, bool) {
	sh := d.mustShader(s)
	sh.Source = source
	if i := strings.Index(source, "#error"); i >= 0 {
		line := 1 + strings.Count(source[:i], "\n")
		msg := strings.TrimSpace(strings.SplitN(source[i+len("#error"):], "\n", 2)[0])
		return fmt.Sprintf("0:%d(1): error: #error %s", line, msg), false
	}
	sh.Compiled = true
	return "", true
}

func (d *Device) DeleteShader(s gpu.ShaderID) {
	d.mustShader(s)
	delete(d.Shaders, s)
	d.Deleted["shader"]++
}

func (d *Device) mustShader(s gpu.ShaderID) *Shader {
	sh, ok := d.Shaders[s]
	if !ok {
		panic(fmt.Sprintf("gputest: unknown shader %d", s))
	}
	return sh
}

func (d *Device) CreateProgram() gpu.ProgramID {
	id := gpu.ProgramID(d.id())
	d.Programs[id] = &Program{}
	return id
}

func (d *Device) AttachShader(p gpu.ProgramID, s gpu.ShaderID) {
	prog := d.mustProgram(p)
	d.mustShader(s)
	prog.Shaders = append(prog.Shaders, s)
}

// LinkProgram succeeds when at least one stage is attached and every
// attached stage compiled. Uniforms are collected from the stage sources.
func (d *Device) LinkProgram(p gpu.ProgramID) (string, bool) {
	prog := d.mustProgram(p)
	if len(prog.Shaders) == 0 {
		return "error: no shaders attached to the program", false
	}
	var names []string
	for _, s := range prog.Shaders {
		sh := d.mustShader(s)
		if !sh.Compiled {
			return fmt.Sprintf("error: linking with uncompiled %s shader", sh.Stage), false
		}
		names = append(names, parseUniforms(sh.Source)...)
	}
	sort.Strings(names)
	prog.Uniforms = make(map[string]int32)
	prog.names = make(map[int32]string)
	prog.Values = make(map[string]any)
	for _, n := range names {
		if _, ok := prog.Uniforms[n]; ok {
			continue
		}
		loc := int32(len(prog.Uniforms))
		prog.Uniforms[n] = loc
		prog.names[loc] = n
	}
	prog.Linked = true
	return "", true
}

func (d *Device) UseProgram(p gpu.ProgramID) {
	if p != 0 && !d.mustProgram(p).Linked {
		panic(fmt.Sprintf("gputest: using unlinked program %d", p))
	}
	if d.CurrentProgram != p {
		d.UseProgramCalls++
	}
	d.CurrentProgram = p
}

func (d *Device) UniformLocation(p gpu.ProgramID, name string) int32 {
	prog := d.mustProgram(p)
	if loc, ok := prog.Uniforms[name]; ok {
		return loc
	}
	d.MissingUniforms = append(d.MissingUniforms, fmt.Sprintf("%s.%s", programName(p, prog), name))
	return -1
}

func (d *Device) UniformInt(p gpu.ProgramID, loc int32, v int32) { d.setUniform(p, loc, v) }

func (d *Device) UniformFloat(p gpu.ProgramID, loc int32, v float32) { d.setUniform(p, loc, v) }

func (d *Device) UniformVec3(p gpu.ProgramID, loc int32, v mgl32.Vec3) { d.setUniform(p, loc, v) }

func (d *Device) UniformMat4(p gpu.ProgramID, loc int32, m mgl32.Mat4) { d.setUniform(p, loc, m) }

func (d *Device) setUniform(p gpu.ProgramID, loc int32, v any) {
	prog := d.mustProgram(p)
	if loc < 0 {
		return
	}
	name, ok := prog.names[loc]
	if !ok {
		panic(fmt.Sprintf("gputest: program %d has no uniform at location %d", p, loc))
	}
	prog.Values[name] = v
}

func (d *Device) DeleteProgram(p gpu.ProgramID) {
	d.mustProgram(p)
	delete(d.Programs, p)
	if d.CurrentProgram == p {
		d.CurrentProgram = 0
	}
	d.Deleted["program"]++
}

func (d *Device) mustProgram(p gpu.ProgramID) *Program {
	prog, ok := d.Programs[p]
	if !ok {
		panic(fmt.Sprintf("gputest: unknown program %d", p))
	}
	return prog
}

// ProgramByLabel finds a program by its debug label.
func (d *Device) ProgramByLabel(label string) (gpu.ProgramID, *Program) {
	for id, p := range d.Programs {
		if p.Label == label {
			return id, p
		}
	}
	return 0, nil
}

func programName(id gpu.ProgramID, p *Program) string {
	if p.Label != "" {
		return p.Label
	}
	return fmt.Sprintf("program%d", id)
}

var (
	structRe  = regexp.MustCompile(`(?s)struct\s+(\w+)\s*\{(.*?)\}\s*;`)
	fieldRe   = regexp.MustCompile(`(\w+)\s+(\w+)\s*;`)
	uniformRe = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+(\w+)\s+(\w+)\s*;`)
)

// parseUniforms lists the active uniform names of a GLSL source, expanding
// struct-typed uniforms one level deep ("sun.direction").
func parseUniforms(src string) []string {
	structs := make(map[string][]string)
	for _, m := range structRe.FindAllStringSubmatch(src, -1) {
		for _, f := range fieldRe.FindAllStringSubmatch(m[2], -1) {
			structs[m[1]] = append(structs[m[1]], f[2])
		}
	}
	var names []string
	for _, m := range uniformRe.FindAllStringSubmatch(src, -1) {
		typ, name := m[1], m[2]
		if fields, ok := structs[typ]; ok {
			for _, f := range fields {
				names = append(names, name+"."+f)
			}
			continue
		}
		names = append(names, name)
	}
	return names
}

// ── Geometry ─────────────────────────────────────────────────────────────────

func (d *Device) CreateBuffer(data []byte) gpu.BufferID {
	id := gpu.BufferID(d.id())
	d.Buffers[id] = append([]byte(nil), data...)
	return id
}

func (d *Device) DeleteBuffer(b gpu.BufferID) {
	if _, ok := d.Buffers[b]; !ok {
		panic(fmt.Sprintf("gputest: unknown buffer %d", b))
	}
	delete(d.Buffers, b)
	d.Deleted["buffer"]++
}

func (d *Device) CreateVertexArray(layout gpu.VertexLayout, vbo, ebo gpu.BufferID) gpu.VertexArrayID {
	if _, ok := d.Buffers[vbo]; !ok {
		panic(fmt.Sprintf("gputest: unknown vertex buffer %d", vbo))
	}
	if ebo != 0 {
		if _, ok := d.Buffers[ebo]; !ok {
			panic(fmt.Sprintf("gputest: unknown index buffer %d", ebo))
		}
	}
	id := gpu.VertexArrayID(d.id())
	d.VertexArrays[id] = &VertexArray{Layout: layout, VBO: vbo, EBO: ebo}
	return id
}

func (d *Device) DeleteVertexArray(va gpu.VertexArrayID) {
	if _, ok := d.VertexArrays[va]; !ok {
		panic(fmt.Sprintf("gputest: unknown vertex array %d", va))
	}
	delete(d.VertexArrays, va)
	d.Deleted["vertexarray"]++
}

func (d *Device) DrawArrays(va gpu.VertexArrayID, mode gpu.Primitive, first, count int) {
	d.record(va, mode, count, false)
}

func (d *Device) DrawElements(va gpu.VertexArrayID, mode gpu.Primitive, count int) {
	if d.VertexArrays[va] != nil && d.VertexArrays[va].EBO == 0 {
		panic("gputest: indexed draw without an index buffer")
	}
	d.record(va, mode, count, true)
}

func (d *Device) record(va gpu.VertexArrayID, mode gpu.Primitive, count int, indexed bool) {
	if _, ok := d.VertexArrays[va]; !ok {
		panic(fmt.Sprintf("gputest: draw with unknown vertex array %d", va))
	}
	if d.CurrentProgram == 0 {
		panic("gputest: draw without a program")
	}
	units := make(map[int]gpu.TextureID, len(d.Units))
	for u, t := range d.Units {
		units[u] = t
	}
	uniforms := make(map[string]any)
	for k, v := range d.Programs[d.CurrentProgram].Values {
		uniforms[k] = v
	}
	d.Draws = append(d.Draws, Draw{
		Group:       d.group(),
		Framebuffer: d.CurrentFramebuffer,
		Program:     d.CurrentProgram,
		VertexArray: va,
		Mode:        mode,
		Count:       count,
		Indexed:     indexed,
		Units:       units,
		Uniforms:    uniforms,
		DepthTest:   d.Caps[gpu.DepthTest],
		CullFace:    d.Caps[gpu.CullFace],
		Viewport:    d.ViewportRect,
	})
}

// DrawsIn returns the draws issued inside the named debug group.
func (d *Device) DrawsIn(group string) []Draw {
	var out []Draw
	for _, dr := range d.Draws {
		if dr.Group == group {
			out = append(out, dr)
		}
	}
	return out
}

// ── Fixed-function state ─────────────────────────────────────────────────────

func (d *Device) Viewport(x, y, width, height int) { d.ViewportRect = [4]int{x, y, width, height} }

func (d *Device) Enable(c gpu.Capability) { d.Caps[c] = true }

func (d *Device) Disable(c gpu.Capability) { d.Caps[c] = false }

func (d *Device) DepthFunc(f gpu.CompareFunc) { d.Depth = f }

func (d *Device) DepthMask(write bool) { d.DepthWrite = write }

func (d *Device) ClearColor(r, g, b, a float32) { d.ClearRGBA = [4]float32{r, g, b, a} }

func (d *Device) Clear(mask gpu.ClearMask) {
	d.Clears = append(d.Clears, Clear{
		Group:       d.group(),
		Framebuffer: d.CurrentFramebuffer,
		Mask:        mask,
		Color:       d.ClearRGBA,
	})
}

// ── Debugging ────────────────────────────────────────────────────────────────

func (d *Device) PushDebugGroup(name string) {
	d.groupStack = append(d.groupStack, name)
	d.Groups = append(d.Groups, name)
}

func (d *Device) PopDebugGroup() {
	if len(d.groupStack) == 0 {
		panic("gputest: debug group stack underflow")
	}
	d.groupStack = d.groupStack[:len(d.groupStack)-1]
}

// GroupDepth is the number of debug groups currently open.
func (d *Device) GroupDepth() int { return len(d.groupStack) }

func (d *Device) Label(kind gpu.ObjectKind, handle uint32, label string) {
	switch kind {
	case gpu.ObjectTexture:
		if t, ok := d.Textures[gpu.TextureID(handle)]; ok {
			t.Label = label
		}
	case gpu.ObjectFramebuffer:
		if f, ok := d.Framebuffers[gpu.FramebufferID(handle)]; ok {
			f.Label = label
		}
	case gpu.ObjectProgram:
		if p, ok := d.Programs[gpu.ProgramID(handle)]; ok {
			p.Label = label
		}
	}
}

// Live reports how many GPU objects have not been released.
func (d *Device) Live() int {
	return len(d.Textures) + len(d.Framebuffers) + len(d.Shaders) +
		len(d.Programs) + len(d.Buffers) + len(d.VertexArrays)
}
