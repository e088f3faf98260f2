package opengl

import (
	"strings"

	gl "github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/internal/gpu"
)

func (d *Device) CreateShader(stage gpu.ShaderStage) gpu.ShaderID {
	if stage == gpu.FragmentStage {
		return gpu.ShaderID(gl.CreateShader(gl.FRAGMENT_SHADER))
	}
	return gpu.ShaderID(gl.CreateShader(gl.VERTEX_SHADER))
}

func (d *Device) CompileShader(s gpu.ShaderID, source string) (string, bool) {
	shader := uint32(s)
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status != gl.FALSE {
		return "", true
	}
	var logLen int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
	log := strings.Repeat("\x00", int(logLen+1))
	gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00"), false
}

func (d *Device) DeleteShader(s gpu.ShaderID) { gl.DeleteShader(uint32(s)) }

func (d *Device) CreateProgram() gpu.ProgramID { return gpu.ProgramID(gl.CreateProgram()) }

func (d *Device) AttachShader(p gpu.ProgramID, s gpu.ShaderID) {
	gl.AttachShader(uint32(p), uint32(s))
}

// LinkProgram links p. Attached shaders stay attached; deleting them after
// a link only flags them until the program goes away.
func (d *Device) LinkProgram(p gpu.ProgramID) (string, bool) {
	prog := uint32(p)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status != gl.FALSE {
		return "", true
	}
	var logLen int32
	gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
	log := strings.Repeat("\x00", int(logLen+1))
	gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00"), false
}

func (d *Device) UseProgram(p gpu.ProgramID) {
	if d.program == p {
		return
	}
	gl.UseProgram(uint32(p))
	d.program = p
}

func (d *Device) UniformLocation(p gpu.ProgramID, name string) int32 {
	return gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
}

// Uniform writes go through glProgramUniform* so they never depend on the
// current program.

func (d *Device) UniformInt(p gpu.ProgramID, location int32, v int32) {
	gl.ProgramUniform1i(uint32(p), location, v)
}

func (d *Device) UniformFloat(p gpu.ProgramID, location int32, v float32) {
	gl.ProgramUniform1f(uint32(p), location, v)
}

func (d *Device) UniformVec3(p gpu.ProgramID, location int32, v mgl32.Vec3) {
	gl.ProgramUniform3fv(uint32(p), location, 1, &v[0])
}

func (d *Device) UniformMat4(p gpu.ProgramID, location int32, m mgl32.Mat4) {
	gl.ProgramUniformMatrix4fv(uint32(p), location, 1, false, mat4Ptr(&m))
}

func (d *Device) DeleteProgram(p gpu.ProgramID) {
	if d.program == p {
		gl.UseProgram(0)
		d.program = 0
	}
	gl.DeleteProgram(uint32(p))
}
