package opengl

import (
	"unsafe"

	gl "github.com/go-gl/gl/v4.6-core/gl"

	"deferred-renderer/internal/gldebug"
	"deferred-renderer/internal/logx"
)

// EnableDebugOutput routes driver debug messages to the package logger.
// Notifications are switched off at the driver; the rest arrive
// asynchronously and are filtered by gldebug.
func (d *Device) EnableDebugOutput() {
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.DebugMessageControl(gl.DONT_CARE, gl.DONT_CARE, gl.DEBUG_SEVERITY_NOTIFICATION, 0, nil, false)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, _ int32, message string, _ unsafe.Pointer) {
		gldebug.Handle(logx.Logger(), gldebug.Message{
			Source:   source,
			Type:     gltype,
			ID:       id,
			Severity: severity,
			Text:     message,
		})
	}, nil)
}
