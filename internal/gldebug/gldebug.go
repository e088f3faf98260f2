// Package gldebug turns driver debug messages into log records.
//
// It is kept free of cgo so the filtering can be tested without a GL
// context; internal/opengl forwards each callback to Handle.
package gldebug

import (
	"log/slog"
	"strings"
)

// Enum values from the KHR_debug extension.
const (
	SourceAPI            = 0x8246
	SourceWindowSystem   = 0x8247
	SourceShaderCompiler = 0x8248
	SourceThirdParty     = 0x8249
	SourceApplication    = 0x824A
	SourceOther          = 0x824B

	TypeError              = 0x824C
	TypeDeprecatedBehavior = 0x824D
	TypeUndefinedBehavior  = 0x824E
	TypePortability        = 0x824F
	TypePerformance        = 0x8250
	TypeOther              = 0x8251
	TypeMarker             = 0x8268
	TypePushGroup          = 0x8269
	TypePopGroup           = 0x826A

	SeverityHigh         = 0x9146
	SeverityMedium       = 0x9147
	SeverityLow          = 0x9148
	SeverityNotification = 0x826B
)

// recompileSuffix marks the driver's shader-recompile chatter, emitted every
// time state changes force a variant rebuild.
const recompileSuffix = " is being recompiled based on GL state."

// Message is one driver debug message.
type Message struct {
	Source   uint32
	Type     uint32
	ID       uint32
	Severity uint32
	Text     string
}

// Dropped reports whether m is noise that never reaches the log.
func Dropped(m Message) bool {
	return strings.HasSuffix(m.Text, recompileSuffix)
}

// Handle logs m at info unless it is dropped. A nil logger discards.
func Handle(l *slog.Logger, m Message) {
	if l == nil || Dropped(m) {
		return
	}
	l.Info(m.Text,
		"source", SourceName(m.Source),
		"type", TypeName(m.Type),
		"severity", SeverityName(m.Severity),
		"id", m.ID)
}

func SourceName(v uint32) string {
	switch v {
	case SourceAPI:
		return "API"
	case SourceWindowSystem:
		return "WINDOW"
	case SourceShaderCompiler:
		return "SHADER"
	case SourceThirdParty:
		return "THIRD"
	case SourceApplication:
		return "APP"
	case SourceOther:
		return "OTHER"
	}
	return "UNKNOWN"
}

func TypeName(v uint32) string {
	switch v {
	case TypeError:
		return "ERROR"
	case TypeDeprecatedBehavior:
		return "DEPREC"
	case TypeUndefinedBehavior:
		return "UNDEF"
	case TypePortability:
		return "PORTAB"
	case TypePerformance:
		return "PERFOR"
	case TypeMarker:
		return "MARKER"
	case TypePushGroup:
		return "PUSH_G"
	case TypePopGroup:
		return "POP_G"
	case TypeOther:
		return "OTHER"
	}
	return "UNKNOWN"
}

func SeverityName(v uint32) string {
	switch v {
	case SeverityNotification:
		return "NOTI"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MED"
	case SeverityHigh:
		return "HIGH"
	}
	return "UNKNOWN"
}
