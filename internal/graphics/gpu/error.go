package gpu

import "fmt"

// Error reports a GL error raised by a call.
type Error struct {
	Op     string
	Code   uint32
	Caller string // file:line of the renderer code that issued the call
}

func (e *Error) Error() string {
	return fmt.Sprintf("OpenGL error %s in %s at %s", ErrorName(e.Code), e.Op, e.Caller)
}

// ErrorName returns the symbolic name of a glGetError code.
func ErrorName(code uint32) string {
	switch code {
	case 0x0500:
		return "INVALID_ENUM"
	case 0x0501:
		return "INVALID_VALUE"
	case 0x0502:
		return "INVALID_OPERATION"
	case 0x0505:
		return "OUT_OF_MEMORY"
	case 0x0506:
		return "INVALID_FRAMEBUFFER_OPERATION"
	}
	return fmt.Sprintf("0x%x", code)
}
