package interp

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOpcode is returned for jsr, ret and invokedynamic.
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	// ErrStackOverflow is returned when interpreted calls nest deeper than
	// the configured maximum.
	ErrStackOverflow = errors.New("interpreted call depth exceeded")
)

// DefaultMaxDepth bounds nested interpreted calls.
const DefaultMaxDepth = 1024

// Thrown is a guest exception in flight. Exception tables catch it; any
// other error is an internal fault and unwinds straight to the caller.
type Thrown struct {
	Value   Value
	Class   string
	Message string
}

func (t *Thrown) Error() string {
	class := t.Class
	if class == "" {
		class = "java/lang/Throwable"
	}
	if t.Message == "" {
		return class
	}
	return fmt.Sprintf("%s: %s", class, t.Message)
}

// InterpretationFault is any failure that escaped an interpreted method.
// Cause is a *Thrown for uncaught guest exceptions and the original error
// otherwise.
type InterpretationFault struct {
	Class  string
	Method string
	PC     int
	Line   int
	Cause  error
}

func (f *InterpretationFault) Error() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s.%s (pc=%d, line %d): %v", f.Class, f.Method, f.PC, f.Line, f.Cause)
	}
	return fmt.Sprintf("%s.%s (pc=%d): %v", f.Class, f.Method, f.PC, f.Cause)
}

func (f *InterpretationFault) Unwrap() error { return f.Cause }

// AsThrown extracts the guest exception carried by err, if any.
func AsThrown(err error) (*Thrown, bool) {
	var t *Thrown
	if errors.As(err, &t) {
		return t, true
	}
	return nil, false
}
