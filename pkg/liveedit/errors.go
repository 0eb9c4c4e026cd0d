package liveedit

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchMethod is returned when a patch does not define the method a
	// dispatch key or invocation names.
	ErrNoSuchMethod = errors.New("no such method in patch")
	// ErrNoSuchField is returned for static or proxy fields a patch does not
	// declare.
	ErrNoSuchField = errors.New("no such field in patch")
)

// NotAProxyError is returned by InstantiateProxy for a class registered
// without the proxy flag.
type NotAProxyError struct {
	Class string
}

func (e *NotAProxyError) Error() string {
	return fmt.Sprintf("%s was not registered as a proxy class", e.Class)
}

// NotRegisteredError is returned for dispatch keys whose owner has no patch.
type NotRegisteredError struct {
	Class string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no patch registered for %s", e.Class)
}
