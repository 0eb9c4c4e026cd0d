// Package host defines what the interpreter needs from the runtime it patches:
// type lookup, reflective member access, construction, arrays and dynamic
// proxies. Values cross this boundary in host-native form: bool, int8,
// uint16 (char), int16, int32, int64, float32, float64, string for
// java/lang/String, and opaque handles for everything else.
package host

import "fmt"

// Method identifies a method by its declaring type, name and descriptor.
type Method struct {
	Owner      string
	Name       string
	Descriptor string
	Static     bool
	Synthetic  bool
}

// Key returns name+descriptor.
func (m Method) Key() string { return m.Name + m.Descriptor }

func (m Method) String() string { return m.Owner + "->" + m.Name + m.Descriptor }

// Type is the metadata of a loaded host class.
type Type interface {
	Name() string
	SuperName() string
	Interfaces() []string
	// DeclaredMethods lists methods and constructors declared by the type
	// itself. Static initializers are not included.
	DeclaredMethods() []Method
}

// TypeResolver maps internal names to loaded types.
type TypeResolver interface {
	ResolveType(name string) (Type, error)
}

// InvocationHandler receives every call made on a proxy created by
// Host.CreateProxy. Calls to methods declared by java/lang/Object arrive
// with Owner "java/lang/Object".
type InvocationHandler interface {
	Invoke(proxy any, m Method, args []any) (any, error)
}

// Host is the introspection facility of the running process.
type Host interface {
	TypeResolver

	GetField(obj any, owner, name, desc string) (any, error)
	SetField(obj any, owner, name, desc string, value any) error
	GetStatic(owner, name, desc string) (any, error)
	SetStatic(owner, name, desc string, value any) error

	// InvokeVirtual dispatches on the receiver's runtime class, starting the
	// lookup there and walking up the superclass chain.
	InvokeVirtual(recv any, owner, name, desc string, args []any) (any, error)
	// InvokeSpecial calls exactly owner's implementation (super calls,
	// private methods).
	InvokeSpecial(recv any, owner, name, desc string, args []any) (any, error)
	InvokeStatic(owner, name, desc string, args []any) (any, error)
	// HasMethod reports whether owner or one of its superclasses declares the
	// method.
	HasMethod(owner, name, desc string) bool

	// NewInstance allocates owner and runs the <init> with the given descriptor.
	NewInstance(owner, desc string, args []any) (any, error)
	// NewArray allocates an array of the given array descriptor, with one
	// length per leading dimension.
	NewArray(desc string, dims []int32) (any, error)
	ArrayGet(arr any, index int32) (any, error)
	ArraySet(arr any, index int32, value any) error
	ArrayLength(arr any) (int32, error)

	// IsInstance tests obj against an internal class name or array descriptor.
	IsInstance(obj any, typeName string) (bool, error)
	// ClassName returns the runtime class of obj.
	ClassName(obj any) (string, error)
	// ClassLiteral returns the java/lang/Class handle for typeName.
	ClassLiteral(typeName string) (any, error)

	CreateProxy(interfaces []Type, h InvocationHandler) (any, error)
	// ProxyHandler returns the handler of a proxy created by CreateProxy.
	ProxyHandler(obj any) (InvocationHandler, bool)

	MonitorEnter(obj any) error
	MonitorExit(obj any) error

	// APILevel reports the platform API level, used to pick backports.
	APILevel() int
}

// Exception is a guest exception raised by host code. Value is the
// java/lang/Throwable instance.
type Exception struct {
	ClassName string
	Message   string
	Value     any
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exception %s", e.ClassName)
	}
	return fmt.Sprintf("exception %s: %s", e.ClassName, e.Message)
}

// ObjectMethods lists the java/lang/Object methods a proxy handler answers
// itself.
var ObjectMethods = map[string]bool{
	"hashCode()I":                   true,
	"equals(Ljava/lang/Object;)Z":   true,
	"toString()Ljava/lang/String;": true,
}
