package interp

// Evaluator performs every operation of a method body that touches state
// outside its own frame. Owners are internal class names; descriptors are
// field or method descriptors as they appear in the constant pool.
//
// Implementations are chained: a decorator embeds the next Evaluator and
// overrides only the operations it intercepts.
type Evaluator interface {
	GetField(obj Value, owner, name, desc string) (Value, error)
	SetField(obj Value, owner, name, desc string, v Value) error
	GetStaticField(owner, name, desc string) (Value, error)
	SetStaticField(owner, name, desc string, v Value) error

	// GetArrayElement and SetArrayElement receive the element descriptor
	// implied by the instruction ("I" for iaload, "B" for both byte and
	// boolean arrays, the component type for aaload when known).
	GetArrayElement(arr Value, index int32, elemDesc string) (Value, error)
	SetArrayElement(arr Value, index int32, elemDesc string, v Value) error
	GetArrayLength(arr Value) (int32, error)

	InvokeVirtual(recv Value, owner, name, desc string, args []Value) (Value, error)
	InvokeStatic(owner, name, desc string, args []Value) (Value, error)
	InvokeSpecial(recv Value, owner, name, desc string, args []Value) (Value, error)
	InvokeInterface(recv Value, owner, name, desc string, args []Value) (Value, error)

	// IsInstanceOf tests a non-null reference against an internal class name
	// or an array descriptor.
	IsInstanceOf(v Value, typeName string) (bool, error)
	// LoadClass returns the java/lang/Class object for a class literal.
	LoadClass(typeName string) (Value, error)
	LoadString(s string) (Value, error)

	// NewInstance allocates owner and runs its constructor with the given
	// descriptor. It completes the new/invokespecial <init> pair.
	NewInstance(owner, desc string, args []Value) (Value, error)
	NewArray(desc string, length int32) (Value, error)
	NewMultiDimensionalArray(desc string, dims []int32) (Value, error)

	MonitorEnter(v Value) error
	MonitorExit(v Value) error
}
