package interp

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value represents a value on the operand stack or in local variables.
// boolean, byte, char and short live in Int. Ref holds the host handle of
// objects and arrays; a nil Ref is null. Desc is the static type descriptor
// of a reference, when known.
type Value struct {
	Kind   Kind
	Int    int32
	Long   int64
	Float  float32
	Double float64
	Ref    any
	Desc   string
}

// Void is the result of a void method.
var Void = Value{}

// IntValue creates an integer Value.
func IntValue(v int32) Value {
	return Value{Kind: KindInt, Int: v}
}

// BoolValue creates an int 0 or 1.
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// LongValue creates a long Value.
func LongValue(v int64) Value {
	return Value{Kind: KindLong, Long: v}
}

// FloatValue creates a float Value.
func FloatValue(v float32) Value {
	return Value{Kind: KindFloat, Float: v}
}

// DoubleValue creates a double Value.
func DoubleValue(v float64) Value {
	return Value{Kind: KindDouble, Double: v}
}

// RefValue creates a reference Value. Descriptors starting with '[' make an
// array reference.
func RefValue(ref any, desc string) Value {
	if strings.HasPrefix(desc, "[") {
		return Value{Kind: KindArray, Ref: ref, Desc: desc}
	}
	return Value{Kind: KindObject, Ref: ref, Desc: desc}
}

// NullValue creates a null reference Value.
func NullValue() Value {
	return Value{Kind: KindObject}
}

// IsNull reports whether v is a null reference.
func (v Value) IsNull() bool {
	return (v.Kind == KindObject || v.Kind == KindArray) && v.Ref == nil
}

// IsRef reports whether v is an object or array reference.
func (v Value) IsRef() bool { return v.Kind == KindObject || v.Kind == KindArray }

// Wide reports whether v is a category 2 value (long or double).
func (v Value) Wide() bool { return v.Kind == KindLong || v.Kind == KindDouble }

func (v Value) String() string {
	switch v.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("int(%d)", v.Int)
	case KindLong:
		return fmt.Sprintf("long(%d)", v.Long)
	case KindFloat:
		return fmt.Sprintf("float(%g)", v.Float)
	case KindDouble:
		return fmt.Sprintf("double(%g)", v.Double)
	}
	if v.Ref == nil {
		return "null"
	}
	if s, ok := v.Ref.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%s(%v)", v.Kind, v.Desc)
}

// FromHost converts a host-native value to a Value of the given field
// descriptor. Primitive descriptors accept any Go bool or numeric type, so
// boxed arguments unbox here; byte, char, short and boolean narrow into Int.
func FromHost(x any, desc string) (Value, error) {
	if b, ok := x.(Boxed); ok && !isRefDesc(desc) {
		x = b.Unbox()
	}
	switch desc {
	case "V":
		return Void, nil
	case "Z", "B", "C", "S", "I":
		n, ok := hostInt(x)
		if !ok {
			return Value{}, fmt.Errorf("cannot convert %T to %s", x, desc)
		}
		return IntValue(narrowInt(int32(n), desc)), nil
	case "J":
		n, ok := hostInt(x)
		if !ok {
			return Value{}, fmt.Errorf("cannot convert %T to long", x)
		}
		return LongValue(n), nil
	case "F":
		f, ok := hostFloat(x)
		if !ok {
			return Value{}, fmt.Errorf("cannot convert %T to float", x)
		}
		return FloatValue(float32(f)), nil
	case "D":
		f, ok := hostFloat(x)
		if !ok {
			return Value{}, fmt.Errorf("cannot convert %T to double", x)
		}
		return DoubleValue(f), nil
	}
	if v, ok := x.(Value); ok {
		return v, nil
	}
	return RefValue(x, desc), nil
}

// ToHost converts v to the host-native form of the given field descriptor,
// narrowing ints to the declared primitive type.
func (v Value) ToHost(desc string) any {
	switch desc {
	case "V":
		return nil
	case "Z":
		return v.asInt() != 0
	case "B":
		return int8(v.asInt())
	case "C":
		return uint16(v.asInt())
	case "S":
		return int16(v.asInt())
	case "I":
		return v.asInt()
	case "J":
		return v.asLong()
	case "F":
		return v.asFloat()
	case "D":
		return v.asDouble()
	}
	return v.Ref
}

func (v Value) asInt() int32 {
	switch v.Kind {
	case KindLong:
		return int32(v.Long)
	case KindFloat:
		return f2i(float64(v.Float))
	case KindDouble:
		return f2i(v.Double)
	}
	return v.Int
}

func (v Value) asLong() int64 {
	switch v.Kind {
	case KindInt:
		return int64(v.Int)
	case KindFloat:
		return f2l(float64(v.Float))
	case KindDouble:
		return f2l(v.Double)
	}
	return v.Long
}

func (v Value) asFloat() float32 {
	switch v.Kind {
	case KindInt:
		return float32(v.Int)
	case KindLong:
		return float32(v.Long)
	case KindDouble:
		return float32(v.Double)
	}
	return v.Float
}

func (v Value) asDouble() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindLong:
		return float64(v.Long)
	case KindFloat:
		return float64(v.Float)
	}
	return v.Double
}

func isRefDesc(desc string) bool {
	return strings.HasPrefix(desc, "L") || strings.HasPrefix(desc, "[")
}

func narrowInt(n int32, desc string) int32 {
	switch desc {
	case "Z":
		if n != 0 {
			return 1
		}
		return 0
	case "B":
		return int32(int8(n))
	case "C":
		return int32(uint16(n))
	case "S":
		return int32(int16(n))
	}
	return n
}

func hostInt(x any) (int64, bool) {
	switch n := x.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case Value:
		return n.asLong(), n.Kind != KindVoid && !n.IsRef()
	}
	return 0, false
}

func hostFloat(x any) (float64, bool) {
	switch f := x.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	case Value:
		return f.asDouble(), f.Kind != KindVoid && !f.IsRef()
	}
	if n, ok := hostInt(x); ok {
		return float64(n), true
	}
	return 0, false
}

// f2i converts with JVM saturation: NaN becomes 0, out-of-range values clamp.
func f2i(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func f2l(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// Uninitialized is the Ref of an object between its new instruction and the
// invokespecial of its <init>, where Evaluator.NewInstance builds the real one.
type Uninitialized struct {
	Class string
}

// Boxed is implemented by host handles that wrap a primitive, such as
// java/lang/Integer. FromHost unboxes them for primitive descriptors.
type Boxed interface {
	Unbox() any
}

// Coerce adapts v to a declared field descriptor: references to boxed
// values unbox, ints narrow to byte, char, short or boolean, and references
// pick up desc when they carry no type.
func Coerce(v Value, desc string) (Value, error) {
	if len(desc) == 0 {
		return v, nil
	}
	switch desc[0] {
	case 'L', '[':
		if v.IsRef() && v.Desc == "" {
			v = RefValue(v.Ref, desc)
		}
		return v, nil
	}
	if v.IsRef() {
		if v.Ref == nil {
			return Value{}, fmt.Errorf("cannot unbox null to %s", desc)
		}
		return FromHost(v.Ref, desc)
	}
	return FromHost(v, desc)
}

// ZeroOf returns the default Value of a field descriptor.
func ZeroOf(desc string) Value {
	switch desc {
	case "Z", "B", "C", "S", "I":
		return IntValue(0)
	case "J":
		return LongValue(0)
	case "F":
		return FloatValue(0)
	case "D":
		return DoubleValue(0)
	case "V":
		return Void
	}
	return RefValue(nil, desc)
}
