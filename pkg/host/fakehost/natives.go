package fakehost

import (
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/daimatz/liveedit/pkg/host"
)

// PrintStream is a java/io/PrintStream writing to its host's Stdout.
type PrintStream struct {
	host *Host
}

// Println prints a value followed by a newline.
func (ps *PrintStream) Println(args ...any) {
	if len(args) == 0 {
		fmt.Fprintln(ps.host.Stdout)
		return
	}
	fmt.Fprintln(ps.host.Stdout, ps.host.Stringify(args[0]))
}

// Stringify renders x the way String.valueOf would.
func (h *Host) Stringify(x any) string {
	switch v := x.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case uint16:
		return string(utf16.Decode([]uint16{v}))
	case int8, int16, int32, int64:
		return fmt.Sprint(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case *Integer:
		return strconv.Itoa(int(v.Value))
	case *StringBuilder:
		return v.String()
	case *ClassRef:
		return "class " + v.Name
	case *Proxy:
		m := host.Method{Owner: "java/lang/Object", Name: "toString", Descriptor: "()Ljava/lang/String;"}
		if s, err := v.Handler.Invoke(v, m, nil); err == nil {
			if str, ok := s.(string); ok {
				return str
			}
		}
	case *Object:
		if msg, ok := v.lookup("message"); ok && h.isSubtype(v.Class, "java/lang/Throwable") {
			return v.Class + ": " + h.Stringify(msg)
		}
	}
	class, err := h.ClassName(x)
	if err != nil {
		return fmt.Sprint(x)
	}
	return fmt.Sprintf("%s@%x", class, h.HashCode(x))
}

// HashCode returns what hashCode() answers for x.
func (h *Host) HashCode(x any) int32 {
	switch v := x.(type) {
	case nil:
		return 0
	case string:
		return StringHash(v)
	case *Integer:
		return v.Value
	}
	return h.IdentityHash(x)
}

// Equals returns what equals() answers for a and b.
func (h *Host) Equals(a, b any) bool {
	switch v := a.(type) {
	case nil:
		return b == nil
	case string:
		s, ok := b.(string)
		return ok && s == v
	case *Integer:
		i, ok := b.(*Integer)
		return ok && i.Value == v.Value
	}
	return a == b
}

// StringHash is java/lang/String.hashCode over the UTF-16 code units of s.
func StringHash(s string) int32 {
	var hash int32
	for _, c := range utf16.Encode([]rune(s)) {
		hash = 31*hash + int32(c)
	}
	return hash
}

func builtins() []*Class {
	classes := []*Class{
		objectClass(),
		stringClass(),
		stringBuilderClass(),
		integerClass(),
		{ClassName: "java/lang/Number", Abstract: true},
		{ClassName: "java/lang/Class"},
		{ClassName: "java/lang/Long", Super: "java/lang/Number", Methods: []*Method{
			{Name: "hashCode", Descriptor: "(J)I", Static: true, Since: 24, Impl: func(h *Host, _ any, args []any) (any, error) {
				v := args[0].(int64)
				return int32(v ^ int64(uint64(v)>>32)), nil
			}},
		}},
		{ClassName: "java/lang/Boolean", Methods: []*Method{
			{Name: "hashCode", Descriptor: "(Z)I", Static: true, Since: 24, Impl: func(h *Host, _ any, args []any) (any, error) {
				return booleanHash(args[0].(bool)), nil
			}},
		}},
		mathClass(),
		objectsClass(),
		{ClassName: "java/lang/System", Statics: map[string]any{}},
		printStreamClass(),
		{ClassName: "java/util/Map", Interface: true, Methods: []*Method{
			Abstract("get", "(Ljava/lang/Object;)Ljava/lang/Object;"),
			Abstract("put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;"),
			Abstract("size", "()I"),
		}},
		hashMapClass(),
		{ClassName: "java/lang/Runnable", Interface: true, Methods: []*Method{Abstract("run", "()V")}},
		backportsClass(),
	}
	return append(classes, throwables()...)
}

func objectClass() *Class {
	return &Class{ClassName: "java/lang/Object", Methods: []*Method{
		Constructor("()V", nil),
		Virtual("hashCode", "()I", func(h *Host, recv any, _ []any) (any, error) {
			return h.HashCode(recv), nil
		}),
		Virtual("equals", "(Ljava/lang/Object;)Z", func(h *Host, recv any, args []any) (any, error) {
			return h.Equals(recv, args[0]), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(h *Host, recv any, _ []any) (any, error) {
			return h.Stringify(recv), nil
		}),
		Virtual("getClass", "()Ljava/lang/Class;", func(h *Host, recv any, _ []any) (any, error) {
			name, err := h.ClassName(recv)
			if err != nil {
				return nil, err
			}
			return h.ClassLiteral(name)
		}),
	}}
}

func stringClass() *Class {
	return &Class{ClassName: "java/lang/String", Methods: []*Method{
		Virtual("length", "()I", func(h *Host, recv any, _ []any) (any, error) {
			return int32(len(utf16.Encode([]rune(recv.(string))))), nil
		}),
		Virtual("isEmpty", "()Z", func(h *Host, recv any, _ []any) (any, error) {
			return recv.(string) == "", nil
		}),
		Virtual("charAt", "(I)C", func(h *Host, recv any, args []any) (any, error) {
			units := utf16.Encode([]rune(recv.(string)))
			i := args[0].(int32)
			if i < 0 || int(i) >= len(units) {
				return nil, h.Throw("java/lang/StringIndexOutOfBoundsException", fmt.Sprintf("index %d, length %d", i, len(units)))
			}
			return units[i], nil
		}),
		Virtual("concat", "(Ljava/lang/String;)Ljava/lang/String;", func(h *Host, recv any, args []any) (any, error) {
			s, ok := args[0].(string)
			if !ok {
				return nil, h.Throw("java/lang/NullPointerException", "")
			}
			return recv.(string) + s, nil
		}),
		Static("valueOf", "(I)Ljava/lang/String;", func(h *Host, _ any, args []any) (any, error) {
			return h.Stringify(args[0]), nil
		}),
		Static("valueOf", "(Ljava/lang/Object;)Ljava/lang/String;", func(h *Host, _ any, args []any) (any, error) {
			return h.Stringify(args[0]), nil
		}),
	}}
}

func stringBuilderClass() *Class {
	self := func(h *Host, recv any, args []any) (any, error) {
		sb := recv.(*StringBuilder)
		sb.WriteString(h.Stringify(args[0]))
		return sb, nil
	}
	return &Class{ClassName: "java/lang/StringBuilder", Methods: []*Method{
		Constructor("()V", func(h *Host, _ any, _ []any) (any, error) {
			return &StringBuilder{}, nil
		}),
		Constructor("(Ljava/lang/String;)V", func(h *Host, _ any, args []any) (any, error) {
			sb := &StringBuilder{}
			sb.WriteString(h.Stringify(args[0]))
			return sb, nil
		}),
		Virtual("append", "(Ljava/lang/String;)Ljava/lang/StringBuilder;", self),
		Virtual("append", "(Ljava/lang/Object;)Ljava/lang/StringBuilder;", self),
		Virtual("append", "(I)Ljava/lang/StringBuilder;", self),
		Virtual("append", "(J)Ljava/lang/StringBuilder;", self),
		Virtual("append", "(C)Ljava/lang/StringBuilder;", self),
		Virtual("append", "(Z)Ljava/lang/StringBuilder;", self),
		Virtual("length", "()I", func(h *Host, recv any, _ []any) (any, error) {
			return int32(len(utf16.Encode([]rune(recv.(*StringBuilder).String())))), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(h *Host, recv any, _ []any) (any, error) {
			return recv.(*StringBuilder).String(), nil
		}),
	}}
}

func integerClass() *Class {
	return &Class{ClassName: "java/lang/Integer", Super: "java/lang/Number", Methods: []*Method{
		Static("valueOf", "(I)Ljava/lang/Integer;", func(h *Host, _ any, args []any) (any, error) {
			return &Integer{Value: args[0].(int32)}, nil
		}),
		Static("parseInt", "(Ljava/lang/String;)I", func(h *Host, _ any, args []any) (any, error) {
			s, _ := args[0].(string)
			n, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return nil, h.Throw("java/lang/NumberFormatException", fmt.Sprintf("For input string: %q", s))
			}
			return int32(n), nil
		}),
		{Name: "hashCode", Descriptor: "(I)I", Static: true, Since: 24, Impl: func(h *Host, _ any, args []any) (any, error) {
			return args[0].(int32), nil
		}},
		Virtual("intValue", "()I", func(h *Host, recv any, _ []any) (any, error) {
			return recv.(*Integer).Value, nil
		}),
	}, Statics: map[string]any{
		"MAX_VALUE": int32(2147483647),
		"MIN_VALUE": int32(-2147483648),
	}}
}

func printStreamClass() *Class {
	printLine := func(h *Host, recv any, args []any) (any, error) {
		recv.(*PrintStream).Println(args...)
		return nil, nil
	}
	return &Class{ClassName: "java/io/PrintStream", Methods: []*Method{
		Virtual("println", "()V", printLine),
		Virtual("println", "(Ljava/lang/String;)V", printLine),
		Virtual("println", "(Ljava/lang/Object;)V", printLine),
		Virtual("println", "(I)V", printLine),
		Virtual("println", "(J)V", printLine),
		Virtual("println", "(Z)V", printLine),
		Virtual("println", "(C)V", printLine),
		Virtual("println", "(D)V", printLine),
		Virtual("print", "(Ljava/lang/String;)V", func(h *Host, recv any, args []any) (any, error) {
			fmt.Fprint(h.Stdout, h.Stringify(args[0]))
			return nil, nil
		}),
	}}
}

func hashMapClass() *Class {
	return &Class{ClassName: "java/util/HashMap", Implements: []string{"java/util/Map"}, Methods: []*Method{
		Constructor("()V", func(h *Host, _ any, _ []any) (any, error) {
			return NewHashMap(), nil
		}),
		Virtual("get", "(Ljava/lang/Object;)Ljava/lang/Object;", func(h *Host, recv any, args []any) (any, error) {
			return recv.(*HashMap).Get(args[0]), nil
		}),
		Virtual("put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", func(h *Host, recv any, args []any) (any, error) {
			return recv.(*HashMap).Put(args[0], args[1]), nil
		}),
		Virtual("size", "()I", func(h *Host, recv any, _ []any) (any, error) {
			return int32(recv.(*HashMap).Len()), nil
		}),
	}}
}

func mathClass() *Class {
	return &Class{ClassName: "java/lang/Math", Methods: []*Method{
		Static("abs", "(I)I", func(h *Host, _ any, args []any) (any, error) {
			if v := args[0].(int32); v < 0 {
				return -v, nil
			}
			return args[0], nil
		}),
		Static("max", "(II)I", func(h *Host, _ any, args []any) (any, error) {
			return max(args[0].(int32), args[1].(int32)), nil
		}),
		Static("min", "(II)I", func(h *Host, _ any, args []any) (any, error) {
			return min(args[0].(int32), args[1].(int32)), nil
		}),
		{Name: "floorMod", Descriptor: "(II)I", Static: true, Since: 24, Impl: backportFloorModInt},
		{Name: "floorMod", Descriptor: "(JJ)J", Static: true, Since: 24, Impl: backportFloorModLong},
		{Name: "floorDiv", Descriptor: "(II)I", Static: true, Since: 24, Impl: backportFloorDivInt},
		{Name: "floorDiv", Descriptor: "(JJ)J", Static: true, Since: 24, Impl: backportFloorDivLong},
		{Name: "addExact", Descriptor: "(II)I", Static: true, Since: 24, Impl: backportAddExactInt},
		{Name: "addExact", Descriptor: "(JJ)J", Static: true, Since: 24, Impl: backportAddExactLong},
	}}
}

func objectsClass() *Class {
	return &Class{ClassName: "java/util/Objects", Methods: []*Method{
		{Name: "requireNonNull", Descriptor: "(Ljava/lang/Object;Ljava/lang/String;)Ljava/lang/Object;", Static: true, Since: 19, Impl: backportRequireNonNull},
		{Name: "equals", Descriptor: "(Ljava/lang/Object;Ljava/lang/Object;)Z", Static: true, Since: 19, Impl: backportEquals},
		{Name: "hashCode", Descriptor: "(Ljava/lang/Object;)I", Static: true, Since: 19, Impl: backportHashCode},
		{Name: "hash", Descriptor: "([Ljava/lang/Object;)I", Static: true, Since: 19, Impl: backportHash},
	}}
}

// throwables defines the exception hierarchy the interpreter and the fake
// host raise.
func throwables() []*Class {
	tree := []struct{ name, super string }{
		{"java/lang/Throwable", "java/lang/Object"},
		{"java/lang/Exception", "java/lang/Throwable"},
		{"java/lang/Error", "java/lang/Throwable"},
		{"java/lang/RuntimeException", "java/lang/Exception"},
		{"java/lang/ArithmeticException", "java/lang/RuntimeException"},
		{"java/lang/ClassCastException", "java/lang/RuntimeException"},
		{"java/lang/NullPointerException", "java/lang/RuntimeException"},
		{"java/lang/IllegalStateException", "java/lang/RuntimeException"},
		{"java/lang/IllegalArgumentException", "java/lang/RuntimeException"},
		{"java/lang/NumberFormatException", "java/lang/IllegalArgumentException"},
		{"java/lang/IllegalMonitorStateException", "java/lang/RuntimeException"},
		{"java/lang/UnsupportedOperationException", "java/lang/RuntimeException"},
		{"java/lang/NegativeArraySizeException", "java/lang/RuntimeException"},
		{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"},
		{"java/lang/ArrayIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
		{"java/lang/StringIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
		{"java/lang/LinkageError", "java/lang/Error"},
		{"java/lang/NoClassDefFoundError", "java/lang/LinkageError"},
		{"java/lang/IncompatibleClassChangeError", "java/lang/LinkageError"},
		{"java/lang/NoSuchFieldError", "java/lang/IncompatibleClassChangeError"},
		{"java/lang/NoSuchMethodError", "java/lang/IncompatibleClassChangeError"},
		{"java/lang/AbstractMethodError", "java/lang/IncompatibleClassChangeError"},
		{"java/lang/InstantiationError", "java/lang/IncompatibleClassChangeError"},
		{"java/lang/StackOverflowError", "java/lang/Error"},
	}
	out := make([]*Class, len(tree))
	for i, t := range tree {
		out[i] = &Class{ClassName: t.name, Super: t.super}
	}
	out[0].Methods = []*Method{
		Constructor("()V", nil),
		Constructor("(Ljava/lang/String;)V", func(h *Host, recv any, args []any) (any, error) {
			recv.(*Object).Set("message", args[0])
			return nil, nil
		}),
		Virtual("getMessage", "()Ljava/lang/String;", func(h *Host, recv any, _ []any) (any, error) {
			o, ok := recv.(*Object)
			if !ok {
				return nil, nil
			}
			return o.Get("message"), nil
		}),
	}
	for _, c := range out[1:] {
		c.Methods = []*Method{
			Constructor("()V", nil),
			Constructor("(Ljava/lang/String;)V", out[0].Methods[1].Impl),
		}
	}
	return out
}

func booleanHash(b bool) int32 {
	if b {
		return 1231
	}
	return 1237
}
