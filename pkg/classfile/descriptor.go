package classfile

import (
	"fmt"
	"strings"
)

// MethodType is a parsed method descriptor.
type MethodType struct {
	Params []string
	Return string
}

// ParseMethodDescriptor splits "(IJLjava/lang/String;)V" into its parameter
// and return field descriptors.
func ParseMethodDescriptor(descriptor string) (MethodType, error) {
	if !strings.HasPrefix(descriptor, "(") {
		return MethodType{}, fmt.Errorf("invalid method descriptor: %s", descriptor)
	}
	end := strings.IndexByte(descriptor, ')')
	if end == -1 {
		return MethodType{}, fmt.Errorf("invalid method descriptor: %s", descriptor)
	}

	var mt MethodType
	params := descriptor[1:end]
	for i := 0; i < len(params); {
		n, err := fieldDescriptorLen(params[i:])
		if err != nil {
			return MethodType{}, fmt.Errorf("%s: %w", descriptor, err)
		}
		mt.Params = append(mt.Params, params[i:i+n])
		i += n
	}

	ret := descriptor[end+1:]
	if ret != "V" {
		n, err := fieldDescriptorLen(ret)
		if err != nil || n != len(ret) {
			return MethodType{}, fmt.Errorf("invalid return type in method descriptor: %s", descriptor)
		}
	}
	mt.Return = ret
	return mt, nil
}

// fieldDescriptorLen returns the length of the field descriptor at the start of s.
func fieldDescriptorLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i == len(s) {
		return 0, fmt.Errorf("truncated type descriptor %q", s)
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		semi := strings.IndexByte(s[i:], ';')
		if semi == -1 {
			return 0, fmt.Errorf("unterminated class type in %q", s)
		}
		return i + semi + 1, nil
	default:
		return 0, fmt.Errorf("invalid type descriptor char '%c' in %q", s[i], s)
	}
}

// ArgSlots returns the number of local variable slots the parameters occupy.
func (mt MethodType) ArgSlots() int {
	n := 0
	for _, p := range mt.Params {
		n += SlotSize(p)
	}
	return n
}

// SlotSize returns 2 for long and double, 1 otherwise.
func SlotSize(desc string) int {
	if desc == "J" || desc == "D" {
		return 2
	}
	return 1
}

// IsReference reports whether desc names a class or array type.
func IsReference(desc string) bool {
	return strings.HasPrefix(desc, "L") || strings.HasPrefix(desc, "[")
}

// TypeName converts a field descriptor to the name used by CONSTANT_Class:
// "Ljava/lang/String;" becomes "java/lang/String", arrays stay descriptors.
func TypeName(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}

// TypeDescriptor is the inverse of TypeName.
func TypeDescriptor(name string) string {
	if strings.HasPrefix(name, "[") {
		return name
	}
	switch name {
	case "B", "C", "D", "F", "I", "J", "S", "Z", "V":
		return name
	}
	return "L" + name + ";"
}

// InternalName normalizes a dotted binary name to the slash-separated form.
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// ZeroValue returns the host-native default of a field of the given
// descriptor: false, a typed numeric zero, or nil for references.
func ZeroValue(desc string) any {
	switch desc {
	case "Z":
		return false
	case "B":
		return int8(0)
	case "C":
		return uint16(0)
	case "S":
		return int16(0)
	case "I":
		return int32(0)
	case "J":
		return int64(0)
	case "F":
		return float32(0)
	case "D":
		return float64(0)
	}
	return nil
}
