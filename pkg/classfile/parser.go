package classfile

import (
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// ParseFile reads and parses the .class file at path.
func ParseFile(path string) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// Parse reads a whole class file from r.
func Parse(r io.Reader) (*ClassFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseBytes parses an in-memory class file. The layout is JVMS §4.1:
// header, constant pool, class info, fields, methods, attributes.
func ParseBytes(data []byte) (*ClassFile, error) {
	r := newReader(data)
	if magic := r.u4("magic"); r.err == nil && magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}
	cf := &ClassFile{
		MinorVersion: r.u2("minor version"),
		MajorVersion: r.u2("major version"),
	}
	if r.err != nil {
		return nil, r.err
	}

	pool, err := parseConstantPool(r, r.u2("constant pool count"))
	if err != nil {
		return nil, fmt.Errorf("constant pool: %w", err)
	}
	cf.ConstantPool = pool

	cf.AccessFlags = r.u2("access flags")
	cf.ThisClass = r.u2("this_class")
	cf.SuperClass = r.u2("super_class")
	cf.Interfaces = r.u2s("interfaces")
	if r.err != nil {
		return nil, r.err
	}

	members, err := readMembers(r, pool, "field")
	if err != nil {
		return nil, err
	}
	cf.Fields = make([]FieldInfo, len(members))
	for i, mb := range members {
		cf.Fields[i] = FieldInfo(mb)
	}

	if members, err = readMembers(r, pool, "method"); err != nil {
		return nil, err
	}
	cf.Methods = make([]MethodInfo, len(members))
	for i, mb := range members {
		m := MethodInfo{AccessFlags: mb.AccessFlags, Name: mb.Name, Descriptor: mb.Descriptor, Attributes: mb.Attributes}
		if a, ok := findAttribute(mb.Attributes, "Code"); ok {
			if m.Code, err = parseCode(a.Data, pool); err != nil {
				return nil, fmt.Errorf("method %s%s: Code: %w", mb.Name, mb.Descriptor, err)
			}
		}
		cf.Methods[i] = m
	}

	attrs, err := readAttributes(r, pool, "class")
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		decode, ok := classAttributes[a.Name]
		if !ok {
			continue
		}
		if err := decode(cf, newReader(a.Data)); err != nil {
			return nil, fmt.Errorf("%s: %w", a.Name, err)
		}
	}
	return cf, nil
}

// member is the layout fields and methods share.
type member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
}

func readMembers(r *reader, pool []ConstantPoolEntry, kind string) ([]member, error) {
	n := int(r.u2(kind + " count"))
	if r.err != nil {
		return nil, r.err
	}
	out := make([]member, 0, min(n, r.rest()/8))
	for i := 0; i < n; i++ {
		flags := r.u2(kind + " access flags")
		nameIdx := r.u2(kind + " name index")
		descIdx := r.u2(kind + " descriptor index")
		if r.err != nil {
			return nil, fmt.Errorf("%s %d: %w", kind, i, r.err)
		}
		name, err := GetUtf8(pool, nameIdx)
		if err != nil {
			return nil, fmt.Errorf("%s %d name: %w", kind, i, err)
		}
		desc, err := GetUtf8(pool, descIdx)
		if err != nil {
			return nil, fmt.Errorf("%s %s descriptor: %w", kind, name, err)
		}
		attrs, err := readAttributes(r, pool, kind+" "+name)
		if err != nil {
			return nil, err
		}
		out = append(out, member{AccessFlags: flags, Name: name, Descriptor: desc, Attributes: attrs})
	}
	return out, nil
}

// readAttributes reads an attribute table. Attributes of the class itself
// may have unresolvable names, which are dropped; anywhere else that is an
// error.
func readAttributes(r *reader, pool []ConstantPoolEntry, owner string) ([]AttributeInfo, error) {
	n := int(r.u2(owner + " attribute count"))
	var attrs []AttributeInfo
	for i := 0; i < n; i++ {
		nameIdx := r.u2(owner + " attribute name")
		data := r.bytes(int(r.u4(owner+" attribute length")), owner+" attribute data")
		if r.err != nil {
			return nil, r.err
		}
		name, err := GetUtf8(pool, nameIdx)
		if err != nil {
			if owner == "class" {
				continue
			}
			return nil, fmt.Errorf("%s attribute %d: %w", owner, i, err)
		}
		attrs = append(attrs, AttributeInfo{Name: name, Data: data})
	}
	if r.err != nil {
		return nil, r.err
	}
	return attrs, nil
}

func findAttribute(attrs []AttributeInfo, name string) (AttributeInfo, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeInfo{}, false
}

// parseCode decodes a Code attribute. Of its nested attributes only
// LineNumberTable is kept.
func parseCode(data []byte, pool []ConstantPoolEntry) (*CodeAttribute, error) {
	r := newReader(data)
	code := &CodeAttribute{
		MaxStack:  r.u2("max_stack"),
		MaxLocals: r.u2("max_locals"),
	}
	code.Code = r.bytes(int(r.u4("code_length")), "code")

	n := int(r.u2("exception table length"))
	if r.err == nil && r.rest() < 8*n {
		return nil, fmt.Errorf("exception table of %d entries in %d bytes", n, r.rest())
	}
	code.ExceptionHandlers = make([]ExceptionHandler, n)
	for i := range code.ExceptionHandlers {
		code.ExceptionHandlers[i] = ExceptionHandler{
			StartPC:   r.u2("handler start"),
			EndPC:     r.u2("handler end"),
			HandlerPC: r.u2("handler pc"),
			CatchType: r.u2("catch type"),
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.rest() == 0 {
		return code, nil
	}

	attrs, err := readAttributes(r, pool, "Code")
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		if a.Name != "LineNumberTable" {
			continue
		}
		lr := newReader(a.Data)
		pairs := lr.u2s("LineNumberTable")
		if lr.err != nil {
			return nil, lr.err
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			code.LineNumbers = append(code.LineNumbers, LineNumber{StartPC: pairs[i], Line: pairs[i+1]})
		}
	}
	return code, nil
}

// classAttributes decodes the class-level attributes that are kept.
var classAttributes = map[string]func(cf *ClassFile, r *reader) error{
	"SourceFile": func(cf *ClassFile, r *reader) error {
		idx := r.u2("sourcefile index")
		if r.err != nil || r.rest() != 0 {
			return fmt.Errorf("attribute has length %d, want 2", len(r.data))
		}
		var err error
		cf.SourceFile, err = GetUtf8(cf.ConstantPool, idx)
		return err
	},
	"BootstrapMethods": func(cf *ClassFile, r *reader) error {
		n := int(r.u2("bootstrap method count"))
		methods := make([]BootstrapMethod, 0, min(n, r.rest()/4))
		for i := 0; i < n && r.err == nil; i++ {
			ref := r.u2("bootstrap method ref")
			args := r.u2s("bootstrap arguments")
			methods = append(methods, BootstrapMethod{MethodRef: ref, BootstrapArguments: args})
		}
		if r.err != nil {
			return r.err
		}
		cf.BootstrapMethods = methods
		return nil
	},
}
