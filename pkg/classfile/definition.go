package classfile

import (
	"fmt"
)

// MalformedClassError reports class bytes that could not be parsed into a
// Definition.
type MalformedClassError struct {
	Err error
}

func (e *MalformedClassError) Error() string {
	return fmt.Sprintf("malformed class: %v", e.Err)
}

func (e *MalformedClassError) Unwrap() error { return e.Err }

// MethodBody is one method of a Definition together with its code.
// Abstract and native methods have nil Code.
type MethodBody struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
	Type        MethodType
	Code        []byte
	Handlers    []ExceptionHandler
	Lines       []LineNumber
	MaxLocals   uint16
	MaxStack    uint16
}

// Key returns name+descriptor.
func (m *MethodBody) Key() string { return m.Name + m.Descriptor }

// IsStatic reports whether ACC_STATIC is set.
func (m *MethodBody) IsStatic() bool { return m.AccessFlags&AccStatic != 0 }

// FirstLine returns the source line of the lowest bytecode offset in the
// LineNumberTable, or 0 when the method has none.
func (m *MethodBody) FirstLine() int {
	if len(m.Lines) == 0 {
		return 0
	}
	first := m.Lines[0]
	for _, ln := range m.Lines[1:] {
		if ln.StartPC < first.StartPC {
			first = ln
		}
	}
	return int(first.Line)
}

// LineAt returns the source line covering pc, or 0.
func (m *MethodBody) LineAt(pc int) int {
	line, best := 0, -1
	for _, ln := range m.Lines {
		if int(ln.StartPC) <= pc && int(ln.StartPC) > best {
			best, line = int(ln.StartPC), int(ln.Line)
		}
	}
	return line
}

// Field is a declared field.
type Field struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
}

// IsStatic reports whether ACC_STATIC is set.
func (f Field) IsStatic() bool { return f.AccessFlags&AccStatic != 0 }

// Definition is the immutable, structured form of one class that the
// interpreter runs against.
type Definition struct {
	Name        string
	SuperName   string
	Interfaces  []string
	SourceFile  string
	AccessFlags uint16
	Methods     []*MethodBody
	Fields      []Field
	// FieldDefaults maps every declared field to its type's zero (see ZeroValue).
	FieldDefaults map[string]any
	Pool          []ConstantPoolEntry

	methods map[string]*MethodBody
}

// Method looks a method up by name+descriptor.
func (d *Definition) Method(key string) (*MethodBody, bool) {
	m, ok := d.methods[key]
	return m, ok
}

// Field looks a declared field up by name.
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// StaticInitializer returns <clinit>, if present.
func (d *Definition) StaticInitializer() (*MethodBody, bool) {
	return d.Method("<clinit>()V")
}

// ParseDefinition parses raw class bytes. Any failure is a *MalformedClassError.
func ParseDefinition(data []byte) (*Definition, error) {
	cf, err := ParseBytes(data)
	if err != nil {
		return nil, &MalformedClassError{Err: err}
	}
	def, err := NewDefinition(cf)
	if err != nil {
		return nil, &MalformedClassError{Err: err}
	}
	return def, nil
}

// NewDefinition builds a Definition from an already parsed class file.
func NewDefinition(cf *ClassFile) (*Definition, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("resolving this_class: %w", err)
	}
	interfaces, err := cf.InterfaceNames()
	if err != nil {
		return nil, fmt.Errorf("resolving interfaces: %w", err)
	}

	def := &Definition{
		Name:          name,
		SuperName:     cf.SuperClassName(),
		Interfaces:    interfaces,
		SourceFile:    cf.SourceFile,
		AccessFlags:   cf.AccessFlags,
		FieldDefaults: make(map[string]any, len(cf.Fields)),
		Pool:          cf.ConstantPool,
		methods:       make(map[string]*MethodBody, len(cf.Methods)),
	}

	for _, f := range cf.Fields {
		if _, err := fieldDescriptorLen(f.Descriptor); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		def.Fields = append(def.Fields, Field{Name: f.Name, Descriptor: f.Descriptor, AccessFlags: f.AccessFlags})
		def.FieldDefaults[f.Name] = ZeroValue(f.Descriptor)
	}

	for i := range cf.Methods {
		mi := &cf.Methods[i]
		mt, err := ParseMethodDescriptor(mi.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", mi.Name, err)
		}
		body := &MethodBody{
			Name:        mi.Name,
			Descriptor:  mi.Descriptor,
			AccessFlags: mi.AccessFlags,
			Type:        mt,
		}
		if mi.Code != nil {
			body.Code = mi.Code.Code
			body.Handlers = mi.Code.ExceptionHandlers
			body.Lines = mi.Code.LineNumbers
			body.MaxLocals = mi.Code.MaxLocals
			body.MaxStack = mi.Code.MaxStack
		}
		if _, dup := def.methods[body.Key()]; dup {
			return nil, fmt.Errorf("duplicate method %s", body.Key())
		}
		def.Methods = append(def.Methods, body)
		def.methods[body.Key()] = body
	}
	return def, nil
}
