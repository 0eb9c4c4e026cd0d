// Package classfiletest assembles class files in memory so tests can feed
// exact bytecode to the parser and the interpreter.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/daimatz/liveedit/pkg/classfile"
)

// Builder accumulates a constant pool, fields and methods.
type Builder struct {
	pool       bytes.Buffer
	next       uint16
	index      map[string]uint16
	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     []member
	methods    []*Method
	sourceFile uint16
}

type member struct {
	access uint16
	name   uint16
	desc   uint16
}

// Method is a method under construction.
type Method struct {
	b         *Builder
	member    member
	code      []byte
	hasCode   bool
	maxStack  uint16
	maxLocals uint16
	handlers  []classfile.ExceptionHandler
	lines     []classfile.LineNumber
}

// New starts a public class. An empty super produces a class with no
// superclass, as java/lang/Object itself has.
func New(name, super string) *Builder {
	b := &Builder{next: 1, index: make(map[string]uint16), access: classfile.AccPublic | classfile.AccSuper}
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

// Access replaces the class access flags.
func (b *Builder) Access(flags uint16) *Builder {
	b.access = flags
	return b
}

// Implements appends interfaces.
func (b *Builder) Implements(names ...string) *Builder {
	for _, n := range names {
		b.interfaces = append(b.interfaces, b.Class(n))
	}
	return b
}

// SourceFile sets the SourceFile attribute.
func (b *Builder) SourceFile(name string) *Builder {
	b.sourceFile = b.Utf8(name)
	return b
}

// Field declares a field.
func (b *Builder) Field(access uint16, name, desc string) *Builder {
	b.fields = append(b.fields, member{access: access, name: b.Utf8(name), desc: b.Utf8(desc)})
	return b
}

// Method declares a method. Without a call to Code it is emitted with no
// Code attribute, as an abstract method would be.
func (b *Builder) Method(access uint16, name, desc string) *Method {
	m := &Method{b: b, member: member{access: access, name: b.Utf8(name), desc: b.Utf8(desc)}}
	b.methods = append(b.methods, m)
	return m
}

// Limits sets max_stack and max_locals.
func (m *Method) Limits(maxStack, maxLocals uint16) *Method {
	m.maxStack, m.maxLocals = maxStack, maxLocals
	return m
}

// Code sets the bytecode; see Code for the accepted part types.
func (m *Method) Code(parts ...any) *Method {
	m.code = Code(parts...)
	m.hasCode = true
	return m
}

// Handler adds an exception table entry; an empty catchType catches everything.
func (m *Method) Handler(start, end, handler uint16, catchType string) *Method {
	var ct uint16
	if catchType != "" {
		ct = m.b.Class(catchType)
	}
	m.handlers = append(m.handlers, classfile.ExceptionHandler{StartPC: start, EndPC: end, HandlerPC: handler, CatchType: ct})
	return m
}

// Line adds a LineNumberTable entry.
func (m *Method) Line(pc, line uint16) *Method {
	m.lines = append(m.lines, classfile.LineNumber{StartPC: pc, Line: line})
	return m
}

// Code flattens opcodes and operands into bytecode. byte, int and int8 emit
// one byte; uint16 and int16 emit two, big-endian; int32 emits four; []byte
// is copied as is.
func Code(parts ...any) []byte {
	var out []byte
	for _, p := range parts {
		switch v := p.(type) {
		case byte:
			out = append(out, v)
		case int:
			if v < -128 || v > 255 {
				panic(fmt.Sprintf("classfiletest: int part %d does not fit a byte", v))
			}
			out = append(out, byte(v))
		case int8:
			out = append(out, byte(v))
		case uint16:
			out = binary.BigEndian.AppendUint16(out, v)
		case int16:
			out = binary.BigEndian.AppendUint16(out, uint16(v))
		case int32:
			out = binary.BigEndian.AppendUint32(out, uint32(v))
		case []byte:
			out = append(out, v...)
		default:
			panic(fmt.Sprintf("classfiletest: unsupported code part %T", p))
		}
	}
	return out
}

func (b *Builder) add(key string, slots uint16, write func(w *bytes.Buffer)) uint16 {
	if idx, ok := b.index[key]; ok {
		return idx
	}
	idx := b.next
	write(&b.pool)
	b.index[key] = idx
	b.next += slots
	return idx
}

func u16(w *bytes.Buffer, v uint16) { _ = binary.Write(w, binary.BigEndian, v) }

// Utf8 interns a CONSTANT_Utf8.
func (b *Builder) Utf8(s string) uint16 {
	return b.add("utf8:"+s, 1, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagUtf8)
		u16(w, uint16(len(s)))
		w.WriteString(s)
	})
}

// Class interns a CONSTANT_Class.
func (b *Builder) Class(name string) uint16 {
	n := b.Utf8(name)
	return b.add("class:"+name, 1, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagClass)
		u16(w, n)
	})
}

// String interns a CONSTANT_String.
func (b *Builder) String(s string) uint16 {
	n := b.Utf8(s)
	return b.add("string:"+s, 1, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagString)
		u16(w, n)
	})
}

// Int interns a CONSTANT_Integer.
func (b *Builder) Int(v int32) uint16 {
	return b.add(fmt.Sprintf("int:%d", v), 1, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagInteger)
		_ = binary.Write(w, binary.BigEndian, v)
	})
}

// Float interns a CONSTANT_Float.
func (b *Builder) Float(v float32) uint16 {
	return b.add(fmt.Sprintf("float:%x", math.Float32bits(v)), 1, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagFloat)
		_ = binary.Write(w, binary.BigEndian, math.Float32bits(v))
	})
}

// Long interns a CONSTANT_Long, which occupies two pool slots.
func (b *Builder) Long(v int64) uint16 {
	return b.add(fmt.Sprintf("long:%d", v), 2, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagLong)
		_ = binary.Write(w, binary.BigEndian, v)
	})
}

// Double interns a CONSTANT_Double, which occupies two pool slots.
func (b *Builder) Double(v float64) uint16 {
	return b.add(fmt.Sprintf("double:%x", math.Float64bits(v)), 2, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagDouble)
		_ = binary.Write(w, binary.BigEndian, math.Float64bits(v))
	})
}

// NameAndType interns a CONSTANT_NameAndType.
func (b *Builder) NameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	return b.add("nat:"+name+":"+desc, 1, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagNameAndType)
		u16(w, n)
		u16(w, d)
	})
}

func (b *Builder) memberRef(tag uint8, owner, name, desc string) uint16 {
	c, nat := b.Class(owner), b.NameAndType(name, desc)
	return b.add(fmt.Sprintf("ref%d:%s.%s:%s", tag, owner, name, desc), 1, func(w *bytes.Buffer) {
		w.WriteByte(tag)
		u16(w, c)
		u16(w, nat)
	})
}

// FieldRef interns a CONSTANT_Fieldref.
func (b *Builder) FieldRef(owner, name, desc string) uint16 {
	return b.memberRef(classfile.TagFieldref, owner, name, desc)
}

// MethodRef interns a CONSTANT_Methodref.
func (b *Builder) MethodRef(owner, name, desc string) uint16 {
	return b.memberRef(classfile.TagMethodref, owner, name, desc)
}

// InterfaceMethodRef interns a CONSTANT_InterfaceMethodref.
func (b *Builder) InterfaceMethodRef(owner, name, desc string) uint16 {
	return b.memberRef(classfile.TagInterfaceMethodref, owner, name, desc)
}

// Bytes serializes the class file.
func (b *Builder) Bytes() []byte {
	// Attribute names must be in the pool before it is written out.
	codeName := b.Utf8("Code")
	var lineName, sourceName uint16
	for _, m := range b.methods {
		if len(m.lines) > 0 {
			lineName = b.Utf8("LineNumberTable")
		}
	}
	if b.sourceFile != 0 {
		sourceName = b.Utf8("SourceFile")
	}

	var out bytes.Buffer
	_ = binary.Write(&out, binary.BigEndian, uint32(0xCAFEBABE))
	u16(&out, 0)  // minor
	u16(&out, 52) // major: Java 8
	u16(&out, b.next)
	out.Write(b.pool.Bytes())
	u16(&out, b.access)
	u16(&out, b.this)
	u16(&out, b.super)
	u16(&out, uint16(len(b.interfaces)))
	for _, i := range b.interfaces {
		u16(&out, i)
	}

	u16(&out, uint16(len(b.fields)))
	for _, f := range b.fields {
		u16(&out, f.access)
		u16(&out, f.name)
		u16(&out, f.desc)
		u16(&out, 0)
	}

	u16(&out, uint16(len(b.methods)))
	for _, m := range b.methods {
		u16(&out, m.member.access)
		u16(&out, m.member.name)
		u16(&out, m.member.desc)
		if !m.hasCode {
			u16(&out, 0)
			continue
		}
		u16(&out, 1)
		body := m.codeAttribute(lineName)
		u16(&out, codeName)
		_ = binary.Write(&out, binary.BigEndian, uint32(len(body)))
		out.Write(body)
	}

	if b.sourceFile != 0 {
		u16(&out, 1)
		u16(&out, sourceName)
		_ = binary.Write(&out, binary.BigEndian, uint32(2))
		u16(&out, b.sourceFile)
	} else {
		u16(&out, 0)
	}
	return out.Bytes()
}

func (m *Method) codeAttribute(lineName uint16) []byte {
	var w bytes.Buffer
	u16(&w, m.maxStack)
	u16(&w, m.maxLocals)
	_ = binary.Write(&w, binary.BigEndian, uint32(len(m.code)))
	w.Write(m.code)
	u16(&w, uint16(len(m.handlers)))
	for _, h := range m.handlers {
		u16(&w, h.StartPC)
		u16(&w, h.EndPC)
		u16(&w, h.HandlerPC)
		u16(&w, h.CatchType)
	}
	if len(m.lines) == 0 {
		u16(&w, 0)
		return w.Bytes()
	}
	u16(&w, 1)
	u16(&w, lineName)
	_ = binary.Write(&w, binary.BigEndian, uint32(2+4*len(m.lines)))
	u16(&w, uint16(len(m.lines)))
	for _, ln := range m.lines {
		u16(&w, ln.StartPC)
		u16(&w, ln.Line)
	}
	return w.Bytes()
}
