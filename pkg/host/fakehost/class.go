package fakehost

import (
	"github.com/daimatz/liveedit/pkg/host"
)

// Impl is the Go body of a fake method. recv is nil for static methods and
// the freshly allocated *Object for constructors; a constructor returning a
// non-nil value replaces that object.
type Impl func(h *Host, recv any, args []any) (any, error)

// Method is a method of a fake class.
type Method struct {
	Name       string
	Descriptor string
	Static     bool
	Synthetic  bool
	// Since is the API level that introduced the method; 0 means always.
	Since int
	Impl  Impl
}

// Class is a class defined in Go. It implements host.Type.
type Class struct {
	ClassName  string
	Super      string
	Implements []string
	Interface  bool
	Abstract   bool
	Methods    []*Method
	// Statics declares the static fields and their initial values.
	Statics map[string]any
}

func (c *Class) Name() string { return c.ClassName }

func (c *Class) SuperName() string { return c.Super }

func (c *Class) Interfaces() []string { return c.Implements }

func (c *Class) DeclaredMethods() []host.Method {
	out := make([]host.Method, 0, len(c.Methods))
	for _, m := range c.Methods {
		if m.Name == "<clinit>" {
			continue
		}
		out = append(out, host.Method{
			Owner:      c.ClassName,
			Name:       m.Name,
			Descriptor: m.Descriptor,
			Static:     m.Static,
			Synthetic:  m.Synthetic,
		})
	}
	return out
}

func (c *Class) declared(name, desc string, level int) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc && m.Since <= level {
			return m
		}
	}
	return nil
}

// Static is a shorthand for a static method.
func Static(name, desc string, impl Impl) *Method {
	return &Method{Name: name, Descriptor: desc, Static: true, Impl: impl}
}

// Virtual is a shorthand for an instance method.
func Virtual(name, desc string, impl Impl) *Method {
	return &Method{Name: name, Descriptor: desc, Impl: impl}
}

// Abstract is a shorthand for a method without a body.
func Abstract(name, desc string) *Method {
	return &Method{Name: name, Descriptor: desc}
}

// Constructor is a shorthand for an <init> method.
func Constructor(desc string, impl Impl) *Method {
	return &Method{Name: "<init>", Descriptor: desc, Impl: impl}
}
