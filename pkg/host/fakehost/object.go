package fakehost

import (
	"fmt"
	"strings"
	"sync"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/host"
	"github.com/daimatz/liveedit/pkg/interp"
)

// Object is an instance of a fake class.
type Object struct {
	Class string

	mu     sync.Mutex
	fields map[string]any
}

// NewObject creates an instance of class with no fields set.
func NewObject(class string) *Object {
	return &Object{Class: class, fields: make(map[string]any)}
}

// Get returns a field, or nil when it was never set.
func (o *Object) Get(name string) any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fields[name]
}

// Set stores a field.
func (o *Object) Set(name string, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fields[name] = v
}

func (o *Object) lookup(name string) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.fields[name]
	return v, ok
}

// Array is a JVM array. Elements hold host-native values of the element
// type, or nested *Array for multi-dimensional arrays.
type Array struct {
	Desc  string
	Elems []any
}

func (a *Array) elemDesc() string { return a.Desc[1:] }

func newArray(desc string, dims []int32) (*Array, error) {
	if !strings.HasPrefix(desc, "[") {
		return nil, fmt.Errorf("not an array descriptor: %s", desc)
	}
	n := dims[0]
	a := &Array{Desc: desc, Elems: make([]any, n)}
	for i := range a.Elems {
		if len(dims) > 1 {
			inner, err := newArray(desc[1:], dims[1:])
			if err != nil {
				return nil, err
			}
			a.Elems[i] = inner
		} else {
			a.Elems[i] = classfile.ZeroValue(desc[1:])
		}
	}
	return a, nil
}

// store narrows v to the element type so reads return what a JVM would.
func (a *Array) store(index int32, v any) error {
	elem := a.elemDesc()
	if classfile.IsReference(elem) {
		a.Elems[index] = v
		return nil
	}
	iv, err := interp.FromHost(v, elem)
	if err != nil {
		return fmt.Errorf("storing into %s: %w", a.Desc, err)
	}
	a.Elems[index] = iv.ToHost(elem)
	return nil
}

// Integer is a boxed java/lang/Integer.
type Integer struct {
	Value int32
}

// Unbox implements interp.Boxed.
func (i *Integer) Unbox() any { return i.Value }

// HashMap is a java/util/HashMap. Boxed integer keys are stored by value.
type HashMap struct {
	mu   sync.Mutex
	Data map[any]any
}

// NewHashMap creates an empty HashMap.
func NewHashMap() *HashMap {
	return &HashMap{Data: make(map[any]any)}
}

func mapKey(key any) any {
	if i, ok := key.(*Integer); ok {
		return i.Value
	}
	return key
}

// Get returns the value for key, or nil.
func (m *HashMap) Get(key any) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Data[mapKey(key)]
}

// Put stores a key-value pair and returns the previous value.
func (m *HashMap) Put(key, value any) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := mapKey(key)
	old := m.Data[k]
	m.Data[k] = value
	return old
}

// Len returns the number of entries.
func (m *HashMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Data)
}

// StringBuilder is a java/lang/StringBuilder.
type StringBuilder struct {
	strings.Builder
}

// ClassRef is a java/lang/Class handle.
type ClassRef struct {
	Name string
}

// Proxy is a dynamic proxy created by CreateProxy.
type Proxy struct {
	ID         int
	Interfaces []string
	Handler    host.InvocationHandler
}

func (p *Proxy) String() string { return fmt.Sprintf("$Proxy%d", p.ID) }
