// Package fakehost is an in-memory host.Host. Classes are defined in Go,
// objects are field maps and strings are Go strings, which is enough to run
// interpreted code end to end without a JVM.
package fakehost

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/host"
)

// Host is a fake host.Host.
type Host struct {
	// Stdout receives what guest code prints through System.out.
	Stdout io.Writer

	level int

	mu       sync.RWMutex
	classes  map[string]*Class
	statics  map[string]any
	literals map[string]*ClassRef
	hashes   map[any]int32
	monitors map[any]int
	proxies  int
	nextHash int32
}

// New creates a host reporting apiLevel, with the built-in classes defined.
func New(apiLevel int) *Host {
	h := &Host{
		Stdout:   os.Stdout,
		level:    apiLevel,
		classes:  make(map[string]*Class),
		statics:  make(map[string]any),
		literals: make(map[string]*ClassRef),
		hashes:   make(map[any]int32),
		monitors: make(map[any]int),
		nextHash: 0x1b6d3586,
	}
	for _, c := range builtins() {
		h.Define(c)
	}
	h.statics["java/lang/System.out"] = &PrintStream{host: h}
	return h
}

// Define adds or replaces a class. A class without a superclass extends
// java/lang/Object.
func (h *Host) Define(c *Class) {
	if c.Super == "" && c.ClassName != "java/lang/Object" {
		c.Super = "java/lang/Object"
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.classes[c.ClassName] = c
	for name, v := range c.Statics {
		h.statics[c.ClassName+"."+name] = v
	}
}

func (h *Host) class(name string) (*Class, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.classes[name]
	return c, ok
}

// Throw builds a guest exception of class as a *host.Exception.
func (h *Host) Throw(class, msg string) error {
	obj := NewObject(class)
	if msg != "" {
		obj.Set("message", msg)
	}
	return &host.Exception{ClassName: class, Message: msg, Value: obj}
}

func (h *Host) ResolveType(name string) (host.Type, error) {
	c, ok := h.class(classfile.InternalName(name))
	if !ok {
		return nil, fmt.Errorf("class %s not found", name)
	}
	return c, nil
}

func (h *Host) APILevel() int { return h.level }

func (h *Host) GetField(obj any, owner, name, desc string) (any, error) {
	o, ok := obj.(*Object)
	if !ok {
		return nil, fmt.Errorf("getfield %s.%s: %T has no fields", owner, name, obj)
	}
	if v, ok := o.lookup(name); ok {
		return v, nil
	}
	return classfile.ZeroValue(desc), nil
}

func (h *Host) SetField(obj any, owner, name, desc string, value any) error {
	o, ok := obj.(*Object)
	if !ok {
		return fmt.Errorf("putfield %s.%s: %T has no fields", owner, name, obj)
	}
	o.Set(name, value)
	return nil
}

// staticKey finds the class in owner's superclass chain that declares name.
func (h *Host) staticKey(owner, name string) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := owner; c != ""; {
		key := c + "." + name
		if _, ok := h.statics[key]; ok {
			return key, nil
		}
		cls, ok := h.classes[c]
		if !ok {
			if c == owner {
				return "", h.Throw("java/lang/NoClassDefFoundError", owner)
			}
			break
		}
		c = cls.Super
	}
	return "", h.Throw("java/lang/NoSuchFieldError", name)
}

func (h *Host) GetStatic(owner, name, desc string) (any, error) {
	key, err := h.staticKey(owner, name)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statics[key], nil
}

func (h *Host) SetStatic(owner, name, desc string, value any) error {
	key, err := h.staticKey(owner, name)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statics[key] = value
	return nil
}

// ClassName returns the runtime class of obj.
func (h *Host) ClassName(obj any) (string, error) {
	switch o := obj.(type) {
	case nil:
		return "", h.Throw("java/lang/NullPointerException", "")
	case string:
		return "java/lang/String", nil
	case *Object:
		return o.Class, nil
	case *Array:
		return o.Desc, nil
	case *Integer:
		return "java/lang/Integer", nil
	case *HashMap:
		return "java/util/HashMap", nil
	case *StringBuilder:
		return "java/lang/StringBuilder", nil
	case *PrintStream:
		return "java/io/PrintStream", nil
	case *ClassRef:
		return "java/lang/Class", nil
	case *Proxy:
		return o.String(), nil
	}
	return "", fmt.Errorf("not a host object: %T", obj)
}

// findMethod walks the superclass chain from class.
func (h *Host) findMethod(class, name, desc string) (*Method, bool) {
	for c := class; c != ""; {
		cls, ok := h.class(c)
		if !ok {
			return nil, false
		}
		if m := cls.declared(name, desc, h.level); m != nil {
			return m, true
		}
		c = cls.Super
	}
	return nil, false
}

func (h *Host) HasMethod(owner, name, desc string) bool {
	_, ok := h.findMethod(owner, name, desc)
	return ok
}

func (h *Host) call(m *Method, owner string, recv any, args []any) (any, error) {
	if m.Impl == nil {
		if m.Name == "<init>" {
			return nil, nil
		}
		return nil, h.Throw("java/lang/AbstractMethodError", owner+"->"+m.Name+m.Descriptor)
	}
	return m.Impl(h, recv, args)
}

func (h *Host) noSuchMethod(owner, name, desc string) error {
	return h.Throw("java/lang/NoSuchMethodError", owner+"->"+name+desc)
}

func (h *Host) InvokeVirtual(recv any, owner, name, desc string, args []any) (any, error) {
	if p, ok := recv.(*Proxy); ok {
		return h.invokeProxy(p, owner, name, desc, args)
	}
	class, err := h.ClassName(recv)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(class, "[") {
		class = "java/lang/Object"
	}
	m, ok := h.findMethod(class, name, desc)
	if !ok || m.Static {
		return nil, h.noSuchMethod(class, name, desc)
	}
	return h.call(m, class, recv, args)
}

func (h *Host) InvokeSpecial(recv any, owner, name, desc string, args []any) (any, error) {
	if p, ok := recv.(*Proxy); ok {
		return h.invokeProxy(p, owner, name, desc, args)
	}
	if recv == nil {
		return nil, h.Throw("java/lang/NullPointerException", "")
	}
	m, ok := h.findMethod(owner, name, desc)
	if !ok || m.Static {
		return nil, h.noSuchMethod(owner, name, desc)
	}
	return h.call(m, owner, recv, args)
}

func (h *Host) InvokeStatic(owner, name, desc string, args []any) (any, error) {
	m, ok := h.findMethod(owner, name, desc)
	if !ok || !m.Static {
		return nil, h.noSuchMethod(owner, name, desc)
	}
	return h.call(m, owner, nil, args)
}

func (h *Host) invokeProxy(p *Proxy, owner, name, desc string, args []any) (any, error) {
	m := host.Method{Owner: owner, Name: name, Descriptor: desc}
	if host.ObjectMethods[m.Key()] {
		m.Owner = "java/lang/Object"
	}
	return p.Handler.Invoke(p, m, args)
}

func (h *Host) NewInstance(owner, desc string, args []any) (any, error) {
	c, ok := h.class(owner)
	if !ok {
		return nil, h.Throw("java/lang/NoClassDefFoundError", owner)
	}
	if c.Interface || c.Abstract {
		return nil, h.Throw("java/lang/InstantiationError", owner)
	}
	m := c.declared("<init>", desc, h.level)
	if m == nil {
		return nil, h.noSuchMethod(owner, "<init>", desc)
	}
	obj := NewObject(owner)
	if m.Impl == nil {
		return obj, nil
	}
	res, err := m.Impl(h, obj, args)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return obj, nil
}

func (h *Host) NewArray(desc string, dims []int32) (any, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("newarray %s: no dimensions", desc)
	}
	for _, d := range dims {
		if d < 0 {
			return nil, h.Throw("java/lang/NegativeArraySizeException", fmt.Sprint(d))
		}
	}
	return newArray(desc, dims)
}

func (h *Host) array(arr any, index int32) (*Array, error) {
	a, ok := arr.(*Array)
	if !ok {
		return nil, fmt.Errorf("not an array: %T", arr)
	}
	if index < 0 || int(index) >= len(a.Elems) {
		return nil, h.Throw("java/lang/ArrayIndexOutOfBoundsException", fmt.Sprintf("length=%d; index=%d", len(a.Elems), index))
	}
	return a, nil
}

func (h *Host) ArrayGet(arr any, index int32) (any, error) {
	a, err := h.array(arr, index)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return a.Elems[index], nil
}

func (h *Host) ArraySet(arr any, index int32, value any) error {
	a, err := h.array(arr, index)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return a.store(index, value)
}

func (h *Host) ArrayLength(arr any) (int32, error) {
	a, ok := arr.(*Array)
	if !ok {
		return 0, fmt.Errorf("not an array: %T", arr)
	}
	return int32(len(a.Elems)), nil
}

func (h *Host) IsInstance(obj any, typeName string) (bool, error) {
	if obj == nil {
		return false, nil
	}
	if typeName == "java/lang/Object" {
		return true, nil
	}
	if p, ok := obj.(*Proxy); ok {
		for _, i := range p.Interfaces {
			if h.isSubtype(i, typeName) {
				return true, nil
			}
		}
		return false, nil
	}
	class, err := h.ClassName(obj)
	if err != nil {
		return false, err
	}
	if strings.HasPrefix(class, "[") {
		return class == typeName || (typeName == "[Ljava/lang/Object;" && classfile.IsReference(class[1:])), nil
	}
	return h.isSubtype(class, typeName), nil
}

func (h *Host) isSubtype(class, target string) bool {
	if class == target {
		return true
	}
	c, ok := h.class(class)
	if !ok {
		return false
	}
	if c.Super != "" && h.isSubtype(c.Super, target) {
		return true
	}
	for _, i := range c.Implements {
		if h.isSubtype(i, target) {
			return true
		}
	}
	return false
}

func (h *Host) ClassLiteral(typeName string) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.literals[typeName]; ok {
		return c, nil
	}
	c := &ClassRef{Name: typeName}
	h.literals[typeName] = c
	return c, nil
}

func (h *Host) CreateProxy(interfaces []host.Type, handler host.InvocationHandler) (any, error) {
	names := make([]string, len(interfaces))
	for i, t := range interfaces {
		c, ok := h.class(t.Name())
		if !ok || !c.Interface {
			return nil, h.Throw("java/lang/IllegalArgumentException", t.Name()+" is not an interface")
		}
		names[i] = t.Name()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.proxies++
	return &Proxy{ID: h.proxies - 1, Interfaces: names, Handler: handler}, nil
}

func (h *Host) ProxyHandler(obj any) (host.InvocationHandler, bool) {
	p, ok := obj.(*Proxy)
	if !ok {
		return nil, false
	}
	return p.Handler, true
}

func (h *Host) MonitorEnter(obj any) error {
	if obj == nil {
		return h.Throw("java/lang/NullPointerException", "")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitors[obj]++
	return nil
}

func (h *Host) MonitorExit(obj any) error {
	if obj == nil {
		return h.Throw("java/lang/NullPointerException", "")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.monitors[obj] == 0 {
		return h.Throw("java/lang/IllegalMonitorStateException", "")
	}
	h.monitors[obj]--
	return nil
}

// Monitors returns how many times obj's monitor is currently held.
func (h *Host) Monitors(obj any) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.monitors[obj]
}

// IdentityHash returns a stable hash for obj, assigned on first use.
func (h *Host) IdentityHash(obj any) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.hashes[obj]; ok {
		return v
	}
	h.nextHash = h.nextHash*1103515245 + 12345
	v := h.nextHash & 0x7fffffff
	h.hashes[obj] = v
	return v
}

var _ host.Host = (*Host)(nil)
