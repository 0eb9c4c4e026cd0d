package liveedit

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/host"
	"github.com/daimatz/liveedit/pkg/interp"
)

// ProxyHandler backs one proxy instance of a patched class. It owns the
// instance fields and sends interface calls to the class currently
// registered under the proxy's name.
type ProxyHandler struct {
	ctx       *Context
	className string
	id        int64
	hash      int32

	mu     sync.Mutex
	fields map[string]interp.Value
}

func newProxyHandler(cls *Class) *ProxyHandler {
	id := cls.ctx.nextProxyID()
	p := &ProxyHandler{
		ctx:       cls.ctx,
		className: cls.Name(),
		id:        id,
		hash:      int32(xxh3.HashString(strconv.FormatInt(id, 10)) & 0x7fffffff),
		fields:    make(map[string]interp.Value),
	}
	for _, f := range cls.def.Fields {
		if !f.IsStatic() {
			p.fields[f.Name] = interp.ZeroOf(f.Descriptor)
		}
	}
	return p
}

// ClassName returns the patched class the proxy stands for.
func (p *ProxyHandler) ClassName() string { return p.className }

// IdentityHash is the hash the proxy answers hashCode with.
func (p *ProxyHandler) IdentityHash() int32 { return p.hash }

// Invoke implements host.InvocationHandler.
func (p *ProxyHandler) Invoke(proxy any, m host.Method, args []any) (any, error) {
	if res, ok := p.objectMethod(proxy, m.Key(), args); ok {
		return res, nil
	}
	cls, ok := p.ctx.Lookup(p.className)
	if !ok {
		return nil, &NotRegisteredError{Class: p.className}
	}
	return cls.InvokeHost(m.Key(), proxy, args)
}

// objectMethod answers hashCode, equals and toString from the proxy's
// identity.
func (p *ProxyHandler) objectMethod(proxy any, key string, args []any) (any, bool) {
	if !host.ObjectMethods[key] {
		return nil, false
	}
	switch key {
	case "hashCode()I":
		return p.hash, true
	case "equals(Ljava/lang/Object;)Z":
		return len(args) == 1 && args[0] == proxy, true
	default:
		return p.String(), true
	}
}

func (p *ProxyHandler) String() string {
	return fmt.Sprintf("%s@%x", strings.ReplaceAll(p.className, "/", "."), p.hash)
}

func (p *ProxyHandler) getField(name string) (interp.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.fields[name]
	if !ok {
		return interp.Value{}, fmt.Errorf("%s.%s: %w", p.className, name, ErrNoSuchField)
	}
	return v, nil
}

func (p *ProxyHandler) setField(name, desc string, v interp.Value) error {
	v, err := interp.Coerce(v, desc)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", p.className, name, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.fields[name]; !ok {
		return fmt.Errorf("%s.%s: %w", p.className, name, ErrNoSuchField)
	}
	p.fields[name] = v
	return nil
}

// objectValue is objectMethod for interpreted callers.
func (p *ProxyHandler) objectValue(recv interp.Value, key string, args []interp.Value) (interp.Value, bool) {
	hargs := make([]any, len(args))
	for i, a := range args {
		hargs[i] = a.Ref
	}
	res, ok := p.objectMethod(recv.Ref, key, hargs)
	if !ok {
		return interp.Value{}, false
	}
	switch r := res.(type) {
	case int32:
		return interp.IntValue(r), true
	case bool:
		return interp.BoolValue(r), true
	default:
		return interp.RefValue(r, classfile.TypeDescriptor("java/lang/String")), true
	}
}
