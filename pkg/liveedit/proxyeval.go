package liveedit

import (
	"fmt"

	"github.com/daimatz/liveedit/pkg/interp"
)

// ProxyAware keeps calls that involve patched proxy classes inside the
// interpreter: member access on proxy receivers, statics of proxy classes,
// allocation of proxy classes, and static methods that exist only in a
// patch. Everything else goes to the next evaluator.
type ProxyAware struct {
	interp.Evaluator
	ctx *Context
	st  *call
}

// handler returns the handler behind v when v is a proxy created by this
// context.
func (p *ProxyAware) handler(v interp.Value) (*ProxyHandler, bool) {
	if !v.IsRef() || v.Ref == nil {
		return nil, false
	}
	ih, ok := p.ctx.host.ProxyHandler(v.Ref)
	if !ok {
		return nil, false
	}
	h, ok := ih.(*ProxyHandler)
	if !ok || h.ctx != p.ctx {
		return nil, false
	}
	return h, true
}

// proxyClass returns the registered proxy class named owner.
func (p *ProxyAware) proxyClass(owner string) (*Class, bool) {
	cls, ok := p.ctx.Lookup(owner)
	if !ok || !cls.isProxy {
		return nil, false
	}
	return cls, true
}

func (p *ProxyAware) GetField(obj interp.Value, owner, name, desc string) (interp.Value, error) {
	if h, ok := p.handler(obj); ok {
		return h.getField(name)
	}
	return p.Evaluator.GetField(obj, owner, name, desc)
}

func (p *ProxyAware) SetField(obj interp.Value, owner, name, desc string, v interp.Value) error {
	if h, ok := p.handler(obj); ok {
		return h.setField(name, desc, v)
	}
	return p.Evaluator.SetField(obj, owner, name, desc, v)
}

func (p *ProxyAware) GetStaticField(owner, name, desc string) (interp.Value, error) {
	if cls, ok := p.proxyClass(owner); ok {
		return cls.getStatic(p.st, name)
	}
	return p.Evaluator.GetStaticField(owner, name, desc)
}

func (p *ProxyAware) SetStaticField(owner, name, desc string, v interp.Value) error {
	if cls, ok := p.proxyClass(owner); ok {
		return cls.setStatic(p.st, name, v)
	}
	return p.Evaluator.SetStaticField(owner, name, desc, v)
}

func (p *ProxyAware) InvokeVirtual(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	if res, ok, err := p.invokeProxy(recv, owner, name, desc, args); ok {
		return res, err
	}
	return p.Evaluator.InvokeVirtual(recv, owner, name, desc, args)
}

func (p *ProxyAware) InvokeSpecial(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	if res, ok, err := p.invokeProxy(recv, owner, name, desc, args); ok {
		return res, err
	}
	return p.Evaluator.InvokeSpecial(recv, owner, name, desc, args)
}

func (p *ProxyAware) InvokeInterface(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	if res, ok, err := p.invokeProxy(recv, owner, name, desc, args); ok {
		return res, err
	}
	return p.Evaluator.InvokeInterface(recv, owner, name, desc, args)
}

// invokeProxy handles a call on a proxy receiver. Object identity methods
// are answered by the handler; constructors other than the proxy class's
// own are no-ops, since a proxy has no host superclass state to build.
func (p *ProxyAware) invokeProxy(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, bool, error) {
	h, ok := p.handler(recv)
	if !ok {
		return interp.Value{}, false, nil
	}
	key := name + desc
	if name != "<init>" {
		if v, ok := h.objectValue(recv, key, args); ok {
			return v, true, nil
		}
	}
	cls, ok := p.ctx.Lookup(h.className)
	if !ok {
		return interp.Value{}, true, &NotRegisteredError{Class: h.className}
	}
	m, ok := cls.def.Method(key)
	if name == "<init>" && (owner != h.className || !ok) {
		return interp.Void, true, nil
	}
	if !ok {
		return interp.Value{}, false, nil
	}
	res, err := cls.invoke(p.st, m, &recv, args)
	return res, true, err
}

// InvokeStatic interprets static methods of proxy classes, and static
// methods of other patched classes that the host does not have and that
// were not themselves marked as edited, such as lambda bodies added by the
// patch.
func (p *ProxyAware) InvokeStatic(owner, name, desc string, args []interp.Value) (interp.Value, error) {
	if cls, ok := p.ctx.Lookup(owner); ok {
		if m, ok := cls.def.Method(name + desc); ok && m.IsStatic() {
			if cls.isProxy || (!p.ctx.host.HasMethod(owner, name, desc) && !p.ctx.isMarked(owner, name+desc)) {
				return cls.invoke(p.st, m, nil, args)
			}
		}
	}
	return p.Evaluator.InvokeStatic(owner, name, desc, args)
}

func (p *ProxyAware) IsInstanceOf(v interp.Value, typeName string) (bool, error) {
	if h, ok := p.handler(v); ok && h.className == typeName {
		return true, nil
	}
	return p.Evaluator.IsInstanceOf(v, typeName)
}

// NewInstance builds a proxy for proxy classes and runs the patched
// constructor on it.
func (p *ProxyAware) NewInstance(owner, desc string, args []interp.Value) (interp.Value, error) {
	cls, ok := p.proxyClass(owner)
	if !ok {
		return p.Evaluator.NewInstance(owner, desc, args)
	}
	obj, err := cls.instantiate(p.st)
	if err != nil {
		return interp.Value{}, err
	}
	ctor, ok := cls.def.Method("<init>" + desc)
	if !ok {
		if desc == "()V" {
			return obj, nil
		}
		return interp.Value{}, fmt.Errorf("%s-><init>%s: %w", owner, desc, ErrNoSuchMethod)
	}
	if _, err := cls.run(p.st, ctor, &obj, args); err != nil {
		return interp.Value{}, err
	}
	return obj, nil
}
