package liveedit

import (
	"fmt"
	"strings"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/interp"
)

// ParseMethodKey splits a dispatch key "owner->name(desc)ret" into the
// internal owner name and the method key "name(desc)ret".
func ParseMethodKey(key string) (owner, method string, err error) {
	owner, method, ok := strings.Cut(key, "->")
	if !ok || owner == "" || method == "" {
		return "", "", fmt.Errorf("malformed method key %q", key)
	}
	i := strings.IndexByte(method, '(')
	if i <= 0 {
		return "", "", fmt.Errorf("malformed method key %q", key)
	}
	if _, err := classfile.ParseMethodDescriptor(method[i:]); err != nil {
		return "", "", fmt.Errorf("method key %q: %w", key, err)
	}
	return classfile.InternalName(owner), method, nil
}

// ShouldInterpret is asked by the instrumentation stub at the top of every
// host method. It is true when interpret-all is on, when the method was
// marked as edited, or when the owner is a registered proxy class.
func (c *Context) ShouldInterpret(key string) bool {
	if c.interpretAll.Load() {
		return true
	}
	owner, method, err := ParseMethodKey(key)
	if err != nil {
		return false
	}
	if c.isMarked(owner, method) {
		return true
	}
	cls, ok := c.Lookup(owner)
	return ok && cls.isProxy
}

// Dispatch runs the patched version of the host method named by key. recv
// is the host receiver (ignored for static methods) and args are
// host-native argument values.
func (c *Context) Dispatch(key string, recv any, args []any) (interp.Value, error) {
	owner, method, err := ParseMethodKey(key)
	if err != nil {
		return interp.Value{}, err
	}
	cls, ok := c.Lookup(owner)
	if !ok {
		return interp.Value{}, &NotRegisteredError{Class: owner}
	}
	m, ok := cls.def.Method(method)
	if !ok {
		return interp.Value{}, fmt.Errorf("%s: %w", key, ErrNoSuchMethod)
	}
	if len(args) != len(m.Type.Params) {
		return interp.Value{}, fmt.Errorf("%s: got %d arguments, want %d", key, len(args), len(m.Type.Params))
	}
	vals := make([]interp.Value, len(args))
	for i, a := range args {
		if vals[i], err = interp.FromHost(a, m.Type.Params[i]); err != nil {
			return interp.Value{}, fmt.Errorf("%s: argument %d: %w", key, i, err)
		}
	}
	var receiver *interp.Value
	if !m.IsStatic() {
		r := interp.RefValue(recv, classfile.TypeDescriptor(owner))
		receiver = &r
	}
	return cls.invoke(newCall(), m, receiver, vals)
}

// dispatchAs runs Dispatch and converts the result to the host form of desc.
func dispatchAs[T any](c *Context, desc, key string, recv any, args []any) (T, error) {
	var zero T
	v, err := c.Dispatch(key, recv, args)
	if err != nil || v.Kind == interp.KindVoid {
		return zero, err
	}
	if v, err = interp.Coerce(v, desc); err != nil {
		return zero, fmt.Errorf("%s: %w", key, err)
	}
	x, ok := v.ToHost(desc).(T)
	if !ok {
		return zero, fmt.Errorf("%s: result %v is not %s", key, v, desc)
	}
	return x, nil
}

// DispatchVoid is the stub entry point for void methods.
func (c *Context) DispatchVoid(key string, recv any, args []any) error {
	_, err := c.Dispatch(key, recv, args)
	return err
}

func (c *Context) DispatchBoolean(key string, recv any, args []any) (bool, error) {
	return dispatchAs[bool](c, "Z", key, recv, args)
}

func (c *Context) DispatchByte(key string, recv any, args []any) (int8, error) {
	return dispatchAs[int8](c, "B", key, recv, args)
}

func (c *Context) DispatchChar(key string, recv any, args []any) (uint16, error) {
	return dispatchAs[uint16](c, "C", key, recv, args)
}

func (c *Context) DispatchShort(key string, recv any, args []any) (int16, error) {
	return dispatchAs[int16](c, "S", key, recv, args)
}

func (c *Context) DispatchInt(key string, recv any, args []any) (int32, error) {
	return dispatchAs[int32](c, "I", key, recv, args)
}

func (c *Context) DispatchLong(key string, recv any, args []any) (int64, error) {
	return dispatchAs[int64](c, "J", key, recv, args)
}

func (c *Context) DispatchFloat(key string, recv any, args []any) (float32, error) {
	return dispatchAs[float32](c, "F", key, recv, args)
}

func (c *Context) DispatchDouble(key string, recv any, args []any) (float64, error) {
	return dispatchAs[float64](c, "D", key, recv, args)
}

// DispatchObject is the stub entry point for reference results; null is nil.
func (c *Context) DispatchObject(key string, recv any, args []any) (any, error) {
	v, err := c.Dispatch(key, recv, args)
	if err != nil {
		return nil, err
	}
	return v.Ref, nil
}
