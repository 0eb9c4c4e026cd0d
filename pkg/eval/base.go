package eval

import (
	"errors"
	"fmt"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/host"
	"github.com/daimatz/liveedit/pkg/interp"
)

// Base resolves every operation against the host. It is the only link of a
// chain that touches host objects.
type Base struct {
	Host host.Host
}

// NewBase returns the terminal evaluator for h.
func NewBase(h host.Host) *Base {
	return &Base{Host: h}
}

func (b *Base) GetField(obj interp.Value, owner, name, desc string) (interp.Value, error) {
	x, err := b.Host.GetField(obj.Ref, owner, name, desc)
	if err != nil {
		return interp.Value{}, convertError(err)
	}
	return interp.FromHost(x, desc)
}

func (b *Base) SetField(obj interp.Value, owner, name, desc string, v interp.Value) error {
	return convertError(b.Host.SetField(obj.Ref, owner, name, desc, v.ToHost(desc)))
}

func (b *Base) GetStaticField(owner, name, desc string) (interp.Value, error) {
	x, err := b.Host.GetStatic(owner, name, desc)
	if err != nil {
		return interp.Value{}, convertError(err)
	}
	return interp.FromHost(x, desc)
}

func (b *Base) SetStaticField(owner, name, desc string, v interp.Value) error {
	return convertError(b.Host.SetStatic(owner, name, desc, v.ToHost(desc)))
}

func (b *Base) GetArrayElement(arr interp.Value, index int32, elemDesc string) (interp.Value, error) {
	x, err := b.Host.ArrayGet(arr.Ref, index)
	if err != nil {
		return interp.Value{}, convertError(err)
	}
	return interp.FromHost(x, elemDesc)
}

func (b *Base) SetArrayElement(arr interp.Value, index int32, elemDesc string, v interp.Value) error {
	return convertError(b.Host.ArraySet(arr.Ref, index, v.ToHost(elemDesc)))
}

func (b *Base) GetArrayLength(arr interp.Value) (int32, error) {
	n, err := b.Host.ArrayLength(arr.Ref)
	return n, convertError(err)
}

func (b *Base) InvokeVirtual(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	return b.call(desc, args, func(hargs []any) (any, error) {
		return b.Host.InvokeVirtual(recv.Ref, owner, name, desc, hargs)
	})
}

func (b *Base) InvokeSpecial(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	return b.call(desc, args, func(hargs []any) (any, error) {
		return b.Host.InvokeSpecial(recv.Ref, owner, name, desc, hargs)
	})
}

// InvokeInterface looks the method up from the receiver's runtime class, not
// from the interface named at the call site.
func (b *Base) InvokeInterface(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	return b.call(desc, args, func(hargs []any) (any, error) {
		class, err := b.Host.ClassName(recv.Ref)
		if err != nil {
			return nil, err
		}
		return b.Host.InvokeVirtual(recv.Ref, class, name, desc, hargs)
	})
}

func (b *Base) InvokeStatic(owner, name, desc string, args []interp.Value) (interp.Value, error) {
	return b.call(desc, args, func(hargs []any) (any, error) {
		return b.Host.InvokeStatic(owner, name, desc, hargs)
	})
}

func (b *Base) IsInstanceOf(v interp.Value, typeName string) (bool, error) {
	if v.IsNull() {
		return false, nil
	}
	ok, err := b.Host.IsInstance(v.Ref, typeName)
	return ok, convertError(err)
}

func (b *Base) LoadClass(typeName string) (interp.Value, error) {
	c, err := b.Host.ClassLiteral(typeName)
	if err != nil {
		return interp.Value{}, convertError(err)
	}
	return interp.RefValue(c, "Ljava/lang/Class;"), nil
}

func (b *Base) LoadString(s string) (interp.Value, error) {
	return interp.RefValue(s, "Ljava/lang/String;"), nil
}

func (b *Base) NewInstance(owner, desc string, args []interp.Value) (interp.Value, error) {
	hargs, err := hostArgs(desc, args)
	if err != nil {
		return interp.Value{}, err
	}
	obj, err := b.Host.NewInstance(owner, desc, hargs)
	if err != nil {
		return interp.Value{}, convertError(err)
	}
	return interp.RefValue(obj, classfile.TypeDescriptor(owner)), nil
}

func (b *Base) NewArray(desc string, length int32) (interp.Value, error) {
	return b.NewMultiDimensionalArray(desc, []int32{length})
}

func (b *Base) NewMultiDimensionalArray(desc string, dims []int32) (interp.Value, error) {
	arr, err := b.Host.NewArray(desc, dims)
	if err != nil {
		return interp.Value{}, convertError(err)
	}
	return interp.RefValue(arr, desc), nil
}

func (b *Base) MonitorEnter(v interp.Value) error {
	return convertError(b.Host.MonitorEnter(v.Ref))
}

func (b *Base) MonitorExit(v interp.Value) error {
	return convertError(b.Host.MonitorExit(v.Ref))
}

// call converts args by desc, runs fn and converts its result back.
func (b *Base) call(desc string, args []interp.Value, fn func([]any) (any, error)) (interp.Value, error) {
	mt, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return interp.Value{}, err
	}
	hargs, err := hostArgs(desc, args)
	if err != nil {
		return interp.Value{}, err
	}
	res, err := fn(hargs)
	if err != nil {
		return interp.Value{}, convertError(err)
	}
	return interp.FromHost(res, mt.Return)
}

func hostArgs(desc string, args []interp.Value) ([]any, error) {
	mt, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return nil, err
	}
	if len(mt.Params) != len(args) {
		return nil, fmt.Errorf("%s: got %d arguments, want %d", desc, len(args), len(mt.Params))
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.ToHost(mt.Params[i])
	}
	return out, nil
}

// convertError turns a host exception into a guest exception the
// interpreter's exception tables can catch.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var exc *host.Exception
	if errors.As(err, &exc) {
		return &interp.Thrown{
			Value:   interp.RefValue(exc.Value, classfile.TypeDescriptor(exc.ClassName)),
			Class:   exc.ClassName,
			Message: exc.Message,
		}
	}
	return err
}

// HostError turns a guest exception back into a *host.Exception for code
// that hands errors to the host.
func HostError(err error) error {
	if t, ok := interp.AsThrown(err); ok {
		return &host.Exception{ClassName: t.Class, Message: t.Message, Value: t.Value.Ref}
	}
	return err
}
