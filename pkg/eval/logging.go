package eval

import (
	"github.com/tliron/commonlog"

	"github.com/daimatz/liveedit/pkg/interp"
)

// Logging records every operation at debug level and forwards it
// untouched.
type Logging struct {
	Next interp.Evaluator
	Log  commonlog.Logger
}

// WithLogging adds a Logging link writing to log, or to the package logger
// when log is nil.
func WithLogging(log commonlog.Logger) Decorator {
	if log == nil {
		log = commonlog.GetLogger("liveedit.eval")
	}
	return func(next interp.Evaluator) interp.Evaluator {
		return &Logging{Next: next, Log: log}
	}
}

func (l *Logging) done(op string, err error) {
	if err != nil {
		l.Log.Debugf("%s failed: %v", op, err)
	}
}

func (l *Logging) GetField(obj interp.Value, owner, name, desc string) (interp.Value, error) {
	l.Log.Debugf("getfield %s.%s:%s on %s", owner, name, desc, obj)
	v, err := l.Next.GetField(obj, owner, name, desc)
	l.done("getfield", err)
	return v, err
}

func (l *Logging) SetField(obj interp.Value, owner, name, desc string, v interp.Value) error {
	l.Log.Debugf("putfield %s.%s:%s on %s = %s", owner, name, desc, obj, v)
	err := l.Next.SetField(obj, owner, name, desc, v)
	l.done("putfield", err)
	return err
}

func (l *Logging) GetStaticField(owner, name, desc string) (interp.Value, error) {
	l.Log.Debugf("getstatic %s.%s:%s", owner, name, desc)
	v, err := l.Next.GetStaticField(owner, name, desc)
	l.done("getstatic", err)
	return v, err
}

func (l *Logging) SetStaticField(owner, name, desc string, v interp.Value) error {
	l.Log.Debugf("putstatic %s.%s:%s = %s", owner, name, desc, v)
	err := l.Next.SetStaticField(owner, name, desc, v)
	l.done("putstatic", err)
	return err
}

func (l *Logging) GetArrayElement(arr interp.Value, index int32, elemDesc string) (interp.Value, error) {
	l.Log.Debugf("array load %s[%d]", arr, index)
	v, err := l.Next.GetArrayElement(arr, index, elemDesc)
	l.done("array load", err)
	return v, err
}

func (l *Logging) SetArrayElement(arr interp.Value, index int32, elemDesc string, v interp.Value) error {
	l.Log.Debugf("array store %s[%d] = %s", arr, index, v)
	err := l.Next.SetArrayElement(arr, index, elemDesc, v)
	l.done("array store", err)
	return err
}

func (l *Logging) GetArrayLength(arr interp.Value) (int32, error) {
	l.Log.Debugf("arraylength %s", arr)
	n, err := l.Next.GetArrayLength(arr)
	l.done("arraylength", err)
	return n, err
}

func (l *Logging) InvokeVirtual(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	l.Log.Debugf("invokevirtual %s->%s%s on %s", owner, name, desc, recv)
	v, err := l.Next.InvokeVirtual(recv, owner, name, desc, args)
	l.done("invokevirtual", err)
	return v, err
}

func (l *Logging) InvokeSpecial(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	l.Log.Debugf("invokespecial %s->%s%s on %s", owner, name, desc, recv)
	v, err := l.Next.InvokeSpecial(recv, owner, name, desc, args)
	l.done("invokespecial", err)
	return v, err
}

func (l *Logging) InvokeInterface(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	l.Log.Debugf("invokeinterface %s->%s%s on %s", owner, name, desc, recv)
	v, err := l.Next.InvokeInterface(recv, owner, name, desc, args)
	l.done("invokeinterface", err)
	return v, err
}

func (l *Logging) InvokeStatic(owner, name, desc string, args []interp.Value) (interp.Value, error) {
	l.Log.Debugf("invokestatic %s->%s%s", owner, name, desc)
	v, err := l.Next.InvokeStatic(owner, name, desc, args)
	l.done("invokestatic", err)
	return v, err
}

func (l *Logging) IsInstanceOf(v interp.Value, typeName string) (bool, error) {
	l.Log.Debugf("instanceof %s %s", v, typeName)
	ok, err := l.Next.IsInstanceOf(v, typeName)
	l.done("instanceof", err)
	return ok, err
}

func (l *Logging) LoadClass(typeName string) (interp.Value, error) {
	l.Log.Debugf("ldc class %s", typeName)
	v, err := l.Next.LoadClass(typeName)
	l.done("ldc class", err)
	return v, err
}

func (l *Logging) LoadString(s string) (interp.Value, error) {
	l.Log.Debugf("ldc string %q", s)
	v, err := l.Next.LoadString(s)
	l.done("ldc string", err)
	return v, err
}

func (l *Logging) NewInstance(owner, desc string, args []interp.Value) (interp.Value, error) {
	l.Log.Debugf("new %s%s", owner, desc)
	v, err := l.Next.NewInstance(owner, desc, args)
	l.done("new", err)
	return v, err
}

func (l *Logging) NewArray(desc string, length int32) (interp.Value, error) {
	l.Log.Debugf("newarray %s[%d]", desc, length)
	v, err := l.Next.NewArray(desc, length)
	l.done("newarray", err)
	return v, err
}

func (l *Logging) NewMultiDimensionalArray(desc string, dims []int32) (interp.Value, error) {
	l.Log.Debugf("multianewarray %s %v", desc, dims)
	v, err := l.Next.NewMultiDimensionalArray(desc, dims)
	l.done("multianewarray", err)
	return v, err
}

func (l *Logging) MonitorEnter(v interp.Value) error {
	l.Log.Debugf("monitorenter %s", v)
	err := l.Next.MonitorEnter(v)
	l.done("monitorenter", err)
	return err
}

func (l *Logging) MonitorExit(v interp.Value) error {
	l.Log.Debugf("monitorexit %s", v)
	err := l.Next.MonitorExit(v)
	l.done("monitorexit", err)
	return err
}
