// Package interp executes JVM method bodies one instruction at a time. It
// keeps its own frames but never touches host objects: every field, call,
// array, allocation and type test goes through an Evaluator.
package interp

import (
	"errors"
	"fmt"

	"github.com/daimatz/liveedit/pkg/classfile"
)

// machine executes one method body.
type machine struct {
	def    *classfile.Definition
	method *classfile.MethodBody
	ev     Evaluator
	pc     int // start of the current instruction
}

// Evaluate runs method of def. receiver must be set for instance methods and
// is bound to local 0; args are bound by parameter descriptor, unboxing
// references passed for primitive parameters. It returns Void for void
// methods. Any failure is an *InterpretationFault, unless it already was one
// raised by a nested interpreted call.
func Evaluate(def *classfile.Definition, method *classfile.MethodBody, receiver *Value, args []Value, ev Evaluator) (result Value, err error) {
	m := &machine{def: def, method: method, ev: ev}
	if method.Code == nil {
		return Value{}, m.fault(fmt.Errorf("method %s has no code", method.Key()))
	}
	if len(args) != len(method.Type.Params) {
		return Value{}, m.fault(fmt.Errorf("got %d arguments, want %d", len(args), len(method.Type.Params)))
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = Value{}, m.fault(fmt.Errorf("internal error: %v", r))
		}
	}()

	frame := NewFrame(method.MaxLocals, method.MaxStack, method.Code)
	slot := 0
	if !method.IsStatic() {
		if receiver == nil {
			return Value{}, m.fault(errors.New("instance method called without a receiver"))
		}
		frame.SetLocal(0, *receiver)
		slot = 1
	}
	for i, p := range method.Type.Params {
		v, err := Coerce(args[i], p)
		if err != nil {
			return Value{}, m.fault(fmt.Errorf("argument %d: %w", i, err))
		}
		frame.SetLocal(slot, v)
		slot += classfile.SlotSize(p)
	}

	return m.run(frame)
}

func (m *machine) run(frame *Frame) (Value, error) {
	for {
		if frame.PC >= len(frame.Code) {
			return Value{}, m.fault(errors.New("execution ran past the end of the code"))
		}
		m.pc = frame.PC
		opcode := frame.ReadU8()

		retVal, hasReturn, err := m.executeInstruction(frame, opcode)
		if err != nil {
			handler, exc, herr := m.findHandler(err)
			if herr != nil {
				return Value{}, m.fault(herr)
			}
			if handler < 0 {
				return Value{}, m.fault(err)
			}
			frame.Clear()
			frame.Push(exc)
			frame.PC = handler
			continue
		}
		if hasReturn {
			return retVal, nil
		}
	}
}

// findHandler scans the exception table in order for an entry covering the
// current instruction that catches err. It returns -1 when err is not a
// guest exception or nothing matches.
func (m *machine) findHandler(err error) (int, Value, error) {
	thrown, ok := AsThrown(err)
	if !ok {
		return -1, Value{}, nil
	}
	for _, h := range m.method.Handlers {
		if m.pc < int(h.StartPC) || m.pc >= int(h.EndPC) {
			continue
		}
		if h.CatchType != 0 {
			name, err := classfile.GetClassName(m.def.Pool, h.CatchType)
			if err != nil {
				return -1, Value{}, fmt.Errorf("exception table: %w", err)
			}
			match, err := m.ev.IsInstanceOf(thrown.Value, name)
			if err != nil {
				return -1, Value{}, fmt.Errorf("matching %s against %s: %w", thrown.Class, name, err)
			}
			if !match {
				continue
			}
		}
		return int(h.HandlerPC), thrown.Value, nil
	}
	return -1, Value{}, nil
}

func (m *machine) fault(err error) error {
	var f *InterpretationFault
	if errors.As(err, &f) {
		return err
	}
	return &InterpretationFault{
		Class:  m.def.Name,
		Method: m.method.Key(),
		PC:     m.pc,
		Line:   m.method.LineAt(m.pc),
		Cause:  err,
	}
}

// raise builds a guest exception of class through the evaluator.
func (m *machine) raise(class, msg string) error {
	desc, args := "()V", []Value(nil)
	if msg != "" {
		s, err := m.ev.LoadString(msg)
		if err != nil {
			return err
		}
		desc, args = "(Ljava/lang/String;)V", []Value{s}
	}
	exc, err := m.ev.NewInstance(class, desc, args)
	if err != nil {
		return fmt.Errorf("constructing %s: %w", class, err)
	}
	return &Thrown{Value: exc, Class: class, Message: msg}
}

func (m *machine) nullPointer(what string) error {
	return m.raise("java/lang/NullPointerException", what)
}
