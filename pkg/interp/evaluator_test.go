package interp

import (
	"fmt"
	"strings"
)

// stubEvaluator is a minimal in-memory Evaluator for instruction tests.
type stubEvaluator struct {
	statics map[string]Value
	calls   []string
	locks   int
}

type stubObject struct {
	class  string
	fields map[string]Value
}

type stubArray struct {
	elems []Value
}

var stubSupers = map[string]string{
	"java/lang/ArithmeticException":   "java/lang/RuntimeException",
	"java/lang/NullPointerException":  "java/lang/RuntimeException",
	"java/lang/ClassCastException":    "java/lang/RuntimeException",
	"java/lang/IllegalStateException": "java/lang/RuntimeException",
	"java/lang/RuntimeException":      "java/lang/Exception",
	"java/lang/Exception":             "java/lang/Throwable",
	"java/lang/Throwable":             "java/lang/Object",
	"pkg/Point":                       "java/lang/Object",
}

func newStubEvaluator() *stubEvaluator {
	return &stubEvaluator{statics: make(map[string]Value)}
}

func (e *stubEvaluator) GetField(obj Value, owner, name, desc string) (Value, error) {
	o := obj.Ref.(*stubObject)
	if v, ok := o.fields[name]; ok {
		return v, nil
	}
	return ZeroOf(desc), nil
}

func (e *stubEvaluator) SetField(obj Value, owner, name, desc string, v Value) error {
	obj.Ref.(*stubObject).fields[name] = v
	return nil
}

func (e *stubEvaluator) GetStaticField(owner, name, desc string) (Value, error) {
	if v, ok := e.statics[owner+"."+name]; ok {
		return v, nil
	}
	return ZeroOf(desc), nil
}

func (e *stubEvaluator) SetStaticField(owner, name, desc string, v Value) error {
	e.statics[owner+"."+name] = v
	return nil
}

func (e *stubEvaluator) GetArrayElement(arr Value, index int32, elemDesc string) (Value, error) {
	a := arr.Ref.(*stubArray)
	if index < 0 || int(index) >= len(a.elems) {
		return Value{}, e.throw("java/lang/ArrayIndexOutOfBoundsException")
	}
	return a.elems[index], nil
}

func (e *stubEvaluator) SetArrayElement(arr Value, index int32, elemDesc string, v Value) error {
	a := arr.Ref.(*stubArray)
	if index < 0 || int(index) >= len(a.elems) {
		return e.throw("java/lang/ArrayIndexOutOfBoundsException")
	}
	a.elems[index] = v
	return nil
}

func (e *stubEvaluator) GetArrayLength(arr Value) (int32, error) {
	return int32(len(arr.Ref.(*stubArray).elems)), nil
}

func (e *stubEvaluator) InvokeVirtual(recv Value, owner, name, desc string, args []Value) (Value, error) {
	e.calls = append(e.calls, "virtual "+owner+"."+name+desc)
	if name == "length" {
		return IntValue(int32(len(recv.Ref.(string)))), nil
	}
	return Void, nil
}

func (e *stubEvaluator) InvokeStatic(owner, name, desc string, args []Value) (Value, error) {
	e.calls = append(e.calls, "static "+owner+"."+name+desc)
	switch name {
	case "twice":
		return IntValue(args[0].Int * 2), nil
	case "fail":
		return Value{}, e.throw("java/lang/IllegalStateException")
	case "broken":
		return Value{}, fmt.Errorf("no such method %s.%s", owner, name)
	}
	return Void, nil
}

func (e *stubEvaluator) InvokeSpecial(recv Value, owner, name, desc string, args []Value) (Value, error) {
	e.calls = append(e.calls, "special "+owner+"."+name+desc)
	return Void, nil
}

func (e *stubEvaluator) InvokeInterface(recv Value, owner, name, desc string, args []Value) (Value, error) {
	e.calls = append(e.calls, "interface "+owner+"."+name+desc)
	return Void, nil
}

func (e *stubEvaluator) IsInstanceOf(v Value, typeName string) (bool, error) {
	o, ok := v.Ref.(*stubObject)
	if !ok {
		_, isString := v.Ref.(string)
		return isString && (typeName == "java/lang/String" || typeName == "java/lang/Object"), nil
	}
	for c := o.class; c != ""; c = stubSupers[c] {
		if c == typeName {
			return true, nil
		}
	}
	return false, nil
}

func (e *stubEvaluator) LoadClass(typeName string) (Value, error) {
	return RefValue("class "+typeName, "Ljava/lang/Class;"), nil
}

func (e *stubEvaluator) LoadString(s string) (Value, error) {
	return RefValue(s, "Ljava/lang/String;"), nil
}

func (e *stubEvaluator) NewInstance(owner, desc string, args []Value) (Value, error) {
	e.calls = append(e.calls, "new "+owner+desc)
	o := &stubObject{class: owner, fields: make(map[string]Value)}
	if len(args) > 0 {
		o.fields["arg0"] = args[0]
	}
	return RefValue(o, "L"+owner+";"), nil
}

func (e *stubEvaluator) NewArray(desc string, length int32) (Value, error) {
	if length < 0 {
		return Value{}, e.throw("java/lang/NegativeArraySizeException")
	}
	elems := make([]Value, length)
	for i := range elems {
		elems[i] = ZeroOf(desc[1:])
	}
	return RefValue(&stubArray{elems: elems}, desc), nil
}

func (e *stubEvaluator) NewMultiDimensionalArray(desc string, dims []int32) (Value, error) {
	if len(dims) == 1 {
		return e.NewArray(desc, dims[0])
	}
	outer, _ := e.NewArray(desc, dims[0])
	for i := range outer.Ref.(*stubArray).elems {
		inner, err := e.NewMultiDimensionalArray(desc[1:], dims[1:])
		if err != nil {
			return Value{}, err
		}
		outer.Ref.(*stubArray).elems[i] = inner
	}
	return outer, nil
}

func (e *stubEvaluator) MonitorEnter(v Value) error {
	e.locks++
	return nil
}

func (e *stubEvaluator) MonitorExit(v Value) error {
	e.locks--
	return nil
}

func (e *stubEvaluator) throw(class string) error {
	o := &stubObject{class: class, fields: make(map[string]Value)}
	return &Thrown{Value: RefValue(o, "L"+class+";"), Class: class}
}

func (e *stubEvaluator) callLog() string {
	return strings.Join(e.calls, "\n")
}
