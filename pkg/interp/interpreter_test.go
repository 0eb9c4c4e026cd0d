package interp

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/classfile/classfiletest"
)

// assemble builds class pkg/T with one method named run and returns what
// Evaluate needs. build adds pool entries and sets the code.
func assemble(t *testing.T, access uint16, desc string, build func(b *classfiletest.Builder, m *classfiletest.Method)) (*classfile.Definition, *classfile.MethodBody) {
	t.Helper()
	b := classfiletest.New("pkg/T", "java/lang/Object")
	m := b.Method(access, "run", desc).Limits(8, 8)
	build(b, m)
	def, err := classfile.ParseDefinition(b.Bytes())
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	body, ok := def.Method("run" + desc)
	if !ok {
		t.Fatalf("run%s not found", desc)
	}
	return def, body
}

// execute runs a static method built from code against ev.
func execute(t *testing.T, ev Evaluator, desc string, build func(b *classfiletest.Builder, m *classfiletest.Method), args ...Value) (Value, error) {
	t.Helper()
	def, body := assemble(t, classfile.AccPublic|classfile.AccStatic, desc, build)
	return Evaluate(def, body, nil, args, ev)
}

// executeAndGetInt runs raw bytecode as a static method taking the given
// ints and returning int.
func executeAndGetInt(t *testing.T, code []byte, locals ...int32) int32 {
	t.Helper()
	desc := "(" + strings.Repeat("I", len(locals)) + ")I"
	args := make([]Value, len(locals))
	for i, l := range locals {
		args[i] = IntValue(l)
	}
	v, err := execute(t, newStubEvaluator(), desc, func(_ *classfiletest.Builder, m *classfiletest.Method) {
		m.Code(code)
	}, args...)
	if err != nil {
		t.Fatalf("execution error: %v", err)
	}
	if v.Kind != KindInt {
		t.Fatalf("result kind: got %s, want int", v.Kind)
	}
	return v.Int
}

// expectThrown asserts err is a fault carrying a guest exception of class.
func expectThrown(t *testing.T, err error, class string) *InterpretationFault {
	t.Helper()
	var fault *InterpretationFault
	if !errors.As(err, &fault) {
		t.Fatalf("got %v, want *InterpretationFault", err)
	}
	thrown, ok := AsThrown(err)
	if !ok {
		t.Fatalf("fault cause %v is not a guest exception", fault.Cause)
	}
	if thrown.Class != class {
		t.Errorf("thrown class: got %q, want %q", thrown.Class, class)
	}
	return fault
}

func TestIconst(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		want   int32
	}{
		{"iconst_m1", 0x02, -1},
		{"iconst_0", 0x03, 0},
		{"iconst_1", 0x04, 1},
		{"iconst_2", 0x05, 2},
		{"iconst_3", 0x06, 3},
		{"iconst_4", 0x07, 4},
		{"iconst_5", 0x08, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executeAndGetInt(t, []byte{tt.opcode, 0xAC})
			if got != tt.want {
				t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestArithmeticInstructions(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int32
	}{
		{"iadd: 3+4=7", []byte{0x06, 0x07, 0x60, 0xAC}, 7},
		{"isub: 5-3=2", []byte{0x08, 0x06, 0x64, 0xAC}, 2},
		{"imul: 3*4=12", []byte{0x06, 0x07, 0x68, 0xAC}, 12},
		{"idiv: 5/2=2", []byte{0x08, 0x05, 0x6C, 0xAC}, 2},
		{"irem: -5%3=-2", []byte{0x08, 0x74, 0x06, 0x70, 0xAC}, -2},
		{"ineg: -(5)=-5", []byte{0x08, 0x74, 0xAC}, -5},
		{"ishl masks the count: 1<<33=2", []byte{0x04, 0x10, 33, 0x78, 0xAC}, 2},
		{"iushr: -1>>>28=15", []byte{0x02, 0x10, 28, 0x7C, 0xAC}, 15},
		{"ishr: -16>>2=-4", []byte{0x10, 0xF0, 0x05, 0x7A, 0xAC}, -4},
		{"ixor: 5^3=6", []byte{0x08, 0x06, 0x82, 0xAC}, 6},
		{"compound: (2+3)*4=20", []byte{0x05, 0x06, 0x60, 0x07, 0x68, 0xAC}, 20},
		{"i2b: 200 becomes -56", []byte{0x11, 0x00, 0xC8, 0x91, 0xAC}, -56},
		{"i2c: -1 becomes 65535", []byte{0x02, 0x92, 0xAC}, 65535},
		{"i2s: 40000 becomes -25536", []byte{0x11, 0x9C, 0x40, 0x92, 0x93, 0xAC}, -25536},
		{"lcmp: 1 vs 0", []byte{0x0A, 0x09, 0x94, 0xAC}, 1},
		{"ladd then l2i", []byte{0x0A, 0x0A, 0x61, 0x88, 0xAC}, 2},
		{"f2i of NaN is 0", []byte{0x0B, 0x0B, 0x6E, 0x8B, 0xAC}, 0},
		{"f2i of +Inf saturates", []byte{0x0C, 0x0B, 0x6E, 0x8B, 0xAC}, math.MaxInt32},
		{"fcmpl with NaN is -1", []byte{0x0B, 0x0B, 0x6E, 0x0C, 0x95, 0xAC}, -1},
		{"fcmpg with NaN is 1", []byte{0x0B, 0x0B, 0x6E, 0x0C, 0x96, 0xAC}, 1},
		{"dcmpg: 1.0 vs 0.0", []byte{0x0F, 0x0E, 0x98, 0xAC}, 1},
		{"d2i: 1.0+1.0", []byte{0x0F, 0x0F, 0x63, 0x8E, 0xAC}, 2},
		{"iinc: 0+5", []byte{0x03, 0x3B, 0x84, 0x00, 0x05, 0x1A, 0xAC}, 5},
		{"wide iinc: 0+1000", []byte{0x03, 0x3B, 0xC4, 0x84, 0x00, 0x00, 0x03, 0xE8, 0x1A, 0xAC}, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executeAndGetInt(t, tt.code)
			if got != tt.want {
				t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestOverflow(t *testing.T) {
	// Integer.MIN_VALUE / -1 wraps instead of trapping.
	got := executeAndGetInt(t, []byte{0x1A, 0x02, 0x6C, 0xAC}, math.MinInt32)
	if got != math.MinInt32 {
		t.Errorf("MIN_VALUE / -1: got %d", got)
	}
	got = executeAndGetInt(t, []byte{0x1A, 0x04, 0x60, 0xAC}, math.MaxInt32)
	if got != math.MinInt32 {
		t.Errorf("MAX_VALUE + 1: got %d", got)
	}
}

func TestWideValues(t *testing.T) {
	t.Run("ldc2_w long plus argument", func(t *testing.T) {
		v, err := execute(t, newStubEvaluator(), "(JI)J", func(b *classfiletest.Builder, m *classfiletest.Method) {
			idx := b.Long(1 << 40)
			// ldc2_w, lload_0, ladd, iload_2, i2l, ladd, lreturn
			m.Code(0x14, idx, 0x1E, 0x61, 0x1C, 0x85, 0x61, 0xAD)
		}, LongValue(2), IntValue(3))
		if err != nil {
			t.Fatal(err)
		}
		if v.Kind != KindLong || v.Long != 1<<40+5 {
			t.Errorf("got %v", v)
		}
	})

	t.Run("double arithmetic", func(t *testing.T) {
		v, err := execute(t, newStubEvaluator(), "(D)D", func(b *classfiletest.Builder, m *classfiletest.Method) {
			idx := b.Double(0.5)
			// dload_0, ldc2_w 0.5, dmul, dconst_1, drem, dreturn
			m.Code(0x26, 0x14, idx, 0x6B, 0x0F, 0x73, 0xAF)
		}, DoubleValue(7))
		if err != nil {
			t.Fatal(err)
		}
		if v.Double != 0.5 {
			t.Errorf("got %v, want 0.5", v)
		}
	})

	t.Run("float divide by zero is IEEE", func(t *testing.T) {
		v, err := execute(t, newStubEvaluator(), "()F", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(0x0C, 0x0B, 0x6E, 0xAE) // fconst_1, fconst_0, fdiv, freturn
		})
		if err != nil {
			t.Fatal(err)
		}
		if !math.IsInf(float64(v.Float), 1) {
			t.Errorf("got %v, want +Inf", v)
		}
	})

	t.Run("long divide by zero throws", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "()J", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(0x0A, 0x09, 0x6D, 0xAD) // lconst_1, lconst_0, ldiv, lreturn
		})
		expectThrown(t, err, "java/lang/ArithmeticException")
	})
}

func TestStackOps(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int32
	}{
		{"dup", []byte{0x06, 0x59, 0x60, 0xAC}, 6},
		{"swap: 2-1", []byte{0x04, 0x05, 0x5F, 0x64, 0xAC}, 1},
		{"dup_x1", []byte{0x04, 0x05, 0x5A, 0x64, 0x60, 0xAC}, 1},
		{"dup2 of two ints", []byte{0x04, 0x05, 0x5C, 0x60, 0x60, 0x64, 0xAC}, -4},
		{"dup2_x1 of two ints", []byte{0x04, 0x05, 0x06, 0x5D, 0x68, 0x60, 0x64, 0x68, 0xAC}, -8},
		{"dup2 of a long", []byte{0x0A, 0x5C, 0x61, 0x88, 0xAC}, 2},
		{"pop2 of a long", []byte{0x08, 0x0A, 0x58, 0xAC}, 5},
		{"pop2 of two ints", []byte{0x08, 0x04, 0x04, 0x58, 0xAC}, 5},
		{"dup_x2 over a long", []byte{0x0A, 0x08, 0x5B, 0x57, 0x88, 0x60, 0xAC}, 6},
		{"dup2_x2 long over long", []byte{0x09, 0x0A, 0x5E, 0x61, 0x61, 0x88, 0xAC}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := executeAndGetInt(t, tt.code); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBranch(t *testing.T) {
	// iload_0, ifeq +5, iconst_1, ireturn, iconst_2, ireturn
	ifeq := []byte{0x1A, 0x99, 0x00, 0x05, 0x04, 0xAC, 0x05, 0xAC}
	if got := executeAndGetInt(t, ifeq, 0); got != 2 {
		t.Errorf("ifeq taken: got %d, want 2", got)
	}
	if got := executeAndGetInt(t, ifeq, 7); got != 1 {
		t.Errorf("ifeq not taken: got %d, want 1", got)
	}

	// iload_0, iload_1, if_icmplt +5, iconst_1, ireturn, iconst_2, ireturn
	lt := []byte{0x1A, 0x1B, 0xA1, 0x00, 0x05, 0x04, 0xAC, 0x05, 0xAC}
	if got := executeAndGetInt(t, lt, 1, 2); got != 2 {
		t.Errorf("if_icmplt taken: got %d", got)
	}
	if got := executeAndGetInt(t, lt, 2, 1); got != 1 {
		t.Errorf("if_icmplt not taken: got %d", got)
	}

	// sum 1..n: iconst_0, istore_1, iload_0, ifle +13, iload_1, iload_0,
	// iadd, istore_1, iinc 0 -1, goto -11, iload_1, ireturn
	loop := []byte{0x03, 0x3C, 0x1A, 0x9E, 0x00, 0x0D, 0x1B, 0x1A, 0x60, 0x3C, 0x84, 0x00, 0xFF, 0xA7, 0xFF, 0xF5, 0x1B, 0xAC}
	if got := executeAndGetInt(t, loop, 10); got != 55 {
		t.Errorf("loop: got %d, want 55", got)
	}
}

func TestSwitch(t *testing.T) {
	// iload_0, tableswitch [0..2] -> 10, 20, 30, default -1
	table := classfiletest.Code(0x1A, 0xAA, 0, 0, int32(27), int32(0), int32(2), int32(29), int32(32), int32(35),
		0x02, 0xAC, 0x10, 10, 0xAC, 0x10, 20, 0xAC, 0x10, 30, 0xAC)
	// iload_0, lookupswitch {-5: 10, 100: 20}, default -1
	lookup := classfiletest.Code(0x1A, 0xAB, 0, 0, int32(27), int32(2), int32(-5), int32(29), int32(100), int32(32),
		0x02, 0xAC, 0x10, 10, 0xAC, 0x10, 20, 0xAC)

	tests := []struct {
		name string
		code []byte
		in   int32
		want int32
	}{
		{"tableswitch 0", table, 0, 10},
		{"tableswitch 2", table, 2, 30},
		{"tableswitch above", table, 5, -1},
		{"tableswitch below", table, -1, -1},
		{"lookupswitch -5", lookup, -5, 10},
		{"lookupswitch 100", lookup, 100, 20},
		{"lookupswitch miss", lookup, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := executeAndGetInt(t, tt.code, tt.in); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExceptionTable(t *testing.T) {
	// 0 iconst_1, 1 iconst_0, 2 idiv, 3 ireturn, 4 pop, 5 bipush 7, 7 ireturn
	divide := []any{0x04, 0x03, 0x6C, 0xAC, 0x57, 0x10, 7, 0xAC}

	t.Run("matching catch type", func(t *testing.T) {
		v, err := execute(t, newStubEvaluator(), "()I", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(divide...).Handler(0, 4, 4, "java/lang/ArithmeticException")
		})
		if err != nil {
			t.Fatal(err)
		}
		if v.Int != 7 {
			t.Errorf("got %d, want 7", v.Int)
		}
	})

	t.Run("superclass catch type", func(t *testing.T) {
		v, err := execute(t, newStubEvaluator(), "()I", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(divide...).Handler(0, 4, 4, "java/lang/RuntimeException")
		})
		if err != nil || v.Int != 7 {
			t.Errorf("got %v, %v", v, err)
		}
	})

	t.Run("first matching entry wins", func(t *testing.T) {
		v, err := execute(t, newStubEvaluator(), "()I", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			// 8 pop, 9 bipush 9, 11 ireturn
			m.Code(append(divide, 0x57, 0x10, 9, 0xAC)...).
				Handler(0, 4, 4, "java/lang/ClassCastException").
				Handler(0, 4, 8, "").
				Handler(0, 4, 4, "")
		})
		if err != nil || v.Int != 9 {
			t.Errorf("got %v, %v; want 9", v, err)
		}
	})

	t.Run("non-matching catch type propagates", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "()I", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(divide...).Handler(0, 4, 4, "java/lang/ClassCastException")
		})
		fault := expectThrown(t, err, "java/lang/ArithmeticException")
		if fault.PC != 2 || fault.Class != "pkg/T" || fault.Method != "run()I" {
			t.Errorf("fault location: got %s.%s pc=%d", fault.Class, fault.Method, fault.PC)
		}
	})

	t.Run("pc outside range propagates", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "()I", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(divide...).Handler(0, 2, 4, "")
		})
		expectThrown(t, err, "java/lang/ArithmeticException")
	})

	t.Run("exception raised by the evaluator", func(t *testing.T) {
		ev := newStubEvaluator()
		v, err := execute(t, ev, "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
			fail := b.MethodRef("pkg/Svc", "fail", "()V")
			// 0 invokestatic fail, 3 iconst_1, 4 ireturn, 5 astore_0, 6 iconst_2, 7 ireturn
			m.Code(0xB8, fail, 0x04, 0xAC, 0x4B, 0x05, 0xAC).Handler(0, 3, 5, "java/lang/Exception")
		})
		if err != nil || v.Int != 2 {
			t.Errorf("got %v, %v; want 2", v, err)
		}
	})

	t.Run("internal errors are not catchable", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
			broken := b.MethodRef("pkg/Svc", "broken", "()V")
			m.Code(0xB8, broken, 0x04, 0xAC, 0x57, 0x05, 0xAC).Handler(0, 3, 5, "")
		})
		var fault *InterpretationFault
		if !errors.As(err, &fault) {
			t.Fatalf("got %v, want *InterpretationFault", err)
		}
		if _, ok := AsThrown(err); ok {
			t.Errorf("internal error surfaced as a guest exception: %v", err)
		}
		if !strings.Contains(err.Error(), "no such method") {
			t.Errorf("cause lost: %v", err)
		}
	})
}

func TestAthrow(t *testing.T) {
	ev := newStubEvaluator()
	_, err := execute(t, ev, "()V", func(b *classfiletest.Builder, m *classfiletest.Method) {
		cls := b.Class("java/lang/IllegalStateException")
		init := b.MethodRef("java/lang/IllegalStateException", "<init>", "()V")
		m.Code(0xBB, cls, 0x59, 0xB7, init, 0xBF).Line(0, 12)
	})
	fault := expectThrown(t, err, "java/lang/IllegalStateException")
	if fault.Line != 12 {
		t.Errorf("line: got %d, want 12", fault.Line)
	}
	if !strings.Contains(ev.callLog(), "new java/lang/IllegalStateException()V") {
		t.Errorf("exception not constructed through the evaluator:\n%s", ev.callLog())
	}

	_, err = execute(t, newStubEvaluator(), "()V", func(_ *classfiletest.Builder, m *classfiletest.Method) {
		m.Code(0x01, 0xBF) // aconst_null, athrow
	})
	expectThrown(t, err, "java/lang/NullPointerException")
}

func TestNewInstanceReplacesUninitialized(t *testing.T) {
	ev := newStubEvaluator()
	v, err := execute(t, ev, "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
		cls := b.Class("pkg/Point")
		init := b.MethodRef("pkg/Point", "<init>", "(I)V")
		field := b.FieldRef("pkg/Point", "arg0", "I")
		// new, dup, astore_0, bipush 5, invokespecial <init>, aload_0, getfield, ireturn
		m.Code(0xBB, cls, 0x59, 0x4B, 0x10, 5, 0xB7, init, 0x2A, 0xB4, field, 0xAC)
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.Int != 5 {
		t.Errorf("got %d, want 5", v.Int)
	}
	if ev.callLog() != "new pkg/Point(I)V" {
		t.Errorf("calls:\n%s", ev.callLog())
	}
}

func TestInvokeDelegation(t *testing.T) {
	t.Run("invokestatic", func(t *testing.T) {
		ev := newStubEvaluator()
		v, err := execute(t, ev, "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
			twice := b.MethodRef("pkg/Calc", "twice", "(I)I")
			m.Code(0x10, 21, 0xB8, twice, 0xAC)
		})
		if err != nil || v.Int != 42 {
			t.Fatalf("got %v, %v", v, err)
		}
		if ev.callLog() != "static pkg/Calc.twice(I)I" {
			t.Errorf("calls:\n%s", ev.callLog())
		}
	})

	t.Run("invokevirtual on a string literal", func(t *testing.T) {
		v, err := execute(t, newStubEvaluator(), "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
			s := b.String("hello")
			length := b.MethodRef("java/lang/String", "length", "()I")
			m.Code(0x12, byte(s), 0xB6, length, 0xAC)
		})
		if err != nil || v.Int != 5 {
			t.Errorf("got %v, %v", v, err)
		}
	})

	t.Run("invokeinterface", func(t *testing.T) {
		ev := newStubEvaluator()
		_, err := execute(t, ev, "(Ljava/lang/Runnable;)V", func(b *classfiletest.Builder, m *classfiletest.Method) {
			run := b.InterfaceMethodRef("java/lang/Runnable", "run", "()V")
			m.Code(0x2A, 0xB9, run, 1, 0, 0xB1)
		}, RefValue("task", ""))
		if err != nil {
			t.Fatal(err)
		}
		if ev.callLog() != "interface java/lang/Runnable.run()V" {
			t.Errorf("calls:\n%s", ev.callLog())
		}
	})

	t.Run("null receiver", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
			length := b.MethodRef("java/lang/String", "length", "()I")
			m.Code(0x01, 0xB6, length, 0xAC)
		})
		expectThrown(t, err, "java/lang/NullPointerException")
	})
}

func TestFieldsAndStatics(t *testing.T) {
	ev := newStubEvaluator()
	v, err := execute(t, ev, "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
		f := b.FieldRef("pkg/T", "small", "B")
		// sipush 300, putstatic, getstatic, ireturn
		m.Code(0x11, int16(300), 0xB3, f, 0xB2, f, 0xAC)
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.Int != 44 {
		t.Errorf("byte narrowing: got %d, want 44", v.Int)
	}
	if got := ev.statics["pkg/T.small"]; got.Int != 44 {
		t.Errorf("stored static: got %v", got)
	}

	_, err = execute(t, newStubEvaluator(), "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
		f := b.FieldRef("pkg/Point", "x", "I")
		m.Code(0x01, 0xB4, f, 0xAC)
	})
	expectThrown(t, err, "java/lang/NullPointerException")
}

func TestArrays(t *testing.T) {
	// iconst_3, newarray int, astore_0, aload_0, iconst_1, bipush 7, iastore,
	// aload_0, iconst_1, iaload, aload_0, arraylength, iadd, ireturn
	code := []byte{0x06, 0xBC, 10, 0x4B, 0x2A, 0x04, 0x10, 7, 0x4F, 0x2A, 0x04, 0x2E, 0x2A, 0xBE, 0x60, 0xAC}
	if got := executeAndGetInt(t, code); got != 10 {
		t.Errorf("newarray/iastore/iaload: got %d, want 10", got)
	}

	v, err := execute(t, newStubEvaluator(), "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
		desc := b.Class("[[I")
		// iconst_2, iconst_3, multianewarray 2, iconst_1, aaload, arraylength, ireturn
		m.Code(0x05, 0x06, 0xC5, desc, 2, 0x04, 0x32, 0xBE, 0xAC)
	})
	if err != nil || v.Int != 3 {
		t.Errorf("multianewarray: got %v, %v", v, err)
	}

	_, err = execute(t, newStubEvaluator(), "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
		cls := b.Class("java/lang/String")
		// iconst_1, anewarray, iconst_2, aaload, pop, iconst_0, ireturn
		m.Code(0x04, 0xBD, cls, 0x05, 0x32, 0x57, 0x03, 0xAC)
	})
	expectThrown(t, err, "java/lang/ArrayIndexOutOfBoundsException")
}

func TestTypeChecks(t *testing.T) {
	v, err := execute(t, newStubEvaluator(), "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
		s := b.String("s")
		cls := b.Class("java/lang/String")
		m.Code(0x12, byte(s), 0xC1, cls, 0xAC)
	})
	if err != nil || v.Int != 1 {
		t.Errorf("instanceof String: got %v, %v", v, err)
	}

	v, err = execute(t, newStubEvaluator(), "()I", func(b *classfiletest.Builder, m *classfiletest.Method) {
		cls := b.Class("java/lang/String")
		m.Code(0x01, 0xC1, cls, 0xAC)
	})
	if err != nil || v.Int != 0 {
		t.Errorf("instanceof null: got %v, %v", v, err)
	}

	v, err = execute(t, newStubEvaluator(), "()Ljava/lang/Object;", func(b *classfiletest.Builder, m *classfiletest.Method) {
		cls := b.Class("pkg/Point")
		m.Code(0x01, 0xC0, cls, 0xB0)
	})
	if err != nil || !v.IsNull() {
		t.Errorf("checkcast null: got %v, %v", v, err)
	}

	_, err = execute(t, newStubEvaluator(), "()Ljava/lang/Object;", func(b *classfiletest.Builder, m *classfiletest.Method) {
		s := b.String("s")
		cls := b.Class("pkg/Point")
		m.Code(0x12, byte(s), 0xC0, cls, 0xB0)
	})
	expectThrown(t, err, "java/lang/ClassCastException")
}

func TestMonitors(t *testing.T) {
	ev := newStubEvaluator()
	_, err := execute(t, ev, "(Ljava/lang/Object;)V", func(_ *classfiletest.Builder, m *classfiletest.Method) {
		m.Code(0x2A, 0xC2, 0x2A, 0xC2, 0x2A, 0xC3, 0xB1)
	}, RefValue("lock", ""))
	if err != nil {
		t.Fatal(err)
	}
	if ev.locks != 1 {
		t.Errorf("monitor depth: got %d, want 1", ev.locks)
	}
}

type boxedInt int32

func (b boxedInt) Unbox() any { return int32(b) }

func TestArgumentBinding(t *testing.T) {
	t.Run("unboxes references for primitive parameters", func(t *testing.T) {
		v, err := execute(t, newStubEvaluator(), "(IZ)I", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(0x1A, 0x1B, 0x60, 0xAC)
		}, RefValue(boxedInt(41), "Ljava/lang/Integer;"), IntValue(9))
		if err != nil {
			t.Fatal(err)
		}
		if v.Int != 42 {
			t.Errorf("got %d, want 42 (boolean 9 narrows to 1)", v.Int)
		}
	})

	t.Run("receiver is local 0", func(t *testing.T) {
		def, body := assemble(t, classfile.AccPublic, "()Ljava/lang/Object;", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(0x2A, 0xB0)
		})
		recv := RefValue("self", "Lpkg/T;")
		v, err := Evaluate(def, body, &recv, nil, newStubEvaluator())
		if err != nil {
			t.Fatal(err)
		}
		if v.Ref != "self" {
			t.Errorf("got %v", v)
		}
		if _, err := Evaluate(def, body, nil, nil, newStubEvaluator()); err == nil {
			t.Error("expected an error without a receiver")
		}
	})

	t.Run("argument count mismatch", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "(I)I", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(0x1A, 0xAC)
		})
		var fault *InterpretationFault
		if !errors.As(err, &fault) {
			t.Errorf("got %v, want *InterpretationFault", err)
		}
	})
}

func TestFaults(t *testing.T) {
	t.Run("invokedynamic is unsupported", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "()V", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(0xBA, uint16(1), uint16(0), 0xB1)
		})
		if !errors.Is(err, ErrUnsupportedOpcode) {
			t.Errorf("got %v, want ErrUnsupportedOpcode", err)
		}
	})

	t.Run("running off the end", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "()V", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Code(0x03)
		})
		var fault *InterpretationFault
		if !errors.As(err, &fault) {
			t.Errorf("got %v, want *InterpretationFault", err)
		}
	})

	t.Run("operand stack overflow is recovered", func(t *testing.T) {
		_, err := execute(t, newStubEvaluator(), "()V", func(_ *classfiletest.Builder, m *classfiletest.Method) {
			m.Limits(1, 0).Code(0x03, 0x03, 0xB1)
		})
		var fault *InterpretationFault
		if !errors.As(err, &fault) || !strings.Contains(err.Error(), "operand stack overflow") {
			t.Errorf("got %v", err)
		}
	})

	t.Run("nested faults are not re-wrapped", func(t *testing.T) {
		inner := &InterpretationFault{Class: "pkg/Inner", Method: "boom()V", Cause: errors.New("boom")}
		ev := &faultingEvaluator{stubEvaluator: newStubEvaluator(), err: inner}
		_, err := execute(t, ev, "()V", func(b *classfiletest.Builder, m *classfiletest.Method) {
			boom := b.MethodRef("pkg/Inner", "boom", "()V")
			m.Code(0xB8, boom, 0xB1)
		})
		if err != inner {
			t.Errorf("got %v, want the inner fault unchanged", err)
		}
	})
}

type faultingEvaluator struct {
	*stubEvaluator
	err error
}

func (e *faultingEvaluator) InvokeStatic(owner, name, desc string, args []Value) (Value, error) {
	return Value{}, e.err
}
