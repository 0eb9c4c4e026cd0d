package fakehost

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/daimatz/liveedit/pkg/host"
)

func expectException(t *testing.T, err error, class string) {
	t.Helper()
	var exc *host.Exception
	if !errors.As(err, &exc) {
		t.Fatalf("got %v, want *host.Exception %s", err, class)
	}
	if exc.ClassName != class {
		t.Errorf("exception class: got %q, want %q", exc.ClassName, class)
	}
}

func shapeClasses() []*Class {
	return []*Class{
		{ClassName: "pkg/Shape", Abstract: true, Methods: []*Method{
			Constructor("()V", nil),
			Abstract("area", "()I"),
			Virtual("describe", "()Ljava/lang/String;", func(h *Host, recv any, _ []any) (any, error) {
				return "shape", nil
			}),
		}},
		{ClassName: "pkg/Square", Super: "pkg/Shape", Implements: []string{"java/lang/Runnable"}, Methods: []*Method{
			Constructor("(I)V", func(h *Host, recv any, args []any) (any, error) {
				recv.(*Object).Set("side", args[0])
				return nil, nil
			}),
			Virtual("area", "()I", func(h *Host, recv any, _ []any) (any, error) {
				s := recv.(*Object).Get("side").(int32)
				return s * s, nil
			}),
			Virtual("describe", "()Ljava/lang/String;", func(h *Host, recv any, _ []any) (any, error) {
				return "square", nil
			}),
			Virtual("run", "()V", nil),
		}, Statics: map[string]any{"COUNT": int32(3)}},
	}
}

func newShapeHost() *Host {
	h := New(30)
	for _, c := range shapeClasses() {
		h.Define(c)
	}
	return h
}

func TestInvoke(t *testing.T) {
	h := newShapeHost()
	sq, err := h.NewInstance("pkg/Square", "(I)V", []any{int32(4)})
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	t.Run("virtual dispatches on runtime class", func(t *testing.T) {
		got, err := h.InvokeVirtual(sq, "pkg/Shape", "area", "()I", nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != int32(16) {
			t.Errorf("area: got %v, want 16", got)
		}
	})

	t.Run("special calls the named owner", func(t *testing.T) {
		got, err := h.InvokeSpecial(sq, "pkg/Shape", "describe", "()Ljava/lang/String;", nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != "shape" {
			t.Errorf("super.describe: got %v, want shape", got)
		}
	})

	t.Run("inherited Object methods", func(t *testing.T) {
		got, err := h.InvokeVirtual(sq, "java/lang/Object", "equals", "(Ljava/lang/Object;)Z", []any{sq})
		if err != nil {
			t.Fatal(err)
		}
		if got != true {
			t.Errorf("equals(self): got %v", got)
		}
	})

	t.Run("method without body", func(t *testing.T) {
		_, err := h.InvokeVirtual(sq, "java/lang/Runnable", "run", "()V", nil)
		expectException(t, err, "java/lang/AbstractMethodError")
	})

	t.Run("missing method", func(t *testing.T) {
		_, err := h.InvokeVirtual(sq, "pkg/Square", "perimeter", "()I", nil)
		expectException(t, err, "java/lang/NoSuchMethodError")
		if h.HasMethod("pkg/Square", "perimeter", "()I") {
			t.Error("HasMethod(perimeter): got true")
		}
		if !h.HasMethod("pkg/Square", "hashCode", "()I") {
			t.Error("HasMethod(hashCode): got false")
		}
	})

	t.Run("abstract classes cannot be instantiated", func(t *testing.T) {
		_, err := h.NewInstance("pkg/Shape", "()V", nil)
		expectException(t, err, "java/lang/InstantiationError")
	})
}

func TestAPILevelGating(t *testing.T) {
	tests := []struct {
		level int
		want  bool
	}{
		{level: 21, want: false},
		{level: 24, want: true},
	}
	for _, tt := range tests {
		h := New(tt.level)
		if got := h.HasMethod("java/lang/Math", "floorMod", "(II)I"); got != tt.want {
			t.Errorf("level %d: HasMethod(Math.floorMod): got %v, want %v", tt.level, got, tt.want)
		}
		if !h.HasMethod("liveedit/Backports", "floorMod", "(II)I") {
			t.Errorf("level %d: Backports.floorMod missing", tt.level)
		}
	}

	_, err := New(21).InvokeStatic("java/lang/Math", "floorMod", "(II)I", []any{int32(-7), int32(3)})
	expectException(t, err, "java/lang/NoSuchMethodError")
}

func TestStatics(t *testing.T) {
	h := newShapeHost()

	v, err := h.GetStatic("pkg/Square", "COUNT", "I")
	if err != nil || v != int32(3) {
		t.Fatalf("GetStatic: got %v, %v", v, err)
	}
	if err := h.SetStatic("pkg/Square", "COUNT", "I", int32(4)); err != nil {
		t.Fatal(err)
	}
	if v, _ := h.GetStatic("pkg/Square", "COUNT", "I"); v != int32(4) {
		t.Errorf("after SetStatic: got %v", v)
	}

	_, err = h.GetStatic("pkg/Square", "MISSING", "I")
	expectException(t, err, "java/lang/NoSuchFieldError")
	_, err = h.GetStatic("pkg/Nowhere", "X", "I")
	expectException(t, err, "java/lang/NoClassDefFoundError")
}

func TestArrays(t *testing.T) {
	h := New(30)

	t.Run("zeroed primitive elements", func(t *testing.T) {
		arr, err := h.NewArray("[Z", []int32{2})
		if err != nil {
			t.Fatal(err)
		}
		v, _ := h.ArrayGet(arr, 1)
		if v != false {
			t.Errorf("element: got %v (%T), want false", v, v)
		}
	})

	t.Run("store narrows to element type", func(t *testing.T) {
		arr, _ := h.NewArray("[B", []int32{1})
		if err := h.ArraySet(arr, 0, int32(200)); err != nil {
			t.Fatal(err)
		}
		v, _ := h.ArrayGet(arr, 0)
		if v != int8(-56) {
			t.Errorf("element: got %v (%T), want int8(-56)", v, v)
		}
	})

	t.Run("multi-dimensional", func(t *testing.T) {
		arr, err := h.NewArray("[[I", []int32{2, 3})
		if err != nil {
			t.Fatal(err)
		}
		inner, _ := h.ArrayGet(arr, 1)
		n, _ := h.ArrayLength(inner)
		if n != 3 {
			t.Errorf("inner length: got %d, want 3", n)
		}
		if ok, _ := h.IsInstance(arr, "[Ljava/lang/Object;"); !ok {
			t.Error("[[I should be an Object[]")
		}
	})

	t.Run("bounds and sizes", func(t *testing.T) {
		arr, _ := h.NewArray("[I", []int32{1})
		_, err := h.ArrayGet(arr, 1)
		expectException(t, err, "java/lang/ArrayIndexOutOfBoundsException")
		_, err = h.NewArray("[I", []int32{-1})
		expectException(t, err, "java/lang/NegativeArraySizeException")
	})
}

func TestIsInstance(t *testing.T) {
	h := newShapeHost()
	sq, _ := h.NewInstance("pkg/Square", "(I)V", []any{int32(1)})
	exc := NewObject("java/lang/IllegalStateException")

	tests := []struct {
		obj    any
		target string
		want   bool
	}{
		{sq, "pkg/Square", true},
		{sq, "pkg/Shape", true},
		{sq, "java/lang/Runnable", true},
		{sq, "java/util/Map", false},
		{exc, "java/lang/RuntimeException", true},
		{exc, "java/lang/Error", false},
		{"s", "java/lang/String", true},
		{&Integer{Value: 1}, "java/lang/Number", true},
		{nil, "java/lang/Object", false},
	}
	for _, tt := range tests {
		got, err := h.IsInstance(tt.obj, tt.target)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("IsInstance(%v, %s): got %v, want %v", tt.obj, tt.target, got, tt.want)
		}
	}
}

type recordingHandler struct {
	calls []host.Method
}

func (r *recordingHandler) Invoke(proxy any, m host.Method, args []any) (any, error) {
	r.calls = append(r.calls, m)
	if m.Name == "hashCode" {
		return int32(1), nil
	}
	return nil, nil
}

func TestProxy(t *testing.T) {
	h := New(30)
	h.Define(&Class{ClassName: "pkg/Greeter", Interface: true, Methods: []*Method{
		Abstract("greet", "()Ljava/lang/String;"),
	}})
	greeter, _ := h.ResolveType("pkg/Greeter")
	rec := &recordingHandler{}

	p, err := h.CreateProxy([]host.Type{greeter}, rec)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := h.ProxyHandler(p); !ok || got != rec {
		t.Fatalf("ProxyHandler: got %v, %v", got, ok)
	}
	if _, ok := h.ProxyHandler(NewObject("pkg/Other")); ok {
		t.Error("ProxyHandler on a plain object: got ok")
	}
	if ok, _ := h.IsInstance(p, "pkg/Greeter"); !ok {
		t.Error("proxy should implement pkg/Greeter")
	}

	h.InvokeVirtual(p, "pkg/Greeter", "greet", "()Ljava/lang/String;", nil)
	h.InvokeVirtual(p, "pkg/Greeter", "hashCode", "()I", nil)

	want := []host.Method{
		{Owner: "pkg/Greeter", Name: "greet", Descriptor: "()Ljava/lang/String;"},
		{Owner: "java/lang/Object", Name: "hashCode", Descriptor: "()I"},
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("handler calls mismatch (-want +got):\n%s", diff)
	}

	object, _ := h.ResolveType("java/lang/Object")
	_, err = h.CreateProxy([]host.Type{object}, rec)
	expectException(t, err, "java/lang/IllegalArgumentException")
}

func TestMonitors(t *testing.T) {
	h := New(30)
	obj := NewObject("java/lang/Object")

	h.MonitorEnter(obj)
	h.MonitorEnter(obj)
	if n := h.Monitors(obj); n != 2 {
		t.Errorf("after two enters: got %d", n)
	}
	h.MonitorExit(obj)
	h.MonitorExit(obj)
	err := h.MonitorExit(obj)
	expectException(t, err, "java/lang/IllegalMonitorStateException")
}

func TestIdentity(t *testing.T) {
	h := New(30)
	a, b := NewObject("java/lang/Object"), NewObject("java/lang/Object")

	if h.IdentityHash(a) != h.IdentityHash(a) {
		t.Error("identity hash is not stable")
	}
	if h.IdentityHash(a) == h.IdentityHash(b) {
		t.Error("distinct objects share an identity hash")
	}
	lit1, _ := h.ClassLiteral("pkg/A")
	lit2, _ := h.ClassLiteral("pkg/A")
	if lit1 != lit2 {
		t.Error("class literals are not canonical")
	}
}
