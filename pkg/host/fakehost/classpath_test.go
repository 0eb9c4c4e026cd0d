package fakehost

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/classfile/classfiletest"
	"github.com/daimatz/liveedit/pkg/host"
)

func helloClass() []byte {
	b := classfiletest.New("pkg/Hello", "java/lang/Object").Implements("java/lang/Runnable")
	b.Method(classfile.AccPublic, "<init>", "()V").Limits(1, 1).Code(0xb1)
	b.Method(classfile.AccPublic, "run", "()V").Limits(0, 1).Code(0xb1)
	b.Method(classfile.AccStatic, "<clinit>", "()V").Limits(0, 0).Code(0xb1)
	b.Method(classfile.AccStatic|classfile.AccSynthetic, "lambda$run$0", "()V").Limits(0, 0).Code(0xb1)
	return b.Bytes()
}

func writeZip(t *testing.T, path string, header []byte, entry string, data []byte) {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(header)
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(entry)
	if err != nil {
		t.Fatal(err)
	}
	w.Write(data)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestClasspath(t *testing.T) {
	dir := t.TempDir()
	data := helloClass()

	classDir := filepath.Join(dir, "classes")
	if err := os.MkdirAll(filepath.Join(classDir, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(classDir, "pkg", "Hello.class"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	jar := filepath.Join(dir, "app.jar")
	writeZip(t, jar, nil, "pkg/Hello.class", data)
	jmod := filepath.Join(dir, "app.jmod")
	writeZip(t, jmod, []byte("JM\x01\x00"), "classes/pkg/Hello.class", data)

	want := []host.Method{
		{Owner: "pkg/Hello", Name: "<init>", Descriptor: "()V"},
		{Owner: "pkg/Hello", Name: "run", Descriptor: "()V"},
		{Owner: "pkg/Hello", Name: "lambda$run$0", Descriptor: "()V", Static: true, Synthetic: true},
	}

	for _, path := range []string{classDir, jar, jmod} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cp := NewClasspath(filepath.Join(dir, "missing"), path)
			typ, err := cp.ResolveType("pkg.Hello")
			if err != nil {
				t.Fatalf("ResolveType: %v", err)
			}
			if typ.Name() != "pkg/Hello" || typ.SuperName() != "java/lang/Object" {
				t.Errorf("got %s extends %s", typ.Name(), typ.SuperName())
			}
			if diff := cmp.Diff([]string{"java/lang/Runnable"}, typ.Interfaces()); diff != "" {
				t.Errorf("interfaces mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want, typ.DeclaredMethods()); diff != "" {
				t.Errorf("methods mismatch (-want +got):\n%s", diff)
			}

			again, _ := cp.ResolveType("pkg/Hello")
			if again != typ {
				t.Error("second lookup was not cached")
			}
			if _, err := cp.ResolveType("pkg/Nope"); err == nil {
				t.Error("ResolveType(pkg/Nope): expected error")
			}
		})
	}
}

func TestParseClasspath(t *testing.T) {
	list := "a" + string(os.PathListSeparator) + "b.jar" + string(os.PathListSeparator) + "c.jmod"
	cp := ParseClasspath(list)
	if len(cp.entries) != 3 {
		t.Fatalf("entries: got %d, want 3", len(cp.entries))
	}
	if _, ok := cp.entries[0].(dirSource); !ok {
		t.Errorf("entry 0: got %T, want dirSource", cp.entries[0])
	}
	if a, ok := cp.entries[2].(*archiveSource); !ok || a.prefix != "classes/" {
		t.Errorf("entry 2: got %#v, want jmod archive", cp.entries[2])
	}
}
