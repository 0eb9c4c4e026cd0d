package fakehost

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/host"
)

// Classpath resolves types from class files in directories, jars and jmods.
// It is the host.TypeResolver used when the classes a patch is checked
// against exist only on disk.
type Classpath struct {
	entries []classSource

	mu    sync.Mutex
	cache map[string]*FileType
}

type classSource interface {
	// read returns the bytes of name's class file, or fs.ErrNotExist.
	read(name string) ([]byte, error)
}

// NewClasspath creates a Classpath searching paths in order. Paths ending
// in .jar or .jmod are archives; anything else is a directory.
func NewClasspath(paths ...string) *Classpath {
	cp := &Classpath{cache: make(map[string]*FileType)}
	for _, p := range paths {
		switch {
		case p == "":
			continue
		case strings.HasSuffix(p, ".jmod"):
			cp.entries = append(cp.entries, &archiveSource{path: p, prefix: "classes/", header: 4})
		case strings.HasSuffix(p, ".jar"), strings.HasSuffix(p, ".zip"):
			cp.entries = append(cp.entries, &archiveSource{path: p})
		default:
			cp.entries = append(cp.entries, dirSource(p))
		}
	}
	return cp
}

// ParseClasspath splits a list separated by os.PathListSeparator.
func ParseClasspath(list string) *Classpath {
	return NewClasspath(filepath.SplitList(list)...)
}

func (cp *Classpath) ResolveType(name string) (host.Type, error) {
	name = classfile.InternalName(name)
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if t, ok := cp.cache[name]; ok {
		return t, nil
	}
	for _, e := range cp.entries {
		data, err := e.read(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cf, err := classfile.ParseBytes(data)
		if err != nil {
			return nil, fmt.Errorf("classpath: parsing %s: %w", name, err)
		}
		t, err := newFileType(cf)
		if err != nil {
			return nil, fmt.Errorf("classpath: %s: %w", name, err)
		}
		cp.cache[name] = t
		return t, nil
	}
	return nil, fmt.Errorf("classpath: class %s not found", name)
}

type dirSource string

func (d dirSource) read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)+".class"))
}

// archiveSource reads a zip archive lazily. jmod files carry a 4-byte
// "JM\x01\x00" header before the zip data.
type archiveSource struct {
	path   string
	prefix string
	header int

	once  sync.Once
	files map[string]*zip.File
	err   error
}

func (a *archiveSource) open() {
	data, err := os.ReadFile(a.path)
	if err != nil {
		a.err = fmt.Errorf("classpath: reading %s: %w", a.path, err)
		return
	}
	if len(data) < a.header {
		a.err = fmt.Errorf("classpath: %s: truncated header", a.path)
		return
	}
	data = data[a.header:]
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		a.err = fmt.Errorf("classpath: opening zip %s: %w", a.path, err)
		return
	}
	a.files = make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		a.files[f.Name] = f
	}
}

func (a *archiveSource) read(name string) ([]byte, error) {
	a.once.Do(a.open)
	if a.err != nil {
		return nil, a.err
	}
	f, ok := a.files[a.prefix+name+".class"]
	if !ok {
		return nil, fs.ErrNotExist
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("classpath: opening %s in %s: %w", f.Name, a.path, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FileType is a host.Type read from a class file.
type FileType struct {
	name       string
	super      string
	interfaces []string
	methods    []host.Method
}

// ReadType builds a FileType straight from class bytes.
func ReadType(data []byte) (*FileType, error) {
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	return newFileType(cf)
}

func newFileType(cf *classfile.ClassFile) (*FileType, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, err
	}
	interfaces, err := cf.InterfaceNames()
	if err != nil {
		return nil, err
	}
	t := &FileType{name: name, super: cf.SuperClassName(), interfaces: interfaces}
	for _, m := range cf.Methods {
		if m.Name == "<clinit>" {
			continue
		}
		t.methods = append(t.methods, host.Method{
			Owner:      name,
			Name:       m.Name,
			Descriptor: m.Descriptor,
			Static:     m.IsStatic(),
			Synthetic:  m.AccessFlags&classfile.AccSynthetic != 0,
		})
	}
	return t, nil
}

func (t *FileType) Name() string { return t.name }

func (t *FileType) SuperName() string { return t.super }

func (t *FileType) Interfaces() []string { return t.interfaces }

func (t *FileType) DeclaredMethods() []host.Method { return t.methods }
