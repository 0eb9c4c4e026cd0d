package liveedit

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/eval"
	"github.com/daimatz/liveedit/pkg/host"
	"github.com/daimatz/liveedit/pkg/interp"
)

// Class is one registered patch: the parsed definition plus the static
// state that belongs to it. Re-registering a name creates a new Class, so
// statics never carry over between patches.
type Class struct {
	ctx         *Context
	def         *classfile.Definition
	isProxy     bool
	interfaces  []string
	fingerprint uint64

	initMu    sync.Mutex
	initOwner int64         // goroutine running <clinit>
	initDone  chan struct{} // non-nil once <clinit> has started
	ready     atomic.Bool

	mu      sync.RWMutex
	statics map[string]interp.Value
}

func (c *Context) newClass(name string, data []byte, isProxy bool, interfaces []string) (*Class, error) {
	name = classfile.InternalName(name)
	def, err := classfile.ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", name, err)
	}
	if def.Name != name {
		return nil, fmt.Errorf("patch %s defines class %s", name, def.Name)
	}

	if interfaces == nil {
		interfaces = def.Interfaces
	} else {
		names := make([]string, len(interfaces))
		for i, n := range interfaces {
			names[i] = classfile.InternalName(n)
		}
		interfaces = names
	}

	cls := &Class{
		ctx:         c,
		def:         def,
		isProxy:     isProxy,
		interfaces:  interfaces,
		fingerprint: xxh3.Hash(data),
		statics:     make(map[string]interp.Value),
	}
	for _, f := range def.Fields {
		if f.IsStatic() {
			cls.statics[f.Name] = interp.ZeroOf(f.Descriptor)
		}
	}
	return cls, nil
}

// Name returns the internal name of the class.
func (cls *Class) Name() string { return cls.def.Name }

// Definition returns the parsed patch.
func (cls *Class) Definition() *classfile.Definition { return cls.def }

// IsProxy reports whether the class has no host counterpart and is
// instantiated as a host proxy.
func (cls *Class) IsProxy() bool { return cls.isProxy }

// Interfaces returns the interfaces proxies of the class implement.
func (cls *Class) Interfaces() []string { return cls.interfaces }

// Fingerprint returns the xxh3 hash of the registered class bytes.
func (cls *Class) Fingerprint() uint64 { return cls.fingerprint }

// Invoke runs the method named by key ("name(desc)ret"). receiver is nil
// for static methods.
func (cls *Class) Invoke(key string, receiver *interp.Value, args []interp.Value) (interp.Value, error) {
	m, ok := cls.def.Method(key)
	if !ok {
		return interp.Value{}, fmt.Errorf("%s->%s: %w", cls.Name(), key, ErrNoSuchMethod)
	}
	return cls.invoke(newCall(), m, receiver, args)
}

// InvokeHost is Invoke for callers holding host-native values, such as the
// host's proxy machinery. Guest exceptions come back as *host.Exception.
func (cls *Class) InvokeHost(key string, recv any, args []any) (any, error) {
	m, ok := cls.def.Method(key)
	if !ok {
		return nil, fmt.Errorf("%s->%s: %w", cls.Name(), key, ErrNoSuchMethod)
	}
	if len(args) != len(m.Type.Params) {
		return nil, fmt.Errorf("%s->%s: got %d arguments, want %d", cls.Name(), key, len(args), len(m.Type.Params))
	}
	vals := make([]interp.Value, len(args))
	for i, a := range args {
		v, err := interp.FromHost(a, m.Type.Params[i])
		if err != nil {
			return nil, fmt.Errorf("%s->%s: argument %d: %w", cls.Name(), key, i, err)
		}
		vals[i] = v
	}
	var receiver *interp.Value
	if !m.IsStatic() {
		r := interp.RefValue(recv, classfile.TypeDescriptor(cls.Name()))
		receiver = &r
	}
	res, err := cls.invoke(newCall(), m, receiver, vals)
	if err != nil {
		return nil, eval.HostError(err)
	}
	return res.ToHost(m.Type.Return), nil
}

// invoke runs m on st. Only proxy classes own their statics, so only they
// are initialized here; a non-proxy patch runs against the live class.
func (cls *Class) invoke(st *call, m *classfile.MethodBody, receiver *interp.Value, args []interp.Value) (interp.Value, error) {
	if cls.isProxy {
		if err := cls.ensureStaticInit(st); err != nil {
			return interp.Value{}, err
		}
	}
	return cls.run(st, m, receiver, args)
}

// run evaluates m one level deeper on st.
func (cls *Class) run(st *call, m *classfile.MethodBody, receiver *interp.Value, args []interp.Value) (interp.Value, error) {
	if st.depth >= cls.ctx.maxDepth {
		return interp.Value{}, &interp.InterpretationFault{Class: cls.Name(), Method: m.Key(), Cause: interp.ErrStackOverflow}
	}
	st.depth++
	defer func() { st.depth-- }()
	return interp.Evaluate(cls.def, m, receiver, args, cls.ctx.evaluator(st))
}

// ensureStaticInit runs <clinit> once per Class. The class counts as
// initializing before the body runs: the initializing goroutine, including
// calls that come back through the host, sees the partially initialized
// state, and other goroutines wait for it to finish. A failed initializer is
// not retried.
func (cls *Class) ensureStaticInit(st *call) error {
	if cls.ready.Load() || st.initializing[cls] {
		return nil
	}
	gid := goroutineID()
	cls.initMu.Lock()
	if cls.ready.Load() {
		cls.initMu.Unlock()
		return nil
	}
	if done := cls.initDone; done != nil {
		owner := cls.initOwner
		cls.initMu.Unlock()
		if owner != gid {
			<-done
		}
		return nil
	}
	done := make(chan struct{})
	cls.initDone, cls.initOwner = done, gid
	cls.initMu.Unlock()
	defer func() {
		cls.ready.Store(true)
		close(done)
	}()

	clinit, ok := cls.def.StaticInitializer()
	if !ok {
		return nil
	}
	log.Debugf("running static initializer of %s", cls.Name())
	st.initializing[cls] = true
	defer delete(st.initializing, cls)
	_, err := cls.run(st, clinit, nil, nil)
	return err
}

// GetStaticField reads a static field declared by the patch.
func (cls *Class) GetStaticField(name string) (interp.Value, error) {
	return cls.getStatic(newCall(), name)
}

// SetStaticField writes a static field declared by the patch.
func (cls *Class) SetStaticField(name string, v interp.Value) error {
	return cls.setStatic(newCall(), name, v)
}

func (cls *Class) getStatic(st *call, name string) (interp.Value, error) {
	if err := cls.ensureStaticInit(st); err != nil {
		return interp.Value{}, err
	}
	cls.mu.RLock()
	defer cls.mu.RUnlock()
	v, ok := cls.statics[name]
	if !ok {
		return interp.Value{}, fmt.Errorf("%s.%s: %w", cls.Name(), name, ErrNoSuchField)
	}
	return v, nil
}

func (cls *Class) setStatic(st *call, name string, v interp.Value) error {
	if err := cls.ensureStaticInit(st); err != nil {
		return err
	}
	f, ok := cls.def.Field(name)
	if !ok || !f.IsStatic() {
		return fmt.Errorf("%s.%s: %w", cls.Name(), name, ErrNoSuchField)
	}
	v, err := interp.Coerce(v, f.Descriptor)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", cls.Name(), name, err)
	}
	cls.mu.Lock()
	defer cls.mu.Unlock()
	cls.statics[name] = v
	return nil
}

// InstantiateProxy creates a host proxy implementing the class's interfaces
// whose calls run the patched methods. Constructors are not run.
func (cls *Class) InstantiateProxy() (interp.Value, error) {
	return cls.instantiate(newCall())
}

func (cls *Class) instantiate(st *call) (interp.Value, error) {
	if !cls.isProxy {
		return interp.Value{}, &NotAProxyError{Class: cls.Name()}
	}
	if err := cls.ensureStaticInit(st); err != nil {
		return interp.Value{}, err
	}
	h := cls.ctx.host
	types := make([]host.Type, len(cls.interfaces))
	for i, name := range cls.interfaces {
		t, err := h.ResolveType(name)
		if err != nil {
			return interp.Value{}, fmt.Errorf("proxy %s: %w", cls.Name(), err)
		}
		types[i] = t
	}
	handler := newProxyHandler(cls)
	obj, err := h.CreateProxy(types, handler)
	if err != nil {
		return interp.Value{}, fmt.Errorf("proxy %s: %w", cls.Name(), err)
	}
	log.Infof("created proxy %s#%d implementing %v", cls.Name(), handler.id, cls.interfaces)
	return interp.RefValue(obj, classfile.TypeDescriptor(cls.Name())), nil
}
