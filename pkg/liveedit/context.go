// Package liveedit runs patched classes against a live host. A Context
// holds the registry of patched classes; each Class runs its methods
// through the interpreter with an evaluator chain that sends proxy
// receivers and proxy-class statics back into interpreted code.
package liveedit

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/eval"
	"github.com/daimatz/liveedit/pkg/host"
	"github.com/daimatz/liveedit/pkg/interp"
)

var log = commonlog.GetLogger("liveedit")

// Option configures a Context.
type Option func(*Context)

// WithBackports replaces the backport table derived from the host API level.
func WithBackports(t *eval.BackportTable) Option {
	return func(c *Context) { c.backports = t }
}

// WithQuirks replaces the default static-field owner renames.
func WithQuirks(q eval.Quirks) Option {
	return func(c *Context) { c.quirks = q }
}

// WithInterpretAll makes every dispatch key interpreted.
func WithInterpretAll(on bool) Option {
	return func(c *Context) { c.interpretAll.Store(on) }
}

// WithTrace adds the logging evaluator to every chain.
func WithTrace(on bool) Option {
	return func(c *Context) { c.trace = on }
}

// WithMaxDepth bounds nested interpreted calls.
func WithMaxDepth(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// Context is the registry of patched classes for one host process. Create
// one per process with NewContext and pass it to whatever needs it.
type Context struct {
	host      host.Host
	backports *eval.BackportTable
	quirks    eval.Quirks
	trace     bool
	maxDepth  int

	mu          sync.RWMutex
	classes     map[string]*Class
	interpreted map[string]bool

	interpretAll atomic.Bool
	proxyIDs     atomic.Int64
}

// NewContext creates an empty registry over h.
func NewContext(h host.Host, opts ...Option) *Context {
	c := &Context{
		host:        h,
		maxDepth:    interp.DefaultMaxDepth,
		classes:     make(map[string]*Class),
		interpreted: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backports == nil {
		c.backports = eval.NewBackportTable(h.APILevel())
	}
	if c.quirks == nil {
		c.quirks = eval.NewQuirks(nil)
	}
	return c
}

// Host returns the host the context patches.
func (c *Context) Host() host.Host { return c.host }

// RegisterPatch parses data and publishes it as the current definition of
// name, replacing any earlier patch together with its static state. A nil
// interfaces list means the interfaces the class declares.
func (c *Context) RegisterPatch(name string, data []byte, isProxy bool, interfaces []string) (*Class, error) {
	cls, err := c.newClass(name, data, isProxy, interfaces)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.classes[cls.Name()] = cls
	c.mu.Unlock()
	log.Infof("registered %s (fingerprint %016x, proxy=%t)", cls.Name(), cls.Fingerprint(), isProxy)
	return cls, nil
}

// Patch is one entry of a batch registration.
type Patch struct {
	Name       string
	Bytes      []byte
	Proxy      bool
	Interfaces []string
}

// RegisterPatches parses a batch concurrently and publishes it only if
// every patch parses.
func (c *Context) RegisterPatches(ctx context.Context, patches []Patch) error {
	classes := make([]*Class, len(patches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range patches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cls, err := c.newClass(p.Name, p.Bytes, p.Proxy, p.Interfaces)
			if err != nil {
				return err
			}
			classes[i] = cls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	for _, cls := range classes {
		c.classes[cls.Name()] = cls
	}
	c.mu.Unlock()
	for _, cls := range classes {
		log.Infof("registered %s (fingerprint %016x, proxy=%t)", cls.Name(), cls.Fingerprint(), cls.IsProxy())
	}
	return nil
}

// Lookup returns the current class registered under name.
func (c *Context) Lookup(name string) (*Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cls, ok := c.classes[classfile.InternalName(name)]
	return cls, ok
}

// Classes returns the registered class names, sorted.
func (c *Context) Classes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.classes))
	for name := range c.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarkInterpreted records that the method behind a dispatch key was edited
// and must run interpreted.
func (c *Context) MarkInterpreted(key string) error {
	owner, method, err := ParseMethodKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interpreted[owner+"->"+method] = true
	return nil
}

func (c *Context) isMarked(owner, method string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interpreted[owner+"->"+method]
}

// SetInterpretAll switches the interpret-everything flag.
func (c *Context) SetInterpretAll(on bool) { c.interpretAll.Store(on) }

// call is the state of one interpreted call path: its nesting depth and
// the classes whose static initializer is running on it.
type call struct {
	depth        int
	initializing map[*Class]bool
}

func newCall() *call {
	return &call{initializing: make(map[*Class]bool)}
}

// evaluator builds the chain for one call path.
func (c *Context) evaluator(st *call) interp.Evaluator {
	var logging eval.Decorator
	if c.trace {
		logging = eval.WithLogging(commonlog.GetLogger("liveedit.eval"))
	}
	return eval.Build(eval.NewBase(c.host),
		logging,
		c.proxyAware(st),
		eval.WithQuirks(c.quirks),
		eval.WithBackports(c.backports),
	)
}

// WithProxyAware returns the proxy-aware link for a new call path, for
// callers assembling their own chain.
func (c *Context) WithProxyAware() eval.Decorator {
	return c.proxyAware(newCall())
}

func (c *Context) proxyAware(st *call) eval.Decorator {
	return func(next interp.Evaluator) interp.Evaluator {
		return &ProxyAware{Evaluator: next, ctx: c, st: st}
	}
}

func (c *Context) nextProxyID() int64 { return c.proxyIDs.Add(1) }

func (c *Context) String() string {
	return fmt.Sprintf("liveedit.Context(%d classes)", len(c.Classes()))
}
