package eval

import (
	"sort"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/interp"
)

// BackportsClass hosts the built-in polyfills.
const BackportsClass = "liveedit/Backports"

// Polyfill redirects calls to Owner.Name Descriptor to the static method of
// the same name on Target, on hosts older than Introduced. A special
// invocation receives its receiver as an extra first parameter.
type Polyfill struct {
	Owner      string
	Name       string
	Descriptor string
	Target     string
	Introduced int
}

func (p Polyfill) key() string { return p.Owner + "->" + p.Name + p.Descriptor }

// DefaultPolyfills lists the runtime methods compilers emit calls to that
// older hosts lack.
var DefaultPolyfills = []Polyfill{
	{Owner: "java/lang/Math", Name: "floorMod", Descriptor: "(II)I", Target: BackportsClass, Introduced: 24},
	{Owner: "java/lang/Math", Name: "floorMod", Descriptor: "(JJ)J", Target: BackportsClass, Introduced: 24},
	{Owner: "java/lang/Math", Name: "floorDiv", Descriptor: "(II)I", Target: BackportsClass, Introduced: 24},
	{Owner: "java/lang/Math", Name: "floorDiv", Descriptor: "(JJ)J", Target: BackportsClass, Introduced: 24},
	{Owner: "java/lang/Math", Name: "addExact", Descriptor: "(II)I", Target: BackportsClass, Introduced: 24},
	{Owner: "java/lang/Math", Name: "addExact", Descriptor: "(JJ)J", Target: BackportsClass, Introduced: 24},
	{Owner: "java/lang/Integer", Name: "hashCode", Descriptor: "(I)I", Target: BackportsClass, Introduced: 24},
	{Owner: "java/lang/Long", Name: "hashCode", Descriptor: "(J)I", Target: BackportsClass, Introduced: 24},
	{Owner: "java/lang/Boolean", Name: "hashCode", Descriptor: "(Z)I", Target: BackportsClass, Introduced: 24},
	{Owner: "java/util/Objects", Name: "requireNonNull", Descriptor: "(Ljava/lang/Object;Ljava/lang/String;)Ljava/lang/Object;", Target: BackportsClass, Introduced: 19},
	{Owner: "java/util/Objects", Name: "equals", Descriptor: "(Ljava/lang/Object;Ljava/lang/Object;)Z", Target: BackportsClass, Introduced: 19},
	{Owner: "java/util/Objects", Name: "hashCode", Descriptor: "(Ljava/lang/Object;)I", Target: BackportsClass, Introduced: 19},
	{Owner: "java/util/Objects", Name: "hash", Descriptor: "([Ljava/lang/Object;)I", Target: BackportsClass, Introduced: 19},
}

// BackportTable maps call sites to polyfills. It is filled once and only
// read afterwards.
type BackportTable struct {
	entries map[string]Polyfill
}

// NewBackportTable keeps the default and extra polyfills whose real method
// the host at apiLevel does not have. Later entries win.
func NewBackportTable(apiLevel int, extra ...Polyfill) *BackportTable {
	t := &BackportTable{entries: make(map[string]Polyfill)}
	for _, list := range [][]Polyfill{DefaultPolyfills, extra} {
		for _, p := range list {
			if p.Introduced > apiLevel {
				t.entries[p.key()] = p
			} else {
				delete(t.entries, p.key())
			}
		}
	}
	return t
}

// Lookup returns the polyfill for a call site.
func (t *BackportTable) Lookup(owner, name, desc string) (Polyfill, bool) {
	if t == nil {
		return Polyfill{}, false
	}
	p, ok := t.entries[owner+"->"+name+desc]
	return p, ok
}

// Entries returns the active polyfills sorted by call site.
func (t *BackportTable) Entries() []Polyfill {
	out := make([]Polyfill, 0, len(t.entries))
	for _, p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// Backport rewrites static and special calls that have a polyfill.
type Backport struct {
	interp.Evaluator
	Table *BackportTable
}

// WithBackports adds a Backport link using table.
func WithBackports(table *BackportTable) Decorator {
	return func(next interp.Evaluator) interp.Evaluator {
		return &Backport{Evaluator: next, Table: table}
	}
}

func (b *Backport) InvokeStatic(owner, name, desc string, args []interp.Value) (interp.Value, error) {
	if p, ok := b.Table.Lookup(owner, name, desc); ok {
		owner = p.Target
	}
	return b.Evaluator.InvokeStatic(owner, name, desc, args)
}

func (b *Backport) InvokeSpecial(recv interp.Value, owner, name, desc string, args []interp.Value) (interp.Value, error) {
	p, ok := b.Table.Lookup(owner, name, desc)
	if !ok {
		return b.Evaluator.InvokeSpecial(recv, owner, name, desc, args)
	}
	staticDesc := "(" + classfile.TypeDescriptor(owner) + desc[1:]
	return b.Evaluator.InvokeStatic(p.Target, name, staticDesc, append([]interp.Value{recv}, args...))
}
