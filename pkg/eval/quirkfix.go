package eval

import (
	"github.com/daimatz/liveedit/pkg/interp"
)

// DefaultQuirks maps static-field owners some compilers emit for companion
// object constants to the class that actually declares the field.
var DefaultQuirks = map[string]string{
	"androidx/compose/ui/unit/Dp$Companion": "androidx/compose/ui/unit/Dp",
}

// Quirks is an owner rename table for static field access.
type Quirks map[string]string

// NewQuirks merges DefaultQuirks with extra; extra wins.
func NewQuirks(extra map[string]string) Quirks {
	q := make(Quirks, len(DefaultQuirks)+len(extra))
	for from, to := range DefaultQuirks {
		q[from] = to
	}
	for from, to := range extra {
		q[from] = to
	}
	return q
}

func (q Quirks) owner(name string) string {
	if to, ok := q[name]; ok {
		return to
	}
	return name
}

// QuirkFix rewrites the owner of static field accesses found in its table.
type QuirkFix struct {
	interp.Evaluator
	Quirks Quirks
}

// WithQuirks adds a QuirkFix link using q.
func WithQuirks(q Quirks) Decorator {
	return func(next interp.Evaluator) interp.Evaluator {
		return &QuirkFix{Evaluator: next, Quirks: q}
	}
}

func (f *QuirkFix) GetStaticField(owner, name, desc string) (interp.Value, error) {
	return f.Evaluator.GetStaticField(f.Quirks.owner(owner), name, desc)
}

func (f *QuirkFix) SetStaticField(owner, name, desc string, v interp.Value) error {
	return f.Evaluator.SetStaticField(f.Quirks.owner(owner), name, desc, v)
}
