// Package eval provides the evaluators an interpreted method runs against.
// Base talks to the host; the others wrap a next evaluator and either
// handle an operation, rewrite its target before forwarding, or forward it
// unchanged.
package eval

import "github.com/daimatz/liveedit/pkg/interp"

// Decorator wraps next in one more link of a chain.
type Decorator func(next interp.Evaluator) interp.Evaluator

// Build composes a chain around base. decorators are listed outermost
// first, so Build(b, WithLogging(nil), WithBackports(t)) is
// Logging(Backport(b)).
func Build(base interp.Evaluator, decorators ...Decorator) interp.Evaluator {
	ev := base
	for i := len(decorators) - 1; i >= 0; i-- {
		if decorators[i] != nil {
			ev = decorators[i](ev)
		}
	}
	return ev
}

var (
	_ interp.Evaluator = (*Base)(nil)
	_ interp.Evaluator = (*Backport)(nil)
	_ interp.Evaluator = (*QuirkFix)(nil)
	_ interp.Evaluator = (*Logging)(nil)
)
