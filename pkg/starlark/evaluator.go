// Package starlark provides a full-strength host expression evaluator
// for the template engine, backed by the Starlark interpreter.
package starlark

import (
	"fmt"

	"github.com/emberweb/ember/pkg/template"
	"go.starlark.net/starlark"
)

// Evaluator implements template.Evaluator on top of go.starlark.net.
// Expressions run through starlark.Eval; statements run as Starlark
// files whose resulting globals are merged back into the render
// context. Each call uses a fresh Starlark thread, so one Evaluator may
// serve concurrent renders.
type Evaluator struct {
	name     string
	builtins starlark.StringDict
}

// NewEvaluator creates an Evaluator preloaded with the default
// builtins.
func NewEvaluator() *Evaluator {
	return &Evaluator{name: "ember", builtins: Builtins()}
}

// SetBuiltin registers a value available to every expression and
// statement. Not safe to call concurrently with renders.
func (e *Evaluator) SetBuiltin(name string, v starlark.Value) {
	e.builtins[name] = v
}

func (e *Evaluator) predeclared(ctx template.Context) starlark.StringDict {
	pre := make(starlark.StringDict, len(e.builtins)+len(ctx))
	for k, v := range e.builtins {
		pre[k] = v
	}
	for k, v := range ctx {
		pre[k] = ToStarlark(v)
	}
	return pre
}

// Eval evaluates an expression against the render context.
func (e *Evaluator) Eval(code string, ctx template.Context) (template.Value, error) {
	thread := &starlark.Thread{Name: e.name}
	val, err := starlark.Eval(thread, "<expr>", code, e.predeclared(ctx))
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	return FromStarlark(val), nil
}

// Exec executes a statement fragment. Globals it defines land in the
// render context; names starting with an underscore stay private.
func (e *Evaluator) Exec(code string, ctx template.Context) error {
	thread := &starlark.Thread{Name: e.name}
	globals, err := starlark.ExecFile(thread, "<stmt>", code, e.predeclared(ctx))
	if err != nil {
		return fmt.Errorf("starlark execution error: %w", err)
	}
	for k, v := range globals {
		if k == "" || k[0] == '_' {
			continue
		}
		ctx[k] = FromStarlark(v)
	}
	return nil
}
