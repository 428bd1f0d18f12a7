package template

import "bytes"

// state is the per-render mutable state: a private output buffer and a
// private copy of the caller's context. The compiled program and tree
// are read-only, so concurrent renders of one Template need no locking.
type state struct {
	buf  *bytes.Buffer
	ctx  Context
	eval Evaluator
}

func runSteps(steps []step, st *state) error {
	for _, s := range steps {
		if err := s(st); err != nil {
			return err
		}
	}
	return nil
}

// Render renders the template synchronously. Templates that compiled to
// an asynchronous procedure return ErrAsyncTemplate; use RenderAsync.
func (t *Template) Render(ctx Context) (string, error) {
	if t.async {
		return "", ErrAsyncTemplate
	}
	st := t.newState(ctx)
	if err := runSteps(t.prog.steps, st); err != nil {
		return "", err
	}
	return st.buf.String(), nil
}

// RenderAsync renders the template on its own goroutine and returns a
// Future. Execution between yield points is single-threaded; the only
// suspension points are yield expressions awaiting a DeferredValue.
// Synchronous templates resolve the future immediately.
func (t *Template) RenderAsync(ctx Context) *Future {
	f := newFuture()
	st := t.newState(ctx)
	go func() {
		if err := runSteps(t.prog.steps, st); err != nil {
			f.settle("", err)
			return
		}
		f.settle(st.buf.String(), nil)
	}()
	return f
}

// newState copies ctx into a private per-render map. Bindings made by
// set statements and loop targets land in the copy, so the caller's
// map is never written and one Context may be shared across concurrent
// renders.
func (t *Template) newState(ctx Context) *state {
	priv := make(Context, len(ctx))
	for k, v := range ctx {
		priv[k] = v
	}
	return &state{buf: new(bytes.Buffer), ctx: priv, eval: t.eval}
}
