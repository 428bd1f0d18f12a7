package template

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// step is one unit of the executable program a template compiles to.
type step func(st *state) error

// program is a generated rendering procedure. async is true iff a
// yield point is reachable without crossing an apply boundary.
type program struct {
	steps []step
	async bool
}

// generator walks a chunk tree and emits a program. Each extends or
// include hop forks a generator for the referenced template, extending
// the resolution chain used for cycle detection.
type generator struct {
	loader    TemplateLoader
	opts      *options
	name      string
	chain     []string
	overrides map[string]*NamedBlock
	compress  bool
}

func newGenerator(name string, loader TemplateLoader, opts *options) *generator {
	return &generator{
		loader:   loader,
		opts:     opts,
		name:     name,
		chain:    []string{name},
		compress: opts.compressFor(name),
	}
}

func (g *generator) fork(name string) *generator {
	return &generator{
		loader:   g.loader,
		opts:     g.opts,
		name:     name,
		chain:    append(slices.Clone(g.chain), name),
		compress: g.opts.compressFor(name),
	}
}

// source resolves a referenced template name to its source text.
func (g *generator) source(name string, line int) (string, string, error) {
	if g.loader == nil {
		return "", "", &GenerationError{Template: g.name, Line: line, Msg: "extends/include requires a loader"}
	}
	return g.loader.Source(name, g.name)
}

// genTemplate generates a whole template body, resolving an extends
// directive if one is present. With extends, only the parent body is
// generated, with this template's named blocks overriding the parent's.
func (g *generator) genTemplate(tree *ChunkList) (program, error) {
	var ext *ExtendsBlock
	for _, n := range tree.Chunks {
		e, ok := n.(*ExtendsBlock)
		if !ok {
			continue
		}
		if ext != nil {
			return program{}, &GenerationError{Template: g.name, Line: e.Line, Msg: "multiple extends directives"}
		}
		ext = e
	}
	if ext == nil {
		return g.genChunks(tree)
	}

	overrides := map[string]*NamedBlock{}
	for _, n := range tree.Chunks {
		if b, ok := n.(*NamedBlock); ok {
			overrides[b.Name] = b
		}
	}
	// Blocks overridden further down the chain win over this template's.
	for name, b := range g.overrides {
		overrides[name] = b
	}

	resolved, src, err := g.source(ext.Parent, ext.Line)
	if err != nil {
		return program{}, err
	}
	if slices.Contains(g.chain, resolved) {
		return program{}, &CircularInheritanceError{Chain: append(slices.Clone(g.chain), resolved)}
	}
	parentTree, err := Parse(resolved, src)
	if err != nil {
		return program{}, fmt.Errorf("compiling template %s: %w", resolved, err)
	}
	pg := g.fork(resolved)
	pg.overrides = overrides
	return pg.genTemplate(parentTree)
}

func (g *generator) genChunks(list *ChunkList) (program, error) {
	var p program
	for _, n := range list.Chunks {
		switch t := n.(type) {
		case *Text:
			content := t.Content
			if g.compress {
				content = compressWhitespace(content)
			}
			if content == "" {
				continue
			}
			p.steps = append(p.steps, func(st *state) error {
				st.buf.WriteString(content)
				return nil
			})

		case *Expression:
			p.steps = append(p.steps, g.exprStep(t.Code, t.Line, t.Escape))

		case *YieldExpression:
			p.async = true
			p.steps = append(p.steps, g.yieldStep(t.Code, t.Line))

		case *Statement:
			name, code, line := g.name, t.Code, t.Line
			p.steps = append(p.steps, func(st *state) error {
				if err := st.eval.Exec(code, st.ctx); err != nil {
					return &RenderError{Template: name, Line: line, Err: err}
				}
				return nil
			})

		case *ControlBlock:
			s, async, err := g.genControl(t)
			if err != nil {
				return program{}, err
			}
			p.steps = append(p.steps, s)
			p.async = p.async || async

		case *IntermediateControlBlock:
			return program{}, &GenerationError{Template: g.name, Line: t.Line, Msg: "misplaced intermediate block"}

		case *NamedBlock:
			body := t.Body
			if ov, ok := g.overrides[t.Name]; ok {
				body = ov.Body
			}
			sub, err := g.genChunks(body)
			if err != nil {
				return program{}, err
			}
			p.steps = append(p.steps, sub.steps...)
			p.async = p.async || sub.async

		case *ApplyBlock:
			fn := g.opts.applyFuncs[t.Method]
			if fn == nil {
				return program{}, &GenerationError{Template: g.name, Line: t.Line, Msg: fmt.Sprintf("unknown apply function %q", t.Method)}
			}
			sub, err := g.genChunks(t.Body)
			if err != nil {
				return program{}, err
			}
			// The parser rejects a literal yield here; an include of an
			// asynchronous template would smuggle asynchrony across the
			// synchronous apply boundary.
			if sub.async {
				return program{}, &GenerationError{Template: g.name, Line: t.Line, Msg: "asynchronous content inside {% apply %}"}
			}
			name, line, subSteps := g.name, t.Line, sub.steps
			p.steps = append(p.steps, func(st *state) error {
				inner := &state{buf: new(bytes.Buffer), ctx: st.ctx, eval: st.eval}
				if err := runSteps(subSteps, inner); err != nil {
					return err
				}
				out, err := fn(inner.buf.String())
				if err != nil {
					return &RenderError{Template: name, Line: line, Err: err}
				}
				st.buf.WriteString(out)
				return nil
			})

		case *ExtendsBlock:
			return program{}, &GenerationError{Template: g.name, Line: t.Line, Msg: "extends must be a top-level directive"}

		case *IncludeBlock:
			resolved, src, err := g.source(t.Child, t.Line)
			if err != nil {
				return program{}, err
			}
			if slices.Contains(g.chain, resolved) {
				return program{}, &CircularInheritanceError{Chain: append(slices.Clone(g.chain), resolved)}
			}
			childTree, err := Parse(resolved, src)
			if err != nil {
				return program{}, fmt.Errorf("compiling template %s: %w", resolved, err)
			}
			sub, err := g.fork(resolved).genTemplate(childTree)
			if err != nil {
				return program{}, err
			}
			p.steps = append(p.steps, sub.steps...)
			p.async = p.async || sub.async

		default:
			return program{}, &GenerationError{Template: g.name, Msg: fmt.Sprintf("unhandled node type %T", n)}
		}
	}
	return p, nil
}

func (g *generator) genBody(nodes []Node) (program, error) {
	return g.genChunks(&ChunkList{Chunks: nodes})
}

func (g *generator) exprStep(code string, line int, escape bool) step {
	name := g.name
	esc := escape && g.opts.autoescape
	return func(st *state) error {
		v, err := st.eval.Eval(code, st.ctx)
		if err != nil {
			return &RenderError{Template: name, Line: line, Err: err}
		}
		writeValue(st.buf, v, esc)
		return nil
	}
}

// yieldStep evaluates the expression and, when it produced a
// DeferredValue, suspends until it settles. A plain value passes
// through unchanged.
func (g *generator) yieldStep(code string, line int) step {
	name := g.name
	esc := g.opts.autoescape
	return func(st *state) error {
		v, err := st.eval.Eval(code, st.ctx)
		if err != nil {
			return &RenderError{Template: name, Line: line, Err: err}
		}
		if d, ok := v.(*DeferredValue); ok {
			v, err = d.Await()
			if err != nil {
				return &RenderError{Template: name, Line: line, Err: err}
			}
		}
		writeValue(st.buf, v, esc)
		return nil
	}
}

// segment is one branch of a control construct: the opening header plus
// the bodies introduced by its intermediate blocks.
type segment struct {
	op   string
	code string
	line int
	body []Node
}

func splitSegments(t *ControlBlock) []segment {
	segs := []segment{{op: string(t.Kind), code: t.Header, line: t.Line}}
	for _, n := range t.Body.Chunks {
		if ib, ok := n.(*IntermediateControlBlock); ok {
			op, _, _ := strings.Cut(ib.Code, " ")
			segs = append(segs, segment{op: op, code: ib.Code, line: ib.Line})
			continue
		}
		last := &segs[len(segs)-1]
		last.body = append(last.body, n)
	}
	return segs
}

// headerArg strips the operator word from a block header.
func headerArg(code string) string {
	_, arg, _ := strings.Cut(code, " ")
	return strings.TrimSpace(arg)
}

func (g *generator) genControl(t *ControlBlock) (step, bool, error) {
	segs := splitSegments(t)
	switch t.Kind {
	case KindIf:
		return g.genIf(segs)
	case KindFor:
		return g.genFor(segs)
	case KindWhile:
		return g.genWhile(segs)
	case KindTry:
		return g.genTry(segs)
	}
	return nil, false, &GenerationError{Template: g.name, Line: t.Line, Msg: fmt.Sprintf("unhandled control kind %q", t.Kind)}
}

type condBranch struct {
	cond  string
	line  int
	steps []step
}

func (g *generator) genIf(segs []segment) (step, bool, error) {
	name := g.name
	var branches []condBranch
	var elseSteps []step
	elseSeen := false
	async := false
	for _, s := range segs {
		sub, err := g.genBody(s.body)
		if err != nil {
			return nil, false, err
		}
		async = async || sub.async
		switch s.op {
		case "if", "elif":
			if elseSeen {
				return nil, false, &GenerationError{Template: name, Line: s.line, Msg: "elif after else"}
			}
			cond := headerArg(s.code)
			if cond == "" {
				return nil, false, &GenerationError{Template: name, Line: s.line, Msg: s.op + " missing condition"}
			}
			branches = append(branches, condBranch{cond: cond, line: s.line, steps: sub.steps})
		case "else":
			if elseSeen {
				return nil, false, &GenerationError{Template: name, Line: s.line, Msg: "multiple else blocks"}
			}
			elseSeen = true
			elseSteps = sub.steps
		}
	}
	return func(st *state) error {
		for _, br := range branches {
			v, err := st.eval.Eval(br.cond, st.ctx)
			if err != nil {
				return &RenderError{Template: name, Line: br.line, Err: err}
			}
			if v != nil && v.Truth() {
				return runSteps(br.steps, st)
			}
		}
		return runSteps(elseSteps, st)
	}, async, nil
}

func (g *generator) genFor(segs []segment) (step, bool, error) {
	name := g.name
	head := segs[0]
	header := headerArg(head.code)
	targetStr, iterExpr, ok := strings.Cut(header, " in ")
	iterExpr = strings.TrimSpace(iterExpr)
	if !ok || strings.TrimSpace(targetStr) == "" || iterExpr == "" {
		return nil, false, &GenerationError{Template: name, Line: head.line, Msg: "for block expects 'target in iterable'"}
	}
	targets := strings.Split(targetStr, ",")
	for i := range targets {
		targets[i] = strings.TrimSpace(targets[i])
	}
	bodySteps, elseSteps, async, err := g.genLoopBranches(segs)
	if err != nil {
		return nil, false, err
	}
	line := head.line
	return func(st *state) error {
		v, err := st.eval.Eval(iterExpr, st.ctx)
		if err != nil {
			return &RenderError{Template: name, Line: line, Err: err}
		}
		items, err := iterateValue(v)
		if err != nil {
			return &RenderError{Template: name, Line: line, Err: err}
		}
		for _, it := range items {
			if err := bindTargets(st.ctx, targets, it); err != nil {
				return &RenderError{Template: name, Line: line, Err: err}
			}
			if err := runSteps(bodySteps, st); err != nil {
				return err
			}
		}
		// The loop else runs after completion; templates have no break.
		return runSteps(elseSteps, st)
	}, async, nil
}

func (g *generator) genWhile(segs []segment) (step, bool, error) {
	name := g.name
	head := segs[0]
	cond := headerArg(head.code)
	if cond == "" {
		return nil, false, &GenerationError{Template: name, Line: head.line, Msg: "while missing condition"}
	}
	bodySteps, elseSteps, async, err := g.genLoopBranches(segs)
	if err != nil {
		return nil, false, err
	}
	line := head.line
	return func(st *state) error {
		for {
			v, err := st.eval.Eval(cond, st.ctx)
			if err != nil {
				return &RenderError{Template: name, Line: line, Err: err}
			}
			if v == nil || !v.Truth() {
				break
			}
			if err := runSteps(bodySteps, st); err != nil {
				return err
			}
		}
		return runSteps(elseSteps, st)
	}, async, nil
}

// genLoopBranches generates the main body and optional trailing else of
// a for or while block.
func (g *generator) genLoopBranches(segs []segment) (body, elseSteps []step, async bool, err error) {
	main, err := g.genBody(segs[0].body)
	if err != nil {
		return nil, nil, false, err
	}
	async = main.async
	for _, s := range segs[1:] {
		if s.op != "else" || elseSteps != nil {
			return nil, nil, false, &GenerationError{Template: g.name, Line: s.line, Msg: "loop allows a single trailing else"}
		}
		sub, err := g.genBody(s.body)
		if err != nil {
			return nil, nil, false, err
		}
		async = async || sub.async
		elseSteps = sub.steps
		if elseSteps == nil {
			elseSteps = []step{}
		}
	}
	return main.steps, elseSteps, async, nil
}

func (g *generator) genTry(segs []segment) (step, bool, error) {
	name := g.name
	var bodySteps, exceptSteps, finallySteps []step
	hasExcept, hasFinally := false, false
	async := false
	for _, s := range segs {
		sub, err := g.genBody(s.body)
		if err != nil {
			return nil, false, err
		}
		async = async || sub.async
		switch s.op {
		case "try":
			bodySteps = sub.steps
		case "except":
			if hasExcept {
				return nil, false, &GenerationError{Template: name, Line: s.line, Msg: "cannot dispatch multiple except blocks"}
			}
			if hasFinally {
				return nil, false, &GenerationError{Template: name, Line: s.line, Msg: "except after finally"}
			}
			hasExcept = true
			exceptSteps = sub.steps
		case "finally":
			if hasFinally {
				return nil, false, &GenerationError{Template: name, Line: s.line, Msg: "multiple finally blocks"}
			}
			hasFinally = true
			finallySteps = sub.steps
		}
	}
	if !hasExcept && !hasFinally {
		return nil, false, &GenerationError{Template: name, Line: segs[0].line, Msg: "try block requires except or finally"}
	}
	return func(st *state) error {
		err := runSteps(bodySteps, st)
		if err != nil && hasExcept {
			err = runSteps(exceptSteps, st)
		}
		if hasFinally {
			if ferr := runSteps(finallySteps, st); ferr != nil {
				err = ferr
			}
		}
		return err
	}, async, nil
}

func bindTargets(ctx Context, targets []string, item Value) error {
	if len(targets) == 1 {
		ctx[targets[0]] = item
		return nil
	}
	list, ok := item.(ListValue)
	if !ok || len(list) < len(targets) {
		return fmt.Errorf("cannot unpack %s into %d targets", item.String(), len(targets))
	}
	for i, t := range targets {
		ctx[t] = list[i]
	}
	return nil
}

func writeValue(buf *bytes.Buffer, v Value, escape bool) {
	if v == nil {
		return
	}
	s := v.String()
	if escape {
		s = XHTMLEscape(s)
	}
	buf.WriteString(s)
}

var (
	hspaceRE  = regexp.MustCompile(`[\t ]+`)
	newlineRE = regexp.MustCompile(`\s*\n\s*`)
)

// compressWhitespace collapses horizontal whitespace runs and blank
// lines in literal text. Spans containing <pre> are left alone.
func compressWhitespace(s string) string {
	if strings.Contains(s, "<pre>") {
		return s
	}
	s = hspaceRE.ReplaceAllString(s, " ")
	return newlineRE.ReplaceAllString(s, "\n")
}
