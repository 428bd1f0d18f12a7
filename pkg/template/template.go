package template

import "strings"

// InlineName is the sentinel name given to templates compiled from an
// in-memory string. Names starting with "<" never take part in
// parent-relative path resolution.
const InlineName = "<string>"

// Template is a compiled template: its name, parsed tree, generated
// procedure, and the async flag computed once at compile time. A
// Template is immutable after New returns and safe for concurrent
// renders.
type Template struct {
	name  string
	tree  *ChunkList
	prog  program
	async bool
	eval  Evaluator
}

// New parses and compiles template source. loader may be nil for
// templates that use neither extends nor include.
func New(name, src string, loader TemplateLoader, opts ...Option) (*Template, error) {
	o := newOptions(opts)
	tree, err := Parse(name, src)
	if err != nil {
		return nil, err
	}
	prog, err := newGenerator(name, loader, o).genTemplate(tree)
	if err != nil {
		return nil, err
	}
	return &Template{
		name:  name,
		tree:  tree,
		prog:  prog,
		async: prog.async,
		eval:  o.evaluator,
	}, nil
}

// Name returns the template's cache name.
func (t *Template) Name() string { return t.name }

// Async reports whether rendering suspends at yield points. When true,
// Render refuses and RenderAsync must be used.
func (t *Template) Async() bool { return t.async }

// Tree returns the parsed chunk tree.
func (t *Template) Tree() *ChunkList { return t.tree }

type options struct {
	autoescape bool
	compress   *bool
	evaluator  Evaluator
	applyFuncs map[string]ApplyFunc
}

func newOptions(opts []Option) *options {
	o := &options{
		autoescape: true,
		evaluator:  NewBasicEvaluator(),
		applyFuncs: DefaultApplyFuncs(),
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// compressFor decides whitespace compression for a template name: an
// explicit option wins, otherwise .html and .js templates compress.
func (o *options) compressFor(name string) bool {
	if o.compress != nil {
		return *o.compress
	}
	return strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".js")
}

// Option configures template compilation.
type Option func(*options)

// Autoescape toggles XHTML escaping of expression output. It defaults
// to on.
func Autoescape(on bool) Option {
	return func(o *options) { o.autoescape = on }
}

// CompressWhitespace forces whitespace compression on or off instead of
// deciding by file extension.
func CompressWhitespace(on bool) Option {
	return func(o *options) { o.compress = &on }
}

// WithEvaluator sets the host expression evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(o *options) { o.evaluator = e }
}

// WithApplyFunc registers an apply-block post-processing function.
func WithApplyFunc(name string, fn ApplyFunc) Option {
	return func(o *options) {
		funcs := make(map[string]ApplyFunc, len(o.applyFuncs)+1)
		for k, v := range o.applyFuncs {
			funcs[k] = v
		}
		funcs[name] = fn
		o.applyFuncs = funcs
	}
}

// SourceString is an inline template source that can be validated and
// rendered without a loader.
type SourceString string

// Validate parses the source and reports any syntax error.
func (s SourceString) Validate() error {
	_, err := Parse(InlineName, string(s))
	return err
}

// Render compiles and renders the source in one shot, waiting on the
// future when the template is asynchronous.
func (s SourceString) Render(ctx Context) (string, error) {
	t, err := New(InlineName, string(s), nil)
	if err != nil {
		return "", err
	}
	if t.Async() {
		return t.RenderAsync(ctx).Wait()
	}
	return t.Render(ctx)
}
