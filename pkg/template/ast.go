package template

// Node is any chunk in a parsed template tree.
type Node interface {
	node()
}

// ChunkList is the body container for every block kind, including the
// top level of a template.
type ChunkList struct {
	Chunks []Node
}

func (*ChunkList) node() {}

// Text is a literal output span.
type Text struct {
	Content string
	Line    int
}

func (*Text) node() {}

// Expression is an opaque code fragment evaluated by the host evaluator
// and appended to the output: {{ expr }}. Escape is true unless output
// escaping has been disabled for the template.
type Expression struct {
	Code   string
	Escape bool
	Line   int
}

func (*Expression) node() {}

// YieldExpression is an expression whose value may be a DeferredValue
// that must be awaited before appending: {% yield expr %}. Its presence
// marks every enclosing body, up to but not across an ApplyBlock,
// asynchronous.
type YieldExpression struct {
	Code string
	Line int
}

func (*YieldExpression) node() {}

// Statement is host-evaluated code with no output, produced by
// {% set ... %} and {% import ... %}.
type Statement struct {
	Code string
	Line int
}

func (*Statement) node() {}

// BlockKind names a nesting operator.
type BlockKind string

const (
	KindIf    BlockKind = "if"
	KindFor   BlockKind = "for"
	KindWhile BlockKind = "while"
	KindTry   BlockKind = "try"
	KindApply BlockKind = "apply"
	KindBlock BlockKind = "block"
)

// ControlBlock is an if/for/while/try block. Header is the full opaque
// header text including the operator word.
type ControlBlock struct {
	Kind   BlockKind
	Header string
	Body   *ChunkList
	Line   int
}

func (*ControlBlock) node() {}

// IntermediateControlBlock is an else/elif/except/finally fragment. It
// only ever appears as a direct child of the ChunkList belonging to the
// ControlBlock it attaches to.
type IntermediateControlBlock struct {
	Code string
	Line int
}

func (*IntermediateControlBlock) node() {}

// NamedBlock is a named, overridable region used for template
// inheritance: {% block name %}...{% end %}.
type NamedBlock struct {
	Name string
	Body *ChunkList
	Line int
}

func (*NamedBlock) node() {}

// ApplyBlock wraps its body's output through a named post-processing
// function: {% apply method %}...{% end %}. The body is always compiled
// as a synchronous sub-procedure.
type ApplyBlock struct {
	Method string
	Body   *ChunkList
	Line   int
}

func (*ApplyBlock) node() {}

// ExtendsBlock marks this template as extending a parent template.
type ExtendsBlock struct {
	Parent string
	Line   int
}

func (*ExtendsBlock) node() {}

// IncludeBlock inlines another template's body at this point.
type IncludeBlock struct {
	Child string
	Line  int
}

func (*IncludeBlock) node() {}
