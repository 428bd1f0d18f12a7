// Package template implements a compiled, suspendable template engine.
//
// Templates mix literal text with {{ expr }} output expressions and
// {% op ... %} directives: if/for/while/try control blocks closed by
// {% end %}, named blocks and extends/include for inheritance, apply
// blocks that post-process their output through a named function, set
// and import statements, comments, and yield expressions whose value
// may be a DeferredValue.
//
// A template compiles once, to a procedure plus an async flag. The flag
// is true iff a yield is reachable without crossing an apply boundary;
// such templates render through RenderAsync, which returns a Future and
// suspends only while awaiting a yielded DeferredValue. Everything else
// renders synchronously through Render.
//
// Expression and statement fragments are opaque to the engine and are
// evaluated by an Evaluator. The built-in evaluator covers lookups,
// literals and a filter pipeline; wire a richer host evaluator with
// WithEvaluator.
//
// Known limitations: directive recognition is greedy, so there is no
// way to emit a literal "{{" or "{%" from a template. An {% except %}
// clause may carry a pattern after the operator word, but the pattern
// is not consulted; the handler catches every render error raised in
// the try body.
package template
