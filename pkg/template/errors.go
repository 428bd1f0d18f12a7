package template

import (
	"errors"
	"fmt"
	"strings"
)

// ParseKind classifies template syntax errors.
type ParseKind int

const (
	UnterminatedBlock ParseKind = iota
	UnterminatedExpression
	EmptyExpression
	EmptyBlockTag
	MisplacedIntermediateBlock
	UnmatchedEnd
	UnknownOperator
	YieldInsideApply
)

// ParseError is a fatal template syntax error. Operator holds the
// offending or enclosing operator word when one is relevant.
type ParseError struct {
	Kind     ParseKind
	Line     int
	Operator string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case UnterminatedBlock:
		if e.Operator != "" {
			return fmt.Sprintf("missing {%% end %%} block for %s on line %d", e.Operator, e.Line)
		}
		return fmt.Sprintf("missing end block %%} on line %d", e.Line)
	case UnterminatedExpression:
		return fmt.Sprintf("missing end expression }} on line %d", e.Line)
	case EmptyExpression:
		return fmt.Sprintf("empty expression on line %d", e.Line)
	case EmptyBlockTag:
		if e.Operator != "" {
			return fmt.Sprintf("%s missing argument on line %d", e.Operator, e.Line)
		}
		return fmt.Sprintf("empty block tag ({%% %%}) on line %d", e.Line)
	case MisplacedIntermediateBlock:
		return fmt.Sprintf("%s block outside its allowed parent on line %d", e.Operator, e.Line)
	case UnmatchedEnd:
		return fmt.Sprintf("extra {%% end %%} block on line %d", e.Line)
	case UnknownOperator:
		return fmt.Sprintf("unknown operator %q on line %d", e.Operator, e.Line)
	case YieldInsideApply:
		return fmt.Sprintf("yield inside {%% apply %%} on line %d", e.Line)
	}
	return fmt.Sprintf("parse error on line %d", e.Line)
}

// CircularInheritanceError reports a cycle in extends or include
// references. Chain holds the template names in resolution order,
// ending with the name that closed the cycle.
type CircularInheritanceError struct {
	Chain []string
}

func (e *CircularInheritanceError) Error() string {
	return "circular template inheritance: " + strings.Join(e.Chain, " -> ")
}

// GenerationError is a fatal error raised while turning a parsed tree
// into an executable program.
type GenerationError struct {
	Template string
	Line     int
	Msg      string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating template %s: %s on line %d", e.Template, e.Msg, e.Line)
}

// RenderError wraps a failure raised while evaluating an expression or
// statement during a render call.
type RenderError struct {
	Template string
	Line     int
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering template %s: %v on line %d", e.Template, e.Err, e.Line)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ErrTemplateNotFound is returned by loaders when no template exists
// under the given name.
type ErrTemplateNotFound struct{ Name string }

func (e ErrTemplateNotFound) Error() string { return "template not found: " + e.Name }

// ErrAsyncTemplate is returned by Render when the template compiled to
// an asynchronous procedure and must be rendered with RenderAsync.
var ErrAsyncTemplate = errors.New("template is asynchronous; use RenderAsync")
