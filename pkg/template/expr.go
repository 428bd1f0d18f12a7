package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Evaluator is the host expression evaluator contract. The engine
// treats the code fragments inside {{ }}, {% set %} and {% import %}
// as opaque text and hands them to an Evaluator at render time.
type Evaluator interface {
	// Eval evaluates an expression against the render context.
	Eval(code string, ctx Context) (Value, error)
	// Exec executes a statement; any bindings it makes land in ctx.
	Exec(code string, ctx Context) error
}

// Filters is a registry of filter functions for the built-in evaluator.
type Filters map[string]func(val Value, args []Value) (Value, error)

// DefaultFilters returns the built-in filter set.
func DefaultFilters() Filters {
	str := func(fn func(string) string) func(Value, []Value) (Value, error) {
		return func(val Value, _ []Value) (Value, error) {
			if val == nil {
				val = NoneValue{}
			}
			return StringValue(fn(val.String())), nil
		}
	}
	return Filters{
		"upper":        str(strings.ToUpper),
		"lower":        str(strings.ToLower),
		"trim":         str(strings.TrimSpace),
		"squeeze":      str(Squeeze),
		"xhtml_escape": str(XHTMLEscape),
		"url_escape":   str(URLEscape),
		"json_encode": func(val Value, _ []Value) (Value, error) {
			s, err := JSONEncode(val)
			if err != nil {
				return nil, err
			}
			return StringValue(s), nil
		},
		"default": func(val Value, args []Value) (Value, error) {
			if len(args) < 1 || (val != nil && val.Truth()) {
				return val, nil
			}
			return args[0], nil
		},
		"join": func(val Value, args []Value) (Value, error) {
			sep := ","
			if len(args) > 0 {
				sep = args[0].String()
			}
			items, err := iterateValue(val)
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(items))
			for i, it := range items {
				parts[i] = it.String()
			}
			return StringValue(strings.Join(parts, sep)), nil
		},
		"length": func(val Value, _ []Value) (Value, error) {
			switch t := val.(type) {
			case StringValue:
				return IntValue(len(t)), nil
			case ListValue:
				return IntValue(len(t)), nil
			case DictValue:
				return IntValue(len(t)), nil
			}
			return IntValue(0), nil
		},
	}
}

// BasicEvaluator is a dependency-free evaluator covering variable
// lookup, literals, not/==/!=, and a filter pipeline such as
// name|upper|default('x'). It is the default when no evaluator option
// is given; richer expressions need a full host evaluator.
type BasicEvaluator struct {
	Filters Filters
}

func NewBasicEvaluator() *BasicEvaluator {
	return &BasicEvaluator{Filters: DefaultFilters()}
}

func (e *BasicEvaluator) Eval(code string, ctx Context) (Value, error) {
	s := strings.TrimSpace(code)
	if s == "" {
		return NoneValue{}, nil
	}
	if rest, ok := strings.CutPrefix(s, "not "); ok {
		v, err := e.Eval(rest, ctx)
		if err != nil {
			return nil, err
		}
		return BoolValue(!v.Truth()), nil
	}
	if a, b, ok := splitComparison(s, "=="); ok {
		eq, err := e.compare(a, b, ctx)
		return BoolValue(eq), err
	}
	if a, b, ok := splitComparison(s, "!="); ok {
		eq, err := e.compare(a, b, ctx)
		return BoolValue(!eq), err
	}
	parts, err := splitTopLevel(s, '|')
	if err != nil {
		return nil, err
	}
	val, err := evalAtom(parts[0], ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range parts[1:] {
		name, args, err := parseFilterCall(f, ctx)
		if err != nil {
			return nil, err
		}
		fn := e.Filters[name]
		if fn == nil {
			return nil, fmt.Errorf("unknown filter: %s", name)
		}
		val, err = fn(val, args)
		if err != nil {
			return nil, err
		}
	}
	return val, nil
}

// Exec supports assignment statements of the form "name = expr". The
// built-in evaluator has no statement language beyond that; import
// statements need a full host evaluator.
func (e *BasicEvaluator) Exec(code string, ctx Context) error {
	s := strings.TrimSpace(code)
	name, expr, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("unsupported statement: %q", s)
	}
	name = strings.TrimSpace(name)
	if name == "" || !isIdentifier(name) {
		return fmt.Errorf("invalid assignment target: %q", name)
	}
	v, err := e.Eval(strings.TrimSpace(expr), ctx)
	if err != nil {
		return err
	}
	ctx[name] = v
	return nil
}

func (e *BasicEvaluator) compare(a, b string, ctx Context) (bool, error) {
	va, err := e.Eval(a, ctx)
	if err != nil {
		return false, err
	}
	vb, err := e.Eval(b, ctx)
	if err != nil {
		return false, err
	}
	return va.String() == vb.String(), nil
}

func splitComparison(s, op string) (string, string, bool) {
	i := strings.Index(s, op)
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(op):]), true
}

// splitTopLevel splits s on sep, ignoring separators inside quotes or
// parentheses.
func splitTopLevel(s string, sep byte) ([]string, error) {
	var parts []string
	var b strings.Builder
	depth := 0
	inStr := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr != 0 {
			b.WriteByte(c)
			if c == inStr {
				inStr = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = c
			b.WriteByte(c)
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			if depth > 0 {
				depth--
			}
			b.WriteByte(c)
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(b.String()))
				b.Reset()
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	if inStr != 0 {
		return nil, fmt.Errorf("unterminated string in expression: %q", s)
	}
	if b.Len() > 0 {
		parts = append(parts, strings.TrimSpace(b.String()))
	}
	if len(parts) == 0 {
		parts = []string{strings.TrimSpace(s)}
	}
	return parts, nil
}

func parseFilterCall(s string, ctx Context) (string, []Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil, fmt.Errorf("empty filter")
	}
	name := s
	var args []Value
	if i := strings.IndexByte(s, '('); i >= 0 && strings.HasSuffix(s, ")") {
		name = strings.TrimSpace(s[:i])
		argStr := strings.TrimSpace(s[i+1 : len(s)-1])
		if argStr != "" {
			split, err := splitTopLevel(argStr, ',')
			if err != nil {
				return "", nil, err
			}
			for _, a := range split {
				v, err := evalAtom(a, ctx)
				if err != nil {
					return "", nil, err
				}
				args = append(args, v)
			}
		}
	}
	return name, args, nil
}

func evalAtom(s string, ctx Context) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoneValue{}, nil
	}
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return StringValue(s[1 : len(s)-1]), nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FloatValue(f), nil
	}
	switch s {
	case "true", "True":
		return BoolValue(true), nil
	case "false", "False":
		return BoolValue(false), nil
	case "none", "None", "nil", "null":
		return NoneValue{}, nil
	}
	// Dotted identifier lookup.
	var cur Value
	for i, p := range strings.Split(s, ".") {
		var ok bool
		if i == 0 {
			cur, ok = ctx[p]
		} else {
			cur, ok = lookupValue(cur, p)
		}
		if !ok {
			return NoneValue{}, nil
		}
	}
	return cur, nil
}

func lookupValue(v Value, key string) (Value, bool) {
	switch t := v.(type) {
	case DictValue:
		val, ok := t[key]
		return val, ok
	case ListValue:
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(t) {
			return t[i], true
		}
	}
	return nil, false
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > 0
}
