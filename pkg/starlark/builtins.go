package starlark

import (
	"fmt"
	"strings"

	"github.com/emberweb/ember/pkg/template"
	"go.starlark.net/starlark"
)

// Builtins returns the default builtin set: print plus the engine's
// escape helpers, callable from any expression or statement.
func Builtins() starlark.StringDict {
	strBuiltin := func(name string, fn func(string) string) *starlark.Builtin {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			var s string
			if err := starlark.UnpackPositionalArgs(b.Name(), args, nil, 1, &s); err != nil {
				return nil, err
			}
			return starlark.String(fn(s)), nil
		})
	}

	return starlark.StringDict{
		"print": starlark.NewBuiltin("print", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				if s, ok := a.(starlark.String); ok {
					parts[i] = string(s)
				} else {
					parts[i] = a.String()
				}
			}
			fmt.Println(strings.Join(parts, " "))
			return starlark.None, nil
		}),

		"xhtml_escape": strBuiltin("xhtml_escape", template.XHTMLEscape),
		"url_escape":   strBuiltin("url_escape", template.URLEscape),
		"squeeze":      strBuiltin("squeeze", template.Squeeze),

		"json_encode": starlark.NewBuiltin("json_encode", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			var v starlark.Value
			if err := starlark.UnpackPositionalArgs(b.Name(), args, nil, 1, &v); err != nil {
				return nil, err
			}
			s, err := template.JSONEncode(FromStarlark(v))
			if err != nil {
				return nil, err
			}
			return starlark.String(s), nil
		}),
	}
}
