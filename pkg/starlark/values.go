package starlark

import (
	"fmt"

	"github.com/emberweb/ember/pkg/template"
	"go.starlark.net/starlark"
)

// ToStarlark converts a template Value to a Starlark value.
func ToStarlark(val template.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}
	switch v := val.(type) {
	case template.NoneValue:
		return starlark.None
	case template.StringValue:
		return starlark.String(string(v))
	case template.IntValue:
		return starlark.MakeInt64(int64(v))
	case template.FloatValue:
		return starlark.Float(float64(v))
	case template.BoolValue:
		return starlark.Bool(bool(v))
	case template.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ToStarlark(item)
		}
		return starlark.NewList(items)
	case template.DictValue:
		dict := starlark.NewDict(len(v))
		for key, value := range v {
			_ = dict.SetKey(starlark.String(key), ToStarlark(value))
		}
		return dict
	case *template.DeferredValue:
		return deferredWrapper{d: v}
	case template.CallableValue:
		return starlark.NewBuiltin(v.Name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			in := make([]template.Value, len(args))
			for i, a := range args {
				in[i] = FromStarlark(a)
			}
			out, err := v.Fn(in)
			if err != nil {
				return nil, err
			}
			return ToStarlark(out), nil
		})
	default:
		return starlark.String(val.String())
	}
}

// FromStarlark converts a Starlark value to a template Value.
func FromStarlark(val starlark.Value) template.Value {
	if val == nil || val == starlark.None {
		return template.NoneValue{}
	}
	switch v := val.(type) {
	case starlark.String:
		return template.StringValue(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return template.IntValue(i)
		}
		return template.StringValue(v.String())
	case starlark.Float:
		return template.FloatValue(float64(v))
	case starlark.Bool:
		return template.BoolValue(bool(v))
	case starlark.Tuple:
		items := make(template.ListValue, len(v))
		for i, item := range v {
			items[i] = FromStarlark(item)
		}
		return items
	case *starlark.List:
		items := make(template.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = FromStarlark(v.Index(i))
		}
		return items
	case *starlark.Dict:
		dict := make(template.DictValue)
		for _, item := range v.Items() {
			key, value := item[0], item[1]
			if keyStr, ok := key.(starlark.String); ok {
				dict[string(keyStr)] = FromStarlark(value)
			} else {
				dict[key.String()] = FromStarlark(value)
			}
		}
		return dict
	case deferredWrapper:
		return v.d
	case starlark.Callable:
		return template.CallableValue{
			Name: v.Name(),
			Fn: func(args []template.Value) (template.Value, error) {
				in := make(starlark.Tuple, len(args))
				for i, a := range args {
					in[i] = ToStarlark(a)
				}
				thread := &starlark.Thread{Name: "ember"}
				out, err := starlark.Call(thread, v, in, nil)
				if err != nil {
					return nil, err
				}
				return FromStarlark(out), nil
			},
		}
	default:
		return template.StringValue(val.String())
	}
}

// deferredWrapper exposes a DeferredValue through Starlark untouched,
// so a yield expression can return one without settling it.
type deferredWrapper struct {
	d *template.DeferredValue
}

func (deferredWrapper) String() string        { return "<deferred>" }
func (deferredWrapper) Type() string          { return "deferred" }
func (deferredWrapper) Freeze()               {}
func (deferredWrapper) Truth() starlark.Bool  { return starlark.True }
func (deferredWrapper) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: deferred") }
