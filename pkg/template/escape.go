package template

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

var xhtmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// XHTMLEscape escapes the characters that are unsafe in XHTML text and
// attribute values. Expression output passes through it by default.
func XHTMLEscape(s string) string { return xhtmlReplacer.Replace(s) }

// URLEscape escapes a string for use in a URL query component.
func URLEscape(s string) string { return url.QueryEscape(s) }

// JSONEncode encodes a value as JSON text.
func JSONEncode(v Value) (string, error) {
	b, err := json.Marshal(toGo(v))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var squeezeRE = regexp.MustCompile(`[\x00-\x20]+`)

// Squeeze collapses runs of whitespace and control characters into
// single spaces and trims the ends.
func Squeeze(s string) string {
	return strings.TrimSpace(squeezeRE.ReplaceAllString(s, " "))
}

// toGo converts a Value back to a plain Go value for encoding.
func toGo(v Value) any {
	switch t := v.(type) {
	case nil, NoneValue:
		return nil
	case BoolValue:
		return bool(t)
	case IntValue:
		return int64(t)
	case FloatValue:
		return float64(t)
	case StringValue:
		return string(t)
	case ListValue:
		out := make([]any, len(t))
		for i, it := range t {
			out[i] = toGo(it)
		}
		return out
	case DictValue:
		out := make(map[string]any, len(t))
		for k, it := range t {
			out[k] = toGo(it)
		}
		return out
	}
	return v.String()
}

// ApplyFunc post-processes the output of an {% apply %} block.
type ApplyFunc func(string) (string, error)

// DefaultApplyFuncs returns the apply-function registry preloaded with
// the escape helpers and common string transforms.
func DefaultApplyFuncs() map[string]ApplyFunc {
	plain := func(fn func(string) string) ApplyFunc {
		return func(s string) (string, error) { return fn(s), nil }
	}
	return map[string]ApplyFunc{
		"squeeze":      plain(Squeeze),
		"xhtml_escape": plain(XHTMLEscape),
		"url_escape":   plain(URLEscape),
		"upper":        plain(strings.ToUpper),
		"lower":        plain(strings.ToLower),
		"trim":         plain(strings.TrimSpace),
		"json_encode": func(s string) (string, error) {
			return JSONEncode(StringValue(s))
		},
	}
}
