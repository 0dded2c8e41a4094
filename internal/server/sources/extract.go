package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Fields is a partially-typed upstream payload. Accessors never fail: a
// missing or mistyped value yields the zero value (or the given default).
type Fields map[string]any

// DecodeFields decodes raw keeping numbers as json.Number, so large amounts
// survive without float rounding.
func DecodeFields(raw json.RawMessage) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}

// Lookup walks nested objects along path.
func (f Fields) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(f)
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// String returns the scalar at path rendered as a string, or "".
func (f Fields) String(path ...string) string {
	return f.StringOr("", path...)
}

// StringOr returns the scalar at path rendered as a string, or def when it
// is missing, empty or not a scalar.
func (f Fields) StringOr(def string, path ...string) string {
	v, ok := f.Lookup(path...)
	if !ok {
		return def
	}
	s, ok := scalar(v)
	if !ok || s == "" {
		return def
	}
	return s
}

// FirstString returns the first non-empty top-level field among keys.
func (f Fields) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := f.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Strings returns the array at path as strings. Object elements contribute
// their "name" field; empty values are dropped.
func (f Fields) Strings(path ...string) []string {
	v, ok := f.Lookup(path...)
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		if m, ok := asMap(item); ok {
			item = m["name"]
		}
		if s, ok := scalar(item); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Fields:
		return m, true
	}
	return nil, false
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// fallbackID is the synthetic id of a record without one.
func fallbackID(i int) string {
	return fmt.Sprintf("index-%d", i)
}
