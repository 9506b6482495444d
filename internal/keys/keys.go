// Package keys reshapes nested maps between naming conventions.
//
// Values are the shapes produced by encoding/json and yaml.v3 decoding into
// interface values: map[string]any, []any, []map[string]any and scalars.
// Every transform walks the whole structure, rewriting map keys and leaving
// slice order and scalar leaves untouched. A nil input yields nil.
package keys

import (
	"errors"
	"fmt"

	"github.com/stoewer/go-strcase"
)

// Symbol is a symbolic map key, kept distinct from plain string keys so that
// callers can tell normalised maps from raw decoder output.
type Symbol string

// ErrKeyCollision reports two keys of one map that rename to the same key.
var ErrKeyCollision = errors.New("keys collide after renaming")

// Snake rewrites every map key to snake_case. When two keys of one map
// rename to the same key only one value survives, and which one is
// unspecified. Use SnakeStrict where that must be detected.
func Snake(v any) any {
	out, _ := renameKeys(v, strcase.SnakeCase, false)
	return out
}

// SnakeStrict is Snake, failing with ErrKeyCollision instead of dropping a
// value when two keys of one map rename to the same key.
func SnakeStrict(v any) (any, error) {
	return renameKeys(v, strcase.SnakeCase, true)
}

// Camel rewrites every map key to UpperCamelCase, the convention used on the
// Cognito wire. Collisions behave as in Snake.
func Camel(v any) any {
	out, _ := renameKeys(v, strcase.UpperCamelCase, false)
	return out
}

func renameKeys(v any, rename func(string) string, strict bool) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if t == nil {
			return nil, nil
		}
		out := make(map[string]any, len(t))
		from := make(map[string]string, len(t))
		for k, val := range t {
			nk := rename(k)
			if prev, seen := from[nk]; seen && strict {
				return nil, fmt.Errorf("%w: %q and %q both become %q", ErrKeyCollision, prev, k, nk)
			}
			renamed, err := renameKeys(val, rename, strict)
			if err != nil {
				return nil, err
			}
			from[nk] = k
			out[nk] = renamed
		}
		return out, nil
	case []map[string]any:
		if t == nil {
			return nil, nil
		}
		out := make([]any, len(t))
		for i, val := range t {
			renamed, err := renameKeys(val, rename, strict)
			if err != nil {
				return nil, err
			}
			out[i] = renamed
		}
		return out, nil
	case []any:
		if t == nil {
			return nil, nil
		}
		out := make([]any, len(t))
		for i, val := range t {
			renamed, err := renameKeys(val, rename, strict)
			if err != nil {
				return nil, err
			}
			out[i] = renamed
		}
		return out, nil
	default:
		return v, nil
	}
}

// Symbolize converts string-keyed maps into Symbol-keyed maps.
func Symbolize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if t == nil {
			return nil
		}
		out := make(map[Symbol]any, len(t))
		for k, val := range t {
			out[Symbol(k)] = Symbolize(val)
		}
		return out
	case []map[string]any:
		if t == nil {
			return nil
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Symbolize(val)
		}
		return out
	case []any:
		if t == nil {
			return nil
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Symbolize(val)
		}
		return out
	default:
		return v
	}
}

// Stringify converts Symbol-keyed maps back into string-keyed maps.
func Stringify(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[Symbol]any:
		if t == nil {
			return nil
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[string(k)] = Stringify(val)
		}
		return out
	case []any:
		if t == nil {
			return nil
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Stringify(val)
		}
		return out
	default:
		return v
	}
}

// DeepMerge combines left and right into a new map. When a key holds a map on
// both sides the two are merged recursively, otherwise the right value wins.
// Neither input is modified.
func DeepMerge(left, right map[string]any) map[string]any {
	if left == nil && right == nil {
		return nil
	}

	out := make(map[string]any, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}

	for k, rv := range right {
		lm, lok := out[k].(map[string]any)
		rm, rok := rv.(map[string]any)
		if lok && rok {
			out[k] = DeepMerge(lm, rm)
			continue
		}
		out[k] = rv
	}

	return out
}
