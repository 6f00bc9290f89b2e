// Package merge combines loosely typed configuration objects.
//
// It is used to lay user-supplied bundler options over the adapter's defaults:
// nested objects merge key by key, arrays concatenate (base elements first),
// and scalars from the override win.
//
//	opts := merge.Objects(defaults, userOptions)
//
// Objects accumulates into its first argument. Callers that need to keep the
// base intact should pass a copy (see Clone).
package merge

import "reflect"

// Objects merges every map in others into base and returns base.
//
// Arrays concatenate instead of being replaced, nested maps merge
// recursively, and any other override value replaces the base value. The
// override maps are never mutated; values taken from them are deep-copied
// before they are stored in base. A nil base is replaced by a new map.
//
// Circular structures are not supported.
func Objects(base map[string]any, others ...map[string]any) map[string]any {
	if base == nil {
		base = make(map[string]any)
	}
	for _, other := range others {
		mergeInto(base, other)
	}
	return base
}

func mergeInto(dst, src map[string]any) {
	for key, sv := range src {
		dv, exists := dst[key]
		if !exists {
			dst[key] = Clone(sv)
			continue
		}
		dst[key] = mergeValue(dv, sv)
	}
}

func mergeValue(dst, src any) any {
	if dm, ok := dst.(map[string]any); ok {
		if sm, ok := src.(map[string]any); ok {
			mergeInto(dm, sm)
			return dm
		}
		return Clone(src)
	}

	if isSlice(dst) {
		if src == nil {
			return dst
		}
		return concat(dst, src)
	}

	return Clone(src)
}

// concat appends src to the slice dst. Slices of the same type stay typed;
// anything else is widened to []any.
func concat(dst, src any) any {
	dv := reflect.ValueOf(dst)
	sv := reflect.ValueOf(src)

	if sv.Kind() == reflect.Slice && sv.Type() == dv.Type() {
		out := reflect.MakeSlice(dv.Type(), 0, dv.Len()+sv.Len())
		out = reflect.AppendSlice(out, dv)
		out = reflect.AppendSlice(out, reflect.ValueOf(Clone(src)))
		return out.Interface()
	}

	out := make([]any, 0, dv.Len()+1)
	for i := 0; i < dv.Len(); i++ {
		out = append(out, dv.Index(i).Interface())
	}
	if sv.Kind() == reflect.Slice {
		for i := 0; i < sv.Len(); i++ {
			out = append(out, Clone(sv.Index(i).Interface()))
		}
	} else {
		out = append(out, Clone(src))
	}
	return out
}

// Clone returns a deep copy of plain data (maps with string keys, slices and
// scalars). Other values are returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}

	if isSlice(v) {
		rv := reflect.ValueOf(v)
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	}
	return v
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}
