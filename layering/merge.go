// Package layering stacks and copies the JSON-like trees that option values
// are made of: maps with string keys, lists and scalars.
package layering

// Tree is any map keyed by option name, such as settings.Values.
type Tree interface {
	~map[string]any
}

// MergeLayers stacks layers ordered from strongest to weakest. Nested maps
// are merged key by key; any other non-nil value in a stronger layer replaces
// the weaker one, lists included. The result shares nothing with the inputs.
// Merging zero layers, or only nil ones, returns nil.
func MergeLayers[M Tree](layers ...M) M {
	if len(layers) == 0 {
		return nil
	}
	var out map[string]any
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i] == nil {
			continue
		}
		out = overlay(out, layers[i])
	}
	return M(out)
}

// overlay copies base and writes top over it.
func overlay(base, top map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(top))
	for key, value := range base {
		out[key] = Clone(value)
	}
	for key, value := range top {
		if value == nil {
			if _, ok := out[key]; !ok {
				out[key] = nil
			}
			continue
		}
		nested, isMap := value.(map[string]any)
		below, belowIsMap := out[key].(map[string]any)
		if isMap && belowIsMap {
			out[key] = overlay(below, nested)
			continue
		}
		out[key] = Clone(value)
	}
	return out
}

// Clone deep copies maps and lists inside value. Scalars are returned as is.
func Clone[T any](value T) T {
	cloned, ok := cloneTree(any(value)).(T)
	if !ok {
		return value
	}
	return cloned
}

func cloneTree(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneTree(item)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneTree(item)
		}
		return out
	case map[string]string:
		if v == nil {
			return v
		}
		out := make(map[string]string, len(v))
		for key, item := range v {
			out[key] = item
		}
		return out
	case []string:
		if v == nil {
			return v
		}
		return append([]string(nil), v...)
	case []map[string]any:
		if v == nil {
			return v
		}
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i], _ = cloneTree(item).(map[string]any)
		}
		return out
	default:
		return value
	}
}
