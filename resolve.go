package settings

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-settings/layering"
)

// ResolveValue returns the persisted value stored under key, else the declared
// default, else an empty string. Lists are returned as lists.
func ResolveValue(defaults, persisted Values, key StorageKey) any {
	return ResolveTrace(defaults, persisted, key).Value
}

// ResolveTrace resolves key like ResolveValue and reports which layer produced
// the value.
func ResolveTrace(defaults, persisted Values, key StorageKey) Trace {
	if value, ok := persisted[key.String()]; ok && value != nil {
		return Trace{Key: key, Source: SourcePersisted, Value: cloneAny(value)}
	}
	if value, ok := defaults[key.String()]; ok && value != nil {
		return Trace{Key: key, Source: SourceDefault, Value: cloneAny(value)}
	}
	return Trace{Key: key, Source: SourceEmpty, Value: ""}
}

// Defaults collects the declared default of every stored field keyed by
// storage key.
func Defaults(def *Definition) Values {
	out := Values{}
	if def == nil {
		return out
	}
	for _, ref := range collectFields(def) {
		if ref.Field.Default != nil {
			out[ref.Key.String()] = normalizeDefault(ref.Field.Default)
		}
	}
	return out
}

// Materialize nests resolved values as tab -> section -> field, or
// section -> field when the definition has no tabs.
func Materialize(def *Definition, persisted Values) map[string]any {
	out := map[string]any{}
	if def == nil {
		return out
	}
	defaults := Defaults(def)
	tabbed := def.HasTabs()
	for _, ref := range collectFields(def) {
		value := ResolveValue(defaults, persisted, ref.Key)
		parent := out
		if tabbed {
			parent = childMap(parent, ref.Tab)
		}
		childMap(parent, ref.Section.ID)[ref.Field.ID] = value
	}
	return out
}

func childMap(parent map[string]any, key string) map[string]any {
	if existing, ok := parent[key].(map[string]any); ok {
		return existing
	}
	child := map[string]any{}
	parent[key] = child
	return child
}

// normalizeDefault turns keyed list defaults into plain lists.
func normalizeDefault(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	if len(m) == 0 {
		return []any{}
	}
	list := make([]any, 0, len(m))
	for i := 0; i < len(m); i++ {
		item, ok := m[strconv.Itoa(i)]
		if !ok {
			return value
		}
		list = append(list, item)
	}
	return list
}

func cloneAny(value any) any {
	return layering.Clone(value)
}

// FormString renders value the way a form input submits it.
func FormString(value any) string {
	return stringify(value)
}

// stringify renders scalars the way they are submitted through a form.
func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(value)
	}
}
