package settings

import (
	"strings"
)

// Value shapes reported by FieldDescriptor.ValueType.
const (
	ValueString   = "string"
	ValueNumber   = "number"
	ValueList     = "list"
	ValueRowsList = "rows"
)

// FieldDescriptor describes the stored shape of one field.
type FieldDescriptor struct {
	Key       StorageKey
	Path      string
	Type      FieldType
	ValueType string
	Title     string
	Default   any
	Choices   []string
	Subfields []FieldDescriptor
}

// Describe lists a descriptor per stored field of def in render order.
func Describe(def *Definition) []FieldDescriptor {
	if def == nil {
		return nil
	}
	refs := collectFields(def)
	defaults := Defaults(def)
	out := make([]FieldDescriptor, 0, len(refs))
	for _, ref := range refs {
		descriptor := describeField(ref.Field, joinPath(ref.Tab, ref.Section.ID, ref.Field.ID))
		descriptor.Key = ref.Key
		descriptor.Default = defaults[ref.Key.String()]
		out = append(out, descriptor)
	}
	return out
}

// Describe lists a descriptor per stored field, with defaults overridden by
// WithFieldDefaults applied.
func (r *Registry) Describe() []FieldDescriptor {
	out := Describe(r.def)
	for i := range out {
		out[i].Default = cloneAny(r.defaults[out[i].Key.String()])
	}
	return out
}

func describeField(field Field, path string) FieldDescriptor {
	descriptor := FieldDescriptor{
		Path:      path,
		Type:      field.Type,
		ValueType: valueTypeOf(field.Type),
		Title:     field.Title,
		Default:   field.Default,
	}
	if len(field.Choices) > 0 {
		descriptor.Choices = field.Choices.Values()
	}
	for _, sub := range field.Subfields {
		child := describeField(sub, joinPath(path, sub.ID))
		child.Key = StorageKey(sub.ID)
		descriptor.Subfields = append(descriptor.Subfields, child)
	}
	return descriptor
}

func valueTypeOf(fieldType FieldType) string {
	switch fieldType {
	case FieldNumber:
		return ValueNumber
	case FieldGroup:
		return ValueRowsList
	}
	if fieldType.Multiple() {
		return ValueList
	}
	return ValueString
}

func joinPath(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment != "" {
			kept = append(kept, segment)
		}
	}
	return strings.Join(kept, ".")
}
