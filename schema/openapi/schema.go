package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	settings "github.com/goliatone/go-settings"
)

// numberPattern matches the decimal strings number inputs submit.
const numberPattern = `^-?[0-9]+(\.[0-9]+)?$`

// valuesSchema is the object schema of a stored blob: one property per
// storage key. Group rows are published as their own components.
func valuesSchema(descriptors []settings.FieldDescriptor, comps *components) map[string]any {
	props := make(map[string]any, len(descriptors))
	for _, descriptor := range descriptors {
		key := descriptor.Key.String()
		prop := fieldSchema(descriptor)
		if descriptor.ValueType == settings.ValueRowsList {
			prop["items"] = map[string]any{"$ref": comps.add(pascalCase(key)+"Row", prop["items"].(map[string]any))}
		}
		prop["x-settings"] = map[string]any{
			"field_type": descriptor.Type.String(),
			"path":       descriptor.Path,
		}
		props[key] = prop
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
}

// fieldSchema describes how one field is stored. Numbers stay strings, the
// way forms submit them.
func fieldSchema(descriptor settings.FieldDescriptor) map[string]any {
	var schema map[string]any
	switch descriptor.ValueType {
	case settings.ValueList:
		items := map[string]any{"type": "string"}
		if len(descriptor.Choices) > 0 {
			items["enum"] = anyList(descriptor.Choices)
		}
		schema = map[string]any{"type": "array", "items": items}
	case settings.ValueRowsList:
		props := make(map[string]any, len(descriptor.Subfields))
		for _, sub := range descriptor.Subfields {
			props[sub.Key.String()] = fieldSchema(sub)
		}
		schema = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "object", "properties": props},
		}
	case settings.ValueNumber:
		schema = map[string]any{"type": "string", "pattern": numberPattern}
	default:
		schema = map[string]any{"type": "string"}
		if len(descriptor.Choices) > 0 {
			schema["enum"] = anyList(descriptor.Choices)
		}
	}
	if descriptor.Title != "" {
		schema["title"] = descriptor.Title
	}
	if descriptor.Default != nil {
		schema["default"] = descriptor.Default
	}
	return schema
}

// components collects components/schemas. Identical schemas share the name
// they were first added under.
type components struct {
	names   map[string]string
	schemas map[string]any
}

func newComponents() *components {
	return &components{names: map[string]string{}, schemas: map[string]any{}}
}

// add publishes schema and returns its $ref.
func (c *components) add(hint string, schema map[string]any) string {
	digest := digestOf(schema)
	if name, ok := c.names[digest]; ok && digest != "" {
		return refTo(name)
	}
	name := sanitizeName(hint)
	if name == "" {
		name = "Schema"
	}
	for base, n := name, 1; c.schemas[name] != nil; n++ {
		name = fmt.Sprintf("%s%d", base, n)
	}
	c.schemas[name] = schema
	if digest != "" {
		c.names[digest] = name
	}
	return refTo(name)
}

func refTo(name string) string {
	return "#/components/schemas/" + name
}

// digestOf hashes the canonical JSON of schema; encoding/json sorts map keys.
func digestOf(schema map[string]any) string {
	data, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func sanitizeName(name string) string {
	name = nonAlnum.ReplaceAllString(name, "")
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// pascalCase turns "my_plugin" into "MyPlugin".
func pascalCase(value string) string {
	var b strings.Builder
	for _, part := range nonAlnum.Split(value, -1) {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func anyList(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
