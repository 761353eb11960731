package settings

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Choice is one selectable option. A choice with Options is an option group
// whose Text is the group label.
type Choice struct {
	Value   string   `json:"value" yaml:"value"`
	Text    string   `json:"text" yaml:"text"`
	Image   string   `json:"image,omitempty" yaml:"image,omitempty"`
	Options []Choice `json:"options,omitempty" yaml:"options,omitempty"`
}

// IsGroup reports whether the choice wraps nested options.
func (c Choice) IsGroup() bool {
	return len(c.Options) > 0
}

// Choices keeps declaration order. It accepts either a list of choice objects
// or an object mapping value to label, image descriptor, or nested group.
type Choices []Choice

// Values returns the selectable values, flattening option groups.
func (c Choices) Values() []string {
	var out []string
	for _, choice := range c {
		if choice.IsGroup() {
			out = append(out, Choices(choice.Options).Values()...)
			continue
		}
		out = append(out, choice.Value)
	}
	return out
}

// Contains reports whether value is one of the selectable values.
func (c Choices) Contains(value string) bool {
	for _, candidate := range c.Values() {
		if candidate == value {
			return true
		}
	}
	return false
}

func (c *Choices) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}
	switch trimmed[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		out := make(Choices, 0, len(raw))
		for _, item := range raw {
			choice, err := decodeJSONListChoice(item)
			if err != nil {
				return err
			}
			out = append(out, choice)
		}
		*c = out
		return nil
	case '{':
		out, err := decodeJSONChoiceObject(trimmed)
		if err != nil {
			return err
		}
		*c = out
		return nil
	default:
		return fmt.Errorf("settings: choices must be an object or a list")
	}
}

func decodeJSONListChoice(item json.RawMessage) (Choice, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var choice Choice
		if err := json.Unmarshal(trimmed, &choice); err != nil {
			return Choice{}, err
		}
		if choice.Text == "" {
			choice.Text = choice.Value
		}
		return choice, nil
	}
	var scalar any
	if err := json.Unmarshal(trimmed, &scalar); err != nil {
		return Choice{}, err
	}
	value := stringify(scalar)
	return Choice{Value: value, Text: value}, nil
}

// decodeJSONChoiceObject walks the object token by token so keys keep the
// order they were declared in.
func decodeJSONChoiceObject(data []byte) (Choices, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out Choices
	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("settings: choice key must be a string")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		choice, err := decodeJSONKeyedChoice(key, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, choice)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeJSONKeyedChoice(key string, raw json.RawMessage) (Choice, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		var scalar any
		if err := json.Unmarshal(trimmed, &scalar); err != nil {
			return Choice{}, err
		}
		return Choice{Value: key, Text: stringify(scalar)}, nil
	}
	var probe map[string]any
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return Choice{}, err
	}
	if isImageDescriptor(probe) {
		return Choice{Value: key, Text: stringify(probe["text"]), Image: stringify(probe["image"])}, nil
	}
	nested, err := decodeJSONChoiceObject(trimmed)
	if err != nil {
		return Choice{}, err
	}
	return Choice{Value: key, Text: key, Options: nested}, nil
}

func (c *Choices) UnmarshalYAML(node *yaml.Node) error {
	out, err := decodeYAMLChoices(node)
	if err != nil {
		return err
	}
	*c = out
	return nil
}

func decodeYAMLChoices(node *yaml.Node) (Choices, error) {
	switch node.Kind {
	case yaml.SequenceNode:
		out := make(Choices, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.MappingNode {
				var choice Choice
				if err := item.Decode(&choice); err != nil {
					return nil, err
				}
				if choice.Text == "" {
					choice.Text = choice.Value
				}
				out = append(out, choice)
				continue
			}
			out = append(out, Choice{Value: item.Value, Text: item.Value})
		}
		return out, nil
	case yaml.MappingNode:
		out := make(Choices, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			value := node.Content[i+1]
			if value.Kind != yaml.MappingNode {
				out = append(out, Choice{Value: key, Text: value.Value})
				continue
			}
			var probe map[string]any
			if err := value.Decode(&probe); err != nil {
				return nil, err
			}
			if isImageDescriptor(probe) {
				out = append(out, Choice{Value: key, Text: stringify(probe["text"]), Image: stringify(probe["image"])})
				continue
			}
			nested, err := decodeYAMLChoices(value)
			if err != nil {
				return nil, err
			}
			out = append(out, Choice{Value: key, Text: key, Options: nested})
		}
		return out, nil
	case yaml.AliasNode:
		return decodeYAMLChoices(node.Alias)
	default:
		return nil, fmt.Errorf("settings: choices must be a mapping or a sequence (line %d)", node.Line)
	}
}

func isImageDescriptor(m map[string]any) bool {
	_, hasImage := m["image"].(string)
	_, hasText := m["text"].(string)
	return hasImage || hasText
}
