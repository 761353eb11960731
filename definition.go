package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-settings/internal/hydrate"
)

var groupNameSanitizer = regexp.MustCompile(`(?i)[^a-z0-9]+`)

// DecodeDefinition converts a loosely typed definition into a validated
// Definition. raw is either the wrapper object {tabs, sections, page} or a bare
// list of sections. Map keys carry no order, so choices declared as objects
// come back sorted by value. LoadDefinition keeps declaration order for JSON
// and YAML files.
func DecodeDefinition(raw any) (*Definition, error) {
	return decodeDefinition(hydrate.Origin{}, raw)
}

func decodeDefinition(origin hydrate.Origin, raw any) (*Definition, error) {
	var payload map[string]any
	switch typed := raw.(type) {
	case nil:
		return nil, configErrorf("", "definition is empty")
	case []any:
		payload = map[string]any{"sections": typed}
	case map[string]any:
		payload = typed
	default:
		return nil, configErrorf("", "definition must be an object or a list of sections, got %T", raw)
	}

	decoder := hydrate.New(
		hydrate.Normalize[Definition](normalizeDefinitionPayload),
		hydrate.Check(validateDefinitionHook),
	)
	def, err := decoder.Decode(origin, payload)
	if err != nil {
		return nil, asConfigError(err)
	}
	return &def, nil
}

// normalizeDefinitionPayload checks the wrapper shape before decoding.
func normalizeDefinitionPayload(origin hydrate.Origin, payload map[string]any) (map[string]any, error) {
	sections, ok := payload["sections"]
	if !ok {
		return nil, configErrorf("sections", "definition has no sections")
	}
	if _, ok := sections.([]any); !ok {
		return nil, configErrorf("sections", "sections must be a list, got %T", sections)
	}
	if tabs, ok := payload["tabs"]; ok && tabs != nil {
		if _, ok := tabs.([]any); !ok {
			return nil, configErrorf("tabs", "tabs must be a list, got %T", tabs)
		}
	}
	if _, ok := payload["option_group"]; !ok && origin.Group != "" {
		payload["option_group"] = origin.Group
	}
	return payload, nil
}

func validateDefinitionHook(_ hydrate.Origin, def *Definition) error {
	return def.Validate()
}

// LoadDefinition parses a definition file. The parser is chosen by the
// extension of name: .json, .yaml, .yml or .hjson. When the file does not
// declare an option group it is derived from the file name.
func LoadDefinition(name string, data []byte) (*Definition, error) {
	group := groupFromFilename(name)
	origin := hydrate.Origin{Group: group, File: filepath.Base(name)}

	var (
		def *Definition
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		def, err = parseJSONDefinition(data)
	case ".yaml", ".yml":
		def, err = parseYAMLDefinition(data)
	case ".hjson":
		var raw any
		if err := hjson.Unmarshal(data, &raw); err != nil {
			return nil, &ConfigError{Path: origin.File, Reason: err.Error()}
		}
		return decodeDefinition(origin, raw)
	default:
		return nil, configErrorf(origin.File, "unsupported definition format %q", filepath.Ext(name))
	}
	if err != nil {
		return nil, &ConfigError{Path: origin.File, Reason: err.Error()}
	}
	if def.Group == "" {
		def.Group = group
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func parseJSONDefinition(data []byte) (*Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("definition is empty")
	}
	if trimmed[0] == '[' {
		var sections []Section
		if err := json.Unmarshal(trimmed, &sections); err != nil {
			return nil, err
		}
		return &Definition{Sections: sections}, nil
	}
	var def Definition
	if err := json.Unmarshal(trimmed, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func parseYAMLDefinition(data []byte) (*Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("definition is empty")
	}
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var sections []Section
		if err := root.Decode(&sections); err != nil {
			return nil, err
		}
		return &Definition{Sections: sections}, nil
	}
	var def Definition
	if err := root.Decode(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

func groupFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return groupNameSanitizer.ReplaceAllString(base, "")
}

func asConfigError(err error) error {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}
	return &ConfigError{Reason: err.Error()}
}

// HasTabs reports whether sections are grouped under tabs.
func (d *Definition) HasTabs() bool {
	return d != nil && len(d.Tabs) > 0
}

// Tab returns the tab declared with id.
func (d *Definition) Tab(id string) (Tab, bool) {
	if d == nil {
		return Tab{}, false
	}
	for _, tab := range d.Tabs {
		if tab.ID == id {
			return tab, true
		}
	}
	return Tab{}, false
}

// KeyOf returns the storage key of field declared in section. Export and
// import widgets get a key too; it only serves as their DOM id.
func (d *Definition) KeyOf(section Section, field Field) StorageKey {
	tabID := ""
	if d.HasTabs() {
		tabID = section.TabID
	}
	return keyFor(tabID, section, field)
}

// SortedSections returns the sections ordered by Order. Sections without an
// order keep their declared position; ordered sections are sorted among the
// remaining slots, ties in declaration order.
func (d *Definition) SortedSections() []Section {
	if d == nil {
		return nil
	}
	sections := make([]Section, len(d.Sections))
	copy(sections, d.Sections)

	var slots []int
	var ordered []Section
	for i, section := range sections {
		if section.Order != nil {
			slots = append(slots, i)
			ordered = append(ordered, section)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return *ordered[i].Order < *ordered[j].Order
	})
	for i, slot := range slots {
		sections[slot] = ordered[i]
	}
	return sections
}

// Validate checks the structural rules every definition must follow and
// normalizes field type names.
func (d *Definition) Validate() error {
	if d == nil {
		return configErrorf("", "definition is nil")
	}
	if len(d.Sections) == 0 {
		return configErrorf("sections", "definition has no sections")
	}

	tabIDs := map[string]struct{}{}
	for i, tab := range d.Tabs {
		path := fmt.Sprintf("tabs[%d]", i)
		if strings.TrimSpace(tab.ID) == "" {
			return configErrorf(path, "tab id is required")
		}
		if _, exists := tabIDs[tab.ID]; exists {
			return configErrorf(path, "duplicate tab id %q", tab.ID)
		}
		tabIDs[tab.ID] = struct{}{}
	}

	sectionIDs := map[string]struct{}{}
	keys := map[StorageKey]string{}
	for i := range d.Sections {
		section := &d.Sections[i]
		path := fmt.Sprintf("sections[%d]", i)
		if strings.TrimSpace(section.ID) == "" {
			return configErrorf(path, "section_id is required")
		}
		if strings.TrimSpace(section.Title) == "" {
			return configErrorf(path, "section %q has no section_title", section.ID)
		}
		tabID := ""
		if d.HasTabs() {
			if _, ok := tabIDs[section.TabID]; !ok {
				return configErrorf(path, "section %q references undeclared tab %q", section.ID, section.TabID)
			}
			tabID = section.TabID
		} else if section.TabID != "" {
			return configErrorf(path, "section %q references tab %q but no tabs are declared", section.ID, section.TabID)
		}
		sectionKey := tabID + "/" + section.ID
		if _, exists := sectionIDs[sectionKey]; exists {
			return configErrorf(path, "duplicate section id %q", section.ID)
		}
		sectionIDs[sectionKey] = struct{}{}

		for j := range section.Fields {
			field := &section.Fields[j]
			fieldPath := fmt.Sprintf("%s.fields[%d]", path, j)
			if err := validateField(fieldPath, field, true); err != nil {
				return err
			}
			if !field.Type.Stored() {
				continue
			}
			key := keyFor(tabID, *section, *field)
			if previous, exists := keys[key]; exists {
				return configErrorf(fieldPath, "storage key %q already used by %s", key, previous)
			}
			keys[key] = fieldPath
		}
	}
	return nil
}

func validateField(path string, field *Field, allowGroup bool) error {
	if strings.TrimSpace(field.ID) == "" {
		return configErrorf(path, "field id is required")
	}
	fieldType, err := ParseFieldType(field.Type.String())
	if err != nil {
		return configErrorf(path, "field %q: %v", field.ID, err)
	}
	field.Type = fieldType
	if fieldType.requiresTitle() && strings.TrimSpace(field.Title) == "" {
		return configErrorf(path, "field %q has no title", field.ID)
	}
	switch fieldType {
	case FieldGroup:
		if !allowGroup {
			return configErrorf(path, "field %q: groups cannot be nested", field.ID)
		}
		if len(field.Subfields) == 0 {
			return configErrorf(path, "group %q has no subfields", field.ID)
		}
		seen := map[string]struct{}{}
		for k := range field.Subfields {
			subfield := &field.Subfields[k]
			subPath := fmt.Sprintf("%s.subfields[%d]", path, k)
			if err := validateField(subPath, subfield, false); err != nil {
				return err
			}
			if _, exists := seen[subfield.ID]; exists {
				return configErrorf(subPath, "duplicate subfield id %q", subfield.ID)
			}
			seen[subfield.ID] = struct{}{}
		}
	case FieldSelect, FieldRadio, FieldCheckboxes, FieldImageRadio, FieldImageCheckboxes:
		if len(field.Choices) == 0 {
			return configErrorf(path, "field %q of type %s has no choices", field.ID, fieldType)
		}
	}
	return nil
}

// collectFields lists every stored field in render order with its storage key.
func collectFields(def *Definition) []FieldRef {
	var refs []FieldRef
	tabbed := def.HasTabs()
	for _, section := range def.SortedSections() {
		tabID := ""
		if tabbed {
			tabID = section.TabID
		}
		for _, field := range section.Fields {
			if !field.Type.Stored() {
				continue
			}
			refs = append(refs, FieldRef{
				Tab:     tabID,
				Section: section,
				Field:   field,
				Key:     keyFor(tabID, section, field),
			})
		}
	}
	return refs
}
