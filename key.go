package settings

import "strings"

// StorageKey is the flat key a field value is persisted and submitted under.
type StorageKey string

func (k StorageKey) String() string {
	return string(k)
}

// BuildKey derives the storage key of a field. The tab segment is only present
// when the definition uses tabs.
func BuildKey(tabID, sectionID, fieldID string) StorageKey {
	if tabID == "" {
		return StorageKey(sectionID + "_" + fieldID)
	}
	return StorageKey(tabID + "_" + sectionID + "_" + fieldID)
}

// keyFor returns the storage key for field, honouring an explicit name
// override.
func keyFor(tabID string, section Section, field Field) StorageKey {
	if field.Name != "" {
		return StorageKey(field.Name)
	}
	return BuildKey(tabID, section.ID, field.ID)
}

// OptionName is the name of the record holding the persisted blob of group.
func OptionName(group string) string {
	return group + "_settings"
}

// FieldName is the form input name for key within group.
func FieldName(group string, key StorageKey) string {
	return OptionName(group) + "[" + key.String() + "]"
}

// PageSlug is the URL slug of the settings page of group.
func PageSlug(group string) string {
	return Handle(group) + "-settings"
}

// Handle returns group with underscores replaced by dashes, used for asset and
// DOM identifiers.
func Handle(group string) string {
	return strings.ReplaceAll(group, "_", "-")
}
