package settings

import (
	"fmt"
	"strings"
)

// FieldType identifies the widget used to render and store a field.
type FieldType string

const (
	FieldText            FieldType = "text"
	FieldHidden          FieldType = "hidden"
	FieldNumber          FieldType = "number"
	FieldPassword        FieldType = "password"
	FieldTextarea        FieldType = "textarea"
	FieldSelect          FieldType = "select"
	FieldRadio           FieldType = "radio"
	FieldCheckbox        FieldType = "checkbox"
	FieldToggle          FieldType = "toggle"
	FieldCheckboxes      FieldType = "checkboxes"
	FieldColor           FieldType = "color"
	FieldDate            FieldType = "date"
	FieldTime            FieldType = "time"
	FieldFile            FieldType = "file"
	FieldEditor          FieldType = "editor"
	FieldCodeEditor      FieldType = "code_editor"
	FieldImageRadio      FieldType = "image_radio"
	FieldImageCheckboxes FieldType = "image_checkboxes"
	FieldMultiInputs     FieldType = "multiinputs"
	FieldGroup           FieldType = "group"
	FieldCustom          FieldType = "custom"
	FieldExport          FieldType = "export"
	FieldImport          FieldType = "import"
)

// FieldTypes lists every supported field type in declaration order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldText, FieldHidden, FieldNumber, FieldPassword, FieldTextarea,
		FieldSelect, FieldRadio, FieldCheckbox, FieldToggle, FieldCheckboxes,
		FieldColor, FieldDate, FieldTime, FieldFile, FieldEditor, FieldCodeEditor,
		FieldImageRadio, FieldImageCheckboxes, FieldMultiInputs, FieldGroup,
		FieldCustom, FieldExport, FieldImport,
	}
}

// ParseFieldType converts a declared type name into a FieldType. Unknown names
// are rejected.
func ParseFieldType(value string) (FieldType, error) {
	normalized := FieldType(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range FieldTypes() {
		if normalized == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("settings: unknown field type %q", value)
}

func (t FieldType) String() string {
	return string(t)
}

// Multiple reports whether the field stores a list of values.
func (t FieldType) Multiple() bool {
	switch t {
	case FieldCheckboxes, FieldImageCheckboxes, FieldMultiInputs, FieldGroup:
		return true
	default:
		return false
	}
}

// Stored reports whether the field contributes a value to the persisted blob.
// Export and import widgets only render controls.
func (t FieldType) Stored() bool {
	return t != FieldExport && t != FieldImport
}

// requiresTitle reports whether a field of this type must declare a title.
func (t FieldType) requiresTitle() bool {
	switch t {
	case FieldHidden, FieldCustom, FieldExport, FieldImport:
		return false
	default:
		return true
	}
}
