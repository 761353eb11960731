package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	settings "github.com/goliatone/go-settings"
)

// FieldContext is everything a FieldRenderer needs to draw one control.
type FieldContext struct {
	Group       string
	Field       settings.Field
	ID          string
	Name        string
	Value       any
	Class       string
	ExportURL   string
	ImportToken string
	Translator  Translator
}

// FieldRenderer draws the control of one field type.
type FieldRenderer interface {
	RenderField(field FieldContext) (template.HTML, error)
}

// FieldRendererFunc adapts a function to FieldRenderer.
type FieldRendererFunc func(field FieldContext) (template.HTML, error)

// RenderField implements FieldRenderer.
func (f FieldRendererFunc) RenderField(field FieldContext) (template.HTML, error) {
	return f(field)
}

// ValueString is the value as a form submits it.
func (f FieldContext) ValueString() string {
	return settings.FormString(f.Value)
}

// Values is the value as a list of submitted strings.
func (f FieldContext) Values() []string {
	switch typed := f.Value.(type) {
	case nil:
		return nil
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, settings.FormString(item))
		}
		return out
	case map[string]any:
		out := make([]string, 0, len(typed))
		for i := 0; i < len(typed); i++ {
			if item, ok := typed[strconv.Itoa(i)]; ok {
				out = append(out, settings.FormString(item))
			}
		}
		return out
	default:
		return []string{settings.FormString(typed)}
	}
}

// Is reports whether the scalar value equals candidate.
func (f FieldContext) Is(candidate string) bool {
	return f.ValueString() == candidate
}

// Has reports whether candidate is one of the list values.
func (f FieldContext) Has(candidate string) bool {
	for _, value := range f.Values() {
		if value == candidate {
			return true
		}
	}
	return false
}

// Truthy reports whether a checkbox value counts as checked.
func (f FieldContext) Truthy() bool {
	switch f.ValueString() {
	case "", "0", "false":
		return false
	default:
		return true
	}
}

// Translate resolves an interface label.
func (f FieldContext) Translate(messageID string) string {
	if f.Translator == nil {
		return defaultTranslator{}.Translate(messageID)
	}
	return f.Translator.Translate(messageID)
}

// Label is the stored value, or the translated fallback when it is empty.
func (f FieldContext) Label(fallbackID string) string {
	if value := f.ValueString(); value != "" {
		return value
	}
	return f.Translate(fallbackID)
}

// MultiInput is one text input of a multiinputs field.
type MultiInput struct {
	ID    string
	Value string
	Title string
}

// MultiInputs pairs every stored value with the title of its choice.
func (f FieldContext) MultiInputs() []MultiInput {
	values := f.Values()
	titles := f.Field.Choices
	count := len(values)
	if len(titles) > count {
		count = len(titles)
	}
	out := make([]MultiInput, 0, count)
	for i := 0; i < count; i++ {
		input := MultiInput{ID: fmt.Sprintf("%s_%d", f.ID, i)}
		if i < len(values) {
			input.Value = values[i]
		}
		if i < len(titles) {
			input.Title = titles[i].Text
		}
		out = append(out, input)
	}
	return out
}

func (r *Renderer) builtinFields() map[settings.FieldType]FieldRenderer {
	fields := map[settings.FieldType]FieldRenderer{
		settings.FieldCustom: FieldRendererFunc(renderCustom),
		settings.FieldGroup:  FieldRendererFunc(r.renderGroup),
	}
	for _, fieldType := range settings.FieldTypes() {
		if _, ok := fields[fieldType]; ok {
			continue
		}
		fields[fieldType] = r.templateField(fieldType.String())
	}
	return fields
}

// templateField renders the named template of fields.gohtml.
func (r *Renderer) templateField(name string) FieldRenderer {
	return FieldRendererFunc(func(field FieldContext) (template.HTML, error) {
		return r.execute(name, field)
	})
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render: template %q: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// renderCustom writes the declared output verbatim; definitions are trusted.
func renderCustom(field FieldContext) (template.HTML, error) {
	if field.Field.Output != "" {
		return template.HTML(field.Field.Output), nil
	}
	return template.HTML(template.HTMLEscapeString(settings.FormString(field.Field.Default))), nil
}

type groupRow struct {
	Name       string
	Index      int
	RowID      string
	Alternate  bool
	TemplateID string
	Fields     []groupCell
}

type groupCell struct {
	ID      string
	Title   string
	Type    settings.FieldType
	Control template.HTML
}

type groupView struct {
	FieldContext
	Rows     []template.HTML
	Template template.HTML
}

// renderGroup draws one table row per stored row and a blank row template
// used to add rows client side.
func (r *Renderer) renderGroup(field FieldContext) (template.HTML, error) {
	rows := groupRows(field.Value)
	count := len(rows)
	if count == 0 {
		count = 1
	}

	view := groupView{FieldContext: field}
	for i := 0; i < count; i++ {
		var values map[string]any
		if i < len(rows) {
			values = rows[i]
		}
		row, err := r.groupRow(field, i, values, false)
		if err != nil {
			return "", err
		}
		view.Rows = append(view.Rows, row)
	}

	blank, err := r.groupRow(field, 0, nil, true)
	if err != nil {
		return "", err
	}
	view.Template = template.HTML(fmt.Sprintf(
		`<script type="text/html" id="%s_template">%s</script>`,
		template.HTMLEscapeString(field.ID), blank,
	))
	return r.execute("group", view)
}

func (r *Renderer) groupRow(field FieldContext, index int, values map[string]any, blank bool) (template.HTML, error) {
	row := groupRow{
		Name:       field.Name,
		Index:      index,
		Alternate:  index%2 == 0,
		TemplateID: field.ID + "_template",
	}
	if !blank {
		row.RowID = strconv.Itoa(index)
		if id := settings.FormString(values["row_id"]); id != "" {
			row.RowID = id
		}
	}
	for _, sub := range field.Field.Subfields {
		var value any
		if !blank {
			value = values[sub.ID]
		}
		child := FieldContext{
			Group:       field.Group,
			Field:       sub,
			ID:          fmt.Sprintf("%s_%d_%s", field.ID, index, sub.ID),
			Name:        fmt.Sprintf("%s[%d][%s]", field.Name, index, sub.ID),
			Value:       value,
			Class:       sub.Class,
			ExportURL:   field.ExportURL,
			ImportToken: field.ImportToken,
			Translator:  field.Translator,
		}
		control, err := r.RenderField(child)
		if err != nil {
			return "", err
		}
		row.Fields = append(row.Fields, groupCell{
			ID:      child.ID,
			Title:   sub.Title,
			Type:    sub.Type,
			Control: control,
		})
	}
	return r.execute("group_row", row)
}

func groupRows(value any) []map[string]any {
	var items []any
	switch typed := value.(type) {
	case []any:
		items = typed
	case []map[string]any:
		out := make([]map[string]any, len(typed))
		copy(out, typed)
		return out
	case map[string]any:
		for i := 0; i < len(typed); i++ {
			item, ok := typed[strconv.Itoa(i)]
			if !ok {
				break
			}
			items = append(items, item)
		}
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if row, ok := item.(map[string]any); ok {
			out = append(out, row)
		}
	}
	return out
}
