// Package render draws the HTML settings page of a definition.
//
// Every field type maps to one FieldRenderer. The built-in renderers execute
// the embedded templates; WithFieldRenderer replaces any of them.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	settings "github.com/goliatone/go-settings"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// Notice kinds.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeWarning = "warning"
	NoticeInfo    = "info"
)

// Notice is a message shown above the form.
type Notice struct {
	Kind    string
	Message string
}

// PageData carries the state of one page render.
type PageData struct {
	Definition *settings.Definition
	// Defaults overrides settings.Defaults(Definition) when set.
	Defaults  settings.Values
	Persisted settings.Values
	// Submitted values win over persisted ones when the form is redrawn
	// after a rejected save.
	Submitted settings.Values
	Errors    map[settings.StorageKey]string
	Notices   []Notice

	Action      string
	FormToken   string
	ExportURL   string
	ImportToken string

	ShowTabLinks   bool
	ShowSaveButton bool

	Translator Translator
}

// Renderer draws settings pages. It is safe for concurrent use.
type Renderer struct {
	templates  *template.Template
	fields     map[settings.FieldType]FieldRenderer
	translator Translator
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTranslator sets the translator used when PageData carries none.
func WithTranslator(translator Translator) Option {
	return func(r *Renderer) {
		if translator != nil {
			r.translator = translator
		}
	}
}

// WithFieldRenderer replaces the renderer of fieldType.
func WithFieldRenderer(fieldType settings.FieldType, renderer FieldRenderer) Option {
	return func(r *Renderer) {
		if renderer != nil {
			r.fields[fieldType] = renderer
		}
	}
}

// New parses the embedded templates and builds a Renderer.
func New(opts ...Option) (*Renderer, error) {
	tmpl, err := template.New("render").Funcs(template.FuncMap{
		"json":    toJSON,
		"trusted": trusted,
	}).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	r := &Renderer{
		templates:  tmpl,
		translator: defaultTranslator{},
	}
	r.fields = r.builtinFields()
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// RenderField draws the control of one field.
func (r *Renderer) RenderField(field FieldContext) (template.HTML, error) {
	renderer, ok := r.fields[field.Field.Type]
	if !ok {
		return "", fmt.Errorf("render: no renderer for field type %q", field.Field.Type)
	}
	if field.Translator == nil {
		field.Translator = r.translator
	}
	return renderer.RenderField(field)
}

// RenderPage writes the whole settings page to w.
func (r *Renderer) RenderPage(w io.Writer, data PageData) error {
	if data.Definition == nil {
		return fmt.Errorf("render: definition is required")
	}
	view, err := r.buildPage(data)
	if err != nil {
		return err
	}
	if err := r.templates.ExecuteTemplate(w, "page", view); err != nil {
		return fmt.Errorf("render: page %q: %w", data.Definition.Group, err)
	}
	return nil
}

func toJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// trusted marks definition-authored markup as safe.
func trusted(value string) template.HTML {
	return template.HTML(strings.TrimSpace(value))
}
