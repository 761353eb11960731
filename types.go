package settings

import (
	"time"
)

// Values is the flat persisted blob of one option group keyed by storage key.
type Values map[string]any

// Clone returns a deep copy of v.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = cloneAny(value)
	}
	return out
}

// Definition describes the full settings tree of one option group.
type Definition struct {
	Group    string    `json:"option_group,omitempty" yaml:"option_group,omitempty"`
	Page     Page      `json:"page,omitempty" yaml:"page,omitempty"`
	Tabs     []Tab     `json:"tabs,omitempty" yaml:"tabs,omitempty"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Page carries admin page metadata for the option group.
type Page struct {
	Title      string `json:"page_title,omitempty" yaml:"page_title,omitempty"`
	MenuTitle  string `json:"menu_title,omitempty" yaml:"menu_title,omitempty"`
	ParentSlug string `json:"parent_slug,omitempty" yaml:"parent_slug,omitempty"`
	Capability string `json:"capability,omitempty" yaml:"capability,omitempty"`
	IconURL    string `json:"icon_url,omitempty" yaml:"icon_url,omitempty"`
	Position   *int   `json:"position,omitempty" yaml:"position,omitempty"`
}

// DefaultCapability guards settings pages that do not declare one.
const DefaultCapability = "manage_options"

// Tab is an optional presentational grouping above sections.
type Tab struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Class  string `json:"class,omitempty" yaml:"class,omitempty"`
	ShowIf Rules  `json:"show_if,omitempty" yaml:"show_if,omitempty"`
	HideIf Rules  `json:"hide_if,omitempty" yaml:"hide_if,omitempty"`
}

// SectionOrder returns n as a Section.Order value.
func SectionOrder(n int) *int {
	return &n
}

// Section groups fields under a heading. A nil Order keeps the section at its
// declared position.
type Section struct {
	ID          string  `json:"section_id" yaml:"section_id"`
	Title       string  `json:"section_title" yaml:"section_title"`
	Order       *int    `json:"section_order,omitempty" yaml:"section_order,omitempty"`
	TabID       string  `json:"tab_id,omitempty" yaml:"tab_id,omitempty"`
	Description string  `json:"section_description,omitempty" yaml:"section_description,omitempty"`
	ShowIf      Rules   `json:"show_if,omitempty" yaml:"show_if,omitempty"`
	HideIf      Rules   `json:"hide_if,omitempty" yaml:"hide_if,omitempty"`
	Fields      []Field `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field is a single configurable value.
type Field struct {
	ID             string         `json:"id" yaml:"id"`
	Type           FieldType      `json:"type" yaml:"type"`
	Title          string         `json:"title,omitempty" yaml:"title,omitempty"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	Subtitle       string         `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Desc           string         `json:"desc,omitempty" yaml:"desc,omitempty"`
	Placeholder    string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Class          string         `json:"class,omitempty" yaml:"class,omitempty"`
	Default        any            `json:"default,omitempty" yaml:"default,omitempty"`
	Choices        Choices        `json:"choices,omitempty" yaml:"choices,omitempty"`
	Subfields      []Field        `json:"subfields,omitempty" yaml:"subfields,omitempty"`
	Output         string         `json:"output,omitempty" yaml:"output,omitempty"`
	Mimetype       string         `json:"mimetype,omitempty" yaml:"mimetype,omitempty"`
	DatePicker     map[string]any `json:"datepicker,omitempty" yaml:"datepicker,omitempty"`
	TimePicker     map[string]any `json:"timepicker,omitempty" yaml:"timepicker,omitempty"`
	EditorSettings map[string]any `json:"editor_settings,omitempty" yaml:"editor_settings,omitempty"`
	Link           *Link          `json:"link,omitempty" yaml:"link,omitempty"`
	Validate       string         `json:"validate,omitempty" yaml:"validate,omitempty"`
	ShowIf         Rules          `json:"show_if,omitempty" yaml:"show_if,omitempty"`
	HideIf         Rules          `json:"hide_if,omitempty" yaml:"hide_if,omitempty"`
}

// Link decorates a field label with a tooltip or an inline "learn more" link.
type Link struct {
	URL      string `json:"url" yaml:"url"`
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
	External *bool  `json:"external,omitempty" yaml:"external,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
}

// IsExternal reports whether the link opens in a new window. Links are
// external unless stated otherwise.
func (l Link) IsExternal() bool {
	return l.External == nil || *l.External
}

// IsTooltip reports whether the link renders as an info icon next to the label.
func (l Link) IsTooltip() bool {
	return l.Type == "" || l.Type == "tooltip"
}

// FieldRef locates a field inside a definition together with its storage key.
type FieldRef struct {
	Tab     string
	Section Section
	Field   Field
	Key     StorageKey
}

// Trace records where a resolved value came from.
type Trace struct {
	Key    StorageKey  `json:"key"`
	Source ValueSource `json:"source"`
	Value  any         `json:"value"`
}

// ValueSource identifies the layer that produced a resolved value.
type ValueSource string

const (
	SourcePersisted ValueSource = "persisted"
	SourceDefault   ValueSource = "default"
	SourceEmpty     ValueSource = "empty"
)

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Group    string
	Key      StorageKey
	Value    any
	Values   Values
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	if ctx.Values == nil {
		ctx.Values = Values{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) label() string {
	if ctx.Key != "" {
		return ctx.Key.String()
	}
	if ctx.Group != "" {
		return ctx.Group
	}
	return "unknown"
}

// bindings returns the variables exposed to every expression engine.
func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"values":   map[string]any(ctx.Values),
		"value":    ctx.Value,
		"key":      ctx.Key.String(),
		"group":    ctx.Group,
	}
}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, rule string) (any, error)
	Compile(rule string) (CompiledRule, error)
}

// CompiledRule is a rule compiled once and run per context.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}
