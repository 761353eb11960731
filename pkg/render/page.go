package render

import (
	"html/template"
	"strings"

	settings "github.com/goliatone/go-settings"
)

type pageView struct {
	Group          string
	Title          string
	Notices        []Notice
	Action         string
	FormToken      string
	Tabs           []tabView
	Panels         []panelView
	ShowSaveButton bool
	SaveLabel      string
}

type tabView struct {
	ID     string
	Title  string
	Class  string
	Active bool
}

type panelView struct {
	ID       string
	Tabbed   bool
	Active   bool
	Sections []sectionView
}

type sectionView struct {
	ID          string
	Title       string
	Description string
	Visibility  string
	TableID     string
	Rows        []rowView
}

type rowView struct {
	Title      string
	Subtitle   string
	Link       *linkView
	InlineLink *linkView
	LabelFor   string
	Class      string
	Control    template.HTML
	Error      string
}

type linkView struct {
	URL      string
	Text     string
	External bool
	Tooltip  bool
}

// pageBuilder resolves values and classes for one render.
type pageBuilder struct {
	renderer   *Renderer
	data       PageData
	def        *settings.Definition
	defaults   settings.Values
	translator Translator
}

func (r *Renderer) buildPage(data PageData) (pageView, error) {
	b := pageBuilder{
		renderer:   r,
		data:       data,
		def:        data.Definition,
		defaults:   data.Defaults,
		translator: data.Translator,
	}
	if b.defaults == nil {
		b.defaults = settings.Defaults(b.def)
	}
	if b.translator == nil {
		b.translator = r.translator
	}

	view := pageView{
		Group:          b.def.Group,
		Title:          b.def.Page.Title,
		Notices:        data.Notices,
		Action:         data.Action,
		FormToken:      data.FormToken,
		ShowSaveButton: data.ShowSaveButton,
		SaveLabel:      b.translator.Translate(MsgSaveChanges),
	}
	if view.Title == "" {
		view.Title = b.def.Group
	}

	if !b.def.HasTabs() {
		sections, err := b.sections("")
		if err != nil {
			return pageView{}, err
		}
		view.Panels = []panelView{{Sections: sections}}
		return view, nil
	}

	for i, tab := range b.def.Tabs {
		sections, err := b.sections(tab.ID)
		if err != nil {
			return pageView{}, err
		}
		view.Panels = append(view.Panels, panelView{
			ID:       tab.ID,
			Tabbed:   true,
			Active:   i == 0,
			Sections: sections,
		})
	}
	if data.ShowTabLinks {
		view.Tabs = b.tabLinks()
	}
	return view, nil
}

// tabLinks lists the tabs that hold at least one section. The first listed
// tab is active.
func (b pageBuilder) tabLinks() []tabView {
	var tabs []tabView
	for _, tab := range b.def.Tabs {
		if !b.tabHasSections(tab.ID) {
			continue
		}
		class := tab.Class + settings.CompileVisibility(tab.ShowIf, tab.HideIf)
		tabs = append(tabs, tabView{
			ID:     tab.ID,
			Title:  tab.Title,
			Class:  class,
			Active: len(tabs) == 0,
		})
	}
	return tabs
}

func (b pageBuilder) tabHasSections(tabID string) bool {
	for _, section := range b.def.Sections {
		if section.TabID == tabID {
			return true
		}
	}
	return false
}

func (b pageBuilder) sections(tabID string) ([]sectionView, error) {
	prefix := b.def.Group
	if tabID != "" {
		prefix += "_" + tabID
	}
	var out []sectionView
	for _, section := range b.def.SortedSections() {
		if tabID != "" && section.TabID != tabID {
			continue
		}
		view := sectionView{
			ID:          section.ID,
			Title:       section.Title,
			Description: section.Description,
			Visibility:  strings.TrimLeft(settings.CompileVisibility(section.ShowIf, section.HideIf), " "),
			TableID:     prefix + "_" + section.ID + "_settings",
		}
		for _, field := range section.Fields {
			row, err := b.row(section, field)
			if err != nil {
				return nil, err
			}
			view.Rows = append(view.Rows, row)
		}
		out = append(out, view)
	}
	return out, nil
}

func (b pageBuilder) row(section settings.Section, field settings.Field) (rowView, error) {
	key := b.def.KeyOf(section, field)
	ctx := FieldContext{
		Group:       b.def.Group,
		Field:       field,
		ID:          key.String(),
		Name:        settings.FieldName(b.def.Group, key),
		Value:       b.value(key, field),
		Class:       field.Class + settings.CompileVisibility(field.ShowIf, field.HideIf),
		ExportURL:   b.data.ExportURL,
		ImportToken: b.data.ImportToken,
		Translator:  b.translator,
	}
	control, err := b.renderer.RenderField(ctx)
	if err != nil {
		return rowView{}, err
	}

	row := rowView{
		Title:    field.Title,
		Subtitle: field.Subtitle,
		Control:  control,
		Error:    b.data.Errors[key],
	}
	if labelsInput(field.Type) {
		row.LabelFor = ctx.ID
	}
	if row.Error != "" {
		row.Class = "rgs-row--error"
	}
	if link := b.link(field.Link); link != nil {
		if link.Tooltip {
			row.Link = link
		} else {
			row.InlineLink = link
		}
	}
	return row, nil
}

func (b pageBuilder) value(key settings.StorageKey, field settings.Field) any {
	if !field.Type.Stored() {
		return field.Default
	}
	if b.data.Submitted != nil {
		if value, ok := b.data.Submitted[key.String()]; ok {
			return value
		}
	}
	return settings.ResolveValue(b.defaults, b.data.Persisted, key)
}

func (b pageBuilder) link(link *settings.Link) *linkView {
	if link == nil || link.URL == "" {
		return nil
	}
	text := link.Text
	if text == "" {
		text = b.translator.Translate(MsgLearnMore)
	}
	return &linkView{
		URL:      link.URL,
		Text:     text,
		External: link.IsExternal(),
		Tooltip:  link.IsTooltip(),
	}
}

// labelsInput reports whether the control is a single element a label can
// point at.
func labelsInput(fieldType settings.FieldType) bool {
	switch fieldType {
	case settings.FieldText, settings.FieldNumber, settings.FieldPassword, settings.FieldTextarea,
		settings.FieldSelect, settings.FieldColor, settings.FieldDate, settings.FieldTime,
		settings.FieldFile, settings.FieldEditor, settings.FieldCodeEditor:
		return true
	default:
		return false
	}
}
