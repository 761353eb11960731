package settings

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/state"
)

func newTestDefinition() *Definition {
	return &Definition{
		Group: "demo",
		Tabs: []Tab{
			{ID: "main", Title: "Main"},
			{ID: "extra", Title: "Extra", ShowIf: Rules{{Conditions: []Condition{{Field: "main_general_mode", Values: []string{"expert"}}}}}},
		},
		Sections: []Section{
			{ID: "general", Title: "General", TabID: "main", Order: SectionOrder(1), Fields: []Field{
				{ID: "title", Type: FieldText, Title: "Title", Default: "Hello", Validate: `len(value) <= 10 ? true : "title is too long"`},
				{ID: "mode", Type: FieldSelect, Title: "Mode", Default: "basic", Choices: Choices{{Value: "basic", Text: "Basic"}, {Value: "expert", Text: "Expert"}}},
				{ID: "tags", Type: FieldCheckboxes, Title: "Tags", Choices: Choices{{Value: "a", Text: "A"}, {Value: "b", Text: "B"}}},
			}},
			{ID: "cache", Title: "Cache", TabID: "extra", Fields: []Field{
				{ID: "ttl", Type: FieldNumber, Title: "TTL", Default: "60", Validate: `int(value) > 0`},
			}},
		},
	}
}

type recordedLog struct {
	events []LogEvent
}

func (r *recordedLog) Log(event LogEvent) {
	r.events = append(r.events, event)
}

func (r *recordedLog) ops() []string {
	out := make([]string, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Op)
	}
	return out
}

func TestNewRegistryRequiresGroup(t *testing.T) {
	def := newTestDefinition()
	def.Group = ""
	if _, err := NewRegistry(def); !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
	def.Group = "bad group"
	if _, err := NewRegistry(def); !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition for invalid group, got %v", err)
	}
}

func TestNewRegistryRejectsBrokenValidateExpression(t *testing.T) {
	def := newTestDefinition()
	def.Sections[0].Fields[0].Validate = "len(value) <"
	_, err := NewRegistry(def)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if cfgErr.Path != "main_general_title" {
		t.Fatalf("unexpected path %q", cfgErr.Path)
	}
}

func TestRegistryAccessors(t *testing.T) {
	registry, err := NewRegistry(newTestDefinition())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if registry.Group() != "demo" || !registry.HasTabs() {
		t.Fatalf("unexpected registry %q tabs=%v", registry.Group(), registry.HasTabs())
	}
	if !registry.TabHasSettings("extra") || registry.TabHasSettings("missing") {
		t.Fatalf("TabHasSettings mismatch")
	}
	var keys []StorageKey
	for _, ref := range registry.Fields() {
		keys = append(keys, ref.Key)
	}
	want := []StorageKey{"main_general_title", "main_general_mode", "main_general_tags", "extra_cache_ttl"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("Fields keys = %v, want %v", keys, want)
	}
	ref, ok := registry.Lookup("extra_cache_ttl")
	if !ok || ref.Section.ID != "cache" || ref.Tab != "extra" {
		t.Fatalf("Lookup mismatch: %#v", ref)
	}
	if _, ok := registry.Lookup("nope"); ok {
		t.Fatalf("expected unknown key lookup to fail")
	}
}

func TestRegistrySaveAndRead(t *testing.T) {
	ctx := context.Background()
	capture := &activity.CaptureHook{}
	logs := &recordedLog{}
	registry, err := NewRegistry(newTestDefinition(),
		WithActivityHooks(activity.Hooks{capture, nil}),
		WithLogger(logs),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	values, err := registry.Values(ctx)
	if err != nil || len(values) != 0 {
		t.Fatalf("expected empty values before first save, got %v (%v)", values, err)
	}
	if _, ok, _ := registry.Get(ctx, "main_general", "title"); ok {
		t.Fatalf("expected Get to report missing before first save")
	}

	input := Values{
		"main_general_title": "Site",
		"main_general_tags":  []any{"a", "b"},
		"extra_cache_ttl":    "30",
	}
	meta, err := registry.Save(ctx, input, Actor{ID: "admin"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.SnapshotID == "" {
		t.Fatalf("expected snapshot id")
	}

	value, ok, err := registry.Get(ctx, "main_general", "tags")
	if err != nil || !ok {
		t.Fatalf("Get tags: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(value, []any{"a", "b"}) {
		t.Fatalf("Get tags = %#v", value)
	}

	nested, err := registry.Materialize(ctx)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	want := map[string]any{
		"main": map[string]any{"general": map[string]any{
			"title": "Site",
			"mode":  "basic",
			"tags":  []any{"a", "b"},
		}},
		"extra": map[string]any{"cache": map[string]any{"ttl": "30"}},
	}
	if !reflect.DeepEqual(nested, want) {
		t.Fatalf("Materialize = %#v, want %#v", nested, want)
	}

	trace, err := registry.Trace(ctx, "main_general_mode")
	if err != nil || trace.Source != SourceDefault {
		t.Fatalf("expected default trace, got %#v (%v)", trace, err)
	}
	if _, err := registry.Trace(ctx, "unknown"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}

	if verbs := capture.Verbs(); !reflect.DeepEqual(verbs, []string{activity.VerbSettingsSaved}) {
		t.Fatalf("unexpected events %v", verbs)
	}
	event := capture.Events()[0]
	if event.ActorID != "admin" || event.Group != "demo" || len(event.Keys) != 3 {
		t.Fatalf("unexpected event %#v", event)
	}
	if !strings.Contains(strings.Join(logs.ops(), ","), "save") {
		t.Fatalf("expected save log event, got %v", logs.ops())
	}
}

func TestRegistrySaveOverwritesBlob(t *testing.T) {
	ctx := context.Background()
	registry, err := NewRegistry(newTestDefinition())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_title": "One", "extra_cache_ttl": "5"}, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_title": "Two"}, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	values, _ := registry.Values(ctx)
	if !reflect.DeepEqual(values, Values{"main_general_title": "Two"}) {
		t.Fatalf("expected full overwrite, got %#v", values)
	}
}

func TestRegistrySaveValidation(t *testing.T) {
	ctx := context.Background()
	registry, err := NewRegistry(newTestDefinition(),
		WithValidator(RequiredKeys("main_general_mode")),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_mode": "basic"}, Actor{}); err != nil {
		t.Fatalf("initial Save: %v", err)
	}

	_, err = registry.Save(ctx, Values{
		"main_general_title": "This title is far too long",
		"main_general_mode":  "expert",
		"extra_cache_ttl":    "0",
	}, Actor{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation in chain")
	}
	if got := verr.Fields["main_general_title"]; got != "title is too long" {
		t.Fatalf("unexpected title message %q", got)
	}
	if got := verr.Fields["extra_cache_ttl"]; got != "value is invalid" {
		t.Fatalf("unexpected ttl message %q", got)
	}

	_, err = registry.Save(ctx, Values{"main_general_title": "ok"}, Actor{})
	if !errors.As(err, &verr) || verr.Fields["main_general_mode"] != "value is required" {
		t.Fatalf("expected required key rejection, got %v", err)
	}

	values, _ := registry.Values(ctx)
	if !reflect.DeepEqual(values, Values{"main_general_mode": "basic"}) {
		t.Fatalf("rejected saves must leave storage untouched, got %#v", values)
	}
}

func TestRegistrySaveSkipsHiddenFields(t *testing.T) {
	ctx := context.Background()
	registry, err := NewRegistry(newTestDefinition())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	// The extra tab is only shown in expert mode, so its ttl is not checked.
	if _, err := registry.Save(ctx, Values{"main_general_mode": "basic", "extra_cache_ttl": "0"}, Actor{}); err != nil {
		t.Fatalf("expected hidden field to skip validation, got %v", err)
	}
}

func TestRegistryValidatorSanitizes(t *testing.T) {
	ctx := context.Background()
	trim := ValidatorFunc(func(_ context.Context, group string, input Values) (Values, error) {
		if group != "demo" {
			t.Fatalf("unexpected group %q", group)
		}
		out := input.Clone()
		if title, ok := out["main_general_title"].(string); ok {
			out["main_general_title"] = strings.TrimSpace(title)
		}
		return out, nil
	})
	registry, err := NewRegistry(newTestDefinition(), WithValidator(trim))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_title": "  Padded  "}, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	value, _, _ := registry.Get(ctx, "main_general", "title")
	if value != "Padded" {
		t.Fatalf("expected sanitized title, got %#v", value)
	}

	failing := ValidatorFunc(func(context.Context, string, Values) (Values, error) {
		return nil, errors.New("backend down")
	})
	registry, _ = NewRegistry(newTestDefinition(), WithValidator(failing))
	if _, err := registry.Save(ctx, Values{}, Actor{}); err == nil || errors.Is(err, ErrValidation) {
		t.Fatalf("expected a non-validation error, got %v", err)
	}
}

func TestRegistryVisible(t *testing.T) {
	def := newTestDefinition()
	def.Sections[0].Fields[2].HideIf = Rules{{Conditions: []Condition{
		{Field: "main_general_mode", Values: []string{"expert"}},
		{Field: "main_general_title", Values: []string{"secret"}},
	}}}
	registry, err := NewRegistry(def)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	cases := []struct {
		name   string
		key    StorageKey
		values Values
		want   bool
	}{
		{"no rules", "main_general_title", nil, true},
		{"tab hidden by default", "extra_cache_ttl", nil, false},
		{"tab shown for expert", "extra_cache_ttl", Values{"main_general_mode": "expert"}, true},
		{"hide conjunction partial", "main_general_tags", Values{"main_general_mode": "expert"}, true},
		{"hide conjunction full", "main_general_tags", Values{"main_general_mode": "expert", "main_general_title": "secret"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := registry.Visible(tc.key, tc.values)
			if err != nil {
				t.Fatalf("Visible: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Visible(%s) = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
	if _, err := registry.Visible("missing", nil); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestRegistryExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	capture := &activity.CaptureHook{}
	source, err := NewRegistry(newTestDefinition(), WithActivityHooks(activity.Hooks{capture}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	empty, err := source.Export(ctx, Actor{})
	if err != nil || string(empty) != "{}" {
		t.Fatalf("expected {} before first save, got %s (%v)", empty, err)
	}

	saved := Values{"main_general_title": "Site", "main_general_tags": []any{"b"}}
	if _, err := source.Save(ctx, saved, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	payload, err := source.Export(ctx, Actor{ID: "exporter"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	target, err := NewRegistry(newTestDefinition(), WithActivityHooks(activity.Hooks{capture}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := target.Import(ctx, payload, Actor{ID: "importer"}); err != nil {
		t.Fatalf("Import: %v", err)
	}
	imported, _ := target.Values(ctx)
	if !reflect.DeepEqual(imported, saved) {
		t.Fatalf("round trip mismatch: %#v vs %#v", imported, saved)
	}

	want := []string{
		activity.VerbSettingsExported,
		activity.VerbSettingsSaved,
		activity.VerbSettingsExported,
		activity.VerbSettingsImported,
	}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestRegistryImportRejectsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	registry, err := NewRegistry(newTestDefinition())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_title": "Keep"}, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, payload := range []string{``, `{"a":`, `"text"`, `42`, `null`} {
		if _, err := registry.Import(ctx, []byte(payload), Actor{}); !errors.Is(err, ErrInvalidImport) {
			t.Fatalf("payload %q: expected ErrInvalidImport, got %v", payload, err)
		}
	}
	values, _ := registry.Values(ctx)
	if !reflect.DeepEqual(values, Values{"main_general_title": "Keep"}) {
		t.Fatalf("rejected import must leave storage untouched, got %#v", values)
	}
}

func TestRegistryImportArrayBecomesIndexedMap(t *testing.T) {
	ctx := context.Background()
	registry, err := NewRegistry(newTestDefinition())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := registry.Import(ctx, []byte(`["x", {"y": 1}]`), Actor{}); err != nil {
		t.Fatalf("Import: %v", err)
	}
	values, _ := registry.Values(ctx)
	want := Values{"0": "x", "1": map[string]any{"y": float64(1)}}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("Import array = %#v, want %#v", values, want)
	}
}

func TestRegistryPatch(t *testing.T) {
	ctx := context.Background()
	registry, err := NewRegistry(newTestDefinition())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	meta, err := registry.Save(ctx, Values{"main_general_title": "One", "main_general_mode": "basic"}, Actor{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	merged, _, err := registry.Patch(ctx, Values{"main_general_mode": "expert", "extra_cache_ttl": "15"}, meta.ETag, Actor{})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	want := Values{"main_general_title": "One", "main_general_mode": "expert", "extra_cache_ttl": "15"}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("Patch = %#v, want %#v", merged, want)
	}

	if _, _, err := registry.Patch(ctx, Values{"main_general_title": "Two"}, meta.ETag, Actor{}); !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ETag mismatch with stale etag, got %v", err)
	}
	if _, _, err := registry.Patch(ctx, Values{"extra_cache_ttl": "-1"}, "", Actor{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	values, _ := registry.Values(ctx)
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("failed patches must leave storage untouched, got %#v", values)
	}
}

func TestRegistryDelete(t *testing.T) {
	ctx := context.Background()
	capture := &activity.CaptureHook{}
	registry, err := NewRegistry(newTestDefinition(), WithActivityHooks(activity.Hooks{capture}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_title": "Gone"}, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := registry.Delete(ctx, Actor{}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	value, err := registry.Resolve(ctx, "main_general_title")
	if err != nil || value != "Hello" {
		t.Fatalf("expected default after delete, got %#v (%v)", value, err)
	}
	if got := capture.Verbs(); got[len(got)-1] != activity.VerbSettingsDeleted {
		t.Fatalf("expected deleted event, got %v", got)
	}
}

func TestRegistryFieldDefaults(t *testing.T) {
	registry, err := NewRegistry(newTestDefinition(), WithFieldDefaults(map[string]any{
		"main_general_title": "Host default",
	}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	value, err := registry.Resolve(context.Background(), "main_general_title")
	if err != nil || value != "Host default" {
		t.Fatalf("expected host default, got %#v (%v)", value, err)
	}
	if got := registry.Defaults()["main_general_mode"]; got != "basic" {
		t.Fatalf("declared defaults must survive, got %#v", got)
	}
}

type hostSettings struct {
	Main struct {
		General struct {
			Title string   `json:"title"`
			Mode  string   `json:"mode"`
			Tags  []string `json:"tags"`
		} `json:"general"`
	} `json:"main"`
	Extra struct {
		Cache struct {
			TTL string `json:"ttl"`
		} `json:"cache"`
	} `json:"extra"`
}

func TestBind(t *testing.T) {
	ctx := context.Background()
	registry, err := NewRegistry(newTestDefinition())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_tags": []any{"a"}}, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	bound, err := Bind[hostSettings](ctx, registry)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if bound.Main.General.Title != "Hello" || bound.Main.General.Mode != "basic" {
		t.Fatalf("unexpected general %#v", bound.Main.General)
	}
	if !reflect.DeepEqual(bound.Main.General.Tags, []string{"a"}) || bound.Extra.Cache.TTL != "60" {
		t.Fatalf("unexpected bound values %#v", bound)
	}
}

func TestRegistryWithCELEvaluator(t *testing.T) {
	def := newTestDefinition()
	def.Sections[0].Fields[0].Validate = `size(string(value)) <= 3`
	def.Sections[1].Fields[0].Validate = ""
	registry, err := NewRegistry(def, WithEngine(EngineCEL), WithProgramCache(NewMemoryProgramCache()))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ctx := context.Background()
	if _, err := registry.Save(ctx, Values{"main_general_title": "abc"}, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_title": "abcd"}, Actor{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegistryCrossFieldValidateOnEveryEngine(t *testing.T) {
	cases := []struct {
		engine string
		rule   string
	}{
		{EngineExpr, `values["main_general_mode"] != "expert" || len(value) >= 3`},
		{EngineCEL, `values["main_general_mode"] != "expert" || size(string(value)) >= 3`},
		{EngineJS, `values["main_general_mode"] !== "expert" || value.length >= 3`},
	}
	for _, tc := range cases {
		t.Run(tc.engine, func(t *testing.T) {
			if _, err := NewEngine(tc.engine); err != nil {
				t.Skipf("%s engine unavailable: %v", tc.engine, err)
			}
			def := newTestDefinition()
			def.Sections[0].Fields[0].Validate = tc.rule
			def.Sections[1].Fields[0].Validate = ""
			registry, err := NewRegistry(def, WithEngine(tc.engine))
			if err != nil {
				t.Fatalf("NewRegistry: %v", err)
			}
			ctx := context.Background()
			if _, err := registry.Save(ctx, Values{"main_general_mode": "basic", "main_general_title": "ab"}, Actor{}); err != nil {
				t.Fatalf("basic mode: %v", err)
			}
			_, err = registry.Save(ctx, Values{"main_general_mode": "expert", "main_general_title": "ab"}, Actor{})
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected validation error in expert mode, got %v", err)
			}
			if _, ok := validationErr.Fields["main_general_title"]; !ok {
				t.Fatalf("expected title error, got %v", validationErr.Fields)
			}
			if _, err := registry.Save(ctx, Values{"main_general_mode": "expert", "main_general_title": "abc"}, Actor{}); err != nil {
				t.Fatalf("expert mode with a long title: %v", err)
			}
		})
	}
}

func TestNewRegistryRejectsUnknownEngine(t *testing.T) {
	if _, err := NewRegistry(newTestDefinition(), WithEngine("lua")); err == nil {
		t.Fatalf("expected unknown engine error")
	}
}

func TestRegistryCustomFunctions(t *testing.T) {
	def := newTestDefinition()
	def.Sections[0].Fields[0].Validate = `capitalized(value)`
	registry, err := NewRegistry(def,
		WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
		WithCustomFunction("capitalized", func(args ...any) (any, error) {
			text, _ := args[0].(string)
			return text != "" && strings.ToUpper(text[:1]) == text[:1], nil
		}),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ctx := context.Background()
	if _, err := registry.Save(ctx, Values{"main_general_title": "Upper"}, Actor{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := registry.Save(ctx, Values{"main_general_title": "lower"}, Actor{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegistryStoreFailure(t *testing.T) {
	registry, err := NewRegistry(newTestDefinition(), WithStore(failingStore{}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ctx := context.Background()
	if _, err := registry.Values(ctx); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected load error, got %v", err)
	}
	if _, err := registry.Save(ctx, Values{}, Actor{}); err == nil {
		t.Fatalf("expected save error")
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, state.Ref) (Values, state.Meta, bool, error) {
	return nil, state.Meta{}, false, errors.New("disk full")
}

func (failingStore) Save(context.Context, state.Ref, Values, state.Meta) (state.Meta, error) {
	return state.Meta{}, errors.New("disk full")
}

func (failingStore) Delete(context.Context, state.Ref) error {
	return errors.New("disk full")
}

func TestDescribe(t *testing.T) {
	registry, err := NewRegistry(newTestDefinition())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	descriptors := registry.Describe()
	if len(descriptors) != 4 {
		t.Fatalf("expected 4 descriptors, got %d", len(descriptors))
	}
	tags := descriptors[2]
	if tags.Path != "main.general.tags" || tags.ValueType != ValueList {
		t.Fatalf("unexpected tags descriptor %#v", tags)
	}
	if !reflect.DeepEqual(tags.Choices, []string{"a", "b"}) {
		t.Fatalf("unexpected choices %v", tags.Choices)
	}
	if descriptors[3].ValueType != ValueNumber || descriptors[3].Default != "60" {
		t.Fatalf("unexpected ttl descriptor %#v", descriptors[3])
	}
	data, err := json.Marshal(descriptors)
	if err != nil || !strings.Contains(string(data), "main_general_title") {
		t.Fatalf("descriptors must marshal, got %s (%v)", data, err)
	}
}
