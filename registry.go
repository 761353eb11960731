package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-settings/internal/hydrate"
	"github.com/goliatone/go-settings/layering"
	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/state"
)

// Actor identifies who triggered a mutation. It is only used to annotate
// activity events.
type Actor struct {
	ID       string
	UserID   string
	TenantID string
}

// Registry binds a validated definition to the store of its option group.
// Every operation is synchronous. Concurrent saves are last-write-wins.
type Registry struct {
	def        *Definition
	group      string
	refs       []FieldRef
	index      map[StorageKey]FieldRef
	defaults   Values
	store      state.Store[Values]
	logger     Logger
	validators []Validator
	emitter    *activity.Emitter
	evaluator  Evaluator
	visibility Evaluator
	checks     map[StorageKey]CompiledRule
	clock      func() time.Time
}

// NewRegistry validates def and prepares it for use. Field validate
// expressions are compiled up front so a broken expression is reported as a
// ConfigError.
func NewRegistry(def *Definition, opts ...Option) (*Registry, error) {
	if def == nil {
		return nil, configErrorf("", "definition is nil")
	}
	if strings.TrimSpace(def.Group) == "" {
		return nil, configErrorf("option_group", "option group is required")
	}
	if _, err := (state.Ref{Group: def.Group}).Identifier(); err != nil {
		return nil, configErrorf("option_group", "%v", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.store == nil {
		cfg.store = state.NewMemoryStore(state.WithMemoryCopy(Values.Clone))
	}
	if cfg.programCache == nil {
		cfg.programCache = NewMemoryProgramCache()
	}
	functions := withBuiltins(cfg.functions)
	if cfg.evaluator == nil {
		evaluator, err := NewEngine(cfg.engine, WithRuleCache(cfg.programCache), WithRuleFunctions(functions))
		if err != nil {
			return nil, err
		}
		cfg.evaluator = evaluator
	}

	r := &Registry{
		def:        def,
		group:      def.Group,
		refs:       collectFields(def),
		index:      map[StorageKey]FieldRef{},
		store:      cfg.store,
		logger:     cfg.logger,
		validators: append([]Validator{}, cfg.validators...),
		emitter:    activity.NewEmitter(cfg.activityChannel, cfg.activityHooks),
		evaluator:  cfg.evaluator,
		visibility: NewExprEvaluator(WithRuleCache(cfg.programCache), WithRuleFunctions(functions)),
		checks:     map[StorageKey]CompiledRule{},
		clock:      cfg.clock,
	}
	for _, ref := range r.refs {
		r.index[ref.Key] = ref
	}
	r.defaults = layering.MergeLayers(cfg.fieldDefaults, Defaults(def))
	if r.defaults == nil {
		r.defaults = Values{}
	}

	for _, ref := range r.refs {
		if strings.TrimSpace(ref.Field.Validate) == "" {
			continue
		}
		rule, err := r.evaluator.Compile(ref.Field.Validate)
		if err != nil {
			return nil, configErrorf(ref.Key.String(), "validate expression: %v", err)
		}
		r.checks[ref.Key] = rule
	}
	return r, nil
}

// Group returns the option group name.
func (r *Registry) Group() string {
	return r.group
}

// Definition returns the definition the registry was built from.
func (r *Registry) Definition() *Definition {
	return r.def
}

// Sections returns the sections ordered for rendering.
func (r *Registry) Sections() []Section {
	return r.def.SortedSections()
}

// HasTabs reports whether the definition groups sections under tabs.
func (r *Registry) HasTabs() bool {
	return r.def.HasTabs()
}

// TabHasSettings reports whether any section belongs to tabID.
func (r *Registry) TabHasSettings(tabID string) bool {
	for _, section := range r.def.Sections {
		if section.TabID == tabID {
			return true
		}
	}
	return false
}

// Fields returns every stored field in render order.
func (r *Registry) Fields() []FieldRef {
	return append([]FieldRef{}, r.refs...)
}

// Lookup returns the field stored under key.
func (r *Registry) Lookup(key StorageKey) (FieldRef, bool) {
	ref, ok := r.index[key]
	return ref, ok
}

// Defaults returns the effective default of every field.
func (r *Registry) Defaults() Values {
	return r.defaults.Clone()
}

// Values returns the persisted blob, or an empty map when nothing has been
// saved.
func (r *Registry) Values(ctx context.Context) (Values, error) {
	values, _, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Meta returns the storage metadata of the persisted blob.
func (r *Registry) Meta(ctx context.Context) (state.Meta, error) {
	_, meta, err := r.load(ctx)
	return meta, err
}

// Get returns the persisted value of a field. sectionID may carry the tab
// prefix ("tab_section"). ok is false when nothing is persisted for the key.
func (r *Registry) Get(ctx context.Context, sectionID, fieldID string) (any, bool, error) {
	values, _, err := r.load(ctx)
	if err != nil {
		return nil, false, err
	}
	value, ok := values[sectionID+"_"+fieldID]
	if !ok || value == nil {
		return nil, false, nil
	}
	return cloneAny(value), true, nil
}

// Resolve returns the value of key with defaults applied.
func (r *Registry) Resolve(ctx context.Context, key StorageKey) (any, error) {
	trace, err := r.Trace(ctx, key)
	if err != nil {
		return nil, err
	}
	return trace.Value, nil
}

// Trace resolves key and reports which layer produced the value.
func (r *Registry) Trace(ctx context.Context, key StorageKey) (Trace, error) {
	if _, ok := r.index[key]; !ok {
		return Trace{}, fmt.Errorf("%w: %q in group %q", ErrUnknownKey, key, r.group)
	}
	values, _, err := r.load(ctx)
	if err != nil {
		return Trace{}, err
	}
	return ResolveTrace(r.defaults, values, key), nil
}

// Materialize returns the resolved values nested by tab, section and field.
func (r *Registry) Materialize(ctx context.Context) (map[string]any, error) {
	values, _, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return r.materialize(values), nil
}

func (r *Registry) materialize(persisted Values) map[string]any {
	out := map[string]any{}
	tabbed := r.def.HasTabs()
	for _, ref := range r.refs {
		parent := out
		if tabbed {
			parent = childMap(parent, ref.Tab)
		}
		childMap(parent, ref.Section.ID)[ref.Field.ID] = ResolveValue(r.defaults, persisted, ref.Key)
	}
	return out
}

// Bind decodes the materialized values of r into T using json tags that
// mirror the tab, section and field ids.
func Bind[T any](ctx context.Context, r *Registry, opts ...hydrate.Option[T]) (T, error) {
	var zero T
	if r == nil {
		return zero, fmt.Errorf("settings: registry is nil")
	}
	nested, err := r.Materialize(ctx)
	if err != nil {
		return zero, err
	}
	return hydrate.New(opts...).Decode(hydrate.Origin{Group: r.group}, nested)
}

// Save runs the validators and overwrites the persisted blob with input.
// Validate expressions see missing keys through their defaults. Rejected
// submissions return a *ValidationError and leave storage untouched.
func (r *Registry) Save(ctx context.Context, input Values, actor Actor) (state.Meta, error) {
	start := r.clock()
	values, err := r.validate(ctx, input)
	if err != nil {
		r.log("save", start, err)
		return state.Meta{}, err
	}
	meta, err := r.store.Save(ctx, r.ref(), values, state.Meta{UpdatedAt: start.UTC()})
	if err != nil {
		err = fmt.Errorf("settings: save %q: %w", r.group, err)
		r.log("save", start, err)
		return state.Meta{}, err
	}
	r.log("save", start, nil)
	r.emit(ctx, activity.VerbSettingsSaved, actor, values, meta, "form")
	return meta, nil
}

// Patch merges partial over the persisted blob and saves the result. When
// etag is set it must match the stored record.
func (r *Registry) Patch(ctx context.Context, partial Values, etag string, actor Actor) (Values, state.Meta, error) {
	start := r.clock()
	saved, meta, err := state.Mutate(ctx, r.store, r.ref(), state.Meta{ETag: etag, UpdatedAt: start.UTC()}, func(current *Values) error {
		merged := layering.MergeLayers(partial, *current)
		if merged == nil {
			merged = Values{}
		}
		validated, err := r.validate(ctx, merged)
		if err != nil {
			return err
		}
		*current = validated
		return nil
	})
	r.log("patch", start, err)
	if err != nil {
		return nil, state.Meta{}, err
	}
	r.emit(ctx, activity.VerbSettingsSaved, actor, partial, meta, "patch")
	return saved.Clone(), meta, nil
}

// Delete removes the persisted blob. Resolved values fall back to defaults.
func (r *Registry) Delete(ctx context.Context, actor Actor) error {
	start := r.clock()
	if err := r.store.Delete(ctx, r.ref()); err != nil {
		err = fmt.Errorf("settings: delete %q: %w", r.group, err)
		r.log("delete", start, err)
		return err
	}
	r.log("delete", start, nil)
	r.emit(ctx, activity.VerbSettingsDeleted, actor, nil, state.Meta{}, "")
	return nil
}

// Export serializes the persisted blob as a JSON object. An option group that
// was never saved exports as {}.
func (r *Registry) Export(ctx context.Context, actor Actor) ([]byte, error) {
	start := r.clock()
	values, meta, err := r.load(ctx)
	if err != nil {
		r.log("export", start, err)
		return nil, err
	}
	payload, err := json.Marshal(values)
	if err != nil {
		err = fmt.Errorf("settings: export %q: %w", r.group, err)
		r.log("export", start, err)
		return nil, err
	}
	r.log("export", start, nil)
	r.emit(ctx, activity.VerbSettingsExported, actor, values, meta, "")
	return payload, nil
}

// Import overwrites the persisted blob with payload. The payload must be a
// JSON object or array; arrays are stored keyed by index. Malformed payloads
// return ErrInvalidImport and leave storage untouched. Validators are not
// run on imports.
func (r *Registry) Import(ctx context.Context, payload []byte, actor Actor) (state.Meta, error) {
	start := r.clock()
	values, err := parseImport(payload)
	if err != nil {
		r.log("import", start, err)
		return state.Meta{}, err
	}
	meta, err := r.store.Save(ctx, r.ref(), values, state.Meta{UpdatedAt: start.UTC()})
	if err != nil {
		err = fmt.Errorf("settings: import %q: %w", r.group, err)
		r.log("import", start, err)
		return state.Meta{}, err
	}
	r.log("import", start, nil)
	r.emit(ctx, activity.VerbSettingsImported, actor, values, meta, "import")
	return meta, nil
}

func parseImport(payload []byte) (Values, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidImport)
	}
	root := gjson.ParseBytes(payload)
	switch {
	case root.IsObject():
		values := Values{}
		if err := json.Unmarshal([]byte(root.Raw), &values); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
		return values, nil
	case root.IsArray():
		values := Values{}
		for i, item := range root.Array() {
			values[strconv.Itoa(i)] = item.Value()
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%w: expected an object or an array", ErrInvalidImport)
	}
}

// Visible reports whether the field stored under key is shown for values.
// Tab, section and field rules must all allow it. Missing values fall back to
// defaults.
func (r *Registry) Visible(key StorageKey, values Values) (bool, error) {
	ref, ok := r.index[key]
	if !ok {
		return false, fmt.Errorf("%w: %q in group %q", ErrUnknownKey, key, r.group)
	}
	effective := layering.MergeLayers(values, r.defaults)
	ruleSets := [][2]Rules{}
	if ref.Tab != "" {
		if tab, ok := r.def.Tab(ref.Tab); ok {
			ruleSets = append(ruleSets, [2]Rules{tab.ShowIf, tab.HideIf})
		}
	}
	ruleSets = append(ruleSets,
		[2]Rules{ref.Section.ShowIf, ref.Section.HideIf},
		[2]Rules{ref.Field.ShowIf, ref.Field.HideIf},
	)
	for _, rules := range ruleSets {
		source := VisibilityExpression(rules[0], rules[1])
		if source == "true" {
			continue
		}
		result, err := r.visibility.Evaluate(RuleContext{
			Group:  r.group,
			Key:    key,
			Value:  effective[key.String()],
			Values: effective,
			Now:    r.now(),
		}, source)
		if err != nil {
			return false, err
		}
		visible, ok := result.(bool)
		if !ok {
			return false, fmt.Errorf("settings: visibility of %q evaluated to %T", key, result)
		}
		if !visible {
			return false, nil
		}
	}
	return true, nil
}

func (r *Registry) validate(ctx context.Context, input Values) (Values, error) {
	values := input.Clone()
	if values == nil {
		values = Values{}
	}
	values, collected, err := runValidators(ctx, r.group, r.validators, values)
	if err != nil {
		return nil, err
	}

	effective := layering.MergeLayers(values, r.defaults)
	keys := make([]StorageKey, 0, len(r.checks))
	for key := range r.checks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		visible, err := r.Visible(key, values)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		start := r.clock()
		result, err := r.checks[key].Evaluate(RuleContext{
			Group:  r.group,
			Key:    key,
			Value:  effective[key.String()],
			Values: effective,
			Now:    r.now(),
		})
		event := LogEvent{
			Group:    r.group,
			Op:       "validate",
			Key:      key,
			Expr:     r.index[key].Field.Validate,
			Duration: r.clock().Sub(start),
			Err:      err,
		}
		var ruleErr *RuleError
		if errors.As(err, &ruleErr) {
			event.Engine = ruleErr.Engine
		}
		r.logger.Log(event)
		if err != nil {
			if ruleErr != nil {
				collected.Add(key, ruleErr.Message())
				continue
			}
			return nil, err
		}
		if message, ok := expressionVerdict(result); !ok {
			collected.Add(key, message)
		}
	}
	if !collected.empty() {
		return nil, collected
	}
	return values, nil
}

func (r *Registry) load(ctx context.Context) (Values, state.Meta, error) {
	values, meta, ok, err := r.store.Load(ctx, r.ref())
	if err != nil {
		return nil, state.Meta{}, fmt.Errorf("settings: load %q: %w", r.group, err)
	}
	if !ok || values == nil {
		return Values{}, meta, nil
	}
	return values.Clone(), meta, nil
}

func (r *Registry) ref() state.Ref {
	return state.Ref{Group: r.group}
}

func (r *Registry) now() *time.Time {
	now := r.clock()
	return &now
}

func (r *Registry) log(op string, start time.Time, err error) {
	r.logger.Log(LogEvent{
		Group:    r.group,
		Op:       op,
		Duration: r.clock().Sub(start),
		Err:      err,
	})
}

func (r *Registry) emit(ctx context.Context, verb string, actor Actor, values Values, meta state.Meta, source string) {
	if !r.emitter.Enabled() {
		return
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	event := activity.Event{
		Verb:       verb,
		Group:      r.group,
		ActorID:    actor.ID,
		UserID:     actor.UserID,
		TenantID:   actor.TenantID,
		Keys:       keys,
		SnapshotID: meta.SnapshotID,
		Source:     source,
		OccurredAt: r.clock(),
	}
	if err := r.emitter.Emit(ctx, event); err != nil {
		r.logger.Log(LogEvent{Group: r.group, Op: "activity", Err: err})
	}
}
