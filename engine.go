package settings

import (
	"errors"
	"fmt"
	"strings"
)

// Rule engine names accepted by NewEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// ErrEmptyRule is returned when a blank expression is compiled.
var ErrEmptyRule = errors.New("settings: rule expression must not be empty")

// RuleError reports which engine failed on which rule, and for which storage
// key when the failure happened while evaluating a field.
type RuleError struct {
	Engine string
	Rule   string
	Key    string
	Err    error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("settings: ")
	b.WriteString(e.Engine)
	b.WriteString(" rule")
	if e.Rule != "" {
		fmt.Fprintf(&b, " %q", e.Rule)
	}
	if e.Key != "" {
		b.WriteString(" on ")
		b.WriteString(e.Key)
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message returns the underlying failure without the engine prefix. It is the
// text shown next to a field whose validate rule could not run.
func (e *RuleError) Message() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func ruleError(engine, rule, key string, err error) error {
	if err == nil {
		return nil
	}
	var existing *RuleError
	if errors.As(err, &existing) {
		if existing.Rule == "" {
			existing.Rule = rule
		}
		if existing.Key == "" {
			existing.Key = key
		}
		return existing
	}
	return &RuleError{Engine: engine, Rule: rule, Key: key, Err: err}
}

// EngineOption configures the evaluators built by NewEngine and the
// New*Evaluator constructors.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// WithRuleCache shares compiled programs through cache. Entries are keyed by
// engine and source, so engines can share one cache. Programs bind the
// functions they were compiled with: share a cache only between evaluators
// configured with the same functions.
func WithRuleCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// WithRuleFunctions exposes the functions of registry to rules. The registry
// is copied, later registrations are not seen.
func WithRuleFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

func newEngineConfig(opts []EngineOption) engineConfig {
	var cfg engineConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// NewEngine builds the evaluator registered under name. An empty name selects
// expr.
func NewEngine(name string, opts ...EngineOption) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if evaluator := NewJSEvaluator(opts...); evaluator != nil {
			return evaluator, nil
		}
		return nil, fmt.Errorf("settings: %s engine needs the js_eval build tag", EngineJS)
	default:
		return nil, fmt.Errorf("settings: unknown rule engine %q", name)
	}
}

// ruleBackend is the engine specific half of an evaluator: turning source
// into a program and running a program against a context.
type ruleBackend interface {
	engine() string
	compile(source string) (any, error)
	run(program any, ctx RuleContext) (any, error)
}

type ruleEvaluator struct {
	backend ruleBackend
	cache   ProgramCache
}

func (e *ruleEvaluator) Evaluate(ctx RuleContext, source string) (any, error) {
	rule, err := e.Compile(source)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *ruleEvaluator) Compile(source string) (CompiledRule, error) {
	program, err := e.program(source)
	if err != nil {
		return nil, err
	}
	return &compiledRule{backend: e.backend, source: source, program: program}, nil
}

func (e *ruleEvaluator) program(source string) (any, error) {
	engine := e.backend.engine()
	if strings.TrimSpace(source) == "" {
		return nil, &RuleError{Engine: engine, Err: ErrEmptyRule}
	}
	cacheKey := engine + ":" + source
	if e.cache != nil {
		if program, ok := e.cache.Get(cacheKey); ok {
			return program, nil
		}
	}
	program, err := e.backend.compile(source)
	if err != nil {
		return nil, ruleError(engine, source, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey, program)
	}
	return program, nil
}

type compiledRule struct {
	backend ruleBackend
	source  string
	program any
}

func (r *compiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	result, err := r.backend.run(r.program, ctx)
	if err != nil {
		return nil, ruleError(r.backend.engine(), r.source, ctx.label(), err)
	}
	return result, nil
}
