package settings

import (
	"fmt"
	"slices"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprtypes "github.com/expr-lang/expr/types"
	exprvm "github.com/expr-lang/expr/vm"
)

// NewExprEvaluator returns the default evaluator, backed by expr-lang/expr.
// Registered functions are callable by name or through call(name, args...).
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	cfg := newEngineConfig(opts)
	return &ruleEvaluator{
		backend: &exprBackend{functions: cfg.functions},
		cache:   cfg.cache,
	}
}

// exprEnv declares the rule bindings. Declared names take precedence over
// expr builtins such as values() and now(); other names resolve to nil.
var exprEnv = exprtypes.Map{
	"group":         exprtypes.String,
	"key":           exprtypes.String,
	"value":         exprtypes.Any,
	"values":        exprtypes.TypeOf(map[string]any{}),
	"args":          exprtypes.TypeOf(map[string]any{}),
	"metadata":      exprtypes.TypeOf(map[string]any{}),
	"now":           exprtypes.TypeOf(time.Time{}),
	exprtypes.Extra: exprtypes.Any,
}

type exprBackend struct {
	functions *FunctionRegistry
}

func (b *exprBackend) engine() string { return EngineExpr }

func (b *exprBackend) compile(source string) (any, error) {
	options := []exprlang.Option{
		exprlang.Env(exprEnv),
		exprlang.AllowUndefinedVariables(),
	}
	names := b.functions.Names()
	for _, name := range names {
		options = append(options, exprlang.Function(name, b.caller(name)))
	}
	if len(names) > 0 && !slices.Contains(names, "call") {
		options = append(options, exprlang.Function("call", b.dispatch))
	}
	return exprlang.Compile(source, options...)
}

func (b *exprBackend) run(program any, ctx RuleContext) (any, error) {
	compiled, ok := program.(*exprvm.Program)
	if !ok {
		return nil, fmt.Errorf("unexpected program type %T", program)
	}
	return exprlang.Run(compiled, ctx.bindings())
}

// dispatch implements call(name, args...).
func (b *exprBackend) dispatch(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("call: function name is required")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("call: function name must be a string, got %T", args[0])
	}
	return b.functions.Call(name, args[1:]...)
}

func (b *exprBackend) caller(name string) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return b.functions.Call(name, args...)
	}
}
