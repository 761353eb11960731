package settings

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// NewCELEvaluator returns an evaluator backed by cel-go. Rules are type
// checked at compile time; registered functions are reachable through
// call(name, args...).
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	cfg := newEngineConfig(opts)
	return &ruleEvaluator{
		backend: &celBackend{functions: cfg.functions},
		cache:   cfg.cache,
	}
}

type celBackend struct {
	functions *FunctionRegistry
}

func (b *celBackend) engine() string { return EngineCEL }

func (b *celBackend) compile(source string) (any, error) {
	env, err := celgo.NewEnv(b.declarations()...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (b *celBackend) run(program any, ctx RuleContext) (any, error) {
	prg, ok := program.(celgo.Program)
	if !ok {
		return nil, fmt.Errorf("unexpected program type %T", program)
	}
	out, _, err := prg.Eval(ctx.bindings())
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (b *celBackend) declarations() []celgo.EnvOption {
	decls := []celgo.EnvOption{
		celgo.Variable("group", celgo.StringType),
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("values", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("now", celgo.TimestampType),
	}
	if b.functions != nil {
		decls = append(decls, celgo.Function("call",
			celgo.Overload("settings_call",
				[]*celgo.Type{celgo.StringType},
				celgo.DynType,
				celgo.FunctionBinding(functions.FunctionOp(b.call)),
			),
			celgo.Overload("settings_call_args",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.FunctionBinding(functions.FunctionOp(b.call)),
			),
		))
	}
	return decls
}

// call resolves call(name) and call(name, [args...]) against the registry.
func (b *celBackend) call(values ...ref.Val) ref.Val {
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("call: function name must be a string")
	}
	var args []any
	if len(values) > 1 {
		list, ok := values[1].(traits.Lister)
		if !ok {
			return types.NewErr("call: arguments must be a list")
		}
		for it := list.Iterator(); it.HasNext() == types.True; {
			args = append(args, it.Next().Value())
		}
	}
	result, err := b.functions.Call(name, args...)
	if err != nil {
		return types.NewErr("%v", err)
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
