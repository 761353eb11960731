//go:build js_eval

package settings

import (
	"fmt"

	"github.com/dop251/goja"
)

// NewJSEvaluator returns an evaluator backed by goja. Every run gets a fresh
// runtime; registered functions are bound as globals and through call.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	cfg := newEngineConfig(opts)
	return &ruleEvaluator{
		backend: &jsBackend{functions: cfg.functions},
		cache:   cfg.cache,
	}
}

type jsBackend struct {
	functions *FunctionRegistry
}

func (b *jsBackend) engine() string { return EngineJS }

func (b *jsBackend) compile(source string) (any, error) {
	return goja.Compile("rule", "(function(){ return ("+source+"); })()", true)
}

func (b *jsBackend) run(program any, ctx RuleContext) (any, error) {
	compiled, ok := program.(*goja.Program)
	if !ok {
		return nil, fmt.Errorf("unexpected program type %T", program)
	}
	vm := goja.New()
	for name, value := range ctx.bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	if b.functions != nil {
		if err := vm.Set("call", b.functions.Call); err != nil {
			return nil, err
		}
		for _, name := range b.functions.Names() {
			fn := name
			if err := vm.Set(fn, func(args ...any) (any, error) {
				return b.functions.Call(fn, args...)
			}); err != nil {
				return nil, err
			}
		}
	}
	result, err := vm.RunProgram(compiled)
	if err != nil {
		return nil, err
	}
	return result.Export(), nil
}
