package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Function is a helper callable from validate and visibility rules.
type Function func(args ...any) (any, error)

// FunctionRegistry holds rule helpers. Names are unique ignoring case and
// exposed to rules as registered. It is safe for concurrent use.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]namedFunction
}

type namedFunction struct {
	name string
	fn   Function
}

// NewFunctionRegistry returns an empty FunctionRegistry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: map[string]namedFunction{}}
}

// Register adds fn under name. Names are unique ignoring case.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	name = strings.TrimSpace(name)
	key := strings.ToLower(name)
	switch {
	case key == "":
		return fmt.Errorf("settings: rule function name must not be empty")
	case fn == nil:
		return fmt.Errorf("settings: rule function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = map[string]namedFunction{}
	}
	if _, taken := r.funcs[key]; taken {
		return fmt.Errorf("settings: rule function %q already registered", name)
	}
	r.funcs[key] = namedFunction{name: name, fn: fn}
	return nil
}

// Clone copies the registry so later registrations on either side stay
// independent. Cloning nil returns nil.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &FunctionRegistry{funcs: make(map[string]namedFunction, len(r.funcs))}
	for key, entry := range r.funcs {
		out.funcs[key] = entry
	}
	return out
}

// Call runs the function registered as name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn := r.get(name)
	if fn == nil {
		return nil, fmt.Errorf("settings: rule function %q not registered", name)
	}
	return fn(args...)
}

// Names lists the names as registered, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for _, entry := range r.funcs {
		names = append(names, entry.name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *FunctionRegistry) get(name string) Function {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.funcs[strings.ToLower(strings.TrimSpace(name))].fn
}

// builtinRuleFunctions are available to every registry's rules. one_of backs
// compiled visibility rules.
var builtinRuleFunctions = map[string]Function{
	"one_of":  oneOfFunction,
	"blank":   blankFunction,
	"numeric": numericFunction,
}

func builtinFunctions() *FunctionRegistry {
	return withBuiltins(nil)
}

// withBuiltins copies registry and adds the builtins whose names are still
// free, so user functions shadow builtins.
func withBuiltins(registry *FunctionRegistry) *FunctionRegistry {
	out := registry.Clone()
	if out == nil {
		out = NewFunctionRegistry()
	}
	for name, fn := range builtinRuleFunctions {
		if out.get(name) == nil {
			_ = out.Register(name, fn)
		}
	}
	return out
}

// blankFunction reports whether its argument is nil, an empty or whitespace
// string, or an empty list.
func blankFunction(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("blank expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case nil:
		return true, nil
	case string:
		return strings.TrimSpace(v) == "", nil
	case []any:
		return len(v) == 0, nil
	case []string:
		return len(v) == 0, nil
	default:
		return false, nil
	}
}

// numericFunction reports whether its argument is a number or a string that
// parses as one. Number fields are stored as strings.
func numericFunction(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("numeric expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case int, int64, float64:
		return true, nil
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil, nil
	default:
		return false, nil
	}
}
