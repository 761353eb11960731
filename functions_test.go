package settings

import (
	"reflect"
	"testing"
)

func TestFunctionRegistryRegister(t *testing.T) {
	registry := NewFunctionRegistry()
	noop := func(...any) (any, error) { return nil, nil }
	if err := registry.Register("Upper", noop); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register("upper", noop); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := registry.Register(" ", noop); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Fatalf("expected nil function error")
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected missing function error")
	}
	if _, err := registry.Call("UPPER"); err != nil {
		t.Fatalf("Call ignores case: %v", err)
	}
}

func TestFunctionRegistryCloneIsIndependent(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.Register("a", func(...any) (any, error) { return "a", nil })
	clone := registry.Clone()
	_ = clone.Register("b", func(...any) (any, error) { return "b", nil })
	if got := registry.Names(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("original changed: %v", got)
	}
	if got := clone.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected clone names %v", got)
	}
	var nilRegistry *FunctionRegistry
	if nilRegistry.Clone() != nil || nilRegistry.Names() != nil {
		t.Fatalf("nil registry should clone to nil")
	}
}

func TestWithBuiltinsKeepsUserFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.Register("blank", func(...any) (any, error) { return "mine", nil })
	merged := withBuiltins(registry)
	got, err := merged.Call("blank", "")
	if err != nil || got != "mine" {
		t.Fatalf("user function should shadow builtin, got %v %v", got, err)
	}
	if !reflect.DeepEqual(merged.Names(), []string{"blank", "numeric", "one_of"}) {
		t.Fatalf("unexpected names %v", merged.Names())
	}
}

func TestBuiltinHelpers(t *testing.T) {
	evaluator := NewExprEvaluator(WithRuleFunctions(builtinFunctions()))
	cases := []struct {
		rule  string
		value any
		want  bool
	}{
		{`blank(value)`, "  ", true},
		{`blank(value)`, "x", false},
		{`blank(value)`, []any{}, true},
		{`numeric(value)`, "12.5", true},
		{`numeric(value)`, "twelve", false},
		{`numeric(value)`, 3, true},
	}
	for _, tc := range cases {
		got, err := evaluator.Evaluate(RuleContext{Value: tc.value}, tc.rule)
		if err != nil {
			t.Fatalf("%s(%v): %v", tc.rule, tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("%s(%v) = %v, want %v", tc.rule, tc.value, got, tc.want)
		}
	}
}
