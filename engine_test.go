package settings

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewEngineSelectsByName(t *testing.T) {
	for _, name := range []string{"", "expr", " EXPR ", "cel"} {
		evaluator, err := NewEngine(name)
		if err != nil || evaluator == nil {
			t.Fatalf("NewEngine(%q) = %v, %v", name, evaluator, err)
		}
	}
	if _, err := NewEngine("lua"); err == nil {
		t.Fatalf("expected unknown engine error")
	}
}

func TestExprEvaluatorBindings(t *testing.T) {
	evaluator := NewExprEvaluator()
	result, err := evaluator.Evaluate(RuleContext{
		Group:  "my_plugin",
		Key:    "general_title",
		Value:  "abc",
		Values: Values{"general_mode": "expert"},
	}, `group + "/" + key + "/" + value + "/" + values["general_mode"]`)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result != "my_plugin/general_title/abc/expert" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestExprBindingsShadowBuiltins(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evaluator := NewExprEvaluator()
	result, err := evaluator.Evaluate(RuleContext{
		Value:  "abc",
		Values: Values{"general_mode": "expert"},
		Now:    &now,
	}, `len(value) == 3 && values["general_mode"] == "expert" && now.Year() == 2024 && missing == nil`)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result != true {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestCrossFieldRuleOnEveryEngine(t *testing.T) {
	cases := []struct {
		engine string
		rule   string
	}{
		{EngineExpr, `values["general_mode"] == "expert" || value == ""`},
		{EngineCEL, `values["general_mode"] == "expert" || value == ""`},
		{EngineJS, `values["general_mode"] === "expert" || value === ""`},
	}
	for _, tc := range cases {
		t.Run(tc.engine, func(t *testing.T) {
			evaluator, err := NewEngine(tc.engine, WithRuleFunctions(builtinFunctions()))
			if err != nil {
				t.Skipf("%s engine unavailable: %v", tc.engine, err)
			}
			rule, err := evaluator.Compile(tc.rule)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			allowed, err := rule.Evaluate(RuleContext{Value: "x", Values: Values{"general_mode": "expert"}})
			if err != nil || allowed != true {
				t.Fatalf("expert mode: got %v, %v", allowed, err)
			}
			denied, err := rule.Evaluate(RuleContext{Value: "x", Values: Values{"general_mode": "basic"}})
			if err != nil || denied != false {
				t.Fatalf("basic mode: got %v, %v", denied, err)
			}
		})
	}
}

func TestExprEvaluatorFunctions(t *testing.T) {
	functions := NewFunctionRegistry()
	if err := functions.Register("shout", func(args ...any) (any, error) {
		text, _ := args[0].(string)
		return strings.ToUpper(text), nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	evaluator := NewExprEvaluator(WithRuleFunctions(functions))
	for _, source := range []string{`shout(value)`, `call("shout", value)`} {
		result, err := evaluator.Evaluate(RuleContext{Value: "hi"}, source)
		if err != nil {
			t.Fatalf("%s: %v", source, err)
		}
		if result != "HI" {
			t.Fatalf("%s: got %v", source, result)
		}
	}
}

func TestRuleCacheSharedAcrossEngines(t *testing.T) {
	cache := NewMemoryProgramCache()
	exprRule := NewExprEvaluator(WithRuleCache(cache))
	celRule := NewCELEvaluator(WithRuleCache(cache))

	source := `1 + 1 == 2`
	for i := 0; i < 2; i++ {
		if _, err := exprRule.Compile(source); err != nil {
			t.Fatalf("expr compile: %v", err)
		}
		if _, err := celRule.Compile(source); err != nil {
			t.Fatalf("cel compile: %v", err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("expected one entry per engine, got %d", cache.Len())
	}
}

func TestCELEvaluatorCall(t *testing.T) {
	functions := NewFunctionRegistry()
	_ = functions.Register("join", func(args ...any) (any, error) {
		parts := make([]string, 0, len(args))
		for _, arg := range args {
			text, _ := arg.(string)
			parts = append(parts, text)
		}
		return strings.Join(parts, "-"), nil
	})
	evaluator := NewCELEvaluator(WithRuleFunctions(functions))
	result, err := evaluator.Evaluate(RuleContext{Value: "b"}, `call("join", ["a", value])`)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result != "a-b" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestEmptyRuleRejected(t *testing.T) {
	_, err := NewCELEvaluator().Compile("  ")
	if !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("expected ErrEmptyRule, got %v", err)
	}
}

func TestRuleErrorCarriesKey(t *testing.T) {
	functions := NewFunctionRegistry()
	_ = functions.Register("reject", func(...any) (any, error) {
		return nil, errors.New("rejected")
	})
	rule, err := NewExprEvaluator(WithRuleFunctions(functions)).Compile(`reject(value)`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err = rule.Evaluate(RuleContext{Key: "general_count", Value: "x"})
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleError, got %T %v", err, err)
	}
	if ruleErr.Engine != EngineExpr || ruleErr.Key != "general_count" || ruleErr.Rule != "reject(value)" {
		t.Fatalf("unexpected fields %+v", ruleErr)
	}
	if !strings.Contains(err.Error(), "on general_count") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRuleErrorFillsMissingFields(t *testing.T) {
	base := errors.New("boom")
	existing := &RuleError{Engine: EngineExpr, Err: base}
	err := ruleError(EngineCEL, "rule", "general_count", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != EngineExpr || existing.Rule != "rule" || existing.Key != "general_count" {
		t.Fatalf("unexpected fields %+v", existing)
	}
	if ruleError(EngineExpr, "", "", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
