package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	showIfNamespace = "show-if"
	hideIfNamespace = "hide-if"
)

// Condition matches when the value stored under Field equals one of Values.
type Condition struct {
	Field  string   `json:"field" yaml:"field"`
	Values []string `json:"value" yaml:"value"`
}

func (c Condition) complete() bool {
	return c.Field != "" && len(c.nonEmptyValues()) > 0
}

func (c Condition) nonEmptyValues() []string {
	out := make([]string, 0, len(c.Values))
	for _, value := range c.Values {
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

func (c Condition) token() string {
	return c.Field + "===" + strings.Join(c.nonEmptyValues(), "||")
}

// Rule is a conjunction of conditions. A rule declared as a single object
// holds exactly one condition.
type Rule struct {
	Conditions []Condition
}

func (r Rule) completeConditions() []Condition {
	out := make([]Condition, 0, len(r.Conditions))
	for _, condition := range r.Conditions {
		if condition.complete() {
			out = append(out, condition)
		}
	}
	return out
}

// Rules is a disjunction of rules.
type Rules []Rule

// CompileVisibility encodes show and hide rules as class tokens for the
// client-side toggle script. The result starts with a space so it can be
// appended to an existing class attribute. Show tokens always precede hide
// tokens.
func CompileVisibility(show, hide Rules) string {
	var b strings.Builder
	writeVisibilityTokens(&b, showIfNamespace, show)
	writeVisibilityTokens(&b, hideIfNamespace, hide)
	return b.String()
}

func writeVisibilityTokens(b *strings.Builder, namespace string, rules Rules) {
	if rules == nil {
		return
	}
	b.WriteString(" ")
	b.WriteString(namespace)
	for _, rule := range rules {
		conditions := rule.completeConditions()
		if len(conditions) == 0 {
			continue
		}
		clauses := make([]string, 0, len(conditions))
		for _, condition := range conditions {
			clauses = append(clauses, condition.token())
		}
		b.WriteString(" ")
		b.WriteString(namespace)
		b.WriteString("--")
		b.WriteString(strings.Join(clauses, "&&"))
	}
}

// VisibilityExpression builds an expression that evaluates to true when the
// show rules allow the element and no hide rule matches. Condition fields are
// looked up in the "values" binding through the built-in one_of function.
func VisibilityExpression(show, hide Rules) string {
	showExpr := rulesExpression(show)
	hideExpr := rulesExpression(hide)
	switch {
	case showExpr == "" && hideExpr == "":
		return "true"
	case hideExpr == "":
		return showExpr
	case showExpr == "":
		return "!(" + hideExpr + ")"
	default:
		return "(" + showExpr + ") && !(" + hideExpr + ")"
	}
}

func rulesExpression(rules Rules) string {
	var parts []string
	for _, rule := range rules {
		conditions := rule.completeConditions()
		if len(conditions) == 0 {
			continue
		}
		clauses := make([]string, 0, len(conditions))
		for _, condition := range conditions {
			args := []string{"values[" + strconv.Quote(condition.Field) + "]"}
			for _, value := range condition.nonEmptyValues() {
				args = append(args, strconv.Quote(value))
			}
			clauses = append(clauses, "one_of("+strings.Join(args, ", ")+")")
		}
		parts = append(parts, "("+strings.Join(clauses, " && ")+")")
	}
	return strings.Join(parts, " || ")
}

// oneOfFunction backs the one_of(value, candidates...) rule builtin. List
// values match when any element equals a candidate.
func oneOfFunction(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("settings: one_of requires a value")
	}
	candidates := make([]string, 0, len(args)-1)
	for _, arg := range args[1:] {
		candidates = append(candidates, stringify(arg))
	}
	for _, value := range flattenMatchValue(args[0]) {
		for _, candidate := range candidates {
			if value == candidate {
				return true, nil
			}
		}
	}
	return false, nil
}

func flattenMatchValue(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case bool:
		if typed {
			return []string{"1"}
		}
		return []string{"0"}
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, flattenMatchValue(item)...)
		}
		return out
	case []string:
		return typed
	default:
		return []string{stringify(value)}
	}
}

func (r *Rules) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = nil
		return nil
	}
	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	rules, err := rulesFromAny(raw)
	if err != nil {
		return err
	}
	*r = rules
	return nil
}

func (r *Rules) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	rules, err := rulesFromAny(raw)
	if err != nil {
		return err
	}
	*r = rules
	return nil
}

// MarshalJSON writes rules back in their declared shape: single-condition
// rules as objects and conjunctions as lists.
func (r Rules) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	out := make([]any, 0, len(r))
	for _, rule := range r {
		if len(rule.Conditions) == 1 {
			out = append(out, rule.Conditions[0])
			continue
		}
		out = append(out, rule.Conditions)
	}
	return json.Marshal(out)
}

// rulesFromAny accepts a list of rules, or a single condition object.
func rulesFromAny(raw any) (Rules, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		condition, err := conditionFromAny(typed)
		if err != nil {
			return nil, err
		}
		return Rules{{Conditions: []Condition{condition}}}, nil
	case []any:
		rules := make(Rules, 0, len(typed))
		for _, item := range typed {
			switch entry := item.(type) {
			case map[string]any:
				condition, err := conditionFromAny(entry)
				if err != nil {
					return nil, err
				}
				rules = append(rules, Rule{Conditions: []Condition{condition}})
			case []any:
				rule := Rule{Conditions: make([]Condition, 0, len(entry))}
				for _, nested := range entry {
					m, ok := nested.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("settings: visibility conjunction entries must be objects, got %T", nested)
					}
					condition, err := conditionFromAny(m)
					if err != nil {
						return nil, err
					}
					rule.Conditions = append(rule.Conditions, condition)
				}
				rules = append(rules, rule)
			default:
				return nil, fmt.Errorf("settings: visibility rule must be an object or a list, got %T", item)
			}
		}
		return rules, nil
	default:
		return nil, fmt.Errorf("settings: visibility rules must be a list, got %T", raw)
	}
}

func conditionFromAny(m map[string]any) (Condition, error) {
	condition := Condition{Field: stringify(m["field"])}
	raw, ok := m["value"]
	if !ok {
		raw = m["values"]
	}
	switch typed := raw.(type) {
	case nil:
	case []any:
		for _, value := range typed {
			condition.Values = append(condition.Values, stringify(value))
		}
	case map[string]any:
		return Condition{}, fmt.Errorf("settings: visibility values for %q must be a list or a scalar", condition.Field)
	default:
		condition.Values = []string{stringify(typed)}
	}
	return condition, nil
}
