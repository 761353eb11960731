package settings

import (
	"context"
	"errors"
	"fmt"
)

// Validator inspects a submission before it is saved. It returns the values
// to keep, which may be sanitized copies of input. Returning a
// *ValidationError rejects individual keys; any other error aborts the save.
type Validator interface {
	Validate(ctx context.Context, group string, input Values) (Values, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, group string, input Values) (Values, error)

// Validate implements Validator.
func (f ValidatorFunc) Validate(ctx context.Context, group string, input Values) (Values, error) {
	return f(ctx, group, input)
}

// RequiredKeys rejects submissions missing a non-empty value for any of keys.
func RequiredKeys(keys ...StorageKey) Validator {
	return ValidatorFunc(func(_ context.Context, _ string, input Values) (Values, error) {
		verr := &ValidationError{}
		for _, key := range keys {
			if stringify(input[key.String()]) == "" {
				verr.Add(key, "value is required")
			}
		}
		if verr.empty() {
			return input, nil
		}
		return input, verr
	})
}

// runValidators passes input through every validator in order. Field
// rejections are collected across validators; the first other error stops
// the chain.
func runValidators(ctx context.Context, group string, validators []Validator, input Values) (Values, *ValidationError, error) {
	current := input
	collected := &ValidationError{}
	for _, validator := range validators {
		next, err := validator.Validate(ctx, group, current)
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				return nil, nil, fmt.Errorf("settings: validator for %q: %w", group, err)
			}
			for key, message := range verr.Fields {
				collected.Add(key, message)
			}
		}
		if next != nil {
			current = next
		}
	}
	return current, collected, nil
}

// expressionVerdict interprets the result of a field validate expression. A
// true or nil result accepts the value, a non-empty string is the rejection
// message.
func expressionVerdict(result any) (string, bool) {
	switch typed := result.(type) {
	case nil:
		return "", true
	case bool:
		if typed {
			return "", true
		}
		return "value is invalid", false
	case string:
		if typed == "" {
			return "", true
		}
		return typed, false
	default:
		return fmt.Sprintf("validate expression returned %T", result), false
	}
}
