package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidDefinition marks a malformed settings definition.
	ErrInvalidDefinition = errors.New("settings: invalid definition")
	// ErrInvalidImport marks an import payload that is not a JSON object or list.
	ErrInvalidImport = errors.New("settings: invalid import payload")
	// ErrUnauthorized marks a missing or invalid action token.
	ErrUnauthorized = errors.New("settings: action failed")
	// ErrForbidden marks a caller without the capability required by the page.
	ErrForbidden = errors.New("settings: insufficient permissions")
	// ErrValidation marks input rejected by a validator.
	ErrValidation = errors.New("settings: validation failed")
	// ErrUnknownKey marks a lookup of a storage key the definition does not declare.
	ErrUnknownKey = errors.New("settings: unknown key")
	// ErrNoEvaluator is returned when no expression evaluator can be built.
	ErrNoEvaluator = errors.New("settings: evaluator not configured")
)

// ConfigError reports where a definition is malformed.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path == "" {
		return fmt.Sprintf("settings: invalid definition: %s", e.Reason)
	}
	return fmt.Sprintf("settings: invalid definition at %s: %s", e.Path, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidDefinition
}

func configErrorf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError carries one message per rejected storage key.
type ValidationError struct {
	Fields map[StorageKey]string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	keys := e.Keys()
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return fmt.Sprintf("settings: validation failed: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Keys returns the rejected keys sorted alphabetically.
func (e *ValidationError) Keys() []StorageKey {
	if e == nil {
		return nil
	}
	keys := make([]StorageKey, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Add records message for key, keeping the first message per key.
func (e *ValidationError) Add(key StorageKey, message string) {
	if e.Fields == nil {
		e.Fields = map[StorageKey]string{}
	}
	if _, exists := e.Fields[key]; exists {
		return
	}
	e.Fields[key] = message
}

func (e *ValidationError) empty() bool {
	return e == nil || len(e.Fields) == 0
}
