package settings

import (
	"time"

	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/state"
)

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	store           state.Store[Values]
	logger          Logger
	validators      []Validator
	activityHooks   activity.Hooks
	activityChannel string
	evaluator       Evaluator
	engine          string
	fieldDefaults   Values
	programCache    ProgramCache
	functions       *FunctionRegistry
	clock           func() time.Time
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		logger: noopLogger{},
		clock:  time.Now,
	}
}

// WithStore sets the store holding persisted values. Registries default to an
// in-memory store.
func WithStore(store state.Store[Values]) Option {
	return func(cfg *registryConfig) {
		cfg.store = store
	}
}

// WithLogger sets the logger receiving one LogEvent per operation.
func WithLogger(logger Logger) Option {
	return func(cfg *registryConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithValidator appends validator to the chain run before every save.
func WithValidator(validator Validator) Option {
	return func(cfg *registryConfig) {
		if validator != nil {
			cfg.validators = append(cfg.validators, validator)
		}
	}
}

// WithActivityHooks attaches activity hooks notified after every mutation and
// export. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	kept := hooks.Compact()
	return func(cfg *registryConfig) {
		cfg.activityHooks = kept
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *registryConfig) {
		cfg.activityChannel = channel
	}
}

// WithEvaluator sets the engine used for field validate expressions. The
// default is expr-lang/expr.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *registryConfig) {
		cfg.evaluator = evaluator
	}
}

// WithEngine selects the validate engine by name (expr, cel or js). It is
// ignored when WithEvaluator is also given.
func WithEngine(name string) Option {
	return func(cfg *registryConfig) {
		cfg.engine = name
	}
}

// WithFieldDefaults overrides declared defaults keyed by storage key.
func WithFieldDefaults(defaults map[string]any) Option {
	return func(cfg *registryConfig) {
		cfg.fieldDefaults = Values(defaults).Clone()
	}
}

// WithProgramCache shares compiled programs between registries. Registries
// sharing a cache must register the same custom functions.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *registryConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes the functions of registry to expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *registryConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers a single function available to expressions.
// Registration errors (duplicate names, nil functions) are ignored.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *registryConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithClock overrides the time source used for metadata and expressions.
func WithClock(clock func() time.Time) Option {
	return func(cfg *registryConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}
