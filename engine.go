package videocfg

import (
	"errors"
	"fmt"
	"strings"
)

// Engine names the expression language a rule condition is written in.
type Engine string

const (
	EngineExpr Engine = "expr"
	EngineCEL  Engine = "cel"
	EngineJS   Engine = "js"
)

// ParseEngine resolves an engine name case-insensitively. An empty name
// selects expr.
func ParseEngine(name string) (Engine, error) {
	switch engine := Engine(strings.ToLower(strings.TrimSpace(name))); engine {
	case "":
		return EngineExpr, nil
	case EngineExpr, EngineCEL, EngineJS:
		return engine, nil
	default:
		return "", fmt.Errorf("videocfg: unknown evaluator engine %q", name)
	}
}

// RuleInput is the variable environment of a rule condition. Conditions
// see exactly two variables, caps and options.
type RuleInput struct {
	// Caps is the CapabilityDescriptor binding.
	Caps map[string]any
	// Options holds current values grouped by section, so a condition reads
	// options.Settings.MSAA.
	Options map[string]any
	// Rule names the rule for logs and errors.
	Rule string
}

// NewRuleInput binds set and caps for rule.
func NewRuleInput(rule string, set *OptionSet, caps CapabilityDescriptor) RuleInput {
	in := RuleInput{Caps: caps.Binding(), Rule: rule}
	if set != nil {
		in.Options = set.Nested()
	}
	return in
}

func (in RuleInput) variables() map[string]any {
	caps, options := in.Caps, in.Options
	if caps == nil {
		caps = map[string]any{}
	}
	if options == nil {
		options = map[string]any{}
	}
	return map[string]any{"caps": caps, "options": options}
}

// Evaluator compiles and runs rule conditions in one engine.
type Evaluator interface {
	Engine() Engine
	Evaluate(in RuleInput, condition string) (any, error)
	Compile(condition string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule is a condition compiled once and run per validation pass.
type CompiledRule interface {
	Evaluate(in RuleInput) (any, error)
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

type compileConfig struct {
	rule string
}

// CompileForRule labels compile errors with the owning rule name.
func CompileForRule(name string) CompileOption {
	return func(cfg *compileConfig) {
		cfg.rule = name
	}
}

func compiledRuleName(opts []CompileOption) string {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg.rule
}

// EvaluatorOption configures any engine.
type EvaluatorOption func(*engineConfig)

// WithProgramCache shares compiled programs through cache. Keys carry the
// engine name so one cache can serve several engines.
func WithProgramCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// WithFunctions exposes the registry helpers to conditions, by name where
// the engine allows it and always through call(name, ...). The registry is
// cloned.
func WithFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *engineConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

type engineConfig struct {
	engine    Engine
	cache     ProgramCache
	functions *FunctionRegistry
}

func newEngineConfig(engine Engine, opts []EvaluatorOption) engineConfig {
	cfg := engineConfig{engine: engine}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c engineConfig) cached(condition string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(string(c.engine) + ":" + condition)
}

func (c engineConfig) remember(condition string, program any) {
	if c.cache != nil {
		c.cache.Set(string(c.engine)+":"+condition, program)
	}
}

func (c engineConfig) check(condition, rule string) error {
	if strings.TrimSpace(condition) == "" {
		return evaluationError(c.engine, condition, rule, ErrEmptyCondition)
	}
	return nil
}

func (c engineConfig) fail(condition, rule string, err error) error {
	return evaluationError(c.engine, condition, rule, err)
}

// caller binds the registered function name.
func (c engineConfig) caller(name string) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return c.functions.Call(name, args...)
	}
}

// dispatch implements call(name, args...).
func (c engineConfig) dispatch(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("call expects a function name")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("call expects a function name, got %T", args[0])
	}
	return c.functions.Call(name, args[1:]...)
}

// NewEvaluator returns the evaluator for engine. JS is only available in
// builds tagged js_eval.
func NewEvaluator(engine Engine, opts ...EvaluatorOption) (Evaluator, error) {
	switch engine {
	case EngineExpr, "":
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if evaluator := NewJSEvaluator(opts...); evaluator != nil {
			return evaluator, nil
		}
		return nil, fmt.Errorf("%w: js requires the js_eval build tag", ErrEngineUnavailable)
	default:
		return nil, fmt.Errorf("videocfg: unknown evaluator engine %q", engine)
	}
}
