package videocfg

import (
	"fmt"
	"time"
)

// ExprRule is a ValidationRule driven by a boolean expression. When the
// condition holds, Key is set to Value. The expression sees two variables:
//
//	caps    the CapabilityDescriptor binding (adapters, aa_modes, display, ...)
//	options the current values grouped by section, e.g. options.Settings.MSAA
//
// Evaluation errors and non-boolean results leave the set untouched.
type ExprRule struct {
	name      string
	condition string
	key       string
	value     any
	evaluator Evaluator
	compiled  CompiledRule
	logger    EvaluatorLogger
	hasLogger bool
}

// ExprRuleOption configures an ExprRule.
type ExprRuleOption func(*ExprRule)

// WithRuleEvaluator selects the expression engine. The default is expr.
func WithRuleEvaluator(evaluator Evaluator) ExprRuleOption {
	return func(r *ExprRule) {
		if evaluator != nil {
			r.evaluator = evaluator
		}
	}
}

// WithRuleLogger records every evaluation.
func WithRuleLogger(logger EvaluatorLogger) ExprRuleOption {
	return func(r *ExprRule) {
		if logger != nil {
			r.logger = logger
			r.hasLogger = true
		}
	}
}

// NewExprRule compiles condition up front so syntax errors surface when the
// rule table is built rather than during validation.
func NewExprRule(name, condition, key string, value any, opts ...ExprRuleOption) (*ExprRule, error) {
	if condition == "" {
		return nil, fmt.Errorf("videocfg: rule %q has an empty condition", name)
	}
	rule := &ExprRule{
		name:      name,
		condition: condition,
		key:       key,
		value:     value,
		logger:    noopEvaluatorLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rule)
		}
	}
	if rule.evaluator == nil {
		rule.evaluator = NewExprEvaluator(WithFunctions(CapabilityFunctions()))
	}
	compiled, err := rule.evaluator.Compile(condition, CompileForRule(name))
	if err != nil {
		return nil, err
	}
	rule.compiled = compiled
	return rule, nil
}

// MustExprRule is NewExprRule for static rule tables.
func MustExprRule(name, condition, key string, value any, opts ...ExprRuleOption) *ExprRule {
	rule, err := NewExprRule(name, condition, key, value, opts...)
	if err != nil {
		panic(err)
	}
	return rule
}

// withDefaultLogger returns r, or a copy logging to logger when r was built
// without an explicit logger.
func (r *ExprRule) withDefaultLogger(logger EvaluatorLogger) *ExprRule {
	if r.hasLogger || logger == nil {
		return r
	}
	clone := *r
	clone.logger = logger
	return &clone
}

// Name implements ValidationRule.
func (r *ExprRule) Name() string { return r.name }

// Apply implements ValidationRule.
func (r *ExprRule) Apply(set *OptionSet, caps CapabilityDescriptor) {
	matched, err := r.Matches(set, caps)
	if err != nil || !matched {
		return
	}
	_ = set.Set(r.key, r.value)
}

// Matches evaluates the condition against set and caps.
func (r *ExprRule) Matches(set *OptionSet, caps CapabilityDescriptor) (bool, error) {
	engine := r.evaluator.Engine()
	start := time.Now()
	result, err := r.compiled.Evaluate(NewRuleInput(r.name, set, caps))
	matched, isBool := result.(bool)
	if err == nil && !isBool {
		err = fmt.Errorf("condition returned %T, want bool", result)
	}
	err = evaluationError(engine, r.condition, r.name, err)
	r.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:    engine,
		Rule:      r.name,
		Condition: r.condition,
		Result:    result,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}
