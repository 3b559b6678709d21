package videocfg

import (
	"fmt"
	"log/slog"
)

// ValidationRule corrects one aspect of an OptionSet against the backend
// capabilities. Apply must be idempotent and must never fail: out of range
// values are repaired, not reported.
type ValidationRule interface {
	Name() string
	Apply(set *OptionSet, caps CapabilityDescriptor)
}

type ruleFunc struct {
	name string
	fn   func(*OptionSet, CapabilityDescriptor)
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) Apply(set *OptionSet, caps CapabilityDescriptor) {
	r.fn(set, caps)
}

// NewRule adapts fn into a named ValidationRule.
func NewRule(name string, fn func(set *OptionSet, caps CapabilityDescriptor)) ValidationRule {
	return ruleFunc{name: name, fn: fn}
}

// ClampIndex resets key to 0 when it does not index one of the count(caps)
// entries the backend reports.
func ClampIndex(key string, count func(CapabilityDescriptor) int) ValidationRule {
	return NewRule("clamp-index:"+key, func(set *OptionSet, caps CapabilityDescriptor) {
		value := set.Int(key)
		if value < 0 || value >= count(caps) {
			_ = set.Set(key, 0)
		}
	})
}

// ClampRange bounds key to [minimum, maximum(caps)]. A non-positive maximum
// means the backend reported no limit.
func ClampRange(key string, minimum int, maximum func(CapabilityDescriptor) int) ValidationRule {
	return NewRule("clamp-range:"+key, func(set *OptionSet, caps CapabilityDescriptor) {
		value := set.Int(key)
		if value < minimum {
			_ = set.Set(key, minimum)
			return
		}
		if limit := maximum(caps); limit > 0 && value > limit {
			_ = set.Set(key, limit)
		}
	})
}

// StereoForce binds a display class to the stereo mode it requires.
type StereoForce struct {
	Display DisplayClass
	Mode    int
}

// StereoModeRule forces key to the mode bound to the attached display. With
// no bound display, a mode that belongs to some other display is reset to
// off, since those modes only work with their device present.
func StereoModeRule(key string, off int, table ...StereoForce) ValidationRule {
	return NewRule("stereo-mode:"+key, func(set *OptionSet, caps CapabilityDescriptor) {
		for _, force := range table {
			if force.Display == caps.Display {
				_ = set.Set(key, force.Mode)
				return
			}
		}
		current := set.Int(key)
		for _, force := range table {
			if force.Mode == current {
				_ = set.Set(key, off)
				return
			}
		}
	})
}

// RequireStereoscopy forces key to off when the backend cannot render
// stereoscopic output.
func RequireStereoscopy(key string, off int) ValidationRule {
	return NewRule("require-stereoscopy:"+key, func(set *OptionSet, caps CapabilityDescriptor) {
		if !caps.SupportsStereoscopy {
			_ = set.Set(key, off)
		}
	})
}

// Validator applies an ordered rule table.
type Validator struct {
	rules  []ValidationRule
	logger *slog.Logger
}

// NewValidator builds a validator running rules in order.
func NewValidator(rules ...ValidationRule) *Validator {
	return &Validator{rules: append([]ValidationRule(nil), rules...)}
}

// With returns a validator running v's rules followed by rules.
func (v *Validator) With(rules ...ValidationRule) *Validator {
	out := &Validator{logger: v.logger}
	out.rules = append(append(out.rules, v.rules...), rules...)
	return out
}

// WithLogger returns a copy of v that logs every value a rule changes.
func (v *Validator) WithLogger(logger *slog.Logger) *Validator {
	out := &Validator{rules: v.rules, logger: logger}
	return out
}

// withEvaluatorLogger routes expression rules without their own logger to
// logger.
func (v *Validator) withEvaluatorLogger(logger EvaluatorLogger) *Validator {
	out := &Validator{logger: v.logger, rules: make([]ValidationRule, len(v.rules))}
	for i, rule := range v.rules {
		if expr, ok := rule.(*ExprRule); ok {
			rule = expr.withDefaultLogger(logger)
		}
		out.rules[i] = rule
	}
	return out
}

// Rules returns the rule table.
func (v *Validator) Rules() []ValidationRule {
	return append([]ValidationRule(nil), v.rules...)
}

// Validate corrects set in place and returns it. Running it twice with the
// same capabilities yields the same set.
func (v *Validator) Validate(set *OptionSet, caps CapabilityDescriptor) *OptionSet {
	if v == nil || set == nil {
		return set
	}
	for _, rule := range v.rules {
		if v.logger == nil {
			rule.Apply(set, caps)
			continue
		}
		before := set.Clone()
		rule.Apply(set, caps)
		for _, key := range changedKeys(before, set) {
			prev, _ := before.Get(key)
			next, _ := set.Get(key)
			v.logger.Debug("validation adjusted option",
				"rule", rule.Name(),
				"key", key,
				"from", fmt.Sprint(prev),
				"to", fmt.Sprint(next),
			)
		}
	}
	return set
}

func changedKeys(a, b *OptionSet) []string {
	var keys []string
	for _, key := range a.Keys() {
		va, _ := a.Get(key)
		vb, _ := b.Get(key)
		if !equalValues(va, vb) {
			keys = append(keys, key)
		}
	}
	return keys
}
