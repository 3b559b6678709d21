//go:build js_eval

package videocfg

import "github.com/dop251/goja"

type jsEvaluator struct {
	cfg engineConfig
}

// NewJSEvaluator returns an engine backed by goja.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	return &jsEvaluator{cfg: newEngineConfig(EngineJS, opts)}
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval.
func JSEvaluatorAvailable() bool {
	return true
}

func (e *jsEvaluator) Engine() Engine { return EngineJS }

func (e *jsEvaluator) Evaluate(in RuleInput, condition string) (any, error) {
	compiled, err := e.Compile(condition, CompileForRule(in.Rule))
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(in)
}

func (e *jsEvaluator) Compile(condition string, opts ...CompileOption) (CompiledRule, error) {
	rule := compiledRuleName(opts)
	if err := e.cfg.check(condition, rule); err != nil {
		return nil, err
	}
	if cached, ok := e.cfg.cached(condition); ok {
		if program, ok := cached.(*goja.Program); ok {
			return jsProgram{cfg: e.cfg, program: program, condition: condition}, nil
		}
	}
	// The newline keeps a trailing line comment from swallowing the paren.
	program, err := goja.Compile(rule, "("+condition+"\n)", true)
	if err != nil {
		return nil, e.cfg.fail(condition, rule, err)
	}
	e.cfg.remember(condition, program)
	return jsProgram{cfg: e.cfg, program: program, condition: condition}, nil
}

type jsProgram struct {
	cfg       engineConfig
	program   *goja.Program
	condition string
}

// Evaluate runs on a fresh runtime; goja runtimes are not safe for
// concurrent use.
func (p jsProgram) Evaluate(in RuleInput) (any, error) {
	vm := goja.New()
	bindings := in.variables()
	if p.cfg.functions != nil {
		bindings["call"] = p.cfg.dispatch
		for _, name := range p.cfg.functions.Names() {
			bindings[name] = p.cfg.caller(name)
		}
	}
	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return nil, evaluationError(EngineJS, p.condition, in.Rule, err)
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, evaluationError(EngineJS, p.condition, in.Rule, err)
	}
	return value.Export(), nil
}
