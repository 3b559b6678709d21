package videocfg

import (
	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	cfg engineConfig
}

// NewExprEvaluator returns the default rule engine, backed by
// expr-lang/expr. Unknown identifiers fail at compile time.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	return &exprEvaluator{cfg: newEngineConfig(EngineExpr, opts)}
}

func (e *exprEvaluator) Engine() Engine { return EngineExpr }

func (e *exprEvaluator) Evaluate(in RuleInput, condition string) (any, error) {
	compiled, err := e.Compile(condition, CompileForRule(in.Rule))
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(in)
}

func (e *exprEvaluator) Compile(condition string, opts ...CompileOption) (CompiledRule, error) {
	rule := compiledRuleName(opts)
	if err := e.cfg.check(condition, rule); err != nil {
		return nil, err
	}
	if cached, ok := e.cfg.cached(condition); ok {
		if program, ok := cached.(*vm.Program); ok {
			return exprProgram{program: program, condition: condition}, nil
		}
	}
	program, err := exprlang.Compile(condition, e.compileOptions()...)
	if err != nil {
		return nil, e.cfg.fail(condition, rule, err)
	}
	e.cfg.remember(condition, program)
	return exprProgram{program: program, condition: condition}, nil
}

func (e *exprEvaluator) compileOptions() []exprlang.Option {
	options := []exprlang.Option{
		exprlang.Env(RuleInput{}.variables()),
	}
	if e.cfg.functions == nil {
		return options
	}
	options = append(options, exprlang.Function("call", e.cfg.dispatch))
	for _, name := range e.cfg.functions.Names() {
		options = append(options, exprlang.Function(name, e.cfg.caller(name)))
	}
	return options
}

type exprProgram struct {
	program   *vm.Program
	condition string
}

func (p exprProgram) Evaluate(in RuleInput) (any, error) {
	out, err := exprlang.Run(p.program, in.variables())
	if err != nil {
		return nil, evaluationError(EngineExpr, p.condition, in.Rule, err)
	}
	return out, nil
}
