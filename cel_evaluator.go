package videocfg

import (
	"reflect"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celEvaluator struct {
	cfg engineConfig

	envOnce sync.Once
	env     *celgo.Env
	envErr  error
}

// NewCELEvaluator returns an engine backed by cel-go. caps and options are
// declared as string-keyed maps; registry helpers are reached through
// call("name", [args]).
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	return &celEvaluator{cfg: newEngineConfig(EngineCEL, opts)}
}

func (e *celEvaluator) Engine() Engine { return EngineCEL }

func (e *celEvaluator) Evaluate(in RuleInput, condition string) (any, error) {
	compiled, err := e.Compile(condition, CompileForRule(in.Rule))
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(in)
}

func (e *celEvaluator) Compile(condition string, opts ...CompileOption) (CompiledRule, error) {
	rule := compiledRuleName(opts)
	if err := e.cfg.check(condition, rule); err != nil {
		return nil, err
	}
	if cached, ok := e.cfg.cached(condition); ok {
		if program, ok := cached.(celgo.Program); ok {
			return celProgram{program: program, condition: condition}, nil
		}
	}
	env, err := e.environment()
	if err != nil {
		return nil, e.cfg.fail(condition, rule, err)
	}
	ast, issues := env.Compile(condition)
	if issues != nil && issues.Err() != nil {
		return nil, e.cfg.fail(condition, rule, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, e.cfg.fail(condition, rule, err)
	}
	e.cfg.remember(condition, program)
	return celProgram{program: program, condition: condition}, nil
}

func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.envOnce.Do(func() {
		section := celgo.MapType(celgo.StringType, celgo.DynType)
		opts := []celgo.EnvOption{
			celgo.Variable("caps", section),
			celgo.Variable("options", section),
		}
		if e.cfg.functions != nil {
			opts = append(opts, celgo.Function("call",
				celgo.Overload("call_string_list",
					[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
					celgo.DynType,
					celgo.BinaryBinding(e.call),
				),
			))
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

func (e *celEvaluator) call(name, list ref.Val) ref.Val {
	native, err := list.ConvertToNative(reflect.TypeOf([]any{}))
	if err != nil {
		return types.NewErr("call arguments: %v", err)
	}
	args, _ := native.([]any)
	result, err := e.cfg.dispatch(append([]any{name.Value()}, args...)...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celProgram struct {
	program   celgo.Program
	condition string
}

func (p celProgram) Evaluate(in RuleInput) (any, error) {
	out, _, err := p.program.Eval(in.variables())
	if err != nil {
		return nil, evaluationError(EngineCEL, p.condition, in.Rule, err)
	}
	return out.Value(), nil
}
