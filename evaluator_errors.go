package videocfg

import (
	"errors"
	"fmt"
)

// EvaluationError reports a rule condition that failed to compile or run.
type EvaluationError struct {
	Engine    Engine
	Rule      string
	Condition string
	Err       error
}

func (e *EvaluationError) Error() string {
	rule := e.Rule
	if rule == "" {
		rule = "<unnamed>"
	}
	return fmt.Sprintf("videocfg: rule %s [%s] %q: %v", rule, e.Engine, e.Condition, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// evaluationError attaches engine, condition and rule to err. An inner
// EvaluationError keeps what it already recorded and gains the rest.
func evaluationError(engine Engine, condition, rule string, err error) error {
	if err == nil {
		return nil
	}
	var inner *EvaluationError
	if !errors.As(err, &inner) {
		return &EvaluationError{Engine: engine, Rule: rule, Condition: condition, Err: err}
	}
	if inner.Engine == "" {
		inner.Engine = engine
	}
	if inner.Rule == "" {
		inner.Rule = rule
	}
	if inner.Condition == "" {
		inner.Condition = condition
	}
	return err
}
