package videocfg

import (
	"errors"
	"fmt"
	"testing"
)

var engines = []Engine{EngineExpr, EngineCEL, EngineJS}

func newTestEvaluator(t *testing.T, engine Engine, opts ...EvaluatorOption) Evaluator {
	t.Helper()
	if engine == EngineJS && !JSEvaluatorAvailable() {
		t.Skip("built without js_eval")
	}
	evaluator, err := NewEvaluator(engine, opts...)
	if err != nil {
		t.Fatalf("new %s evaluator: %v", engine, err)
	}
	if evaluator.Engine() != engine {
		t.Fatalf("expected engine %s, got %s", engine, evaluator.Engine())
	}
	return evaluator
}

func ruleInput(t *testing.T, msaa int) RuleInput {
	t.Helper()
	set := NewOptionSet(testSchema(t))
	if err := set.Set(keyMSAA, msaa); err != nil {
		t.Fatalf("set: %v", err)
	}
	return NewRuleInput("test", set, desktopCaps())
}

func TestEvaluatorsReadOptionsAndCapabilities(t *testing.T) {
	const expression = `options.Settings.MSAA < caps.aa_mode_count`
	for _, engine := range engines {
		t.Run(string(engine), func(t *testing.T) {
			evaluator := newTestEvaluator(t, engine)

			got, err := evaluator.Evaluate(ruleInput(t, 1), expression)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got != true {
				t.Fatalf("expected MSAA 1 to be in range, got %v", got)
			}

			compiled, err := evaluator.Compile(expression, CompileForRule("msaa-range"))
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			got, err = compiled.Evaluate(ruleInput(t, 7))
			if err != nil {
				t.Fatalf("compiled evaluate: %v", err)
			}
			if got != false {
				t.Fatalf("expected MSAA 7 to be out of range, got %v", got)
			}
		})
	}
}

func TestEvaluatorProgramCache(t *testing.T) {
	const expression = `caps.stereoscopy && options.Enhancements.StereoMode == 0`
	for _, engine := range engines {
		t.Run(string(engine), func(t *testing.T) {
			cache := &countingProgramCache{}
			evaluator := newTestEvaluator(t, engine, WithProgramCache(cache))
			for i := 0; i < 3; i++ {
				if _, err := evaluator.Evaluate(ruleInput(t, 0), expression); err != nil {
					t.Fatalf("iteration %d: %v", i, err)
				}
			}
			if cache.misses != 1 || cache.hits != 2 {
				t.Fatalf("expected 1 miss and 2 hits, got %d misses %d hits", cache.misses, cache.hits)
			}
		})
	}
}

func TestCapabilityFunctionsAcrossEvaluators(t *testing.T) {
	// CEL reaches registry functions through call(name, [args]).
	expressions := map[Engine]string{
		EngineExpr: `hasAAMode(caps, %d)`,
		EngineCEL:  `call("hasAAMode", [caps, %d])`,
		EngineJS:   `hasAAMode(caps, %d)`,
	}
	cases := []struct {
		name string
		mode int
		want any
	}{
		{name: "supported aa mode", mode: 4, want: true},
		{name: "unsupported aa mode", mode: 8, want: false},
	}
	for _, engine := range engines {
		t.Run(string(engine), func(t *testing.T) {
			evaluator := newTestEvaluator(t, engine, WithFunctions(CapabilityFunctions()))
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					expression := fmt.Sprintf(expressions[engine], tc.mode)
					got, err := evaluator.Evaluate(ruleInput(t, 0), expression)
					if err != nil {
						t.Fatalf("evaluate %s: %v", expression, err)
					}
					if got != tc.want {
						t.Fatalf("expected %v, got %v", tc.want, got)
					}
				})
			}
		})
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		n, _ := integral(args[0])
		return n * 2, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("double", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
	if got, err := registry.Call("double", 21); err != nil || got != int64(42) {
		t.Fatalf("call: %v %v", got, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("calling an unknown function should fail")
	}

	clone := registry.Clone()
	_ = clone.Register("extra", func(...any) (any, error) { return nil, nil })
	if len(registry.Names()) != 1 || len(clone.Names()) != 2 {
		t.Fatalf("clone must not share registrations: %v %v", registry.Names(), clone.Names())
	}

	if got, _ := CapabilityFunctions().Call("clampIndex", 5, 3); got != 0 {
		t.Fatalf("clampIndex should reset out of range values, got %v", got)
	}
	if got, _ := CapabilityFunctions().Call("clampIndex", 2, 3); got != 2 {
		t.Fatalf("clampIndex should keep valid values, got %v", got)
	}
}

type countingProgramCache struct {
	store  map[string]any
	hits   int
	misses int
}

func (c *countingProgramCache) Get(key string) (any, bool) {
	value, ok := c.store[key]
	if ok {
		c.hits++
		return value, true
	}
	c.misses++
	return nil, false
}

func (c *countingProgramCache) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}

func TestParseEngine(t *testing.T) {
	cases := map[string]Engine{"": EngineExpr, "EXPR": EngineExpr, " cel ": EngineCEL, "js": EngineJS}
	for name, want := range cases {
		if got, err := ParseEngine(name); err != nil || got != want {
			t.Errorf("%q: expected %s, got %s (%v)", name, want, got, err)
		}
	}
	if _, err := ParseEngine("lua"); err == nil {
		t.Fatalf("expected unknown engine error")
	}
	if _, err := NewEvaluator("lua"); err == nil {
		t.Fatalf("expected unknown engine error")
	}
	if !JSEvaluatorAvailable() {
		if _, err := NewEvaluator(EngineJS); !errors.Is(err, ErrEngineUnavailable) {
			t.Fatalf("expected unavailable engine, got %v", err)
		}
	}
}

func TestExprEvaluatorRejectsUnknownVariables(t *testing.T) {
	_, err := NewExprEvaluator().Compile(`cap.display == "rift"`, CompileForRule("typo"))
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Rule != "typo" {
		t.Fatalf("expected compile error for rule typo, got %v", err)
	}
}
